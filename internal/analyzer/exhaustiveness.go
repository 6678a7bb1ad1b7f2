package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// Match analysis follows Maranget's usefulness algorithm ("Warnings for
// pattern matching", JFP 2007). A pattern vector is useful with respect to
// a matrix of rows if some value matches it and no row. A match is
// exhaustive iff a row of wildcards is not useful after all arms, and an arm
// is unreachable iff it is not useful after the arms above it.

// spat is a pattern reduced to what usefulness needs.
type spat struct {
	wild bool
	// key identifies a constructor: an alternative tag, "true"/"false", the
	// text of a literal, or tupleKey.
	key  string
	alt  *typesystem.Alternative
	args []spat
}

var wildcard = spat{wild: true}

// tupleKey is the single constructor of a tuple type.
const tupleKey = "()"

func (c *Checker) analyseMatch(n *ast.MatchExpr, scrutinee typesystem.Type) {
	if typesystem.IsInvalid(scrutinee) {
		return
	}
	types := []typesystem.Type{scrutinee}
	var rows [][]spat
	for _, arm := range n.Arms {
		row := []spat{c.simplify(arm.Pattern)}
		if !useful(rows, row, types) {
			c.errorf(diagnostics.UnreachablePattern, arm.Pattern.GetSpan(),
				"pattern is unreachable; earlier arms already cover it")
		}
		rows = append(rows, row)
	}
	if w := witness(rows, types); w != nil {
		c.errorf(diagnostics.NonExhaustiveMatch, n.Span, "match is not exhaustive; %s is not covered", render(w[0]))
	}
}

// simplify reduces a checked pattern. Record payloads are expanded to the
// declared field order, with omitted fields as wildcards.
func (c *Checker) simplify(p ast.Pattern) spat {
	switch n := p.(type) {
	case *ast.LiteralPattern:
		switch v := n.Value.(type) {
		case *ast.UnitLit:
			return wildcard
		case *ast.BoolLit:
			return spat{key: strconv.FormatBool(v.Value)}
		case *ast.IntLit:
			return spat{key: strconv.FormatInt(v.Value, 10)}
		case *ast.FloatLit:
			return spat{key: strconv.FormatFloat(v.Value, 'g', -1, 64)}
		case *ast.CharLit:
			return spat{key: strconv.QuoteRune(v.Value)}
		case *ast.StringLit:
			return spat{key: strconv.Quote(v.Value)}
		}
	case *ast.TuplePattern:
		sp := spat{key: tupleKey, args: make([]spat, len(n.Elems))}
		for i, e := range n.Elems {
			sp.args[i] = c.simplify(e)
		}
		return sp
	case *ast.ConstructorPattern:
		sym, ok := c.symbolOf(n)
		if !ok || sym.Kind != symbols.ConstructorSymbol {
			return wildcard
		}
		alt := sym.Alt
		sp := spat{key: alt.Tag, alt: alt, args: make([]spat, len(alt.Fields))}
		for i := range sp.args {
			sp.args[i] = wildcard
		}
		switch alt.Kind {
		case typesystem.AltTuple:
			for i, a := range n.Args {
				if i < len(sp.args) {
					sp.args[i] = c.simplify(a)
				}
			}
		case typesystem.AltRecord:
			for _, fp := range n.Fields {
				if _, i, ok := alt.Field(fp.Name); ok {
					sp.args[i] = c.simplify(fp.Pattern)
				}
			}
		}
		return sp
	}
	return wildcard
}

// constructor is one element of a type's value domain.
type constructor struct {
	key  string
	alt  *typesystem.Alternative
	args []typesystem.Type
}

// signature returns the full constructor set of t, or false when the domain
// is infinite (or opaque) and can only be covered by a wildcard.
func signature(t typesystem.Type) ([]constructor, bool) {
	switch tt := t.(type) {
	case typesystem.Primitive:
		if tt == typesystem.Bool {
			return []constructor{{key: "true"}, {key: "false"}}, true
		}
	case *typesystem.TupleType:
		return []constructor{{key: tupleKey, args: tt.Elems}}, true
	}
	base, _ := typesystem.Nominal(t)
	vt, ok := base.(*typesystem.VariantType)
	if !ok {
		return nil, false
	}
	out := make([]constructor, len(vt.Alternatives))
	for i, alt := range vt.Alternatives {
		fields := typesystem.AltFields(alt, t)
		args := make([]typesystem.Type, len(fields))
		for j, f := range fields {
			args[j] = f.Type
		}
		out[i] = constructor{key: alt.Tag, alt: alt, args: args}
	}
	return out, true
}

// argTypes returns the payload types of the constructor key within t.
func argTypes(t typesystem.Type, key string) []typesystem.Type {
	sig, _ := signature(t)
	for _, k := range sig {
		if k.key == key {
			return k.args
		}
	}
	return nil
}

// specialize keeps the rows whose head matches key, replacing the head by
// its arity sub-patterns.
func specialize(rows [][]spat, key string, arity int) [][]spat {
	var out [][]spat
	for _, row := range rows {
		head := row[0]
		switch {
		case head.wild:
			next := make([]spat, 0, arity+len(row)-1)
			for i := 0; i < arity; i++ {
				next = append(next, wildcard)
			}
			out = append(out, append(next, row[1:]...))
		case head.key == key:
			next := make([]spat, 0, arity+len(row)-1)
			next = append(next, head.args...)
			out = append(out, append(next, row[1:]...))
		}
	}
	return out
}

// defaults keeps the rows whose head is a wildcard, dropping the head.
func defaults(rows [][]spat) [][]spat {
	var out [][]spat
	for _, row := range rows {
		if row[0].wild {
			out = append(out, row[1:])
		}
	}
	return out
}

// heads returns the distinct constructor keys in the first column.
func heads(rows [][]spat) map[string]spat {
	out := make(map[string]spat)
	for _, row := range rows {
		if !row[0].wild {
			out[row[0].key] = row[0]
		}
	}
	return out
}

func complete(sig []constructor, present map[string]spat) bool {
	if len(present) == 0 {
		return false
	}
	for _, k := range sig {
		if _, ok := present[k.key]; !ok {
			return false
		}
	}
	return true
}

func useful(rows [][]spat, q []spat, types []typesystem.Type) bool {
	if len(q) == 0 {
		return len(rows) == 0
	}
	head, t, rest := q[0], types[0], types[1:]
	if !head.wild {
		args := argTypes(t, head.key)
		for len(args) < len(head.args) {
			args = append(args, typesystem.Invalid)
		}
		return useful(specialize(rows, head.key, len(head.args)), append(append([]spat{}, head.args...), q[1:]...), append(append([]typesystem.Type{}, args...), rest...))
	}
	sig, finite := signature(t)
	if finite && complete(sig, heads(rows)) {
		for _, k := range sig {
			sub := make([]spat, 0, len(k.args)+len(q)-1)
			for range k.args {
				sub = append(sub, wildcard)
			}
			sub = append(sub, q[1:]...)
			if useful(specialize(rows, k.key, len(k.args)), sub, append(append([]typesystem.Type{}, k.args...), rest...)) {
				return true
			}
		}
		return false
	}
	return useful(defaults(rows), q[1:], rest)
}

// witness returns a value vector matched by no row, or nil if the rows are
// exhaustive.
func witness(rows [][]spat, types []typesystem.Type) []spat {
	if len(types) == 0 {
		if len(rows) == 0 {
			return []spat{}
		}
		return nil
	}
	t, rest := types[0], types[1:]
	sig, finite := signature(t)
	present := heads(rows)
	if finite && complete(sig, present) {
		for _, k := range sig {
			w := witness(specialize(rows, k.key, len(k.args)), append(append([]typesystem.Type{}, k.args...), rest...))
			if w != nil {
				head := spat{key: k.key, alt: k.alt, args: w[:len(k.args)]}
				return append([]spat{head}, w[len(k.args):]...)
			}
		}
		return nil
	}
	w := witness(defaults(rows), rest)
	if w == nil {
		return nil
	}
	head := wildcard
	if finite && len(present) > 0 {
		for _, k := range sig {
			if _, ok := present[k.key]; !ok {
				head = spat{key: k.key, alt: k.alt, args: make([]spat, len(k.args))}
				for i := range head.args {
					head.args[i] = wildcard
				}
				break
			}
		}
	}
	return append([]spat{head}, w...)
}

// render prints a witness in source syntax.
func render(p spat) string {
	if p.wild {
		return "_"
	}
	args := make([]string, len(p.args))
	for i, a := range p.args {
		args[i] = render(a)
	}
	if p.key == tupleKey {
		return "(" + strings.Join(args, ", ") + ")"
	}
	if p.alt == nil {
		return p.key
	}
	switch p.alt.Kind {
	case typesystem.AltTuple:
		return fmt.Sprintf("%s(%s)", p.key, strings.Join(args, ", "))
	case typesystem.AltRecord:
		fields := make([]string, len(p.args))
		for i, f := range p.alt.Fields {
			fields[i] = f.Name + ": " + args[i]
		}
		return fmt.Sprintf("%s { %s }", p.key, strings.Join(fields, ", "))
	}
	return p.key
}
