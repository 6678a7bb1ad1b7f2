package analyzer

import (
	"strings"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// wrappers maps primitives to the host class they box to.
var wrappers = map[typesystem.Primitive]string{
	typesystem.Bool:   "java/lang/Boolean",
	typesystem.Char:   "java/lang/Character",
	typesystem.Byte:   "java/lang/Byte",
	typesystem.Short:  "java/lang/Short",
	typesystem.Int:    "java/lang/Integer",
	typesystem.Long:   "java/lang/Long",
	typesystem.Float:  "java/lang/Float",
	typesystem.Double: "java/lang/Double",
}

// WrapperClass returns the class a primitive boxes to.
func WrapperClass(p typesystem.Primitive) (string, bool) {
	c, ok := wrappers[p]
	return c, ok
}

// unwrapped is the inverse of WrapperClass.
func unwrapped(class string) (typesystem.Primitive, bool) {
	for p, c := range wrappers {
		if c == class {
			return p, true
		}
	}
	return 0, false
}

// DescriptorType maps a field descriptor (or V) to a type. Arrays are not
// representable.
func DescriptorType(desc string) (typesystem.Type, bool) {
	switch desc {
	case "Z":
		return typesystem.Bool, true
	case "C":
		return typesystem.Char, true
	case "B":
		return typesystem.Byte, true
	case "S":
		return typesystem.Short, true
	case "I":
		return typesystem.Int, true
	case "J":
		return typesystem.Long, true
	case "F":
		return typesystem.Float, true
	case "D":
		return typesystem.Double, true
	case "V":
		return typesystem.Unit, true
	}
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return typesystem.Foreign(desc[1 : len(desc)-1]), true
	}
	return typesystem.Invalid, false
}

func usesArrays(m *foreign.Member) bool {
	if strings.HasPrefix(m.Result, "[") {
		return true
	}
	for _, p := range m.Params {
		if strings.HasPrefix(p, "[") {
			return true
		}
	}
	return false
}

// assignable reports whether a value of type t may be passed where the
// descriptor desc is expected. boxing enables the second overload phase.
func (c *Checker) assignable(t typesystem.Type, desc string, boxing bool) bool {
	dt, ok := DescriptorType(desc)
	if !ok || typesystem.IsUnit(dt) {
		return false
	}
	if typesystem.IsInvalid(t) {
		return true
	}
	dp, descPrim := dt.(typesystem.Primitive)
	switch a := t.(type) {
	case typesystem.Primitive:
		if a == typesystem.Unit {
			return false
		}
		if descPrim {
			if a == dp {
				return true
			}
			return a != typesystem.String && dp != typesystem.String && typesystem.CanWiden(a, dp)
		}
		class := dt.(*typesystem.ForeignType).Class
		if a == typesystem.String {
			return foreign.IsSubclass(c.ns, "java/lang/String", class)
		}
		if boxing {
			return foreign.IsSubclass(c.ns, wrappers[a], class)
		}
		return false
	case *typesystem.ForeignType:
		if descPrim {
			if !boxing || dp == typesystem.String {
				return false
			}
			p, ok := unwrapped(a.Class)
			return ok && (p == dp || typesystem.CanWiden(p, dp))
		}
		return foreign.IsSubclass(c.ns, a.Class, dt.(*typesystem.ForeignType).Class)
	}
	// Structs, variants, functions and type parameters are plain objects.
	return !descPrim && dt.(*typesystem.ForeignType).Class == foreign.ObjectClass
}

// moreSpecific reports whether every parameter of a may be passed to the
// corresponding parameter of b without boxing.
func (c *Checker) moreSpecific(a, b *foreign.Member) bool {
	if len(a.Params) != len(b.Params) || a.Static != b.Static {
		return false
	}
	for i := range a.Params {
		t, _ := DescriptorType(a.Params[i])
		if !c.assignable(t, b.Params[i], false) {
			return false
		}
	}
	return true
}

func (c *Checker) inferForeignCall(n *ast.ForeignCall) typesystem.Type {
	args := make([]typesystem.Type, len(n.Args))
	for i, a := range n.Args {
		args[i] = c.apply(c.infer(a))
	}
	sym, ok := c.symbolOf(n)
	if !ok || typesystem.IsInvalid(sym.Type) || c.ns == nil {
		return typesystem.Invalid
	}
	class := sym.Path

	name, kind := n.Method, foreign.KindMethod
	if name == "new" {
		name, kind = "<init>", foreign.KindConstructor
	}
	members := c.ns.Members(class, name, kind)
	if len(members) == 0 {
		// Reported by the resolver.
		return typesystem.Invalid
	}

	var applicable []*foreign.Member
	for _, boxing := range []bool{false, true} {
		for _, m := range members {
			if !usesArrays(m) && c.applicable(m, class, args, boxing) {
				applicable = append(applicable, m)
			}
		}
		if len(applicable) > 0 {
			break
		}
	}
	if len(applicable) == 0 {
		c.errorf(diagnostics.NoApplicableOverload, n.Span, "no overload of %s#%s accepts (%s)",
			foreign.SimpleName(class), n.Method, typeList(args))
		return typesystem.Invalid
	}

	var best []*foreign.Member
	for _, m := range applicable {
		maximal := true
		for _, o := range applicable {
			if o != m && !c.moreSpecific(m, o) {
				maximal = false
				break
			}
		}
		if maximal {
			best = append(best, m)
		}
	}
	if len(best) != 1 {
		var names []string
		for _, m := range applicable {
			names = append(names, m.String())
		}
		c.errorf(diagnostics.AmbiguousOverload, n.Span, "call to %s#%s with (%s) is ambiguous between %s",
			foreign.SimpleName(class), n.Method, typeList(args), strings.Join(names, " and "))
		return typesystem.Invalid
	}

	chosen := best[0]
	c.result.Foreign[n] = chosen
	if kind == foreign.KindConstructor {
		return typesystem.Foreign(class)
	}
	t, _ := DescriptorType(chosen.Result)
	return t
}

// applicable matches arguments against one candidate. Instance methods take
// the receiver as their first argument.
func (c *Checker) applicable(m *foreign.Member, class string, args []typesystem.Type, boxing bool) bool {
	if m.Kind == foreign.KindMethod && !m.Static {
		if len(args) != len(m.Params)+1 || !c.assignable(args[0], "L"+class+";", false) {
			return false
		}
		args = args[1:]
	} else if len(args) != len(m.Params) {
		return false
	}
	for i, p := range m.Params {
		if !c.assignable(args[i], p, boxing) {
			return false
		}
	}
	return true
}

func (c *Checker) inferForeignField(n *ast.ForeignField) typesystem.Type {
	sym, ok := c.symbolOf(n)
	if !ok || typesystem.IsInvalid(sym.Type) || c.ns == nil {
		return typesystem.Invalid
	}
	members := c.ns.Members(sym.Path, n.Field, foreign.KindField)
	if len(members) == 0 {
		return typesystem.Invalid
	}
	m := members[0]
	if !m.Static {
		c.errorf(diagnostics.TypeMismatch, n.Span, "%s#%s is an instance field, not static", foreign.SimpleName(sym.Path), n.Field)
		return typesystem.Invalid
	}
	t, ok := DescriptorType(m.Result)
	if !ok {
		c.errorf(diagnostics.TypeMismatch, n.Span, "%s#%s has an array type, which is not supported", foreign.SimpleName(sym.Path), n.Field)
		return typesystem.Invalid
	}
	c.result.Foreign[n] = m
	return t
}

func typeList(ts []typesystem.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
