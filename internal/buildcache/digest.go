package buildcache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// Digest identifies a module interface or a module build.
type Digest [32]byte

func (d Digest) String() string { return fmt.Sprintf("%x", d[:]) }

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("buildcache: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// moduleInterface is everything importers of a module can observe.
type moduleInterface struct {
	Module  string        `cbor:"1,keyasint"`
	Exports []exportEntry `cbor:"2,keyasint,omitempty"`
	Imports []Digest      `cbor:"3,keyasint,omitempty"`
}

type exportEntry struct {
	Name    string   `cbor:"1,keyasint"`
	Kind    string   `cbor:"2,keyasint"`
	Type    string   `cbor:"3,keyasint"`
	Members []string `cbor:"4,keyasint,omitempty"` // fields and alternatives
}

// InterfaceDigest hashes the exported signatures of a module whose scope has
// been elaborated. imports are the interface digests of the modules it
// imports, so a change anywhere below a module changes its digest too.
func InterfaceDigest(module string, scope *symbols.Scope, imports []Digest) (Digest, error) {
	iface := moduleInterface{Module: module, Imports: sortDigests(imports)}
	for _, sym := range scope.Exported() {
		iface.Exports = append(iface.Exports, exportOf(sym))
	}
	sort.Slice(iface.Exports, func(i, j int) bool {
		a, b := iface.Exports[i], iface.Exports[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Kind < b.Kind
	})
	data, err := cborEncMode.Marshal(&iface)
	if err != nil {
		return Digest{}, fmt.Errorf("buildcache: encoding interface of %s: %w", module, err)
	}
	return sha256.Sum256(data), nil
}

// ModuleKey is the cache key of one module build: the compiler version, the
// salt (the foreign class configuration), the source text and the interfaces
// the module was checked against.
func ModuleKey(salt, source string, imports []Digest) Digest {
	h := sha256.New()
	for _, part := range []string{config.Version, salt, source} {
		fmt.Fprintf(h, "%d:%s;", len(part), part)
	}
	for _, d := range sortDigests(imports) {
		h.Write(d[:])
	}
	var key Digest
	copy(key[:], h.Sum(nil))
	return key
}

func sortDigests(ds []Digest) []Digest {
	out := append([]Digest(nil), ds...)
	sort.Slice(out, func(i, j int) bool { return string(out[i][:]) < string(out[j][:]) })
	return out
}

func exportOf(sym *symbols.Symbol) exportEntry {
	e := exportEntry{Name: sym.Name, Kind: sym.Kind.String()}
	if sym.Type != nil {
		e.Type = describe(sym.Type)
	}
	switch t := sym.Type.(type) {
	case *typesystem.StructType:
		if sym.Kind == symbols.TypeSymbol {
			e.Members = describeFields(t.Fields)
		}
	case *typesystem.VariantType:
		if sym.Kind == symbols.TypeSymbol {
			for _, alt := range t.Alternatives {
				e.Members = append(e.Members, fmt.Sprintf("%s/%d{%s}", alt.Tag, alt.Kind, strings.Join(describeFields(alt.Fields), ",")))
			}
		}
	}
	if sym.Alt != nil {
		e.Members = append(e.Members, fmt.Sprintf("alt %s#%d", sym.Alt.Tag, sym.Alt.Index))
	}
	if sym.IsAlias() {
		e.Members = append(e.Members, "alias"+params(sym.AliasParams))
	}
	// Callers pass labeled arguments by name.
	if fd, ok := sym.Decl.(*ast.FunctionDecl); ok {
		for i, p := range fd.Params {
			if p.Label != "" {
				e.Members = append(e.Members, fmt.Sprintf("label %d %s", i, p.Label))
			}
		}
	}
	return e
}

func describeFields(fields []typesystem.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name + ":" + describe(f.Type)
	}
	return out
}

// describe prints t with nominal types qualified by module, unlike String.
func describe(t typesystem.Type) string {
	switch t := t.(type) {
	case *typesystem.StructType:
		return t.Key() + params(t.Params)
	case *typesystem.VariantType:
		return t.Key() + params(t.Params)
	case *typesystem.Applied:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = describe(a)
		}
		return describe(t.Base) + "[" + strings.Join(args, ",") + "]"
	case *typesystem.FuncType:
		ps := make([]string, len(t.Params))
		for i, p := range t.Params {
			ps[i] = describe(p)
		}
		return "fn" + params(t.TypeParams) + "(" + strings.Join(ps, ",") + ")" + describe(t.Result)
	case *typesystem.TupleType:
		es := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			es[i] = describe(e)
		}
		return "(" + strings.Join(es, ",") + ")"
	case *typesystem.TypeParam:
		return t.Decl()
	case nil:
		return "?"
	}
	return t.String()
}

func params(ps []*typesystem.TypeParam) string {
	if len(ps) == 0 {
		return ""
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Decl()
	}
	return "[" + strings.Join(out, ",") + "]"
}
