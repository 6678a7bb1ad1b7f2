package symbols_test

import (
	"errors"
	"testing"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
	"github.com/nalgeon/be"
)

func TestScope_LookupWalksOutwards(t *testing.T) {
	ids := &symbols.IDGen{}
	prelude := symbols.NewPrelude(ids)
	mod := symbols.NewScope(prelude, symbols.ScopeModule)
	fn := symbols.NewScope(mod, symbols.ScopeFunction)

	x := ids.New("x", symbols.ValueSymbol, "m", nil)
	_, err := mod.Declare(x)
	be.Err(t, err, nil)
	inner := ids.New("x", symbols.ValueSymbol, "m", nil)
	_, err = fn.Declare(inner)
	be.Err(t, err, nil)

	got, err := fn.Lookup("x")
	be.Err(t, err, nil)
	be.True(t, got == inner)
	got, _ = mod.Lookup("x")
	be.True(t, got == x)

	intSym, err := fn.Lookup("Int")
	be.Err(t, err, nil)
	be.Equal(t, intSym.Type, typesystem.Type(typesystem.Int))

	_, err = fn.Lookup("nope")
	var unresolved *symbols.UnresolvedNameError
	be.True(t, errors.As(err, &unresolved))
	be.Equal(t, err.Error(), `cannot find "nope" in this scope`)

	_, ok := fn.LookupLocal("Int")
	be.True(t, !ok)
}

func TestScope_Redeclaration(t *testing.T) {
	ids := &symbols.IDGen{}
	block := symbols.NewScope(nil, symbols.ScopeBlock)
	a1 := ids.New("a", symbols.ValueSymbol, "m", nil)
	a2 := ids.New("a", symbols.ValueSymbol, "m", nil)
	block.Declare(a1)
	_, err := block.Declare(a2)
	be.Err(t, err, nil)
	got, _ := block.LookupLocal("a")
	be.True(t, got == a2)
	be.Equal(t, len(block.Symbols()), 2)

	fn := symbols.NewScope(nil, symbols.ScopeFunction)
	fn.Declare(ids.New("a", symbols.ValueSymbol, "m", nil))
	_, err = fn.Declare(ids.New("a", symbols.ValueSymbol, "m", nil))
	var dup *symbols.DuplicateDefinitionError
	be.True(t, errors.As(err, &dup))
	be.Equal(t, err.Error(), `value "a" is already defined`)

	// Types never rebind, even in blocks.
	block.Declare(ids.New("T", symbols.TypeSymbol, "m", nil))
	_, err = block.Declare(ids.New("T", symbols.TypeSymbol, "m", nil))
	be.True(t, err != nil)
}

func TestScope_ExportedSkipsShadowed(t *testing.T) {
	ids := &symbols.IDGen{}
	s := symbols.NewScope(nil, symbols.ScopeBlock)
	old := ids.New("v", symbols.ValueSymbol, "m", nil)
	old.Exported = true
	s.Declare(old)
	hidden := ids.New("h", symbols.FunctionSymbol, "m", nil)
	s.Declare(hidden)
	cur := ids.New("v", symbols.ValueSymbol, "m", nil)
	cur.Exported = true
	s.Declare(cur)

	exported := s.Exported()
	be.Equal(t, len(exported), 1)
	be.True(t, exported[0] == cur)
}

func TestBindings_RebindFails(t *testing.T) {
	ids := &symbols.IDGen{}
	b := symbols.NewBindings()
	node := &ast.Identifier{Name: "x"}
	sym := ids.New("x", symbols.ValueSymbol, "m", nil)
	be.Err(t, b.Bind(node, sym), nil)
	be.Err(t, b.Bind(node, sym), "already bound")
	got, ok := b.Lookup(node)
	be.True(t, ok)
	be.True(t, got == sym)
	be.Equal(t, b.Len(), 1)
}

func TestPrelude(t *testing.T) {
	p := symbols.NewPrelude(&symbols.IDGen{})
	for _, prim := range typesystem.Primitives {
		sym, ok := p.LookupLocal(prim.String())
		be.True(t, ok)
		be.Equal(t, sym.Kind, symbols.TypeSymbol)
	}
	pr, _ := p.LookupLocal("println")
	be.Equal(t, pr.Builtin, symbols.BuiltinPrintln)
	be.Equal(t, pr.Type.String(), "fn[T](T) -> Unit")
	show, _ := p.LookupLocal("show")
	be.Equal(t, show.Type.String(), "fn[T](T) -> String")
}

func TestSymbol_IsModuleLevel(t *testing.T) {
	ids := &symbols.IDGen{}
	let := ids.New("x", symbols.ValueSymbol, "m", &ast.LetDecl{Name: "x"})
	local := ids.New("y", symbols.ValueSymbol, "m", &ast.LetStmt{Name: "y"})
	fn := ids.New("f", symbols.FunctionSymbol, "m", nil)
	be.True(t, let.IsModuleLevel())
	be.True(t, !local.IsModuleLevel())
	be.True(t, fn.IsModuleLevel())
	be.Equal(t, fn.String(), "m.f")
	be.True(t, ids.Next() > fn.ID)
}
