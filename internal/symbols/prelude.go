package symbols

import (
	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// NewPrelude builds the built-in scope. Every session builds its own so that
// symbol identities never leak between sessions.
func NewPrelude(ids *IDGen) *Scope {
	p := NewScope(nil, ScopePrelude)
	for _, prim := range typesystem.Primitives {
		sym := ids.New(prim.String(), TypeSymbol, "", nil)
		sym.Type = prim
		sym.Exported = true
		p.Declare(sym)
	}

	builtin := func(name string, b Builtin, result typesystem.Type) {
		t := &typesystem.TypeParam{Name: "T", Owner: name}
		sym := ids.New(name, FunctionSymbol, "", nil)
		sym.Type = &typesystem.FuncType{
			TypeParams: []*typesystem.TypeParam{t},
			Params:     []typesystem.Type{t},
			Result:     result,
		}
		sym.Builtin = b
		sym.Exported = true
		p.Declare(sym)
	}
	builtin(config.PrintFuncName, BuiltinPrintln, typesystem.Unit)
	builtin(config.ShowFuncName, BuiltinShow, typesystem.String)
	return p
}
