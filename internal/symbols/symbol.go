package symbols

import (
	"fmt"
	"sync/atomic"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/typesystem"
)

type SymbolKind int

const (
	ModuleSymbol SymbolKind = iota
	TypeSymbol
	FunctionSymbol
	ConstructorSymbol // variant alternative
	ValueSymbol       // module let, parameter or local
	TypeParamSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case ModuleSymbol:
		return "module"
	case TypeSymbol:
		return "type"
	case FunctionSymbol:
		return "function"
	case ConstructorSymbol:
		return "constructor"
	case ValueSymbol:
		return "value"
	case TypeParamSymbol:
		return "type parameter"
	}
	return "unknown"
}

// Builtin identifies prelude functions that codegen lowers specially.
type Builtin int

const (
	NotBuiltin Builtin = iota
	BuiltinPrintln
	BuiltinShow
)

// Symbol is a named entity. Identity is the pointer; ID is unique within a
// session and gives a stable order for display. Symbols are never copied.
type Symbol struct {
	ID       int
	Name     string
	Kind     SymbolKind
	Module   string   // owning module, "" for the prelude
	Decl     ast.Node // declaring node, nil for prelude symbols
	Exported bool

	// Path is the full module name for module symbols and the internal class
	// name for foreign classes.
	Path string

	// Type is the nominal shell for struct/variant types (set in phase 1) and
	// the elaborated signature for functions, constructors and module lets.
	// A type alias gets its expanded target during elaboration. Locals are
	// typed by the checker, not here.
	Type typesystem.Type

	// AliasParams are the type parameters of a generic type alias.
	AliasParams []*typesystem.TypeParam

	// Alt is the variant alternative a constructor builds.
	Alt *typesystem.Alternative

	// Param is the type parameter a TypeParamSymbol denotes.
	Param *typesystem.TypeParam

	Builtin Builtin
}

func (s *Symbol) String() string {
	if s.Module == "" {
		return s.Name
	}
	return s.Module + "." + s.Name
}

// IsAlias reports whether a type symbol was declared with `type Name = ...`.
func (s *Symbol) IsAlias() bool {
	_, ok := s.Decl.(*ast.TypeAliasDecl)
	return ok
}

// IsModuleLevel reports whether the symbol lives in a module scope, i.e. it
// compiles to a static member rather than a local slot.
func (s *Symbol) IsModuleLevel() bool {
	switch s.Kind {
	case FunctionSymbol, ConstructorSymbol, TypeSymbol, ModuleSymbol:
		return true
	case ValueSymbol:
		_, ok := s.Decl.(*ast.LetDecl)
		return ok
	}
	return false
}

// IDGen hands out symbol identities. One generator belongs to one session.
type IDGen struct {
	next atomic.Int64
}

func (g *IDGen) Next() int {
	return int(g.next.Add(1))
}

// New allocates a symbol with a fresh identity.
func (g *IDGen) New(name string, kind SymbolKind, module string, decl ast.Node) *Symbol {
	return &Symbol{ID: g.Next(), Name: name, Kind: kind, Module: module, Decl: decl}
}

// DuplicateDefinitionError is returned by Declare for a non-shadowable redeclaration.
type DuplicateDefinitionError struct {
	Name     string
	Previous *Symbol
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("%s %q is already defined", e.Previous.Kind, e.Name)
}

// UnresolvedNameError is returned by Lookup when no scope defines the name.
type UnresolvedNameError struct {
	Name string
}

func (e *UnresolvedNameError) Error() string {
	return fmt.Sprintf("cannot find %q in this scope", e.Name)
}
