package symbols

type ScopeKind int

const (
	ScopePrelude  ScopeKind = iota // built-in types and functions
	ScopeModule                    // top-level declarations of one module
	ScopeFunction                  // type parameters and parameters
	ScopeBlock
)

// Scope maps names to symbols. The parent link is only followed for lookup.
type Scope struct {
	kind    ScopeKind
	parent  *Scope
	symbols map[string]*Symbol
	order   []*Symbol
}

func NewScope(parent *Scope, kind ScopeKind) *Scope {
	return &Scope{kind: kind, parent: parent, symbols: make(map[string]*Symbol)}
}

func (s *Scope) Kind() ScopeKind { return s.kind }
func (s *Scope) Parent() *Scope  { return s.parent }

// Declare inserts sym. A value may be rebound within a block scope; any other
// redeclaration in the same scope fails with *DuplicateDefinitionError.
// Declaring in a nested scope shadows and is never an error.
func (s *Scope) Declare(sym *Symbol) (*Symbol, error) {
	if prev, ok := s.symbols[sym.Name]; ok {
		if !(s.kind == ScopeBlock && prev.Kind == ValueSymbol && sym.Kind == ValueSymbol) {
			return nil, &DuplicateDefinitionError{Name: sym.Name, Previous: prev}
		}
	}
	s.symbols[sym.Name] = sym
	s.order = append(s.order, sym)
	return sym, nil
}

// Lookup walks the scope chain outwards; the innermost definition wins.
func (s *Scope) Lookup(name string) (*Symbol, error) {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.symbols[name]; ok {
			return sym, nil
		}
	}
	return nil, &UnresolvedNameError{Name: name}
}

// LookupLocal only consults this scope.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Symbols returns every symbol declared here, in declaration order. Rebound
// values appear once per declaration.
func (s *Scope) Symbols() []*Symbol {
	out := make([]*Symbol, len(s.order))
	copy(out, s.order)
	return out
}

// Exported returns the exported symbols still visible by name.
func (s *Scope) Exported() []*Symbol {
	var out []*Symbol
	for _, sym := range s.order {
		if sym.Exported && s.symbols[sym.Name] == sym {
			out = append(out, sym)
		}
	}
	return out
}
