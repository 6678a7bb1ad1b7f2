package symbols

import (
	"fmt"

	"github.com/funvibe/sasquach/internal/ast"
)

// Bindings records which symbol each reference node denotes. A node is bound
// at most once.
type Bindings struct {
	m map[ast.Node]*Symbol
}

func NewBindings() *Bindings {
	return &Bindings{m: make(map[ast.Node]*Symbol)}
}

// Bind associates node with sym. Rebinding a node is a resolver defect.
func (b *Bindings) Bind(node ast.Node, sym *Symbol) error {
	if prev, ok := b.m[node]; ok {
		return fmt.Errorf("node at %s already bound to %s", node.GetSpan(), prev)
	}
	b.m[node] = sym
	return nil
}

func (b *Bindings) Lookup(node ast.Node) (*Symbol, bool) {
	sym, ok := b.m[node]
	return sym, ok
}

func (b *Bindings) Len() int { return len(b.m) }
