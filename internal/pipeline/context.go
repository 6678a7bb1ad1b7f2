package pipeline

import (
	"context"

	"github.com/funvibe/sasquach/internal/analyzer"
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/codegen"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/resolver"
	"github.com/funvibe/sasquach/internal/symbols"
)

// PipelineContext carries one module through the stages. Each stage fills
// in its own fields and leaves the earlier ones alone.
type PipelineContext struct {
	Context  context.Context
	FilePath string
	Source   string

	AstRoot  *ast.Module
	Resolver *resolver.Resolver
	// Imports holds the published scopes of the imported modules, keyed by
	// module path. It is filled before body resolution.
	Imports  map[string]*symbols.Scope
	Checker  *analyzer.Checker
	Result   *analyzer.Result

	Artifacts []codegen.Artifact
	// Cached is set when Artifacts came from the build cache.
	Cached bool

	Diagnostics diagnostics.List

	// Err is a failure that is not the program's fault, such as cancellation.
	Err error
	// Halted ends the run without an error diagnostic of this module's own,
	// e.g. when an import failed.
	Halted bool
}

func NewPipelineContext(file, source string) *PipelineContext {
	return &PipelineContext{
		Context:  context.Background(),
		FilePath: file,
		Source:   source,
	}
}

// ModuleName is the declared module name, or "" before parsing.
func (c *PipelineContext) ModuleName() string {
	if c.AstRoot == nil {
		return ""
	}
	return c.AstRoot.Name
}

// Failed reports whether any stage produced an error diagnostic.
func (c *PipelineContext) Failed() bool {
	return c.Diagnostics.HasErrors()
}

func (c *PipelineContext) Stopped() bool {
	return c.Err != nil || c.Halted || c.Failed()
}

func (c *PipelineContext) report(diags diagnostics.List) {
	c.Diagnostics = append(c.Diagnostics, diags...)
}
