package pipeline

import (
	"errors"

	"github.com/funvibe/sasquach/internal/analyzer"
	"github.com/funvibe/sasquach/internal/codegen"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/parser"
	"github.com/funvibe/sasquach/internal/resolver"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/token"
)

// ParseProcessor turns the source text into an AST.
type ParseProcessor struct{}

func (ParseProcessor) Process(ctx *PipelineContext) *PipelineContext {
	mod, errs := parser.Parse(ctx.FilePath, ctx.Source)
	ctx.AstRoot = mod
	ctx.report(errs)
	return ctx
}

// DeclareProcessor runs resolution phase 1, which fills the module scope
// with the module's own top-level symbols.
type DeclareProcessor struct {
	Prelude   *symbols.Scope
	IDs       *symbols.IDGen
	Namespace foreign.Namespace
}

func (p DeclareProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.AstRoot == nil {
		return ctx
	}
	ctx.Resolver = resolver.New(ctx.AstRoot, p.Prelude, p.IDs, p.Namespace)
	ctx.report(ctx.Resolver.DeclareSignatures())
	return ctx
}

// ResolveProcessor runs resolution phase 2 against ctx.Imports.
type ResolveProcessor struct{}

func (ResolveProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Resolver == nil {
		return ctx
	}
	ctx.report(ctx.Resolver.ResolveBodies(ctx.Imports))
	return ctx
}

// ElaborateProcessor turns declared signatures into types. Once it has run
// the module's exported symbols are fully typed.
type ElaborateProcessor struct {
	Namespace foreign.Namespace
}

func (p ElaborateProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Resolver == nil {
		return ctx
	}
	ctx.Checker = analyzer.New(ctx.Resolver, p.Namespace)
	ctx.report(ctx.Checker.ElaborateSignatures())
	return ctx
}

// CheckProcessor type checks every body.
type CheckProcessor struct{}

func (CheckProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Checker == nil {
		return ctx
	}
	result, diags := ctx.Checker.CheckBodies()
	ctx.Result = result
	ctx.report(diags)
	return ctx
}

// GenerateProcessor emits class files. Artifacts already taken from the
// build cache are kept as they are.
type GenerateProcessor struct{}

func (GenerateProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Cached || ctx.Result == nil {
		return ctx
	}
	artifacts, err := codegen.Generate(ctx.AstRoot, ctx.Result)
	if err != nil {
		ctx.Diagnostics.Add(codeGenDiagnostic(ctx, err))
		return ctx
	}
	ctx.Artifacts = artifacts
	return ctx
}

func codeGenDiagnostic(ctx *PipelineContext, err error) *diagnostics.Diagnostic {
	span := token.Span{File: ctx.FilePath, Line: 1, Column: 1}
	var cgErr *codegen.Error
	if errors.As(err, &cgErr) {
		return diagnostics.New(diagnostics.CodeGenError, span, "internal compiler error in %s: %v", cgErr.Module, cgErr.Err)
	}
	return diagnostics.New(diagnostics.CodeGenError, span, "internal compiler error: %v", err)
}

// Frontend returns the stages that take a single self-contained module from
// source to a checked AST.
func Frontend(prelude *symbols.Scope, ids *symbols.IDGen, ns foreign.Namespace) []Processor {
	return []Processor{
		ParseProcessor{},
		DeclareProcessor{Prelude: prelude, IDs: ids, Namespace: ns},
		ResolveProcessor{},
		ElaborateProcessor{Namespace: ns},
		CheckProcessor{},
	}
}
