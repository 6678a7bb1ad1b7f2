package pipeline_test

import (
	"testing"

	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/pipeline"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/nalgeon/be"
)

func stages(t *testing.T) []pipeline.Processor {
	t.Helper()
	jdk, err := foreign.LoadJDK()
	be.Err(t, err, nil)
	ids := &symbols.IDGen{}
	procs := pipeline.Frontend(symbols.NewPrelude(ids), ids, jdk)
	return append(procs, pipeline.GenerateProcessor{})
}

func TestRun_CompilesModule(t *testing.T) {
	src := `module app/Main
fn main(): Int = 1 + 2
`
	ctx := pipeline.New(stages(t)...).Run(pipeline.NewPipelineContext("main.sasq", src))
	be.Equal(t, ctx.Diagnostics.HasErrors(), false)
	be.Equal(t, ctx.ModuleName(), "app/Main")
	be.True(t, ctx.Result != nil)
	be.Equal(t, len(ctx.Artifacts), 1)
	be.Equal(t, ctx.Artifacts[0].Name, "app/Main")
}

func TestRun_StopsAfterSyntaxError(t *testing.T) {
	src := `module app/Main
fn main(): Int = (1 +
`
	ctx := pipeline.New(stages(t)...).Run(pipeline.NewPipelineContext("main.sasq", src))
	be.True(t, ctx.Diagnostics.Count(diagnostics.SyntaxError) > 0)
	be.True(t, ctx.Resolver == nil)
	be.True(t, ctx.Artifacts == nil)
}

func TestRun_StopsAfterTypeError(t *testing.T) {
	src := `module app/Main
fn main(): Int = "one"
`
	ctx := pipeline.New(stages(t)...).Run(pipeline.NewPipelineContext("main.sasq", src))
	be.Equal(t, ctx.Diagnostics.Count(diagnostics.TypeMismatch), 1)
	be.True(t, ctx.Artifacts == nil)
}

func TestRun_MissingImport(t *testing.T) {
	src := `module app/Main
import app/Nowhere
fn main(): Int = 0
`
	ctx := pipeline.New(stages(t)...).Run(pipeline.NewPipelineContext("main.sasq", src))
	be.Equal(t, ctx.Diagnostics.Count(diagnostics.UnresolvedName), 1)
	be.True(t, ctx.Checker == nil)
}

func TestRun_Halted(t *testing.T) {
	var ran []string
	step := func(name string, halt bool) pipeline.Processor {
		return pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			ran = append(ran, name)
			ctx.Halted = halt
			return ctx
		})
	}
	ctx := pipeline.New(step("a", false), step("b", true), step("c", false)).
		Run(pipeline.NewPipelineContext("x.sasq", ""))
	be.Equal(t, ran, []string{"a", "b"})
	be.True(t, ctx.Stopped())
}
