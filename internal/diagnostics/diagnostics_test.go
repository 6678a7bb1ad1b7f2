package diagnostics_test

import (
	"testing"

	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/token"
	"github.com/nalgeon/be"
)

func at(file string, line, col int) token.Span {
	return token.Span{File: file, Line: line, Column: col, EndLine: line, EndColumn: col + 1}
}

func TestKindDefaults(t *testing.T) {
	be.Equal(t, diagnostics.TypeMismatch.DefaultSeverity(), diagnostics.SeverityError)
	be.Equal(t, diagnostics.UnreachablePattern.DefaultSeverity(), diagnostics.SeverityWarning)
	be.Equal(t, diagnostics.Skipped.DefaultSeverity(), diagnostics.SeverityNote)
	be.Equal(t, diagnostics.PrivateAccess.Stage(), diagnostics.StageResolve)
	be.Equal(t, diagnostics.CodeGenError.Stage(), diagnostics.StageCodegen)
	be.Equal(t, diagnostics.Kind("Whatever").Stage(), diagnostics.StageSession)
}

func TestDiagnosticError(t *testing.T) {
	d := diagnostics.New(diagnostics.UnresolvedName, at("a.sasq", 3, 7), "cannot find %q", "x")
	be.Equal(t, d.Error(), `a.sasq:3:7: error[UnresolvedName]: cannot find "x"`)
	be.True(t, d.IsError())

	tok := token.Token{Type: token.IDENT_LOWER, Lexeme: "y", Line: 1, Column: 2, EndLine: 1, EndColumn: 3}
	d = diagnostics.NewError(diagnostics.SyntaxError, tok, "b.sasq", "unexpected %s", tok.Lexeme)
	be.Equal(t, d.Span.String(), "b.sasq:1:2")
	be.Equal(t, d.Stage, diagnostics.StageSyntax)
}

func TestList_HasErrorsIgnoresWarnings(t *testing.T) {
	var l diagnostics.List
	be.True(t, !l.HasErrors())
	l.Addf(diagnostics.UnreachablePattern, at("a", 1, 1), "arm never matches")
	be.True(t, !l.HasErrors())
	l.Addf(diagnostics.TypeMismatch, at("a", 2, 1), "expected Int")
	be.True(t, l.HasErrors())
	be.Equal(t, l.Count(diagnostics.TypeMismatch), 1)
}

func TestList_SortOrdersAndDeduplicates(t *testing.T) {
	var l diagnostics.List
	l.Addf(diagnostics.TypeMismatch, at("b", 1, 1), "z")
	l.Addf(diagnostics.UnresolvedName, at("a", 2, 5), "y")
	l.Addf(diagnostics.MissingField, at("a", 2, 5), "y")
	l.Addf(diagnostics.UnresolvedName, at("a", 2, 5), "y")
	l.Addf(diagnostics.TypeMismatch, at("a", 1, 9), "x")

	sorted := l.Sort()
	be.Equal(t, len(sorted), 4)
	be.Equal(t, sorted.String(), "a:1:9: error[TypeMismatch]: x\n"+
		"a:2:5: error[MissingField]: y\n"+
		"a:2:5: error[UnresolvedName]: y\n"+
		"b:1:1: error[TypeMismatch]: z\n")
	// The receiver is left untouched.
	be.Equal(t, len(l), 5)
	be.Equal(t, l[0].Message, "z")
}
