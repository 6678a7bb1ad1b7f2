package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/sasquach/internal/token"
)

// Stage identifies which compiler phase produced a diagnostic.
type Stage string

const (
	StageSyntax  Stage = "syntax"
	StageResolve Stage = "resolve"
	StageCheck   Stage = "check"
	StageCodegen Stage = "codegen"
	StageSession Stage = "session"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Kind is a stable identifier for a diagnostic.
type Kind string

const (
	SyntaxError Kind = "SyntaxError"

	// Resolution
	UnresolvedName             Kind = "UnresolvedName"
	UnresolvedForeignReference Kind = "UnresolvedForeignReference"
	DuplicateDefinition        Kind = "DuplicateDefinition"
	PrivateAccess              Kind = "PrivateAccess"
	InvalidRecur               Kind = "InvalidRecur"

	// Type checking
	TypeMismatch            Kind = "TypeMismatch"
	UnknownField            Kind = "UnknownField"
	MissingField            Kind = "MissingField"
	DuplicateField          Kind = "DuplicateField"
	NonExhaustiveMatch      Kind = "NonExhaustiveMatch"
	UnreachablePattern      Kind = "UnreachablePattern"
	CannotInferTypeArgument Kind = "CannotInferTypeArgument"
	NoApplicableOverload    Kind = "NoApplicableOverload"
	AmbiguousOverload       Kind = "AmbiguousOverload"
	InvalidArgumentLabel    Kind = "InvalidArgumentLabel"
	CyclicTypeAlias         Kind = "CyclicTypeAlias"

	// Internal compiler defect, never the user's fault.
	CodeGenError Kind = "CodeGenError"

	Skipped Kind = "Skipped"
)

var stageOf = map[Kind]Stage{
	SyntaxError:                StageSyntax,
	UnresolvedName:             StageResolve,
	UnresolvedForeignReference: StageResolve,
	DuplicateDefinition:        StageResolve,
	PrivateAccess:              StageResolve,
	InvalidRecur:               StageResolve,
	TypeMismatch:               StageCheck,
	UnknownField:               StageCheck,
	MissingField:               StageCheck,
	DuplicateField:             StageCheck,
	NonExhaustiveMatch:         StageCheck,
	UnreachablePattern:         StageCheck,
	CannotInferTypeArgument:    StageCheck,
	NoApplicableOverload:       StageCheck,
	AmbiguousOverload:          StageCheck,
	InvalidArgumentLabel:       StageCheck,
	CyclicTypeAlias:            StageCheck,
	CodeGenError:               StageCodegen,
	Skipped:                    StageSession,
}

// DefaultSeverity returns the severity a kind is reported with.
func (k Kind) DefaultSeverity() Severity {
	switch k {
	case UnreachablePattern:
		return SeverityWarning
	case Skipped:
		return SeverityNote
	default:
		return SeverityError
	}
}

func (k Kind) Stage() Stage {
	if s, ok := stageOf[k]; ok {
		return s
	}
	return StageSession
}

// Diagnostic is a compiler diagnostic surfaced to the user. It is never
// mutated after creation.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Stage    Stage
	Span     token.Span
	Message  string
}

func New(kind Kind, span token.Span, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Kind:     kind,
		Severity: kind.DefaultSeverity(),
		Stage:    kind.Stage(),
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	}
}

// NewError is New for call sites that hold a token rather than a span.
func NewError(kind Kind, tok token.Token, file string, format string, args ...interface{}) *Diagnostic {
	return New(kind, tok.Span(file), format, args...)
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s[%s]: %s", d.Span, d.Severity, d.Kind, d.Message)
}

func (d *Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// List is an ordered sequence of diagnostics for one compilation unit.
type List []*Diagnostic

func (l *List) Add(d *Diagnostic) {
	*l = append(*l, d)
}

func (l *List) Addf(kind Kind, span token.Span, format string, args ...interface{}) {
	l.Add(New(kind, span, format, args...))
}

func (l List) HasErrors() bool {
	for _, d := range l {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics of the given kind.
func (l List) Count(kind Kind) int {
	n := 0
	for _, d := range l {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Sort orders diagnostics by position, then kind, then message. Duplicates
// (same kind at the same position with the same message) are dropped.
func (l List) Sort() List {
	sorted := make(List, len(l))
	copy(sorted, l)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Span.File != b.Span.File || a.Span.Line != b.Span.Line || a.Span.Column != b.Span.Column {
			return a.Span.Before(b.Span)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Message < b.Message
	})
	out := sorted[:0]
	seen := make(map[string]bool)
	for _, d := range sorted {
		key := fmt.Sprintf("%s:%d:%d:%s:%s", d.Span.File, d.Span.Line, d.Span.Column, d.Kind, d.Message)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

func (l List) String() string {
	var sb strings.Builder
	for _, d := range l {
		sb.WriteString(d.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}
