package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/sasquach/internal/diagnostics"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// useColor reports whether w is a terminal that should get ANSI colors.
func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printDiagnostics writes one line per diagnostic followed by a summary
// line when there are errors.
func printDiagnostics(w io.Writer, diags diagnostics.List, color bool) {
	errors := 0
	for _, d := range diags {
		if d.IsError() {
			errors++
		}
		severity := string(d.Severity)
		if color {
			severity = colorOf(d.Severity) + ansiBold + severity + ansiReset
		}
		fmt.Fprintf(w, "%s: %s[%s]: %s\n", d.Span, severity, d.Kind, d.Message)
	}
	switch {
	case errors == 1:
		fmt.Fprintln(w, "1 error")
	case errors > 1:
		fmt.Fprintf(w, "%d errors\n", errors)
	}
}

func colorOf(s diagnostics.Severity) string {
	switch s {
	case diagnostics.SeverityError:
		return ansiRed
	case diagnostics.SeverityWarning:
		return ansiYellow
	}
	return ansiCyan
}
