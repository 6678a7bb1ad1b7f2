// Package backend writes generated class files to their destination.
// This allows switching between a class directory and a jar.
package backend

import (
	"github.com/funvibe/sasquach/internal/codegen"
)

// Sink is the interface for artifact destinations
type Sink interface {
	// Write stores every artifact. Artifacts are named by internal class
	// name and end up at <name>.class.
	Write(artifacts []codegen.Artifact) error

	// Name returns the destination for display
	Name() string
}

// ClassPath is the path of an artifact inside a class directory or jar.
func ClassPath(a codegen.Artifact) string {
	return a.Name + ".class"
}
