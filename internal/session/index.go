package session

import (
	"context"

	"github.com/funvibe/sasquach/internal/buildcache"
	"github.com/funvibe/sasquach/internal/symbols"
)

// entry is one module's slot in the cross-module index. Its facets are
// written by the module's own goroutine and published by closing the
// matching channel; after that they never change.
type entry struct {
	name    string
	file    string
	imports []string

	// Published by scopeReady.
	scope       *symbols.Scope
	scopeFailed bool

	// Published by signatures.
	digest     buildcache.Digest
	sigsFailed bool

	scopeReady chan struct{}
	signatures chan struct{}
	done       chan struct{}

	scopeClosed, sigsClosed, doneClosed bool
}

func newEntry(name, file string, imports []string) *entry {
	return &entry{
		name:       name,
		file:       file,
		imports:    imports,
		scopeReady: make(chan struct{}),
		signatures: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// failedEntry is an entry for a module that never got past parsing.
func failedEntry(name, file string) *entry {
	e := newEntry(name, file, nil)
	e.release()
	return e
}

// live reports whether the module can still be imported: it is being
// compiled or it published its scope. Dead entries may be replaced.
func (e *entry) live() bool {
	select {
	case <-e.done:
		return !e.scopeFailed
	default:
		return true
	}
}

func (e *entry) publishScope(scope *symbols.Scope) {
	e.scope = scope
	e.scopeClosed = true
	close(e.scopeReady)
}

func (e *entry) publishSignatures(digest buildcache.Digest) {
	e.digest = digest
	e.sigsClosed = true
	close(e.signatures)
}

// release closes every barrier not yet closed, marking the facets behind
// them as failed. Only the owning goroutine calls it.
func (e *entry) release() {
	if !e.scopeClosed {
		e.scopeFailed = true
		e.scopeClosed = true
		close(e.scopeReady)
	}
	if !e.sigsClosed {
		e.sigsFailed = true
		e.sigsClosed = true
		close(e.signatures)
	}
	if !e.doneClosed {
		e.doneClosed = true
		close(e.done)
	}
}

func wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
