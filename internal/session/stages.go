package session

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/buildcache"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/pipeline"
	"github.com/funvibe/sasquach/internal/symbols"
)

// newPipeline returns the stages after parsing, with the index barriers
// between them. Every module publishes a facet before it waits for the same
// facet of its imports, so import cycles cannot deadlock.
func (s *Session) newPipeline(u *unit) *pipeline.Pipeline {
	var key *buildcache.Digest
	return pipeline.New(
		pipeline.DeclareProcessor{Prelude: s.prelude, IDs: s.ids, Namespace: s.ns},
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			u.entry.publishScope(ctx.Resolver.Scope())
			return ctx
		}),
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			return s.waitImports(u, ctx, false)
		}),
		pipeline.ResolveProcessor{},
		pipeline.ElaborateProcessor{Namespace: s.ns},
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			digest, err := buildcache.InterfaceDigest(u.entry.name, ctx.Resolver.Scope(), nil)
			if err != nil {
				s.log.Warningf("%s", err)
			}
			u.entry.publishSignatures(digest)
			return ctx
		}),
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			return s.waitImports(u, ctx, true)
		}),
		pipeline.CheckProcessor{},
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			key = s.lookupCache(u, ctx)
			return ctx
		}),
		pipeline.GenerateProcessor{},
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			s.storeCache(u, ctx, key)
			return ctx
		}),
	)
}

// waitImports blocks until every import has published its scope, or its
// signatures when sigs is set. An import that failed before publishing
// skips this module.
func (s *Session) waitImports(u *unit, ctx *pipeline.PipelineContext, sigs bool) *pipeline.PipelineContext {
	if !sigs {
		ctx.Imports = make(map[string]*symbols.Scope)
	}
	for _, imp := range ctx.AstRoot.Imports {
		e, ok := s.lookup(imp.Path)
		if !ok {
			// The resolver reports it at the import.
			continue
		}
		barrier := e.scopeReady
		if sigs {
			barrier = e.signatures
		}
		if err := wait(ctx.Context, barrier); err != nil {
			ctx.Err = err
			return ctx
		}
		if e.scopeFailed || (sigs && e.sigsFailed) {
			s.skip(u, ctx, imp)
			return ctx
		}
		if !sigs {
			ctx.Imports[imp.Path] = e.scope
		}
	}
	return ctx
}

func (s *Session) skip(u *unit, ctx *pipeline.PipelineContext, imp *ast.Import) {
	ctx.Diagnostics.Addf(diagnostics.Skipped, imp.Span,
		"module %s not compiled: imported module %s has errors", u.entry.name, imp.Path)
	ctx.Halted = true
	u.status = Skipped
	s.log.Infof("skipping %s: import %s failed", u.entry.name, imp.Path)
}

// cacheKey hashes the module source with the interfaces of everything it
// imports, directly or not. ok is false when some import has no interface.
func (s *Session) cacheKey(u *unit, ctx *pipeline.PipelineContext) (buildcache.Digest, bool) {
	var digests []buildcache.Digest
	seen := map[string]bool{u.entry.name: true}
	queue := append([]string(nil), u.entry.imports...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		e, ok := s.lookup(name)
		if !ok {
			return buildcache.Digest{}, false
		}
		if err := wait(ctx.Context, e.signatures); err != nil || e.sigsFailed {
			return buildcache.Digest{}, false
		}
		digests = append(digests, e.digest)
		queue = append(queue, e.imports...)
	}
	return buildcache.ModuleKey(s.salt, ctx.Source, digests), true
}

func (s *Session) lookupCache(u *unit, ctx *pipeline.PipelineContext) *buildcache.Digest {
	if s.cache == nil {
		return nil
	}
	key, ok := s.cacheKey(u, ctx)
	if !ok {
		return nil
	}
	artifacts, hit, err := s.cache.Get(key)
	if err != nil {
		s.log.Warningf("build cache: %s", err)
		return nil
	}
	if hit {
		s.log.Debugf("%s: cache hit %s", u.entry.name, key)
		ctx.Artifacts = artifacts
		ctx.Cached = true
	}
	return &key
}

func (s *Session) storeCache(u *unit, ctx *pipeline.PipelineContext, key *buildcache.Digest) {
	if key == nil || ctx.Cached {
		return
	}
	if err := s.cache.Put(*key, u.entry.name, ctx.Artifacts); err != nil {
		s.log.Warningf("build cache: %s", err)
		return
	}
	if n, err := s.cache.Prune(u.entry.name, *key); err == nil && n > 0 {
		s.log.Debugf("%s: pruned %d stale cache entries", u.entry.name, n)
	}
}
