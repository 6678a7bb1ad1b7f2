// Package session compiles sets of modules that may import each other.
//
// A Session owns everything that is shared between modules: symbol
// identities, the prelude, the foreign namespace and the index of published
// modules. Modules compile in parallel, one goroutine each, and synchronize
// only through the barriers of the index.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/funvibe/sasquach/internal/buildcache"
	"github.com/funvibe/sasquach/internal/codegen"
	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/pipeline"
	"github.com/funvibe/sasquach/internal/symbols"
)

// ErrClosed is returned by calls on a closed session.
var ErrClosed = errors.New("session closed")

// Options configure a session.
type Options struct {
	// Namespace resolves foreign classes. Nil means the built-in JDK index.
	Namespace foreign.Namespace

	// Cache, when set, lets unchanged modules skip code generation.
	Cache *buildcache.Cache
	// CacheSalt is mixed into every cache key. Set it to something that
	// changes with the foreign class configuration.
	CacheSalt string
}

// Source is one input file.
type Source struct {
	Path string
	Text string
}

type Status int

const (
	Compiled Status = iota
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Compiled:
		return "compiled"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// ModuleResult is the outcome for one input.
type ModuleResult struct {
	Name   string
	File   string
	Status Status
	// Cached is set when the classes came from the build cache.
	Cached bool
}

// Result is the outcome of one Compile call.
type Result struct {
	// Diagnostics in input order, then by position.
	Diagnostics diagnostics.List
	// Artifacts of every compiled module, sorted by class name.
	Artifacts []codegen.Artifact
	Modules   []ModuleResult
}

// Session is a compilation session. It is safe for concurrent use, but
// Compile calls are serialized.
type Session struct {
	ID uuid.UUID

	ids     *symbols.IDGen
	prelude *symbols.Scope
	ns      foreign.Namespace
	cache   *buildcache.Cache
	salt    string
	log     commonlog.Logger

	compileMu sync.Mutex

	mu     sync.Mutex
	index  map[string]*entry
	closed bool
}

// Open starts a session.
func Open(opts Options) (*Session, error) {
	ns := opts.Namespace
	if ns == nil {
		jdk, err := foreign.LoadJDK()
		if err != nil {
			return nil, fmt.Errorf("loading JDK index: %w", err)
		}
		ns = jdk
	}
	ids := &symbols.IDGen{}
	s := &Session{
		ID:      uuid.New(),
		ids:     ids,
		prelude: symbols.NewPrelude(ids),
		ns:      ns,
		cache:   opts.Cache,
		salt:    opts.CacheSalt,
		index:   make(map[string]*entry),
	}
	s.log = commonlog.GetLogger("sasquach.session." + s.ID.String()[:8])
	s.log.Debugf("opened session %s", s.ID)
	return s, nil
}

// Close ends the session. The index is dropped; the build cache belongs to
// the caller and stays open.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.index = nil
	s.log.Debugf("closed session %s", s.ID)
	return nil
}

// Modules lists the names of the modules published so far.
func (s *Session) Modules() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	names := make([]string, 0, len(s.index))
	for name := range s.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// unit is one module being compiled by the current Compile call.
type unit struct {
	ctx    *pipeline.PipelineContext
	entry  *entry
	status Status
}

// Compile compiles sources as one batch. Modules from earlier batches can
// be imported; defining a module name twice is a DuplicateDefinition.
// A returned error means the batch was abandoned (cancellation or a closed
// session); user errors are reported as diagnostics.
func (s *Session) Compile(ctx context.Context, sources []Source) (*Result, error) {
	s.compileMu.Lock()
	defer s.compileMu.Unlock()
	if s.isClosed() {
		return nil, ErrClosed
	}

	units := make([]*unit, len(sources))
	for i, src := range sources {
		pc := pipeline.NewPipelineContext(src.Path, src.Text)
		pc.Context = ctx
		units[i] = &unit{ctx: pc}
	}

	// Parse everything first so that every module name of the batch is in
	// the index before anyone waits on it.
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range units {
		g.Go(func() error {
			pipeline.New(pipeline.ParseProcessor{}).Run(u.ctx)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := s.register(units); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, u := range units {
		if u.entry == nil || u.ctx.Stopped() {
			continue
		}
		g.Go(func() error {
			defer u.entry.release()
			u.ctx.Context = gctx
			s.newPipeline(u).Run(u.ctx)
			return u.ctx.Err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s.collect(units), nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// register adds every parsed module to the index in input order.
func (s *Session) register(units []*unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, u := range units {
		name := u.ctx.ModuleName()
		if name == "" {
			continue
		}
		if prev, ok := s.index[name]; ok && prev.live() {
			u.ctx.Diagnostics.Addf(diagnostics.DuplicateDefinition, u.ctx.AstRoot.Span,
				"module %s is already defined in %s", name, prev.file)
			continue
		}
		if u.ctx.Failed() {
			// Importers see a module that failed before publishing.
			s.index[name] = failedEntry(name, u.ctx.FilePath)
			continue
		}
		var imports []string
		for _, imp := range u.ctx.AstRoot.Imports {
			imports = append(imports, imp.Path)
		}
		u.entry = newEntry(name, u.ctx.FilePath, imports)
		s.index[name] = u.entry
	}
	return nil
}

func (s *Session) lookup(name string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[name]
	return e, ok
}

// collect orders the diagnostics and artifacts of a finished batch.
func (s *Session) collect(units []*unit) *Result {
	res := &Result{}
	seen := make(map[string]bool)
	for _, u := range units {
		res.Diagnostics = append(res.Diagnostics, u.ctx.Diagnostics.Sort()...)
		mr := ModuleResult{Name: u.ctx.ModuleName(), File: u.ctx.FilePath, Cached: u.ctx.Cached}
		switch {
		case u.status == Skipped:
			mr.Status = Skipped
		case u.ctx.Stopped() || u.entry == nil:
			mr.Status = Failed
		default:
			mr.Status = Compiled
			for _, a := range u.ctx.Artifacts {
				if seen[a.Name] {
					if !strings.HasPrefix(a.Name, config.RuntimePackage+"/") {
						s.log.Warningf("class %s emitted twice", a.Name)
					}
					continue
				}
				seen[a.Name] = true
				res.Artifacts = append(res.Artifacts, a)
			}
		}
		res.Modules = append(res.Modules, mr)
	}
	sort.Slice(res.Artifacts, func(i, j int) bool { return res.Artifacts[i].Name < res.Artifacts[j].Name })
	return res
}
