package resolve

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"suigen/internal/diagnostic"
	"suigen/internal/extract"
	"suigen/internal/move"
)

// DefaultConcurrency is the worker count used when none is configured.
const DefaultConcurrency = 8

// Fetcher provides package metadata and bytecode. Implementations are
// expected to memoize; fetch.Cache does.
type Fetcher interface {
	Metadata(ctx context.Context, id move.PackageID) (move.Package, error)
	Bytecode(ctx context.Context, id move.PackageID) (move.Bytecode, error)
}

// Result is the outcome of one resolution run.
type Result struct {
	// Package is the root package id (empty when Resolve was called directly).
	Package move.PackageID
	// Metadata is the root package metadata.
	Metadata move.Package
	// Events are the detected event structs, sorted.
	Events []move.EventRef
	// Imports is the root package use-map.
	Imports map[string]move.PackageID
	// Resolved holds every declaration found.
	Resolved move.ResolvedSet
	// Visited holds every key considered, resolved or not.
	Visited map[move.QualifiedKey]struct{}
	// Diagnostics collects non-fatal findings.
	Diagnostics *diagnostic.Diagnostics
}

// Unresolved returns the visited keys that did not resolve, sorted.
func (r *Result) Unresolved() []move.QualifiedKey {
	var out []move.QualifiedKey

	for k := range r.Visited {
		if _, ok := r.Resolved[k]; !ok {
			out = append(out, k)
		}
	}

	move.SortKeys(out)

	return out
}

// Resolver walks declaration graphs.
type Resolver struct {
	fetcher     Fetcher
	logger      *zap.Logger
	concurrency int
	maxNodes    int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithConcurrency bounds the number of concurrent expansion workers.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithMaxNodes caps the number of expanded declarations; 0 means unlimited.
func WithMaxNodes(n int) Option {
	return func(r *Resolver) {
		if n >= 0 {
			r.maxNodes = n
		}
	}
}

// New creates a Resolver.
func New(fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:     fetcher,
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run fetches the root package, detects its events and resolves them.
// Failure to fetch or decode the root package is fatal.
func (r *Resolver) Run(ctx context.Context, root move.PackageID) (*Result, error) {
	if root.IsZero() {
		return nil, fmt.Errorf("root package: %w", move.ErrMalformedMetadata)
	}

	var (
		meta move.Package
		code move.Bytecode
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		meta, err = r.fetcher.Metadata(gctx, root)
		if err != nil {
			return fmt.Errorf("fetch metadata of root package %s: %w", root, err)
		}

		return nil
	})

	g.Go(func() error {
		var err error

		code, err = r.fetcher.Bytecode(gctx, root)
		if err != nil {
			return fmt.Errorf("fetch bytecode of root package %s: %w", root, err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	events := extract.Events(code, meta)

	r.logger.Info("detected events",
		zap.String("package", root.String()),
		zap.Int("modules", len(meta)),
		zap.Int("events", len(events)),
	)

	res, err := r.Resolve(ctx, meta, events)
	if err != nil {
		return nil, err
	}

	res.Package = root
	res.Imports = extract.Imports(code)

	return res, nil
}

// Resolve computes the closure of events. Each event is first looked up in
// rootMeta.
func (r *Resolver) Resolve(ctx context.Context, rootMeta move.Package, events []move.EventRef) (*Result, error) {
	c := newCoordinator(r)

	for _, ev := range events {
		r.logger.Debug("event detected", zap.String("event", ev.QualifiedType()))
		c.needs(task{key: ev.Key(), local: rootMeta, localID: ev.Package})
	}

	if err := c.run(ctx); err != nil {
		return nil, err
	}

	r.logger.Info("resolution finished",
		zap.Int("resolved", len(c.resolved)),
		zap.Int("visited", len(c.visited)),
		zap.Int("warnings", len(c.diags.Warnings())),
	)

	return &Result{
		Metadata:    rootMeta,
		Events:      events,
		Resolved:    c.resolved,
		Visited:     c.visited,
		Diagnostics: c.diags,
	}, nil
}
