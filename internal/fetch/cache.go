// Package fetch memoizes package metadata and bytecode for one generation
// run. Concurrent requests for the same package collapse into a single call
// to the underlying Source.
package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"suigen/internal/move"
)

// ErrEmptyPackage is returned for the empty (unresolvable) package id.
var ErrEmptyPackage = errors.New("empty package id")

// Source performs the actual network fetches.
type Source interface {
	NormalizedModules(ctx context.Context, id move.PackageID) (move.Package, error)
	Disassembled(ctx context.Context, id move.PackageID) (move.Bytecode, error)
}

// Stats counts calls issued to the Source.
type Stats struct {
	MetadataCalls int64
	BytecodeCalls int64
}

// Cache is a per-run memoizing Source. Entries are immutable once stored;
// failures are not stored.
type Cache struct {
	src Source

	mu       sync.RWMutex
	metadata map[move.PackageID]move.Package
	bytecode map[move.PackageID]move.Bytecode

	metaGroup singleflight.Group
	codeGroup singleflight.Group

	metaCalls atomic.Int64
	codeCalls atomic.Int64
}

// NewCache wraps src.
func NewCache(src Source) *Cache {
	return &Cache{
		src:      src,
		metadata: make(map[move.PackageID]move.Package),
		bytecode: make(map[move.PackageID]move.Bytecode),
	}
}

// Metadata returns the normalized modules of id.
func (c *Cache) Metadata(ctx context.Context, id move.PackageID) (move.Package, error) {
	return load(ctx, c, id, c.metadata, &c.metaGroup, func(ctx context.Context) (move.Package, error) {
		c.metaCalls.Add(1)
		return c.src.NormalizedModules(ctx, id)
	})
}

// Bytecode returns the disassembled modules of id.
func (c *Cache) Bytecode(ctx context.Context, id move.PackageID) (move.Bytecode, error) {
	return load(ctx, c, id, c.bytecode, &c.codeGroup, func(ctx context.Context) (move.Bytecode, error) {
		c.codeCalls.Add(1)
		return c.src.Disassembled(ctx, id)
	})
}

// Stats returns the number of calls issued to the Source so far.
func (c *Cache) Stats() Stats {
	return Stats{
		MetadataCalls: c.metaCalls.Load(),
		BytecodeCalls: c.codeCalls.Load(),
	}
}

func load[V any](
	ctx context.Context,
	c *Cache,
	id move.PackageID,
	store map[move.PackageID]V,
	group *singleflight.Group,
	call func(context.Context) (V, error),
) (V, error) {
	var zero V

	if id.IsZero() {
		return zero, ErrEmptyPackage
	}

	c.mu.RLock()
	v, ok := store[id]
	c.mu.RUnlock()

	if ok {
		return v, nil
	}

	ch := group.DoChan(string(id), func() (any, error) {
		c.mu.RLock()
		v, ok := store[id]
		c.mu.RUnlock()

		if ok {
			return v, nil
		}

		// The first caller's cancellation must not fail the waiters that
		// joined it.
		v, err := call(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		store[id] = v
		c.mu.Unlock()

		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}

		return res.Val.(V), nil
	}
}
