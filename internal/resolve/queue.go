package resolve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"suigen/internal/diagnostic"
	"suigen/internal/move"
)

// task asks for one key to be expanded. local is the metadata the key is
// looked up in first; localID is the package that metadata belongs to.
type task struct {
	key     move.QualifiedKey
	local   move.Package
	localID move.PackageID
	origin  string
}

// outcome is what a worker reports back for a task.
type outcome struct {
	task     task
	def      move.Definition
	found    bool
	children []task
}

// coordinator owns the visited and resolved sets. Only the goroutine
// running run mutates them.
type coordinator struct {
	r        *Resolver
	pending  []task
	visited  map[move.QualifiedKey]struct{}
	resolved move.ResolvedSet
	expanded int
	diags    *diagnostic.Diagnostics
}

func newCoordinator(r *Resolver) *coordinator {
	return &coordinator{
		r:        r,
		visited:  make(map[move.QualifiedKey]struct{}),
		resolved: make(move.ResolvedSet),
		diags:    diagnostic.New(),
	}
}

// needs marks t's key visited and queues it, unless it was seen before or
// the node cap is reached.
func (c *coordinator) needs(t task) {
	if _, seen := c.visited[t.key]; seen {
		return
	}

	c.visited[t.key] = struct{}{}

	if c.r.maxNodes > 0 && c.expanded >= c.r.maxNodes {
		c.r.logger.Warn("node limit reached", zap.String("key", t.key.String()), zap.Int("max_nodes", c.r.maxNodes))
		c.diags.AddWarning(diagnostic.CodeNodeLimit,
			fmt.Sprintf("not expanded: node limit %d reached", c.r.maxNodes), t.key.String(), t.origin)

		return
	}

	c.expanded++
	c.pending = append(c.pending, t)
}

// next pops the oldest pending task.
func (c *coordinator) next() (task, bool) {
	if len(c.pending) == 0 {
		return task{}, false
	}

	t := c.pending[0]
	c.pending = c.pending[1:]

	return t, true
}

// done records an outcome and queues its children.
func (c *coordinator) done(o outcome) {
	if o.found {
		if _, exists := c.resolved[o.task.key]; !exists {
			c.resolved[o.task.key] = o.def
		}
	}

	for _, child := range o.children {
		c.needs(child)
	}
}

// run drains the queue with at most r.concurrency tasks in flight. On
// cancellation it stops dispatching, waits for in-flight tasks and returns
// the context error.
func (c *coordinator) run(ctx context.Context) error {
	results := make(chan outcome, c.r.concurrency)
	inflight := 0

	for {
		for inflight < c.r.concurrency && ctx.Err() == nil {
			t, ok := c.next()
			if !ok {
				break
			}

			inflight++

			go func(t task) {
				results <- c.r.expand(ctx, t, c.diags)
			}(t)
		}

		if inflight == 0 {
			break
		}

		o := <-results
		inflight--

		if ctx.Err() == nil {
			c.done(o)
		}
	}

	return ctx.Err()
}
