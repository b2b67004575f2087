package engine

import (
	"context"

	"github.com/matzehuels/linlog/pkg/core/graph"
)

// Batch is an open edit. Close it exactly once; further calls are no-ops.
type Batch struct {
	e      *Engine
	closed bool
}

// Batch opens an edit and returns its handle.
func (e *Engine) Batch() *Batch {
	e.BeginEdit()
	return &Batch{e: e}
}

// Close ends the edit. If this closes the outermost edit and a change was
// suppressed meanwhile, one relayout runs. Close reports whether it relaid
// out.
func (b *Batch) Close() bool {
	if b.closed {
		return false
	}
	b.closed = true
	b.e.EndEdit()
	if b.e.depth > 0 || !b.e.pending {
		return false
	}
	b.e.relayout(context.Background(), TriggerBatch)
	return true
}

// Edit runs fn inside a batch and returns its error. The batch is closed
// even if fn panics.
func (e *Engine) Edit(fn func(g *graph.Graph) error) error {
	b := e.Batch()
	defer b.Close()
	return fn(e.g)
}
