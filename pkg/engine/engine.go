// Package engine keeps a layout in step with a mutable graph.
//
// An [Engine] subscribes to a [graph.Graph]. Each added edge triggers a
// relayout: the graph is symmetrized, laid out and clustered, and the
// result is published to registered layout listeners.
//
// # Edit batching
//
// Bulk edits would otherwise relayout once per edge. While an edit is
// open (depth > 0) change notifications are suppressed: they are counted
// but neither queued nor forwarded. The low-level pair is [Engine.BeginEdit]
// and [Engine.EndEdit] followed by a manual [Engine.Notify]. The scoped form
// does the flush itself:
//
//	err := e.Edit(func(g *graph.Graph) error {
//	    for _, edge := range edges {
//	        if err := g.Link(edge.From, edge.To); err != nil {
//	            return err
//	        }
//	    }
//	    return nil
//	})
//
// When the outermost batch closes and at least one change was suppressed,
// exactly one relayout runs, whether fn returned normally, returned an
// error or panicked.
//
// An Engine is not safe for concurrent use. Callers that share one, such as
// API sessions, must serialize access.
package engine

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linlog/pkg/core/cluster"
	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/core/layout"
	graphio "github.com/matzehuels/linlog/pkg/io"
	"github.com/matzehuels/linlog/pkg/observability"
	"github.com/matzehuels/linlog/pkg/pipeline"
)

// Relayout triggers, as reported to listeners and metrics.
const (
	TriggerEdge   = "edge"
	TriggerBatch  = "batch"
	TriggerManual = "manual"
)

// Snapshot is the state published after a relayout. Its maps are owned by
// the snapshot and must be treated as read-only by listeners.
type Snapshot struct {
	ID         string
	Seq        uint64 // 1 for the first relayout, 0 before any
	Trigger    string
	Dimensions int

	Nodes      []graph.Node
	Edges      []graph.Edge
	Positions  layout.Positions
	Clusters   cluster.Assignment
	Modularity float64
	Energy     float64
}

// Layout converts s into its serialized form.
func (s Snapshot) Layout() graphio.Layout {
	l := graphio.NewLayout(s.Nodes, s.Edges, s.Positions, s.Clusters)
	l.ID = s.ID
	l.Dimensions = s.Dimensions
	l.Energy = s.Energy
	l.Modularity = s.Modularity
	return l
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Engine relays out a graph whenever it changes.
type Engine struct {
	g      *graph.Graph
	opts   pipeline.Options
	logger *log.Logger

	unsubscribe func()

	depth      int
	pending    bool // a change was suppressed since the last relayout
	suppressed int
	relayouts  int

	last        Snapshot
	subscribers []subscriber
	nextID      int
}

// New attaches an engine to g. No layout is computed until the first
// forwarded change or [Engine.Notify].
func New(g *graph.Graph, opts pipeline.Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{g: g, opts: opts, logger: logger}
	e.unsubscribe = g.Subscribe(e)
	return e
}

// Close detaches the engine from its graph.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// Graph returns the graph the engine follows.
func (e *Engine) Graph() *graph.Graph { return e.g }

// Options returns the layout options.
func (e *Engine) Options() pipeline.Options { return e.opts }

// BeginEdit opens an edit. Edits nest.
func (e *Engine) BeginEdit() {
	e.depth++
}

// EndEdit closes an edit. Unbalanced calls leave the depth at 0. EndEdit
// never relays out by itself; call [Engine.Notify] afterwards or use
// [Engine.Batch].
func (e *Engine) EndEdit() {
	if e.depth > 0 {
		e.depth--
	}
}

// Depth returns the number of open edits.
func (e *Engine) Depth() int { return e.depth }

// GraphChanged implements [graph.Listener]. At depth 0 an added edge
// triggers a relayout and an added node is only recorded; inside an edit
// every change is suppressed.
func (e *Engine) GraphChanged(_ *graph.Graph, c graph.Change) {
	ctx := context.Background()
	if e.depth > 0 {
		e.suppressed++
		e.pending = true
		observability.Edit().OnChange(ctx, c.Kind.String(), true)
		return
	}
	observability.Edit().OnChange(ctx, c.Kind.String(), false)
	if c.Kind == graph.EdgeAdded {
		e.relayout(ctx, TriggerEdge)
	}
}

// Notify relays out unconditionally and returns the new snapshot.
func (e *Engine) Notify() Snapshot {
	return e.relayout(context.Background(), TriggerManual)
}

// Suppressed returns how many changes have been suppressed so far.
func (e *Engine) Suppressed() int { return e.suppressed }

// Relayouts returns how many relayouts have run.
func (e *Engine) Relayouts() int { return e.relayouts }

func (e *Engine) relayout(ctx context.Context, trigger string) Snapshot {
	start := time.Now()
	res := pipeline.Compute(ctx, e.g.Adjacency(), e.last.Positions, e.opts)

	e.relayouts++
	e.pending = false
	e.last = Snapshot{
		ID:         res.ID,
		Seq:        e.last.Seq + 1,
		Trigger:    trigger,
		Dimensions: res.Dimensions,
		Nodes:      res.Nodes,
		Edges:      res.Edges,
		Positions:  res.Positions,
		Clusters:   res.Clusters,
		Modularity: res.Modularity,
		Energy:     res.Energy,
	}
	duration := time.Since(start)
	observability.Edit().OnRelayout(ctx, trigger, duration)
	e.logger.Debug("relayout",
		"trigger", trigger,
		"seq", e.last.Seq,
		"nodes", len(res.Nodes),
		"clusters", res.Clusters.Count(),
		"duration", duration)

	snap := e.Snapshot()
	subs := append([]subscriber(nil), e.subscribers...)
	for _, s := range subs {
		s.fn(snap)
	}
	return snap
}

// Snapshot returns a copy of the latest published state.
func (e *Engine) Snapshot() Snapshot {
	s := e.last
	s.Positions = e.Positions()
	s.Clusters = e.Clusters()
	return s
}

// Positions returns a copy of the latest node positions.
func (e *Engine) Positions() layout.Positions {
	if e.last.Positions == nil {
		return layout.Positions{}
	}
	return e.last.Positions.Clone()
}

// Clusters returns a copy of the latest cluster assignment.
func (e *Engine) Clusters() cluster.Assignment {
	a := make(cluster.Assignment, len(e.last.Clusters))
	for k, v := range e.last.Clusters {
		a[k] = v
	}
	return a
}

// OnLayout registers fn to receive every snapshot after a relayout.
// Listeners run synchronously in registration order. cancel removes fn.
func (e *Engine) OnLayout(fn func(Snapshot)) (cancel func()) {
	id := e.nextID
	e.nextID++
	e.subscribers = append(e.subscribers, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range e.subscribers {
			if s.id == id {
				e.subscribers = append(e.subscribers[:i:i], e.subscribers[i+1:]...)
				return
			}
		}
	}
}

var _ graph.Listener = (*Engine)(nil)
