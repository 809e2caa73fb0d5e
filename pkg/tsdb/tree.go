package tsdb

import (
	"github.com/grafana/tsdb/pkg/metrics"
	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
)

const (
	// LeafFanout (L) bounds the number of observations held directly by a
	// leaf node.
	LeafFanout = 16
	// InternalFanout (B) bounds the number of children held by an internal
	// node.
	InternalFanout = 5
)

// MetricsFactory builds a fresh Metrics accumulator seeded with one
// observation; it is how the tree stays generic over value kind without
// runtime virtual dispatch on the append hot path.
type MetricsFactory[V any] func(observation.Observation[V]) metrics.Metrics[V]

// treeNode is implemented by leafNode and internalNode.
type treeNode[V any] interface {
	Span() timebase.Span
	Count() int64
	Metrics() metrics.Metrics[V]
}

type leafNode[V any] struct {
	observations []observation.Observation[V]
	agg          metrics.Metrics[V]
}

func (n *leafNode[V]) Span() timebase.Span       { return n.agg.Span() }
func (n *leafNode[V]) Count() int64              { return n.agg.Count() }
func (n *leafNode[V]) Metrics() metrics.Metrics[V] { return n.agg }
func (n *leafNode[V]) full() bool                { return len(n.observations) >= LeafFanout }

type internalNode[V any] struct {
	children []treeNode[V]
	agg      metrics.Metrics[V]
}

func (n *internalNode[V]) Span() timebase.Span       { return n.agg.Span() }
func (n *internalNode[V]) Count() int64              { return n.agg.Count() }
func (n *internalNode[V]) Metrics() metrics.Metrics[V] { return n.agg }
func (n *internalNode[V]) full() bool                { return len(n.children) >= InternalFanout }

// Tree is a bounded-fanout, time-ordered aggregation tree: a B+-like
// structure indexed by insertion order (equivalently by time, since
// observations are appended in non-decreasing timestamp order). Every node
// caches the reduction of its subtree's observations so that range queries
// and summaries run in sub-linear time.
type Tree[V any] struct {
	root       treeNode[V]
	newMetrics MetricsFactory[V]
}

// NewTree constructs an empty tree. newMetrics seeds a fresh per-value-kind
// Metrics accumulator from the first observation of a new node.
func NewTree[V any](newMetrics MetricsFactory[V]) *Tree[V] {
	return &Tree[V]{newMetrics: newMetrics}
}

// Len reports the total number of observations stored.
func (t *Tree[V]) Len() int64 {
	if t.root == nil {
		return 0
	}
	return t.root.Count()
}

// Span reports the timespan covered by all stored observations. The second
// return is false for an empty tree.
func (t *Tree[V]) Span() (timebase.Span, bool) {
	if t.root == nil {
		return timebase.Span{}, false
	}
	return t.root.Span(), true
}

// Append inserts one observation. Callers are responsible for enforcing the
// non-decreasing timestamp invariant (the database layer applies the
// rewind-backup policy before calling Append).
func (t *Tree[V]) Append(obs observation.Observation[V]) {
	if t.root == nil {
		t.root = &leafNode[V]{
			observations: []observation.Observation[V]{obs},
			agg:          t.newMetrics(obs),
		}
		return
	}

	sibling, split := t.appendNode(t.root, obs)
	if !split {
		return
	}

	newRoot := &internalNode[V]{children: []treeNode[V]{t.root, sibling}}
	newRoot.agg = t.root.Metrics().Clone()
	newRoot.agg.Merge(sibling.Metrics())
	t.root = newRoot
}

// appendNode recurses into the rightmost child that may still accept the
// observation. It returns (sibling, true) when the recursion created a new
// right-sibling node that the caller must link in (possibly causing a
// further split at the caller's level).
func (t *Tree[V]) appendNode(node treeNode[V], obs observation.Observation[V]) (treeNode[V], bool) {
	switch n := node.(type) {
	case *leafNode[V]:
		if !n.full() {
			n.observations = append(n.observations, obs)
			n.agg.Include(obs)
			return nil, false
		}
		sibling := &leafNode[V]{
			observations: []observation.Observation[V]{obs},
			agg:          t.newMetrics(obs),
		}
		return sibling, true

	case *internalNode[V]:
		last := n.children[len(n.children)-1]
		sibling, split := t.appendNode(last, obs)
		if !split {
			n.agg.Include(obs)
			return nil, false
		}
		if !n.full() {
			n.children = append(n.children, sibling)
			n.agg.Merge(sibling.Metrics())
			return nil, false
		}
		newSibling := &internalNode[V]{children: []treeNode[V]{sibling}}
		newSibling.agg = sibling.Metrics().Clone()
		return newSibling, true

	default:
		panic("tsdb: unknown tree node type")
	}
}

// ToSlice dumps every stored observation in time order. Used for full
// export.
func (t *Tree[V]) ToSlice() []observation.Observation[V] {
	if t.root == nil {
		return nil
	}
	out := make([]observation.Observation[V], 0, t.Len())
	collectObservations(t.root, &out)
	return out
}

func collectObservations[V any](node treeNode[V], out *[]observation.Observation[V]) {
	switch n := node.(type) {
	case *leafNode[V]:
		*out = append(*out, n.observations...)
	case *internalNode[V]:
		for _, c := range n.children {
			collectObservations(c, out)
		}
	}
}

// RangeSummary computes an aggregate over span, descending only where a
// node's timespan is not fully covered by span. It reports ok=false only
// when no observation lies in span.
func (t *Tree[V]) RangeSummary(span timebase.Span) (metrics.Metrics[V], bool) {
	if t.root == nil {
		return nil, false
	}
	m := t.summarizeNode(t.root, span)
	return m, m != nil
}

func (t *Tree[V]) summarizeNode(node treeNode[V], span timebase.Span) metrics.Metrics[V] {
	if !node.Span().Overlap(span) {
		return nil
	}
	if span.Covers(node.Span()) {
		return node.Metrics().Clone()
	}

	switch n := node.(type) {
	case *leafNode[V]:
		var acc metrics.Metrics[V]
		for _, obs := range n.observations {
			if !span.Contains(obs.Timestamp) {
				continue
			}
			if acc == nil {
				acc = t.newMetrics(obs)
			} else {
				acc.Include(obs)
			}
		}
		return acc
	case *internalNode[V]:
		var acc metrics.Metrics[V]
		for _, c := range n.children {
			sub := t.summarizeNode(c, span)
			if sub == nil {
				continue
			}
			if acc == nil {
				acc = sub
			} else {
				acc.Merge(sub)
			}
		}
		return acc
	default:
		return nil
	}
}
