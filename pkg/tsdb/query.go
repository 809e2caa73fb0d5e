package tsdb

import (
	"github.com/grafana/tsdb/pkg/metrics"
	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
)

// Aggregation is a summary over a contiguous timespan: the reduced Metrics,
// its observation Count, and the TimeSpan it covers. It is the unit
// returned by a coarse-grained range query, one per remaining frontier
// node.
type Aggregation[V any] struct {
	Metrics metrics.Metrics[V]
	Count   int64
	Span    timebase.Span
}

func newAggregation[V any](m metrics.Metrics[V]) Aggregation[V] {
	return Aggregation[V]{Metrics: m, Count: m.Count(), Span: m.Span()}
}

// QueryResult is the discriminated union a range query returns: either raw
// Observations (the frontier reached leaf level) or Aggregations (the
// frontier stopped at some internal level because the point budget was
// already met). Exactly one of the two fields is non-nil.
type QueryResult[V any] struct {
	Observations []observation.Observation[V]
	Aggregations []Aggregation[V]
}

// IsObservations reports whether the result carries raw observations.
func (r QueryResult[V]) IsObservations() bool { return r.Observations != nil }

// QueryRange returns either raw observations or per-node aggregates
// covering span, using at least min(minPoints, observations-in-span)
// primitives when aggregation can still be refined. The frontier starts at
// the children of the root (or at the root itself, if the root is a leaf)
// and is enhanced — each internal frontier node replaced by its children,
// restricted to span at the two extremal positions — until either the
// point budget is met or the frontier reaches leaf level.
func (t *Tree[V]) QueryRange(span timebase.Span, minPoints int) QueryResult[V] {
	if t.root == nil {
		return QueryResult[V]{Observations: []observation.Observation[V]{}}
	}

	var frontier []treeNode[V]
	switch root := t.root.(type) {
	case *leafNode[V]:
		frontier = []treeNode[V]{root}
	case *internalNode[V]:
		frontier = overlappingChildren(root.children, span)
	}

	for allInternal(frontier) && len(frontier) < minPoints {
		next := enhanceFrontier(frontier, span)
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	if allLeaves(frontier) {
		return QueryResult[V]{Observations: collectFrontierObservations(frontier, span)}
	}
	return QueryResult[V]{Aggregations: collectFrontierAggregations(frontier)}
}

func overlappingChildren[V any](children []treeNode[V], span timebase.Span) []treeNode[V] {
	out := make([]treeNode[V], 0, len(children))
	for _, c := range children {
		if c.Span().Overlap(span) {
			out = append(out, c)
		}
	}
	return out
}

func allInternal[V any](frontier []treeNode[V]) bool {
	if len(frontier) == 0 {
		return false
	}
	for _, n := range frontier {
		if _, ok := n.(*internalNode[V]); !ok {
			return false
		}
	}
	return true
}

func allLeaves[V any](frontier []treeNode[V]) bool {
	for _, n := range frontier {
		if _, ok := n.(*leafNode[V]); !ok {
			return false
		}
	}
	return true
}

// enhanceFrontier replaces each internal frontier node with its children:
// the first and last frontier positions are restricted to children
// overlapping span, middle positions (wholly inside span by construction)
// expand to every child.
func enhanceFrontier[V any](frontier []treeNode[V], span timebase.Span) []treeNode[V] {
	out := make([]treeNode[V], 0, len(frontier)*InternalFanout)
	last := len(frontier) - 1
	for i, n := range frontier {
		internal, ok := n.(*internalNode[V])
		if !ok {
			out = append(out, n)
			continue
		}
		if i == 0 || i == last {
			out = append(out, overlappingChildren(internal.children, span)...)
		} else {
			out = append(out, internal.children...)
		}
	}
	return out
}

func collectFrontierAggregations[V any](frontier []treeNode[V]) []Aggregation[V] {
	out := make([]Aggregation[V], 0, len(frontier))
	for _, n := range frontier {
		out = append(out, newAggregation(n.Metrics().Clone()))
	}
	return out
}

func collectFrontierObservations[V any](frontier []treeNode[V], span timebase.Span) []observation.Observation[V] {
	out := make([]observation.Observation[V], 0)
	last := len(frontier) - 1
	for i, n := range frontier {
		leaf := n.(*leafNode[V])
		if i == 0 || i == last {
			for _, obs := range leaf.observations {
				if span.Contains(obs.Timestamp) {
					out = append(out, obs)
				}
			}
		} else {
			out = append(out, leaf.observations...)
		}
	}
	return out
}
