package tsdb

import (
	"github.com/grafana/tsdb/pkg/metrics"
	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
)

// QuickSummary is an O(1) snapshot maintained on every append: the total
// observation count and the most recently appended observation.
type QuickSummary[V any] struct {
	Count           int64
	LastObservation observation.Observation[V]
}

// Trace is a named owner of one aggregation tree for a single value kind,
// plus a cached QuickSummary kept consistent with the tree's root metrics.
type Trace[V any] struct {
	tree    *Tree[V]
	summary QuickSummary[V]
	hasData bool
}

// NewTrace constructs an empty trace for value kind V.
func NewTrace[V any](newMetrics MetricsFactory[V]) *Trace[V] {
	return &Trace[V]{tree: NewTree(newMetrics)}
}

// Append inserts one observation and refreshes the quick summary. Callers
// (the Database) are responsible for the non-decreasing timestamp
// invariant; Trace itself does not reject out-of-order appends, matching
// the B+-tree's append contract, which only ever extends the rightmost
// leaf.
func (t *Trace[V]) Append(obs observation.Observation[V]) {
	t.tree.Append(obs)
	t.summary.Count++
	t.summary.LastObservation = obs
	t.hasData = true
}

// AppendMany appends a batch of observations in order.
func (t *Trace[V]) AppendMany(obs []observation.Observation[V]) {
	for _, o := range obs {
		t.Append(o)
	}
}

// Query dispatches to the tree's range-query algorithm.
func (t *Trace[V]) Query(span timebase.Span, minPoints int) QueryResult[V] {
	return t.tree.QueryRange(span, minPoints)
}

// QuickSummary returns the O(1) cached summary. ok is false for an empty
// trace.
func (t *Trace[V]) QuickSummary() (QuickSummary[V], bool) {
	return t.summary, t.hasData
}

// Summary aggregates over the whole tree (span == nil) or a sub-range.
func (t *Trace[V]) Summary(span *timebase.Span) (Aggregation[V], bool) {
	if span == nil {
		full, ok := t.tree.Span()
		if !ok {
			return Aggregation[V]{}, false
		}
		m, ok := t.tree.RangeSummary(full)
		if !ok {
			return Aggregation[V]{}, false
		}
		return newAggregation(m), true
	}
	m, ok := t.tree.RangeSummary(*span)
	if !ok {
		return Aggregation[V]{}, false
	}
	return newAggregation(m), true
}

// ToSlice dumps every observation in time order, for export.
func (t *Trace[V]) ToSlice() []observation.Observation[V] {
	return t.tree.ToSlice()
}

// Len reports the total number of observations stored.
func (t *Trace[V]) Len() int64 {
	return t.tree.Len()
}

// Span reports the covered timespan; ok is false for an empty trace.
func (t *Trace[V]) Span() (timebase.Span, bool) {
	return t.tree.Span()
}

// sampleMetricsFactory and the count-metrics factories below are the
// MetricsFactory instances passed to NewTrace for each value kind.
func sampleMetricsFactory(obs observation.Observation[observation.Sample]) metrics.Metrics[observation.Sample] {
	return metrics.NewSampleMetrics(obs)
}

func textMetricsFactory(obs observation.Observation[observation.Text]) metrics.Metrics[observation.Text] {
	return metrics.NewCountMetrics[observation.Text](obs)
}

func profileMetricsFactory(obs observation.Observation[observation.ProfileEvent]) metrics.Metrics[observation.ProfileEvent] {
	return metrics.NewCountMetrics[observation.ProfileEvent](obs)
}
