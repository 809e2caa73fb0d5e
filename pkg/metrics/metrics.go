// Package metrics implements the per-value-kind aggregates stored at every
// node of the aggregation tree: SampleMetrics (Welford's online mean and
// variance) for scalar samples, and CountMetrics for text and profile
// events.
package metrics

import (
	"math"

	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
)

// Metrics is the capability every per-value-kind aggregate must provide so
// the aggregation tree can stay generic over value kind. Include folds one
// observation in; Merge combines two metrics computed over disjoint spans.
type Metrics[V any] interface {
	Include(obs observation.Observation[V])
	Merge(other Metrics[V])
	Count() int64
	Span() timebase.Span
	Clone() Metrics[V]
}

// SampleMetrics is the aggregate for Sample observations: min, max, first,
// last, running mean and variance (Welford's algorithm), and count.
type SampleMetrics struct {
	Min, Max     float64
	First, Last  float64
	mean, m2     float64
	count        int64
	span         timebase.Span
}

// NewSampleMetrics builds a SampleMetrics from a single observation.
func NewSampleMetrics(obs observation.Observation[observation.Sample]) *SampleMetrics {
	v := float64(obs.Value)
	return &SampleMetrics{
		Min: v, Max: v, First: v, Last: v,
		mean: v, m2: 0, count: 1,
		span: timebase.NewSpan(obs.Timestamp, obs.Timestamp),
	}
}

// FromValues builds a SampleMetrics by folding in a slice of plain values at
// timestamp 0 each; used by tests to validate Welford's formula against the
// direct mean/variance computation.
func FromValues(xs []float64) *SampleMetrics {
	if len(xs) == 0 {
		return nil
	}
	m := NewSampleMetrics(observation.New[observation.Sample](0, observation.Sample(xs[0])))
	for _, x := range xs[1:] {
		m.Include(observation.New[observation.Sample](0, observation.Sample(x)))
	}
	return m
}

// Include folds one observation into the running aggregate using Welford's
// online algorithm.
func (m *SampleMetrics) Include(obs observation.Observation[observation.Sample]) {
	v := float64(obs.Value)
	m.count++
	delta := v - m.mean
	m.mean += delta / float64(m.count)
	delta2 := v - m.mean
	m.m2 += delta * delta2

	if v < m.Min {
		m.Min = v
	}
	if v > m.Max {
		m.Max = v
	}
	m.Last = v
	m.span = m.span.ExtendToInclude(obs.Timestamp)
}

// Merge combines two independently-accumulated SampleMetrics using the
// parallel-combination formula, so that merging is lossless: the result is
// identical (within floating-point tolerance) to folding every underlying
// observation into one accumulator in timestamp order.
func (m *SampleMetrics) Merge(other Metrics[observation.Sample]) {
	o, ok := other.(*SampleMetrics)
	if !ok || o.count == 0 {
		return
	}
	if m.count == 0 {
		*m = *o
		return
	}

	na, nb := float64(m.count), float64(o.count)
	delta := o.mean - m.mean
	newCount := na + nb
	newMean := m.mean + delta*nb/newCount
	newM2 := m.m2 + o.m2 + delta*delta*na*nb/newCount

	m.mean = newMean
	m.m2 = newM2
	m.count = int64(newCount)

	if o.Min < m.Min {
		m.Min = o.Min
	}
	if o.Max > m.Max {
		m.Max = o.Max
	}
	// First/Last follow time order: whichever aggregate covers the earlier
	// span contributes First, the later span contributes Last.
	if o.span.Start < m.span.Start {
		m.First = o.First
	}
	if o.span.End > m.span.End {
		m.Last = o.Last
	}
	m.span = m.span.Union(o.span)
}

// Mean returns the running mean.
func (m *SampleMetrics) Mean() float64 { return m.mean }

// Variance returns the population variance (m2 / count), matching the
// direct formula within floating-point tolerance.
func (m *SampleMetrics) Variance() float64 {
	if m.count == 0 {
		return 0
	}
	return m.m2 / float64(m.count)
}

// StdDev returns the population standard deviation.
func (m *SampleMetrics) StdDev() float64 {
	return math.Sqrt(m.Variance())
}

// Count implements Metrics.
func (m *SampleMetrics) Count() int64 { return m.count }

// Span implements Metrics.
func (m *SampleMetrics) Span() timebase.Span { return m.span }

// Clone returns a deep copy.
func (m *SampleMetrics) Clone() Metrics[observation.Sample] {
	c := *m
	return &c
}

// CountMetrics is the aggregate for Text and ProfileEvent observations:
// just a count and a covered span.
type CountMetrics[V any] struct {
	count int64
	span  timebase.Span
}

// NewCountMetrics builds a CountMetrics from a single observation.
func NewCountMetrics[V any](obs observation.Observation[V]) *CountMetrics[V] {
	return &CountMetrics[V]{
		count: 1,
		span:  timebase.NewSpan(obs.Timestamp, obs.Timestamp),
	}
}

// Include folds one observation in.
func (m *CountMetrics[V]) Include(obs observation.Observation[V]) {
	m.count++
	m.span = m.span.ExtendToInclude(obs.Timestamp)
}

// Merge combines two CountMetrics.
func (m *CountMetrics[V]) Merge(other Metrics[V]) {
	o, ok := other.(*CountMetrics[V])
	if !ok || o.count == 0 {
		return
	}
	if m.count == 0 {
		*m = *o
		return
	}
	m.count += o.count
	m.span = m.span.Union(o.span)
}

// Count implements Metrics.
func (m *CountMetrics[V]) Count() int64 { return m.count }

// Span implements Metrics.
func (m *CountMetrics[V]) Span() timebase.Span { return m.span }

// Clone returns a deep copy.
func (m *CountMetrics[V]) Clone() Metrics[V] {
	c := *m
	return &c
}
