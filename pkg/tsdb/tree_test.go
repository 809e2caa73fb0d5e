package tsdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
)

func newTestSampleTree() *Tree[observation.Sample] {
	return NewTree[observation.Sample](sampleMetricsFactory)
}

func TestTreeAppendPreservesOrder(t *testing.T) {
	tree := newTestSampleTree()
	for i := 0; i < 500; i++ {
		tree.Append(observation.New[observation.Sample](timebase.Timestamp(i), observation.Sample(i)))
	}

	require.EqualValues(t, 500, tree.Len())
	out := tree.ToSlice()
	require.Len(t, out, 500)
	for i, obs := range out {
		require.Equal(t, timebase.Timestamp(i), obs.Timestamp)
		require.Equal(t, observation.Sample(i), obs.Value)
	}
}

func TestTreeSpanGrows(t *testing.T) {
	tree := newTestSampleTree()
	_, ok := tree.Span()
	require.False(t, ok)

	tree.Append(observation.New[observation.Sample](5, 1))
	tree.Append(observation.New[observation.Sample](10, 2))

	span, ok := tree.Span()
	require.True(t, ok)
	require.Equal(t, timebase.NewSpan(5, 10), span)
}

func TestTreeAggregationRoundTrip(t *testing.T) {
	tree := newTestSampleTree()
	const n = 1_000_000
	for i := 0; i < n; i++ {
		tree.Append(observation.New[observation.Sample](timebase.Timestamp(i), observation.Sample(i)))
	}

	result := tree.QueryRange(timebase.NewSpan(0, 1000), 1000)
	// 1001 observations fall in the span, so meeting a budget of 1000
	// primitives drives the frontier down to leaf level.
	require.True(t, result.IsObservations())
	require.GreaterOrEqual(t, len(result.Observations), 1000)

	var total int64
	var union timebase.Span
	for i, obs := range result.Observations {
		if i == 0 {
			union = timebase.NewSpan(obs.Timestamp, obs.Timestamp)
		} else {
			union = union.ExtendToInclude(obs.Timestamp)
		}
		total++
	}
	require.True(t, timebase.NewSpan(0, 1000).Covers(union))
	require.EqualValues(t, 1001, total)
}

func TestTreeEmptySpanQuery(t *testing.T) {
	tree := newTestSampleTree()
	tree.Append(observation.New[observation.Sample](0, 42))

	result := tree.QueryRange(timebase.NewSpan(1e-3, 3e-3), 100)
	require.True(t, result.IsObservations())
	require.Len(t, result.Observations, 0)
}

func TestTreeQuerySpanOutsideData(t *testing.T) {
	tree := newTestSampleTree()
	for i := 0; i < 10; i++ {
		tree.Append(observation.New[observation.Sample](timebase.Timestamp(i), observation.Sample(i)))
	}

	result := tree.QueryRange(timebase.NewSpan(1000, 2000), 10)
	require.True(t, result.IsObservations())
	require.Empty(t, result.Observations)
}

func TestTreeQueryResultsOverlapSpanAndAreOrdered(t *testing.T) {
	tree := newTestSampleTree()
	for i := 0; i < 10000; i++ {
		tree.Append(observation.New[observation.Sample](timebase.Timestamp(i), observation.Sample(i)))
	}

	span := timebase.NewSpan(2000, 4000)
	result := tree.QueryRange(span, 50)

	if result.IsObservations() {
		var last timebase.Timestamp = -1
		for _, obs := range result.Observations {
			require.True(t, span.Contains(obs.Timestamp))
			require.GreaterOrEqual(t, obs.Timestamp, last)
			last = obs.Timestamp
		}
	} else {
		var last timebase.Timestamp = -1
		for _, agg := range result.Aggregations {
			require.True(t, agg.Span.Overlap(span))
			require.GreaterOrEqual(t, agg.Span.Start, last)
			last = agg.Span.Start
		}
	}
}

func TestTreeRangeSummaryNoneWhenOutsideData(t *testing.T) {
	tree := newTestSampleTree()
	tree.Append(observation.New[observation.Sample](0, 1))

	_, ok := tree.RangeSummary(timebase.NewSpan(100, 200))
	require.False(t, ok)
}

func TestTreeRangeSummaryFullCoverage(t *testing.T) {
	tree := newTestSampleTree()
	for _, v := range []float64{2, 1, 3, 5, 4} {
		tree.Append(observation.New[observation.Sample](timebase.Timestamp(v), observation.Sample(v)))
	}

	m, ok := tree.RangeSummary(timebase.NewSpan(0, 10))
	require.True(t, ok)
	require.EqualValues(t, 5, m.Count())
}

func TestTreePartialLeafMetricsReflectOnlyRealObservations(t *testing.T) {
	tree := newTestSampleTree()
	for i := 0; i < 3; i++ {
		tree.Append(observation.New[observation.Sample](timebase.Timestamp(i), observation.Sample(i*10)))
	}
	require.EqualValues(t, 3, tree.Len())

	m, ok := tree.RangeSummary(timebase.NewSpan(0, 2))
	require.True(t, ok)
	require.EqualValues(t, 3, m.Count())
}
