package timebase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/tsdb/pkg/timebase"
)

func TestSpanContains(t *testing.T) {
	s := timebase.NewSpan(10, 20)
	require.True(t, s.Contains(10))
	require.True(t, s.Contains(20))
	require.True(t, s.Contains(15))
	require.False(t, s.Contains(9.999))
	require.False(t, s.Contains(20.001))
}

func TestSpanNormalizesReversedBounds(t *testing.T) {
	s := timebase.NewSpan(20, 10)
	require.Equal(t, timebase.Timestamp(10), s.Start)
	require.Equal(t, timebase.Timestamp(20), s.End)
}

func TestSpanOverlap(t *testing.T) {
	a := timebase.NewSpan(0, 10)
	b := timebase.NewSpan(10, 20)
	c := timebase.NewSpan(11, 20)

	require.True(t, a.Overlap(b))
	require.False(t, a.Overlap(c))
}

func TestSpanExtendToInclude(t *testing.T) {
	s := timebase.NewSpan(5, 5)
	s = s.ExtendToInclude(1)
	s = s.ExtendToInclude(9)
	require.Equal(t, timebase.NewSpan(1, 9), s)
}

func TestSpanUnion(t *testing.T) {
	a := timebase.NewSpan(0, 5)
	b := timebase.NewSpan(3, 10)
	require.Equal(t, timebase.NewSpan(0, 10), a.Union(b))
}

func TestSpanMiddle(t *testing.T) {
	require.Equal(t, timebase.Timestamp(5), timebase.NewSpan(0, 10).Middle())
}
