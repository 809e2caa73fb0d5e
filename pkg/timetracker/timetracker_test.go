package timetracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newFakeClockTracker() (*Tracker, *time.Time) {
	now := time.Unix(0, 0)
	tr := newWithClock(func() time.Time { return now })
	return tr, &now
}

func TestTrackerConvergesTowardSteadyObservations(t *testing.T) {
	tr, now := newFakeClockTracker()

	for i := 0; i < 50; i++ {
		*now = now.Add(time.Second)
		tr.Update(float64(i + 1))
	}

	require.InDelta(t, 50, tr.Estimate(), 1.0)
	require.InDelta(t, 1.0, tr.Rate(), 0.5)
}

func TestTrackerResetsOnLargeJump(t *testing.T) {
	tr, now := newFakeClockTracker()

	for i := 0; i < 10; i++ {
		*now = now.Add(time.Second)
		tr.Update(float64(i + 1))
	}

	*now = now.Add(time.Second)
	tr.Update(10000.0)

	require.InDelta(t, 10000, tr.Estimate(), 1e-6)
}

func TestTrackerPredictGrowsUncertaintyWithoutObservation(t *testing.T) {
	tr, now := newFakeClockTracker()
	tr.Update(1.0)

	before := frobeniusNormSquared(tr.p)
	*now = now.Add(10 * time.Second)
	tr.Predict()

	require.Greater(t, frobeniusNormSquared(tr.p), before)
}
