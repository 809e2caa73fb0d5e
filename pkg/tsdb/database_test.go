package tsdb_test

import (
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
	"github.com/grafana/tsdb/pkg/tsdb"
)

func newTestDatabase(t *testing.T, opts ...tsdb.Option) *tsdb.Database {
	t.Helper()
	reg := prometheus.NewRegistry()
	return tsdb.NewDatabase(log.NewNopLogger(), reg, opts...)
}

func TestDatabaseAddValueAndQuery(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.AddValue("foo", observation.New[observation.Sample](0, 1)))
	require.NoError(t, db.AddValue("foo", observation.New[observation.Sample](1, 2)))

	qs, err := db.QuickSummary("foo")
	require.NoError(t, err)
	require.EqualValues(t, 2, qs.Count)
	require.Equal(t, timebase.Timestamp(1), qs.LastObservation.Timestamp)
}

func TestDatabaseTrackKindMismatch(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.AddValue("foo", observation.New[observation.Sample](0, 1)))

	err := db.AddText("foo", observation.New[observation.Text](1, "hi"))
	require.ErrorIs(t, err, tsdb.ErrTrackKindMismatch)
}

func TestDatabaseRewindBackup(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	db := newTestDatabase(t, tsdb.WithClock(func() time.Time { return fixed }))

	require.NoError(t, db.AddValue("X", observation.New[observation.Sample](10, 100)))
	require.NoError(t, db.AddValue("X", observation.New[observation.Sample](5, 50)))

	names := db.GetSignalNames()
	require.Contains(t, names, "X")
	require.Contains(t, names, "X_BACKUP_20240301_120000")

	raw, err := db.GetRawSamples("X")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	require.Equal(t, timebase.Timestamp(5), raw[0].Timestamp)

	backupRaw, err := db.GetRawSamples("X_BACKUP_20240301_120000")
	require.NoError(t, err)
	require.Len(t, backupRaw, 1)
	require.Equal(t, timebase.Timestamp(10), backupRaw[0].Timestamp)
}

func TestDatabaseDeleteAndDeleteAll(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.AddValue("a", observation.New[observation.Sample](0, 1)))
	require.NoError(t, db.AddValue("b", observation.New[observation.Sample](0, 2)))

	db.Delete("a")
	require.NotContains(t, db.GetSignalNames(), "a")

	db.DeleteAll()
	require.Empty(t, db.GetSignalNames())
}

func TestDatabaseNotFound(t *testing.T) {
	db := newTestDatabase(t)
	_, err := db.QuickSummary("nope")
	require.ErrorIs(t, err, tsdb.ErrNotFound)
}

func TestDatabaseChangeNotificationCoalesces(t *testing.T) {
	db := newTestDatabase(t)
	ch := make(tsdb.ChangeSubscriber, 1)
	db.RegisterNotifier(ch)

	require.NoError(t, db.AddValue("a", observation.New[observation.Sample](0, 1)))
	require.NoError(t, db.AddValue("b", observation.New[observation.Sample](0, 2)))
	require.NoError(t, db.AddValue("a", observation.New[observation.Sample](1, 3)))

	// The first write's event went out at once; the next two found the
	// channel full and were merged into one retained event.
	first := <-ch
	require.Contains(t, first.ChangedNames, "a")
	db.PollEvents()

	select {
	case ev := <-ch:
		require.Contains(t, ev.ChangedNames, "a")
		require.Contains(t, ev.ChangedNames, "b")
	default:
		t.Fatal("expected a coalesced change event")
	}

	select {
	case <-ch:
		t.Fatal("expected channel to be drained after one coalesced event")
	default:
	}
}

func TestDatabaseRewindSnapshot(t *testing.T) {
	db := newTestDatabase(t, tsdb.WithRewindSnapshots(8))

	require.NoError(t, db.AddValue("X", observation.New[observation.Sample](10, 100)))
	require.NoError(t, db.AddValue("X", observation.New[observation.Sample](5, 50)))

	names := db.GetSignalNames()
	var backupName string
	for _, n := range names {
		if n != "X" {
			backupName = n
		}
	}
	require.NotEmpty(t, backupName)

	snap, ok := db.RewoundSnapshot(backupName)
	require.True(t, ok)
	require.EqualValues(t, 1, snap.Count)
	require.Equal(t, tsdb.SampleTrackKind, snap.Kind)
}

func TestDatabaseTextReadPath(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.AddText("log", observation.New[observation.Text](0, "started")))
	require.NoError(t, db.AddText("log", observation.New[observation.Text](1, "stopped")))

	qs, err := db.QuickSummaryText("log")
	require.NoError(t, err)
	require.EqualValues(t, 2, qs.Count)
	require.Equal(t, observation.Text("stopped"), qs.LastObservation.Value)

	agg, err := db.SummaryText("log", nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, agg.Count)

	result, err := db.QueryText("log", timebase.NewSpan(0, 1), 10)
	require.NoError(t, err)
	require.True(t, result.IsObservations())
	require.Len(t, result.Observations, 2)

	raw, err := db.GetRawText("log")
	require.NoError(t, err)
	require.Len(t, raw, 2)
	require.Equal(t, observation.Text("started"), raw[0].Value)
}

func TestDatabaseProfileReadPath(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.AddProfileEvent("cpu.prof", observation.New[observation.ProfileEvent](0, observation.ProfileEvent{
		Kind:   observation.FunctionEnter,
		Callee: "main",
	})))
	require.NoError(t, db.AddProfileEvent("cpu.prof", observation.New[observation.ProfileEvent](1, observation.ProfileEvent{
		Kind: observation.FunctionExit,
	})))

	qs, err := db.QuickSummaryProfile("cpu.prof")
	require.NoError(t, err)
	require.EqualValues(t, 2, qs.Count)

	agg, err := db.SummaryProfile("cpu.prof", nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, agg.Count)

	result, err := db.QueryProfile("cpu.prof", timebase.NewSpan(0, 1), 10)
	require.NoError(t, err)
	require.True(t, result.IsObservations())
	require.Len(t, result.Observations, 2)

	raw, err := db.GetRawProfileEvents("cpu.prof")
	require.NoError(t, err)
	require.Len(t, raw, 2)
	require.Equal(t, observation.FunctionEnter, raw[0].Value.Kind)
	require.Equal(t, "main", raw[0].Value.Callee)
}

func TestDatabaseTextReadPathWrongKind(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.AddValue("foo", observation.New[observation.Sample](0, 1)))

	_, err := db.QueryText("foo", timebase.NewSpan(0, 1), 10)
	require.ErrorIs(t, err, tsdb.ErrTrackKindMismatch)
}
