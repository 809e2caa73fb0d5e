// Package tsdb implements the ingestion/query database facade: a named map
// of tracks behind a single mutex, with coalescing change notification and
// a rewind-backup policy that protects the tree's non-decreasing timestamp
// invariant without losing data.
package tsdb

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
)

const rewindBackupTimeLayout = "20060102_150405"

type dbMetrics struct {
	observationsTotal *prometheus.CounterVec
	tracksTotal       prometheus.Gauge
	rewindEvents      prometheus.Counter
	subscriberFull    prometheus.Counter
}

func newDBMetrics(reg prometheus.Registerer) *dbMetrics {
	f := promauto.With(reg)
	return &dbMetrics{
		observationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tsdb",
			Name:      "observations_ingested_total",
			Help:      "Total observations appended, by value kind.",
		}, []string{"kind"}),
		tracksTotal: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tsdb",
			Name:      "tracks",
			Help:      "Number of live tracks (signals).",
		}),
		rewindEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tsdb",
			Name:      "rewind_events_total",
			Help:      "Total rewind-backup events triggered by out-of-order appends.",
		}),
		subscriberFull: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tsdb",
			Name:      "notifier_subscriber_full_total",
			Help:      "Total times a change-notification send found a subscriber's channel full.",
		}),
	}
}

// Database owns {name -> Track} under a single mutex and fans out change
// notifications without blocking writers. One mutex over the whole
// database trades theoretical parallelism for simplicity: critical
// sections are bounded by tree depth (O(log N)).
type Database struct {
	mu     sync.Mutex
	tracks map[string]*Track

	notifier *notifier
	logger   log.Logger
	metrics  *dbMetrics
	now      func() time.Time

	snapshots *rewindSnapshots
}

// Option configures a Database at construction.
type Option func(*Database)

// WithClock overrides the clock used to name rewind backups; used by tests
// that need deterministic backup names.
func WithClock(now func() time.Time) Option {
	return func(db *Database) { db.now = now }
}

// WithRewindSnapshots enables the optional compressed diagnostic snapshot
// recorded whenever a trace is renamed aside by the rewind-backup policy.
// capacity bounds the number of retained snapshots (oldest evicted first).
// This is purely an in-memory diagnostic aid, not a persistence mechanism.
func WithRewindSnapshots(capacity int) Option {
	return func(db *Database) { db.snapshots = newRewindSnapshots(capacity) }
}

// NewDatabase constructs an empty Database.
func NewDatabase(logger log.Logger, reg prometheus.Registerer, opts ...Option) *Database {
	db := &Database{
		tracks:   make(map[string]*Track),
		notifier: newNotifier(),
		logger:   logger,
		metrics:  newDBMetrics(reg),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// AddValue appends one sample observation to name, creating the trace on
// first write and applying the rewind-backup policy if needed.
func (db *Database) AddValue(name string, obs observation.Observation[observation.Sample]) error {
	return db.AddValues(name, []observation.Observation[observation.Sample]{obs})
}

// AddValues appends a batch of sample observations atomically: the whole
// batch is applied under one critical section and produces a single change
// notification.
func (db *Database) AddValues(name string, obs []observation.Observation[observation.Sample]) error {
	if len(obs) == 0 {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	track, isNew, err := db.trackForWrite(name, SampleTrackKind, obs[0].Timestamp)
	if err != nil {
		return err
	}
	if err := track.AppendSamples(obs); err != nil {
		return err
	}
	db.metrics.observationsTotal.WithLabelValues(SampleTrackKind.String()).Add(float64(len(obs)))
	db.notifier.notifyChanged(name, isNew)
	return nil
}

// AddText appends one text observation to name.
func (db *Database) AddText(name string, obs observation.Observation[observation.Text]) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	track, isNew, err := db.trackForWrite(name, TextTrackKind, obs.Timestamp)
	if err != nil {
		return err
	}
	if err := track.AppendText(obs); err != nil {
		return err
	}
	db.metrics.observationsTotal.WithLabelValues(TextTrackKind.String()).Inc()
	db.notifier.notifyChanged(name, isNew)
	return nil
}

// AddProfileEvent appends one profile event to name.
func (db *Database) AddProfileEvent(name string, obs observation.Observation[observation.ProfileEvent]) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	track, isNew, err := db.trackForWrite(name, ProfileTrackKind, obs.Timestamp)
	if err != nil {
		return err
	}
	if err := track.AppendProfileEvent(obs); err != nil {
		return err
	}
	db.metrics.observationsTotal.WithLabelValues(ProfileTrackKind.String()).Inc()
	db.notifier.notifyChanged(name, isNew)
	return nil
}

// trackForWrite resolves (or creates) the track for name, applying the
// rewind-backup policy when the incoming observation's timestamp precedes
// the track's current last timestamp. Must be called with db.mu held.
func (db *Database) trackForWrite(name string, kind TrackKind, incoming timebase.Timestamp) (*Track, bool, error) {
	track, exists := db.tracks[name]
	if exists {
		if track.Kind() != kind {
			return nil, false, fmt.Errorf("%w: signal %q is %s", ErrTrackKindMismatch, name, track.Kind())
		}
		if last, ok := track.LastTimestamp(); ok && incoming < last {
			db.rewind(name, track)
			exists = false
		}
	}
	if !exists {
		track = newTrack(kind)
		db.tracks[name] = track
		db.metrics.tracksTotal.Set(float64(len(db.tracks)))
		return track, true, nil
	}
	return track, false, nil
}

func newTrack(kind TrackKind) *Track {
	switch kind {
	case SampleTrackKind:
		return NewSampleTrack()
	case TextTrackKind:
		return NewTextTrack()
	default:
		return NewProfileTrack()
	}
}

// rewind moves the existing track aside under "{name}_BACKUP_{timestamp}"
// so that a fresh trace can be created under the original name. This
// protects the non-decreasing-timestamp invariant without discarding the
// producer's prior data. Must be called with db.mu held.
func (db *Database) rewind(name string, track *Track) {
	backupName := fmt.Sprintf("%s_BACKUP_%s", name, db.now().Format(rewindBackupTimeLayout))
	db.tracks[backupName] = track
	delete(db.tracks, name)
	db.metrics.rewindEvents.Inc()
	level.Warn(db.logger).Log("msg", "rewind detected, trace backed up", "name", name, "backup", backupName)

	if db.snapshots != nil {
		db.snapshots.record(backupName, track)
	}
}

// Delete removes one trace by name.
func (db *Database) Delete(name string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.tracks[name]; !ok {
		return
	}
	delete(db.tracks, name)
	db.metrics.tracksTotal.Set(float64(len(db.tracks)))
	db.notifier.notifyChanged(name, false)
}

// DeleteAll removes every trace.
func (db *Database) DeleteAll() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tracks = make(map[string]*Track)
	db.metrics.tracksTotal.Set(0)
	db.notifier.notifyDropAll()
}

// GetSignalNames returns every currently-live signal name.
func (db *Database) GetSignalNames() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]string, 0, len(db.tracks))
	for name := range db.tracks {
		out = append(out, name)
	}
	return out
}

// TrackKind reports the kind of an existing signal.
func (db *Database) TrackKind(name string) (TrackKind, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return track.Kind(), nil
}

// QuickSummary returns the O(1) cached summary of a Sample signal.
func (db *Database) QuickSummary(name string) (QuickSummary[observation.Sample], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return QuickSummary[observation.Sample]{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	qs, _, err := track.SampleQuickSummary()
	return qs, err
}

// Summary aggregates a Sample signal over its whole span (span == nil) or a
// sub-range.
func (db *Database) Summary(name string, span *timebase.Span) (Aggregation[observation.Sample], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return Aggregation[observation.Sample]{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	agg, found, err := track.SampleSummary(span)
	if err != nil {
		return Aggregation[observation.Sample]{}, err
	}
	if !found {
		return Aggregation[observation.Sample]{}, fmt.Errorf("%w: %s has no data in range", ErrNotFound, name)
	}
	return agg, nil
}

// Query runs a range query against a Sample signal.
func (db *Database) Query(name string, span timebase.Span, minPoints int) (QueryResult[observation.Sample], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return QueryResult[observation.Sample]{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return track.QuerySamples(span, minPoints)
}

// GetRawSamples dumps every sample observation of a signal in time order.
func (db *Database) GetRawSamples(name string) ([]observation.Observation[observation.Sample], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return track.RawSamples()
}

// QuickSummaryText returns the O(1) cached summary of a Text signal.
func (db *Database) QuickSummaryText(name string) (QuickSummary[observation.Text], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return QuickSummary[observation.Text]{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	qs, _, err := track.TextQuickSummary()
	return qs, err
}

// SummaryText aggregates a Text signal over its whole span (span == nil) or
// a sub-range.
func (db *Database) SummaryText(name string, span *timebase.Span) (Aggregation[observation.Text], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return Aggregation[observation.Text]{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	agg, found, err := track.TextSummary(span)
	if err != nil {
		return Aggregation[observation.Text]{}, err
	}
	if !found {
		return Aggregation[observation.Text]{}, fmt.Errorf("%w: %s has no data in range", ErrNotFound, name)
	}
	return agg, nil
}

// QueryText runs a range query against a Text signal.
func (db *Database) QueryText(name string, span timebase.Span, minPoints int) (QueryResult[observation.Text], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return QueryResult[observation.Text]{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return track.QueryText(span, minPoints)
}

// GetRawText dumps every text observation of a signal in time order.
func (db *Database) GetRawText(name string) ([]observation.Observation[observation.Text], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return track.RawText()
}

// QuickSummaryProfile returns the O(1) cached summary of a ProfileEvent
// signal.
func (db *Database) QuickSummaryProfile(name string) (QuickSummary[observation.ProfileEvent], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return QuickSummary[observation.ProfileEvent]{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	qs, _, err := track.ProfileQuickSummary()
	return qs, err
}

// SummaryProfile aggregates a ProfileEvent signal over its whole span
// (span == nil) or a sub-range.
func (db *Database) SummaryProfile(name string, span *timebase.Span) (Aggregation[observation.ProfileEvent], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return Aggregation[observation.ProfileEvent]{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	agg, found, err := track.ProfileSummary(span)
	if err != nil {
		return Aggregation[observation.ProfileEvent]{}, err
	}
	if !found {
		return Aggregation[observation.ProfileEvent]{}, fmt.Errorf("%w: %s has no data in range", ErrNotFound, name)
	}
	return agg, nil
}

// QueryProfile runs a range query against a ProfileEvent signal.
func (db *Database) QueryProfile(name string, span timebase.Span, minPoints int) (QueryResult[observation.ProfileEvent], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return QueryResult[observation.ProfileEvent]{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return track.QueryProfile(span, minPoints)
}

// GetRawProfileEvents dumps every profile event of a signal in time order.
func (db *Database) GetRawProfileEvents(name string) ([]observation.Observation[observation.ProfileEvent], error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	track, ok := db.tracks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return track.RawProfileEvents()
}

// RegisterNotifier subscribes ch to future change events.
func (db *Database) RegisterNotifier(ch ChangeSubscriber) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.notifier.register(ch)
}

// PollEvents opportunistically retries delivery of any change event that
// was retained because a subscriber's channel was previously full. Callers
// with a render loop (the GUI tick) call this even when they haven't
// written anything, so a slow consumer catches up as soon as it drains.
func (db *Database) PollEvents() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.notifier.mu.Lock()
	defer db.notifier.mu.Unlock()
	for i := range db.notifier.subscribers {
		db.notifier.trySend(&db.notifier.subscribers[i])
	}
}

// RewoundSnapshot returns the diagnostic snapshot recorded for a backup
// trace name, if rewind snapshotting is enabled and one was recorded.
func (db *Database) RewoundSnapshot(backupName string) (RewoundSnapshot, bool) {
	if db.snapshots == nil {
		return RewoundSnapshot{}, false
	}
	return db.snapshots.get(backupName)
}
