package tsdb

import (
	"fmt"

	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
)

// TrackKind discriminates the three Track variants. It is fixed for the
// lifetime of a Track; a name cannot change kinds in place (data model
// invariant 5).
type TrackKind int

const (
	// SampleTrackKind wraps a Trace[observation.Sample].
	SampleTrackKind TrackKind = iota
	// TextTrackKind wraps a Trace[observation.Text].
	TextTrackKind
	// ProfileTrackKind wraps a Trace[observation.ProfileEvent].
	ProfileTrackKind
)

func (k TrackKind) String() string {
	switch k {
	case SampleTrackKind:
		return "sample"
	case TextTrackKind:
		return "text"
	case ProfileTrackKind:
		return "profile"
	default:
		return "unknown"
	}
}

// Track is a type-tagged sum over the three Trace instantiations. Every
// operation is dispatched through a kind check: a type-mismatched
// operation returns ErrTrackKindMismatch and never mutates the track.
type Track struct {
	kind TrackKind

	sampleTrace  *Trace[observation.Sample]
	textTrace    *Trace[observation.Text]
	profileTrace *Trace[observation.ProfileEvent]
}

// NewSampleTrack creates an empty Track holding a Sample trace.
func NewSampleTrack() *Track {
	return &Track{kind: SampleTrackKind, sampleTrace: NewTrace(sampleMetricsFactory)}
}

// NewTextTrack creates an empty Track holding a Text trace.
func NewTextTrack() *Track {
	return &Track{kind: TextTrackKind, textTrace: NewTrace(textMetricsFactory)}
}

// NewProfileTrack creates an empty Track holding a ProfileEvent trace.
func NewProfileTrack() *Track {
	return &Track{kind: ProfileTrackKind, profileTrace: NewTrace(profileMetricsFactory)}
}

// Kind reports the track's fixed value kind.
func (tr *Track) Kind() TrackKind { return tr.kind }

func (tr *Track) mismatch(want TrackKind) error {
	return fmt.Errorf("%w: track is %s, operation requires %s", ErrTrackKindMismatch, tr.kind, want)
}

// Len reports the number of observations stored, regardless of kind.
func (tr *Track) Len() int64 {
	switch tr.kind {
	case SampleTrackKind:
		return tr.sampleTrace.Len()
	case TextTrackKind:
		return tr.textTrace.Len()
	case ProfileTrackKind:
		return tr.profileTrace.Len()
	default:
		return 0
	}
}

// LastTimestamp returns the timestamp of the most recently appended
// observation, regardless of kind. ok is false for an empty track.
func (tr *Track) LastTimestamp() (timebase.Timestamp, bool) {
	switch tr.kind {
	case SampleTrackKind:
		qs, ok := tr.sampleTrace.QuickSummary()
		return qs.LastObservation.Timestamp, ok
	case TextTrackKind:
		qs, ok := tr.textTrace.QuickSummary()
		return qs.LastObservation.Timestamp, ok
	case ProfileTrackKind:
		qs, ok := tr.profileTrace.QuickSummary()
		return qs.LastObservation.Timestamp, ok
	default:
		return 0, false
	}
}

// Span reports the covered timespan, regardless of kind.
func (tr *Track) Span() (timebase.Span, bool) {
	switch tr.kind {
	case SampleTrackKind:
		return tr.sampleTrace.Span()
	case TextTrackKind:
		return tr.textTrace.Span()
	case ProfileTrackKind:
		return tr.profileTrace.Span()
	default:
		return timebase.Span{}, false
	}
}

// AppendSample appends to the underlying Sample trace.
func (tr *Track) AppendSample(obs observation.Observation[observation.Sample]) error {
	if tr.kind != SampleTrackKind {
		return tr.mismatch(SampleTrackKind)
	}
	tr.sampleTrace.Append(obs)
	return nil
}

// AppendSamples appends a batch to the underlying Sample trace.
func (tr *Track) AppendSamples(obs []observation.Observation[observation.Sample]) error {
	if tr.kind != SampleTrackKind {
		return tr.mismatch(SampleTrackKind)
	}
	tr.sampleTrace.AppendMany(obs)
	return nil
}

// AppendText appends to the underlying Text trace.
func (tr *Track) AppendText(obs observation.Observation[observation.Text]) error {
	if tr.kind != TextTrackKind {
		return tr.mismatch(TextTrackKind)
	}
	tr.textTrace.Append(obs)
	return nil
}

// AppendProfileEvent appends to the underlying ProfileEvent trace.
func (tr *Track) AppendProfileEvent(obs observation.Observation[observation.ProfileEvent]) error {
	if tr.kind != ProfileTrackKind {
		return tr.mismatch(ProfileTrackKind)
	}
	tr.profileTrace.Append(obs)
	return nil
}

// QuerySamples dispatches a range query to the underlying Sample trace.
func (tr *Track) QuerySamples(span timebase.Span, minPoints int) (QueryResult[observation.Sample], error) {
	if tr.kind != SampleTrackKind {
		return QueryResult[observation.Sample]{}, tr.mismatch(SampleTrackKind)
	}
	return tr.sampleTrace.Query(span, minPoints), nil
}

// QueryText dispatches a range query to the underlying Text trace.
func (tr *Track) QueryText(span timebase.Span, minPoints int) (QueryResult[observation.Text], error) {
	if tr.kind != TextTrackKind {
		return QueryResult[observation.Text]{}, tr.mismatch(TextTrackKind)
	}
	return tr.textTrace.Query(span, minPoints), nil
}

// QueryProfile dispatches a range query to the underlying ProfileEvent
// trace.
func (tr *Track) QueryProfile(span timebase.Span, minPoints int) (QueryResult[observation.ProfileEvent], error) {
	if tr.kind != ProfileTrackKind {
		return QueryResult[observation.ProfileEvent]{}, tr.mismatch(ProfileTrackKind)
	}
	return tr.profileTrace.Query(span, minPoints), nil
}

// SampleSummary aggregates the underlying Sample trace.
func (tr *Track) SampleSummary(span *timebase.Span) (Aggregation[observation.Sample], bool, error) {
	if tr.kind != SampleTrackKind {
		return Aggregation[observation.Sample]{}, false, tr.mismatch(SampleTrackKind)
	}
	agg, ok := tr.sampleTrace.Summary(span)
	return agg, ok, nil
}

// RawSamples dumps the underlying Sample trace in full.
func (tr *Track) RawSamples() ([]observation.Observation[observation.Sample], error) {
	if tr.kind != SampleTrackKind {
		return nil, tr.mismatch(SampleTrackKind)
	}
	return tr.sampleTrace.ToSlice(), nil
}

// SampleQuickSummary returns the O(1) summary of the underlying Sample
// trace.
func (tr *Track) SampleQuickSummary() (QuickSummary[observation.Sample], bool, error) {
	if tr.kind != SampleTrackKind {
		return QuickSummary[observation.Sample]{}, false, tr.mismatch(SampleTrackKind)
	}
	qs, ok := tr.sampleTrace.QuickSummary()
	return qs, ok, nil
}

// TextSummary aggregates the underlying Text trace.
func (tr *Track) TextSummary(span *timebase.Span) (Aggregation[observation.Text], bool, error) {
	if tr.kind != TextTrackKind {
		return Aggregation[observation.Text]{}, false, tr.mismatch(TextTrackKind)
	}
	agg, ok := tr.textTrace.Summary(span)
	return agg, ok, nil
}

// TextQuickSummary returns the O(1) summary of the underlying Text trace.
func (tr *Track) TextQuickSummary() (QuickSummary[observation.Text], bool, error) {
	if tr.kind != TextTrackKind {
		return QuickSummary[observation.Text]{}, false, tr.mismatch(TextTrackKind)
	}
	qs, ok := tr.textTrace.QuickSummary()
	return qs, ok, nil
}

// RawText dumps the underlying Text trace in full.
func (tr *Track) RawText() ([]observation.Observation[observation.Text], error) {
	if tr.kind != TextTrackKind {
		return nil, tr.mismatch(TextTrackKind)
	}
	return tr.textTrace.ToSlice(), nil
}

// ProfileSummary aggregates the underlying ProfileEvent trace.
func (tr *Track) ProfileSummary(span *timebase.Span) (Aggregation[observation.ProfileEvent], bool, error) {
	if tr.kind != ProfileTrackKind {
		return Aggregation[observation.ProfileEvent]{}, false, tr.mismatch(ProfileTrackKind)
	}
	agg, ok := tr.profileTrace.Summary(span)
	return agg, ok, nil
}

// ProfileQuickSummary returns the O(1) summary of the underlying
// ProfileEvent trace.
func (tr *Track) ProfileQuickSummary() (QuickSummary[observation.ProfileEvent], bool, error) {
	if tr.kind != ProfileTrackKind {
		return QuickSummary[observation.ProfileEvent]{}, false, tr.mismatch(ProfileTrackKind)
	}
	qs, ok := tr.profileTrace.QuickSummary()
	return qs, ok, nil
}

// RawProfileEvents dumps the underlying ProfileEvent trace in full.
func (tr *Track) RawProfileEvents() ([]observation.Observation[observation.ProfileEvent], error) {
	if tr.kind != ProfileTrackKind {
		return nil, tr.mismatch(ProfileTrackKind)
	}
	return tr.profileTrace.ToSlice(), nil
}
