// Package observation defines the (timestamp, value) record type shared by
// every value kind the database stores.
package observation

import "github.com/grafana/tsdb/pkg/timebase"

// Sample is a single scalar measurement.
type Sample float64

// Text is a timestamped UTF-8 event.
type Text string

// ProfileEventKind discriminates the two ProfileEvent variants.
type ProfileEventKind int

const (
	// FunctionEnter marks entry into a named function.
	FunctionEnter ProfileEventKind = iota
	// FunctionExit marks return from the most recently entered function.
	FunctionExit
)

// ProfileEvent is a tagged enum: either FunctionEnter{Callee} or FunctionExit.
type ProfileEvent struct {
	Kind   ProfileEventKind
	Callee string // only meaningful when Kind == FunctionEnter
}

// Observation is a (timestamp, value) pair parameterized over value kind V,
// one of Sample, Text, or ProfileEvent.
type Observation[V any] struct {
	Timestamp timebase.Timestamp
	Value     V
}

// New constructs an Observation.
func New[V any](t timebase.Timestamp, v V) Observation[V] {
	return Observation[V]{Timestamp: t, Value: v}
}
