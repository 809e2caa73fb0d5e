// Package tracer implements self-instrumentation sinks: the same
// TraceValue/TraceText interface the ingestion server reports its own
// traffic counters through, satisfied by a sink that writes straight into
// a database, one that forwards over the wire client, or one that
// discards everything.
package tracer

import (
	"time"

	"github.com/grafana/tsdb/pkg/client"
	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
)

// Tracer is the capability a process needing self-instrumentation depends
// on: log a metric value or a text event under name, both timestamped
// relative to when the Tracer was constructed.
type Tracer interface {
	TraceValue(name string, t, v float64)
	TraceText(name string, t float64, text string)
}

// Database is the subset of *tsdb.Database a Tracer needs to write
// straight into a database.
type Database interface {
	AddValue(name string, obs observation.Observation[observation.Sample]) error
	AddText(name string, obs observation.Observation[observation.Text]) error
}

// elapsed returns the number of seconds since start, the common clock used
// by every Tracer implementation to turn a wall-clock instant into a
// domain timestamp.
func elapsed(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// DBTracer writes self-instrumentation straight into a database, so a
// process's own tracing is browsable by the same tooling as any other
// signal.
type DBTracer struct {
	start time.Time
	db    Database
}

func NewDBTracer(db Database) *DBTracer {
	return &DBTracer{start: time.Now(), db: db}
}

func (t *DBTracer) TraceValue(name string, _ float64, v float64) {
	ts := timebase.Timestamp(elapsed(t.start))
	_ = t.db.AddValue(name, observation.New(ts, observation.Sample(v)))
}

func (t *DBTracer) TraceText(name string, _ float64, text string) {
	ts := timebase.Timestamp(elapsed(t.start))
	_ = t.db.AddText(name, observation.New(ts, observation.Text(text)))
}

// NetTracer forwards self-instrumentation over a wire client, so a remote
// process's tracing shows up on whatever server it connects to.
type NetTracer struct {
	start  time.Time
	client *client.Client
}

func NewNetTracer(c *client.Client) *NetTracer {
	return &NetTracer{start: time.Now(), client: c}
}

func (t *NetTracer) TraceValue(name string, _ float64, v float64) {
	_ = t.client.SendSample(name, elapsed(t.start), v)
}

func (t *NetTracer) TraceText(name string, _ float64, text string) {
	_ = t.client.SendText(name, elapsed(t.start), text)
}

// Void discards everything traced through it; the default when no
// self-instrumentation sink is configured.
type Void struct{}

func (Void) TraceValue(string, float64, float64) {}
func (Void) TraceText(string, float64, string)   {}
