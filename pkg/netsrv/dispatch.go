package netsrv

import (
	"fmt"

	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
	"github.com/grafana/tsdb/pkg/wire"
)

// Ingestor is the narrow slice of the database's write surface the server
// depends on. Depending on an interface (rather than *tsdb.Database
// directly) keeps the server testable without a real database and keeps
// the dependency direction pointing from transport to storage.
type Ingestor interface {
	AddValue(name string, obs observation.Observation[observation.Sample]) error
	AddValues(name string, obs []observation.Observation[observation.Sample]) error
	AddText(name string, obs observation.Observation[observation.Text]) error
	AddProfileEvent(name string, obs observation.Observation[observation.ProfileEvent]) error
}

// dispatchResult reports how many observations a decoded batch produced,
// for the peer-event processor's sample counter.
type dispatchResult struct {
	samplesReceived int
}

// dispatch applies one decoded SampleBatch to db, per §4.5's payload
// variants. A batch decodes into zero or more observations that are
// appended atomically per-signal with a single Add* call. Event payloads
// are accepted and discarded (no trace side effect); unknown payload types
// are also silently ignored, matching the decoder's skip policy.
func dispatch(db Ingestor, batch wire.SampleBatch) (dispatchResult, error) {
	p := batch.Payload
	switch p.Type {
	case wire.PayloadSample:
		obs := observation.New[observation.Sample](timebase.Timestamp(p.T), observation.Sample(p.Value))
		if err := db.AddValue(batch.Name, obs); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{samplesReceived: 1}, nil

	case wire.PayloadBatch:
		obs := make([]observation.Observation[observation.Sample], len(p.Batch))
		for i, pair := range p.Batch {
			obs[i] = observation.New[observation.Sample](timebase.Timestamp(pair[0]), observation.Sample(pair[1]))
		}
		if err := db.AddValues(batch.Name, obs); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{samplesReceived: len(obs)}, nil

	case wire.PayloadSamples:
		obs := make([]observation.Observation[observation.Sample], len(p.Values))
		for i, v := range p.Values {
			t := p.T + float64(i)*p.Dt
			obs[i] = observation.New[observation.Sample](timebase.Timestamp(t), observation.Sample(v))
		}
		if err := db.AddValues(batch.Name, obs); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{samplesReceived: len(obs)}, nil

	case wire.PayloadText:
		obs := observation.New[observation.Text](timebase.Timestamp(p.T), observation.Text(p.Text))
		if err := db.AddText(batch.Name, obs); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{samplesReceived: 1}, nil

	case wire.PayloadProfile:
		var ev observation.ProfileEvent
		switch p.ProfileEvent {
		case wire.ProfileEnter:
			ev = observation.ProfileEvent{Kind: observation.FunctionEnter, Callee: p.Callee}
		case wire.ProfileExit:
			ev = observation.ProfileEvent{Kind: observation.FunctionExit}
		default:
			return dispatchResult{}, fmt.Errorf("netsrv: profile payload missing event discriminant")
		}
		obs := observation.New[observation.ProfileEvent](timebase.Timestamp(p.T), ev)
		if err := db.AddProfileEvent(batch.Name, obs); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{samplesReceived: 1}, nil

	case wire.PayloadEvent:
		// Accepted, deliberately not stored (see SPEC_FULL.md §9).
		return dispatchResult{}, nil

	default:
		return dispatchResult{}, nil
	}
}
