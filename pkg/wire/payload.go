// Package wire implements the length-prefixed, CBOR-encoded wire protocol:
// one SampleBatch per frame, with SamplePayload discriminated by a "type"
// field into six variants. Unknown payload types decode without error (the
// decoder policy is to skip, not fail, so one producer's newer payload
// kind never breaks an older consumer).
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// PayloadType discriminates the SamplePayload variants on the wire.
type PayloadType string

const (
	PayloadSample  PayloadType = "sample"
	PayloadBatch   PayloadType = "batch"
	PayloadSamples PayloadType = "samples"
	PayloadText    PayloadType = "text"
	PayloadEvent   PayloadType = "event"
	PayloadProfile PayloadType = "profile"

	// ProfileEnter and ProfileExit discriminate the "event" sub-field of a
	// PayloadProfile payload.
	ProfileEnter = "enter"
	ProfileExit  = "exit"

	// unknownPayloadType marks a payload whose "type" field the decoder
	// did not recognize. Such payloads decode successfully (so a batch
	// containing one never fails the frame) but carry no data.
	unknownPayloadType PayloadType = ""
)

// SamplePair is one (t, value) entry of a PayloadBatch.
type SamplePair [2]float64

// SamplePayload is one of the six wire payload variants. Exactly the
// fields relevant to Type are populated; MarshalCBOR/UnmarshalCBOR hand-
// encode the minimal map for each variant so the bytes on the wire match
// the documented shape exactly, rather than carrying every struct field
// with zero values.
type SamplePayload struct {
	Type PayloadType

	T float64 // sample, samples, text, event, profile

	Value float64      // sample
	Batch []SamplePair // batch
	Dt    float64      // samples
	Values []float64   // samples

	Text string // text

	Attributes map[string]string // event

	ProfileEvent string // profile: "enter" or "exit"
	Callee       string // profile enter: callee name
}

// NewSample builds a "sample" payload.
func NewSample(t, value float64) SamplePayload {
	return SamplePayload{Type: PayloadSample, T: t, Value: value}
}

// NewBatch builds a "batch" payload from explicit (t, value) pairs.
func NewBatch(pairs []SamplePair) SamplePayload {
	return SamplePayload{Type: PayloadBatch, Batch: pairs}
}

// NewSamples builds a "samples" payload: equally spaced values starting at
// t with step dt.
func NewSamples(t, dt float64, values []float64) SamplePayload {
	return SamplePayload{Type: PayloadSamples, T: t, Dt: dt, Values: values}
}

// NewText builds a "text" payload.
func NewText(t float64, text string) SamplePayload {
	return SamplePayload{Type: PayloadText, T: t, Text: text}
}

// NewEvent builds an "event" payload. The decoder keeps event payloads
// intact; the server's dispatch discards them, so they have no trace
// side-effect (open question resolved in favor of drop, per SPEC_FULL.md).
func NewEvent(t float64, attributes map[string]string) SamplePayload {
	return SamplePayload{Type: PayloadEvent, T: t, Attributes: attributes}
}

// NewProfileEnter builds a "profile" payload for function entry.
func NewProfileEnter(t float64, callee string) SamplePayload {
	return SamplePayload{Type: PayloadProfile, T: t, ProfileEvent: ProfileEnter, Callee: callee}
}

// NewProfileExit builds a "profile" payload for function exit.
func NewProfileExit(t float64) SamplePayload {
	return SamplePayload{Type: PayloadProfile, T: t, ProfileEvent: ProfileExit}
}

// MarshalCBOR implements cbor.Marshaler, emitting only the fields
// documented for p.Type.
func (p SamplePayload) MarshalCBOR() ([]byte, error) {
	m := map[string]any{"type": string(p.Type)}

	switch p.Type {
	case PayloadSample:
		m["t"] = p.T
		m["value"] = p.Value
	case PayloadBatch:
		batch := make([][2]float64, len(p.Batch))
		for i, pair := range p.Batch {
			batch[i] = pair
		}
		m["batch"] = batch
	case PayloadSamples:
		m["t"] = p.T
		m["dt"] = p.Dt
		m["values"] = p.Values
	case PayloadText:
		m["t"] = p.T
		m["text"] = p.Text
	case PayloadEvent:
		m["t"] = p.T
		m["attributes"] = p.Attributes
	case PayloadProfile:
		m["t"] = p.T
		if p.ProfileEvent == ProfileEnter {
			m["event"] = map[string]any{"enter": map[string]any{"callee": p.Callee}}
		} else {
			m["event"] = "exit"
		}
	default:
		return nil, fmt.Errorf("wire: unknown payload type %q", p.Type)
	}

	return cbor.Marshal(m)
}

// UnmarshalCBOR implements cbor.Unmarshaler. An unrecognized "type" value
// decodes successfully into a zero-data payload (unknownPayloadType) so
// that one malformed or newer-than-us entry in a batch never fails the
// whole frame.
func (p *SamplePayload) UnmarshalCBOR(data []byte) error {
	var raw map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}

	var typ string
	if v, ok := raw["type"]; ok {
		if err := cbor.Unmarshal(v, &typ); err != nil {
			return err
		}
	}

	switch PayloadType(typ) {
	case PayloadSample:
		*p = SamplePayload{Type: PayloadSample}
		decodeField(raw, "t", &p.T)
		decodeField(raw, "value", &p.Value)
	case PayloadBatch:
		*p = SamplePayload{Type: PayloadBatch}
		var pairs [][2]float64
		decodeField(raw, "batch", &pairs)
		p.Batch = make([]SamplePair, len(pairs))
		for i, pr := range pairs {
			p.Batch[i] = pr
		}
	case PayloadSamples:
		*p = SamplePayload{Type: PayloadSamples}
		decodeField(raw, "t", &p.T)
		decodeField(raw, "dt", &p.Dt)
		decodeField(raw, "values", &p.Values)
	case PayloadText:
		*p = SamplePayload{Type: PayloadText}
		decodeField(raw, "t", &p.T)
		decodeField(raw, "text", &p.Text)
	case PayloadEvent:
		*p = SamplePayload{Type: PayloadEvent}
		decodeField(raw, "t", &p.T)
		decodeField(raw, "attributes", &p.Attributes)
	case PayloadProfile:
		*p = SamplePayload{Type: PayloadProfile}
		decodeField(raw, "t", &p.T)
		decodeProfileEvent(raw, p)
	default:
		*p = SamplePayload{Type: unknownPayloadType}
	}
	return nil
}

func decodeField(raw map[string]cbor.RawMessage, key string, out any) {
	v, ok := raw[key]
	if !ok {
		return
	}
	_ = cbor.Unmarshal(v, out)
}

func decodeProfileEvent(raw map[string]cbor.RawMessage, p *SamplePayload) {
	v, ok := raw["event"]
	if !ok {
		return
	}

	var asString string
	if err := cbor.Unmarshal(v, &asString); err == nil && asString == ProfileExit {
		p.ProfileEvent = ProfileExit
		return
	}

	var asEnter struct {
		Enter struct {
			Callee string `cbor:"callee"`
		} `cbor:"enter"`
	}
	if err := cbor.Unmarshal(v, &asEnter); err == nil && asEnter.Enter.Callee != "" {
		p.ProfileEvent = ProfileEnter
		p.Callee = asEnter.Enter.Callee
	}
}

// SampleBatch is the top-level decoded wire message.
type SampleBatch struct {
	Name    string        `cbor:"name"`
	Payload SamplePayload `cbor:"payload"`
}
