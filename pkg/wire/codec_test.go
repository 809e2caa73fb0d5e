package wire_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/grafana/tsdb/pkg/wire"
)

func TestPayloadRoundTrip(t *testing.T) {
	cases := []wire.SamplePayload{
		wire.NewSample(1.5, 42.0),
		wire.NewBatch([]wire.SamplePair{{0, 1}, {1, 2}, {2, 3}}),
		wire.NewSamples(0, 0.1, []float64{1, 2, 3}),
		wire.NewText(3.0, "hello world"),
		wire.NewEvent(4.0, map[string]string{"k": "v"}),
		wire.NewProfileEnter(5.0, "doWork"),
		wire.NewProfileExit(6.0),
	}

	for _, p := range cases {
		encoded, err := cbor.Marshal(p)
		require.NoError(t, err)

		var decoded wire.SamplePayload
		require.NoError(t, cbor.Unmarshal(encoded, &decoded))
		require.Equal(t, p, decoded)
	}
}

func TestSampleBatchFrameRoundTrip(t *testing.T) {
	batch := wire.SampleBatch{
		Name:    "cpu.load",
		Payload: wire.NewSample(1.0, 0.75),
	}

	var buf bytes.Buffer
	require.NoError(t, wire.EncodeFrame(&buf, batch))

	decoded, n, err := wire.DecodeFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Greater(t, n, 0)
	require.Equal(t, batch, decoded)
}

func TestUnknownPayloadTypeDecodesWithoutError(t *testing.T) {
	raw, err := cbor.Marshal(map[string]any{
		"name":    "future.signal",
		"payload": map[string]any{"type": "from_the_future", "whatever": 1},
	})
	require.NoError(t, err)

	var batch wire.SampleBatch
	require.NoError(t, cbor.Unmarshal(raw, &batch))
	require.Equal(t, "future.signal", batch.Name)
}

func TestDecodeFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	_, _, err := wire.DecodeFrame(bufio.NewReader(&buf))
	require.Error(t, err)
}

func TestMultipleFramesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	batches := []wire.SampleBatch{
		{Name: "a", Payload: wire.NewSample(0, 1)},
		{Name: "b", Payload: wire.NewText(1, "hi")},
	}
	for _, b := range batches {
		require.NoError(t, wire.EncodeFrame(&buf, b))
	}

	r := bufio.NewReader(&buf)
	for _, want := range batches {
		got, _, err := wire.DecodeFrame(r)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}
