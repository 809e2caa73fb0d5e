package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// MaxFrameSize bounds the length prefix accepted by DecodeFrame, guarding
// against a corrupt or hostile length header causing an unbounded
// allocation.
const MaxFrameSize = 64 << 20 // 64 MiB

// ErrDecode wraps a CBOR decode failure for a frame whose length-prefixed
// body was read successfully. Callers can distinguish this from a framing-
// level I/O failure with errors.Is: a decode failure means the connection
// is still positioned correctly for the next frame and should not be
// dropped, per the server's "log and drop the frame" policy.
var ErrDecode = errors.New("wire: cbor decode failed")

// EncodeFrame writes one length-prefixed CBOR frame: a 4-byte big-endian
// length, then that many bytes of CBOR-encoded batch.
func EncodeFrame(w io.Writer, batch SampleBatch) error {
	body, err := cbor.Marshal(batch)
	if err != nil {
		return fmt.Errorf("wire: encode: %w", err)
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write length header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write body: %w", err)
	}
	return nil
}

// DecodeFrame reads one length-prefixed CBOR frame and decodes it into a
// SampleBatch, returning the total number of bytes read off the wire for
// this frame (header plus body). It returns io.EOF unwrapped when the peer
// closed the connection cleanly before any bytes of a new frame arrived.
func DecodeFrame(r *bufio.Reader) (SampleBatch, int, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return SampleBatch{}, 0, fmt.Errorf("wire: truncated length header: %w", err)
		}
		return SampleBatch{}, 0, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return SampleBatch{}, 0, fmt.Errorf("wire: frame length %d exceeds maximum %d", length, MaxFrameSize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return SampleBatch{}, 0, fmt.Errorf("wire: read body: %w", err)
	}

	var batch SampleBatch
	if err := cbor.Unmarshal(body, &batch); err != nil {
		return SampleBatch{}, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return batch, len(header) + len(body), nil
}
