package netsrv

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/grafana/tsdb/pkg/wire"
)

// peer owns exactly one accepted connection: wraps it in the length-
// delimited framing used by the wire protocol, decodes frames, dispatches
// them into the database, and reports traffic counters.
type peer struct {
	id   uuid.UUID
	conn net.Conn

	db      Ingestor
	events  *peerEventProcessor
	logger  log.Logger
	limiter *rate.Limiter

	bytesReceived   atomic.Int64
	samplesReceived atomic.Int64
}

func newPeer(id uuid.UUID, conn net.Conn, db Ingestor, events *peerEventProcessor, logger log.Logger, cfg Config) *peer {
	p := &peer{
		id:     id,
		conn:   conn,
		db:     db,
		events: events,
		logger: log.With(logger, "peer", conn.RemoteAddr().String()),
	}
	if cfg.PeerRateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.PeerRateLimit), cfg.PeerRateBurst)
	}
	return p
}

// run reads frames until EOF, kill-switch (ctx cancellation), or an
// unrecoverable I/O error. A CBOR decode failure drops only the offending
// frame and keeps the connection open, per §4.6's decoder policy; an I/O
// failure at the framing level drops the connection but never the server.
func (p *peer) run(ctx context.Context) error {
	defer p.conn.Close()

	reader := bufio.NewReader(p.conn)
	go p.closeOnCancel(ctx)

	for {
		batch, frameLen, err := wire.DecodeFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) || isClosedConnError(err) {
				level.Debug(p.logger).Log("msg", "peer connection closed")
				return nil
			}
			if errors.Is(err, wire.ErrDecode) {
				level.Warn(p.logger).Log("msg", "dropping malformed frame", "err", err)
				continue
			}
			level.Warn(p.logger).Log("msg", "peer connection failed", "err", err)
			return nil
		}

		if p.limiter != nil {
			// WaitN rejects requests larger than the burst, so a large
			// batch is paid for in burst-sized installments.
			samples, burst := estimateSamples(batch), p.limiter.Burst()
			for samples > 0 && burst > 0 {
				n := samples
				if n > burst {
					n = burst
				}
				if err := p.limiter.WaitN(ctx, n); err != nil {
					break
				}
				samples -= n
			}
		}

		result, err := dispatch(p.db, batch)
		if err != nil {
			level.Warn(p.logger).Log("msg", "failed to ingest batch", "signal", batch.Name, "err", err)
			continue
		}

		p.bytesReceived.Add(int64(frameLen))
		p.samplesReceived.Add(int64(result.samplesReceived))
		p.events.report(PeerEvent{
			PeerID:          p.id,
			BytesReceived:   int64(frameLen),
			SamplesReceived: int64(result.samplesReceived),
		})
	}
}

func (p *peer) closeOnCancel(ctx context.Context) {
	<-ctx.Done()
	_ = p.conn.Close()
}

func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

func estimateSamples(batch wire.SampleBatch) int {
	switch batch.Payload.Type {
	case wire.PayloadBatch:
		return len(batch.Payload.Batch)
	case wire.PayloadSamples:
		return len(batch.Payload.Values)
	case wire.PayloadSample, wire.PayloadText, wire.PayloadProfile:
		return 1
	default:
		return 0
	}
}
