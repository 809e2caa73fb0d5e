package netsrv

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PeerEvent reports traffic observed on one peer connection.
type PeerEvent struct {
	PeerID          uuid.UUID
	BytesReceived   int64
	SamplesReceived int64
}

// Tracer is the self-instrumentation sink the peer-event processor
// forwards traffic counters to. Implemented by pkg/tracer; declared here,
// narrowly, so netsrv does not need to import it.
type Tracer interface {
	TraceValue(name string, t, v float64)
}

type peerEventMetrics struct {
	bytesReceived   *prometheus.CounterVec
	samplesReceived *prometheus.CounterVec
	peersConnected  prometheus.Gauge
}

func newPeerEventMetrics(reg prometheus.Registerer) *peerEventMetrics {
	f := promauto.With(reg)
	return &peerEventMetrics{
		bytesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tsdb",
			Subsystem: "netsrv",
			Name:      "bytes_received_total",
			Help:      "Total bytes received, by peer.",
		}, []string{"peer"}),
		samplesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tsdb",
			Subsystem: "netsrv",
			Name:      "samples_received_total",
			Help:      "Total observations ingested, by peer.",
		}, []string{"peer"}),
		peersConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tsdb",
			Subsystem: "netsrv",
			Name:      "peers_connected",
			Help:      "Number of currently connected peers.",
		}),
	}
}

// peerEventProcessor consumes PeerEvent off a channel and forwards
// byte/sample counts to Prometheus and to the self-instrumentation tracer.
// It is its own services.Service so the server can shut it down last, once
// every peer goroutine has exited and stopped producing events.
type peerEventProcessor struct {
	events  chan PeerEvent
	tracer  Tracer
	metrics *peerEventMetrics
	logger  log.Logger

	now func() float64
}

func newPeerEventProcessor(logger log.Logger, reg prometheus.Registerer, trc Tracer, now func() float64) *peerEventProcessor {
	return &peerEventProcessor{
		events:  make(chan PeerEvent, 256),
		tracer:  trc,
		metrics: newPeerEventMetrics(reg),
		logger:  logger,
		now:     now,
	}
}

func (p *peerEventProcessor) asService() services.Service {
	return services.NewBasicService(nil, p.run, p.stop)
}

func (p *peerEventProcessor) run(ctx context.Context) error {
	for {
		select {
		case ev, ok := <-p.events:
			if !ok {
				return nil
			}
			p.handle(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *peerEventProcessor) stop(_ error) error {
	// Drain whatever is already queued so a shutdown never silently drops
	// the last burst of traffic accounting.
	for {
		select {
		case ev, ok := <-p.events:
			if !ok {
				return nil
			}
			p.handle(ev)
		default:
			return nil
		}
	}
}

func (p *peerEventProcessor) handle(ev PeerEvent) {
	label := ev.PeerID.String()
	p.metrics.bytesReceived.WithLabelValues(label).Add(float64(ev.BytesReceived))
	p.metrics.samplesReceived.WithLabelValues(label).Add(float64(ev.SamplesReceived))

	if p.tracer == nil {
		return
	}
	now := p.now()
	p.tracer.TraceValue("netsrv.bytes_received", now, float64(ev.BytesReceived))
	p.tracer.TraceValue("netsrv.samples_received", now, float64(ev.SamplesReceived))
}

func (p *peerEventProcessor) report(ev PeerEvent) {
	select {
	case p.events <- ev:
	default:
		level.Warn(p.logger).Log("msg", "peer event queue full, dropping traffic accounting sample", "peer", ev.PeerID)
	}
}
