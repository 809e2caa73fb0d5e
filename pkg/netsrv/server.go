// Package netsrv implements the framed TCP ingestion server: an accept
// loop spawning a decode goroutine per peer, feeding one shared database,
// with orderly kill-switch shutdown and self-instrumentation of traffic
// counters.
package netsrv

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

type serverMetrics struct {
	acceptErrors prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	return &serverMetrics{
		acceptErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "tsdb",
			Subsystem: "netsrv",
			Name:      "accept_errors_total",
			Help:      "Total errors returned by Accept on the ingestion listener.",
		}),
	}
}

// Server is the TCP ingestion server described in SPEC_FULL.md §4.6: binds
// an IPv6 unspecified address, accepts connections, and decodes framed
// sample batches into db. It is a services.Service: Start/AwaitRunning
// begin accepting, StopAsync/AwaitTerminated trigger and await an orderly
// shutdown of every peer.
type Server struct {
	services.Service

	cfg    Config
	db     Ingestor
	logger log.Logger

	listener net.Listener
	peersMu  sync.Mutex
	peers    map[uuid.UUID]context.CancelFunc

	eventProcessor *peerEventProcessor
	eventService   services.Service

	metrics *serverMetrics
}

// NewServer constructs a Server bound to cfg. trc may be nil to disable
// self-instrumentation forwarding.
func NewServer(cfg Config, db Ingestor, logger log.Logger, reg prometheus.Registerer, trc Tracer) *Server {
	s := &Server{
		cfg:            cfg,
		db:             db,
		logger:         logger,
		peers:          make(map[uuid.UUID]context.CancelFunc),
		eventProcessor: newPeerEventProcessor(logger, reg, trc, nowSeconds),
		metrics:        newServerMetrics(reg),
	}
	s.eventService = s.eventProcessor.asService()
	s.Service = services.NewBasicService(s.starting, s.running, s.stopping)
	return s
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func (s *Server) starting(ctx context.Context) error {
	if err := s.eventService.StartAsync(ctx); err != nil {
		return fmt.Errorf("netsrv: starting peer event processor: %w", err)
	}
	if err := s.eventService.AwaitRunning(ctx); err != nil {
		return fmt.Errorf("netsrv: peer event processor did not start: %w", err)
	}

	addr := &net.TCPAddr{IP: net.IPv6unspecified, Port: s.cfg.BindPort}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("netsrv: listen on %s: %w", addr, err)
	}
	s.listener = listener
	level.Info(s.logger).Log("msg", "ingestion server listening", "addr", listener.Addr())
	return nil
}

// running is the accept loop. It returns nil on ordinary shutdown (ctx
// cancellation closes the listener, which unblocks Accept with an error we
// recognize and swallow) and a non-nil error only for a genuine accept
// failure unrelated to shutdown.
func (s *Server) running(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(context.Background())

	acceptDone := make(chan struct{})
	var acceptErr error
	go func() {
		defer close(acceptDone)
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				s.metrics.acceptErrors.Inc()
				level.Warn(s.logger).Log("msg", "accept failed", "err", err)
				acceptErr = fmt.Errorf("netsrv: accept: %w", err)
				return
			}

			peerCtx, cancel := context.WithCancel(egCtx)
			id := uuid.New()
			s.registerPeer(id, cancel)

			p := newPeer(id, conn, s.db, s.eventProcessor, s.logger, s.cfg)
			eg.Go(func() error {
				defer s.unregisterPeer(id)
				return p.run(peerCtx)
			})
		}
	}()

	select {
	case <-ctx.Done():
	case <-acceptDone:
	}

	_ = s.listener.Close()
	<-acceptDone
	s.cancelAllPeers()
	if err := eg.Wait(); err != nil {
		return err
	}
	return acceptErr
}

func (s *Server) stopping(_ error) error {
	if err := s.eventService.StopAsync(); err != nil {
		level.Warn(s.logger).Log("msg", "failed to stop peer event processor", "err", err)
	}
	_ = s.eventService.AwaitTerminated(context.Background())
	level.Info(s.logger).Log("msg", "ingestion server stopped")
	return nil
}

func (s *Server) registerPeer(id uuid.UUID, cancel context.CancelFunc) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	s.peers[id] = cancel
	s.eventProcessor.metrics.peersConnected.Inc()
}

func (s *Server) unregisterPeer(id uuid.UUID) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	if _, ok := s.peers[id]; !ok {
		return
	}
	delete(s.peers, id)
	s.eventProcessor.metrics.peersConnected.Dec()
}

func (s *Server) cancelAllPeers() {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	for _, cancel := range s.peers {
		cancel()
	}
}

// PeerCount reports the number of currently connected peers.
func (s *Server) PeerCount() int {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	return len(s.peers)
}

// Addr returns the listener's bound address; only valid once the service
// has reached the Running state.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
