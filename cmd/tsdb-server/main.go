// Command tsdb-server runs the TCP ingestion server: it accepts framed
// sample-batch connections, stores everything in an in-memory aggregation
// database, and exposes the database to anything in-process that wants to
// query it (a future HTTP/gRPC query surface, or an embedding program).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/tsdb/internal/config"
	"github.com/grafana/tsdb/pkg/netsrv"
	"github.com/grafana/tsdb/pkg/session"
	"github.com/grafana/tsdb/pkg/tracer"
	"github.com/grafana/tsdb/pkg/tsdb"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed parsing config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)

	for _, w := range cfg.CheckConfig() {
		output := []any{"msg", w.Message}
		if w.Explain != "" {
			output = append(output, "explain", w.Explain)
		}
		level.Warn(logger).Log(output...)
	}

	reg := prometheus.NewRegistry()

	var dbOpts []tsdb.Option
	if cfg.RewindSnapshotCapacity > 0 {
		dbOpts = append(dbOpts, tsdb.WithRewindSnapshots(cfg.RewindSnapshotCapacity))
	}
	db := tsdb.NewDatabase(logger, reg, dbOpts...)

	if cfg.SessionPath != "" {
		if s, err := session.Load(cfg.SessionPath); err != nil {
			level.Warn(logger).Log("msg", "failed to load session", "path", cfg.SessionPath, "err", err)
		} else {
			level.Info(logger).Log("msg", "loaded session", "path", cfg.SessionPath, "items", len(s.Dashboard))
		}
	}

	srv := netsrv.NewServer(cfg.Net, db, logger, reg, tracer.NewDBTracer(db))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.StartAsync(ctx); err != nil {
		level.Error(logger).Log("msg", "failed to start server", "err", err)
		os.Exit(1)
	}
	if err := srv.AwaitRunning(ctx); err != nil {
		level.Error(logger).Log("msg", "server did not reach running state", "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log("msg", "tsdb-server running", "addr", srv.Addr())

	<-ctx.Done()
	level.Info(logger).Log("msg", "shutting down")

	srv.StopAsync()
	if err := srv.AwaitTerminated(context.Background()); err != nil {
		level.Error(logger).Log("msg", "error during shutdown", "err", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var configFile string

	probe := flag.NewFlagSet("", flag.ContinueOnError)
	probe.SetOutput(os.Stderr)
	probe.StringVar(&configFile, "config.file", "", "Path to a YAML config file.")
	// Ignore errors from the probe pass: the real flag set below reports
	// anything actually malformed.
	_ = probe.Parse(os.Args[1:])

	cfg := &config.Config{}
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.String("config.file", "", "Path to a YAML config file.")
	cfg.RegisterFlagsAndApplyDefaults("", fs)

	if configFile != "" {
		if err := config.Load(configFile, cfg); err != nil {
			return nil, err
		}
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	return cfg, nil
}

func newLogger(levelName, format string) log.Logger {
	var logger log.Logger
	if format == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var filter level.Option
	switch levelName {
	case "debug":
		filter = level.AllowDebug()
	case "warn":
		filter = level.AllowWarn()
	case "error":
		filter = level.AllowError()
	default:
		filter = level.AllowInfo()
	}
	return level.NewFilter(logger, filter)
}
