// Package main implements the streamfan daemon: a realtime stream fanout
// server exposing timelines and per-entity event channels over WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/streamfan/config"
	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/metric"
	"github.com/c360/streamfan/natsbridge"
	"github.com/c360/streamfan/server"
	"github.com/c360/streamfan/stream"
	"github.com/c360/streamfan/stream/channels"
)

const (
	Version = "0.1.0"
	appName = "streamfan"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to JSON config file (optional)")
	showVersion := flag.Bool("version", false, "print version and exit")
	shutdownTimeout := flag.Duration("shutdown-timeout", 15*time.Second, "graceful shutdown timeout")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	slog.Info("starting streamfan", "version", Version, "config_path", *configPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var metricsRegistry *metric.MetricsRegistry
	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsRegistry = metric.NewMetricsRegistry()
		metricsServer = metric.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, metricsRegistry)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	bus := eventbus.New(
		eventbus.WithLogger(logger),
		eventbus.WithMetrics(eventbus.NewMetrics(metricsRegistry)),
	)

	registry := stream.NewRegistry()
	if err := channels.RegisterAll(registry); err != nil {
		return fmt.Errorf("register channels: %w", err)
	}

	// The nop services are the integration seam: a deployment links its own
	// entity, role and chat backends here.
	services := stream.NopServices()
	cachedState := stream.NewCachedStateProvider(ctx, services.State, cfg.Stream.StateCacheTTL.AsDuration())
	defer cachedState.Close()
	services.State = cachedState

	var bridge *natsbridge.Bridge
	if cfg.NATS.Enabled {
		bridge, err = natsbridge.New(natsbridge.Options{
			Config: natsbridge.Config{
				URL:           cfg.NATS.URL,
				SubjectPrefix: cfg.NATS.SubjectPrefix,
			},
			Bus:     bus,
			Logger:  logger,
			Metrics: natsbridge.NewMetrics(metricsRegistry),
		})
		if err != nil {
			return fmt.Errorf("connect fanout bridge: %w", err)
		}
		defer func() {
			if err := bridge.Close(); err != nil {
				slog.Warn("close fanout bridge failed", "error", err)
			}
		}()
	}

	srv, err := server.New(server.Options{
		Config: server.Config{
			Addr:                 cfg.Server.Addr,
			Path:                 cfg.Server.Path,
			AllowedOrigins:       cfg.Server.AllowedOrigins,
			MaxChannels:          cfg.Stream.MaxChannels,
			StateRefreshInterval: cfg.Stream.StateRefreshInterval.AsDuration(),
		},
		Bus:      bus,
		Registry: registry,
		Services: services,
		Logger:   logger,
		Metrics:  stream.NewMetrics(metricsRegistry),
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	slog.Info("streamfan started", "addr", cfg.Server.Addr)
	<-ctx.Done()
	slog.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Warn("server shutdown incomplete", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown incomplete", "error", err)
		}
	}

	slog.Info("streamfan stopped")
	return nil
}
