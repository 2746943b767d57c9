package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/health"
	"github.com/nadzzz/mediai/internal/transport"
	grpctransport "github.com/nadzzz/mediai/internal/transport/grpc"
	httptransport "github.com/nadzzz/mediai/internal/transport/http"
)

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser UI, the HTTP API and the optional gRPC service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			config.SetupLogging(cfg.Logging)
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	slog.Info("mediai starting", "version", version)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	conv := transport.NewLocal(p.dispatcher)

	var transports []transport.Transport
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP))
	}
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC))
	}
	if len(transports) == 0 {
		return fmt.Errorf("no transports enabled")
	}

	healthServer := health.New(cfg.Server.HealthPort)
	healthServer.SetBackends(p.dispatcher.Backends())
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, conv); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
				cancel()
			}
		}(t)
	}

	healthServer.SetReady(true)
	slog.Info("mediai ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("mediai stopped")
	return nil
}
