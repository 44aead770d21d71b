// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command intentd serves well-log intent classification and dispatch over HTTP.
//
// Usage:
//
//	go run ./cmd/intentd
//	go run ./cmd/intentd -port 9090 -debug
//
// With a remote analysis agent:
//
//	WELLINTENT_REMOTE_AGENT_URL=http://localhost:9000/agent \
//	WELLINTENT_REMOTE_AGENT_TOKEN=... go run ./cmd/intentd
//
// Example requests:
//
//	curl http://localhost:8080/v1/intent/health
//
//	curl -X POST http://localhost:8080/v1/intent/dispatch \
//	  -H "Content-Type: application/json" \
//	  -d '{"text": "calculate porosity for SANDSTONE_RESERVOIR_001"}'
//
//	curl http://localhost:8080/v1/intent/audit/SANDSTONE_RESERVOIR_001 | jq
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/wellintent/services/intent/app"
	"github.com/AleutianAI/wellintent/services/intent/config"
	"github.com/AleutianAI/wellintent/services/intent/logging"
	"github.com/AleutianAI/wellintent/services/intent/server"
	"github.com/AleutianAI/wellintent/services/intent/telemetry"
)

const serviceName = "wellintent"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "intentd: %v\n", err)
		memguard.SafeExit(1)
	}
	memguard.Purge()
}

func run() error {
	port := flag.Int("port", 0, "Port to listen on (overrides WELLINTENT_PORT)")
	debug := flag.Bool("debug", false, "Enable debug mode and request logging")
	flag.Parse()

	cfg, err := config.LoadServiceConfig()
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if *debug {
		level = slog.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := logging.Init(cfg.LogFormat, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Insecure:     true,
		Stdout:       cfg.TraceStdout,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close failed", slog.String("error", err.Error()))
		}
	}()

	handlers := server.NewHandlers(rt.Dispatcher, cfg.BatchConcurrency, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.NewRouter(handlers, serviceName, *debug),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("intentd listening", slog.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
