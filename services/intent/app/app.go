// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package app assembles a Dispatcher from a ServiceConfig. Both the server
// and the CLI start here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/wellintent/services/intent/audit"
	"github.com/AleutianAI/wellintent/services/intent/catalog"
	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/config"
	"github.com/AleutianAI/wellintent/services/intent/dispatch"
	"github.com/AleutianAI/wellintent/services/intent/fixture"
	"github.com/AleutianAI/wellintent/services/intent/ports"
	"github.com/AleutianAI/wellintent/services/intent/remote"
)

// Runtime is an assembled dispatcher plus the resources it owns.
type Runtime struct {
	Dispatcher *dispatch.Dispatcher
	Config     *config.ServiceConfig

	closers []func() error
}

// Close releases owned resources. Safe to call on a nil Runtime.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Build wires a Dispatcher from cfg.
//
// Description:
//
//	Loads the catalog (CatalogPath or the embedded default), opens the
//	configured audit backend, creates the remote agent client when a URL
//	is set and uses the synthetic well engine with its text formatter.
//
// Inputs:
//
//	ctx - Used while loading the catalog.
//	cfg - Validated configuration.
//	logger - Shared logger. Nil uses slog.Default().
//
// Outputs:
//
//	*Runtime - Call Close when done.
//	error - Catalog, audit or remote client construction failure.
func Build(ctx context.Context, cfg *config.ServiceConfig, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Config: cfg}

	cat, err := loadCatalog(ctx, cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	cls, err := classify.New(cat, logger)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	auditLog, err := openAudit(cfg.AuditBackend, logger, rt)
	if err != nil {
		return nil, err
	}

	var agent ports.RemoteAgentClient
	if cfg.RemoteAgentEnabled() {
		client, err := remote.New(remote.Options{
			Endpoint:          cfg.RemoteAgentURL,
			Token:             config.RemoteAgentToken(),
			RequestsPerSecond: cfg.RemoteAgentRPS,
			Burst:             cfg.RemoteAgentBurst,
			Timeout:           cfg.RemoteAgentTimeout,
			Logger:            logger,
		})
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("create remote agent client: %w", err)
		}
		agent = client
	}

	d, err := dispatch.New(dispatch.Deps{
		Classifier:    cls,
		Engine:        fixture.NewDefaultEngine(),
		Formatter:     fixture.TextFormatter{},
		Methodologies: fixture.DefaultMethodologies(),
		Remote:        agent,
		Audit:         audit.NewRecorder(auditLog, logger),
		Logger:        logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Dispatcher = d

	logger.Info("dispatcher ready",
		slog.Int("intents", len(cat.Definitions())),
		slog.String("catalog", catalogSource(cfg.CatalogPath)),
		slog.String("audit_backend", cfg.AuditBackend),
		slog.Bool("remote_agent", agent != nil),
	)
	return rt, nil
}

func loadCatalog(ctx context.Context, path string) (*catalog.Catalog, error) {
	if path == "" {
		cat, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("load embedded catalog: %w", err)
		}
		return cat, nil
	}
	cat, err := catalog.LoadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}

func openAudit(backend string, logger *slog.Logger, rt *Runtime) (audit.Log, error) {
	switch backend {
	case config.AuditBackendBadger:
		b, err := audit.OpenBadgerLog(logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, b.Close)
		return b, nil
	case config.AuditBackendMemory, "":
		return audit.NewMemoryLog(), nil
	default:
		return nil, fmt.Errorf("%w: audit backend %q", config.ErrInvalidConfig, backend)
	}
}

func catalogSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
