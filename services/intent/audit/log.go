// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit keeps the append-only, per-entity record of dispatched
// operations.
//
// Entries for one entity are returned in append order. Concurrent appends
// to the same entity are all kept; their relative order is whatever order
// the appends were serialized in.
package audit

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptyEntity is returned when an append names no entity.
var ErrEmptyEntity = errors.New("audit: entity must not be empty")

var (
	auditAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellintent",
		Subsystem: "audit",
		Name:      "appends_total",
		Help:      "Audit entries appended by operation and outcome",
	}, []string{"operation", "status"})
)

// Entry is one audited operation.
type Entry struct {
	ID          string         `json:"id"`
	Entity      string         `json:"entity"`
	Timestamp   time.Time      `json:"timestamp"`
	Operation   string         `json:"operation"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Results     map[string]any `json:"results,omitempty"`
	Methodology string         `json:"methodology,omitempty"`
	Actor       string         `json:"actor,omitempty"`
}

// Log is an append-only per-entity audit store.
//
// Implementations must be safe for concurrent use and must never drop or
// overwrite an entry.
type Log interface {
	// Append stores e under entity and returns the stored entry.
	Append(ctx context.Context, entity string, e Entry) (Entry, error)

	// Entries returns entity's entries in append order. Unknown entities
	// return an empty slice.
	Entries(ctx context.Context, entity string) ([]Entry, error)
}

// stamp fills the fields the store owns.
func stamp(entity string, e Entry) Entry {
	e.Entity = entity
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e
}

// Recorder appends to a Log and emits a structured audit line per entry.
//
// Description:
//
//	The structured line carries the entity, operation, actor and a SHA256
//	digest of the request text, never the text itself. Trace and span ids
//	are attached when ctx carries a valid span.
//
// Thread Safety: Safe for concurrent use.
type Recorder struct {
	log    Log
	logger *slog.Logger
}

// NewRecorder creates a Recorder over log.
//
// Inputs:
//   - log: The backing store. Must not be nil.
//   - logger: Logger for audit lines. Nil uses slog.Default().
func NewRecorder(log Log, logger *slog.Logger) *Recorder {
	if log == nil {
		panic("NewRecorder: log must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{log: log, logger: logger}
}

// Record appends e under entity.
//
// Inputs:
//   - ctx: Context carrying trace information.
//   - entity: The well identifier. Must not be empty.
//   - requestText: The originating request, hashed for the log line.
//   - e: The entry. ID and Timestamp are assigned when zero.
//
// Outputs:
//   - Entry: The stored entry.
//   - error: ErrEmptyEntity or a store failure.
func (r *Recorder) Record(ctx context.Context, entity, requestText string, e Entry) (Entry, error) {
	if entity == "" {
		auditAppendsTotal.WithLabelValues(e.Operation, "rejected").Inc()
		return Entry{}, ErrEmptyEntity
	}

	stored, err := r.log.Append(ctx, entity, e)
	if err != nil {
		auditAppendsTotal.WithLabelValues(e.Operation, "error").Inc()
		return Entry{}, fmt.Errorf("audit record: %w", err)
	}
	auditAppendsTotal.WithLabelValues(e.Operation, "ok").Inc()

	attrs := []any{
		slog.String("event", "audit_append"),
		slog.String("audit_id", stored.ID),
		slog.String("entity", entity),
		slog.String("operation", stored.Operation),
		slog.String("actor", stored.Actor),
		slog.Int64("timestamp", stored.Timestamp.UnixMilli()),
	}
	if h := HashText(requestText); h != "" {
		attrs = append(attrs, slog.String("request_hash", h))
	}
	r.loggerWithTrace(ctx).Info("audit entry", attrs...)

	return stored, nil
}

// Entries returns entity's entries in append order.
func (r *Recorder) Entries(ctx context.Context, entity string) ([]Entry, error) {
	return r.log.Entries(ctx, entity)
}

// loggerWithTrace returns a logger enriched with trace context.
func (r *Recorder) loggerWithTrace(ctx context.Context) *slog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return r.logger
	}
	return r.logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}

// HashText returns the hex SHA256 digest of text, or "" for empty text.
func HashText(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)
}
