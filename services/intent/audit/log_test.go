// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// =============================================================================
// Helpers
// =============================================================================

type backend struct {
	name string
	open func(t *testing.T) Log
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Log { return NewMemoryLog() }},
		{"badger", func(t *testing.T) Log {
			t.Helper()
			b, err := OpenBadgerLog(nil)
			if err != nil {
				t.Fatalf("OpenBadgerLog: %v", err)
			}
			t.Cleanup(func() { _ = b.Close() })
			return b
		}},
	}
}

// =============================================================================
// Log contract, run against every backend
// =============================================================================

func TestLog_AppendOrder(t *testing.T) {
	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			log := be.open(t)
			ctx := context.Background()

			const n = 25
			for i := 0; i < n; i++ {
				_, err := log.Append(ctx, "WELL-001", Entry{
					Operation:  fmt.Sprintf("op-%02d", i),
					Parameters: map[string]any{"method": "density"},
					Actor:      "tester",
				})
				if err != nil {
					t.Fatalf("Append %d: %v", i, err)
				}
			}
			// Another entity must not leak into WELL-001's log.
			if _, err := log.Append(ctx, "WELL-0010", Entry{Operation: "other"}); err != nil {
				t.Fatalf("Append other: %v", err)
			}

			got, err := log.Entries(ctx, "WELL-001")
			if err != nil {
				t.Fatalf("Entries: %v", err)
			}
			if len(got) != n {
				t.Fatalf("expected %d entries, got %d", n, len(got))
			}
			for i, e := range got {
				if want := fmt.Sprintf("op-%02d", i); e.Operation != want {
					t.Errorf("entry %d operation = %q, want %q", i, e.Operation, want)
				}
				if e.ID == "" {
					t.Errorf("entry %d has no ID", i)
				}
				if e.Entity != "WELL-001" {
					t.Errorf("entry %d entity = %q", i, e.Entity)
				}
				if e.Timestamp.IsZero() {
					t.Errorf("entry %d has no timestamp", i)
				}
				if e.Parameters["method"] != "density" {
					t.Errorf("entry %d parameters = %v", i, e.Parameters)
				}
			}
		})
	}
}

func TestLog_ConcurrentAppendsKeepEveryEntry(t *testing.T) {
	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			log := be.open(t)
			ctx := context.Background()

			const writers, perWriter = 8, 20
			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						if _, err := log.Append(ctx, "SHARED_1", Entry{Operation: fmt.Sprintf("w%d-%d", w, i)}); err != nil {
							t.Errorf("Append: %v", err)
						}
					}
				}(w)
			}
			wg.Wait()

			got, err := log.Entries(ctx, "SHARED_1")
			if err != nil {
				t.Fatalf("Entries: %v", err)
			}
			if len(got) != writers*perWriter {
				t.Fatalf("expected %d entries, got %d", writers*perWriter, len(got))
			}
			seen := make(map[string]bool, len(got))
			for _, e := range got {
				if seen[e.Operation] {
					t.Errorf("duplicate entry %s", e.Operation)
				}
				seen[e.Operation] = true
			}
		})
	}
}

func TestLog_EmptyAndUnknownEntity(t *testing.T) {
	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			log := be.open(t)
			ctx := context.Background()

			if _, err := log.Append(ctx, "", Entry{Operation: "x"}); !errors.Is(err, ErrEmptyEntity) {
				t.Errorf("expected ErrEmptyEntity, got %v", err)
			}

			got, err := log.Entries(ctx, "NOBODY_1")
			if err != nil {
				t.Fatalf("Entries: %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", got)
			}
		})
	}
}

func TestMemoryLog_EntriesIsACopy(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()
	_, _ = log.Append(ctx, "WELL-001", Entry{Operation: "a"})

	got, _ := log.Entries(ctx, "WELL-001")
	got[0].Operation = "mutated"

	again, _ := log.Entries(ctx, "WELL-001")
	if again[0].Operation != "a" {
		t.Errorf("stored entry was mutated through Entries: %q", again[0].Operation)
	}
}

func TestBadgerLog_EntityWithSlash(t *testing.T) {
	b, err := OpenBadgerLog(nil)
	if err != nil {
		t.Fatalf("OpenBadgerLog: %v", err)
	}
	defer b.Close()
	ctx := context.Background()

	_, _ = b.Append(ctx, "A/B", Entry{Operation: "nested"})
	_, _ = b.Append(ctx, "A", Entry{Operation: "parent"})

	got, _ := b.Entries(ctx, "A")
	if len(got) != 1 || got[0].Operation != "parent" {
		t.Errorf("expected only the parent entry, got %+v", got)
	}
}

func TestBadgerLog_CancelledContext(t *testing.T) {
	b, err := OpenBadgerLog(nil)
	if err != nil {
		t.Fatalf("OpenBadgerLog: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Append(ctx, "WELL-001", Entry{Operation: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// =============================================================================
// Recorder
// =============================================================================

func TestRecorder_Record(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := NewRecorder(NewMemoryLog(), logger)

	entry, err := rec.Record(context.Background(), "WELL-001", "calculate porosity for WELL-001", Entry{
		Operation: "calculate_porosity",
		Actor:     "analyst",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"audit_append", entry.ID, "WELL-001", "calculate_porosity", "request_hash"} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q: %s", want, output)
		}
	}
	if strings.Contains(output, "calculate porosity for") {
		t.Error("output must not contain the raw request text")
	}

	got, _ := rec.Entries(context.Background(), "WELL-001")
	if len(got) != 1 || got[0].ID != entry.ID {
		t.Errorf("unexpected entries: %+v", got)
	}
}

func TestRecorder_EmptyEntity(t *testing.T) {
	rec := NewRecorder(NewMemoryLog(), slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))
	if _, err := rec.Record(context.Background(), "", "x", Entry{Operation: "op"}); !errors.Is(err, ErrEmptyEntity) {
		t.Errorf("expected ErrEmptyEntity, got %v", err)
	}
}

func TestRecorder_TraceIDs(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "dispatch")
	defer span.End()

	var buf bytes.Buffer
	rec := NewRecorder(NewMemoryLog(), slog.New(slog.NewJSONHandler(&buf, nil)))
	if _, err := rec.Record(ctx, "WELL-001", "", Entry{Operation: "well_info"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if !strings.Contains(buf.String(), span.SpanContext().TraceID().String()) {
		t.Error("output should contain trace_id")
	}
	if strings.Contains(buf.String(), "request_hash") {
		t.Error("empty request text should not produce a hash")
	}
}

func TestHashText(t *testing.T) {
	if HashText("") != "" {
		t.Error("expected empty hash for empty text")
	}
	h := HashText("porosity")
	if len(h) != 64 || h != HashText("porosity") {
		t.Errorf("unexpected hash %q", h)
	}
}
