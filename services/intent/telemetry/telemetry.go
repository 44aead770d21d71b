// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs the global OpenTelemetry tracer provider and
// the W3C propagator.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Options selects an exporter. OTLPEndpoint wins over Stdout.
type Options struct {
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string

	// OTLPEndpoint is a host:port for the OTLP gRPC exporter.
	OTLPEndpoint string

	// Insecure disables TLS to the OTLP endpoint.
	Insecure bool

	// Stdout writes spans to StdoutWriter when no endpoint is set.
	Stdout bool

	// StdoutWriter defaults to os.Stdout.
	StdoutWriter io.Writer
}

// Init installs the W3C TraceContext and Baggage propagator and, when an
// exporter is selected, a batching tracer provider.
//
// Description:
//
//	Without an exporter the global provider stays the no-op default and
//	the returned ShutdownFunc does nothing. Spans started before Init are
//	delegated once a provider is installed.
//
// Inputs:
//
//	ctx - Used to construct the OTLP exporter.
//	opts - Exporter selection.
//	logger - Startup log line. Nil uses slog.Default().
//
// Outputs:
//
//	ShutdownFunc - Always non-nil.
//	error - Exporter construction failure.
func Init(ctx context.Context, opts Options, logger *slog.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	var (
		exporter sdktrace.SpanExporter
		err      error
		kind     string
	)
	switch {
	case opts.OTLPEndpoint != "":
		kind = "otlp"
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.OTLPEndpoint)}
		if opts.Insecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, clientOpts...)
	case opts.Stdout:
		kind = "stdout"
		stdoutOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if opts.StdoutWriter != nil {
			stdoutOpts = append(stdoutOpts, stdouttrace.WithWriter(opts.StdoutWriter))
		}
		exporter, err = stdouttrace.New(stdoutOpts...)
	default:
		return func(context.Context) error { return nil }, nil
	}
	if err != nil {
		return func(context.Context) error { return nil }, fmt.Errorf("telemetry: create %s exporter: %w", kind, err)
	}

	name := opts.ServiceName
	if name == "" {
		name = "wellintent"
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	)
	otel.SetTracerProvider(tp)

	logger.Info("telemetry: tracer provider installed",
		slog.String("exporter", kind),
		slog.String("service", name),
	)
	return tp.Shutdown, nil
}
