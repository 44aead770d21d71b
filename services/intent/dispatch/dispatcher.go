// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dispatch routes a classified request to its handler and returns
// a ResultEnvelope on every path.
//
// Handler errors and panics are converted to failure envelopes at the
// Dispatcher boundary. The Dispatcher is the only writer of the audit
// trail.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sahilm/fuzzy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/wellintent/services/intent/audit"
	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/ports"
)

// MaxGuidedExamples caps the wells suggested by a missing-target failure.
const MaxGuidedExamples = 3

// AnonymousActor is recorded when the session names no actor.
const AnonymousActor = "anonymous"

var (
	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("dispatch: missing dependency")

	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("handler panicked")
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellintent",
		Subsystem: "dispatch",
		Name:      "total",
		Help:      "Total dispatches by intent and outcome",
	}, []string{"intent", "outcome"})

	dispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wellintent",
		Subsystem: "dispatch",
		Name:      "latency_seconds",
		Help:      "Dispatch latency by intent",
		Buckets:   prometheus.DefBuckets,
	}, []string{"intent"})

	dispatchRemoteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellintent",
		Subsystem: "dispatch",
		Name:      "remote_errors_total",
		Help:      "Remote agent failures by kind",
	}, []string{"kind"})
)

var dispatchTracer = otel.Tracer("wellintent.dispatch")

// =============================================================================
// Dispatcher
// =============================================================================

// SessionContext identifies the caller of one dispatch.
type SessionContext struct {
	SessionID string
	Actor     string
	RequestID string
}

// Deps are the Dispatcher's collaborators.
type Deps struct {
	// Classifier resolves text to an intent. Required.
	Classifier *classify.Classifier

	// Engine performs domain computations. Required.
	Engine ports.ComputationEngine

	// Formatter renders messages. Required.
	Formatter ports.ResponseFormatter

	// Methodologies documents calculations. Required.
	Methodologies ports.MethodologyRegistry

	// Remote answers open-ended questions. Optional; nil fails those requests.
	Remote ports.RemoteAgentClient

	// Audit records successful targeted dispatches. Required.
	Audit *audit.Recorder

	// Logger for diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Dispatcher maps a classification to a handler and isolates its failures.
//
// Description:
//
//	Dispatch classifies the text, builds the request variant for the
//	resolved intent, invokes the handler and normalizes the result.
//	Handlers run to completion one after another within a request.
//
// Thread Safety: Safe for concurrent use. Concurrent dispatches share only
// the immutable catalog and the audit log, whose appends are atomic.
type Dispatcher struct {
	classifier    *classify.Classifier
	engine        ports.ComputationEngine
	formatter     ports.ResponseFormatter
	methodologies ports.MethodologyRegistry
	remote        ports.RemoteAgentClient
	audit         *audit.Recorder
	logger        *slog.Logger
}

// New creates a Dispatcher.
//
// Inputs:
//
//	deps - Collaborators. Classifier, Engine, Formatter, Methodologies and
//	       Audit must be set.
//
// Outputs:
//
//	*Dispatcher - Ready for use.
//	error - Wraps ErrMissingDependency naming the first nil collaborator.
func New(deps Deps) (*Dispatcher, error) {
	switch {
	case deps.Classifier == nil:
		return nil, fmt.Errorf("%w: classifier", ErrMissingDependency)
	case deps.Engine == nil:
		return nil, fmt.Errorf("%w: computation engine", ErrMissingDependency)
	case deps.Formatter == nil:
		return nil, fmt.Errorf("%w: response formatter", ErrMissingDependency)
	case deps.Methodologies == nil:
		return nil, fmt.Errorf("%w: methodology registry", ErrMissingDependency)
	case deps.Audit == nil:
		return nil, fmt.Errorf("%w: audit recorder", ErrMissingDependency)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		classifier:    deps.Classifier,
		engine:        deps.Engine,
		formatter:     deps.Formatter,
		methodologies: deps.Methodologies,
		remote:        deps.Remote,
		audit:         deps.Audit,
		logger:        logger,
	}, nil
}

// Classifier returns the classifier used by Dispatch.
func (d *Dispatcher) Classifier() *classify.Classifier {
	return d.classifier
}

// AuditEntries returns the audit trail for entity in append order.
func (d *Dispatcher) AuditEntries(ctx context.Context, entity string) ([]audit.Entry, error) {
	return d.audit.Entries(ctx, entity)
}

// Dispatch resolves text and runs its handler.
//
// Description:
//
//	A target-requiring intent without an extracted well returns a guided
//	failure listing up to MaxGuidedExamples wells. Any handler error or
//	panic becomes a failure envelope carrying the error text. One audit
//	entry is appended per successful dispatch whose request names a well.
//
// Inputs:
//
//	ctx - Passed to every collaborator call. No timeout is added here.
//	text - The raw request.
//	sess - Caller identity. May be nil.
//
// Outputs:
//
//	ResultEnvelope - Always finalized: a failure has a message and no artifacts.
//
// Thread Safety: Safe for concurrent use.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, sess *SessionContext) ResultEnvelope {
	start := time.Now()
	if sess == nil {
		sess = &SessionContext{}
	}
	actor := sess.Actor
	if actor == "" {
		actor = AnonymousActor
	}

	ctx, span := dispatchTracer.Start(ctx, "dispatch.Dispatch")
	defer span.End()

	logger := d.logger.With(
		slog.String("request_id", sess.RequestID),
		slog.String("session_id", sess.SessionID),
	)
	if sc := span.SpanContext(); sc.IsValid() {
		logger = logger.With(slog.String("trace_id", sc.TraceID().String()))
	}

	cls := d.classifier.Classify(text)
	span.SetAttributes(
		attribute.String("intent", string(cls.Type)),
		attribute.Int("score", cls.Score),
		attribute.String("source", string(cls.Source)),
		attribute.String("target", cls.TargetEntity),
		attribute.String("method", cls.Method),
	)

	env := d.dispatchClassified(ctx, logger, text, cls, sess.SessionID, actor)
	env.Classification = &cls
	env = Finalize(env)

	result := "success"
	if !env.Success {
		result = "failure"
		span.SetStatus(codes.Error, env.Message)
	}
	dispatchTotal.WithLabelValues(string(cls.Type), result).Inc()
	dispatchLatency.WithLabelValues(string(cls.Type)).Observe(time.Since(start).Seconds())

	logger.Info("dispatch complete",
		slog.String("intent", string(cls.Type)),
		slog.String("source", string(cls.Source)),
		slog.Int("score", cls.Score),
		slog.String("target", cls.TargetEntity),
		slog.Bool("success", env.Success),
		slog.Duration("duration", time.Since(start)),
	)
	return env
}

func (d *Dispatcher) dispatchClassified(
	ctx context.Context,
	logger *slog.Logger,
	text string,
	cls classify.Classification,
	sessionID, actor string,
) ResultEnvelope {
	req, err := BuildRequest(cls, text, sessionID)
	if errors.Is(err, ErrMissingTarget) {
		return d.guidedFailure(ctx, cls)
	}
	if err != nil {
		return Failed(err.Error())
	}

	out, err := d.invoke(ctx, req)
	if err != nil {
		logger.Warn("dispatch: handler failed",
			slog.String("intent", string(cls.Type)),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, ports.ErrTargetNotFound) {
			return d.unknownTargetFailure(ctx, req.Target(), err)
		}
		return Failed(err.Error())
	}

	env := out.envelope
	if env.Success && out.record != nil && req.Target() != "" {
		rec := *out.record
		rec.Actor = actor
		if _, err := d.audit.Record(ctx, req.Target(), text, rec); err != nil {
			logger.Error("dispatch: audit append failed",
				slog.String("target", req.Target()),
				slog.String("error", err.Error()),
			)
			env.Diagnostics = append(env.Diagnostics, "audit trail not updated: "+err.Error())
		}
	}
	return env
}

// invoke runs the handler and converts a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, req Request) (out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{}
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return d.route(ctx, req)
}

// guidedFailure explains that a well is needed and suggests some.
func (d *Dispatcher) guidedFailure(ctx context.Context, cls classify.Classification) ResultEnvelope {
	label := strings.ReplaceAll(string(cls.Type), "_", " ")
	msg := fmt.Sprintf("Please specify which well to use for %s.", label)

	ids, err := d.targetIDs(ctx)
	if err != nil {
		d.logger.Warn("dispatch: listing example wells failed", slog.String("error", err.Error()))
		return Failed(msg, ErrMissingTarget.Error())
	}

	if n := min(len(ids), MaxGuidedExamples); n > 0 {
		msg += " For example: " + strings.Join(ids[:n], ", ") + "."
	}
	return Failed(msg, ErrMissingTarget.Error())
}

// unknownTargetFailure reports err and suggests wells whose identifiers
// fuzzily match the one the user typed.
func (d *Dispatcher) unknownTargetFailure(ctx context.Context, entity string, err error) ResultEnvelope {
	msg := err.Error()
	if entity == "" {
		return Failed(msg)
	}
	ids, listErr := d.targetIDs(ctx)
	if listErr != nil {
		return Failed(msg)
	}
	matches := fuzzy.Find(entity, ids)
	if len(matches) == 0 {
		return Failed(msg)
	}

	n := min(len(matches), MaxGuidedExamples)
	suggestions := make([]string, 0, n)
	for _, m := range matches[:n] {
		suggestions = append(suggestions, m.Str)
	}
	return Failed(msg+". Did you mean: "+strings.Join(suggestions, ", ")+"?", ports.ErrTargetNotFound.Error())
}

// targetIDs lists well identifiers outside any handler, so a panicking
// engine is recovered here too.
func (d *Dispatcher) targetIDs(ctx context.Context) (ids []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			ids, err = nil, fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	targets, err := d.engine.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	ids = make([]string, len(targets))
	for i, t := range targets {
		ids[i] = t.ID
	}
	return ids, nil
}
