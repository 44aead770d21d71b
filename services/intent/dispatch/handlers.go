// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/wellintent/services/intent/audit"
	"github.com/AleutianAI/wellintent/services/intent/catalog"
	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/ports"
)

var (
	// ErrMethodologyNotFound is returned when the registry has no document for a topic.
	ErrMethodologyNotFound = errors.New("no methodology documented")

	// ErrNoTargets is returned when a correlation has no wells to compare.
	ErrNoTargets = errors.New("no wells available")

	// ErrRemoteNotConfigured is returned when no remote agent client is wired.
	ErrRemoteNotConfigured = errors.New("remote agent is not configured")
)

// MethodDataQuality is the engine method for the completeness assessment.
const MethodDataQuality = "completeness"

// formationSteps are run in order by formation evaluation.
var formationSteps = []struct {
	calc   ports.Calculation
	method string
}{
	{ports.CalcPorosity, classify.MethodDensity},
	{ports.CalcShaleVolume, classify.MethodLarionovTertiary},
	{ports.CalcSaturation, classify.MethodArchie},
}

// methodologyTopics maps a calculation to its methodology registry key.
var methodologyTopics = map[ports.Calculation]string{
	ports.CalcPorosity:    classify.MethodologyPorosity,
	ports.CalcShaleVolume: classify.MethodologyShaleVolume,
	ports.CalcSaturation:  classify.MethodologyWaterSaturation,
}

// outcome is a handler's result. The dispatcher appends record to the audit
// trail when the envelope succeeded and the request named a well.
type outcome struct {
	envelope ResultEnvelope
	record   *audit.Entry
}

func done(env ResultEnvelope) (outcome, error) {
	return outcome{envelope: env}, nil
}

// route invokes the handler for req's variant.
func (d *Dispatcher) route(ctx context.Context, req Request) (outcome, error) {
	ctx, span := dispatchTracer.Start(ctx, "dispatch.handler",
		trace.WithAttributes(
			attribute.String("intent", string(req.Intent())),
			attribute.String("target", req.Target()),
		),
	)
	defer span.End()

	switch r := req.(type) {
	case ListRequest:
		return d.handleList(ctx)
	case TargetRequest:
		switch r.Kind {
		case catalog.IntentWellInfo:
			return d.handleWellInfo(ctx, r)
		case catalog.IntentDataQuality:
			return d.handleDataQuality(ctx, r)
		case catalog.IntentFormationEval:
			return d.handleFormationEvaluation(ctx, r)
		}
	case ComputeRequest:
		return d.handleCompute(ctx, r)
	case MethodologyRequest:
		return d.handleMethodology(r)
	case AgentRequest:
		return d.handleAgent(ctx, r)
	case CorrelationRequest:
		return d.handleCorrelation(ctx, r)
	}
	return outcome{}, fmt.Errorf("%w %q", ErrUnsupportedIntent, req.Intent())
}

func (d *Dispatcher) handleList(ctx context.Context) (outcome, error) {
	targets, err := d.engine.ListTargets(ctx)
	if err != nil {
		return outcome{}, fmt.Errorf("list wells: %w", err)
	}
	return done(Succeeded(
		d.formatter.BuildTargetListResponse(targets),
		Artifact{Kind: ArtifactTargets, Data: targets},
	))
}

func (d *Dispatcher) handleWellInfo(ctx context.Context, r TargetRequest) (outcome, error) {
	info, err := d.engine.GetTargetInfo(ctx, r.Entity)
	if err != nil {
		return outcome{}, fmt.Errorf("well info for %s: %w", r.Entity, err)
	}
	return outcome{
		envelope: Succeeded(
			d.formatter.BuildTargetInfoResponse(info),
			Artifact{Kind: ArtifactTargetInfo, Name: info.ID, Data: info},
		),
		record: &audit.Entry{
			Operation: string(r.Kind),
			Results: map[string]any{
				"curves":       len(info.Curves),
				"depth_top":    info.DepthRange.Top,
				"depth_bottom": info.DepthRange.Bottom,
			},
		},
	}, nil
}

func (d *Dispatcher) handleCompute(ctx context.Context, r ComputeRequest) (outcome, error) {
	methodology := d.lookupMethodology(r.Calculation)

	methods := append([]string{r.Method}, r.Compare...)
	var (
		primary   ResultEnvelope
		artifacts []Artifact
		results   = make(map[string]any, len(methods))
	)
	for i, method := range methods {
		res, err := d.engine.Compute(ctx, ports.ComputeSpec{Target: r.Entity, Calculation: r.Calculation, Method: method})
		if err != nil {
			return outcome{}, fmt.Errorf("%s (%s) for %s: %w", r.Calculation, method, r.Entity, err)
		}
		env := NormalizeComputation(d.formatter, r.Entity, res, methodology)
		if !env.Success {
			return done(env)
		}
		if i == 0 {
			primary = env
		}
		artifacts = append(artifacts, env.Artifacts...)
		results[method] = summarize(res.Statistics)
	}

	primary.Artifacts = artifacts
	if len(r.Compare) > 0 {
		primary.Diagnostics = append(primary.Diagnostics,
			fmt.Sprintf("compared %d methods: %s", len(methods), strings.Join(methods, ", ")))
	}

	return outcome{
		envelope: primary,
		record: &audit.Entry{
			Operation: string(r.Kind),
			Parameters: map[string]any{
				"calculation": string(r.Calculation),
				"method":      r.Method,
				"compare":     r.Compare,
			},
			Results:     results,
			Methodology: methodologyName(methodology),
		},
	}, nil
}

func (d *Dispatcher) handleDataQuality(ctx context.Context, r TargetRequest) (outcome, error) {
	res, err := d.engine.Compute(ctx, ports.ComputeSpec{Target: r.Entity, Calculation: ports.CalcDataQuality, Method: MethodDataQuality})
	if err != nil {
		return outcome{}, fmt.Errorf("data quality for %s: %w", r.Entity, err)
	}
	env := NormalizeComputation(d.formatter, r.Entity, res, nil)
	if !env.Success {
		return done(env)
	}
	return outcome{
		envelope: env,
		record: &audit.Entry{
			Operation:  string(r.Kind),
			Parameters: map[string]any{"method": MethodDataQuality},
			Results:    map[string]any{MethodDataQuality: summarize(res.Statistics)},
		},
	}, nil
}

// handleFormationEvaluation runs porosity, shale volume and saturation in
// order. The first failure ends the evaluation.
func (d *Dispatcher) handleFormationEvaluation(ctx context.Context, r TargetRequest) (outcome, error) {
	var (
		messages  []string
		artifacts []Artifact
		results   = make(map[string]any, len(formationSteps))
		methods   = make(map[string]any, len(formationSteps))
	)
	for _, step := range formationSteps {
		res, err := d.engine.Compute(ctx, ports.ComputeSpec{Target: r.Entity, Calculation: step.calc, Method: step.method})
		if err != nil {
			return outcome{}, fmt.Errorf("formation evaluation %s for %s: %w", step.calc, r.Entity, err)
		}
		env := NormalizeComputation(d.formatter, r.Entity, res, d.lookupMethodology(step.calc))
		if !env.Success {
			return done(env)
		}
		messages = append(messages, env.Message)
		artifacts = append(artifacts, env.Artifacts...)
		results[string(step.calc)] = summarize(res.Statistics)
		methods[string(step.calc)] = step.method
	}

	return outcome{
		envelope: Succeeded(strings.Join(messages, "\n\n"), artifacts...),
		record: &audit.Entry{
			Operation:  string(r.Kind),
			Parameters: methods,
			Results:    results,
		},
	}, nil
}

func (d *Dispatcher) handleMethodology(r MethodologyRequest) (outcome, error) {
	m, ok := d.methodologies.GetMethodology(r.Topic)
	if !ok {
		return outcome{}, fmt.Errorf("%w for %q", ErrMethodologyNotFound, r.Topic)
	}
	return done(Succeeded(
		d.formatter.BuildMethodologyResponse(m),
		Artifact{Kind: ArtifactMethodology, Name: m.Key, Data: m},
	))
}

func (d *Dispatcher) handleAgent(ctx context.Context, r AgentRequest) (outcome, error) {
	if d.remote == nil {
		return outcome{}, ErrRemoteNotConfigured
	}
	reply, err := d.remote.Invoke(ctx, r.Text, r.SessionID)
	if err != nil {
		kind := ClassifyRemoteError(err)
		dispatchRemoteErrors.WithLabelValues(string(kind)).Inc()
		d.logger.Warn("dispatch: remote agent failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return done(RemoteFailure(err))
	}
	return done(NormalizeAgentReply(reply))
}

// handleCorrelation computes one calculation for every well in turn. Wells
// whose computation fails are skipped and reported as diagnostics.
func (d *Dispatcher) handleCorrelation(ctx context.Context, r CorrelationRequest) (outcome, error) {
	targets, err := d.engine.ListTargets(ctx)
	if err != nil {
		return outcome{}, fmt.Errorf("correlation: %w", err)
	}
	if len(targets) == 0 {
		return outcome{}, ErrNoTargets
	}

	var (
		rows  []ports.CorrelationRow
		diags []string
	)
	for _, t := range targets {
		res, err := d.engine.Compute(ctx, ports.ComputeSpec{Target: t.ID, Calculation: r.Calculation, Method: r.Method})
		if err == nil {
			err = ValidateComputation(res)
		}
		if err != nil {
			diags = append(diags, fmt.Sprintf("%s skipped: %v", t.ID, err))
			continue
		}
		rows = append(rows, ports.CorrelationRow{Target: t.ID, Statistics: res.Statistics})
	}
	if len(rows) == 0 {
		return done(Failed(
			d.formatter.BuildErrorResponse("correlation", "no well produced a usable result"),
			diags...,
		))
	}

	env := Succeeded(
		d.formatter.BuildCorrelationResponse(r.Calculation, r.Method, rows),
		Artifact{Kind: ArtifactCorrelation, Name: string(r.Calculation) + "/" + r.Method, Data: rows},
	)
	env.Diagnostics = diags
	return done(env)
}

func (d *Dispatcher) lookupMethodology(calc ports.Calculation) *ports.Methodology {
	key, ok := methodologyTopics[calc]
	if !ok {
		return nil
	}
	m, ok := d.methodologies.GetMethodology(key)
	if !ok {
		return nil
	}
	return m
}

func methodologyName(m *ports.Methodology) string {
	if m == nil {
		return ""
	}
	return m.Name
}

func summarize(s *ports.Statistics) map[string]any {
	return map[string]any{
		"count": s.Count,
		"mean":  s.Mean,
		"min":   s.Min,
		"max":   s.Max,
	}
}
