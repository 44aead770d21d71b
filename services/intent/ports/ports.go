// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ports declares the collaborators the dispatcher consumes: the
// computation engine, the response formatter, the methodology registry and
// the remote agent client. Implementations live elsewhere.
package ports

import (
	"context"
	"errors"
)

// Remote agent failure kinds. Client implementations wrap exactly one of
// these; anything else is treated as unclassified.
var (
	ErrAuthentication = errors.New("remote agent: authentication failed")
	ErrConnection     = errors.New("remote agent: connection failed")
	ErrProtocol       = errors.New("remote agent: protocol error")
)

// ErrTargetNotFound is returned by a ComputationEngine for an unknown well.
var ErrTargetNotFound = errors.New("target not found")

// Calculation names a computation the engine understands.
type Calculation string

const (
	CalcPorosity    Calculation = "porosity"
	CalcShaleVolume Calculation = "shale_volume"
	CalcSaturation  Calculation = "water_saturation"
	CalcDataQuality Calculation = "data_quality"
)

// TargetSummary is one entry of ListTargets.
type TargetSummary struct {
	ID       string `json:"id"`
	Field    string `json:"field,omitempty"`
	Location string `json:"location,omitempty"`
}

// DepthRange is an inclusive measured-depth interval.
type DepthRange struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Unit   string  `json:"unit"`
}

// TargetInfo describes one well.
type TargetInfo struct {
	ID         string            `json:"id"`
	Field      string            `json:"field,omitempty"`
	Curves     []string          `json:"curves"`
	DepthRange DepthRange        `json:"depth_range"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ComputeSpec selects a calculation for one well.
type ComputeSpec struct {
	Target      string
	Calculation Calculation
	Method      string
}

// Statistics summarizes computed values.
type Statistics struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P10   float64 `json:"p10"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
}

// ComputationResult is the raw engine payload.
//
// Values or Statistics may be missing when an engine misbehaves; the
// dispatcher treats that as malformed output.
type ComputationResult struct {
	Calculation Calculation `json:"calculation"`
	Method      string      `json:"method"`
	Values      []float64   `json:"values"`
	Statistics  *Statistics `json:"statistics"`
	DepthRange  DepthRange  `json:"depth_range"`
}

// ComputationEngine performs domain computations over well data.
type ComputationEngine interface {
	// ListTargets returns the wells available, in a stable order.
	ListTargets(ctx context.Context) ([]TargetSummary, error)

	// GetTargetInfo returns one well. Unknown ids wrap ErrTargetNotFound.
	GetTargetInfo(ctx context.Context, id string) (*TargetInfo, error)

	// Compute runs one calculation. Unknown ids wrap ErrTargetNotFound.
	Compute(ctx context.Context, spec ComputeSpec) (*ComputationResult, error)
}

// CorrelationRow is one well's statistics in a multi-well comparison.
type CorrelationRow struct {
	Target     string      `json:"target"`
	Statistics *Statistics `json:"statistics"`
}

// ResponseFormatter renders human-readable text. The dispatcher never
// formats numeric results itself.
type ResponseFormatter interface {
	// BuildDomainResponse renders a successful computation.
	BuildDomainResponse(target string, result *ComputationResult, methodology *Methodology) string

	// BuildErrorResponse renders a failure of kind with detail.
	BuildErrorResponse(kind, detail string) string

	BuildTargetListResponse(targets []TargetSummary) string
	BuildTargetInfoResponse(info *TargetInfo) string
	BuildMethodologyResponse(m *Methodology) string
	BuildCorrelationResponse(calc Calculation, method string, rows []CorrelationRow) string
}

// Methodology documents one calculation.
type Methodology struct {
	Key              string   `json:"key"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	References       []string `json:"references"`
	Assumptions      []string `json:"assumptions"`
	Limitations      []string `json:"limitations"`
	UncertaintyRange string   `json:"uncertainty_range"`
}

// MethodologyRegistry is a read-only lookup of methodology documents.
type MethodologyRegistry interface {
	GetMethodology(key string) (*Methodology, bool)
}

// AgentStep is one step reported by the remote agent, in its own vocabulary.
type AgentStep struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Content string `json:"content"`
}

// AgentReply is the remote agent's answer.
type AgentReply struct {
	Message string      `json:"message"`
	Steps   []AgentStep `json:"steps"`
}

// RemoteAgentClient forwards open-ended questions to a remote agent.
//
// Errors wrap ErrAuthentication, ErrConnection or ErrProtocol, or are
// unclassified.
type RemoteAgentClient interface {
	Invoke(ctx context.Context, text, sessionID string) (*AgentReply, error)
}
