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
	"errors"
	"strings"

	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/ports"
)

// DefaultFailureMessage replaces an empty message on a failed envelope.
const DefaultFailureMessage = "The request could not be completed."

// Artifact kinds.
const (
	ArtifactTargets     = "targets"
	ArtifactTargetInfo  = "target_info"
	ArtifactComputation = "computation"
	ArtifactMethodology = "methodology"
	ArtifactAgentSteps  = "agent_steps"
	ArtifactCorrelation = "correlation"
)

// Artifact is one structured payload attached to a successful envelope.
type Artifact struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
	Data any    `json:"data"`
}

// ResultEnvelope is the uniform result of every dispatch.
//
// Invariant: when Success is false, Message is non-empty and Artifacts is
// empty. Finalize enforces it.
type ResultEnvelope struct {
	Success     bool       `json:"success"`
	Message     string     `json:"message"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	Diagnostics []string   `json:"diagnostics,omitempty"`

	// Classification is the decision that selected the handler.
	Classification *classify.Classification `json:"classification,omitempty"`
}

// Succeeded builds a success envelope.
func Succeeded(message string, artifacts ...Artifact) ResultEnvelope {
	return ResultEnvelope{Success: true, Message: message, Artifacts: artifacts}
}

// Failed builds a failure envelope.
func Failed(message string, diagnostics ...string) ResultEnvelope {
	return Finalize(ResultEnvelope{Message: message, Diagnostics: diagnostics})
}

// Finalize enforces the envelope invariant.
//
// Description:
//
//	A failed envelope loses its artifacts and gets DefaultFailureMessage
//	when its message is blank. Success envelopes pass through unchanged.
func Finalize(env ResultEnvelope) ResultEnvelope {
	if env.Success {
		return env
	}
	env.Artifacts = nil
	if strings.TrimSpace(env.Message) == "" {
		env.Message = DefaultFailureMessage
	}
	return env
}

// =============================================================================
// Computation Normalization
// =============================================================================

// ErrMalformedResult marks a computation payload without statistics or values.
var ErrMalformedResult = errors.New("computation result is missing statistics or values")

// ValidateComputation reports whether result has the expected shape.
func ValidateComputation(result *ports.ComputationResult) error {
	if result == nil || result.Statistics == nil || len(result.Values) == 0 {
		return ErrMalformedResult
	}
	return nil
}

// NormalizeComputation wraps a raw engine payload.
//
// Description:
//
//	A payload lacking statistics or values is downgraded to a failure whose
//	message comes from the formatter's error rendering. A well-formed payload
//	is rendered by the formatter and attached as a computation artifact.
//
// Inputs:
//
//	formatter - Renders text. Must not be nil.
//	target - The well identifier.
//	result - The raw engine payload. May be nil.
//	methodology - Optional methodology for the rendering.
//
// Outputs:
//
//	ResultEnvelope - Finalized.
func NormalizeComputation(formatter ports.ResponseFormatter, target string, result *ports.ComputationResult, methodology *ports.Methodology) ResultEnvelope {
	if err := ValidateComputation(result); err != nil {
		return Failed(formatter.BuildErrorResponse("formatting", err.Error()), err.Error())
	}
	return Succeeded(
		formatter.BuildDomainResponse(target, result, methodology),
		Artifact{Kind: ArtifactComputation, Name: string(result.Calculation) + "/" + result.Method, Data: result},
	)
}

// =============================================================================
// Remote Failures
// =============================================================================

// RemoteErrorKind classifies a remote agent failure.
type RemoteErrorKind string

const (
	RemoteAuthentication RemoteErrorKind = "authentication"
	RemoteConnection     RemoteErrorKind = "connection"
	RemoteProtocol       RemoteErrorKind = "protocol"
	RemoteUnknown        RemoteErrorKind = "unknown"
)

type remoteMessage struct {
	message string
	detail  string
}

var remoteMessages = map[RemoteErrorKind]remoteMessage{
	RemoteAuthentication: {
		message: "The analysis agent rejected the request credentials.",
		detail:  "Check that the agent access token is set and has not expired.",
	},
	RemoteConnection: {
		message: "The analysis agent could not be reached.",
		detail:  "The agent service may be down or unreachable. Try again shortly.",
	},
	RemoteProtocol: {
		message: "The analysis agent returned a response that could not be understood.",
		detail:  "The agent reply did not match the expected format.",
	},
	RemoteUnknown: {
		message: "The analysis agent request failed.",
		detail:  "An unexpected error occurred while contacting the agent.",
	},
}

// ClassifyRemoteError maps err to a RemoteErrorKind.
//
// Description:
//
//	Wrapped port sentinels decide first. Errors from clients that do not
//	wrap them fall back to message inspection.
func ClassifyRemoteError(err error) RemoteErrorKind {
	switch {
	case err == nil:
		return RemoteUnknown
	case errors.Is(err, ports.ErrAuthentication):
		return RemoteAuthentication
	case errors.Is(err, ports.ErrConnection):
		return RemoteConnection
	case errors.Is(err, ports.ErrProtocol):
		return RemoteProtocol
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "authentication"):
		return RemoteAuthentication
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "connection reset"):
		return RemoteConnection
	default:
		return RemoteUnknown
	}
}

// RemoteFailure builds the fixed failure envelope for a remote agent error.
//
// The first diagnostic is the fixed detail for the kind; the error text
// follows it.
func RemoteFailure(err error) ResultEnvelope {
	kind := ClassifyRemoteError(err)
	m := remoteMessages[kind]
	diags := []string{m.detail}
	if err != nil {
		diags = append(diags, err.Error())
	}
	return Failed(m.message, diags...)
}

// RemoteMessage returns the fixed message and detail for kind.
func RemoteMessage(kind RemoteErrorKind) (message, detail string) {
	m, ok := remoteMessages[kind]
	if !ok {
		m = remoteMessages[RemoteUnknown]
	}
	return m.message, m.detail
}
