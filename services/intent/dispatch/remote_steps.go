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
	"fmt"
	"strings"

	"github.com/AleutianAI/wellintent/services/intent/ports"
)

// Local step vocabulary.
const (
	StepReasoning = "reasoning"
	StepTool      = "tool"
	StepObserve   = "observation"
	StepResponse  = "response"
	StepExecution = "execution"

	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
	StatusError      = "error"
)

var stepTypes = map[string]string{
	"thinking":    StepReasoning,
	"reasoning":   StepReasoning,
	"tool_use":    StepTool,
	"tool_call":   StepTool,
	"tool_result": StepTool,
	"observation": StepObserve,
	"answer":      StepResponse,
	"final":       StepResponse,
	"response":    StepResponse,
}

var stepStatuses = map[string]string{
	"pending":     StatusPending,
	"queued":      StatusPending,
	"running":     StatusInProgress,
	"in_progress": StatusInProgress,
	"done":        StatusComplete,
	"completed":   StatusComplete,
	"success":     StatusComplete,
	"failed":      StatusError,
	"error":       StatusError,
}

// MapStepType translates a remote step type. Unrecognized types are "execution".
func MapStepType(remote string) string {
	if t, ok := stepTypes[strings.ToLower(strings.TrimSpace(remote))]; ok {
		return t
	}
	return StepExecution
}

// MapStepStatus translates a remote step status. Unrecognized statuses are "complete".
func MapStepStatus(remote string) string {
	if s, ok := stepStatuses[strings.ToLower(strings.TrimSpace(remote))]; ok {
		return s
	}
	return StatusComplete
}

// Step is one remote agent step in the local vocabulary.
type Step struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Content string `json:"content,omitempty"`
}

// NormalizeAgentReply converts a remote reply into an envelope.
//
// A nil reply or one without a message is a protocol failure.
func NormalizeAgentReply(reply *ports.AgentReply) ResultEnvelope {
	if reply == nil || strings.TrimSpace(reply.Message) == "" {
		return RemoteFailure(fmt.Errorf("empty agent reply: %w", ports.ErrProtocol))
	}

	steps := make([]Step, 0, len(reply.Steps))
	for _, s := range reply.Steps {
		steps = append(steps, Step{
			Type:    MapStepType(s.Type),
			Status:  MapStepStatus(s.Status),
			Content: s.Content,
		})
	}

	env := Succeeded(reply.Message)
	if len(steps) > 0 {
		env.Artifacts = []Artifact{{Kind: ArtifactAgentSteps, Data: steps}}
	}
	return env
}
