// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"github.com/AleutianAI/wellintent/services/intent/audit"
	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/dispatch"
)

// MaxTextLength caps one request text in bytes.
const MaxTextLength = 4096

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeBatchTooLarge    = "BATCH_TOO_LARGE"
	CodeClassifyFailed   = "CLASSIFY_FAILED"
	CodeAuditUnavailable = "AUDIT_UNAVAILABLE"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ClassifyRequest is the body of POST /v1/intent/classify. Empty text is
// valid and classifies to the default intent.
type ClassifyRequest struct {
	Text string `json:"text" binding:"max=4096"`
}

// ClassifyResponse wraps one classification.
type ClassifyResponse struct {
	RequestID      string                  `json:"request_id"`
	Classification classify.Classification `json:"classification"`
}

// BatchClassifyRequest is the body of POST /v1/intent/classify/batch.
type BatchClassifyRequest struct {
	Texts []string `json:"texts" binding:"required,min=1,dive,max=4096"`
}

// BatchClassifyResponse keeps input order.
type BatchClassifyResponse struct {
	RequestID       string                    `json:"request_id"`
	Classifications []classify.Classification `json:"classifications"`
}

// DispatchRequest is the body of POST /v1/intent/dispatch.
type DispatchRequest struct {
	Text      string `json:"text" binding:"required,max=4096"`
	SessionID string `json:"session_id" binding:"max=128"`

	// Actor is recorded on audit entries. The X-Actor header wins.
	Actor string `json:"actor" binding:"max=128"`
}

// DispatchResponse is the envelope plus the request identifier.
type DispatchResponse struct {
	RequestID string `json:"request_id"`
	dispatch.ResultEnvelope
}

// AuditResponse lists one well's audit trail in append order.
type AuditResponse struct {
	Entity  string        `json:"entity"`
	Count   int           `json:"count"`
	Entries []audit.Entry `json:"entries"`
}

// CatalogIntent describes one intent definition.
type CatalogIntent struct {
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	Priority       bool     `json:"priority"`
	RequiresTarget bool     `json:"requires_target"`
	Patterns       []string `json:"patterns"`
	Keywords       []string `json:"keywords"`
}

// CatalogFuzzyRule describes one fallback rule.
type CatalogFuzzyRule struct {
	Name   string     `json:"name"`
	When   [][]string `json:"when"`
	Intent string     `json:"intent"`
	Score  int        `json:"score"`
}

// CatalogResponse lists the intents in evaluation order and the fallback rules.
type CatalogResponse struct {
	Intents    []CatalogIntent    `json:"intents"`
	FuzzyRules []CatalogFuzzyRule `json:"fuzzy_rules"`
}

// HealthResponse is the body of GET /v1/intent/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Intents int    `json:"intents"`
}
