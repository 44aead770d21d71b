// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes classification and dispatch over HTTP.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/dispatch"
)

// Request headers.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderActor     = "X-Actor"
)

// Handlers serves the /v1/intent endpoints.
//
// Thread Safety: Safe for concurrent use. Handlers holds no mutable state.
type Handlers struct {
	dispatcher       *dispatch.Dispatcher
	batchConcurrency int
	logger           *slog.Logger
}

// NewHandlers creates Handlers over d.
//
// Inputs:
//
//	d - The dispatcher. Its classifier serves the classify endpoints.
//	batchConcurrency - Worker bound for batch classification. <= 0 uses
//	                   classify.DefaultBatchConcurrency.
//	logger - Nil uses slog.Default().
func NewHandlers(d *dispatch.Dispatcher, batchConcurrency int, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{dispatcher: d, batchConcurrency: batchConcurrency, logger: logger}
}

// HandleClassify handles POST /v1/intent/classify.
//
// Response:
//
//	200 OK: ClassifyResponse
//	400 Bad Request: Malformed body or text over MaxTextLength
func (h *Handlers) HandleClassify(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, requestID, "HandleClassify", err)
		return
	}

	c.JSON(http.StatusOK, ClassifyResponse{
		RequestID:      requestID,
		Classification: h.dispatcher.Classifier().Classify(req.Text),
	})
}

// HandleClassifyBatch handles POST /v1/intent/classify/batch.
//
// Response:
//
//	200 OK: BatchClassifyResponse, same order as the input
//	400 Bad Request: Malformed body or more than classify.MaxBatchSize texts
//	500 Internal Server Error: The request was cancelled mid-batch
func (h *Handlers) HandleClassifyBatch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req BatchClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, requestID, "HandleClassifyBatch", err)
		return
	}

	results, err := h.dispatcher.Classifier().ClassifyBatch(c.Request.Context(), req.Texts, h.batchConcurrency)
	switch {
	case errors.Is(err, classify.ErrBatchTooLarge):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeBatchTooLarge})
		return
	case err != nil:
		h.logger.Warn("batch classification failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeClassifyFailed})
		return
	}

	c.JSON(http.StatusOK, BatchClassifyResponse{RequestID: requestID, Classifications: results})
}

// HandleDispatch handles POST /v1/intent/dispatch.
//
// Description:
//
//	Always answers 200 with the envelope once the body is valid. A failed
//	dispatch is reported through the envelope's success flag.
//
// Response:
//
//	200 OK: DispatchResponse
//	400 Bad Request: Malformed body
func (h *Handlers) HandleDispatch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, requestID, "HandleDispatch", err)
		return
	}

	actor := strings.TrimSpace(c.GetHeader(HeaderActor))
	if actor == "" {
		actor = req.Actor
	}

	env := h.dispatcher.Dispatch(c.Request.Context(), req.Text, &dispatch.SessionContext{
		SessionID: req.SessionID,
		Actor:     actor,
		RequestID: requestID,
	})
	c.JSON(http.StatusOK, DispatchResponse{RequestID: requestID, ResultEnvelope: env})
}

// HandleAudit handles GET /v1/intent/audit/:entity.
//
// Response:
//
//	200 OK: AuditResponse, entries in append order (empty for an unknown well)
//	500 Internal Server Error: The audit store failed
func (h *Handlers) HandleAudit(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	entity := c.Param("entity")

	entries, err := h.dispatcher.AuditEntries(c.Request.Context(), entity)
	if err != nil {
		h.logger.Error("audit read failed",
			slog.String("request_id", requestID),
			slog.String("entity", entity),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "audit trail unavailable", Code: CodeAuditUnavailable})
		return
	}
	c.JSON(http.StatusOK, AuditResponse{Entity: entity, Count: len(entries), Entries: entries})
}

// HandleCatalog handles GET /v1/intent/catalog.
func (h *Handlers) HandleCatalog(c *gin.Context) {
	cat := h.dispatcher.Classifier().Catalog()

	order := cat.EvaluationOrder()
	resp := CatalogResponse{
		Intents:    make([]CatalogIntent, 0, len(order)),
		FuzzyRules: make([]CatalogFuzzyRule, 0, len(cat.FuzzyRules())),
	}
	for _, def := range order {
		patterns := make([]string, len(def.Patterns))
		for i, re := range def.Patterns {
			patterns[i] = re.String()
		}
		resp.Intents = append(resp.Intents, CatalogIntent{
			Type:           string(def.Type),
			Description:    def.Description,
			Priority:       def.IsPriority,
			RequiresTarget: def.RequiresTarget,
			Patterns:       patterns,
			Keywords:       def.Keywords,
		})
	}
	for _, r := range cat.FuzzyRules() {
		resp.FuzzyRules = append(resp.FuzzyRules, CatalogFuzzyRule{
			Name:   r.Name,
			When:   r.When,
			Intent: string(r.Intent),
			Score:  r.Score,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/intent/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Intents: len(h.dispatcher.Classifier().Catalog().Definitions()),
	})
}

func (h *Handlers) badRequest(c *gin.Context, requestID, handler string, err error) {
	h.logger.Debug("rejected request",
		slog.String("request_id", requestID),
		slog.String("handler", handler),
		slog.String("error", err.Error()),
	)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
}

// getOrCreateRequestID returns the caller's X-Request-ID, the trace ID of
// the active span, or a fresh UUID, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
	if id == "" {
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			id = sc.TraceID().String()
		} else {
			id = uuid.NewString()
		}
	}
	c.Header(HeaderRequestID, id)
	return id
}
