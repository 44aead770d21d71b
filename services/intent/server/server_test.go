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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/wellintent/services/intent/audit"
	"github.com/AleutianAI/wellintent/services/intent/catalog"
	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/dispatch"
	"github.com/AleutianAI/wellintent/services/intent/fixture"
	"github.com/AleutianAI/wellintent/services/intent/logging"
)

// =============================================================================
// Test Helpers
// =============================================================================

// brokenLog fails every read.
type brokenLog struct{ *audit.MemoryLog }

func (brokenLog) Entries(context.Context, string) ([]audit.Entry, error) {
	return nil, errors.New("disk on fire")
}

func newTestRouter(t *testing.T, log audit.Log) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.Default()
	require.NoError(t, err)
	cls, err := classify.New(cat, logging.Discard())
	require.NoError(t, err)
	if log == nil {
		log = audit.NewMemoryLog()
	}
	d, err := dispatch.New(dispatch.Deps{
		Classifier:    cls,
		Engine:        fixture.NewDefaultEngine(),
		Formatter:     fixture.TextFormatter{},
		Methodologies: fixture.DefaultMethodologies(),
		Audit:         audit.NewRecorder(log, logging.Discard()),
		Logger:        logging.Discard(),
	})
	require.NoError(t, err)

	return NewRouter(NewHandlers(d, 4, logging.Discard()), "wellintent-test", false)
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// =============================================================================
// Tests
// =============================================================================

func TestHandleClassify(t *testing.T) {
	r := newTestRouter(t, nil)

	w := do(t, r, http.MethodPost, "/v1/intent/classify",
		ClassifyRequest{Text: "calculate porosity for SANDSTONE_RESERVOIR_001"},
		map[string]string{HeaderRequestID: "req-42"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))

	resp := decode[ClassifyResponse](t, w)
	assert.Equal(t, "req-42", resp.RequestID)
	assert.Equal(t, catalog.IntentCalculatePorosity, resp.Classification.Type)
	assert.Equal(t, "SANDSTONE_RESERVOIR_001", resp.Classification.TargetEntity)
}

func TestHandleClassify_GeneratesRequestID(t *testing.T) {
	r := newTestRouter(t, nil)
	w := do(t, r, http.MethodPost, "/v1/intent/classify", ClassifyRequest{Text: ""}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[ClassifyResponse](t, w)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, w.Header().Get(HeaderRequestID))
}

func TestHandleClassify_BadRequest(t *testing.T) {
	r := newTestRouter(t, nil)

	cases := map[string]any{
		"malformed json": `{"text":`,
		"text too long":  ClassifyRequest{Text: strings.Repeat("a", MaxTextLength+1)},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/v1/intent/classify", body, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, CodeInvalidRequest, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestHandleClassifyBatch(t *testing.T) {
	r := newTestRouter(t, nil)

	texts := []string{
		"show me all wells",
		"tell me about SANDSTONE_RESERVOIR_001",
		"calculate porosity",
	}
	w := do(t, r, http.MethodPost, "/v1/intent/classify/batch", BatchClassifyRequest{Texts: texts}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[BatchClassifyResponse](t, w)
	require.Len(t, resp.Classifications, len(texts))
	assert.Equal(t, catalog.IntentListWells, resp.Classifications[0].Type)
	assert.Equal(t, catalog.IntentWellInfo, resp.Classifications[1].Type)
	assert.Equal(t, catalog.IntentCalculatePorosity, resp.Classifications[2].Type)
}

func TestHandleClassifyBatch_Rejects(t *testing.T) {
	r := newTestRouter(t, nil)

	w := do(t, r, http.MethodPost, "/v1/intent/classify/batch", BatchClassifyRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidRequest, decode[ErrorResponse](t, w).Code)

	tooMany := make([]string, classify.MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = "list wells"
	}
	w = do(t, r, http.MethodPost, "/v1/intent/classify/batch", BatchClassifyRequest{Texts: tooMany}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeBatchTooLarge, decode[ErrorResponse](t, w).Code)
}

func TestHandleDispatch_AuditsWithActorHeader(t *testing.T) {
	r := newTestRouter(t, nil)

	w := do(t, r, http.MethodPost, "/v1/intent/dispatch",
		DispatchRequest{Text: "calculate porosity for SANDSTONE_RESERVOIR_001", Actor: "body-actor"},
		map[string]string{HeaderActor: "header-actor"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[DispatchResponse](t, w)
	assert.True(t, resp.Success, resp.Message)
	assert.Contains(t, resp.Message, "(density method)")
	require.Len(t, resp.Artifacts, 1)
	assert.Equal(t, dispatch.ArtifactComputation, resp.Artifacts[0].Kind)

	w = do(t, r, http.MethodGet, "/v1/intent/audit/SANDSTONE_RESERVOIR_001", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	trail := decode[AuditResponse](t, w)
	assert.Equal(t, "SANDSTONE_RESERVOIR_001", trail.Entity)
	require.Equal(t, 1, trail.Count)
	assert.Equal(t, "header-actor", trail.Entries[0].Actor)
	assert.Equal(t, string(catalog.IntentCalculatePorosity), trail.Entries[0].Operation)
}

func TestHandleDispatch_FailureIsStill200(t *testing.T) {
	r := newTestRouter(t, nil)

	w := do(t, r, http.MethodPost, "/v1/intent/dispatch", DispatchRequest{Text: "calculate porosity"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[DispatchResponse](t, w)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Please specify which well")
	assert.Empty(t, resp.Artifacts)
}

func TestHandleDispatch_MissingText(t *testing.T) {
	r := newTestRouter(t, nil)
	w := do(t, r, http.MethodPost, "/v1/intent/dispatch", DispatchRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidRequest, decode[ErrorResponse](t, w).Code)
}

func TestHandleAudit_UnknownWellIsEmpty(t *testing.T) {
	r := newTestRouter(t, nil)
	w := do(t, r, http.MethodGet, "/v1/intent/audit/NOPE_999", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	trail := decode[AuditResponse](t, w)
	assert.Equal(t, 0, trail.Count)
	assert.Empty(t, trail.Entries)
}

func TestHandleAudit_StoreFailure(t *testing.T) {
	r := newTestRouter(t, brokenLog{audit.NewMemoryLog()})
	w := do(t, r, http.MethodGet, "/v1/intent/audit/SANDSTONE_RESERVOIR_001", nil, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, CodeAuditUnavailable, resp.Code)
	assert.NotContains(t, resp.Error, "disk on fire")
}

func TestHandleCatalog(t *testing.T) {
	r := newTestRouter(t, nil)
	w := do(t, r, http.MethodGet, "/v1/intent/catalog", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[CatalogResponse](t, w)
	require.NotEmpty(t, resp.Intents)
	assert.NotEmpty(t, resp.FuzzyRules)

	// Priority definitions are evaluated first.
	assert.True(t, resp.Intents[0].Priority)
	seenNonPriority := false
	for _, in := range resp.Intents {
		if !in.Priority {
			seenNonPriority = true
			continue
		}
		assert.False(t, seenNonPriority, "priority intent %s after a non-priority one", in.Type)
	}
}

func TestHandleHealth(t *testing.T) {
	r := newTestRouter(t, nil)
	w := do(t, r, http.MethodGet, "/v1/intent/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Positive(t, resp.Intents)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)
	do(t, r, http.MethodPost, "/v1/intent/classify", ClassifyRequest{Text: "list wells"}, nil)

	w := do(t, r, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
