// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/wellintent/services/intent/dispatch"
	"github.com/AleutianAI/wellintent/services/intent/logging"
	"github.com/AleutianAI/wellintent/services/intent/ports"
)

func newTestClient(t *testing.T, url string, token string) *Client {
	t.Helper()
	var tok []byte
	if token != "" {
		tok = []byte(token)
	}
	c, err := New(Options{
		Endpoint:     url,
		Token:        tok,
		RetryBackoff: time.Millisecond,
		Timeout:      2 * time.Second,
		Logger:       logging.Discard(),
	})
	require.NoError(t, err)
	return c
}

func TestNew_InvalidEndpoint(t *testing.T) {
	for _, ep := range []string{"", "agent.local", "ftp://agent.local/x", "http://"} {
		_, err := New(Options{Endpoint: ep})
		assert.ErrorIs(t, err, ErrInvalidEndpoint, ep)
	}
}

func TestInvoke_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req agentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "why is the porosity so low", req.Query)
		assert.Equal(t, "sess-1", req.SessionID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"Tight rock.","steps":[{"type":"tool_use","status":"done","content":"compute"}]}`))
	}))
	defer srv.Close()

	token := []byte("s3cret")
	c, err := New(Options{Endpoint: srv.URL, Token: token, Logger: logging.Discard()})
	require.NoError(t, err)
	assert.Equal(t, make([]byte, len(token)), token, "token buffer should be wiped")

	reply, err := c.Invoke(context.Background(), "why is the porosity so low", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Tight rock.", reply.Message)
	assert.Equal(t, []ports.AgentStep{{Type: "tool_use", Status: "done", Content: "compute"}}, reply.Steps)
}

func TestInvoke_NoTokenSendsNoAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv.URL, "").Invoke(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Message)
}

func TestInvoke_ErrorKinds(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		sentinel error
		kind     dispatch.RemoteErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad token"}`, ports.ErrAuthentication, dispatch.RemoteAuthentication},
		{"forbidden", http.StatusForbidden, ``, ports.ErrAuthentication, dispatch.RemoteAuthentication},
		{"server error", http.StatusInternalServerError, `boom`, ports.ErrProtocol, dispatch.RemoteProtocol},
		{"not found", http.StatusNotFound, `nope`, ports.ErrProtocol, dispatch.RemoteProtocol},
		{"bad json", http.StatusOK, `{"message":`, ports.ErrProtocol, dispatch.RemoteProtocol},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, "tok").Invoke(context.Background(), "q", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.Equal(t, tc.kind, dispatch.ClassifyRemoteError(err))
		})
	}
}

func TestInvoke_APIErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down\n"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, "").Invoke(context.Background(), "q", "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Body)
}

func TestInvoke_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, "").Invoke(context.Background(), "q", "")
	assert.ErrorIs(t, err, ports.ErrConnection)
	assert.Equal(t, dispatch.RemoteConnection, dispatch.ClassifyRemoteError(err))
}

func TestInvoke_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"message":"finally"}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv.URL, "").Invoke(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, "finally", reply.Message)
	assert.Equal(t, int32(3), calls.Load())
}

func TestInvoke_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, "").Invoke(context.Background(), "q", "")
	assert.ErrorIs(t, err, ports.ErrProtocol)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestInvoke_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"late"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, srv.URL, "").Invoke(ctx, "q", "")
	assert.ErrorIs(t, err, ports.ErrConnection)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryDelay(t *testing.T) {
	c := &Client{backoff: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, nil))
	assert.Equal(t, 200*time.Millisecond, c.retryDelay(2, nil))
	assert.Equal(t, 3*time.Second, c.retryDelay(1, &APIError{retryAfter: "3"}))
	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, &APIError{retryAfter: "soon"}))
}
