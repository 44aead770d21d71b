// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package remote is the HTTP client for the remote analysis agent that
// answers open-ended questions.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/wellintent/services/intent/ports"
)

const (
	// maxRetries applies to 429 and 503 responses only.
	maxRetries = 2

	// maxErrorBody caps the response body kept on an APIError.
	maxErrorBody = 512

	// maxReplyBody caps a decoded reply.
	maxReplyBody = 4 << 20
)

// ErrInvalidEndpoint is returned by New for an unusable endpoint URL.
var ErrInvalidEndpoint = errors.New("remote: invalid endpoint")

var (
	remoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellintent",
		Subsystem: "remote_agent",
		Name:      "requests_total",
		Help:      "Remote agent requests by result",
	}, []string{"result"})

	remoteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wellintent",
		Subsystem: "remote_agent",
		Name:      "latency_seconds",
		Help:      "Remote agent round-trip latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
)

var remoteTracer = otel.Tracer("wellintent.remote")

// APIError is a non-2xx response from the agent.
type APIError struct {
	StatusCode int
	Body       string
	retryAfter string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Options configure a Client.
type Options struct {
	// Endpoint is the agent URL requests are POSTed to. Required.
	Endpoint string

	// Token is the bearer token. It is sealed in an encrypted enclave and
	// the slice is wiped. Empty sends no Authorization header.
	Token []byte

	// RequestsPerSecond caps the request rate. 0 is unlimited.
	RequestsPerSecond float64

	// Burst is the limiter burst. Values below 1 become 1.
	Burst int

	// Timeout bounds one HTTP attempt. Default 30s.
	Timeout time.Duration

	// RetryBackoff is the first retry delay, doubled per attempt. Default 1s.
	RetryBackoff time.Duration

	// HTTPClient replaces the default client. Timeout is ignored when set.
	HTTPClient *http.Client

	// Logger for diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Client implements ports.RemoteAgentClient over HTTP.
//
// Description:
//
//	Each Invoke POSTs {"query", "session_id"} as JSON and decodes
//	{"message" or "answer", "steps"}. Failures wrap a port sentinel:
//	401 and 403 wrap ports.ErrAuthentication, transport failures wrap
//	ports.ErrConnection, and other statuses or undecodable bodies wrap
//	ports.ErrProtocol.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	token      *memguard.Enclave
	backoff    time.Duration
	logger     *slog.Logger
}

// New creates a Client.
//
// Inputs:
//
//	opts - Endpoint must be an absolute http or https URL.
//
// Outputs:
//
//	*Client - Ready for use.
//	error - Wraps ErrInvalidEndpoint.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, opts.Endpoint)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := max(opts.Burst, 1)

	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		endpoint:   u.String(),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		backoff:    backoff,
		logger:     logger,
	}
	if len(opts.Token) > 0 {
		c.token = memguard.NewEnclave(opts.Token)
	}
	return c, nil
}

type agentRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type agentResponse struct {
	Message string            `json:"message"`
	Answer  string            `json:"answer"`
	Steps   []ports.AgentStep `json:"steps"`
}

// Invoke implements ports.RemoteAgentClient.
func (c *Client) Invoke(ctx context.Context, text, sessionID string) (*ports.AgentReply, error) {
	start := time.Now()
	ctx, span := remoteTracer.Start(ctx, "remote.Invoke")
	defer span.End()

	reply, err := c.invoke(ctx, text, sessionID)
	remoteLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		remoteRequests.WithLabelValues(resultLabel(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	remoteRequests.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("steps", len(reply.Steps)))
	return reply, nil
}

func (c *Client) invoke(ctx context.Context, text, sessionID string) (*ports.AgentReply, error) {
	body, err := json.Marshal(agentRequest{Query: text, SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("remote agent: encode request: %w: %w", ports.ErrProtocol, err)
	}

	var lastErr *APIError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.retryDelay(attempt, lastErr)); err != nil {
				return nil, fmt.Errorf("remote agent: %w: %w", ports.ErrConnection, err)
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("remote agent: rate limit wait: %w: %w", ports.ErrConnection, err)
		}

		raw, apiErr, err := c.post(ctx, body)
		if err != nil {
			return nil, err
		}
		if apiErr == nil {
			return decodeReply(raw)
		}

		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("remote agent: %w: %w", ports.ErrAuthentication, apiErr)
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			lastErr = apiErr
			c.logger.Warn("remote agent: retrying",
				slog.Int("status", apiErr.StatusCode),
				slog.Int("attempt", attempt+1),
			)
			continue
		}
		return nil, fmt.Errorf("remote agent: %w: %w", ports.ErrProtocol, apiErr)
	}
	return nil, fmt.Errorf("remote agent: retries exhausted: %w: %w", ports.ErrProtocol, lastErr)
}

// post sends one attempt. A non-2xx status is returned as an APIError.
func (c *Client) post(ctx context.Context, body []byte) ([]byte, *APIError, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("remote agent: build request: %w: %w", ports.ErrProtocol, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if c.token != nil {
		lb, err := c.token.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("remote agent: open token: %w: %w", ports.ErrAuthentication, err)
		}
		req.Header.Set("Authorization", "Bearer "+string(lb.Bytes()))
		lb.Destroy()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("remote agent: %w: %w", ports.ErrConnection, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil {
		return nil, nil, fmt.Errorf("remote agent: read body: %w: %w", ports.ErrConnection, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil, nil
	}
	text := string(raw)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(text),
		retryAfter: resp.Header.Get("Retry-After"),
	}, nil
}

func decodeReply(raw []byte) (*ports.AgentReply, error) {
	var r agentResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("remote agent: decode reply: %w: %w", ports.ErrProtocol, err)
	}
	msg := r.Message
	if msg == "" {
		msg = r.Answer
	}
	return &ports.AgentReply{Message: msg, Steps: r.Steps}, nil
}

// retryDelay honours Retry-After seconds, else doubles the base backoff.
func (c *Client) retryDelay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.backoff << (attempt - 1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ports.ErrAuthentication):
		return "authentication"
	case errors.Is(err, ports.ErrConnection):
		return "connection"
	case errors.Is(err, ports.ErrProtocol):
		return "protocol"
	default:
		return "error"
	}
}
