// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Audit backends.
const (
	AuditBackendMemory = "memory"
	AuditBackendBadger = "badger"
)

// RemoteAgentTokenEnv names the variable holding the remote agent bearer
// token. The token is never stored on ServiceConfig.
const RemoteAgentTokenEnv = "WELLINTENT_REMOTE_AGENT_TOKEN"

// ErrInvalidConfig is returned when a loaded value fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

var configValidator = validator.New()

// ServiceConfig holds the configuration shared by the server and the CLI.
//
// Description:
//
//	Loaded from environment variables via LoadServiceConfig(). Every field
//	has a safe default: in-memory audit, no remote agent, no exporter.
//
// Thread Safety: ServiceConfig is a value type. Safe to copy and share after loading.
type ServiceConfig struct {
	// Port is the HTTP listen port.
	// Env: WELLINTENT_PORT (default: 8080)
	Port int `validate:"min=1,max=65535"`

	// CatalogPath overrides the embedded intent catalog when set.
	// Env: WELLINTENT_CATALOG_PATH (default: "")
	CatalogPath string

	// AuditBackend selects the audit store.
	// Env: WELLINTENT_AUDIT_BACKEND (default: "memory")
	AuditBackend string `validate:"oneof=memory badger"`

	// RemoteAgentURL is the remote agent endpoint. Empty disables the agent.
	// Env: WELLINTENT_REMOTE_AGENT_URL (default: "")
	RemoteAgentURL string `validate:"omitempty,url"`

	// RemoteAgentRPS caps requests per second to the remote agent. 0 is unlimited.
	// Env: WELLINTENT_REMOTE_AGENT_RPS (default: 2)
	RemoteAgentRPS float64 `validate:"gte=0"`

	// RemoteAgentBurst is the limiter burst.
	// Env: WELLINTENT_REMOTE_AGENT_BURST (default: 4)
	RemoteAgentBurst int `validate:"gte=1"`

	// RemoteAgentTimeout bounds one remote agent call.
	// Env: WELLINTENT_REMOTE_AGENT_TIMEOUT (default: 30s)
	RemoteAgentTimeout time.Duration `validate:"gt=0"`

	// BatchConcurrency bounds concurrent classifications in a batch.
	// Env: WELLINTENT_BATCH_CONCURRENCY (default: 8)
	BatchConcurrency int `validate:"min=1,max=256"`

	// LogLevel is parsed by logging.ParseLevel.
	// Env: WELLINTENT_LOG_LEVEL (default: "info")
	LogLevel string

	// LogFormat is "text" or "json".
	// Env: WELLINTENT_LOG_FORMAT (default: "text")
	LogFormat string `validate:"oneof=text json"`

	// OTLPEndpoint enables the OTLP gRPC trace exporter when set.
	// Env: OTEL_EXPORTER_OTLP_ENDPOINT (default: "")
	OTLPEndpoint string

	// TraceStdout writes spans to stdout when no OTLP endpoint is set.
	// Env: WELLINTENT_TRACE_STDOUT (default: "false")
	TraceStdout bool
}

// LoadServiceConfig reads configuration from environment variables.
//
// Description:
//
//	Unparseable values fall back to their defaults. The populated config
//	is then validated.
//
// Outputs:
//   - *ServiceConfig: Fully populated configuration.
//   - error: Wraps ErrInvalidConfig when a value is out of range.
func LoadServiceConfig() (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:               envInt("WELLINTENT_PORT", 8080),
		CatalogPath:        strings.TrimSpace(os.Getenv("WELLINTENT_CATALOG_PATH")),
		AuditBackend:       strings.ToLower(envString("WELLINTENT_AUDIT_BACKEND", AuditBackendMemory)),
		RemoteAgentURL:     strings.TrimSpace(os.Getenv("WELLINTENT_REMOTE_AGENT_URL")),
		RemoteAgentRPS:     envFloat("WELLINTENT_REMOTE_AGENT_RPS", 2),
		RemoteAgentBurst:   envInt("WELLINTENT_REMOTE_AGENT_BURST", 4),
		RemoteAgentTimeout: envDuration("WELLINTENT_REMOTE_AGENT_TIMEOUT", 30*time.Second),
		BatchConcurrency:   envInt("WELLINTENT_BATCH_CONCURRENCY", 8),
		LogLevel:           envString("WELLINTENT_LOG_LEVEL", "info"),
		LogFormat:          strings.ToLower(envString("WELLINTENT_LOG_FORMAT", "text")),
		OTLPEndpoint:       strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		TraceStdout:        envBool("WELLINTENT_TRACE_STDOUT", false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *ServiceConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// RemoteAgentEnabled reports whether a remote agent endpoint is configured.
func (c *ServiceConfig) RemoteAgentEnabled() bool {
	return c.RemoteAgentURL != ""
}

// RemoteAgentToken reads the bearer token from RemoteAgentTokenEnv. The
// caller owns the returned buffer and should wipe it after use.
func RemoteAgentToken() []byte {
	v := strings.TrimSpace(os.Getenv(RemoteAgentTokenEnv))
	if v == "" {
		return nil
	}
	return []byte(v)
}

func envString(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

// envBool reads a boolean environment variable with a default value.
func envBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// envInt reads an integer environment variable with a default value.
func envInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func envFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// envDuration accepts Go durations ("45s") or bare seconds ("45").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
