// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classify resolves a free-form request to exactly one catalog intent.
//
// Classification is a pure function of the request text and an immutable
// catalog: entity extraction, per-definition scoring, priority
// short-circuiting, max-score selection and the fuzzy fallback. It never
// fails to produce a defined intent.
package classify

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/wellintent/services/intent/catalog"
)

const (
	// PriorityShortCircuit is the exclusive score a priority definition must
	// exceed to be selected without examining later definitions.
	PriorityShortCircuit = 10

	// ConfidenceFloor is the score below which the fuzzy resolver decides.
	ConfidenceFloor = 5
)

// ErrNilCatalog is returned by New when no catalog is supplied.
var ErrNilCatalog = errors.New("classify: catalog must not be nil")

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	classifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellintent",
		Subsystem: "classify",
		Name:      "total",
		Help:      "Total classifications by resolved intent and decision source",
	}, []string{"intent", "source"})

	classifyFuzzyRulesFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellintent",
		Subsystem: "classify",
		Name:      "fuzzy_rules_fired_total",
		Help:      "Fuzzy fallback resolutions by rule",
	}, []string{"rule"})

	classifyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wellintent",
		Subsystem: "classify",
		Name:      "latency_seconds",
		Help:      "Classification latency",
		Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
	})
)

// =============================================================================
// Result Types
// =============================================================================

// Source records which stage produced a classification.
type Source string

const (
	SourcePriority Source = "priority"
	SourceScored   Source = "scored"
	SourceFuzzy    Source = "fuzzy"
)

// Candidate is one scored intent.
type Candidate struct {
	Type         catalog.IntentType `json:"type"`
	Score        int                `json:"score"`
	TargetEntity string             `json:"target_entity,omitempty"`
	Method       string             `json:"method,omitempty"`
}

// Classification is the single resolved candidate plus how it was reached.
type Classification struct {
	Candidate

	// Source is the stage that decided.
	Source Source `json:"source"`

	// Rule names the fuzzy rule when Source is SourceFuzzy.
	Rule string `json:"rule,omitempty"`

	// Scores lists every evaluated definition in evaluation order. A
	// priority short-circuit leaves later definitions out.
	Scores []Candidate `json:"scores,omitempty"`
}

// =============================================================================
// Classifier
// =============================================================================

// Classifier resolves request text against a catalog.
//
// Thread Safety: Safe for concurrent use (all state is read-only after construction).
type Classifier struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// New creates a Classifier.
//
// Inputs:
//
//	cat - The intent catalog. Must not be nil.
//	logger - Logger for debug output. Nil uses slog.Default().
//
// Outputs:
//
//	*Classifier - Ready for use.
//	error - ErrNilCatalog when cat is nil.
func New(cat *catalog.Catalog, logger *slog.Logger) (*Classifier, error) {
	if cat == nil {
		return nil, ErrNilCatalog
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{catalog: cat, logger: logger}, nil
}

// Catalog returns the catalog this classifier scores against.
func (c *Classifier) Catalog() *catalog.Catalog {
	return c.catalog
}

// Classify resolves text to exactly one intent.
//
// Description:
//
//	Scores every definition in evaluation order (priority first). A
//	priority definition scoring above PriorityShortCircuit is selected at
//	once. Otherwise the running best, seeded with {unknown, 0}, is replaced
//	only on a strictly greater score. When nothing short-circuited and the
//	best is below ConfidenceFloor, the fuzzy resolver's outcome replaces it.
//	The method hint is derived from the final intent.
//
// Inputs:
//
//	text - Raw request. Any string, including empty.
//
// Outputs:
//
//	Classification - Always carries a defined catalog intent.
//
// Thread Safety: Safe for concurrent use.
func (c *Classifier) Classify(text string) Classification {
	start := time.Now()
	defer func() { classifyLatency.Observe(time.Since(start).Seconds()) }()

	lower := strings.ToLower(strings.TrimSpace(text))
	entity := c.ExtractEntity(text)

	order := c.catalog.EvaluationOrder()
	result := Classification{
		Candidate: Candidate{Type: catalog.IntentUnknown},
		Source:    SourceScored,
		Scores:    make([]Candidate, 0, len(order)),
	}

	shortCircuit := false
	for _, def := range order {
		score := Score(def, lower, entity != "")
		result.Scores = append(result.Scores, Candidate{Type: def.Type, Score: score})

		if def.IsPriority && score > PriorityShortCircuit {
			result.Type, result.Score = def.Type, score
			result.Source = SourcePriority
			shortCircuit = true
			break
		}
		if score > result.Score {
			result.Type, result.Score = def.Type, score
		}
	}

	if !shortCircuit && result.Score < ConfidenceFloor {
		outcome := resolveFuzzy(c.catalog, lower, entity)
		result.Type, result.Score = outcome.intent, outcome.score
		result.Source = SourceFuzzy
		result.Rule = outcome.rule
		if outcome.noTarget {
			entity = ""
		}
		result.Method = outcome.method
		classifyFuzzyRulesFired.WithLabelValues(outcome.rule).Inc()

		c.logger.Debug("classify: fuzzy fallback",
			slog.String("rule", outcome.rule),
			slog.String("intent", string(outcome.intent)),
			slog.String("text", truncateForLog(text, 80)),
		)
	}

	result.TargetEntity = entity
	if result.Method == "" {
		result.Method = ExtractMethod(result.Type, text)
	}

	classifyTotal.WithLabelValues(string(result.Type), string(result.Source)).Inc()
	return result
}

// truncateForLog shortens s to at most maxLen bytes for log output.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
