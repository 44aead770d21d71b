// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog loads the static intent catalog: per-intent patterns,
// keywords and flags, the ordered fuzzy fallback rules, and the entity
// stoplist. A loaded Catalog is immutable and shared by all classifications.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

//go:embed intents.yaml
var defaultIntentsYAML []byte

// MaxYAMLFileSize caps catalog documents.
const MaxYAMLFileSize = 1 << 20

var catalogTracer = otel.Tracer("wellintent.catalog")

var (
	// ErrEmptyCatalog is returned when the YAML document is empty or defines no intents.
	ErrEmptyCatalog = errors.New("catalog: no intents defined")

	// ErrInvalidCatalog wraps every structural validation failure.
	ErrInvalidCatalog = errors.New("catalog: invalid definition")
)

// =============================================================================
// YAML Document Types
// =============================================================================

type document struct {
	Intents        []intentSpec    `yaml:"intents" validate:"required,min=1,dive"`
	FuzzyRules     []fuzzyRuleSpec `yaml:"fuzzy_rules" validate:"dive"`
	Fallback       fallbackSpec    `yaml:"fallback"`
	EntityStoplist []string        `yaml:"entity_stoplist" validate:"dive,required"`
}

type intentSpec struct {
	Type           string   `yaml:"type" validate:"required"`
	Description    string   `yaml:"description"`
	Priority       bool     `yaml:"priority"`
	RequiresTarget bool     `yaml:"requires_target"`
	Patterns       []string `yaml:"patterns" validate:"dive,required"`
	Keywords       []string `yaml:"keywords" validate:"dive,required"`
}

type fuzzyRuleSpec struct {
	Name   string     `yaml:"name" validate:"required"`
	When   [][]string `yaml:"when" validate:"required,min=1,dive,min=1,dive,required"`
	Intent string     `yaml:"intent" validate:"required"`
	Score  int        `yaml:"score" validate:"gt=0"`
}

type fallbackSpec struct {
	EntityTerms   []string `yaml:"entity_terms" validate:"required,min=1"`
	ActionVerbs   []string `yaml:"action_verbs" validate:"required,min=1"`
	EntityScore   int      `yaml:"entity_score" validate:"gt=0"`
	ListIntent    string   `yaml:"list_intent" validate:"required"`
	InfoIntent    string   `yaml:"info_intent" validate:"required"`
	ActionIntent  string   `yaml:"action_intent" validate:"required"`
	ActionMethod  string   `yaml:"action_method" validate:"required"`
	ActionScore   int      `yaml:"action_score" validate:"gt=0"`
	DefaultIntent string   `yaml:"default_intent" validate:"required"`
	DefaultScore  int      `yaml:"default_score" validate:"gt=0"`
}

// =============================================================================
// Catalog
// =============================================================================

// Catalog is the loaded, validated intent catalog.
//
// Description:
//
//	Definitions keep YAML declaration order. EvaluationOrder lists every
//	priority definition first (in declaration order) followed by every
//	regular definition (in declaration order); classification outcomes
//	depend on this ordering.
//
// Thread Safety: Immutable after Load; safe for concurrent use.
type Catalog struct {
	definitions []IntentDefinition
	evalOrder   []*IntentDefinition
	byType      map[IntentType]*IntentDefinition
	fuzzyRules  []FuzzyRule
	fallback    Fallback
	stoplist    map[string]struct{}
}

// Definitions returns the definitions in declaration order.
//
// The returned slice shares the catalog's backing array and must not be modified.
func (c *Catalog) Definitions() []IntentDefinition {
	return c.definitions
}

// EvaluationOrder returns priority definitions first, then regular ones.
//
// The returned slice must not be modified.
func (c *Catalog) EvaluationOrder() []*IntentDefinition {
	return c.evalOrder
}

// Lookup returns the definition for t.
func (c *Catalog) Lookup(t IntentType) (*IntentDefinition, bool) {
	d, ok := c.byType[t]
	return d, ok
}

// FuzzyRules returns the ordered fallback rules. Must not be modified.
func (c *Catalog) FuzzyRules() []FuzzyRule {
	return c.fuzzyRules
}

// Fallback returns the resolver's built-in defaults.
func (c *Catalog) Fallback() Fallback {
	return c.fallback
}

// IsStopword reports whether word is a generic noun that must not be taken
// as a well identifier.
func (c *Catalog) IsStopword(word string) bool {
	_, ok := c.stoplist[strings.ToLower(word)]
	return ok
}

// =============================================================================
// Loading
// =============================================================================

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Load(context.Background(), defaultIntentsYAML)
})

// Default returns the catalog built from the embedded intents.yaml.
//
// Description:
//
//	Parsed once per process; every caller shares the same immutable value.
//
// Thread Safety: Safe for concurrent use.
func Default() (*Catalog, error) {
	return defaultCatalog()
}

// LoadFile loads a catalog from a YAML file on disk.
//
// Inputs:
//
//	ctx - Context for tracing.
//	path - Path to the YAML document.
//
// Outputs:
//
//	*Catalog - The validated catalog.
//	error - Non-nil if the file cannot be read, is too large, or is invalid.
func LoadFile(ctx context.Context, path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadFile: %s exceeds maximum size (%d > %d)", path, info.Size(), MaxYAMLFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %w", err)
	}
	return Load(ctx, data)
}

// Load parses and validates a catalog from YAML bytes.
//
// Description:
//
//	Validates struct shape with validator tags, then cross-checks tags
//	(known, unique, not "unknown"), keyword uniqueness within each intent,
//	regex compilation, and that every fuzzy rule and fallback names a
//	defined intent. Patterns are compiled case-insensitive; keywords and
//	stoplist entries are lower-cased.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes.
//
// Outputs:
//
//	*Catalog - The validated catalog. Never nil on success.
//	error - ErrEmptyCatalog or an ErrInvalidCatalog wrap on failure.
func Load(ctx context.Context, data []byte) (*Catalog, error) {
	_, span := catalogTracer.Start(ctx, "catalog.Load")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("Load: empty YAML data: %w", ErrEmptyCatalog)
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("Load: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("Load: parsing YAML: %w", err)
	}
	if len(doc.Intents) == 0 {
		return nil, fmt.Errorf("Load: %w", ErrEmptyCatalog)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("Load: %w: %v", ErrInvalidCatalog, err)
	}

	cat, err := build(&doc)
	if err != nil {
		return nil, fmt.Errorf("Load: %w: %v", ErrInvalidCatalog, err)
	}

	span.SetAttributes(
		attribute.Int("intents", len(cat.definitions)),
		attribute.Int("fuzzy_rules", len(cat.fuzzyRules)),
		attribute.Int("stoplist", len(cat.stoplist)),
	)

	slog.Debug("intent catalog loaded",
		slog.Int("intents", len(cat.definitions)),
		slog.Int("fuzzy_rules", len(cat.fuzzyRules)),
	)

	return cat, nil
}

func build(doc *document) (*Catalog, error) {
	cat := &Catalog{
		definitions: make([]IntentDefinition, 0, len(doc.Intents)),
		byType:      make(map[IntentType]*IntentDefinition, len(doc.Intents)),
		stoplist:    make(map[string]struct{}, len(doc.EntityStoplist)),
	}

	seen := make(map[IntentType]bool, len(doc.Intents))
	for i, entry := range doc.Intents {
		t := IntentType(entry.Type)
		if !t.IsKnown() {
			return nil, fmt.Errorf("intents[%d]: unknown intent type %q", i, entry.Type)
		}
		if seen[t] {
			return nil, fmt.Errorf("intents[%d]: duplicate intent type %q", i, entry.Type)
		}
		seen[t] = true

		if len(entry.Patterns) == 0 && len(entry.Keywords) == 0 {
			return nil, fmt.Errorf("intents[%d] (%s): needs at least one pattern or keyword", i, t)
		}

		def := IntentDefinition{
			Type:           t,
			Description:    entry.Description,
			IsPriority:     entry.Priority,
			RequiresTarget: entry.RequiresTarget,
			Patterns:       make([]*regexp.Regexp, 0, len(entry.Patterns)),
			Keywords:       make([]string, 0, len(entry.Keywords)),
		}
		for j, p := range entry.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("intents[%d] (%s): patterns[%d]: %w", i, t, j, err)
			}
			def.Patterns = append(def.Patterns, re)
		}
		kwSeen := make(map[string]bool, len(entry.Keywords))
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(kw)
			if kwSeen[kw] {
				return nil, fmt.Errorf("intents[%d] (%s): duplicate keyword %q", i, t, kw)
			}
			kwSeen[kw] = true
			def.Keywords = append(def.Keywords, kw)
		}
		cat.definitions = append(cat.definitions, def)
	}

	// Pointers are taken after the slice is fully built so they stay stable.
	for i := range cat.definitions {
		d := &cat.definitions[i]
		cat.byType[d.Type] = d
		if d.IsPriority {
			cat.evalOrder = append(cat.evalOrder, d)
		}
	}
	for i := range cat.definitions {
		d := &cat.definitions[i]
		if !d.IsPriority {
			cat.evalOrder = append(cat.evalOrder, d)
		}
	}

	for i, entry := range doc.FuzzyRules {
		t := IntentType(entry.Intent)
		if _, ok := cat.byType[t]; !ok {
			return nil, fmt.Errorf("fuzzy_rules[%d] (%s): intent %q not defined", i, entry.Name, entry.Intent)
		}
		when := make([][]string, len(entry.When))
		for g, group := range entry.When {
			when[g] = lowerAll(group)
		}
		cat.fuzzyRules = append(cat.fuzzyRules, FuzzyRule{
			Name:   entry.Name,
			When:   when,
			Intent: t,
			Score:  entry.Score,
		})
	}

	fb := doc.Fallback
	for _, name := range []string{fb.ListIntent, fb.InfoIntent, fb.ActionIntent, fb.DefaultIntent} {
		if _, ok := cat.byType[IntentType(name)]; !ok {
			return nil, fmt.Errorf("fallback: intent %q not defined", name)
		}
	}
	cat.fallback = Fallback{
		EntityTerms:   lowerAll(fb.EntityTerms),
		ActionVerbs:   lowerAll(fb.ActionVerbs),
		EntityScore:   fb.EntityScore,
		ListIntent:    IntentType(fb.ListIntent),
		InfoIntent:    IntentType(fb.InfoIntent),
		ActionIntent:  IntentType(fb.ActionIntent),
		ActionMethod:  fb.ActionMethod,
		ActionScore:   fb.ActionScore,
		DefaultIntent: IntentType(fb.DefaultIntent),
		DefaultScore:  fb.DefaultScore,
	}

	for _, w := range doc.EntityStoplist {
		cat.stoplist[strings.ToLower(w)] = struct{}{}
	}

	return cat, nil
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
