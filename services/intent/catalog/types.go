// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"regexp"
	"strings"
)

// IntentType is the discrete workflow tag chosen for a request.
type IntentType string

const (
	// IntentUnknown is the running-best seed of the decision selector. It is
	// never a catalog entry.
	IntentUnknown IntentType = "unknown"

	IntentListWells          IntentType = "list_wells"
	IntentWellInfo           IntentType = "well_info"
	IntentCalculatePorosity  IntentType = "calculate_porosity"
	IntentCalculateShale     IntentType = "calculate_shale_volume"
	IntentCalculateSat       IntentType = "calculate_saturation"
	IntentDataQuality        IntentType = "assess_data_quality"
	IntentFormationEval      IntentType = "formation_evaluation"
	IntentMethodology        IntentType = "explain_methodology"
	IntentNaturalLanguage    IntentType = "natural_language_query"
	IntentShaleWorkflow      IntentType = "shale_analysis_workflow"
	IntentPorosityWorkflow   IntentType = "porosity_analysis_workflow"
	IntentMultiWellCorrelate IntentType = "multi_well_correlation"
)

// knownIntents is the closed set of tags a catalog may define.
var knownIntents = map[IntentType]bool{
	IntentListWells:          true,
	IntentWellInfo:           true,
	IntentCalculatePorosity:  true,
	IntentCalculateShale:     true,
	IntentCalculateSat:       true,
	IntentDataQuality:        true,
	IntentFormationEval:      true,
	IntentMethodology:        true,
	IntentNaturalLanguage:    true,
	IntentShaleWorkflow:      true,
	IntentPorosityWorkflow:   true,
	IntentMultiWellCorrelate: true,
}

// IsKnown reports whether t is one of the catalog tags.
func (t IntentType) IsKnown() bool {
	return knownIntents[t]
}

// String returns the tag.
func (t IntentType) String() string {
	return string(t)
}

// IntentDefinition describes how one intent is recognized.
//
// Description:
//
//	Patterns are tried in declaration order and only the first match counts.
//	Keywords are matched as substrings of the lower-cased request, each one
//	contributing independently.
//
// Thread Safety: Immutable after catalog load; safe for concurrent use.
type IntentDefinition struct {
	// Type is the tag this definition resolves to. Unique within a catalog.
	Type IntentType

	// Description is a short human-readable summary, surfaced by the catalog endpoint.
	Description string

	// Patterns are compiled matchers, in declaration order.
	Patterns []*regexp.Regexp

	// Keywords are lower-cased substrings, unique within the definition.
	Keywords []string

	// IsPriority marks a definition that short-circuits selection once it
	// reaches a modest confidence.
	IsPriority bool

	// RequiresTarget marks a definition whose handler needs a well identifier.
	RequiresTarget bool
}

// MatchesPattern reports whether any pattern matches textLower.
func (d *IntentDefinition) MatchesPattern(textLower string) bool {
	for _, re := range d.Patterns {
		if re.MatchString(textLower) {
			return true
		}
	}
	return false
}

// KeywordHits counts keywords that occur as substrings of textLower.
func (d *IntentDefinition) KeywordHits(textLower string) int {
	hits := 0
	for _, kw := range d.Keywords {
		if strings.Contains(textLower, kw) {
			hits++
		}
	}
	return hits
}

// FuzzyRule is one ordered fallback rule of the fuzzy heuristic resolver.
//
// Description:
//
//	The rule fires when every group in When has at least one of its
//	substrings present in the lower-cased request.
type FuzzyRule struct {
	Name   string
	When   [][]string
	Intent IntentType
	Score  int
}

// Matches reports whether every condition group is satisfied by textLower.
func (r FuzzyRule) Matches(textLower string) bool {
	if len(r.When) == 0 {
		return false
	}
	for _, group := range r.When {
		if !ContainsAny(textLower, group) {
			return false
		}
	}
	return true
}

// Fallback holds the resolver's built-in defaults applied after the ordered
// fuzzy rules.
type Fallback struct {
	// EntityTerms are words that indicate the user is talking about a well.
	EntityTerms []string

	// ActionVerbs are generic verbs that indicate a computation request.
	ActionVerbs []string

	// EntityScore is the fixed score for the entity-only defaults.
	EntityScore int

	// ListIntent is chosen for entity-like text without an extracted entity.
	ListIntent IntentType

	// InfoIntent is chosen for entity-like text with an extracted entity.
	InfoIntent IntentType

	// ActionIntent and ActionMethod form the baseline computation default.
	ActionIntent IntentType
	ActionMethod string
	ActionScore  int

	// DefaultIntent and DefaultScore apply when nothing else matches.
	DefaultIntent IntentType
	DefaultScore  int
}

// ContainsAny reports whether any of needles is a substring of haystack.
func ContainsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
