// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classify

import "github.com/AleutianAI/wellintent/services/intent/catalog"

// Built-in fallback rule names, reported in Classification.Rule.
const (
	RuleEntityInfo    = "entity_info"
	RuleEntityList    = "entity_list"
	RuleActionDefault = "action_default"
	RuleDefault       = "default"
)

// fuzzyOutcome is the resolver's decision.
type fuzzyOutcome struct {
	intent catalog.IntentType
	score  int
	rule   string

	// method is set when the rule fixes a canonical method.
	method string

	// noTarget drops any extracted entity from the result.
	noTarget bool
}

// resolveFuzzy applies the ordered fallback rules, then the built-in defaults.
//
// Description:
//
//	Catalog rules are evaluated top to bottom and the first satisfied one
//	wins. Without a rule hit: entity-like text without an action verb maps
//	to the info intent (entity extracted) or the list intent (none); an
//	action verb maps to the baseline computation with its canonical method;
//	anything else gets the minimal-confidence default with no target.
func resolveFuzzy(cat *catalog.Catalog, lower, entity string) fuzzyOutcome {
	for _, rule := range cat.FuzzyRules() {
		if rule.Matches(lower) {
			return fuzzyOutcome{intent: rule.Intent, score: rule.Score, rule: rule.Name}
		}
	}

	fb := cat.Fallback()
	hasAction := catalog.ContainsAny(lower, fb.ActionVerbs)
	entityLike := entity != "" || catalog.ContainsAny(lower, fb.EntityTerms)

	switch {
	case entityLike && !hasAction:
		if entity != "" {
			return fuzzyOutcome{intent: fb.InfoIntent, score: fb.EntityScore, rule: RuleEntityInfo}
		}
		return fuzzyOutcome{intent: fb.ListIntent, score: fb.EntityScore, rule: RuleEntityList}
	case hasAction:
		return fuzzyOutcome{
			intent: fb.ActionIntent,
			score:  fb.ActionScore,
			rule:   RuleActionDefault,
			method: fb.ActionMethod,
		}
	default:
		return fuzzyOutcome{
			intent:   fb.DefaultIntent,
			score:    fb.DefaultScore,
			rule:     RuleDefault,
			noTarget: true,
		}
	}
}
