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

// Score weights.
const (
	PatternBonus       = 10
	KeywordBonus       = 2
	PriorityBonus      = 20
	TargetBonus        = 5
	MissingTargetScore = -3
)

// Score computes the confidence of one definition against lower-cased,
// trimmed text.
//
// Description:
//
//	+10 when any pattern matches (only once), +2 per keyword substring,
//	+20 for a priority definition whose running score is already positive,
//	then +5 or -3 for a target-requiring definition depending on whether an
//	entity was extracted. The penalty leaves the definition a candidate.
func Score(def *catalog.IntentDefinition, lower string, hasEntity bool) int {
	score := 0
	if def.MatchesPattern(lower) {
		score += PatternBonus
	}
	score += KeywordBonus * def.KeywordHits(lower)
	if def.IsPriority && score > 0 {
		score += PriorityBonus
	}
	if def.RequiresTarget {
		if hasEntity {
			score += TargetBonus
		} else {
			score += MissingTargetScore
		}
	}
	return score
}
