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

import "regexp"

// minEntityLength is the exclusive lower bound on an accepted capture.
const minEntityLength = 3

// entityPatterns are tried most specific first. Each has exactly one capture group.
var entityPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	// SANDSTONE_RESERVOIR_001, WELL-001, Kup7
	{"canonical", regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9]*(?:[_-][A-Za-z0-9]+)*[_-]?\d+)\b`)},
	{"preposition", regexp.MustCompile(`(?i)\b(?:for|of|on|in|from|at)\s+(?:the\s+)?(?:well\s+)?([A-Za-z0-9][A-Za-z0-9_-]*)`)},
	{"uppercase", regexp.MustCompile(`\b([A-Z][A-Z0-9_-]{3,})\b`)},
	// Last resort: a capitalized word closing the request.
	{"trailing", regexp.MustCompile(`\b([A-Z][A-Za-z0-9_-]*)\W*$`)},
}

// ExtractEntity pulls a well identifier out of raw text.
//
// Description:
//
//	Patterns are tried in order. The first capture longer than three
//	characters that is not a stoplisted generic noun is returned and no
//	further pattern is attempted.
//
// Inputs:
//
//	text - The raw request. Case is significant for the upper-case and
//	       trailing-word patterns.
//
// Outputs:
//
//	string - The identifier, or "" when none was found.
//
// Thread Safety: Safe for concurrent use.
func (c *Classifier) ExtractEntity(text string) string {
	for _, p := range entityPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			candidate := m[1]
			if len(candidate) <= minEntityLength {
				continue
			}
			if c.catalog.IsStopword(candidate) {
				continue
			}
			return candidate
		}
	}
	return ""
}
