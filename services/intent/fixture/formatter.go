// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixture

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/wellintent/services/intent/ports"
)

// TextFormatter renders Markdown-flavoured plain text.
type TextFormatter struct{}

// BuildDomainResponse implements ports.ResponseFormatter.
func (TextFormatter) BuildDomainResponse(target string, result *ports.ComputationResult, methodology *ports.Methodology) string {
	var b strings.Builder
	label := strings.ReplaceAll(string(result.Calculation), "_", " ")
	fmt.Fprintf(&b, "**%s** for %s (%s method)\n", label, target, result.Method)
	if s := result.Statistics; s != nil {
		fmt.Fprintf(&b, "- samples: %d\n", s.Count)
		fmt.Fprintf(&b, "- mean: %.3f (min %.3f, max %.3f)\n", s.Mean, s.Min, s.Max)
		fmt.Fprintf(&b, "- P10/P50/P90: %.3f / %.3f / %.3f\n", s.P10, s.P50, s.P90)
	}
	dr := result.DepthRange
	fmt.Fprintf(&b, "- interval: %.1f to %.1f %s", dr.Top, dr.Bottom, dr.Unit)
	if methodology != nil && methodology.UncertaintyRange != "" {
		fmt.Fprintf(&b, "\n- typical uncertainty: %s", methodology.UncertaintyRange)
	}
	return b.String()
}

// BuildErrorResponse implements ports.ResponseFormatter.
func (TextFormatter) BuildErrorResponse(kind, detail string) string {
	return fmt.Sprintf("Unable to produce a %s result: %s.", kind, detail)
}

// BuildTargetListResponse implements ports.ResponseFormatter.
func (TextFormatter) BuildTargetListResponse(targets []ports.TargetSummary) string {
	if len(targets) == 0 {
		return "No wells are available."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d wells available:", len(targets))
	for _, t := range targets {
		fmt.Fprintf(&b, "\n- %s", t.ID)
		if t.Field != "" {
			fmt.Fprintf(&b, " (%s)", t.Field)
		}
	}
	return b.String()
}

// BuildTargetInfoResponse implements ports.ResponseFormatter.
func (TextFormatter) BuildTargetInfoResponse(info *ports.TargetInfo) string {
	dr := info.DepthRange
	return fmt.Sprintf("**%s** (%s): curves %s, logged from %.1f to %.1f %s.",
		info.ID, info.Field, strings.Join(info.Curves, ", "), dr.Top, dr.Bottom, dr.Unit)
}

// BuildMethodologyResponse implements ports.ResponseFormatter.
func (TextFormatter) BuildMethodologyResponse(m *ports.Methodology) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n%s\n", m.Name, m.Description)
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n### %s\n", title)
		for _, it := range items {
			fmt.Fprintf(&b, "- %s\n", it)
		}
	}
	section("Assumptions", m.Assumptions)
	section("Limitations", m.Limitations)
	section("References", m.References)
	if m.UncertaintyRange != "" {
		fmt.Fprintf(&b, "\nTypical uncertainty: %s\n", m.UncertaintyRange)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildCorrelationResponse implements ports.ResponseFormatter.
func (TextFormatter) BuildCorrelationResponse(calc ports.Calculation, method string, rows []ports.CorrelationRow) string {
	var b strings.Builder
	label := strings.ReplaceAll(string(calc), "_", " ")
	fmt.Fprintf(&b, "**%s** (%s) across %d wells\n\n", label, method, len(rows))
	b.WriteString("| well | mean | P10 | P90 |\n|---|---|---|---|")
	for _, r := range rows {
		s := r.Statistics
		fmt.Fprintf(&b, "\n| %s | %.3f | %.3f | %.3f |", r.Target, s.Mean, s.P10, s.P90)
	}
	return b.String()
}
