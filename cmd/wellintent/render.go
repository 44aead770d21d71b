// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/wellintent/services/intent/catalog"
	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/dispatch"
)

const markdownWidth = 100

var (
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	intentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderer prints results either styled for a terminal or as indented JSON.
type renderer struct {
	w      io.Writer
	styled bool
}

func newRenderer(w io.Writer, forceJSON bool) *renderer {
	return &renderer{w: w, styled: !forceJSON && isTerminal(w)}
}

func (r *renderer) json(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *renderer) classifications(texts []string, results []classify.Classification) error {
	if !r.styled {
		if len(results) == 1 {
			return r.json(results[0])
		}
		return r.json(results)
	}
	for i, c := range results {
		line := fmt.Sprintf("%s  score=%d  source=%s", intentStyle.Render(string(c.Type)), c.Score, c.Source)
		if c.TargetEntity != "" {
			line += "  target=" + c.TargetEntity
		}
		if c.Method != "" {
			line += "  method=" + c.Method
		}
		if c.Rule != "" {
			line += "  rule=" + c.Rule
		}
		fmt.Fprintln(r.w, dimStyle.Render(texts[i]))
		fmt.Fprintln(r.w, "  "+line)
	}
	return nil
}

func (r *renderer) envelope(env dispatch.ResultEnvelope) error {
	if !r.styled {
		return r.json(env)
	}

	status := okStyle.Render("OK")
	if !env.Success {
		status = failStyle.Render("FAILED")
	}
	header := status
	if env.Classification != nil {
		header += "  " + intentStyle.Render(string(env.Classification.Type))
	}
	fmt.Fprintln(r.w, header)

	fmt.Fprint(r.w, renderMarkdown(env.Message))
	for _, d := range env.Diagnostics {
		fmt.Fprintln(r.w, dimStyle.Render("  "+d))
	}
	return nil
}

func (r *renderer) catalog(cat *catalog.Catalog) error {
	order := cat.EvaluationOrder()
	if !r.styled {
		type row struct {
			Type           string `json:"type"`
			Priority       bool   `json:"priority"`
			RequiresTarget bool   `json:"requires_target"`
			Description    string `json:"description"`
		}
		rows := make([]row, len(order))
		for i, d := range order {
			rows[i] = row{string(d.Type), d.IsPriority, d.RequiresTarget, d.Description}
		}
		return r.json(rows)
	}

	for _, d := range order {
		var flags []string
		if d.IsPriority {
			flags = append(flags, "priority")
		}
		if d.RequiresTarget {
			flags = append(flags, "needs well")
		}
		line := intentStyle.Render(string(d.Type))
		if len(flags) > 0 {
			line += " " + dimStyle.Render("["+strings.Join(flags, ", ")+"]")
		}
		fmt.Fprintln(r.w, line)
		if d.Description != "" {
			fmt.Fprintln(r.w, "  "+d.Description)
		}
	}
	return nil
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		return md + "\n"
	}
	out, err := tr.Render(md)
	if err != nil {
		return md + "\n"
	}
	return out
}
