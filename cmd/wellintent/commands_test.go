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
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/wellintent/services/intent/catalog"
	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/dispatch"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("WELLINTENT_AUDIT_BACKEND", "memory")
	t.Setenv("WELLINTENT_REMOTE_AGENT_URL", "")

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClassifyCommand_JSON(t *testing.T) {
	out, err := execute(t, "", "classify", "calculate", "porosity", "for", "SANDSTONE_RESERVOIR_001")
	require.NoError(t, err)

	var c classify.Classification
	require.NoError(t, json.Unmarshal([]byte(out), &c), out)
	assert.Equal(t, catalog.IntentCalculatePorosity, c.Type)
	assert.Equal(t, "SANDSTONE_RESERVOIR_001", c.TargetEntity)
}

func TestClassifyCommand_Stdin(t *testing.T) {
	out, err := execute(t, "show me all wells\n\n tell me about SHALE_PLAY_002 \n", "classify", "--stdin")
	require.NoError(t, err)

	var cs []classify.Classification
	require.NoError(t, json.Unmarshal([]byte(out), &cs), out)
	require.Len(t, cs, 2)
	assert.Equal(t, catalog.IntentListWells, cs[0].Type)
	assert.Equal(t, catalog.IntentWellInfo, cs[1].Type)
	assert.Equal(t, "SHALE_PLAY_002", cs[1].TargetEntity)
}

func TestClassifyCommand_NoInput(t *testing.T) {
	_, err := execute(t, "", "classify")
	assert.ErrorContains(t, err, "provide text")

	_, err = execute(t, "  \n", "classify", "--stdin")
	assert.ErrorContains(t, err, "stdin is empty")
}

func TestDispatchCommand(t *testing.T) {
	out, err := execute(t, "", "dispatch", "--actor", "cli", "show me all wells")
	require.NoError(t, err)

	var env dispatch.ResultEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	assert.True(t, env.Success)
	assert.Contains(t, env.Message, "4 wells available")
}

func TestDispatchCommand_FailureExitsNonZero(t *testing.T) {
	out, err := execute(t, "", "dispatch", "calculate porosity")
	assert.ErrorIs(t, err, errDispatchFailed)

	var env dispatch.ResultEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "Please specify which well")
}

func TestCatalogCommand(t *testing.T) {
	out, err := execute(t, "", "catalog", "--json")
	require.NoError(t, err)

	var rows []struct {
		Type     string `json:"type"`
		Priority bool   `json:"priority"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	require.NotEmpty(t, rows)
	assert.True(t, rows[0].Priority)
}

func TestCatalogCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "", "catalog", "--catalog", t.TempDir()+"/nope.yaml")
	assert.ErrorContains(t, err, "nope.yaml")
}

func TestRenderer_Styled(t *testing.T) {
	var buf bytes.Buffer
	r := &renderer{w: &buf, styled: true}

	cls := classify.Classification{
		Candidate: classify.Candidate{Type: catalog.IntentCalculatePorosity, Score: 17, TargetEntity: "SANDSTONE_RESERVOIR_001", Method: "density"},
		Source:    classify.SourceScored,
	}
	require.NoError(t, r.envelope(dispatch.ResultEnvelope{
		Success:        true,
		Message:        "**porosity** for SANDSTONE_RESERVOIR_001",
		Diagnostics:    []string{"compared 2 methods"},
		Classification: &cls,
	}))
	out := buf.String()
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "calculate_porosity")
	assert.Contains(t, out, "compared 2 methods")

	buf.Reset()
	require.NoError(t, r.classifications([]string{"calculate porosity"}, []classify.Classification{cls}))
	assert.Contains(t, buf.String(), "target=SANDSTONE_RESERVOIR_001")
	assert.Contains(t, buf.String(), "method=density")
}

func TestIsTerminal_Buffer(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
}
