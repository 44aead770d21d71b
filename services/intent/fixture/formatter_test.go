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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/ports"
)

var _ ports.ResponseFormatter = TextFormatter{}
var _ ports.MethodologyRegistry = StaticMethodologies{}
var _ ports.ComputationEngine = (*Engine)(nil)

func TestTextFormatter_Domain(t *testing.T) {
	res := &ports.ComputationResult{
		Calculation: ports.CalcShaleVolume,
		Method:      classify.MethodClavier,
		Values:      []float64{0.1, 0.2},
		Statistics:  &ports.Statistics{Count: 2, Mean: 0.15, Min: 0.1, Max: 0.2, P10: 0.1, P50: 0.1, P90: 0.2},
		DepthRange:  ports.DepthRange{Top: 100, Bottom: 200, Unit: "m"},
	}
	msg := TextFormatter{}.BuildDomainResponse("WELL_7", res, &ports.Methodology{UncertaintyRange: "+/- 0.1"})

	assert.Contains(t, msg, "**shale volume** for WELL_7 (clavier method)")
	assert.Contains(t, msg, "samples: 2")
	assert.Contains(t, msg, "mean: 0.150")
	assert.Contains(t, msg, "100.0 to 200.0 m")
	assert.Contains(t, msg, "typical uncertainty: +/- 0.1")
}

func TestTextFormatter_Lists(t *testing.T) {
	f := TextFormatter{}
	assert.Equal(t, "No wells are available.", f.BuildTargetListResponse(nil))
	assert.Equal(t, "2 wells available:\n- A_1 (North)\n- B_2",
		f.BuildTargetListResponse([]ports.TargetSummary{{ID: "A_1", Field: "North"}, {ID: "B_2"}}))

	table := f.BuildCorrelationResponse(ports.CalcPorosity, classify.MethodDensity, []ports.CorrelationRow{
		{Target: "A_1", Statistics: &ports.Statistics{Mean: 0.2, P10: 0.1, P90: 0.3}},
	})
	assert.Contains(t, table, "across 1 wells")
	assert.Contains(t, table, "| A_1 | 0.200 | 0.100 | 0.300 |")
}

func TestTextFormatter_Methodology(t *testing.T) {
	m, ok := DefaultMethodologies().GetMethodology(classify.MethodologyShaleVolume)
	require.True(t, ok)

	doc := TextFormatter{}.BuildMethodologyResponse(m)
	assert.Contains(t, doc, "## Shale volume from gamma ray")
	assert.Contains(t, doc, "### Assumptions")
	assert.Contains(t, doc, "### References")
	assert.Contains(t, doc, "Larionov (1969)")
	assert.NotContains(t, doc, "\n\n\n")
}

func TestTextFormatter_Error(t *testing.T) {
	assert.Equal(t, "Unable to produce a formatting result: bad payload.",
		TextFormatter{}.BuildErrorResponse("formatting", "bad payload"))
}

func TestDefaultMethodologies_Topics(t *testing.T) {
	reg := DefaultMethodologies()
	for _, key := range []string{
		classify.MethodologyPorosity,
		classify.MethodologyShaleVolume,
		classify.MethodologyWaterSaturation,
	} {
		m, ok := reg.GetMethodology(key)
		require.True(t, ok, key)
		assert.Equal(t, key, m.Key)
		assert.NotEmpty(t, m.References)
		assert.NotEmpty(t, m.UncertaintyRange)
	}

	_, ok := reg.GetMethodology("permeability")
	assert.False(t, ok)
}
