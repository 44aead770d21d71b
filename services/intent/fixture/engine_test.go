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
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/ports"
)

func TestEngine_ListTargets(t *testing.T) {
	e := NewDefaultEngine()
	targets, err := e.ListTargets(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(targets))
	for i, tg := range targets {
		ids[i] = tg.ID
	}
	assert.Equal(t, []string{
		"SANDSTONE_RESERVOIR_001",
		"SHALE_PLAY_002",
		"CARBONATE_BANK_003",
		"TIGHT_GAS_004",
	}, ids)
	assert.Equal(t, "North Slope", targets[0].Field)
}

func TestEngine_GetTargetInfo(t *testing.T) {
	e := NewDefaultEngine()
	info, err := e.GetTargetInfo(context.Background(), "SANDSTONE_RESERVOIR_001")
	require.NoError(t, err)

	assert.Equal(t, []string{"DT", "GR", "NPHI", "RHOB", "RT"}, info.Curves)
	assert.Equal(t, 2000.0, info.DepthRange.Top)
	assert.Equal(t, 2099.5, info.DepthRange.Bottom)
	assert.Equal(t, "m", info.DepthRange.Unit)
	assert.Equal(t, "200", info.Metadata["samples"])
}

func TestEngine_UnknownTarget(t *testing.T) {
	e := NewDefaultEngine()

	_, err := e.GetTargetInfo(context.Background(), "NOPE_999")
	assert.ErrorIs(t, err, ports.ErrTargetNotFound)

	_, err = e.Compute(context.Background(), ports.ComputeSpec{Target: "NOPE_999", Calculation: ports.CalcPorosity, Method: classify.MethodDensity})
	assert.ErrorIs(t, err, ports.ErrTargetNotFound)
}

func TestEngine_CancelledContext(t *testing.T) {
	e := NewDefaultEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ListTargets(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = e.Compute(ctx, ports.ComputeSpec{Target: "SANDSTONE_RESERVOIR_001", Calculation: ports.CalcPorosity, Method: classify.MethodDensity})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_ComputeMethods(t *testing.T) {
	cases := []struct {
		calc    ports.Calculation
		methods []string
		lo, hi  float64
	}{
		{ports.CalcPorosity, []string{
			classify.MethodDensity, classify.MethodNeutron, classify.MethodDensityNeutron,
			classify.MethodSonic, classify.MethodEffective,
		}, 0, 0.6},
		{ports.CalcShaleVolume, []string{
			classify.MethodLarionovTertiary, classify.MethodLarionovPreTertiary,
			classify.MethodClavier, classify.MethodLinear,
		}, 0, 1},
		{ports.CalcSaturation, []string{
			classify.MethodArchie, classify.MethodSimandoux, classify.MethodIndonesian,
		}, 0, 1},
		{ports.CalcDataQuality, []string{"completeness"}, 0, 1},
	}

	e := NewDefaultEngine()
	for _, tc := range cases {
		for _, method := range tc.methods {
			t.Run(string(tc.calc)+"/"+method, func(t *testing.T) {
				res, err := e.Compute(context.Background(), ports.ComputeSpec{
					Target: "SANDSTONE_RESERVOIR_001", Calculation: tc.calc, Method: method,
				})
				require.NoError(t, err)
				require.NotNil(t, res.Statistics)
				assert.Equal(t, tc.calc, res.Calculation)
				assert.Equal(t, method, res.Method)
				assert.Len(t, res.Values, 200)
				for _, v := range res.Values {
					assert.False(t, math.IsNaN(v))
					assert.GreaterOrEqual(t, v, tc.lo)
					assert.LessOrEqual(t, v, tc.hi)
				}
				assert.LessOrEqual(t, res.Statistics.P10, res.Statistics.P50)
				assert.LessOrEqual(t, res.Statistics.P50, res.Statistics.P90)
			})
		}
	}
}

func TestEngine_UnsupportedMethod(t *testing.T) {
	e := NewDefaultEngine()
	for _, calc := range []ports.Calculation{ports.CalcPorosity, ports.CalcShaleVolume, ports.CalcSaturation, "permeability"} {
		_, err := e.Compute(context.Background(), ports.ComputeSpec{
			Target: "SANDSTONE_RESERVOIR_001", Calculation: calc, Method: "magic",
		})
		assert.ErrorIs(t, err, ErrUnsupportedMethod, string(calc))
	}
}

func TestEngine_GapsAreSkipped(t *testing.T) {
	e := NewDefaultEngine()

	// DT is missing every 25th sample of 200.
	res, err := e.Compute(context.Background(), ports.ComputeSpec{
		Target: "SHALE_PLAY_002", Calculation: ports.CalcPorosity, Method: classify.MethodSonic,
	})
	require.NoError(t, err)
	assert.Len(t, res.Values, 192)

	// NPHI is missing every 10th sample of 160.
	res, err = e.Compute(context.Background(), ports.ComputeSpec{
		Target: "TIGHT_GAS_004", Calculation: ports.CalcPorosity, Method: classify.MethodNeutron,
	})
	require.NoError(t, err)
	assert.Len(t, res.Values, 144)

	res, err = e.Compute(context.Background(), ports.ComputeSpec{
		Target: "TIGHT_GAS_004", Calculation: ports.CalcDataQuality, Method: "completeness",
	})
	require.NoError(t, err)
	assert.Len(t, res.Values, 160)
	assert.InDelta(t, 0.8, res.Statistics.Min, 1e-9)
	assert.InDelta(t, 1.0, res.Statistics.Max, 1e-9)
}

func TestEngine_Deterministic(t *testing.T) {
	spec := ports.ComputeSpec{Target: "CARBONATE_BANK_003", Calculation: ports.CalcSaturation, Method: classify.MethodSimandoux}
	a, err := NewDefaultEngine().Compute(context.Background(), spec)
	require.NoError(t, err)
	b, err := NewDefaultEngine().Compute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, a.Values, b.Values)
}

func TestSummarize(t *testing.T) {
	assert.Nil(t, Summarize(nil))

	s := Summarize([]float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1})
	require.NotNil(t, s)
	assert.Equal(t, 10, s.Count)
	assert.InDelta(t, 5.5, s.Mean, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 10.0, s.Max)
	assert.Equal(t, 1.0, s.P10)
	assert.Equal(t, 5.0, s.P50)
	assert.Equal(t, 9.0, s.P90)

	one := Summarize([]float64{0.25})
	assert.Equal(t, 0.25, one.P10)
	assert.Equal(t, 0.25, one.P90)
}

func TestNewEngine_Empty(t *testing.T) {
	e := NewEngine()
	targets, err := e.ListTargets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, targets)
}
