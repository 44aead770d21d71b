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
	"math"
	"sort"
)

// Curve mnemonics.
const (
	CurveGR   = "GR"   // gamma ray, API
	CurveRHOB = "RHOB" // bulk density, g/cc
	CurveNPHI = "NPHI" // neutron porosity, v/v
	CurveDT   = "DT"   // sonic slowness, us/ft
	CurveRT   = "RT"   // deep resistivity, ohm.m
)

// Well is one synthetic well log. Missing samples are NaN.
type Well struct {
	ID       string
	Field    string
	Location string
	Unit     string
	Depth    []float64
	Curves   map[string][]float64
}

// CurveNames returns the well's curve mnemonics, sorted.
func (w *Well) CurveNames() []string {
	names := make([]string, 0, len(w.Curves))
	for name := range w.Curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// wellProfile parameterizes a synthetic log.
type wellProfile struct {
	id, field, location string
	top                 float64
	samples             int
	step                float64
	shaleBias           float64 // 0 clean sand, 1 mostly shale
	porosityBase        float64
	waterResistivity    float64
	gapEvery            int // NaN every n-th sample on one curve; 0 for none
	gapCurve            string
}

var defaultProfiles = []wellProfile{
	{
		id: "SANDSTONE_RESERVOIR_001", field: "North Slope", location: "70.25N 148.50W",
		top: 2000, samples: 200, step: 0.5,
		shaleBias: 0.2, porosityBase: 0.22, waterResistivity: 0.05,
	},
	{
		id: "SHALE_PLAY_002", field: "Permian", location: "31.90N 102.10W",
		top: 3500, samples: 200, step: 0.5,
		shaleBias: 0.75, porosityBase: 0.09, waterResistivity: 0.04,
		gapEvery: 25, gapCurve: CurveDT,
	},
	{
		id: "CARBONATE_BANK_003", field: "Ghawar", location: "25.40N 49.60E",
		top: 1800, samples: 160, step: 0.5,
		shaleBias: 0.15, porosityBase: 0.16, waterResistivity: 0.03,
	},
	{
		id: "TIGHT_GAS_004", field: "Piceance", location: "39.70N 108.00W",
		top: 2600, samples: 160, step: 0.5,
		shaleBias: 0.4, porosityBase: 0.07, waterResistivity: 0.06,
		gapEvery: 10, gapCurve: CurveNPHI,
	},
}

// DefaultWells returns the built-in synthetic wells in a stable order.
func DefaultWells() []Well {
	wells := make([]Well, 0, len(defaultProfiles))
	for _, p := range defaultProfiles {
		wells = append(wells, generate(p))
	}
	return wells
}

// generate builds a deterministic log from p.
func generate(p wellProfile) Well {
	w := Well{
		ID:       p.id,
		Field:    p.field,
		Location: p.location,
		Unit:     "m",
		Depth:    make([]float64, p.samples),
		Curves: map[string][]float64{
			CurveGR:   make([]float64, p.samples),
			CurveRHOB: make([]float64, p.samples),
			CurveNPHI: make([]float64, p.samples),
			CurveDT:   make([]float64, p.samples),
			CurveRT:   make([]float64, p.samples),
		},
	}

	for i := 0; i < p.samples; i++ {
		w.Depth[i] = p.top + float64(i)*p.step

		// Bedding cycles between sand and shale.
		cycle := 0.5 + 0.5*math.Sin(float64(i)/7.0)
		vsh := clamp(p.shaleBias*0.6+0.4*cycle*p.shaleBias+0.05*math.Sin(float64(i)/2.3), 0, 1)
		phi := clamp(p.porosityBase*(1-0.6*vsh)+0.02*math.Cos(float64(i)/3.1), 0.01, 0.4)

		w.Curves[CurveGR][i] = 20 + 130*vsh
		w.Curves[CurveRHOB][i] = matrixDensity - phi*(matrixDensity-fluidDensity)
		w.Curves[CurveNPHI][i] = clamp(phi+0.12*vsh, 0, 0.6)
		w.Curves[CurveDT][i] = matrixSlowness + phi*(fluidSlowness-matrixSlowness)
		sw := clamp(0.3+0.5*vsh+0.1*math.Sin(float64(i)/11.0), 0.1, 1)
		w.Curves[CurveRT][i] = p.waterResistivity / (math.Pow(phi, 2) * math.Pow(sw, 2))
	}

	if p.gapEvery > 0 {
		gaps := w.Curves[p.gapCurve]
		for i := p.gapEvery - 1; i < len(gaps); i += p.gapEvery {
			gaps[i] = math.NaN()
		}
	}
	return w
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
