// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixture provides in-process collaborators for the dispatcher: a
// computation engine over synthetic well logs, a plain-text response
// formatter and a static methodology registry. The CLI and server use them
// when no external engine is configured; tests use them everywhere.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/AleutianAI/wellintent/services/intent/ports"
)

// Petrophysical constants.
const (
	matrixDensity  = 2.65  // quartz, g/cc
	fluidDensity   = 1.0   // fresh mud filtrate, g/cc
	matrixSlowness = 55.5  // sandstone, us/ft
	fluidSlowness  = 189.0 // us/ft

	archieA = 1.0
	archieM = 2.0
	archieN = 2.0

	// shaleResistivity is Rsh for the shaly-sand saturation models, ohm.m.
	shaleResistivity = 2.0
)

// ErrUnsupportedMethod is returned for a method the engine does not implement.
var ErrUnsupportedMethod = errors.New("unsupported method")

// Engine is an in-memory ports.ComputationEngine.
//
// Thread Safety: Safe for concurrent use. Wells are read-only after
// construction.
type Engine struct {
	wells []Well
	byID  map[string]*Well
}

// NewEngine creates an engine over wells. Order is kept for ListTargets.
func NewEngine(wells ...Well) *Engine {
	e := &Engine{wells: wells, byID: make(map[string]*Well, len(wells))}
	for i := range e.wells {
		e.byID[e.wells[i].ID] = &e.wells[i]
	}
	return e
}

// NewDefaultEngine creates an engine over DefaultWells.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultWells()...)
}

// ListTargets implements ports.ComputationEngine.
func (e *Engine) ListTargets(ctx context.Context) ([]ports.TargetSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]ports.TargetSummary, 0, len(e.wells))
	for _, w := range e.wells {
		out = append(out, ports.TargetSummary{ID: w.ID, Field: w.Field, Location: w.Location})
	}
	return out, nil
}

// GetTargetInfo implements ports.ComputationEngine.
func (e *Engine) GetTargetInfo(ctx context.Context, id string) (*ports.TargetInfo, error) {
	w, err := e.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ports.TargetInfo{
		ID:         w.ID,
		Field:      w.Field,
		Curves:     w.CurveNames(),
		DepthRange: depthRange(w),
		Metadata: map[string]string{
			"location": w.Location,
			"samples":  fmt.Sprintf("%d", len(w.Depth)),
		},
	}, nil
}

// Compute implements ports.ComputationEngine.
func (e *Engine) Compute(ctx context.Context, spec ports.ComputeSpec) (*ports.ComputationResult, error) {
	w, err := e.lookup(ctx, spec.Target)
	if err != nil {
		return nil, err
	}

	var sample func(w *Well, i int) float64
	switch spec.Calculation {
	case ports.CalcPorosity:
		sample, err = porosityFunc(spec.Method)
	case ports.CalcShaleVolume:
		sample, err = shaleFunc(spec.Method)
	case ports.CalcSaturation:
		sample, err = saturationFunc(spec.Method)
	case ports.CalcDataQuality:
		sample = completeness
	default:
		err = fmt.Errorf("%w: calculation %q", ErrUnsupportedMethod, spec.Calculation)
	}
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(w.Depth))
	for i := range w.Depth {
		v := sample(w, i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}

	return &ports.ComputationResult{
		Calculation: spec.Calculation,
		Method:      spec.Method,
		Values:      values,
		Statistics:  Summarize(values),
		DepthRange:  depthRange(w),
	}, nil
}

func (e *Engine) lookup(ctx context.Context, id string) (*Well, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, ok := e.byID[id]
	if !ok {
		return nil, fmt.Errorf("well %q: %w", id, ports.ErrTargetNotFound)
	}
	return w, nil
}

func depthRange(w *Well) ports.DepthRange {
	if len(w.Depth) == 0 {
		return ports.DepthRange{Unit: w.Unit}
	}
	return ports.DepthRange{Top: w.Depth[0], Bottom: w.Depth[len(w.Depth)-1], Unit: w.Unit}
}

// =============================================================================
// Porosity
// =============================================================================

func densityPorosity(w *Well, i int) float64 {
	rhob := w.Curves[CurveRHOB][i]
	return clamp((matrixDensity-rhob)/(matrixDensity-fluidDensity), 0, 0.6)
}

func neutronPorosity(w *Well, i int) float64 {
	return w.Curves[CurveNPHI][i]
}

func densityNeutronPorosity(w *Well, i int) float64 {
	d, n := densityPorosity(w, i), neutronPorosity(w, i)
	return math.Sqrt((d*d + n*n) / 2)
}

// sonicPorosity is the Wyllie time-average.
func sonicPorosity(w *Well, i int) float64 {
	dt := w.Curves[CurveDT][i]
	return clamp((dt-matrixSlowness)/(fluidSlowness-matrixSlowness), 0, 0.6)
}

func effectivePorosity(w *Well, i int) float64 {
	return densityNeutronPorosity(w, i) * (1 - larionovTertiary(w, i))
}

func porosityFunc(method string) (func(*Well, int) float64, error) {
	switch method {
	case "density":
		return densityPorosity, nil
	case "neutron":
		return neutronPorosity, nil
	case "density_neutron":
		return densityNeutronPorosity, nil
	case "sonic":
		return sonicPorosity, nil
	case "effective":
		return effectivePorosity, nil
	}
	return nil, fmt.Errorf("%w: porosity method %q", ErrUnsupportedMethod, method)
}

// =============================================================================
// Shale Volume
// =============================================================================

// gammaIndex is the linear gamma-ray index against the well's clean and
// shale baselines (5th and 95th percentiles).
func gammaIndex(w *Well, i int) float64 {
	grMin, grMax := w.grBaselines()
	if grMax <= grMin {
		return 0
	}
	return clamp((w.Curves[CurveGR][i]-grMin)/(grMax-grMin), 0, 1)
}

func (w *Well) grBaselines() (float64, float64) {
	gr := make([]float64, 0, len(w.Curves[CurveGR]))
	for _, v := range w.Curves[CurveGR] {
		if !math.IsNaN(v) {
			gr = append(gr, v)
		}
	}
	if len(gr) == 0 {
		return 0, 0
	}
	sort.Float64s(gr)
	return percentile(gr, 0.05), percentile(gr, 0.95)
}

func larionovTertiary(w *Well, i int) float64 {
	return clamp(0.083*(math.Pow(2, 3.7*gammaIndex(w, i))-1), 0, 1)
}

func larionovPreTertiary(w *Well, i int) float64 {
	return clamp(0.33*(math.Pow(2, 2*gammaIndex(w, i))-1), 0, 1)
}

func clavier(w *Well, i int) float64 {
	x := gammaIndex(w, i) + 0.7
	return clamp(1.7-math.Sqrt(3.38-x*x), 0, 1)
}

func shaleFunc(method string) (func(*Well, int) float64, error) {
	switch method {
	case "larionov_tertiary":
		return larionovTertiary, nil
	case "larionov_pre_tertiary":
		return larionovPreTertiary, nil
	case "clavier":
		return clavier, nil
	case "linear":
		return gammaIndex, nil
	}
	return nil, fmt.Errorf("%w: shale volume method %q", ErrUnsupportedMethod, method)
}

// =============================================================================
// Water Saturation
// =============================================================================

func archie(w *Well, i int) float64 {
	phi, rt := densityPorosity(w, i), w.Curves[CurveRT][i]
	if phi <= 0 || rt <= 0 {
		return math.NaN()
	}
	rw := w.waterResistivity()
	return clamp(math.Pow(archieA*rw/(math.Pow(phi, archieM)*rt), 1/archieN), 0, 1)
}

func simandoux(w *Well, i int) float64 {
	phi, rt := densityPorosity(w, i), w.Curves[CurveRT][i]
	if phi <= 0 || rt <= 0 {
		return math.NaN()
	}
	rw, vsh := w.waterResistivity(), larionovTertiary(w, i)
	phiM := math.Pow(phi, archieM)
	c := vsh / shaleResistivity
	sw := (archieA * rw / (2 * phiM)) * (math.Sqrt(c*c+4*phiM/(archieA*rw*rt)) - c)
	return clamp(sw, 0, 1)
}

func indonesian(w *Well, i int) float64 {
	phi, rt := densityPorosity(w, i), w.Curves[CurveRT][i]
	if phi <= 0 || rt <= 0 {
		return math.NaN()
	}
	rw, vsh := w.waterResistivity(), larionovTertiary(w, i)
	denom := math.Pow(vsh, 1-vsh/2)/math.Sqrt(shaleResistivity) + math.Pow(phi, archieM/2)/math.Sqrt(archieA*rw)
	if denom <= 0 {
		return math.NaN()
	}
	return clamp(math.Pow((1/math.Sqrt(rt))/denom, 2/archieN), 0, 1)
}

// waterResistivity estimates Rw from the cleanest, most porous interval
// assuming it is water bearing (Rwa minimum).
func (w *Well) waterResistivity() float64 {
	best := math.Inf(1)
	for i := range w.Depth {
		phi, rt := densityPorosity(w, i), w.Curves[CurveRT][i]
		if phi <= 0 || math.IsNaN(rt) {
			continue
		}
		if rwa := rt * math.Pow(phi, archieM) / archieA; rwa < best {
			best = rwa
		}
	}
	if math.IsInf(best, 1) {
		return 0.05
	}
	return best
}

func saturationFunc(method string) (func(*Well, int) float64, error) {
	switch method {
	case "archie":
		return archie, nil
	case "simandoux":
		return simandoux, nil
	case "indonesian":
		return indonesian, nil
	}
	return nil, fmt.Errorf("%w: saturation method %q", ErrUnsupportedMethod, method)
}

// =============================================================================
// Data Quality
// =============================================================================

// completeness is the fraction of curves with a value at sample i.
func completeness(w *Well, i int) float64 {
	if len(w.Curves) == 0 {
		return 0
	}
	present := 0
	for _, c := range w.Curves {
		if i < len(c) && !math.IsNaN(c[i]) {
			present++
		}
	}
	return float64(present) / float64(len(w.Curves))
}

// =============================================================================
// Statistics
// =============================================================================

// Summarize computes count, mean, extremes and P10/P50/P90. Nil for no values.
func Summarize(values []float64) *ports.Statistics {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return &ports.Statistics{
		Count: len(sorted),
		Mean:  sum / float64(len(sorted)),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P10:   percentile(sorted, 0.10),
		P50:   percentile(sorted, 0.50),
		P90:   percentile(sorted, 0.90),
	}
}

// percentile is nearest-rank over sorted values.
func percentile(sorted []float64, p float64) float64 {
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
