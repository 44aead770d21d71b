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

import (
	"strings"

	"github.com/AleutianAI/wellintent/services/intent/catalog"
)

// Canonical method names understood by the computation engine and the
// methodology registry.
const (
	MethodEffective      = "effective"
	MethodDensityNeutron = "density_neutron"
	MethodNeutron        = "neutron"
	MethodSonic          = "sonic"
	MethodDensity        = "density"

	MethodLarionovTertiary    = "larionov_tertiary"
	MethodLarionovPreTertiary = "larionov_pre_tertiary"
	MethodClavier             = "clavier"
	MethodLinear              = "linear"

	MethodSimandoux  = "simandoux"
	MethodIndonesian = "indonesian"
	MethodArchie     = "archie"

	MethodologyShaleVolume     = "shale_volume"
	MethodologyWaterSaturation = "water_saturation"
	MethodologyPorosity        = "porosity"
)

// methodRule fires when every substring in all is present, at least one of
// any is present (if any is set), and none of none is present.
type methodRule struct {
	all    []string
	any    []string
	none   []string
	method string
}

func (r methodRule) matches(lower string) bool {
	for _, s := range r.all {
		if !strings.Contains(lower, s) {
			return false
		}
	}
	if len(r.any) > 0 && !catalog.ContainsAny(lower, r.any) {
		return false
	}
	for _, s := range r.none {
		if strings.Contains(lower, s) {
			return false
		}
	}
	return true
}

type methodTable struct {
	rules    []methodRule
	fallback string
}

var (
	porosityMethods = methodTable{
		rules: []methodRule{
			{all: []string{"effective"}, method: MethodEffective},
			{all: []string{"density", "neutron"}, method: MethodDensityNeutron},
			{all: []string{"neutron"}, method: MethodNeutron},
			{all: []string{"sonic"}, method: MethodSonic},
			{all: []string{"density"}, method: MethodDensity},
		},
		fallback: MethodDensity,
	}

	shaleMethods = methodTable{
		rules: []methodRule{
			{all: []string{"larionov", "tertiary"}, none: []string{"pre"}, method: MethodLarionovTertiary},
			{all: []string{"larionov", "pre"}, method: MethodLarionovPreTertiary},
			{all: []string{"clavier"}, method: MethodClavier},
			{all: []string{"linear"}, method: MethodLinear},
		},
		fallback: MethodLarionovTertiary,
	}

	saturationMethods = methodTable{
		rules: []methodRule{
			{all: []string{"simandoux"}, method: MethodSimandoux},
			{all: []string{"indonesia"}, method: MethodIndonesian},
			{all: []string{"archie"}, method: MethodArchie},
		},
		fallback: MethodArchie,
	}

	methodologyTopics = methodTable{
		rules: []methodRule{
			{any: []string{"shale", "larionov", "clavier"}, method: MethodologyShaleVolume},
			{any: []string{"saturation", "archie"}, method: MethodologyWaterSaturation},
		},
		fallback: MethodologyPorosity,
	}

	methodTables = map[catalog.IntentType]*methodTable{
		catalog.IntentCalculatePorosity: &porosityMethods,
		catalog.IntentPorosityWorkflow:  &porosityMethods,
		catalog.IntentCalculateShale:    &shaleMethods,
		catalog.IntentShaleWorkflow:     &shaleMethods,
		catalog.IntentCalculateSat:      &saturationMethods,
		catalog.IntentMethodology:       &methodologyTopics,
	}
)

// ExtractMethod derives a computation-method hint for a resolved intent.
//
// Description:
//
//	Rules are literal substring tests over the lower-cased text, tried in
//	order; the first hit wins. Intents with a method concept fall back to a
//	fixed default. For explain_methodology the result is the methodology
//	topic key rather than a calculation method.
//
// Outputs:
//
//	string - The method, or "" for intents without a method concept.
func ExtractMethod(intent catalog.IntentType, text string) string {
	table, ok := methodTables[intent]
	if !ok {
		return ""
	}
	lower := strings.ToLower(text)
	for _, r := range table.rules {
		if r.matches(lower) {
			return r.method
		}
	}
	return table.fallback
}

// SupportsMethod reports whether intent carries a method hint.
func SupportsMethod(intent catalog.IntentType) bool {
	_, ok := methodTables[intent]
	return ok
}
