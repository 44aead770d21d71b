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

import "github.com/AleutianAI/wellintent/services/intent/ports"

// StaticMethodologies is a fixed ports.MethodologyRegistry.
type StaticMethodologies map[string]*ports.Methodology

// GetMethodology implements ports.MethodologyRegistry.
func (s StaticMethodologies) GetMethodology(key string) (*ports.Methodology, bool) {
	m, ok := s[key]
	return m, ok
}

// DefaultMethodologies documents porosity, shale volume and water saturation.
func DefaultMethodologies() StaticMethodologies {
	return StaticMethodologies{
		"porosity": {
			Key:         "porosity",
			Name:        "Porosity from density, neutron and sonic logs",
			Description: "Density porosity inverts bulk density between matrix and fluid densities. Neutron porosity is read directly. Density-neutron porosity is the root mean square of the two. Sonic porosity uses the Wyllie time-average equation.",
			References: []string{
				"Wyllie, Gregory and Gardner (1956), Elastic wave velocities in heterogeneous and porous media",
				"Schlumberger (1989), Log Interpretation Principles/Applications",
			},
			Assumptions: []string{
				"Quartz matrix density 2.65 g/cc and fluid density 1.0 g/cc",
				"Matrix slowness 55.5 us/ft and fluid slowness 189 us/ft",
				"Borehole conditions do not degrade the density measurement",
			},
			Limitations: []string{
				"Gas lowers density porosity and neutron porosity in opposite directions",
				"Shale-bound water inflates neutron porosity",
			},
			UncertaintyRange: "+/- 0.02 to 0.03 v/v",
		},
		"shale_volume": {
			Key:         "shale_volume",
			Name:        "Shale volume from gamma ray",
			Description: "The gamma-ray index is scaled between clean and shale baselines. Larionov (tertiary and older rocks), Clavier and linear transforms convert the index to shale volume.",
			References: []string{
				"Larionov (1969), Borehole Radiometry",
				"Clavier, Hoyle and Meunier (1971), Quantitative interpretation of TDT logs",
			},
			Assumptions: []string{
				"Radioactivity comes from clay minerals only",
				"Clean and shale baselines are the 5th and 95th gamma-ray percentiles",
			},
			Limitations: []string{
				"Radioactive feldspars, mica or uranium-rich organics overstate shale volume",
				"The linear index is an upper bound",
			},
			UncertaintyRange: "+/- 0.05 to 0.10 v/v",
		},
		"water_saturation": {
			Key:         "water_saturation",
			Name:        "Water saturation from resistivity",
			Description: "Archie's equation relates true resistivity to porosity and water resistivity in clean rock. Simandoux and Indonesian equations add a shale conductivity term for shaly sands.",
			References: []string{
				"Archie (1942), The electrical resistivity log as an aid in determining some reservoir characteristics",
				"Simandoux (1963), Dielectric measurements on porous media",
				"Poupon and Leveaux (1971), Evaluation of water saturation in shaly formations",
			},
			Assumptions: []string{
				"a = 1, m = 2, n = 2",
				"Rw estimated from the minimum apparent water resistivity",
				"Shale resistivity 2.0 ohm.m",
			},
			Limitations: []string{
				"Archie overstates saturation in shaly intervals",
				"Invasion and thin beds bias deep resistivity",
			},
			UncertaintyRange: "+/- 0.05 to 0.15 v/v",
		},
	}
}
