// Package xfp prices weekly opportunities at league-average value to produce
// expected fantasy points (xFP) and the gap between actual and expected
// production (FPOE).
package xfp

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/alpha-grader/internal/model"
)

// OpportunityType is one priced opportunity bucket.
type OpportunityType string

// Opportunity buckets. A red-zone or deep opportunity is never also counted
// in the plain bucket of the same kind.
const (
	Carry         OpportunityType = "carry"
	RedZoneCarry  OpportunityType = "rz_carry"
	Target        OpportunityType = "target"
	DeepTarget    OpportunityType = "deep_target"
	RedZoneTarget OpportunityType = "rz_target"
	Dropback      OpportunityType = "dropback"
)

// Range is a [Min, Max] normalization window.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Defined reports whether the range can be used for scaling.
func (r Range) Defined() bool { return r.Max > r.Min }

// Scoring is the reference scoring system used to compute actual points.
type Scoring struct {
	PassYard     float64 `yaml:"pass_yard" json:"pass_yard"`
	PassTD       float64 `yaml:"pass_td" json:"pass_td"`
	Interception float64 `yaml:"interception" json:"interception"`
	RushYard     float64 `yaml:"rush_yard" json:"rush_yard"`
	RushTD       float64 `yaml:"rush_td" json:"rush_td"`
	RecYard      float64 `yaml:"rec_yard" json:"rec_yard"`
	RecTD        float64 `yaml:"rec_td" json:"rec_td"`
	Reception    float64 `yaml:"reception" json:"reception"`
}

// Points scores one week.
func (s Scoring) Points(w model.WeeklyLog) float64 {
	return w.PassYards*s.PassYard +
		float64(w.PassTDs)*s.PassTD +
		float64(w.Interceptions)*s.Interception +
		w.RushYards*s.RushYard +
		float64(w.RushTDs)*s.RushTD +
		w.ReceivingYards*s.RecYard +
		float64(w.ReceivingTDs)*s.RecTD +
		float64(w.Receptions)*s.Reception
}

// PricingTable is the versioned configuration of the xFP calculator.
type PricingTable struct {
	Version string                                          `yaml:"version" json:"version"`
	Values  map[model.Position]map[OpportunityType]float64 `yaml:"values" json:"values"`
	Scoring Scoring                                         `yaml:"scoring" json:"scoring"`
	// XFPRange normalizes xFP per game to 0–100 per position.
	XFPRange map[model.Position]Range `yaml:"xfp_range" json:"xfp_range"`
}

// DefaultPricingTable returns league-average half-PPR opportunity values.
func DefaultPricingTable() PricingTable {
	return PricingTable{
		Version: "xfp-2024.1",
		Values: map[model.Position]map[OpportunityType]float64{
			model.QB: {
				Dropback:     0.45,
				Carry:        0.60,
				RedZoneCarry: 1.30,
			},
			model.RB: {
				Carry:         0.55,
				RedZoneCarry:  1.35,
				Target:        1.35,
				DeepTarget:    1.70,
				RedZoneTarget: 2.20,
			},
			model.WR: {
				Carry:         0.60,
				RedZoneCarry:  1.30,
				Target:        1.45,
				DeepTarget:    2.40,
				RedZoneTarget: 2.60,
			},
			model.TE: {
				Carry:         0.50,
				RedZoneCarry:  1.20,
				Target:        1.35,
				DeepTarget:    2.20,
				RedZoneTarget: 2.50,
			},
		},
		Scoring: Scoring{
			PassYard:     0.04,
			PassTD:       4,
			Interception: -2,
			RushYard:     0.1,
			RushTD:       6,
			RecYard:      0.1,
			RecTD:        6,
			Reception:    0.5,
		},
		XFPRange: map[model.Position]Range{
			model.QB: {Min: 8, Max: 22},
			model.RB: {Min: 4, Max: 20},
			model.WR: {Min: 3, Max: 16},
			model.TE: {Min: 2, Max: 12},
		},
	}
}

// Validate checks that every position has non-negative prices and a usable range.
func (t PricingTable) Validate() error {
	var errs []string
	if strings.TrimSpace(t.Version) == "" {
		errs = append(errs, "version is required")
	}
	for _, pos := range model.AllPositions {
		values, ok := t.Values[pos]
		if !ok || len(values) == 0 {
			errs = append(errs, fmt.Sprintf("values for %s are required", pos))
			continue
		}
		for typ, v := range values {
			if v < 0 {
				errs = append(errs, fmt.Sprintf("%s %s price must be >= 0", pos, typ))
			}
		}
		if r, ok := t.XFPRange[pos]; ok && !r.Defined() {
			errs = append(errs, fmt.Sprintf("xfp_range for %s must have max > min", pos))
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("xfp: pricing table validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
