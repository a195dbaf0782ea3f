package xfp

import (
	"github.com/sells-group/alpha-grader/internal/model"
)

// Result is the expected-points summary for one player.
type Result struct {
	XFPPerGame    float64 `json:"xfp_per_game"`
	FPOEPerGame   float64 `json:"fpoe_per_game"`
	ActualPerGame float64 `json:"actual_per_game"`
	WeeksUsed     int     `json:"weeks_used"`
}

// Calculator prices opportunities with a fixed pricing table.
type Calculator struct {
	table PricingTable
}

// NewCalculator creates a Calculator for the given table.
func NewCalculator(table PricingTable) *Calculator {
	return &Calculator{table: table}
}

// Table returns the pricing table in use.
func (c *Calculator) Table() PricingTable { return c.table }

// Calculate prices the validated weekly series. When no weekly breakdown is
// available it falls back to the stored secondary figure, then to zeros.
func (c *Calculator) Calculate(pos model.Position, weeks []model.WeeklyLog, secondary *model.SecondaryXFP) model.Outcome[Result] {
	prices, ok := c.table.Values[pos]
	if ok && len(weeks) > 0 {
		var xfpSum, actualSum float64
		for _, w := range weeks {
			xfpSum += WeekXFP(pos, w, prices)
			actualSum += c.table.Scoring.Points(w)
		}
		n := float64(len(weeks))
		res := Result{
			XFPPerGame:    xfpSum / n,
			ActualPerGame: actualSum / n,
			WeeksUsed:     len(weeks),
		}
		res.FPOEPerGame = res.ActualPerGame - res.XFPPerGame
		return model.Primary(res)
	}

	if secondary != nil && secondary.Games > 0 {
		return model.Fallback(Result{
			XFPPerGame: secondary.PerGame,
			WeeksUsed:  secondary.Games,
		}, model.ReasonSecondaryXFP)
	}

	return model.Fallback(Result{}, model.ReasonNoXFPData)
}

// Score normalizes an xFP-per-game value for the position to 0–100.
func (c *Calculator) Score(pos model.Position, xfpPerGame float64) float64 {
	return Normalize(xfpPerGame, c.table.XFPRange[pos])
}

// WeekXFP prices one week of opportunities.
func WeekXFP(pos model.Position, w model.WeeklyLog, prices map[OpportunityType]float64) float64 {
	counts := Partition(pos, w)
	var total float64
	for _, typ := range opportunityOrder {
		total += float64(counts[typ]) * prices[typ]
	}
	return total
}

// opportunityOrder fixes summation order so results are bit-identical across runs.
var opportunityOrder = []OpportunityType{Carry, RedZoneCarry, Target, DeepTarget, RedZoneTarget, Dropback}

// Partition splits a week into disjoint opportunity buckets.
func Partition(pos model.Position, w model.WeeklyLog) map[OpportunityType]int {
	out := make(map[OpportunityType]int, 5)

	rz := clampInt(w.RedZoneCarries, 0, w.RushAttempts)
	out[RedZoneCarry] = rz
	out[Carry] = w.RushAttempts - rz

	if pos == model.QB {
		out[Dropback] = w.Dropbacks
		return out
	}

	deep := clampInt(w.DeepTargets, 0, w.Targets)
	rzTargets := clampInt(w.RedZoneTargets, 0, w.Targets-deep)
	out[DeepTarget] = deep
	out[RedZoneTarget] = rzTargets
	out[Target] = w.Targets - deep - rzTargets
	return out
}

// Normalize scales value linearly into 0–100 over r and clamps. An
// undefined range yields a neutral 50.
func Normalize(value float64, r Range) float64 {
	if !r.Defined() {
		return 50
	}
	score := (value - r.Min) / (r.Max - r.Min) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
