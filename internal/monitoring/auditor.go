// Package monitoring audits cached grade cohorts against distribution
// guardrails, tracks batch health, exports Prometheus metrics and delivers
// alerts to a webhook. Nothing here ever fails a batch.
package monitoring

import (
	"fmt"
	"math"

	"github.com/sells-group/alpha-grader/internal/model"
)

// Band is an inclusive range for the number of T1 players in a cohort.
type Band struct {
	Min int
	Max int
}

// Contains reports whether n lies inside the band.
func (b Band) Contains(n int) bool { return n >= b.Min && n <= b.Max }

// AuditConfig holds the guardrail thresholds.
type AuditConfig struct {
	TopTier map[model.Position]Band
	// MinSpread is the smallest acceptable max-min Alpha spread.
	MinSpread float64
}

// DefaultAuditConfig returns the production guardrails.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		TopTier: map[model.Position]Band{
			model.QB: {Min: 2, Max: 12},
			model.RB: {Min: 3, Max: 16},
			model.WR: {Min: 4, Max: 22},
			model.TE: {Min: 1, Max: 8},
		},
		MinSpread: 25,
	}
}

// Cohort identifies the grades being audited.
type Cohort struct {
	Position model.Position
	Season   int
	AsOfWeek int
	Version  string
}

// Auditor checks a cohort's Alpha distribution.
type Auditor struct {
	cfg AuditConfig
}

// NewAuditor creates an Auditor.
func NewAuditor(cfg AuditConfig) *Auditor {
	return &Auditor{cfg: cfg}
}

// Audit returns guardrail alerts for grades. An empty cohort has nothing to
// audit. A cohort with no T1 players raises no_top_tier only.
func (a *Auditor) Audit(c Cohort, grades []model.GradeResult) []model.Alert {
	if len(grades) == 0 {
		return nil
	}

	top := 0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, g := range grades {
		if g.Tier == model.T1 {
			top++
		}
		lo = math.Min(lo, g.Alpha)
		hi = math.Max(hi, g.Alpha)
	}

	var alerts []model.Alert
	alert := func(code, msg string, value float64) {
		alerts = append(alerts, model.Alert{
			Code:     code,
			Position: c.Position,
			Season:   c.Season,
			AsOfWeek: c.AsOfWeek,
			Version:  c.Version,
			Message:  msg,
			Value:    value,
		})
	}

	if top == 0 {
		alert(model.AlertNoTopTier,
			fmt.Sprintf("%s week %d has no T1 players among %d graded", c.Position, c.AsOfWeek, len(grades)), 0)
	} else if band, ok := a.cfg.TopTier[c.Position]; ok && !band.Contains(top) {
		alert(model.AlertTopTierOutOfBand,
			fmt.Sprintf("%s week %d has %d T1 players, expected %d-%d", c.Position, c.AsOfWeek, top, band.Min, band.Max),
			float64(top))
	}

	if spread := hi - lo; len(grades) > 1 && spread < a.cfg.MinSpread {
		alert(model.AlertCompressedSpread,
			fmt.Sprintf("%s week %d Alpha spread %.1f is below %.1f", c.Position, c.AsOfWeek, spread, a.cfg.MinSpread),
			spread)
	}
	return alerts
}
