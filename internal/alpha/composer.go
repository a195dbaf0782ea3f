package alpha

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/sells-group/alpha-grader/internal/model"
)

// Composition is the result of composing one FeatureBundle.
type Composition struct {
	Alpha   float64            `json:"alpha"`
	Raw     float64            `json:"raw"`
	Pillars model.PillarScores `json:"pillars"`
	Weights Weights            `json:"weights"`

	// Momentum is recent-window Alpha minus season Alpha before the
	// momentum nudge. Zero when no recent window exists.
	Momentum           float64 `json:"momentum"`
	HasMomentum        bool    `json:"has_momentum"`
	MomentumAdjustment float64 `json:"momentum_adjustment"`

	LensAdjustment float64  `json:"lens_adjustment"`
	Issues         []string `json:"issues"`
}

// Composer turns feature bundles into Alpha. It holds no mutable state; the
// same bundle and mode always produce the same Composition.
type Composer struct {
	cfg Config
}

// NewComposer creates a Composer with the given configuration.
func NewComposer(cfg Config) *Composer {
	return &Composer{cfg: cfg}
}

// Config returns the composer configuration.
func (c *Composer) Config() Config { return c.cfg }

// Compose weights the four pillars for the bundle's position and mode,
// applies the bounded sanity lens and momentum nudges, and clamps the
// result to [0,100] with one decimal.
func (c *Composer) Compose(b model.FeatureBundle, mode model.Mode) Composition {
	return c.compose(b, mode, 0)
}

func (c *Composer) compose(b model.FeatureBundle, mode model.Mode, depth int) Composition {
	w := c.WeightsFor(b.Position, mode)
	pillars := model.PillarScores{
		Volume:     bounded(b.Volume.Score),
		Efficiency: bounded(b.Efficiency.Score),
		Stability:  bounded(b.Stability.Score),
		ContextFit: bounded(b.ContextFit.Score),
	}

	raw := w.Volume*pillars.Volume +
		w.Efficiency*pillars.Efficiency +
		w.Stability*pillars.Stability +
		w.ContextFit*pillars.ContextFit

	issues, lens := c.lens(b, pillars)
	base := bounded(raw + lens)

	out := Composition{
		Raw:            raw,
		Pillars:        pillars,
		Weights:        w,
		LensAdjustment: lens,
		Issues:         issues,
	}

	// Only the top-level call looks at the recent window.
	if depth == 0 && c.cfg.Momentum.Enabled && b.Recent != nil {
		recent := c.compose(*b.Recent, mode, depth+1)
		out.Momentum = recent.Alpha - base
		out.HasMomentum = true
		out.MomentumAdjustment = clampAbs(out.Momentum*c.cfg.Momentum.Scale, c.cfg.Momentum.Cap)
	}

	out.Alpha = round1(bounded(base + out.MomentumAdjustment))
	return out
}

// WeightsFor returns the normalized pillar weights for a position and mode.
// Unknown modes use the redraft profile.
func (c *Composer) WeightsFor(pos model.Position, mode model.Mode) Weights {
	base, ok := c.cfg.BaseWeights[pos]
	if !ok {
		base = Weights{Volume: 0.25, Efficiency: 0.25, Stability: 0.25, ContextFit: 0.25}
	}
	mult, ok := c.cfg.ModeMultipliers[mode]
	if !ok {
		mult = c.cfg.ModeMultipliers[model.ModeRedraft]
	}
	if mult == (Weights{}) {
		mult = Weights{Volume: 1, Efficiency: 1, Stability: 1, ContextFit: 1}
	}
	return base.Scale(mult).Normalized()
}

// lens evaluates each sanity heuristic in a fixed order. Each nudge is
// capped individually and the total is capped again.
func (c *Composer) lens(b model.FeatureBundle, p model.PillarScores) ([]string, float64) {
	l := c.cfg.Lens
	issues := []string{}
	var total float64

	if b.Quality.HasSnapData && p.Volume >= l.RoleVolumeMin && b.AvgSnapShare < l.RoleSnapMax {
		issues = append(issues, model.IssueRoleVolumeMismatch)
		total -= l.RoleCap
	}

	if p.Efficiency >= l.EfficiencyMin && p.Volume < l.LowVolumeMax {
		issues = append(issues, model.IssueEfficiencyOnLowVolume)
		total -= l.EfficiencyCap
	}

	if b.GamesPlayed > 0 && b.Quality.OutlierWeeks > 0 {
		share := float64(b.Quality.OutlierWeeks) / float64(b.GamesPlayed)
		if share >= l.OutlierShareMin {
			issues = append(issues, model.IssueOutlierInflated)
			total -= math.Min(l.OutlierCap, share*l.OutlierScale)
		}
	}

	if b.Quality.XFPSource == model.ReasonNone && b.GamesPlayed > 0 && math.Abs(b.FPOEPerGame) >= l.DivergenceFPOE {
		issues = append(issues, model.IssueXFPProductionDivergent)
		// Production far from expectation tends to regress toward it.
		if b.FPOEPerGame > 0 {
			total -= l.DivergenceCap
		} else {
			total += l.DivergenceCap
		}
	}

	return issues, clampAbs(total, l.TotalCap)
}

func bounded(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func clampAbs(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}

// round1 rounds half away from zero to one decimal place.
func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
