// Package alpha composes the four pillar scores into a single 0–100 Alpha
// grade and maps it to a tier, a confidence and a trajectory.
package alpha

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/alpha-grader/internal/model"
)

// Weights are per-pillar multipliers.
type Weights struct {
	Volume     float64 `yaml:"volume" json:"volume"`
	Efficiency float64 `yaml:"efficiency" json:"efficiency"`
	Stability  float64 `yaml:"stability" json:"stability"`
	ContextFit float64 `yaml:"context_fit" json:"context_fit"`
}

// Sum returns the total of all pillar weights.
func (w Weights) Sum() float64 {
	return w.Volume + w.Efficiency + w.Stability + w.ContextFit
}

// Scale multiplies each weight by the matching multiplier.
func (w Weights) Scale(m Weights) Weights {
	return Weights{
		Volume:     w.Volume * m.Volume,
		Efficiency: w.Efficiency * m.Efficiency,
		Stability:  w.Stability * m.Stability,
		ContextFit: w.ContextFit * m.ContextFit,
	}
}

// Normalized returns the weights rescaled to sum to 1.
func (w Weights) Normalized() Weights {
	sum := w.Sum()
	if sum <= 0 {
		return Weights{Volume: 0.25, Efficiency: 0.25, Stability: 0.25, ContextFit: 0.25}
	}
	return Weights{
		Volume:     w.Volume / sum,
		Efficiency: w.Efficiency / sum,
		Stability:  w.Stability / sum,
		ContextFit: w.ContextFit / sum,
	}
}

// LensConfig holds the sanity-lens thresholds. Caps are magnitudes in Alpha points.
type LensConfig struct {
	RoleVolumeMin   float64 `yaml:"role_volume_min" json:"role_volume_min"`
	RoleSnapMax     float64 `yaml:"role_snap_max" json:"role_snap_max"`
	RoleCap         float64 `yaml:"role_cap" json:"role_cap"`
	EfficiencyMin   float64 `yaml:"efficiency_min" json:"efficiency_min"`
	LowVolumeMax    float64 `yaml:"low_volume_max" json:"low_volume_max"`
	EfficiencyCap   float64 `yaml:"efficiency_cap" json:"efficiency_cap"`
	OutlierShareMin float64 `yaml:"outlier_share_min" json:"outlier_share_min"`
	OutlierScale    float64 `yaml:"outlier_scale" json:"outlier_scale"`
	OutlierCap      float64 `yaml:"outlier_cap" json:"outlier_cap"`
	DivergenceFPOE  float64 `yaml:"divergence_fpoe" json:"divergence_fpoe"`
	DivergenceCap   float64 `yaml:"divergence_cap" json:"divergence_cap"`
	TotalCap        float64 `yaml:"total_cap" json:"total_cap"`
}

// MomentumConfig bounds the recent-vs-season adjustment.
type MomentumConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Scale   float64 `yaml:"scale" json:"scale"`
	Cap     float64 `yaml:"cap" json:"cap"`
}

// TierBands are the minimum Alpha for tiers T1..T4. Anything lower is T5.
type TierBands struct {
	T1 float64 `yaml:"t1" json:"t1"`
	T2 float64 `yaml:"t2" json:"t2"`
	T3 float64 `yaml:"t3" json:"t3"`
	T4 float64 `yaml:"t4" json:"t4"`
}

// ConfidenceConfig shapes the confidence score.
type ConfidenceConfig struct {
	FullSeasonGames int     `yaml:"full_season_games" json:"full_season_games"`
	IssuePenalty    float64 `yaml:"issue_penalty" json:"issue_penalty"`
	Floor           float64 `yaml:"floor" json:"floor"`
}

// Config is the versioned configuration of the composer and tiering.
type Config struct {
	BaseWeights         map[model.Position]Weights `yaml:"base_weights" json:"base_weights"`
	ModeMultipliers     map[model.Mode]Weights     `yaml:"mode_multipliers" json:"mode_multipliers"`
	Lens                LensConfig                 `yaml:"lens" json:"lens"`
	Momentum            MomentumConfig             `yaml:"momentum" json:"momentum"`
	Tiers               TierBands                  `yaml:"tiers" json:"tiers"`
	Confidence          ConfidenceConfig           `yaml:"confidence" json:"confidence"`
	TrajectoryThreshold float64                    `yaml:"trajectory_threshold" json:"trajectory_threshold"`
}

// DefaultConfig returns the production composer configuration.
func DefaultConfig() Config {
	return Config{
		BaseWeights: map[model.Position]Weights{
			model.QB: {Volume: 0.30, Efficiency: 0.40, Stability: 0.15, ContextFit: 0.15},
			model.RB: {Volume: 0.45, Efficiency: 0.25, Stability: 0.15, ContextFit: 0.15},
			model.WR: {Volume: 0.40, Efficiency: 0.30, Stability: 0.15, ContextFit: 0.15},
			model.TE: {Volume: 0.40, Efficiency: 0.30, Stability: 0.15, ContextFit: 0.15},
		},
		ModeMultipliers: map[model.Mode]Weights{
			model.ModeRedraft:  {Volume: 1, Efficiency: 1, Stability: 1, ContextFit: 1},
			model.ModeDynasty:  {Volume: 0.85, Efficiency: 0.95, Stability: 1.35, ContextFit: 1.25},
			model.ModeBestBall: {Volume: 0.95, Efficiency: 0.95, Stability: 1.25, ContextFit: 1.20},
		},
		Lens: LensConfig{
			RoleVolumeMin:   70,
			RoleSnapMax:     0.5,
			RoleCap:         2,
			EfficiencyMin:   80,
			LowVolumeMax:    35,
			EfficiencyCap:   2,
			OutlierShareMin: 0.1,
			OutlierScale:    10,
			OutlierCap:      2,
			DivergenceFPOE:  5,
			DivergenceCap:   1.5,
			TotalCap:        5,
		},
		Momentum: MomentumConfig{
			Enabled: true,
			Scale:   0.25,
			Cap:     3,
		},
		Tiers: TierBands{T1: 80, T2: 65, T3: 50, T4: 35},
		Confidence: ConfidenceConfig{
			FullSeasonGames: 17,
			IssuePenalty:    12,
			Floor:           10,
		},
		TrajectoryThreshold: 5,
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	var errs []string

	for _, pos := range model.AllPositions {
		w, ok := c.BaseWeights[pos]
		if !ok {
			errs = append(errs, fmt.Sprintf("base_weights for %s are required", pos))
			continue
		}
		if w.Volume < 0 || w.Efficiency < 0 || w.Stability < 0 || w.ContextFit < 0 {
			errs = append(errs, fmt.Sprintf("base_weights for %s must be >= 0", pos))
		}
		if math.Abs(w.Sum()-1) > 0.01 {
			errs = append(errs, fmt.Sprintf("base_weights for %s should sum to 1, got %.3f", pos, w.Sum()))
		}
	}

	modes := make([]string, 0, len(c.ModeMultipliers))
	for m := range c.ModeMultipliers {
		modes = append(modes, string(m))
	}
	sort.Strings(modes)
	for _, m := range modes {
		w := c.ModeMultipliers[model.Mode(m)]
		if w.Volume <= 0 || w.Efficiency <= 0 || w.Stability <= 0 || w.ContextFit <= 0 {
			errs = append(errs, fmt.Sprintf("mode_multipliers for %s must be > 0", m))
		}
	}
	if _, ok := c.ModeMultipliers[model.ModeRedraft]; !ok {
		errs = append(errs, "mode_multipliers for redraft are required")
	}

	l := c.Lens
	for name, v := range map[string]float64{
		"role_cap": l.RoleCap, "efficiency_cap": l.EfficiencyCap,
		"outlier_cap": l.OutlierCap, "divergence_cap": l.DivergenceCap,
	} {
		if v < 0 || v > l.TotalCap {
			errs = append(errs, fmt.Sprintf("lens.%s must be between 0 and total_cap", name))
		}
	}
	if l.TotalCap < 0 || l.TotalCap > 10 {
		errs = append(errs, "lens.total_cap must be between 0 and 10")
	}

	if c.Momentum.Cap < 0 || c.Momentum.Cap > 10 {
		errs = append(errs, "momentum.cap must be between 0 and 10")
	}

	t := c.Tiers
	if !(t.T1 > t.T2 && t.T2 > t.T3 && t.T3 > t.T4 && t.T4 > 0 && t.T1 <= 100) {
		errs = append(errs, "tiers must satisfy 100 >= t1 > t2 > t3 > t4 > 0")
	}

	if c.Confidence.FullSeasonGames < 1 {
		errs = append(errs, "confidence.full_season_games must be >= 1")
	}
	if c.Confidence.Floor < 0 || c.Confidence.Floor > 100 {
		errs = append(errs, "confidence.floor must be between 0 and 100")
	}
	if c.TrajectoryThreshold <= 0 {
		errs = append(errs, "trajectory_threshold must be > 0")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("alpha: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
