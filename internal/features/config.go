// Package features turns a validated player context into the four 0–100
// pillar scores (Volume, Efficiency, Stability, Context-Fit) composed into Alpha.
package features

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/xfp"
)

// Metric names used as normalization range keys and in PillarResult.Metrics.
const (
	MetricTargetsPerGame   = "targets_per_game"
	MetricTargetShare      = "target_share"
	MetricRZTargetsPerGame = "rz_targets_per_game"
	MetricCarriesPerGame   = "carries_per_game"
	MetricRushShare        = "rush_share"
	MetricRZCarriesPerGame = "rz_carries_per_game"
	MetricOppsPerGame      = "opportunities_per_game"
	MetricDropbacksPerGame = "dropbacks_per_game"
	MetricRouteRate        = "route_rate"
	MetricXFPScore         = "xfp_score"

	MetricYardsPerTarget  = "yards_per_target"
	MetricYardsPerCarry   = "yards_per_carry"
	MetricYardsPerAttempt = "yards_per_attempt"
	MetricCatchRate       = "catch_rate"
	MetricCompletionRate  = "completion_rate"
	MetricTDRate          = "td_rate"
	MetricINTRate         = "int_rate"
	MetricEPAPerPlay      = "epa_per_play"
	MetricEPAPerTarget    = "epa_per_target"
	MetricCPOE            = "cpoe"
	MetricFPOEPerGame     = "fpoe_per_game"

	MetricConsistency = "consistency"
	MetricFloorRate   = "floor_rate"
	MetricBoomRate    = "boom_rate"
	MetricVolatility  = "volatility"

	MetricTeamPace     = "team_pace"
	MetricPassRate     = "pass_rate"
	MetricOpponentEase = "opponent_ease"
)

// StabilityConfig tunes the Stability pillar.
type StabilityConfig struct {
	// A floor week has a composite below FloorRatio × median; a boom week
	// is above BoomRatio × median.
	FloorRatio        float64 `yaml:"floor_ratio" json:"floor_ratio"`
	BoomRatio         float64 `yaml:"boom_ratio" json:"boom_ratio"`
	VolatilityCap     float64 `yaml:"volatility_cap" json:"volatility_cap"`
	ConsistencyWeight float64 `yaml:"consistency_weight" json:"consistency_weight"`
	FloorWeight       float64 `yaml:"floor_weight" json:"floor_weight"`
	BoomWeight        float64 `yaml:"boom_weight" json:"boom_weight"`
}

// Config is the versioned configuration of the feature builders.
type Config struct {
	SmallSampleCap float64                                 `yaml:"small_sample_cap" json:"small_sample_cap"`
	MinGames       int                                     `yaml:"min_games" json:"min_games"`
	XFPBlend       float64                                 `yaml:"xfp_blend" json:"xfp_blend"`
	RecentWindow   int                                     `yaml:"recent_window" json:"recent_window"`
	RecentMinWeeks int                                     `yaml:"recent_min_weeks" json:"recent_min_weeks"`
	Stability      StabilityConfig                         `yaml:"stability" json:"stability"`
	Ranges         map[model.Position]map[string]xfp.Range `yaml:"ranges" json:"ranges"`
}

// DefaultConfig returns the production feature configuration.
func DefaultConfig() Config {
	return Config{
		SmallSampleCap: 75,
		MinGames:       3,
		XFPBlend:       0.5,
		RecentWindow:   4,
		RecentMinWeeks: 6,
		Stability: StabilityConfig{
			FloorRatio:        0.5,
			BoomRatio:         1.5,
			VolatilityCap:     1.5,
			ConsistencyWeight: 0.55,
			FloorWeight:       0.30,
			BoomWeight:        0.15,
		},
		Ranges: map[model.Position]map[string]xfp.Range{
			model.QB: {
				MetricDropbacksPerGame: {Min: 25, Max: 42},
				MetricCarriesPerGame:   {Min: 1, Max: 8},
				MetricRZCarriesPerGame: {Min: 0, Max: 1.2},
				MetricYardsPerAttempt:  {Min: 5.5, Max: 8.5},
				MetricEPAPerPlay:       {Min: -0.15, Max: 0.30},
				MetricCompletionRate:   {Min: 0.58, Max: 0.70},
				MetricTDRate:           {Min: 0.02, Max: 0.065},
				MetricINTRate:          {Min: 0.01, Max: 0.035},
				MetricCPOE:             {Min: -5, Max: 5},
				MetricFPOEPerGame:      {Min: -4, Max: 6},
				MetricTeamPace:         {Min: 58, Max: 70},
				MetricPassRate:         {Min: 0.50, Max: 0.65},
				MetricOpponentEase:     {Min: 0, Max: 1},
			},
			model.RB: {
				MetricCarriesPerGame:   {Min: 5, Max: 20},
				MetricOppsPerGame:      {Min: 6, Max: 24},
				MetricRushShare:        {Min: 0.20, Max: 0.75},
				MetricRZCarriesPerGame: {Min: 0.3, Max: 3.0},
				MetricTargetsPerGame:   {Min: 0.5, Max: 5.5},
				MetricYardsPerCarry:    {Min: 3.4, Max: 5.4},
				MetricYardsPerTarget:   {Min: 4, Max: 8.5},
				MetricCatchRate:        {Min: 0.60, Max: 0.90},
				MetricEPAPerPlay:       {Min: -0.20, Max: 0.15},
				MetricFPOEPerGame:      {Min: -3, Max: 5},
				MetricTeamPace:         {Min: 58, Max: 70},
				MetricPassRate:         {Min: 0.50, Max: 0.65},
				MetricOpponentEase:     {Min: 0, Max: 1},
			},
			model.WR: {
				MetricTargetsPerGame:   {Min: 2, Max: 9},
				MetricTargetShare:      {Min: 0.08, Max: 0.28},
				MetricRZTargetsPerGame: {Min: 0.2, Max: 1.5},
				MetricYardsPerTarget:   {Min: 5.5, Max: 11},
				MetricEPAPerTarget:     {Min: -0.10, Max: 0.60},
				MetricCatchRate:        {Min: 0.50, Max: 0.80},
				MetricFPOEPerGame:      {Min: -3, Max: 6},
				MetricRouteRate:        {Min: 0.60, Max: 0.95},
				MetricTeamPace:         {Min: 58, Max: 70},
				MetricPassRate:         {Min: 0.50, Max: 0.65},
				MetricOpponentEase:     {Min: 0, Max: 1},
			},
			model.TE: {
				MetricTargetsPerGame:   {Min: 1.5, Max: 7.5},
				MetricTargetShare:      {Min: 0.05, Max: 0.22},
				MetricRZTargetsPerGame: {Min: 0.1, Max: 1.2},
				MetricYardsPerTarget:   {Min: 5, Max: 10},
				MetricEPAPerTarget:     {Min: -0.10, Max: 0.50},
				MetricCatchRate:        {Min: 0.55, Max: 0.82},
				MetricFPOEPerGame:      {Min: -2, Max: 4},
				MetricRouteRate:        {Min: 0.40, Max: 0.85},
				MetricTeamPace:         {Min: 58, Max: 70},
				MetricPassRate:         {Min: 0.50, Max: 0.65},
				MetricOpponentEase:     {Min: 0, Max: 1},
			},
		},
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	var errs []string

	if c.SmallSampleCap <= 0 || c.SmallSampleCap > 100 {
		errs = append(errs, "small_sample_cap must be in (0, 100]")
	}
	if c.MinGames < 1 {
		errs = append(errs, "min_games must be >= 1")
	}
	if c.XFPBlend < 0 || c.XFPBlend > 1 {
		errs = append(errs, "xfp_blend must be between 0 and 1")
	}
	if c.RecentWindow < 1 {
		errs = append(errs, "recent_window must be >= 1")
	}
	if c.RecentMinWeeks <= c.RecentWindow {
		errs = append(errs, "recent_min_weeks must be > recent_window")
	}

	s := c.Stability
	if s.FloorRatio <= 0 || s.FloorRatio > 1 || s.BoomRatio <= s.FloorRatio {
		errs = append(errs, "stability ratios must satisfy 0 < floor_ratio <= 1 and boom_ratio > floor_ratio")
	}
	if s.VolatilityCap <= 0 {
		errs = append(errs, "stability.volatility_cap must be > 0")
	}
	// A positive floor weight keeps Stability above zero for any player with games.
	if s.FloorWeight <= 0 {
		errs = append(errs, "stability.floor_weight must be > 0")
	}
	if s.ConsistencyWeight < 0 || s.BoomWeight < 0 {
		errs = append(errs, "stability weights must be >= 0")
	}
	if sum := s.ConsistencyWeight + s.FloorWeight + s.BoomWeight; sum < 0.999 || sum > 1.001 {
		errs = append(errs, fmt.Sprintf("stability weights should sum to 1, got %.3f", sum))
	}

	for _, pos := range model.AllPositions {
		if _, ok := c.Ranges[pos]; !ok {
			errs = append(errs, fmt.Sprintf("ranges for %s are required", pos))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("features: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
