package model

import "time"

// Tier is a discrete band over Alpha. T1 is best.
type Tier string

// Tiers, best first.
const (
	T1 Tier = "T1"
	T2 Tier = "T2"
	T3 Tier = "T3"
	T4 Tier = "T4"
	T5 Tier = "T5"
)

// Rank returns the numeric rank (1..5) of the tier, or 0 for an unknown tier.
func (t Tier) Rank() int {
	switch t {
	case T1:
		return 1
	case T2:
		return 2
	case T3:
		return 3
	case T4:
		return 4
	case T5:
		return 5
	}
	return 0
}

// Trajectory labels recent movement relative to the season baseline.
type Trajectory string

// Trajectories.
const (
	Rising    Trajectory = "rising"
	Flat      Trajectory = "flat"
	Declining Trajectory = "declining"
)

// Warning codes recorded by the snapshot validator.
const (
	WarnGhostWeek          = "GHOST_WEEK"
	WarnInactiveQBWeek     = "INACTIVE_QB_WEEK"
	WarnNullSnapShare      = "NULL_SNAP_SHARE"
	WarnAnomalousSnapShare = "ANOMALOUS_SNAP_SHARE"
	WarnLowSampleSize      = "LOW_SAMPLE_SIZE"
	WarnExtremeOutlier     = "EXTREME_OUTLIER"
	WarnDuplicateWeek      = "DUPLICATE_WEEK"
)

// Issue codes raised while building features and composing Alpha.
const (
	IssueLessThan3Games         = "LESS_THAN_3_GAMES"
	IssueRoleVolumeMismatch     = "ROLE_VOLUME_MISMATCH"
	IssueEfficiencyOnLowVolume  = "EFFICIENCY_ON_LOW_VOLUME"
	IssueOutlierInflated        = "OUTLIER_INFLATED"
	IssueXFPProductionDivergent = "XFP_FPOE_DIVERGENCE"
)

// Warning is a validator observation about one week (Week 0 means the whole series).
type Warning struct {
	Code   string `json:"code"`
	Week   int    `json:"week,omitempty"`
	Metric string `json:"metric,omitempty"`
}

// PillarResult is one 0–100 sub-score plus the normalized metrics behind it.
type PillarResult struct {
	Score     float64            `json:"score"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	IsNeutral bool               `json:"is_neutral,omitempty"`
	Capped    bool               `json:"capped,omitempty"`
}

// DataQuality flags which optional inputs were present.
type DataQuality struct {
	HasAdvancedStats bool   `json:"has_advanced_stats"`
	HasSnapData      bool   `json:"has_snap_data"`
	HasEnvironment   bool   `json:"has_environment"`
	HasOpponent      bool   `json:"has_opponent"`
	HasXFP           bool   `json:"has_xfp"`
	XFPSource        Reason `json:"xfp_source,omitempty"`
	OutlierWeeks     int    `json:"outlier_weeks"`
	LowSample        bool   `json:"low_sample"`
}

// FeatureBundle is the per-player output of a position feature builder.
type FeatureBundle struct {
	Position    Position `json:"position"`
	GamesPlayed int      `json:"games_played"`

	Volume     PillarResult `json:"volume"`
	Efficiency PillarResult `json:"efficiency"`
	Stability  PillarResult `json:"stability"`
	ContextFit PillarResult `json:"context_fit"`

	Quality  DataQuality `json:"quality"`
	Issues   []string    `json:"issues,omitempty"`
	Warnings []Warning   `json:"warnings,omitempty"`

	AvgSnapShare     float64 `json:"avg_snap_share"`
	XFPPerGame       float64 `json:"xfp_per_game"`
	FPOEPerGame      float64 `json:"fpoe_per_game"`
	PointsPerGame    float64 `json:"points_per_game"`
	TargetsPerGame   float64 `json:"targets_per_game"`
	CarriesPerGame   float64 `json:"carries_per_game"`
	DropbacksPerGame float64 `json:"dropbacks_per_game"`

	// Recent is the same bundle built over the trailing window, when the
	// season is long enough to have one.
	Recent *FeatureBundle `json:"recent,omitempty"`
}

// PillarScores are the four composed sub-scores.
type PillarScores struct {
	Volume     float64 `json:"volume"`
	Efficiency float64 `json:"efficiency"`
	Stability  float64 `json:"stability"`
	ContextFit float64 `json:"context_fit"`
}

// AuxStats are fantasy-context fields persisted alongside a grade.
type AuxStats struct {
	XFPPerGame       float64 `json:"xfp_per_game"`
	FPOEPerGame      float64 `json:"fpoe_per_game"`
	PointsPerGame    float64 `json:"points_per_game"`
	TargetsPerGame   float64 `json:"targets_per_game"`
	CarriesPerGame   float64 `json:"carries_per_game"`
	DropbacksPerGame float64 `json:"dropbacks_per_game"`
	SnapShare        float64 `json:"snap_share"`
	XFPSource        Reason  `json:"xfp_source,omitempty"`
}

// GradeResult is the externally visible grade for one player and week.
type GradeResult struct {
	PlayerID string   `json:"player_id"`
	Name     string   `json:"name"`
	Team     string   `json:"team"`
	Position Position `json:"position"`
	Season   int      `json:"season"`
	AsOfWeek int      `json:"as_of_week"`
	Version  string   `json:"version"`
	Mode     Mode     `json:"mode"`

	Alpha          float64      `json:"alpha"`
	Pillars        PillarScores `json:"pillars"`
	Tier           Tier         `json:"tier"`
	TierRank       int          `json:"tier_rank"`
	Confidence     float64      `json:"confidence"`
	Trajectory     Trajectory   `json:"trajectory"`
	Momentum       float64      `json:"momentum"`
	Issues         []string     `json:"issues"`
	LensAdjustment float64      `json:"lens_adjustment"`
	GamesPlayed    int          `json:"games_played"`
	Aux            AuxStats     `json:"aux"`

	ComputedAt time.Time `json:"computed_at"`
}
