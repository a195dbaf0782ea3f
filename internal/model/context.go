package model

import "time"

// WeeklyLog is one week of usage and production for a player.
type WeeklyLog struct {
	Week int `json:"week" yaml:"week"`

	Targets        int     `json:"targets" yaml:"targets"`
	Receptions     int     `json:"receptions" yaml:"receptions"`
	ReceivingYards float64 `json:"receiving_yards" yaml:"receiving_yards"`
	ReceivingTDs   int     `json:"receiving_tds" yaml:"receiving_tds"`
	DeepTargets    int     `json:"deep_targets" yaml:"deep_targets"`
	RedZoneTargets int     `json:"red_zone_targets" yaml:"red_zone_targets"`

	RushAttempts   int     `json:"rush_attempts" yaml:"rush_attempts"`
	RushYards      float64 `json:"rush_yards" yaml:"rush_yards"`
	RushTDs        int     `json:"rush_tds" yaml:"rush_tds"`
	RedZoneCarries int     `json:"red_zone_carries" yaml:"red_zone_carries"`

	Dropbacks     int     `json:"dropbacks" yaml:"dropbacks"`
	PassAttempts  int     `json:"pass_attempts" yaml:"pass_attempts"`
	Completions   int     `json:"completions" yaml:"completions"`
	PassYards     float64 `json:"pass_yards" yaml:"pass_yards"`
	PassTDs       int     `json:"pass_tds" yaml:"pass_tds"`
	Interceptions int     `json:"interceptions" yaml:"interceptions"`

	Routes    int      `json:"routes" yaml:"routes"`
	SnapShare *float64 `json:"snap_share,omitempty" yaml:"snap_share,omitempty"` // nil when not tracked

	// Team totals for the same game; zero means unknown.
	TeamTargets      int `json:"team_targets" yaml:"team_targets"`
	TeamRushAttempts int `json:"team_rush_attempts" yaml:"team_rush_attempts"`
}

// Snap returns the snap share or 0 when missing.
func (w WeeklyLog) Snap() float64 {
	if w.SnapShare == nil {
		return 0
	}
	return *w.SnapShare
}

// SeasonTotals holds season aggregates reported by the snapshot store.
type SeasonTotals struct {
	Games            int `json:"games" yaml:"games"`
	TeamGames        int `json:"team_games" yaml:"team_games"`
	TeamTargets      int `json:"team_targets" yaml:"team_targets"`
	TeamRushAttempts int `json:"team_rush_attempts" yaml:"team_rush_attempts"`
}

// AdvancedStats are optional per-play efficiency metrics.
type AdvancedStats struct {
	EPAPerPlay   *float64 `json:"epa_per_play,omitempty" yaml:"epa_per_play,omitempty"`
	EPAPerTarget *float64 `json:"epa_per_target,omitempty" yaml:"epa_per_target,omitempty"`
	CPOE         *float64 `json:"cpoe,omitempty" yaml:"cpoe,omitempty"`
	SuccessRate  *float64 `json:"success_rate,omitempty" yaml:"success_rate,omitempty"`
}

// Environment holds role and team environment signals.
type Environment struct {
	TeamPace     float64  `json:"team_pace" yaml:"team_pace"`           // offensive plays per game
	TeamPassRate float64  `json:"team_pass_rate" yaml:"team_pass_rate"` // 0..1
	RouteRate    *float64 `json:"route_rate,omitempty" yaml:"route_rate,omitempty"`
}

// SecondaryXFP is a coarse stored expected-points figure used when the
// weekly opportunity breakdown is unavailable.
type SecondaryXFP struct {
	PerGame float64 `json:"per_game" yaml:"per_game"`
	Games   int     `json:"games" yaml:"games"`
}

// PlayerContext is the input to grading for one player, position, season
// and as-of week. Weeks are ascending and unique after validation.
type PlayerContext struct {
	PlayerID string   `json:"player_id" yaml:"player_id"`
	Name     string   `json:"name" yaml:"name"`
	Team     string   `json:"team" yaml:"team"`
	Position Position `json:"position" yaml:"position"`
	Season   int      `json:"season" yaml:"season"`
	AsOfWeek int      `json:"as_of_week" yaml:"as_of_week"`

	Totals           SeasonTotals   `json:"totals" yaml:"totals"`
	Weeks            []WeeklyLog    `json:"weeks" yaml:"weeks"`
	Advanced         *AdvancedStats `json:"advanced,omitempty" yaml:"advanced,omitempty"`
	Environment      *Environment   `json:"environment,omitempty" yaml:"environment,omitempty"`
	OpponentStrength *float64       `json:"opponent_strength,omitempty" yaml:"opponent_strength,omitempty"` // 0 easy .. 1 hard
	SecondaryXFP     *SecondaryXFP  `json:"secondary_xfp,omitempty" yaml:"secondary_xfp,omitempty"`

	SnapshotUpdatedAt time.Time `json:"snapshot_updated_at" yaml:"snapshot_updated_at"`
}

// Float returns a pointer to v. Handy for optional fields.
func Float(v float64) *float64 { return &v }
