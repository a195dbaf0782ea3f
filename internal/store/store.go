// Package store persists grade results and batch run logs. Rows are keyed by
// (player_id, season, as_of_week, version); an overwrite always moves
// computed_at strictly forward.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/alpha-grader/internal/db"
	"github.com/sells-group/alpha-grader/internal/model"
)

// GradeFilter selects one cohort of cached grades.
type GradeFilter struct {
	Season    int              `json:"season"`
	AsOfWeek  int              `json:"as_of_week"`
	Version   string           `json:"version"`
	Positions []model.Position `json:"positions,omitempty"` // empty = all positions
}

// WeekFilter selects the weeks a cohort has rows for.
type WeekFilter struct {
	Season    int              `json:"season"`
	Version   string           `json:"version"`
	Positions []model.Position `json:"positions,omitempty"`
	// AtOrBefore limits the search to weeks <= AtOrBefore. Zero means any week.
	AtOrBefore int `json:"at_or_before,omitempty"`
}

// GradeStore is the persistent grade cache.
type GradeStore interface {
	// UpsertGrade writes one grade atomically and returns the stored
	// computed_at, which is strictly later than any previous value for the key.
	UpsertGrade(ctx context.Context, g model.GradeResult) (time.Time, error)
	// ListGrades returns the cohort ordered by Alpha descending.
	ListGrades(ctx context.Context, f GradeFilter) ([]model.GradeResult, error)
	// LatestWeek returns the latest week with rows matching the filter.
	LatestWeek(ctx context.Context, f WeekFilter) (week int, ok bool, err error)

	// Run log
	RecordRun(ctx context.Context, run model.GradingRun, alerts []model.Alert) error
	ListRuns(ctx context.Context, limit int) ([]model.GradingRun, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const gradesTable = "player_alpha_grades"

var gradeColumns = []string{
	"player_id", "season", "as_of_week", "version",
	"position", "name", "team", "mode",
	"alpha", "volume", "efficiency", "stability", "context_fit",
	"tier", "tier_rank", "confidence", "trajectory", "momentum",
	"issues", "lens_adjustment", "games_played", "aux", "computed_at",
}

var gradeKeys = []string{"player_id", "season", "as_of_week", "version"}

// gradeUpsert returns the upsert config for the grades table. advance is the
// expression that keeps computed_at strictly increasing for the dialect.
func gradeUpsert(advance string) db.UpsertConfig {
	return db.UpsertConfig{
		Table:        gradesTable,
		Alias:        "g",
		Columns:      gradeColumns,
		ConflictKeys: gradeKeys,
		SetExprs:     map[string]string{"computed_at": advance},
	}
}

// gradeArgs flattens a grade in gradeColumns order. computedAt is passed in
// its dialect representation.
func gradeArgs(g model.GradeResult, computedAt any) ([]any, error) {
	issues := g.Issues
	if issues == nil {
		issues = []string{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal issues")
	}
	auxJSON, err := json.Marshal(g.Aux)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal aux")
	}
	return []any{
		g.PlayerID, g.Season, g.AsOfWeek, g.Version,
		string(g.Position), g.Name, g.Team, string(g.Mode),
		g.Alpha, g.Pillars.Volume, g.Pillars.Efficiency, g.Pillars.Stability, g.Pillars.ContextFit,
		string(g.Tier), g.TierRank, g.Confidence, string(g.Trajectory), g.Momentum,
		issuesJSON, g.LensAdjustment, g.GamesPlayed, auxJSON, computedAt,
	}, nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanGrade reads one row selected with gradeColumns. The caller converts the
// computed_at destination.
func scanGrade(row scannable, computedAt any) (model.GradeResult, error) {
	var (
		g                    model.GradeResult
		pos, mode, tier, trj string
		issuesJSON, auxJSON  []byte
	)
	err := row.Scan(
		&g.PlayerID, &g.Season, &g.AsOfWeek, &g.Version,
		&pos, &g.Name, &g.Team, &mode,
		&g.Alpha, &g.Pillars.Volume, &g.Pillars.Efficiency, &g.Pillars.Stability, &g.Pillars.ContextFit,
		&tier, &g.TierRank, &g.Confidence, &trj, &g.Momentum,
		&issuesJSON, &g.LensAdjustment, &g.GamesPlayed, &auxJSON, computedAt,
	)
	if err != nil {
		return g, eris.Wrap(err, "store: scan grade")
	}
	g.Position = model.Position(pos)
	g.Mode = model.Mode(mode)
	g.Tier = model.Tier(tier)
	g.Trajectory = model.Trajectory(trj)
	if err := json.Unmarshal(issuesJSON, &g.Issues); err != nil {
		return g, eris.Wrap(err, "store: unmarshal issues")
	}
	if len(auxJSON) > 0 {
		if err := json.Unmarshal(auxJSON, &g.Aux); err != nil {
			return g, eris.Wrap(err, "store: unmarshal aux")
		}
	}
	return g, nil
}

func positionStrings(ps []model.Position) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

func columnList(cols []string) string {
	return strings.Join(cols, ", ")
}
