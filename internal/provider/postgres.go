package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/alpha-grader/internal/db"
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/resilience"
)

const (
	seasonTable = "player_season_context"
	weeklyTable = "player_weekly_usage"
)

var seasonColumns = []string{
	"player_id", "season", "name", "team", "position",
	"games", "team_games", "team_targets", "team_rush_attempts",
	"advanced", "environment", "opponent_strength",
	"secondary_xfp_per_game", "secondary_xfp_games", "updated_at",
}

var weeklyColumns = []string{
	"player_id", "season", "week",
	"targets", "receptions", "receiving_yards", "receiving_tds", "deep_targets", "red_zone_targets",
	"rush_attempts", "rush_yards", "rush_tds", "red_zone_carries",
	"dropbacks", "pass_attempts", "completions", "pass_yards", "pass_tds", "interceptions",
	"routes", "snap_share", "team_targets", "team_rush_attempts",
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS player_season_context (
	player_id              TEXT NOT NULL,
	season                 INTEGER NOT NULL,
	name                   TEXT NOT NULL DEFAULT '',
	team                   TEXT NOT NULL DEFAULT '',
	position               TEXT NOT NULL CHECK (position IN ('QB','RB','WR','TE')),
	games                  INTEGER NOT NULL DEFAULT 0,
	team_games             INTEGER NOT NULL DEFAULT 0,
	team_targets           INTEGER NOT NULL DEFAULT 0,
	team_rush_attempts     INTEGER NOT NULL DEFAULT 0,
	advanced               JSONB,
	environment            JSONB,
	opponent_strength      DOUBLE PRECISION,
	secondary_xfp_per_game DOUBLE PRECISION,
	secondary_xfp_games    INTEGER,
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (player_id, season)
);
CREATE INDEX IF NOT EXISTS idx_season_context_position ON player_season_context (season, position);

CREATE TABLE IF NOT EXISTS player_weekly_usage (
	player_id          TEXT NOT NULL,
	season             INTEGER NOT NULL,
	week               INTEGER NOT NULL CHECK (week BETWEEN 1 AND 22),
	targets            INTEGER NOT NULL DEFAULT 0,
	receptions         INTEGER NOT NULL DEFAULT 0,
	receiving_yards    DOUBLE PRECISION NOT NULL DEFAULT 0,
	receiving_tds      INTEGER NOT NULL DEFAULT 0,
	deep_targets       INTEGER NOT NULL DEFAULT 0,
	red_zone_targets   INTEGER NOT NULL DEFAULT 0,
	rush_attempts      INTEGER NOT NULL DEFAULT 0,
	rush_yards         DOUBLE PRECISION NOT NULL DEFAULT 0,
	rush_tds           INTEGER NOT NULL DEFAULT 0,
	red_zone_carries   INTEGER NOT NULL DEFAULT 0,
	dropbacks          INTEGER NOT NULL DEFAULT 0,
	pass_attempts      INTEGER NOT NULL DEFAULT 0,
	completions        INTEGER NOT NULL DEFAULT 0,
	pass_yards         DOUBLE PRECISION NOT NULL DEFAULT 0,
	pass_tds           INTEGER NOT NULL DEFAULT 0,
	interceptions      INTEGER NOT NULL DEFAULT 0,
	routes             INTEGER NOT NULL DEFAULT 0,
	snap_share         DOUBLE PRECISION,
	team_targets       INTEGER NOT NULL DEFAULT 0,
	team_rush_attempts INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (player_id, season, week)
);
`

// Postgres reads player contexts from the snapshot tables.
type Postgres struct {
	pool db.Pool
}

var _ Source = (*Postgres)(nil)

// NewPostgres creates a provider over pool.
func NewPostgres(pool db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the snapshot tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, snapshotSchema)
	return eris.Wrap(err, "provider: migrate snapshot tables")
}

// FetchContext implements ContextProvider.
func (p *Postgres) FetchContext(ctx context.Context, playerID string, pos model.Position, season, week int) (model.PlayerContext, error) {
	pc, err := p.fetchSeason(ctx, playerID, season)
	if err != nil {
		return model.PlayerContext{}, err
	}
	if pc.Position != pos {
		return model.PlayerContext{}, resilience.Permanent(
			eris.Errorf("provider: player %s is %s, not %s", playerID, pc.Position, pos))
	}

	weeks, err := p.fetchWeeks(ctx, playerID, season, week)
	if err != nil {
		return model.PlayerContext{}, err
	}
	pc.Weeks = weeks
	pc.AsOfWeek = week
	return pc, nil
}

func (p *Postgres) fetchSeason(ctx context.Context, playerID string, season int) (model.PlayerContext, error) {
	var (
		pc            model.PlayerContext
		pos           string
		advanced      []byte
		environment   []byte
		opponent      *float64
		secondaryPG   *float64
		secondaryGame *int
	)
	err := p.pool.QueryRow(ctx,
		`SELECT `+columnList(seasonColumns)+` FROM player_season_context WHERE player_id = $1 AND season = $2`,
		playerID, season,
	).Scan(
		&pc.PlayerID, &pc.Season, &pc.Name, &pc.Team, &pos,
		&pc.Totals.Games, &pc.Totals.TeamGames, &pc.Totals.TeamTargets, &pc.Totals.TeamRushAttempts,
		&advanced, &environment, &opponent,
		&secondaryPG, &secondaryGame, &pc.SnapshotUpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PlayerContext{}, resilience.Permanent(
			eris.Wrapf(ErrPlayerNotFound, "provider: %s season %d", playerID, season))
	}
	if err != nil {
		return model.PlayerContext{}, eris.Wrapf(err, "provider: fetch season context %s", playerID)
	}

	pc.Position = model.Position(pos)
	pc.OpponentStrength = opponent
	if secondaryPG != nil {
		sx := &model.SecondaryXFP{PerGame: *secondaryPG}
		if secondaryGame != nil {
			sx.Games = *secondaryGame
		}
		pc.SecondaryXFP = sx
	}
	if len(advanced) > 0 {
		pc.Advanced = &model.AdvancedStats{}
		if err := json.Unmarshal(advanced, pc.Advanced); err != nil {
			return model.PlayerContext{}, resilience.Permanent(eris.Wrapf(err, "provider: decode advanced stats %s", playerID))
		}
	}
	if len(environment) > 0 {
		pc.Environment = &model.Environment{}
		if err := json.Unmarshal(environment, pc.Environment); err != nil {
			return model.PlayerContext{}, resilience.Permanent(eris.Wrapf(err, "provider: decode environment %s", playerID))
		}
	}
	return pc, nil
}

func (p *Postgres) fetchWeeks(ctx context.Context, playerID string, season, week int) ([]model.WeeklyLog, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+columnList(weeklyColumns[2:])+` FROM player_weekly_usage WHERE player_id = $1 AND season = $2 AND week <= $3 ORDER BY week`,
		playerID, season, week,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: query weekly usage %s", playerID)
	}
	defer rows.Close()

	var weeks []model.WeeklyLog
	for rows.Next() {
		var w model.WeeklyLog
		if err := rows.Scan(
			&w.Week,
			&w.Targets, &w.Receptions, &w.ReceivingYards, &w.ReceivingTDs, &w.DeepTargets, &w.RedZoneTargets,
			&w.RushAttempts, &w.RushYards, &w.RushTDs, &w.RedZoneCarries,
			&w.Dropbacks, &w.PassAttempts, &w.Completions, &w.PassYards, &w.PassTDs, &w.Interceptions,
			&w.Routes, &w.SnapShare, &w.TeamTargets, &w.TeamRushAttempts,
		); err != nil {
			return nil, eris.Wrapf(err, "provider: scan weekly usage %s", playerID)
		}
		weeks = append(weeks, w)
	}
	return weeks, eris.Wrap(rows.Err(), "provider: iterate weekly usage")
}

// EligiblePlayers implements RosterSource. Players need at least one week of
// usage at or before week; busier players come first.
func (p *Postgres) EligiblePlayers(ctx context.Context, pos model.Position, season, week int) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT c.player_id
		FROM player_season_context c
		JOIN player_weekly_usage u
		  ON u.player_id = c.player_id AND u.season = c.season AND u.week <= $3
		WHERE c.season = $1 AND c.position = $2
		GROUP BY c.player_id
		ORDER BY SUM(u.targets + u.rush_attempts + u.dropbacks) DESC, c.player_id`,
		season, string(pos), week,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: query eligible %s", pos)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "provider: scan eligible player")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "provider: iterate eligible players")
}

// LatestSnapshot implements SnapshotClock.
func (p *Postgres) LatestSnapshot(ctx context.Context, season int) (time.Time, bool, error) {
	var (
		n  int64
		at time.Time
	)
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(MAX(updated_at), 'epoch'::timestamptz) FROM player_season_context WHERE season = $1`,
		season,
	).Scan(&n, &at)
	if err != nil {
		return time.Time{}, false, eris.Wrapf(err, "provider: latest snapshot %d", season)
	}
	if n == 0 {
		return time.Time{}, false, nil
	}
	return at, true, nil
}

// Import loads contexts into the snapshot tables, replacing existing rows
// with the same keys. It returns the number of season and weekly rows written.
func Import(ctx context.Context, pool db.Pool, contexts []model.PlayerContext) (int64, int64, error) {
	seasonRows := make([][]any, 0, len(contexts))
	var weeklyRows [][]any
	for _, pc := range contexts {
		row, err := seasonRow(pc)
		if err != nil {
			return 0, 0, err
		}
		seasonRows = append(seasonRows, row)
		for _, w := range pc.Weeks {
			weeklyRows = append(weeklyRows, weeklyRow(pc, w))
		}
	}

	nSeason, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        seasonTable,
		Columns:      seasonColumns,
		ConflictKeys: []string{"player_id", "season"},
	}, seasonRows)
	if err != nil {
		return 0, 0, eris.Wrap(err, "provider: import season context")
	}

	nWeekly, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        weeklyTable,
		Columns:      weeklyColumns,
		ConflictKeys: []string{"player_id", "season", "week"},
	}, weeklyRows)
	if err != nil {
		return nSeason, 0, eris.Wrap(err, "provider: import weekly usage")
	}

	zap.L().Info("provider: imported snapshot",
		zap.Int("players", len(contexts)),
		zap.Int64("season_rows", nSeason),
		zap.Int64("weekly_rows", nWeekly),
	)
	return nSeason, nWeekly, nil
}

func seasonRow(pc model.PlayerContext) ([]any, error) {
	var advanced, environment []byte
	var err error
	if pc.Advanced != nil {
		if advanced, err = json.Marshal(pc.Advanced); err != nil {
			return nil, eris.Wrapf(err, "provider: encode advanced stats %s", pc.PlayerID)
		}
	}
	if pc.Environment != nil {
		if environment, err = json.Marshal(pc.Environment); err != nil {
			return nil, eris.Wrapf(err, "provider: encode environment %s", pc.PlayerID)
		}
	}

	var secondaryPG *float64
	var secondaryGames *int
	if pc.SecondaryXFP != nil {
		secondaryPG = &pc.SecondaryXFP.PerGame
		secondaryGames = &pc.SecondaryXFP.Games
	}

	updated := pc.SnapshotUpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	return []any{
		pc.PlayerID, pc.Season, pc.Name, pc.Team, string(pc.Position),
		pc.Totals.Games, pc.Totals.TeamGames, pc.Totals.TeamTargets, pc.Totals.TeamRushAttempts,
		advanced, environment, pc.OpponentStrength,
		secondaryPG, secondaryGames, updated,
	}, nil
}

func weeklyRow(pc model.PlayerContext, w model.WeeklyLog) []any {
	return []any{
		pc.PlayerID, pc.Season, w.Week,
		w.Targets, w.Receptions, w.ReceivingYards, w.ReceivingTDs, w.DeepTargets, w.RedZoneTargets,
		w.RushAttempts, w.RushYards, w.RushTDs, w.RedZoneCarries,
		w.Dropbacks, w.PassAttempts, w.Completions, w.PassYards, w.PassTDs, w.Interceptions,
		w.Routes, w.SnapShare, w.TeamTargets, w.TeamRushAttempts,
	}
}

func columnList(cols []string) string {
	return strings.Join(cols, ", ")
}
