package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/alpha-grader/internal/db"
	"github.com/sells-group/alpha-grader/internal/model"
)

// PostgresStore implements GradeStore using pgx.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

var _ GradeStore = (*PostgresStore)(nil)

// NewPostgres connects a pool and returns a store that owns it.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps a pool owned by the caller. Close is a no-op.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that share it
// (e.g., the Postgres context provider).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS player_alpha_grades (
	player_id       TEXT NOT NULL,
	season          INTEGER NOT NULL,
	as_of_week      INTEGER NOT NULL,
	version         TEXT NOT NULL,
	position        TEXT NOT NULL CHECK (position IN ('QB', 'RB', 'WR', 'TE')),
	name            TEXT NOT NULL DEFAULT '',
	team            TEXT NOT NULL DEFAULT '',
	mode            TEXT NOT NULL DEFAULT 'redraft',
	alpha           DOUBLE PRECISION NOT NULL CHECK (alpha >= 0 AND alpha <= 100),
	volume          DOUBLE PRECISION NOT NULL,
	efficiency      DOUBLE PRECISION NOT NULL,
	stability       DOUBLE PRECISION NOT NULL,
	context_fit     DOUBLE PRECISION NOT NULL,
	tier            TEXT NOT NULL,
	tier_rank       INTEGER NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	trajectory      TEXT NOT NULL,
	momentum        DOUBLE PRECISION NOT NULL DEFAULT 0,
	issues          JSONB NOT NULL DEFAULT '[]',
	lens_adjustment DOUBLE PRECISION NOT NULL DEFAULT 0,
	games_played    INTEGER NOT NULL,
	aux             JSONB,
	computed_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (player_id, season, as_of_week, version)
);

CREATE INDEX IF NOT EXISTS idx_alpha_grades_cohort
	ON player_alpha_grades (season, version, as_of_week, position, alpha DESC);

CREATE TABLE IF NOT EXISTS grading_runs (
	id          TEXT PRIMARY KEY,
	position    TEXT NOT NULL,
	season      INTEGER NOT NULL,
	as_of_week  INTEGER NOT NULL,
	version     TEXT NOT NULL,
	mode        TEXT NOT NULL,
	eligible    INTEGER NOT NULL DEFAULT 0,
	computed    INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	alerts      INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_grading_runs_started ON grading_runs (started_at DESC);

CREATE TABLE IF NOT EXISTS grading_alerts (
	run_id     TEXT NOT NULL REFERENCES grading_runs(id),
	code       TEXT NOT NULL,
	position   TEXT NOT NULL,
	season     INTEGER NOT NULL,
	as_of_week INTEGER NOT NULL,
	version    TEXT NOT NULL,
	message    TEXT NOT NULL,
	value      DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_grading_alerts_run ON grading_alerts (run_id);
`

var postgresGradeUpsert = mustUpsertSQL(
	gradeUpsert(`GREATEST(EXCLUDED."computed_at", "g"."computed_at" + interval '1 microsecond')`),
	db.Dollar,
) + ` RETURNING "computed_at"`

var alertColumns = []string{"run_id", "code", "position", "season", "as_of_week", "version", "message", "value"}

func mustUpsertSQL(cfg db.UpsertConfig, ph db.Placeholder) string {
	q, err := db.UpsertSQL(cfg, ph)
	if err != nil {
		panic(err)
	}
	return q
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertGrade(ctx context.Context, g model.GradeResult) (time.Time, error) {
	computedAt := g.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}
	args, err := gradeArgs(g, computedAt)
	if err != nil {
		return time.Time{}, err
	}

	var stored time.Time
	if err := s.pool.QueryRow(ctx, postgresGradeUpsert, args...).Scan(&stored); err != nil {
		return time.Time{}, eris.Wrapf(err, "postgres: upsert grade %s/%d/%d", g.PlayerID, g.Season, g.AsOfWeek)
	}
	return stored.UTC(), nil
}

func (s *PostgresStore) ListGrades(ctx context.Context, f GradeFilter) ([]model.GradeResult, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE season = $1 AND as_of_week = $2 AND version = $3`,
		columnList(gradeColumns), gradesTable)
	args := []any{f.Season, f.AsOfWeek, f.Version}
	if len(f.Positions) > 0 {
		query += ` AND position = ANY($4)`
		args = append(args, positionStrings(f.Positions))
	}
	query += ` ORDER BY alpha DESC, player_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list grades")
	}
	defer rows.Close()

	var grades []model.GradeResult
	for rows.Next() {
		var computedAt time.Time
		g, err := scanGrade(rows, &computedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list grades")
		}
		g.ComputedAt = computedAt.UTC()
		grades = append(grades, g)
	}
	return grades, eris.Wrap(rows.Err(), "postgres: list grades iterate")
}

func (s *PostgresStore) LatestWeek(ctx context.Context, f WeekFilter) (int, bool, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(as_of_week), 0) FROM %s WHERE season = $1 AND version = $2`, gradesTable)
	args := []any{f.Season, f.Version}
	argIdx := 3
	if len(f.Positions) > 0 {
		query += fmt.Sprintf(` AND position = ANY($%d)`, argIdx)
		args = append(args, positionStrings(f.Positions))
		argIdx++
	}
	if f.AtOrBefore > 0 {
		query += fmt.Sprintf(` AND as_of_week <= $%d`, argIdx)
		args = append(args, f.AtOrBefore)
	}

	var week int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&week); err != nil {
		return 0, false, eris.Wrap(err, "postgres: latest week")
	}
	return week, week > 0, nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, run model.GradingRun, alerts []model.Alert) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO grading_runs (id, position, season, as_of_week, version, mode, eligible, computed, errors, alerts, duration_ms, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.Position, run.Season, run.AsOfWeek, run.Version, string(run.Mode),
		run.Eligible, run.Computed, run.Errors, run.Alerts, run.DurationMs, run.StartedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	rows := make([][]any, len(alerts))
	for i, a := range alerts {
		rows[i] = []any{run.ID, a.Code, string(a.Position), a.Season, a.AsOfWeek, a.Version, a.Message, a.Value}
	}
	if _, err := db.CopyFrom(ctx, s.pool, "grading_alerts", alertColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: insert alerts for run %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.GradingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, position, season, as_of_week, version, mode, eligible, computed, errors, alerts, duration_ms, started_at
		 FROM grading_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.GradingRun
	for rows.Next() {
		var r model.GradingRun
		var mode string
		if err := rows.Scan(&r.ID, &r.Position, &r.Season, &r.AsOfWeek, &r.Version, &mode,
			&r.Eligible, &r.Computed, &r.Errors, &r.Alerts, &r.DurationMs, &r.StartedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Mode = model.Mode(mode)
		r.StartedAt = r.StartedAt.UTC()
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
