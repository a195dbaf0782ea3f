package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/alpha-grader/internal/db"
	"github.com/sells-group/alpha-grader/internal/model"
)

// SQLiteStore implements GradeStore using modernc.org/sqlite. Timestamps are
// stored as Unix microseconds so the upsert can advance them arithmetically.
type SQLiteStore struct {
	db *sql.DB
}

var _ GradeStore = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS player_alpha_grades (
	player_id       TEXT NOT NULL,
	season          INTEGER NOT NULL,
	as_of_week      INTEGER NOT NULL,
	version         TEXT NOT NULL,
	position        TEXT NOT NULL CHECK (position IN ('QB', 'RB', 'WR', 'TE')),
	name            TEXT NOT NULL DEFAULT '',
	team            TEXT NOT NULL DEFAULT '',
	mode            TEXT NOT NULL DEFAULT 'redraft',
	alpha           REAL NOT NULL CHECK (alpha >= 0 AND alpha <= 100),
	volume          REAL NOT NULL,
	efficiency      REAL NOT NULL,
	stability       REAL NOT NULL,
	context_fit     REAL NOT NULL,
	tier            TEXT NOT NULL,
	tier_rank       INTEGER NOT NULL,
	confidence      REAL NOT NULL,
	trajectory      TEXT NOT NULL,
	momentum        REAL NOT NULL DEFAULT 0,
	issues          TEXT NOT NULL DEFAULT '[]',
	lens_adjustment REAL NOT NULL DEFAULT 0,
	games_played    INTEGER NOT NULL,
	aux             TEXT,
	computed_at     INTEGER NOT NULL,
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
	duration_ms INTEGER NOT NULL DEFAULT 0,
	started_at  INTEGER NOT NULL
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
	value      REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_grading_alerts_run ON grading_alerts (run_id);
`

var sqliteGradeUpsert = mustUpsertSQL(
	gradeUpsert(`MAX(EXCLUDED."computed_at", "g"."computed_at" + 1)`),
	db.Numbered,
) + ` RETURNING "computed_at"`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertGrade(ctx context.Context, g model.GradeResult) (time.Time, error) {
	computedAt := g.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}
	args, err := gradeArgs(g, computedAt.UnixMicro())
	if err != nil {
		return time.Time{}, err
	}
	textJSON(args)

	var stored int64
	if err := s.db.QueryRowContext(ctx, sqliteGradeUpsert, args...).Scan(&stored); err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: upsert grade %s/%d/%d", g.PlayerID, g.Season, g.AsOfWeek)
	}
	return time.UnixMicro(stored).UTC(), nil
}

func (s *SQLiteStore) ListGrades(ctx context.Context, f GradeFilter) ([]model.GradeResult, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE season = ? AND as_of_week = ? AND version = ?`,
		columnList(gradeColumns), gradesTable)
	args := []any{f.Season, f.AsOfWeek, f.Version}
	query, args = inPositions(query, args, f.Positions)
	query += ` ORDER BY alpha DESC, player_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list grades")
	}
	defer rows.Close() //nolint:errcheck

	var grades []model.GradeResult
	for rows.Next() {
		var micros int64
		g, err := scanGrade(rows, &micros)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list grades")
		}
		g.ComputedAt = time.UnixMicro(micros).UTC()
		grades = append(grades, g)
	}
	return grades, eris.Wrap(rows.Err(), "sqlite: list grades iterate")
}

func (s *SQLiteStore) LatestWeek(ctx context.Context, f WeekFilter) (int, bool, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(as_of_week), 0) FROM %s WHERE season = ? AND version = ?`, gradesTable)
	args := []any{f.Season, f.Version}
	query, args = inPositions(query, args, f.Positions)
	if f.AtOrBefore > 0 {
		query += ` AND as_of_week <= ?`
		args = append(args, f.AtOrBefore)
	}

	var week int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&week); err != nil {
		return 0, false, eris.Wrap(err, "sqlite: latest week")
	}
	return week, week > 0, nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run model.GradingRun, alerts []model.Alert) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO grading_runs (id, position, season, as_of_week, version, mode, eligible, computed, errors, alerts, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Position, run.Season, run.AsOfWeek, run.Version, string(run.Mode),
		run.Eligible, run.Computed, run.Errors, run.Alerts, run.DurationMs, run.StartedAt.UnixMicro(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	for _, a := range alerts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO grading_alerts (run_id, code, position, season, as_of_week, version, message, value)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, a.Code, string(a.Position), a.Season, a.AsOfWeek, a.Version, a.Message, a.Value,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert alert for run %s", run.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.GradingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, position, season, as_of_week, version, mode, eligible, computed, errors, alerts, duration_ms, started_at
		 FROM grading_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.GradingRun
	for rows.Next() {
		var r model.GradingRun
		var mode string
		var started int64
		if err := rows.Scan(&r.ID, &r.Position, &r.Season, &r.AsOfWeek, &r.Version, &mode,
			&r.Eligible, &r.Computed, &r.Errors, &r.Alerts, &r.DurationMs, &started); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Mode = model.Mode(mode)
		r.StartedAt = time.UnixMicro(started).UTC()
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func inPositions(query string, args []any, ps []model.Position) (string, []any) {
	if len(ps) == 0 {
		return query, args
	}
	marks := make([]string, len(ps))
	for i, p := range ps {
		marks[i] = "?"
		args = append(args, string(p))
	}
	return query + ` AND position IN (` + strings.Join(marks, ", ") + `)`, args
}

// textJSON stores JSON arguments as TEXT rather than BLOB.
func textJSON(args []any) {
	for i, a := range args {
		if b, ok := a.([]byte); ok {
			args[i] = string(b)
		}
	}
}
