package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/alpha-grader/internal/model"
)

func newTestSQLite(t *testing.T) GradeStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleGrade(id string, pos model.Position, week int, alpha float64) model.GradeResult {
	tier := model.T3
	if alpha >= 80 {
		tier = model.T1
	}
	return model.GradeResult{
		PlayerID:    id,
		Name:        "Player " + id,
		Team:        "KC",
		Position:    pos,
		Season:      2024,
		AsOfWeek:    week,
		Version:     "v1",
		Mode:        model.ModeRedraft,
		Alpha:       alpha,
		Pillars:     model.PillarScores{Volume: 70, Efficiency: 60, Stability: 55, ContextFit: 50},
		Tier:        tier,
		TierRank:    tier.Rank(),
		Confidence:  58.8,
		Trajectory:  model.Flat,
		Issues:      []string{},
		GamesPlayed: 10,
		Aux: model.AuxStats{
			XFPPerGame:     13.7,
			TargetsPerGame: 8,
			SnapShare:      0.65,
		},
		ComputedAt: time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC),
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) GradeStore) {
	t.Run("UpsertAndList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		g := sampleGrade("p1", model.WR, 10, 74.0)
		g.Issues = []string{model.IssueOutlierInflated}
		_, err := s.UpsertGrade(ctx, g)
		require.NoError(t, err)

		got, err := s.ListGrades(ctx, GradeFilter{Season: 2024, AsOfWeek: 10, Version: "v1"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "p1", got[0].PlayerID)
		assert.Equal(t, model.WR, got[0].Position)
		assert.Equal(t, model.ModeRedraft, got[0].Mode)
		assert.InDelta(t, 74.0, got[0].Alpha, 1e-9)
		assert.Equal(t, g.Pillars, got[0].Pillars)
		assert.Equal(t, []string{model.IssueOutlierInflated}, got[0].Issues)
		assert.InDelta(t, 13.7, got[0].Aux.XFPPerGame, 1e-9)
		assert.True(t, g.ComputedAt.Equal(got[0].ComputedAt))
	})

	t.Run("RecomputeIsIdempotentAndAdvancesComputedAt", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		g := sampleGrade("p1", model.RB, 8, 66.2)
		first, err := s.UpsertGrade(ctx, g)
		require.NoError(t, err)

		// Same key, same clock reading: the stored timestamp still advances.
		second, err := s.UpsertGrade(ctx, g)
		require.NoError(t, err)
		assert.True(t, second.After(first), "second=%v first=%v", second, first)

		// An earlier clock reading cannot move it backwards.
		g.ComputedAt = first.Add(-time.Hour)
		third, err := s.UpsertGrade(ctx, g)
		require.NoError(t, err)
		assert.True(t, third.After(second))

		got, err := s.ListGrades(ctx, GradeFilter{Season: 2024, AsOfWeek: 8, Version: "v1"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.InDelta(t, 66.2, got[0].Alpha, 1e-9)
		assert.True(t, third.Equal(got[0].ComputedAt))
	})

	t.Run("VersionsAreIsolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		g := sampleGrade("p1", model.QB, 5, 81)
		_, err := s.UpsertGrade(ctx, g)
		require.NoError(t, err)
		g.Version = "v2"
		g.Alpha = 40
		_, err = s.UpsertGrade(ctx, g)
		require.NoError(t, err)

		v1, err := s.ListGrades(ctx, GradeFilter{Season: 2024, AsOfWeek: 5, Version: "v1"})
		require.NoError(t, err)
		require.Len(t, v1, 1)
		assert.InDelta(t, 81, v1[0].Alpha, 1e-9)
	})

	t.Run("ListFiltersAndOrders", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, g := range []model.GradeResult{
			sampleGrade("wr1", model.WR, 6, 55),
			sampleGrade("wr2", model.WR, 6, 88),
			sampleGrade("te1", model.TE, 6, 70),
			sampleGrade("qb1", model.QB, 6, 62),
		} {
			_, err := s.UpsertGrade(ctx, g)
			require.NoError(t, err)
		}

		all, err := s.ListGrades(ctx, GradeFilter{Season: 2024, AsOfWeek: 6, Version: "v1"})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "wr2", all[0].PlayerID)
		assert.Equal(t, "wr1", all[3].PlayerID)

		receivers, err := s.ListGrades(ctx, GradeFilter{
			Season: 2024, AsOfWeek: 6, Version: "v1",
			Positions: []model.Position{model.WR, model.TE},
		})
		require.NoError(t, err)
		require.Len(t, receivers, 3)
		for _, g := range receivers {
			assert.NotEqual(t, model.QB, g.Position)
		}

		none, err := s.ListGrades(ctx, GradeFilter{Season: 2023, AsOfWeek: 6, Version: "v1"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("LatestWeek", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, ok, err := s.LatestWeek(ctx, WeekFilter{Season: 2024, Version: "v1"})
		require.NoError(t, err)
		assert.False(t, ok)

		for _, g := range []model.GradeResult{
			sampleGrade("rb1", model.RB, 3, 50),
			sampleGrade("rb1", model.RB, 7, 52),
			sampleGrade("wr1", model.WR, 9, 61),
		} {
			_, err := s.UpsertGrade(ctx, g)
			require.NoError(t, err)
		}

		week, ok, err := s.LatestWeek(ctx, WeekFilter{Season: 2024, Version: "v1"})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 9, week)

		week, ok, err = s.LatestWeek(ctx, WeekFilter{Season: 2024, Version: "v1", Positions: []model.Position{model.RB}})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 7, week)

		week, ok, err = s.LatestWeek(ctx, WeekFilter{Season: 2024, Version: "v1", AtOrBefore: 6})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, week)

		_, ok, err = s.LatestWeek(ctx, WeekFilter{Season: 2024, Version: "v1", AtOrBefore: 2})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RunLog", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		older := model.GradingRun{
			ID: "run-1", Position: "WR", Season: 2024, AsOfWeek: 5, Version: "v1", Mode: model.ModeRedraft,
			Eligible: 15, Computed: 14, Errors: 1, DurationMs: 120,
			StartedAt: time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC),
		}
		newer := older
		newer.ID = "run-2"
		newer.Alerts = 1
		newer.StartedAt = older.StartedAt.Add(time.Hour)

		require.NoError(t, s.RecordRun(ctx, older, nil))
		require.NoError(t, s.RecordRun(ctx, newer, []model.Alert{
			{Code: model.AlertNoTopTier, Position: model.WR, Season: 2024, AsOfWeek: 5, Version: "v1", Message: "no T1"},
		}))

		runs, err := s.ListRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "run-2", runs[0].ID)
		assert.Equal(t, 1, runs[0].Alerts)
		assert.Equal(t, 14, runs[1].Computed)
		assert.True(t, older.StartedAt.Equal(runs[1].StartedAt))
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestSQLiteStore_ConcurrentUpserts(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := s.UpsertGrade(ctx, sampleGrade("p1", model.TE, 4, 60))
			errs <- err
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-errs)
	}

	got, err := s.ListGrades(ctx, GradeFilter{Season: 2024, AsOfWeek: 4, Version: "v1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
