package grading

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/alpha-grader/internal/cache"
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/store"
)

// Query selects a cached cohort. A nil AsOfWeek means the latest cached
// week. An empty Position means ALL.
type Query struct {
	Season   int    `json:"season"`
	AsOfWeek *int   `json:"as_of_week,omitempty"`
	Position string `json:"position"`
	Limit    int    `json:"limit,omitempty"`
	Version  string `json:"version,omitempty"`
}

// PositionWeek is the week served for one position group of a Snapshot.
type PositionWeek struct {
	Position model.Position `json:"position"`
	AsOfWeek int            `json:"as_of_week"`
	Fallback model.Reason   `json:"fallback,omitempty"`
}

// Snapshot is the answer to a Query. Each position group resolves its week
// on its own, so an ALL read can mix weeks when batches are staggered.
// AsOfWeek is the latest served week and Fallback the widest fallback any
// group took; Weeks carries the per-group detail.
type Snapshot struct {
	Season        int                 `json:"season"`
	RequestedWeek *int                `json:"requested_week,omitempty"`
	AsOfWeek      int                 `json:"as_of_week"`
	Position      string              `json:"position"`
	Version       string              `json:"version"`
	Fallback      model.Reason        `json:"fallback,omitempty"`
	Weeks         []PositionWeek      `json:"weeks"`
	Stale         bool                `json:"stale"`
	ComputedAt    *time.Time          `json:"computed_at"`
	Players       []model.GradeResult `json:"players"`
}

// GetGradesFromCache serves a cohort from the read cache or the grade
// store. It never computes. When the requested week has no rows it falls
// back to the latest earlier week, then to the latest week overall, per
// position group. No rows at all yield an empty snapshot and no error.
func (s *Service) GetGradesFromCache(ctx context.Context, q Query) (Snapshot, error) {
	if err := validateSeason(q.Season); err != nil {
		return Snapshot{}, err
	}
	if q.AsOfWeek != nil {
		if err := validateWeek(*q.AsOfWeek); err != nil {
			return Snapshot{}, err
		}
	}
	if q.Position == "" {
		q.Position = model.PositionAll
	}
	positions, label, err := parseSelector(q.Position)
	if err != nil {
		return Snapshot{}, err
	}
	if q.Version == "" {
		q.Version = s.engine.Version()
	}
	if err := ValidateVersion(q.Version); err != nil {
		return Snapshot{}, err
	}
	if q.Limit <= 0 {
		q.Limit = s.cfg.DefaultLimit
	}

	week := 0
	if q.AsOfWeek != nil {
		week = *q.AsOfWeek
	}
	key := cache.CohortKey(q.Version, q.Season, label, week, q.Limit)
	log := s.log().With(zap.String("key", key))

	if snap, ok := s.cached(ctx, log, key); ok {
		snap.Stale = s.isStale(ctx, log, snap)
		s.metrics.ObserveRead(label, "cache")
		return snap, nil
	}

	snap := Snapshot{
		Season:        q.Season,
		RequestedWeek: q.AsOfWeek,
		Position:      label,
		Version:       q.Version,
		Players:       []model.GradeResult{},
	}

	var grades []model.GradeResult
	for _, pos := range positions {
		pw, found, err := s.resolveWeek(ctx, q, pos)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Weeks = append(snap.Weeks, pw)
		if !found {
			continue
		}
		rows, err := s.store.ListGrades(ctx, store.GradeFilter{
			Season:    q.Season,
			AsOfWeek:  pw.AsOfWeek,
			Version:   q.Version,
			Positions: []model.Position{pos},
		})
		if err != nil {
			return Snapshot{}, eris.Wrapf(err, "grading: list cached %s grades", pos)
		}
		grades = append(grades, rows...)
	}

	var found bool
	snap.AsOfWeek, snap.Fallback, found = summarizeWeeks(snap.Weeks)
	if !found {
		s.metrics.ObserveRead(label, "empty")
		return snap, nil
	}
	snap.Players = groupAndLimit(grades, q.Limit)
	snap.ComputedAt = latestComputedAt(snap.Players)

	if raw, err := json.Marshal(snap); err != nil {
		log.Warn("grading: encode snapshot", zap.Error(err))
	} else if err := s.cache.Set(ctx, key, raw); err != nil {
		log.Warn("grading: write read cache", zap.Error(err))
	}

	snap.Stale = s.isStale(ctx, log, snap)
	s.metrics.ObserveRead(label, "store")
	return snap, nil
}

func (s *Service) cached(ctx context.Context, log *zap.Logger, key string) (Snapshot, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("grading: read cache unavailable", zap.Error(err))
		return Snapshot{}, false
	}
	if !ok {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		log.Warn("grading: decode cached snapshot", zap.Error(err))
		return Snapshot{}, false
	}
	if snap.Players == nil {
		snap.Players = []model.GradeResult{}
	}
	return snap, true
}

// resolveWeek picks the week to serve for one position and the fallback
// taken to reach it. found is false when the position has no rows in the
// season.
func (s *Service) resolveWeek(ctx context.Context, q Query, pos model.Position) (PositionWeek, bool, error) {
	pw := PositionWeek{Position: pos}
	f := store.WeekFilter{Season: q.Season, Version: q.Version, Positions: []model.Position{pos}}

	if q.AsOfWeek != nil {
		f.AtOrBefore = *q.AsOfWeek
		w, ok, err := s.store.LatestWeek(ctx, f)
		if err != nil {
			return pw, false, eris.Wrapf(err, "grading: resolve %s week", pos)
		}
		if ok {
			pw.AsOfWeek = w
			if w != *q.AsOfWeek {
				pw.Fallback = model.ReasonLatestWeekAtOrBefore
			}
			return pw, true, nil
		}
		f.AtOrBefore = 0
	}

	w, ok, err := s.store.LatestWeek(ctx, f)
	if err != nil {
		return pw, false, eris.Wrapf(err, "grading: resolve latest %s week", pos)
	}
	if !ok {
		pw.Fallback = model.ReasonEmptyCache
		return pw, false, nil
	}
	pw.AsOfWeek = w
	if q.AsOfWeek != nil {
		pw.Fallback = model.ReasonLatestWeekOverall
	}
	return pw, true, nil
}

// summarizeWeeks folds the per-position weeks into the snapshot header:
// the latest served week and the widest fallback among groups with rows.
// Groups without rows only matter when every group is empty.
func summarizeWeeks(weeks []PositionWeek) (int, model.Reason, bool) {
	week, reason, found := 0, model.ReasonNone, false
	for _, pw := range weeks {
		if pw.Fallback == model.ReasonEmptyCache {
			continue
		}
		found = true
		if pw.AsOfWeek > week {
			week = pw.AsOfWeek
		}
		if fallbackRank(pw.Fallback) > fallbackRank(reason) {
			reason = pw.Fallback
		}
	}
	if !found {
		return 0, model.ReasonEmptyCache, false
	}
	return week, reason, true
}

func fallbackRank(r model.Reason) int {
	switch r {
	case model.ReasonLatestWeekAtOrBefore:
		return 1
	case model.ReasonLatestWeekOverall:
		return 2
	}
	return 0
}

// isStale reports whether the snapshot is older than the stale window or
// than the provider's latest data for the season. Provider errors are
// logged and treated as not stale.
func (s *Service) isStale(ctx context.Context, log *zap.Logger, snap Snapshot) bool {
	if snap.ComputedAt == nil {
		return false
	}
	if s.cfg.StaleAfter > 0 && s.now().Sub(*snap.ComputedAt) > s.cfg.StaleAfter {
		return true
	}
	if s.provider == nil {
		return false
	}
	latest, ok, err := s.provider.LatestSnapshot(ctx, snap.Season)
	if err != nil {
		log.Warn("grading: provider snapshot time", zap.Error(err))
		return false
	}
	return ok && latest.After(*snap.ComputedAt)
}

// groupAndLimit orders grades by position then Alpha descending and keeps
// at most limit rows per position.
func groupAndLimit(grades []model.GradeResult, limit int) []model.GradeResult {
	sorted := make([]model.GradeResult, len(grades))
	copy(sorted, grades)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Position != b.Position {
			return a.Position.Order() < b.Position.Order()
		}
		if a.Alpha != b.Alpha {
			return a.Alpha > b.Alpha
		}
		return a.PlayerID < b.PlayerID
	})

	out := make([]model.GradeResult, 0, len(sorted))
	counts := make(map[model.Position]int)
	for _, g := range sorted {
		if counts[g.Position] >= limit {
			continue
		}
		counts[g.Position]++
		out = append(out, g)
	}
	return out
}

func latestComputedAt(grades []model.GradeResult) *time.Time {
	var latest time.Time
	for _, g := range grades {
		if g.ComputedAt.After(latest) {
			latest = g.ComputedAt
		}
	}
	if latest.IsZero() {
		return nil
	}
	return &latest
}
