package grading

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/alpha-grader/internal/cache"
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/monitoring"
	"github.com/sells-group/alpha-grader/internal/store"
)

// Options tune one batch. Zero values use the service defaults.
type Options struct {
	Limit       int        `json:"limit,omitempty"`
	Version     string     `json:"version,omitempty"`
	Mode        model.Mode `json:"mode,omitempty"`
	Concurrency int        `json:"concurrency,omitempty"`
}

// BatchResult summarizes one position batch.
type BatchResult struct {
	RunID      string         `json:"run_id"`
	Position   model.Position `json:"position"`
	Season     int            `json:"season"`
	AsOfWeek   int            `json:"as_of_week"`
	Version    string         `json:"version"`
	Mode       model.Mode     `json:"mode"`
	Eligible   int            `json:"eligible"`
	Computed   int            `json:"computed"`
	Errors     int            `json:"errors"`
	Skipped    int            `json:"skipped"`
	DurationMs int64          `json:"duration_ms"`
	Warnings   []model.Alert  `json:"warnings"`
}

// AllResult aggregates the four position batches.
type AllResult struct {
	Season     int           `json:"season"`
	AsOfWeek   int           `json:"as_of_week"`
	Version    string        `json:"version"`
	Computed   int           `json:"computed"`
	Errors     int           `json:"errors"`
	DurationMs int64         `json:"duration_ms"`
	Positions  []BatchResult `json:"positions"`
}

type batchArgs struct {
	pos         model.Position
	season      int
	week        int
	limit       int
	version     string
	mode        model.Mode
	concurrency int
}

func (s *Service) resolveOptions(season, week int, opts Options) (batchArgs, error) {
	if err := validateSeason(season); err != nil {
		return batchArgs{}, err
	}
	if err := validateWeek(week); err != nil {
		return batchArgs{}, err
	}

	a := batchArgs{
		season:      season,
		week:        week,
		limit:       opts.Limit,
		version:     opts.Version,
		mode:        opts.Mode,
		concurrency: opts.Concurrency,
	}
	if a.version == "" {
		a.version = s.engine.Version()
	}
	if err := ValidateVersion(a.version); err != nil {
		return batchArgs{}, err
	}
	if a.mode == "" {
		a.mode = s.cfg.DefaultMode
	} else {
		mode, err := parseMode(string(a.mode))
		if err != nil {
			return batchArgs{}, err
		}
		a.mode = mode
	}
	if a.limit <= 0 {
		a.limit = s.cfg.DefaultLimit
	}
	if a.concurrency <= 0 {
		a.concurrency = s.cfg.MaxConcurrency
	}
	return a, nil
}

// ComputeAndCacheGrades grades every eligible player of one position, up to
// the limit, and upserts each grade. A player that fails is logged, counted
// and skipped. Only invalid arguments return an error.
func (s *Service) ComputeAndCacheGrades(ctx context.Context, position string, season, asOfWeek int, opts Options) (BatchResult, error) {
	pos, err := parsePosition(position)
	if err != nil {
		return BatchResult{}, err
	}
	a, err := s.resolveOptions(season, asOfWeek, opts)
	if err != nil {
		return BatchResult{}, err
	}
	a.pos = pos
	return s.runBatch(ctx, a), nil
}

// ComputeAllGrades runs the four position batches concurrently.
func (s *Service) ComputeAllGrades(ctx context.Context, season, asOfWeek int, opts Options) (AllResult, error) {
	a, err := s.resolveOptions(season, asOfWeek, opts)
	if err != nil {
		return AllResult{}, err
	}

	start := time.Now()
	results := make([]BatchResult, len(model.AllPositions))

	g := new(errgroup.Group)
	for i, pos := range model.AllPositions {
		pa := a
		pa.pos = pos
		g.Go(func() error {
			results[i] = s.runBatch(ctx, pa)
			return nil
		})
	}
	_ = g.Wait()

	out := AllResult{
		Season:     season,
		AsOfWeek:   asOfWeek,
		Version:    a.version,
		Positions:  results,
		DurationMs: time.Since(start).Milliseconds(),
	}
	for _, r := range results {
		out.Computed += r.Computed
		out.Errors += r.Errors
	}
	return out, nil
}

func (s *Service) runBatch(ctx context.Context, a batchArgs) BatchResult {
	start := time.Now()
	res := BatchResult{
		RunID:    s.newID(),
		Position: a.pos,
		Season:   a.season,
		AsOfWeek: a.week,
		Version:  a.version,
		Mode:     a.mode,
		Warnings: []model.Alert{},
	}
	log := s.log().With(
		zap.String("run_id", res.RunID),
		zap.String("position", a.pos.String()),
		zap.Int("season", a.season),
		zap.Int("week", a.week),
		zap.String("version", a.version),
	)

	ids, err := s.provider.EligiblePlayers(ctx, a.pos, a.season, a.week)
	if err != nil {
		log.Error("grading: list eligible players", zap.Error(err))
		res.Errors = 1
		s.finishBatch(ctx, log, &res, start)
		return res
	}
	if len(ids) > a.limit {
		ids = ids[:a.limit]
	}
	res.Eligible = len(ids)

	log.Info("grading: batch started",
		zap.Int("players", len(ids)),
		zap.Int("concurrency", a.concurrency),
		zap.String("mode", string(a.mode)),
	)

	var computed, failed, scheduled atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		scheduled.Add(1)
		g.Go(func() error {
			if err := s.gradePlayer(ctx, a, id); err != nil {
				failed.Add(1)
				log.Warn("grading: player failed", zap.String("player_id", id), zap.Error(err))
				return nil
			}
			computed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res.Computed = int(computed.Load())
	res.Errors = int(failed.Load())
	res.Skipped = len(ids) - int(scheduled.Load())
	s.finishBatch(ctx, log, &res, start)
	return res
}

// gradePlayer runs one unit: fetch, grade, upsert. The upsert is a single
// statement so a cancelled batch never leaves a partial row.
func (s *Service) gradePlayer(ctx context.Context, a batchArgs, id string) error {
	pc, err := s.provider.FetchContext(ctx, id, a.pos, a.season, a.week)
	if err != nil {
		return eris.Wrap(err, "grading: fetch context")
	}
	pc.PlayerID = id
	pc.Position = a.pos
	pc.Season = a.season
	pc.AsOfWeek = a.week

	g, err := s.engine.Grade(pc, a.mode)
	if err != nil {
		return err
	}
	g.Version = a.version
	g.ComputedAt = s.now()

	if _, err := s.store.UpsertGrade(ctx, g); err != nil {
		return eris.Wrap(err, "grading: upsert grade")
	}
	return nil
}

// finishBatch audits the cohort, records the run and drops stale read cache
// entries. Failures here are logged and never change the batch counts.
func (s *Service) finishBatch(ctx context.Context, log *zap.Logger, res *BatchResult, start time.Time) {
	// Bookkeeping must finish even when the batch itself was cancelled.
	ctx = context.WithoutCancel(ctx)

	if res.Computed > 0 {
		cohort, err := s.store.ListGrades(ctx, store.GradeFilter{
			Season:    res.Season,
			AsOfWeek:  res.AsOfWeek,
			Version:   res.Version,
			Positions: []model.Position{res.Position},
		})
		if err != nil {
			log.Error("grading: load cohort for audit", zap.Error(err))
		} else {
			res.Warnings = append(res.Warnings, s.auditor.Audit(monitoring.Cohort{
				Position: res.Position,
				Season:   res.Season,
				AsOfWeek: res.AsOfWeek,
				Version:  res.Version,
			}, cohort)...)
		}

		if err := s.cache.Invalidate(ctx, cache.CohortPrefix(res.Version, res.Season)); err != nil {
			log.Error("grading: invalidate read cache", zap.Error(err))
		}
	}

	for _, w := range res.Warnings {
		log.Warn("grading: guardrail", zap.String("code", w.Code), zap.String("message", w.Message))
	}
	if s.alerter != nil {
		s.alerter.SendAlerts(ctx, res.Warnings)
	}

	duration := time.Since(start)
	res.DurationMs = duration.Milliseconds()

	run := model.GradingRun{
		ID:         res.RunID,
		Position:   res.Position.String(),
		Season:     res.Season,
		AsOfWeek:   res.AsOfWeek,
		Version:    res.Version,
		Mode:       res.Mode,
		Eligible:   res.Eligible,
		Computed:   res.Computed,
		Errors:     res.Errors,
		Alerts:     len(res.Warnings),
		DurationMs: res.DurationMs,
		StartedAt:  start.UTC(),
	}
	if err := s.store.RecordRun(ctx, run, res.Warnings); err != nil {
		log.Error("grading: record run", zap.Error(err))
	}

	s.metrics.ObserveBatch(res.Position, res.Computed, res.Errors, duration)
	s.metrics.ObserveAlerts(res.Warnings)

	log.Info("grading: batch complete",
		zap.Int("eligible", res.Eligible),
		zap.Int("computed", res.Computed),
		zap.Int("errors", res.Errors),
		zap.Int("skipped", res.Skipped),
		zap.Int("alerts", len(res.Warnings)),
		zap.Int64("duration_ms", res.DurationMs),
	)
}
