package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/alpha-grader/internal/config"
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/store"
)

// CohortReader is the slice of the grade store the checker reads.
type CohortReader interface {
	LatestWeek(ctx context.Context, f store.WeekFilter) (int, bool, error)
	ListGrades(ctx context.Context, f store.GradeFilter) ([]model.GradeResult, error)
}

// Scope selects which cached cohorts the checker audits.
type Scope struct {
	Season  int
	Version string
}

// Checker periodically audits the latest cached cohort of every position
// and the recent run log.
type Checker struct {
	grades    CohortReader
	auditor   *Auditor
	collector *Collector
	alerter   *Alerter
	metrics   *Metrics
	cfg       config.MonitoringConfig
	scope     Scope
}

// NewChecker creates a background checker. collector and metrics may be nil.
func NewChecker(grades CohortReader, auditor *Auditor, collector *Collector, alerter *Alerter, metrics *Metrics, cfg config.MonitoringConfig, scope Scope) *Checker {
	return &Checker{
		grades:    grades,
		auditor:   auditor,
		collector: collector,
		alerter:   alerter,
		metrics:   metrics,
		cfg:       cfg,
		scope:     scope,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.AuditIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting guardrail checker",
		zap.Duration("interval", interval),
		zap.Int("season", c.scope.Season),
		zap.String("version", c.scope.Version),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("guardrail checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check audits once and returns every alert raised. Read failures are
// logged and skipped.
func (c *Checker) Check(ctx context.Context) []model.Alert {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	var alerts []model.Alert
	for _, pos := range model.AllPositions {
		week, ok, err := c.grades.LatestWeek(ctx, store.WeekFilter{
			Season:    c.scope.Season,
			Version:   c.scope.Version,
			Positions: []model.Position{pos},
		})
		if err != nil {
			log.Error("monitoring: latest week", zap.String("position", pos.String()), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		grades, err := c.grades.ListGrades(ctx, store.GradeFilter{
			Season:    c.scope.Season,
			AsOfWeek:  week,
			Version:   c.scope.Version,
			Positions: []model.Position{pos},
		})
		if err != nil {
			log.Error("monitoring: list grades", zap.String("position", pos.String()), zap.Error(err))
			continue
		}
		found := c.auditor.Audit(Cohort{Position: pos, Season: c.scope.Season, AsOfWeek: week, Version: c.scope.Version}, grades)
		c.metrics.ObserveAlerts(found)
		alerts = append(alerts, found...)
	}

	if c.collector != nil {
		summary, err := c.collector.Collect(ctx, c.cfg.LookbackRuns)
		if err != nil {
			log.Error("monitoring: collect runs", zap.Error(err))
		} else {
			alerts = append(alerts, c.alerter.EvaluateRuns(summary)...)
		}
	}

	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered")
		return nil
	}

	for _, a := range alerts {
		log.Warn("monitoring: guardrail alert",
			zap.String("code", a.Code),
			zap.String("position", a.Position.String()),
			zap.String("message", a.Message),
		)
	}
	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return alerts
}
