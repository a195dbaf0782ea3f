package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/alpha-grader/internal/config"
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/store"
)

type fakeCohorts struct {
	weeks  map[model.Position]int
	grades map[model.Position][]model.GradeResult
	errFor model.Position
}

func (f *fakeCohorts) LatestWeek(_ context.Context, w store.WeekFilter) (int, bool, error) {
	pos := w.Positions[0]
	if pos == f.errFor {
		return 0, false, errors.New("timeout")
	}
	wk, ok := f.weeks[pos]
	return wk, ok, nil
}

func (f *fakeCohorts) ListGrades(_ context.Context, g store.GradeFilter) ([]model.GradeResult, error) {
	return f.grades[g.Positions[0]], nil
}

func TestChecker_Check(t *testing.T) {
	reader := &fakeCohorts{
		weeks: map[model.Position]int{model.QB: 8, model.RB: 8, model.TE: 8},
		grades: map[model.Position][]model.GradeResult{
			model.QB: cohort(90, 84, 60, 30),
			model.RB: cohort(70, 50, 20),
			model.TE: cohort(70, 65),
		},
	}
	runs := &fakeRuns{runs: []model.GradingRun{{Computed: 20, Errors: 20}}}
	cfg := config.MonitoringConfig{ErrorRateThreshold: 0.1}
	metrics := NewMetrics()

	c := NewChecker(reader, NewAuditor(DefaultAuditConfig()), NewCollector(runs), NewAlerter(cfg), metrics, cfg, Scope{Season: 2024, Version: "v1"})
	alerts := c.Check(context.Background())

	assert.ElementsMatch(t, []string{
		model.AlertNoTopTier,
		model.AlertNoTopTier,
		model.AlertCompressedSpread,
		AlertBatchErrorRate,
	}, codes(alerts))
	assert.Equal(t, 1.0, counterValue(t, metrics, "alpha_guardrail_alerts_total", map[string]string{"code": model.AlertCompressedSpread, "position": "TE"}))
}

func TestChecker_CheckSkipsReadErrors(t *testing.T) {
	reader := &fakeCohorts{
		weeks:  map[model.Position]int{model.WR: 3},
		grades: map[model.Position][]model.GradeResult{model.WR: cohort(60, 30)},
		errFor: model.QB,
	}
	c := NewChecker(reader, NewAuditor(DefaultAuditConfig()), nil, NewAlerter(config.MonitoringConfig{}), nil, config.MonitoringConfig{}, Scope{Season: 2024, Version: "v1"})

	assert.Equal(t, []string{model.AlertNoTopTier}, codes(c.Check(context.Background())))
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	reader := &fakeCohorts{}
	cfg := config.MonitoringConfig{AuditIntervalSecs: 1}
	c := NewChecker(reader, NewAuditor(DefaultAuditConfig()), nil, NewAlerter(cfg), nil, cfg, Scope{Season: 2024, Version: "v1"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "checker did not stop")
	}
}
