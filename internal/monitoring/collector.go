package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/alpha-grader/internal/model"
)

// RunSummary is a point-in-time view of recent batch health.
type RunSummary struct {
	Runs      int     `json:"runs"`
	Eligible  int     `json:"eligible"`
	Computed  int     `json:"computed"`
	Errors    int     `json:"errors"`
	Alerts    int     `json:"alerts"`
	ErrorRate float64 `json:"error_rate"`

	LookbackRuns int       `json:"lookback_runs"`
	CollectedAt  time.Time `json:"collected_at"`
}

// RunLister abstracts the run log methods needed by the collector.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]model.GradingRun, error)
}

// Collector summarizes the run log.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new run collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect summarizes the most recent lookback runs.
func (c *Collector) Collect(ctx context.Context, lookback int) (*RunSummary, error) {
	if lookback <= 0 {
		lookback = 20
	}
	runs, err := c.runs.ListRuns(ctx, lookback)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	s := &RunSummary{
		Runs:         len(runs),
		LookbackRuns: lookback,
		CollectedAt:  time.Now().UTC(),
	}
	for _, r := range runs {
		s.Eligible += r.Eligible
		s.Computed += r.Computed
		s.Errors += r.Errors
		s.Alerts += r.Alerts
	}
	if attempted := s.Computed + s.Errors; attempted > 0 {
		s.ErrorRate = float64(s.Errors) / float64(attempted)
	}
	return s, nil
}
