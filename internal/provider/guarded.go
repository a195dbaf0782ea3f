package provider

import (
	"context"
	"time"

	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/resilience"
)

// Guarded routes every upstream call through a resilience.Guard.
type Guarded struct {
	next  Source
	guard *resilience.Guard
}

var _ Source = (*Guarded)(nil)

// NewGuarded wraps next with guard.
func NewGuarded(next Source, guard *resilience.Guard) *Guarded {
	return &Guarded{next: next, guard: guard}
}

// Guard exposes the underlying guard for metrics.
func (g *Guarded) Guard() *resilience.Guard { return g.guard }

func (g *Guarded) FetchContext(ctx context.Context, playerID string, pos model.Position, season, week int) (model.PlayerContext, error) {
	return resilience.Call(ctx, g.guard, func(ctx context.Context) (model.PlayerContext, error) {
		return g.next.FetchContext(ctx, playerID, pos, season, week)
	})
}

func (g *Guarded) EligiblePlayers(ctx context.Context, pos model.Position, season, week int) ([]string, error) {
	return resilience.Call(ctx, g.guard, func(ctx context.Context) ([]string, error) {
		return g.next.EligiblePlayers(ctx, pos, season, week)
	})
}

type snapshotAt struct {
	at time.Time
	ok bool
}

func (g *Guarded) LatestSnapshot(ctx context.Context, season int) (time.Time, bool, error) {
	res, err := resilience.Call(ctx, g.guard, func(ctx context.Context) (snapshotAt, error) {
		at, ok, err := g.next.LatestSnapshot(ctx, season)
		return snapshotAt{at, ok}, err
	})
	return res.at, res.ok, err
}
