// Package provider supplies player contexts and rosters to the grading
// pipeline. Adapters read Postgres snapshot tables or YAML fixtures; Guarded
// wraps either with throttling, retries and a circuit breaker.
package provider

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/alpha-grader/internal/model"
)

// ErrPlayerNotFound is returned when the snapshot has no context for the
// requested player and season.
var ErrPlayerNotFound = eris.New("provider: player not found")

// ContextProvider builds the grading input for one player.
type ContextProvider interface {
	// FetchContext returns the player's context with weeks up to and
	// including week.
	FetchContext(ctx context.Context, playerID string, pos model.Position, season, week int) (model.PlayerContext, error)
}

// RosterSource lists the players eligible for grading, busiest first.
type RosterSource interface {
	EligiblePlayers(ctx context.Context, pos model.Position, season, week int) ([]string, error)
}

// SnapshotClock reports when the upstream snapshot for a season last changed.
type SnapshotClock interface {
	LatestSnapshot(ctx context.Context, season int) (time.Time, bool, error)
}

// Source is everything the grading service consumes from upstream.
type Source interface {
	ContextProvider
	RosterSource
	SnapshotClock
}

// opportunities ranks players for eligibility ordering.
func opportunities(weeks []model.WeeklyLog) int {
	n := 0
	for _, w := range weeks {
		n += w.Targets + w.RushAttempts + w.Dropbacks
	}
	return n
}

// upTo returns the weeks at or before week, preserving order.
func upTo(weeks []model.WeeklyLog, week int) []model.WeeklyLog {
	out := make([]model.WeeklyLog, 0, len(weeks))
	for _, w := range weeks {
		if w.Week <= week {
			out = append(out, w)
		}
	}
	return out
}
