package provider

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/resilience"
)

// flakySource fails the first n calls with a transient Postgres error.
type flakySource struct {
	*FileProvider
	failures int
	calls    int
}

func (f *flakySource) FetchContext(ctx context.Context, id string, pos model.Position, season, week int) (model.PlayerContext, error) {
	f.calls++
	if f.calls <= f.failures {
		return model.PlayerContext{}, &pgconn.PgError{Code: "40001"}
	}
	return f.FileProvider.FetchContext(ctx, id, pos, season, week)
}

func testGuard() *resilience.Guard {
	return resilience.NewGuard(resilience.GuardConfig{
		Retry: resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 10, ResetTimeout: time.Minute},
	})
}

func TestGuarded_RetriesTransientFetch(t *testing.T) {
	fp, err := LoadFile(writeFixture(t, fixtureYAML))
	require.NoError(t, err)
	src := &flakySource{FileProvider: fp, failures: 2}

	g := NewGuarded(src, testGuard())
	pc, err := g.FetchContext(context.Background(), "wr1", model.WR, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "wr1", pc.PlayerID)
	assert.Equal(t, 3, src.calls)
}

func TestGuarded_NotFoundIsNotRetried(t *testing.T) {
	fp, err := LoadFile(writeFixture(t, fixtureYAML))
	require.NoError(t, err)
	src := &flakySource{FileProvider: fp}

	g := NewGuarded(src, testGuard())
	_, err = g.FetchContext(context.Background(), "ghost", model.WR, 2024, 3)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.Equal(t, 1, src.calls)
}

func TestGuarded_PassThrough(t *testing.T) {
	fp, err := LoadFile(writeFixture(t, fixtureYAML))
	require.NoError(t, err)
	g := NewGuarded(fp, testGuard())

	ids, err := g.EligiblePlayers(context.Background(), model.RB, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"rb1"}, ids)

	_, ok, err := g.LatestSnapshot(context.Background(), 2024)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, resilience.CircuitClosed, g.Guard().Breaker().State())
}
