package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/alpha-grader/internal/model"
)

const fixtureYAML = `
updated_at: 2024-11-04T08:00:00Z
players:
  - player_id: wr1
    name: Alpha Receiver
    team: CIN
    position: wr
    season: 2024
    totals: {games: 3, team_games: 3, team_targets: 110, team_rush_attempts: 70}
    environment: {team_pace: 65, team_pass_rate: 0.62}
    weeks:
      - {week: 1, targets: 10, receptions: 7, receiving_yards: 95, routes: 35, snap_share: 0.9}
      - {week: 2, targets: 12, receptions: 8, receiving_yards: 120, routes: 37, snap_share: 0.92}
      - {week: 3, targets: 8, receptions: 5, receiving_yards: 61, routes: 33}
  - player_id: wr2
    name: Slot Guy
    team: CIN
    position: WR
    season: 2024
    weeks:
      - {week: 1, targets: 4, receptions: 3, receiving_yards: 30, routes: 22}
      - {week: 2, targets: 5, receptions: 4, receiving_yards: 41, routes: 24}
  - player_id: wr3
    name: Late Callup
    position: WR
    season: 2024
    snapshot_updated_at: 2024-11-05T08:00:00Z
    weeks:
      - {week: 6, targets: 7, receptions: 4, receiving_yards: 50, routes: 25}
  - player_id: rb1
    position: RB
    season: 2024
    weeks:
      - {week: 1, rush_attempts: 20, rush_yards: 90}
`

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	fp, err := LoadFile(writeFixture(t, fixtureYAML))
	require.NoError(t, err)
	ctx := context.Background()

	pc, err := fp.FetchContext(ctx, "wr1", model.WR, 2024, 2)
	require.NoError(t, err)
	assert.Equal(t, model.WR, pc.Position)
	assert.Equal(t, 2, pc.AsOfWeek)
	require.Len(t, pc.Weeks, 2)
	require.NotNil(t, pc.Weeks[0].SnapShare)
	assert.InDelta(t, 0.9, *pc.Weeks[0].SnapShare, 1e-9)
	assert.Equal(t, 110, pc.Totals.TeamTargets)

	// Truncating one fetch must not affect the next.
	pc, err = fp.FetchContext(ctx, "wr1", model.WR, 2024, 17)
	require.NoError(t, err)
	assert.Len(t, pc.Weeks, 3)
	assert.Nil(t, pc.Weeks[2].SnapShare)
}

func TestFileProvider_FetchErrors(t *testing.T) {
	fp, err := LoadFile(writeFixture(t, fixtureYAML))
	require.NoError(t, err)

	_, err = fp.FetchContext(context.Background(), "nobody", model.WR, 2024, 5)
	assert.True(t, errors.Is(err, ErrPlayerNotFound))

	_, err = fp.FetchContext(context.Background(), "wr1", model.WR, 2023, 5)
	assert.True(t, errors.Is(err, ErrPlayerNotFound))

	_, err = fp.FetchContext(context.Background(), "rb1", model.WR, 2024, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is RB, not WR")
}

func TestFileProvider_EligiblePlayers(t *testing.T) {
	fp, err := LoadFile(writeFixture(t, fixtureYAML))
	require.NoError(t, err)
	ctx := context.Background()

	ids, err := fp.EligiblePlayers(ctx, model.WR, 2024, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"wr1", "wr2"}, ids)

	ids, err = fp.EligiblePlayers(ctx, model.WR, 2024, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"wr1", "wr2", "wr3"}, ids)

	ids, err = fp.EligiblePlayers(ctx, model.TE, 2024, 6)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileProvider_LatestSnapshot(t *testing.T) {
	fp, err := LoadFile(writeFixture(t, fixtureYAML))
	require.NoError(t, err)

	at, ok, err := fp.LatestSnapshot(context.Background(), 2024)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, time.Date(2024, 11, 5, 8, 0, 0, 0, time.UTC).Equal(at))

	_, ok, err = fp.LatestSnapshot(context.Background(), 2023)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileProvider_Contexts(t *testing.T) {
	fp, err := LoadFile(writeFixture(t, fixtureYAML))
	require.NoError(t, err)

	all := fp.Contexts()
	require.Len(t, all, 4)
	assert.Equal(t, "rb1", all[0].PlayerID)
	assert.Equal(t, "wr3", all[3].PlayerID)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "players: [", "parse fixture"},
		{"missing id", "players:\n  - {season: 2024, position: WR}\n", "missing player_id"},
		{"bad position", "players:\n  - {player_id: k1, season: 2024, position: K}\n", "unknown position"},
		{"duplicate", "players:\n  - {player_id: a, season: 2024, position: WR}\n  - {player_id: a, season: 2024, position: WR}\n", "twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeFixture(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
