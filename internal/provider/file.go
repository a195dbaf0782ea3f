package provider

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/resilience"
)

// Fixture is the on-disk layout of a YAML snapshot.
type Fixture struct {
	UpdatedAt time.Time             `yaml:"updated_at"`
	Players   []model.PlayerContext `yaml:"players"`
}

type playerKey struct {
	id     string
	season int
}

// FileProvider serves contexts from a YAML fixture held in memory. It is
// read-only after construction and safe for concurrent use.
type FileProvider struct {
	players   map[playerKey]model.PlayerContext
	updatedAt time.Time
}

var _ Source = (*FileProvider)(nil)

// LoadFile reads a fixture from path.
func LoadFile(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: read fixture %s", path)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "provider: parse fixture %s", path)
	}
	if f.UpdatedAt.IsZero() {
		if info, statErr := os.Stat(path); statErr == nil {
			f.UpdatedAt = info.ModTime().UTC()
		}
	}
	return NewFileProvider(f)
}

// NewFileProvider indexes f. Players must have an ID, a season and a graded
// position; a player listed twice for one season is rejected.
func NewFileProvider(f Fixture) (*FileProvider, error) {
	fp := &FileProvider{
		players:   make(map[playerKey]model.PlayerContext, len(f.Players)),
		updatedAt: f.UpdatedAt,
	}
	for i, pc := range f.Players {
		if pc.PlayerID == "" || pc.Season == 0 {
			return nil, eris.Errorf("provider: fixture player %d missing player_id or season", i)
		}
		pos, err := model.ParsePosition(string(pc.Position))
		if err != nil {
			return nil, eris.Wrapf(err, "provider: fixture player %s", pc.PlayerID)
		}
		pc.Position = pos
		if pc.SnapshotUpdatedAt.IsZero() {
			pc.SnapshotUpdatedAt = f.UpdatedAt
		}
		if pc.SnapshotUpdatedAt.After(fp.updatedAt) {
			fp.updatedAt = pc.SnapshotUpdatedAt
		}
		k := playerKey{pc.PlayerID, pc.Season}
		if _, dup := fp.players[k]; dup {
			return nil, eris.Errorf("provider: fixture lists %s twice for %d", pc.PlayerID, pc.Season)
		}
		fp.players[k] = pc
	}
	return fp, nil
}

// Contexts returns every fixture player sorted by season then ID.
func (f *FileProvider) Contexts() []model.PlayerContext {
	out := make([]model.PlayerContext, 0, len(f.players))
	for _, pc := range f.players {
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

// FetchContext implements ContextProvider. The returned context owns its
// weeks slice.
func (f *FileProvider) FetchContext(_ context.Context, playerID string, pos model.Position, season, week int) (model.PlayerContext, error) {
	pc, ok := f.players[playerKey{playerID, season}]
	if !ok {
		return model.PlayerContext{}, resilience.Permanent(
			eris.Wrapf(ErrPlayerNotFound, "provider: %s season %d", playerID, season))
	}
	if pc.Position != pos {
		return model.PlayerContext{}, resilience.Permanent(
			eris.Errorf("provider: player %s is %s, not %s", playerID, pc.Position, pos))
	}
	pc.Weeks = upTo(pc.Weeks, week)
	pc.AsOfWeek = week
	return pc, nil
}

// EligiblePlayers implements RosterSource.
func (f *FileProvider) EligiblePlayers(_ context.Context, pos model.Position, season, week int) ([]string, error) {
	type ranked struct {
		id  string
		ops int
	}
	var list []ranked
	for k, pc := range f.players {
		if k.season != season || pc.Position != pos {
			continue
		}
		weeks := upTo(pc.Weeks, week)
		if len(weeks) == 0 {
			continue
		}
		list = append(list, ranked{k.id, opportunities(weeks)})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ops != list[j].ops {
			return list[i].ops > list[j].ops
		}
		return list[i].id < list[j].id
	})

	ids := make([]string, len(list))
	for i, r := range list {
		ids[i] = r.id
	}
	return ids, nil
}

// LatestSnapshot implements SnapshotClock.
func (f *FileProvider) LatestSnapshot(_ context.Context, season int) (time.Time, bool, error) {
	var latest time.Time
	found := false
	for k, pc := range f.players {
		if k.season != season {
			continue
		}
		found = true
		if pc.SnapshotUpdatedAt.After(latest) {
			latest = pc.SnapshotUpdatedAt
		}
	}
	return latest, found, nil
}
