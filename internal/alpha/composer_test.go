package alpha

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/alpha-grader/internal/model"
)

func bundle(pos model.Position, v, e, s, c float64) model.FeatureBundle {
	return model.FeatureBundle{
		Position:     pos,
		GamesPlayed:  12,
		Volume:       model.PillarResult{Score: v},
		Efficiency:   model.PillarResult{Score: e},
		Stability:    model.PillarResult{Score: s},
		ContextFit:   model.PillarResult{Score: c},
		Quality:      model.DataQuality{HasSnapData: true, HasXFP: true},
		AvgSnapShare: 0.8,
	}
}

func TestDefaultConfigValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.BaseWeights[model.QB] = Weights{Volume: 0.5, Efficiency: 0.5, Stability: 0.5}
	delete(cfg.BaseWeights, model.TE)
	cfg.Tiers.T2 = 90
	cfg.Lens.RoleCap = 20

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_weights for QB should sum to 1")
	assert.Contains(t, err.Error(), "base_weights for TE are required")
	assert.Contains(t, err.Error(), "tiers must satisfy")
	assert.Contains(t, err.Error(), "lens.role_cap")
}

func TestWeightsForModes(t *testing.T) {
	t.Parallel()

	c := NewComposer(DefaultConfig())
	redraft := c.WeightsFor(model.WR, model.ModeRedraft)
	assert.InDelta(t, 0.40, redraft.Volume, 1e-9)
	assert.InDelta(t, 1.0, redraft.Sum(), 1e-9)

	for _, mode := range []model.Mode{model.ModeDynasty, model.ModeBestBall} {
		w := c.WeightsFor(model.WR, mode)
		assert.InDelta(t, 1.0, w.Sum(), 1e-9, mode)
		assert.Greater(t, w.Stability, redraft.Stability, mode)
		assert.Greater(t, w.ContextFit, redraft.ContextFit, mode)
		assert.Less(t, w.Volume, redraft.Volume, mode)
	}

	assert.Equal(t, redraft, c.WeightsFor(model.WR, model.Mode("keeper")))
}

func TestCompose_WeightedSum(t *testing.T) {
	t.Parallel()

	c := NewComposer(DefaultConfig())
	out := c.Compose(bundle(model.RB, 60, 70, 50, 50), model.ModeRedraft)

	// 0.45*60 + 0.25*70 + 0.15*50 + 0.15*50
	assert.InDelta(t, 59.5, out.Raw, 1e-9)
	assert.InDelta(t, 59.5, out.Alpha, 1e-9)
	assert.Empty(t, out.Issues)
	assert.Zero(t, out.LensAdjustment)
	assert.False(t, out.HasMomentum)
}

func TestCompose_ModeChangesAlpha(t *testing.T) {
	t.Parallel()

	c := NewComposer(DefaultConfig())
	b := bundle(model.WR, 90, 85, 40, 40)
	redraft := c.Compose(b, model.ModeRedraft)
	dynasty := c.Compose(b, model.ModeDynasty)
	assert.Greater(t, redraft.Alpha, dynasty.Alpha)
}

func TestCompose_Purity(t *testing.T) {
	t.Parallel()

	c := NewComposer(DefaultConfig())
	b := bundle(model.TE, 71.3, 64.9, 58.2, 47.7)
	recent := bundle(model.TE, 88.1, 70.2, 61.0, 47.7)
	b.Recent = &recent

	first := c.Compose(b, model.ModeBestBall)
	for i := 0; i < 50; i++ {
		again := c.Compose(b, model.ModeBestBall)
		assert.Equal(t, math.Float64bits(first.Alpha), math.Float64bits(again.Alpha))
		assert.Equal(t, first, again)
	}
}

func TestCompose_SanityLens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(b *model.FeatureBundle)
		wantCode string
		wantAdj  float64
	}{
		{
			name: "role volume mismatch",
			mutate: func(b *model.FeatureBundle) {
				b.Volume.Score = 80
				b.AvgSnapShare = 0.4
			},
			wantCode: model.IssueRoleVolumeMismatch,
			wantAdj:  -2,
		},
		{
			name: "efficiency on low volume",
			mutate: func(b *model.FeatureBundle) {
				b.Volume.Score = 20
				b.Efficiency.Score = 90
			},
			wantCode: model.IssueEfficiencyOnLowVolume,
			wantAdj:  -2,
		},
		{
			name: "outlier inflated",
			mutate: func(b *model.FeatureBundle) {
				b.Quality.OutlierWeeks = 2
			},
			wantCode: model.IssueOutlierInflated,
			wantAdj:  -1.6666666666666667,
		},
		{
			name: "negative fpoe divergence nudges up",
			mutate: func(b *model.FeatureBundle) {
				b.FPOEPerGame = -6
			},
			wantCode: model.IssueXFPProductionDivergent,
			wantAdj:  1.5,
		},
	}

	c := NewComposer(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := bundle(model.WR, 60, 60, 60, 50)
			tt.mutate(&b)
			out := c.Compose(b, model.ModeRedraft)
			assert.Equal(t, []string{tt.wantCode}, out.Issues)
			assert.InDelta(t, tt.wantAdj, out.LensAdjustment, 1e-9)
		})
	}
}

func TestCompose_LensTotalCapped(t *testing.T) {
	t.Parallel()

	c := NewComposer(DefaultConfig())
	b := bundle(model.WR, 75, 95, 60, 50)
	b.AvgSnapShare = 0.3
	b.Quality.OutlierWeeks = 6
	b.FPOEPerGame = 9

	// Low-volume rule cannot fire at volume 75; the other three total -5.5.
	out := c.Compose(b, model.ModeRedraft)
	assert.Len(t, out.Issues, 3)
	assert.InDelta(t, -5, out.LensAdjustment, 1e-9)
}

func TestCompose_MomentumBounded(t *testing.T) {
	t.Parallel()

	c := NewComposer(DefaultConfig())
	b := bundle(model.WR, 50, 50, 50, 50)
	hot := bundle(model.WR, 100, 100, 100, 50)
	b.Recent = &hot

	out := c.Compose(b, model.ModeRedraft)
	require.True(t, out.HasMomentum)
	assert.Greater(t, out.Momentum, 5.0)
	assert.InDelta(t, 3, out.MomentumAdjustment, 1e-9)
	assert.InDelta(t, 53, out.Alpha, 1e-9)

	cold := bundle(model.WR, 0, 0, 0, 50)
	b.Recent = &cold
	out = c.Compose(b, model.ModeRedraft)
	assert.Less(t, out.Momentum, -5.0)
	assert.InDelta(t, -3, out.MomentumAdjustment, 1e-9)
}

func TestCompose_RecentWindowIgnoresNestedRecent(t *testing.T) {
	t.Parallel()

	c := NewComposer(DefaultConfig())
	inner := bundle(model.WR, 100, 100, 100, 100)
	recent := bundle(model.WR, 50, 50, 50, 50)
	recent.Recent = &inner
	b := bundle(model.WR, 50, 50, 50, 50)
	b.Recent = &recent

	out := c.Compose(b, model.ModeRedraft)
	assert.InDelta(t, 0, out.Momentum, 1e-9)
}

func TestCompose_AlphaBounded(t *testing.T) {
	t.Parallel()

	c := NewComposer(DefaultConfig())
	values := []float64{-50, 0, 0.04, 49.95, 100, 250, math.NaN(), math.Inf(1)}
	for _, pos := range model.AllPositions {
		for _, v := range values {
			b := bundle(pos, v, v, v, v)
			b.AvgSnapShare = 0.1
			out := c.Compose(b, model.ModeDynasty)
			assert.False(t, math.IsNaN(out.Alpha))
			assert.GreaterOrEqual(t, out.Alpha, 0.0)
			assert.LessOrEqual(t, out.Alpha, 100.0)
		}
	}
}

func TestRound1(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 74.0, round1(74.01599), 1e-9)
	assert.InDelta(t, 64.9, round1(64.94999), 1e-9)
	assert.InDelta(t, 65.0, round1(64.95), 1e-9)
}
