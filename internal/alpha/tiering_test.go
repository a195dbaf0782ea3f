package alpha

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/alpha-grader/internal/model"
)

func TestTierFor(t *testing.T) {
	t.Parallel()

	bands := DefaultConfig().Tiers
	tests := []struct {
		alpha float64
		want  model.Tier
	}{
		{100, model.T1},
		{80, model.T1},
		{79.9, model.T2},
		{65, model.T2},
		{64.9, model.T3},
		{50, model.T3},
		{49.9, model.T4},
		{35, model.T4},
		{34.9, model.T5},
		{0, model.T5},
		{math.NaN(), model.T5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.alpha, bands), "alpha=%v", tt.alpha)
	}
}

func TestTierForTotality(t *testing.T) {
	t.Parallel()

	bands := DefaultConfig().Tiers
	prev := 0
	for i := 1000; i >= 0; i-- {
		tier := TierFor(float64(i)/10, bands)
		rank := tier.Rank()
		assert.GreaterOrEqual(t, rank, 1)
		assert.LessOrEqual(t, rank, 5)
		// Ranks never decrease as Alpha falls.
		assert.GreaterOrEqual(t, rank, prev)
		prev = rank
	}
}

func TestConfidence(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig().Confidence
	assert.InDelta(t, 100, Confidence(17, 0, cfg), 1e-9)
	assert.InDelta(t, 100, Confidence(20, 0, cfg), 1e-9)
	assert.InDelta(t, 58.8, Confidence(10, 0, cfg), 1e-9)
	assert.InDelta(t, 34.8, Confidence(10, 2, cfg), 1e-9)
	assert.InDelta(t, 10, Confidence(2, 3, cfg), 1e-9)
	assert.InDelta(t, 10, Confidence(-1, 0, cfg), 1e-9)

	// Monotone in games played.
	for g := 1; g <= 17; g++ {
		assert.GreaterOrEqual(t, Confidence(g, 1, cfg), Confidence(g-1, 1, cfg))
	}
}

func TestTrajectoryFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.Rising, TrajectoryFor(5.1, true, 5))
	assert.Equal(t, model.Flat, TrajectoryFor(5, true, 5))
	assert.Equal(t, model.Flat, TrajectoryFor(-5, true, 5))
	assert.Equal(t, model.Declining, TrajectoryFor(-5.1, true, 5))
	assert.Equal(t, model.Flat, TrajectoryFor(40, false, 5))
}
