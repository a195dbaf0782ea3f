package features

import (
	"math"
	"sort"

	"github.com/sells-group/alpha-grader/internal/model"
)

// stabilityPillar scores week-to-week reliability of the format-neutral
// production composite over the clean weekly series.
//
// Score = 100 × (wc×consistency + wf×(1−floorRate) + wb×boomRate).
// Fewer than half the weeks can sit strictly below half the median, so
// (1−floorRate) ≥ 0.5 and the score is strictly positive whenever the
// player has at least one game.
func stabilityPillar(b builder, rows []model.WeeklyLog, cfg StabilityConfig) model.PillarResult {
	if len(rows) == 0 {
		return model.PillarResult{Score: 0}
	}

	values := make([]float64, len(rows))
	for i, w := range rows {
		values[i] = math.Max(0, b.composite(w))
	}

	med := median(values)
	var floorWeeks, boomWeeks int
	for _, v := range values {
		if v < cfg.FloorRatio*med {
			floorWeeks++
		}
		if v > cfg.BoomRatio*med {
			boomWeeks++
		}
	}
	n := float64(len(values))
	floorRate := float64(floorWeeks) / n
	boomRate := float64(boomWeeks) / n

	vol := volatility(values, cfg.VolatilityCap)
	consistency := 0.5
	if len(values) >= 2 {
		consistency = 1 - math.Min(vol, cfg.VolatilityCap)/cfg.VolatilityCap
	}

	score := 100 * (cfg.ConsistencyWeight*consistency +
		cfg.FloorWeight*(1-floorRate) +
		cfg.BoomWeight*boomRate)

	return model.PillarResult{
		Score: clampScore(score),
		Metrics: map[string]float64{
			MetricConsistency: consistency * 100,
			MetricFloorRate:   floorRate,
			MetricBoomRate:    boomRate,
			MetricVolatility:  vol,
		},
	}
}

// volatility is the mean absolute week-to-week change divided by the mean.
// A zero-mean series is maximally volatile.
func volatility(values []float64, ceiling float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum, deltas float64
	for i, v := range values {
		sum += v
		if i > 0 {
			deltas += math.Abs(v - values[i-1])
		}
	}
	mean := sum / float64(len(values))
	if mean <= 0 {
		return ceiling
	}
	return (deltas / float64(len(values)-1)) / mean
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
