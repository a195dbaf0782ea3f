package features

import (
	"math"

	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/xfp"
)

// component is one weighted input to a pillar.
type component struct {
	name   string
	weight float64
	value  float64
	ok     bool
	invert bool
}

func comp(name string, weight float64, value float64, ok bool) component {
	return component{name: name, weight: weight, value: value, ok: ok}
}

func inverted(name string, weight float64, value float64, ok bool) component {
	return component{name: name, weight: weight, value: value, ok: ok, invert: true}
}

// scoreComponents normalizes each available component against its range
// and returns the weight-renormalized average. With no available
// components it returns (50, nil, false).
func scoreComponents(ranges map[string]xfp.Range, comps []component) (float64, map[string]float64, bool) {
	metrics := make(map[string]float64, len(comps))
	var sum, weights float64
	for _, c := range comps {
		if !c.ok || c.weight <= 0 || !finite(c.value) {
			continue
		}
		norm := xfp.Normalize(c.value, ranges[c.name])
		if c.invert {
			norm = 100 - norm
		}
		metrics[c.name] = norm
		sum += norm * c.weight
		weights += c.weight
	}
	if weights == 0 {
		return 50, nil, false
	}
	return sum / weights, metrics, true
}

func pillar(ranges map[string]xfp.Range, comps []component) model.PillarResult {
	score, metrics, _ := scoreComponents(ranges, comps)
	return model.PillarResult{Score: clampScore(score), Metrics: metrics}
}

// blendXFP mixes a raw volume pillar with the xFP score so opportunity
// quality is priced in.
func blendXFP(p model.PillarResult, s *season, blend float64) model.PillarResult {
	if s.xfpReason == model.ReasonNoXFPData {
		return p
	}
	if p.Metrics == nil {
		p.Metrics = map[string]float64{}
	}
	p.Metrics[MetricXFPScore] = s.xfpScore
	p.Score = clampScore((1-blend)*p.Score + blend*s.xfpScore)
	return p
}

func clampScore(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// applyCap limits every pillar to the small-sample ceiling.
func applyCap(p *model.PillarResult, ceiling float64) {
	if p.Score > ceiling {
		p.Score = ceiling
		p.Capped = true
	}
}
