package features

import (
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/xfp"
)

// contextPillar scores the offensive environment and opponent strength.
// Without either signal the pillar is neutral at exactly 50.
func contextPillar(b builder, pc model.PlayerContext, ranges map[string]xfp.Range) model.PillarResult {
	env := pc.Environment
	if env == nil && pc.OpponentStrength == nil {
		return model.PillarResult{Score: 50, IsNeutral: true}
	}

	var comps []component
	if env != nil {
		comps = append(comps, comp(MetricTeamPace, 0.35, env.TeamPace, env.TeamPace > 0))
		if b.passRateHelps() {
			comps = append(comps, comp(MetricPassRate, 0.25, env.TeamPassRate, env.TeamPassRate > 0))
		} else {
			comps = append(comps, inverted(MetricPassRate, 0.25, env.TeamPassRate, env.TeamPassRate > 0))
		}
		if env.RouteRate != nil && b.position() != model.QB {
			comps = append(comps, comp(MetricRouteRate, 0.15, *env.RouteRate, true))
		}
	}
	if pc.OpponentStrength != nil {
		comps = append(comps, comp(MetricOpponentEase, 0.25, 1-*pc.OpponentStrength, true))
	}

	score, metrics, ok := scoreComponents(ranges, comps)
	if !ok {
		return model.PillarResult{Score: 50, IsNeutral: true}
	}
	return model.PillarResult{Score: clampScore(score), Metrics: metrics}
}
