package features

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/validate"
	"github.com/sells-group/alpha-grader/internal/xfp"
)

// Extractor builds FeatureBundles from validated player contexts.
type Extractor struct {
	cfg  Config
	calc *xfp.Calculator
}

// NewExtractor creates an Extractor with the given configuration and xFP calculator.
func NewExtractor(cfg Config, calc *xfp.Calculator) *Extractor {
	return &Extractor{cfg: cfg, calc: calc}
}

// Extract builds the season bundle and, when the clean series is long
// enough, a Recent bundle over the trailing window. It only fails for a
// context whose position has no builder.
func (e *Extractor) Extract(pc model.PlayerContext, v validate.Result) (model.FeatureBundle, error) {
	b, ok := builderFor(pc.Position)
	if !ok {
		return model.FeatureBundle{}, eris.Errorf("features: no builder for position %q", pc.Position)
	}

	nullSnap := v.WeeksWith(model.WarnNullSnapShare)
	outliers := v.WeeksWith(model.WarnExtremeOutlier)

	x := e.calc.Calculate(pc.Position, v.CleanRows, pc.SecondaryXFP)
	bundle := e.build(b, pc, v.CleanRows, x, nullSnap, outliers)
	bundle.Warnings = v.Warnings
	bundle.Quality.LowSample = v.HasWarning(model.WarnLowSampleSize)

	if n := len(v.CleanRows); n >= e.cfg.RecentMinWeeks {
		recentRows := v.CleanRows[n-e.cfg.RecentWindow:]
		rx := e.calc.Calculate(pc.Position, recentRows, nil)
		recent := e.build(b, pc, recentRows, rx, nullSnap, outliers)
		bundle.Recent = &recent
	}
	return bundle, nil
}

func (e *Extractor) build(b builder, pc model.PlayerContext, rows []model.WeeklyLog, x model.Outcome[xfp.Result], nullSnap, outliers map[int]bool) model.FeatureBundle {
	ranges := e.cfg.Ranges[pc.Position]
	xfpScore := e.calc.Score(pc.Position, x.Value.XFPPerGame)
	s := newSeason(pc, rows, nullSnap, x, xfpScore, ranges)

	bundle := model.FeatureBundle{
		Position:    pc.Position,
		GamesPlayed: s.games,
	}

	if s.games > 0 {
		bundle.Volume = b.volume(s)
		if b.blendsXFP() {
			bundle.Volume = blendXFP(bundle.Volume, s, e.cfg.XFPBlend)
		}
		bundle.Efficiency = b.efficiency(s)
	}
	bundle.Stability = stabilityPillar(b, rows, e.cfg.Stability)
	bundle.ContextFit = contextPillar(b, pc, ranges)

	if s.games < e.cfg.MinGames {
		for _, p := range []*model.PillarResult{&bundle.Volume, &bundle.Efficiency, &bundle.Stability, &bundle.ContextFit} {
			applyCap(p, e.cfg.SmallSampleCap)
		}
		bundle.Issues = append(bundle.Issues, model.IssueLessThan3Games)
	}

	var outlierWeeks int
	for _, w := range rows {
		if outliers[w.Week] {
			outlierWeeks++
		}
	}

	bundle.Quality = model.DataQuality{
		HasAdvancedStats: pc.Advanced != nil,
		HasSnapData:      s.hasSnap,
		HasEnvironment:   pc.Environment != nil,
		HasOpponent:      pc.OpponentStrength != nil,
		HasXFP:           x.Reason != model.ReasonNoXFPData,
		XFPSource:        x.Reason,
		OutlierWeeks:     outlierWeeks,
	}

	bundle.AvgSnapShare = s.avgSnap
	bundle.XFPPerGame = x.Value.XFPPerGame
	bundle.FPOEPerGame = x.Value.FPOEPerGame
	bundle.PointsPerGame = x.Value.ActualPerGame
	bundle.TargetsPerGame, _ = s.perGame(float64(s.targets))
	bundle.CarriesPerGame, _ = s.perGame(float64(s.rush))
	bundle.DropbacksPerGame, _ = s.perGame(float64(s.dropbacks))
	return bundle
}
