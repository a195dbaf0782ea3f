package grading

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/alpha-grader/internal/alpha"
	"github.com/sells-group/alpha-grader/internal/features"
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/validate"
	"github.com/sells-group/alpha-grader/internal/xfp"
)

// Engine grades one player context. It is pure: the same context and mode
// always produce the same grade, and it never reads the clock.
type Engine struct {
	profile   Profile
	extractor *features.Extractor
	composer  *alpha.Composer
}

// NewEngine validates p and builds an Engine from it.
func NewEngine(p Profile) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		profile:   p,
		extractor: features.NewExtractor(p.Features, xfp.NewCalculator(p.Pricing)),
		composer:  alpha.NewComposer(p.Alpha),
	}, nil
}

// Version returns the profile version, the default cache version.
func (e *Engine) Version() string { return e.profile.Version }

// Profile returns the engine's profile.
func (e *Engine) Profile() Profile { return e.profile }

// Evaluation is a grade together with the intermediate bundle, for
// debugging and the explain output of the CLI.
type Evaluation struct {
	Grade       model.GradeResult   `json:"grade"`
	Validation  validate.Result     `json:"validation"`
	Bundle      model.FeatureBundle `json:"bundle"`
	Composition alpha.Composition   `json:"composition"`
	LowSample   bool                `json:"low_sample"`
}

// Grade runs validate, extract, compose and tier for pc. ComputedAt and
// Version are left for the caller.
func (e *Engine) Grade(pc model.PlayerContext, mode model.Mode) (model.GradeResult, error) {
	ev, err := e.Evaluate(pc, mode)
	if err != nil {
		return model.GradeResult{}, err
	}
	return ev.Grade, nil
}

// Evaluate is Grade with the intermediate results attached.
func (e *Engine) Evaluate(pc model.PlayerContext, mode model.Mode) (Evaluation, error) {
	if !pc.Position.Valid() {
		return Evaluation{}, eris.Wrapf(ErrInvalidPosition, "grading: player %s position %q", pc.PlayerID, pc.Position)
	}
	if mode == "" {
		mode = model.ModeRedraft
	}

	v := validate.Validate(pc.Weeks, pc.Position)
	bundle, err := e.extractor.Extract(pc, v.Value)
	if err != nil {
		return Evaluation{}, eris.Wrapf(err, "grading: extract %s", pc.PlayerID)
	}

	cfg := e.profile.Alpha
	comp := e.composer.Compose(bundle, mode)
	tier := alpha.TierFor(comp.Alpha, cfg.Tiers)

	g := model.GradeResult{
		PlayerID:       pc.PlayerID,
		Name:           pc.Name,
		Team:           pc.Team,
		Position:       pc.Position,
		Season:         pc.Season,
		AsOfWeek:       pc.AsOfWeek,
		Mode:           mode,
		Alpha:          comp.Alpha,
		Pillars:        comp.Pillars,
		Tier:           tier,
		TierRank:       tier.Rank(),
		Confidence:     alpha.Confidence(bundle.GamesPlayed, len(comp.Issues), cfg.Confidence),
		Trajectory:     alpha.TrajectoryFor(comp.Momentum, comp.HasMomentum, cfg.TrajectoryThreshold),
		Momentum:       comp.Momentum,
		Issues:         comp.Issues,
		LensAdjustment: comp.LensAdjustment,
		GamesPlayed:    bundle.GamesPlayed,
		Aux: model.AuxStats{
			XFPPerGame:       bundle.XFPPerGame,
			FPOEPerGame:      bundle.FPOEPerGame,
			PointsPerGame:    bundle.PointsPerGame,
			TargetsPerGame:   bundle.TargetsPerGame,
			CarriesPerGame:   bundle.CarriesPerGame,
			DropbacksPerGame: bundle.DropbacksPerGame,
			SnapShare:        bundle.AvgSnapShare,
			XFPSource:        bundle.Quality.XFPSource,
		},
	}
	if g.Issues == nil {
		g.Issues = []string{}
	}

	return Evaluation{
		Grade:       g,
		Validation:  v.Value,
		Bundle:      bundle,
		Composition: comp,
		LowSample:   v.Reason == model.ReasonLowSample,
	}, nil
}
