package features

import (
	"github.com/sells-group/alpha-grader/internal/model"
)

// builder holds the position-specific parts of feature extraction.
type builder interface {
	position() model.Position
	volume(s *season) model.PillarResult
	efficiency(s *season) model.PillarResult
	// composite is the format-neutral weekly production value used by Stability.
	composite(w model.WeeklyLog) float64
	// passRateHelps reports whether a pass-heavy offense is a favorable context.
	passRateHelps() bool
	// blendsXFP reports whether Volume is mixed with the xFP score.
	blendsXFP() bool
}

// builderFor selects the builder for a position. Every model.Position has one.
func builderFor(pos model.Position) (builder, bool) {
	switch pos {
	case model.QB:
		return qbBuilder{}, true
	case model.RB:
		return rbBuilder{}, true
	case model.WR:
		return wrBuilder{}, true
	case model.TE:
		return teBuilder{}, true
	}
	return nil, false
}

// skillComposite is yards plus 60 per touchdown from scrimmage.
func skillComposite(w model.WeeklyLog) float64 {
	return w.ReceivingYards + w.RushYards + 60*float64(w.ReceivingTDs+w.RushTDs)
}

type qbBuilder struct{}

func (qbBuilder) position() model.Position { return model.QB }
func (qbBuilder) passRateHelps() bool      { return true }
func (qbBuilder) blendsXFP() bool          { return false }

func (qbBuilder) volume(s *season) model.PillarResult {
	dropbacks, ok := s.perGame(float64(s.dropbacks))
	carries, _ := s.perGame(float64(s.rush))
	rz, _ := s.perGame(float64(s.rzCarries))
	return pillar(s.ranges, []component{
		comp(MetricDropbacksPerGame, 0.60, dropbacks, ok),
		comp(MetricCarriesPerGame, 0.25, carries, ok),
		comp(MetricRZCarriesPerGame, 0.15, rz, ok),
	})
}

func (qbBuilder) efficiency(s *season) model.PillarResult {
	adv := s.advanced()
	ypa, ypaOK := rate(s.passYards, float64(s.passAtt))
	cmp, cmpOK := rate(float64(s.completions), float64(s.passAtt))
	td, tdOK := rate(float64(s.passTDs), float64(s.passAtt))
	ints, intOK := rate(float64(s.ints), float64(s.passAtt))
	epa, epaOK := optional(adv.EPAPerPlay)
	cpoe, cpoeOK := optional(adv.CPOE)
	fpoe, fpoeOK := s.fpoe()
	return pillar(s.ranges, []component{
		comp(MetricYardsPerAttempt, 0.25, ypa, ypaOK),
		comp(MetricEPAPerPlay, 0.20, epa, epaOK),
		comp(MetricCompletionRate, 0.10, cmp, cmpOK),
		comp(MetricTDRate, 0.15, td, tdOK),
		inverted(MetricINTRate, 0.10, ints, intOK),
		comp(MetricCPOE, 0.05, cpoe, cpoeOK),
		comp(MetricFPOEPerGame, 0.15, fpoe, fpoeOK),
	})
}

func (qbBuilder) composite(w model.WeeklyLog) float64 {
	return 0.4*w.PassYards + w.RushYards + 40*float64(w.PassTDs) + 60*float64(w.RushTDs)
}

type rbBuilder struct{}

func (rbBuilder) position() model.Position { return model.RB }
func (rbBuilder) passRateHelps() bool      { return false }
func (rbBuilder) blendsXFP() bool          { return true }

func (rbBuilder) volume(s *season) model.PillarResult {
	carries, ok := s.perGame(float64(s.rush))
	opps, _ := s.perGame(float64(s.rush + s.targets))
	rz, _ := s.perGame(float64(s.rzCarries))
	targets, _ := s.perGame(float64(s.targets))
	share, shareOK := s.rushShare()
	return pillar(s.ranges, []component{
		comp(MetricCarriesPerGame, 0.30, carries, ok),
		comp(MetricOppsPerGame, 0.25, opps, ok),
		comp(MetricRushShare, 0.20, share, shareOK),
		comp(MetricRZCarriesPerGame, 0.15, rz, ok),
		comp(MetricTargetsPerGame, 0.10, targets, ok),
	})
}

func (rbBuilder) efficiency(s *season) model.PillarResult {
	adv := s.advanced()
	ypc, ypcOK := rate(s.rushYards, float64(s.rush))
	ypt, yptOK := rate(s.recYards, float64(s.targets))
	catch, catchOK := rate(float64(s.receptions), float64(s.targets))
	epa, epaOK := optional(adv.EPAPerPlay)
	fpoe, fpoeOK := s.fpoe()
	return pillar(s.ranges, []component{
		comp(MetricYardsPerCarry, 0.30, ypc, ypcOK),
		comp(MetricEPAPerPlay, 0.20, epa, epaOK),
		comp(MetricYardsPerTarget, 0.10, ypt, yptOK),
		comp(MetricCatchRate, 0.10, catch, catchOK),
		comp(MetricFPOEPerGame, 0.30, fpoe, fpoeOK),
	})
}

func (rbBuilder) composite(w model.WeeklyLog) float64 { return skillComposite(w) }

type wrBuilder struct{}

func (wrBuilder) position() model.Position { return model.WR }
func (wrBuilder) passRateHelps() bool      { return true }
func (wrBuilder) blendsXFP() bool          { return true }

func (wrBuilder) volume(s *season) model.PillarResult {
	return receiverVolume(s, receiverWeights{volume: 0.45, share: 0.35, redZone: 0.20})
}

func (wrBuilder) efficiency(s *season) model.PillarResult {
	return receiverEfficiency(s, receiverWeights{yards: 0.35, epa: 0.25, catch: 0.15, fpoe: 0.25})
}

func (wrBuilder) composite(w model.WeeklyLog) float64 { return skillComposite(w) }

type teBuilder struct{}

func (teBuilder) position() model.Position { return model.TE }
func (teBuilder) passRateHelps() bool      { return true }
func (teBuilder) blendsXFP() bool          { return true }

func (teBuilder) volume(s *season) model.PillarResult {
	return receiverVolume(s, receiverWeights{volume: 0.45, share: 0.30, redZone: 0.25})
}

func (teBuilder) efficiency(s *season) model.PillarResult {
	return receiverEfficiency(s, receiverWeights{yards: 0.30, epa: 0.25, catch: 0.20, fpoe: 0.25})
}

func (teBuilder) composite(w model.WeeklyLog) float64 { return skillComposite(w) }

type receiverWeights struct {
	volume, share, redZone  float64
	yards, epa, catch, fpoe float64
}

func receiverVolume(s *season, wt receiverWeights) model.PillarResult {
	targets, ok := s.perGame(float64(s.targets))
	rz, _ := s.perGame(float64(s.rzTargets))
	share, shareOK := s.targetShare()
	return pillar(s.ranges, []component{
		comp(MetricTargetsPerGame, wt.volume, targets, ok),
		comp(MetricTargetShare, wt.share, share, shareOK),
		comp(MetricRZTargetsPerGame, wt.redZone, rz, ok),
	})
}

func receiverEfficiency(s *season, wt receiverWeights) model.PillarResult {
	adv := s.advanced()
	ypt, yptOK := rate(s.recYards, float64(s.targets))
	catch, catchOK := rate(float64(s.receptions), float64(s.targets))
	epa, epaOK := optional(adv.EPAPerTarget)
	fpoe, fpoeOK := s.fpoe()
	return pillar(s.ranges, []component{
		comp(MetricYardsPerTarget, wt.yards, ypt, yptOK),
		comp(MetricEPAPerTarget, wt.epa, epa, epaOK),
		comp(MetricCatchRate, wt.catch, catch, catchOK),
		comp(MetricFPOEPerGame, wt.fpoe, fpoe, fpoeOK),
	})
}
