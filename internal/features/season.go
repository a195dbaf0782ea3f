package features

import (
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/xfp"
)

// season aggregates a clean weekly series for the builders.
type season struct {
	pc     model.PlayerContext
	rows   []model.WeeklyLog
	games  int
	ranges map[string]xfp.Range

	targets, receptions, deepTargets, rzTargets, recTDs int
	rush, rzCarries, rushTDs                           int
	dropbacks, passAtt, completions, passTDs, ints     int
	routes                                             int
	recYards, rushYards, passYards                     float64

	// Team totals over weeks where they were reported, plus the player's
	// counts over those same weeks.
	teamTargets, teamRush         int
	sharedTargets, sharedRush     int
	hasTeamTargets, hasTeamRushes bool

	avgSnap float64
	hasSnap bool

	xfp       xfp.Result
	xfpReason model.Reason
	xfpScore  float64
}

func newSeason(pc model.PlayerContext, rows []model.WeeklyLog, nullSnapWeeks map[int]bool, x model.Outcome[xfp.Result], xfpScore float64, ranges map[string]xfp.Range) *season {
	s := &season{
		pc:        pc,
		rows:      rows,
		games:     len(rows),
		ranges:    ranges,
		xfp:       x.Value,
		xfpReason: x.Reason,
		xfpScore:  xfpScore,
	}

	var snapSum float64
	var snapWeeks int
	for _, w := range rows {
		s.targets += w.Targets
		s.receptions += w.Receptions
		s.deepTargets += w.DeepTargets
		s.rzTargets += w.RedZoneTargets
		s.recTDs += w.ReceivingTDs
		s.recYards += w.ReceivingYards
		s.rush += w.RushAttempts
		s.rzCarries += w.RedZoneCarries
		s.rushTDs += w.RushTDs
		s.rushYards += w.RushYards
		s.dropbacks += w.Dropbacks
		s.passAtt += w.PassAttempts
		s.completions += w.Completions
		s.passTDs += w.PassTDs
		s.ints += w.Interceptions
		s.passYards += w.PassYards
		s.routes += w.Routes

		if w.TeamTargets > 0 {
			s.teamTargets += w.TeamTargets
			s.sharedTargets += w.Targets
			s.hasTeamTargets = true
		}
		if w.TeamRushAttempts > 0 {
			s.teamRush += w.TeamRushAttempts
			s.sharedRush += w.RushAttempts
			s.hasTeamRushes = true
		}
		if w.SnapShare != nil && !nullSnapWeeks[w.Week] {
			snapSum += *w.SnapShare
			snapWeeks++
		}
	}
	if snapWeeks > 0 {
		s.avgSnap = snapSum / float64(snapWeeks)
		s.hasSnap = true
	}
	return s
}

// perGame returns total / games, or false when there are no games.
func (s *season) perGame(total float64) (float64, bool) {
	if s.games == 0 {
		return 0, false
	}
	return total / float64(s.games), true
}

// rate returns num / den, or false when den is zero.
func rate(num, den float64) (float64, bool) {
	if den <= 0 {
		return 0, false
	}
	return num / den, true
}

// targetShare prefers weekly team totals and falls back to season team
// totals scaled to the games played.
func (s *season) targetShare() (float64, bool) {
	if s.hasTeamTargets {
		return rate(float64(s.sharedTargets), float64(s.teamTargets))
	}
	t := s.pc.Totals
	if t.TeamGames > 0 && t.TeamTargets > 0 && s.games > 0 {
		perGame := float64(t.TeamTargets) / float64(t.TeamGames)
		return rate(float64(s.targets), perGame*float64(s.games))
	}
	return 0, false
}

// rushShare mirrors targetShare for carries.
func (s *season) rushShare() (float64, bool) {
	if s.hasTeamRushes {
		return rate(float64(s.sharedRush), float64(s.teamRush))
	}
	t := s.pc.Totals
	if t.TeamGames > 0 && t.TeamRushAttempts > 0 && s.games > 0 {
		perGame := float64(t.TeamRushAttempts) / float64(t.TeamGames)
		return rate(float64(s.rush), perGame*float64(s.games))
	}
	return 0, false
}

// fpoe returns FPOE per game only when it was derived from the weekly
// breakdown; fallback xFP figures carry no actual-points comparison.
func (s *season) fpoe() (float64, bool) {
	if s.xfpReason != model.ReasonNone || s.games == 0 {
		return 0, false
	}
	return s.xfp.FPOEPerGame, true
}

func (s *season) advanced() *model.AdvancedStats {
	if s.pc.Advanced == nil {
		return &model.AdvancedStats{}
	}
	return s.pc.Advanced
}

// optional converts a nullable metric into a component value.
func optional(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
