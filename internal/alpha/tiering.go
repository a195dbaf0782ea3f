package alpha

import (
	"math"

	"github.com/sells-group/alpha-grader/internal/model"
)

// TierFor maps Alpha to exactly one tier. NaN maps to T5.
func TierFor(alpha float64, bands TierBands) model.Tier {
	switch {
	case alpha >= bands.T1:
		return model.T1
	case alpha >= bands.T2:
		return model.T2
	case alpha >= bands.T3:
		return model.T3
	case alpha >= bands.T4:
		return model.T4
	default:
		return model.T5
	}
}

// Confidence grows with games played up to a full season and loses a fixed
// penalty per flagged issue, never dropping below the floor.
func Confidence(gamesPlayed, issues int, cfg ConfidenceConfig) float64 {
	games := math.Min(float64(max(gamesPlayed, 0)), float64(cfg.FullSeasonGames))
	score := games/float64(cfg.FullSeasonGames)*100 - cfg.IssuePenalty*float64(issues)
	score = math.Max(cfg.Floor, math.Min(100, score))
	return round1(score)
}

// TrajectoryFor labels the momentum signal. Without momentum the player is flat.
func TrajectoryFor(momentum float64, hasMomentum bool, threshold float64) model.Trajectory {
	switch {
	case !hasMomentum:
		return model.Flat
	case momentum > threshold:
		return model.Rising
	case momentum < -threshold:
		return model.Declining
	default:
		return model.Flat
	}
}
