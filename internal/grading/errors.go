package grading

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/alpha-grader/internal/model"
)

// Argument errors. They are returned before any work starts.
var (
	ErrInvalidPosition = eris.New("grading: invalid position")
	ErrInvalidVersion  = eris.New("grading: invalid version")
	ErrInvalidSeason   = eris.New("grading: invalid season")
	ErrInvalidWeek     = eris.New("grading: invalid week")
	ErrInvalidMode     = eris.New("grading: invalid mode")
)

const (
	minSeason = 1999
	maxSeason = 2100
	maxWeek   = 22
)

var versionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,31}$`)

// ValidateVersion rejects empty or malformed cache versions. Versions end up
// in cache keys so the alphabet is restricted.
func ValidateVersion(v string) error {
	if !versionPattern.MatchString(v) {
		return eris.Wrapf(ErrInvalidVersion, "grading: version %q", v)
	}
	return nil
}

func validateSeason(season int) error {
	if season < minSeason || season > maxSeason {
		return eris.Wrapf(ErrInvalidSeason, "grading: season %d", season)
	}
	return nil
}

func validateWeek(week int) error {
	if week < 1 || week > maxWeek {
		return eris.Wrapf(ErrInvalidWeek, "grading: week %d", week)
	}
	return nil
}

func parseMode(s string) (model.Mode, error) {
	mode, err := model.ParseMode(s)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidMode, "grading: mode %q", s)
	}
	return mode, nil
}

func parsePosition(s string) (model.Position, error) {
	pos, err := model.ParsePosition(s)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidPosition, "grading: position %q", s)
	}
	return pos, nil
}

// parseSelector accepts a graded position or ALL.
func parseSelector(s string) ([]model.Position, string, error) {
	if strings.EqualFold(strings.TrimSpace(s), model.PositionAll) {
		return model.AllPositions, model.PositionAll, nil
	}
	pos, err := parsePosition(s)
	if err != nil {
		return nil, "", err
	}
	return []model.Position{pos}, pos.String(), nil
}

// IsInvalidArgument reports whether err is one of the argument errors.
func IsInvalidArgument(err error) bool {
	for _, target := range []error{ErrInvalidPosition, ErrInvalidVersion, ErrInvalidSeason, ErrInvalidWeek, ErrInvalidMode} {
		if eris.Is(err, target) {
			return true
		}
	}
	return false
}

// CheckArgs validates compute arguments without doing any work. position
// may be ALL and an empty version means the engine default.
func CheckArgs(position string, season, week int, version string) error {
	if _, _, err := parseSelector(position); err != nil {
		return err
	}
	if err := validateSeason(season); err != nil {
		return err
	}
	if err := validateWeek(week); err != nil {
		return err
	}
	if version != "" {
		return ValidateVersion(version)
	}
	return nil
}
