// Package grading runs the pipeline end to end: it turns provider contexts
// into grades, writes them to the grade store in bounded-concurrency
// batches, and serves cached cohorts with latest-week fallback.
package grading

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/alpha-grader/internal/alpha"
	"github.com/sells-group/alpha-grader/internal/features"
	"github.com/sells-group/alpha-grader/internal/xfp"
)

// DefaultVersion is the cache version of the built-in profile.
const DefaultVersion = "v1"

// Profile is one versioned grading configuration. Bumping Version is the
// only way to force a full recompute.
type Profile struct {
	Version  string           `yaml:"version" json:"version"`
	Pricing  xfp.PricingTable `yaml:"pricing" json:"pricing"`
	Features features.Config  `yaml:"features" json:"features"`
	Alpha    alpha.Config     `yaml:"alpha" json:"alpha"`
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() Profile {
	return Profile{
		Version:  DefaultVersion,
		Pricing:  xfp.DefaultPricingTable(),
		Features: features.DefaultConfig(),
		Alpha:    alpha.DefaultConfig(),
	}
}

// LoadProfile reads a YAML profile. Keys absent from the file keep their
// default values.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, eris.Wrapf(err, "grading: read profile %s", path)
	}

	p := DefaultProfile()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, eris.Wrapf(err, "grading: parse profile %s", path)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, eris.Wrapf(err, "grading: profile %s", path)
	}
	return p, nil
}

// Validate checks the version and every component configuration.
func (p Profile) Validate() error {
	if err := ValidateVersion(p.Version); err != nil {
		return err
	}
	var errs []string
	for _, err := range []error{p.Pricing.Validate(), p.Features.Validate(), p.Alpha.Validate()} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("grading: invalid profile %s: %s", p.Version, strings.Join(errs, "; "))
	}
	return nil
}
