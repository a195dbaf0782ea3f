// Package validate cleans a player's weekly log series before feature
// extraction. It never fails: every input shape resolves to a clean set plus
// warnings.
package validate

import (
	"math"
	"sort"

	"github.com/sells-group/alpha-grader/internal/model"
)

const (
	// MinCleanWeeks is the sample size below which LOW_SAMPLE_SIZE is raised.
	MinCleanWeeks = 3
	// MinQBDropbacks is the dropback count below which a QB week is inactive.
	MinQBDropbacks = 10
	// ClippedSnapShare replaces a reported snap share of exactly 1.0.
	ClippedSnapShare = 0.12
	// OutlierSigma is the z-score above which a metric is flagged.
	OutlierSigma = 3.0
	// OutlierSpreadFloor is the minimum deviation, as a share of the
	// baseline mean, used when testing for outliers.
	OutlierSpreadFloor = 0.1
)

// Result is the validated weekly series.
type Result struct {
	CleanRows    []model.WeeklyLog `json:"clean_rows"`
	DroppedCount int               `json:"dropped_count"`
	Warnings     []model.Warning   `json:"warnings"`
}

// HasWarning reports whether any warning with the given code was recorded.
func (r Result) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// WeeksWith returns the set of weeks carrying the given warning code.
func (r Result) WeeksWith(code string) map[int]bool {
	out := make(map[int]bool)
	for _, w := range r.Warnings {
		if w.Code == code && w.Week > 0 {
			out[w.Week] = true
		}
	}
	return out
}

// Validate cleans weeks for the given position. The input slice is not
// modified. The outcome reports ReasonLowSample when fewer than
// MinCleanWeeks rows survive.
func Validate(weeks []model.WeeklyLog, pos model.Position) model.Outcome[Result] {
	var res Result

	rows := dedupe(weeks, &res)

	for _, w := range rows {
		if isGhost(w, pos) {
			res.DroppedCount++
			res.Warnings = append(res.Warnings, model.Warning{Code: model.WarnGhostWeek, Week: w.Week})
			continue
		}
		if pos == model.QB && w.Dropbacks < MinQBDropbacks {
			res.DroppedCount++
			res.Warnings = append(res.Warnings, model.Warning{Code: model.WarnInactiveQBWeek, Week: w.Week})
			continue
		}

		switch {
		case w.SnapShare == nil:
			w.SnapShare = model.Float(0)
			res.Warnings = append(res.Warnings, model.Warning{Code: model.WarnNullSnapShare, Week: w.Week})
		case *w.SnapShare == 1.0:
			w.SnapShare = model.Float(ClippedSnapShare)
			res.Warnings = append(res.Warnings, model.Warning{Code: model.WarnAnomalousSnapShare, Week: w.Week})
		default:
			w.SnapShare = model.Float(*w.SnapShare)
		}
		res.CleanRows = append(res.CleanRows, w)
	}

	res.Warnings = append(res.Warnings, flagOutliers(res.CleanRows, pos)...)

	if res.CleanRows == nil {
		res.CleanRows = []model.WeeklyLog{}
	}
	if len(res.CleanRows) < MinCleanWeeks {
		res.Warnings = append(res.Warnings, model.Warning{Code: model.WarnLowSampleSize})
		return model.Fallback(res, model.ReasonLowSample)
	}
	return model.Primary(res)
}

// dedupe sorts a copy of weeks ascending and keeps the last occurrence of
// each week number.
func dedupe(weeks []model.WeeklyLog, res *Result) []model.WeeklyLog {
	rows := make([]model.WeeklyLog, len(weeks))
	copy(rows, weeks)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Week < rows[j].Week })

	out := rows[:0:0]
	for i, w := range rows {
		if i+1 < len(rows) && rows[i+1].Week == w.Week {
			res.DroppedCount++
			res.Warnings = append(res.Warnings, model.Warning{Code: model.WarnDuplicateWeek, Week: w.Week})
			continue
		}
		out = append(out, w)
	}
	return out
}

func isGhost(w model.WeeklyLog, pos model.Position) bool {
	if w.Targets != 0 || w.RushAttempts != 0 || w.Routes != 0 {
		return false
	}
	if pos == model.QB && w.Dropbacks != 0 {
		return false
	}
	return true
}

type metric struct {
	name string
	get  func(model.WeeklyLog) float64
}

var receivingMetrics = []metric{
	{"targets", func(w model.WeeklyLog) float64 { return float64(w.Targets) }},
	{"receptions", func(w model.WeeklyLog) float64 { return float64(w.Receptions) }},
	{"receiving_yards", func(w model.WeeklyLog) float64 { return w.ReceivingYards }},
}

var rushingMetrics = []metric{
	{"rush_attempts", func(w model.WeeklyLog) float64 { return float64(w.RushAttempts) }},
	{"rush_yards", func(w model.WeeklyLog) float64 { return w.RushYards }},
}

var passingMetrics = []metric{
	{"dropbacks", func(w model.WeeklyLog) float64 { return float64(w.Dropbacks) }},
	{"pass_yards", func(w model.WeeklyLog) float64 { return w.PassYards }},
}

func trackedMetrics(pos model.Position) []metric {
	switch pos {
	case model.QB:
		return append(append([]metric{}, passingMetrics...), rushingMetrics...)
	case model.RB:
		return append(append([]metric{}, rushingMetrics...), receivingMetrics...)
	case model.WR, model.TE:
		return receivingMetrics
	}
	return nil
}

// flagOutliers flags values more than OutlierSigma standard deviations from
// the mean of the player's other weeks. The tested week is left out of its
// own baseline so a single bad row can stand out in a short series. The
// deviation is floored at OutlierSpreadFloor of the baseline mean (and at
// least 1) so a flat series does not flag ordinary variation. One warning
// per (week, metric).
func flagOutliers(rows []model.WeeklyLog, pos model.Position) []model.Warning {
	if len(rows) < MinCleanWeeks {
		return nil
	}

	var warnings []model.Warning
	for _, m := range trackedMetrics(pos) {
		values := make([]float64, len(rows))
		for i, w := range rows {
			values[i] = m.get(w)
		}
		for i, v := range values {
			mean, sd := meanStdWithout(values, i)
			spread := math.Max(sd, math.Max(OutlierSpreadFloor*math.Abs(mean), 1))
			if math.Abs(v-mean) > OutlierSigma*spread {
				warnings = append(warnings, model.Warning{
					Code:   model.WarnExtremeOutlier,
					Week:   rows[i].Week,
					Metric: m.name,
				})
			}
		}
	}
	return warnings
}

// meanStdWithout returns the mean and population standard deviation of
// values excluding index skip.
func meanStdWithout(values []float64, skip int) (float64, float64) {
	var sum float64
	n := 0
	for i, v := range values {
		if i == skip {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	mean := sum / float64(n)

	var ss float64
	for i, v := range values {
		if i == skip {
			continue
		}
		ss += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(ss / float64(n))
}
