package validate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/alpha-grader/internal/model"
)

func wrWeek(week, targets int, snap float64) model.WeeklyLog {
	return model.WeeklyLog{
		Week:           week,
		Targets:        targets,
		Receptions:     targets * 2 / 3,
		ReceivingYards: float64(targets) * 9,
		Routes:         30,
		SnapShare:      model.Float(snap),
	}
}

func TestValidate_EmptyInput(t *testing.T) {
	t.Parallel()

	out := Validate(nil, model.WR)
	assert.Equal(t, model.ReasonLowSample, out.Reason)
	assert.NotNil(t, out.Value.CleanRows)
	assert.Empty(t, out.Value.CleanRows)
	assert.Zero(t, out.Value.DroppedCount)
	assert.True(t, out.Value.HasWarning(model.WarnLowSampleSize))
}

func TestValidate_GhostWeekDropped(t *testing.T) {
	t.Parallel()

	weeks := []model.WeeklyLog{
		wrWeek(1, 8, 0.65),
		wrWeek(2, 7, 0.66),
		{Week: 3, SnapShare: model.Float(0.05)},
		wrWeek(4, 9, 0.64),
	}

	out := Validate(weeks, model.WR)
	require.False(t, out.UsedFallback())
	assert.Len(t, out.Value.CleanRows, 3)
	assert.Equal(t, 1, out.Value.DroppedCount)
	assert.True(t, out.Value.WeeksWith(model.WarnGhostWeek)[3])
	for _, w := range out.Value.CleanRows {
		assert.NotEqual(t, 3, w.Week)
	}
}

func TestValidate_QBGhostRequiresZeroDropbacks(t *testing.T) {
	t.Parallel()

	// A QB week with only dropbacks is not a ghost but is still inactive below the threshold.
	weeks := []model.WeeklyLog{
		{Week: 1, Dropbacks: 35, PassAttempts: 33},
		{Week: 2, Dropbacks: 4},
		{Week: 3, RushAttempts: 3, Dropbacks: 2},
		{Week: 4, Dropbacks: 40, PassAttempts: 37},
		{Week: 5, Dropbacks: 38, PassAttempts: 35},
	}

	out := Validate(weeks, model.QB)
	assert.Len(t, out.Value.CleanRows, 3)
	assert.Equal(t, 2, out.Value.DroppedCount)
	inactive := out.Value.WeeksWith(model.WarnInactiveQBWeek)
	assert.True(t, inactive[2])
	assert.True(t, inactive[3])
	assert.False(t, out.Value.HasWarning(model.WarnGhostWeek))
}

func TestValidate_SnapShareRules(t *testing.T) {
	t.Parallel()

	weeks := []model.WeeklyLog{
		wrWeek(1, 8, 1.0),
		{Week: 2, Targets: 6, Routes: 28},
		wrWeek(3, 7, 0.7),
	}

	out := Validate(weeks, model.WR)
	require.Len(t, out.Value.CleanRows, 3)

	assert.InDelta(t, ClippedSnapShare, *out.Value.CleanRows[0].SnapShare, 1e-12)
	assert.True(t, out.Value.WeeksWith(model.WarnAnomalousSnapShare)[1])

	require.NotNil(t, out.Value.CleanRows[1].SnapShare)
	assert.Zero(t, *out.Value.CleanRows[1].SnapShare)
	assert.True(t, out.Value.WeeksWith(model.WarnNullSnapShare)[2])

	assert.InDelta(t, 0.7, *out.Value.CleanRows[2].SnapShare, 1e-12)

	// Caller input untouched.
	assert.InDelta(t, 1.0, *weeks[0].SnapShare, 1e-12)
	assert.Nil(t, weeks[1].SnapShare)
}

func TestValidate_LowSampleKeepsRows(t *testing.T) {
	t.Parallel()

	weeks := []model.WeeklyLog{wrWeek(1, 8, 0.6), wrWeek(2, 5, 0.6), {Week: 3}}
	out := Validate(weeks, model.WR)

	assert.Equal(t, model.ReasonLowSample, out.Reason)
	assert.Len(t, out.Value.CleanRows, 2)
	assert.Equal(t, 1, out.Value.DroppedCount)
	assert.True(t, out.Value.HasWarning(model.WarnLowSampleSize))
}

func TestValidate_SortsAndDedupes(t *testing.T) {
	t.Parallel()

	weeks := []model.WeeklyLog{
		wrWeek(3, 5, 0.6),
		wrWeek(1, 6, 0.6),
		wrWeek(2, 4, 0.6),
		wrWeek(2, 9, 0.6),
	}

	out := Validate(weeks, model.WR)
	require.Len(t, out.Value.CleanRows, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{
		out.Value.CleanRows[0].Week, out.Value.CleanRows[1].Week, out.Value.CleanRows[2].Week,
	})
	assert.Equal(t, 9, out.Value.CleanRows[1].Targets, "last duplicate wins")
	assert.Equal(t, 1, out.Value.DroppedCount)
	assert.True(t, out.Value.HasWarning(model.WarnDuplicateWeek))
}

func TestValidate_ExtremeOutlierFlaggedNotDropped(t *testing.T) {
	t.Parallel()

	var weeks []model.WeeklyLog
	for w := 1; w <= 14; w++ {
		weeks = append(weeks, wrWeek(w, 6, 0.7))
	}
	weeks[9].ReceivingYards = 400

	out := Validate(weeks, model.WR)
	assert.Len(t, out.Value.CleanRows, 14)
	assert.Zero(t, out.Value.DroppedCount)

	var flagged []model.Warning
	for _, w := range out.Value.Warnings {
		if w.Code == model.WarnExtremeOutlier {
			flagged = append(flagged, w)
		}
	}
	require.Len(t, flagged, 1)
	assert.Equal(t, 10, flagged[0].Week)
	assert.Equal(t, "receiving_yards", flagged[0].Metric)
}

func TestValidate_OutliersOnShortSeries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		n        int
		spike    float64
		wantWeek int
	}{
		{name: "five weeks", n: 5, spike: 6000, wantWeek: 5},
		{name: "eight weeks", n: 8, spike: 6000, wantWeek: 8},
		{name: "ten weeks", n: 10, spike: 6000, wantWeek: 10},
		{name: "three weeks", n: 3, spike: 900, wantWeek: 3},
		{name: "boom week within range", n: 5, spike: 75, wantWeek: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var weeks []model.WeeklyLog
			for w := 1; w <= tt.n; w++ {
				week := wrWeek(w, 6, 0.7)
				week.ReceivingYards = 60
				weeks = append(weeks, week)
			}
			weeks[tt.n-1].ReceivingYards = tt.spike

			out := Validate(weeks, model.WR)
			assert.Len(t, out.Value.CleanRows, tt.n)

			flagged := out.Value.WeeksWith(model.WarnExtremeOutlier)
			if tt.wantWeek == 0 {
				assert.Empty(t, flagged)
				return
			}
			assert.Equal(t, map[int]bool{tt.wantWeek: true}, flagged)
		})
	}
}

func TestValidate_NoOutliersOnFlatSeries(t *testing.T) {
	t.Parallel()

	weeks := []model.WeeklyLog{wrWeek(1, 6, 0.5), wrWeek(2, 6, 0.5), wrWeek(3, 6, 0.5), wrWeek(4, 6, 0.5)}
	out := Validate(weeks, model.WR)
	assert.False(t, out.Value.HasWarning(model.WarnExtremeOutlier))
}

func TestMeanStdWithout(t *testing.T) {
	t.Parallel()

	mean, sd := meanStdWithout([]float64{2, 4, 100, 6}, 2)
	assert.InDelta(t, 4, mean, 1e-9)
	assert.InDelta(t, math.Sqrt(8.0/3.0), sd, 1e-9)

	mean, sd = meanStdWithout([]float64{7}, 0)
	assert.Zero(t, mean)
	assert.Zero(t, sd)
}
