package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroups(t *testing.T) {
	samples := []Sample{
		{Duration: 1, Event: true, Plan: "1"},
		{Duration: 2, Event: true, Plan: "1"},
		{Duration: 3, Event: false, Plan: "3"},
		{Duration: 6, Event: true, Plan: "3"},
		{Duration: 12, Event: false, Plan: "12"},
		{Duration: -0.5, Event: true, Plan: ""},
	}

	stats, curves, err := Groups(samples, []int{1, 3, 6, 12}, 36)
	require.NoError(t, err)
	require.Len(t, stats, 4)
	require.Len(t, curves, 4)

	labels := []string{stats[0].Label, stats[1].Label, stats[2].Label, stats[3].Label}
	assert.Equal(t, []string{"All", "1-month plan", "3-month plan", "12-month plan"}, labels)

	all := stats[0]
	assert.Equal(t, 6, all.SampleSize)
	assert.InDelta(t, 4.0/6.0*100, all.ChurnRate, 1e-9)
	require.NotNil(t, all.Median)

	one := stats[1]
	assert.Equal(t, 2, one.SampleSize)
	assert.InDelta(t, 100.0, one.ChurnRate, 1e-9)
	require.NotNil(t, one.Median)
	assert.Equal(t, 1.0, *one.Median)
	// Points (0,1), (1,.5), (2,0).
	assert.InDelta(t, 0.75+0.25, one.AUC, 1e-12)

	twelve := stats[3]
	assert.Nil(t, twelve.Median)
	assert.Zero(t, twelve.ChurnRate)
}

func TestGroups_Empty(t *testing.T) {
	stats, curves, err := Groups(nil, []int{1, 3}, 36)
	require.NoError(t, err)
	assert.Empty(t, stats)
	assert.Empty(t, curves)
}

func TestFitSamples_ClampsNegative(t *testing.T) {
	c, err := FitSamples([]Sample{{Duration: -3, Event: true}, {Duration: 2, Event: false}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2}, c.Times)
	assert.InDelta(t, 0.5, c.Survival[0], 1e-12)
}

func TestStartsByMonth_FillsGaps(t *testing.T) {
	got := StartsByMonth([]time.Time{
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, []PeriodCount{
		{Period: "2024-01", Count: 1},
		{Period: "2024-02", Count: 0},
		{Period: "2024-03", Count: 2},
	}, got)

	assert.Nil(t, StartsByMonth(nil))
}

func TestStartsByWeek_ISO(t *testing.T) {
	got := StartsByWeek([]time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),  // 2024-W2
		time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), // 2023-W52
		time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), // 2025-W1
		time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),  // 2024-W2
	})
	assert.Equal(t, []PeriodCount{
		{Period: "2023-W52", Count: 1},
		{Period: "2024-W2", Count: 2},
		{Period: "2025-W1", Count: 1},
	}, got)
}

func TestCompareAUC(t *testing.T) {
	imp := CompareAUC(10, 12.5)
	assert.InDelta(t, 2.5, imp.Delta, 1e-12)
	require.NotNil(t, imp.Percent)
	assert.InDelta(t, 25.0, *imp.Percent, 1e-12)

	imp = CompareAUC(0, 3)
	assert.Nil(t, imp.Percent)
}

func TestPlanLabel(t *testing.T) {
	assert.Equal(t, "1-month plan", PlanLabel(1))
	assert.Equal(t, "6-month plan", PlanLabel(6))
}
