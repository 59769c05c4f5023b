package churn

import (
	"math"
	"regexp"

	"github.com/sells-group/retention-cli/internal/model"
)

var weeklyPrefix = regexp.MustCompile(`^W\d`)

// BucketDays maps a fractional month count onto a 7-day grid:
// monthDays*floor(v) plus 0, 7, 14 or 21 days for a remainder of 0,
// (0,.25], (.25,.5] or (.5,.75]. A remainder above .75 carries into the
// next month. Missing values bucket to 0.
func BucketDays(v *float64, monthDays int) int {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	whole := math.Floor(*v)
	frac := *v - whole
	months := int(whole)

	var offset int
	switch {
	case frac == 0:
	case frac <= 0.25:
		offset = 7
	case frac <= 0.5:
		offset = 14
	case frac <= 0.75:
		offset = 21
	default:
		months++
	}
	return months*monthDays + offset
}

// RecoverWeeklyPlan returns cycle_count times the plan weight when the raw
// done_month is exactly 0 and the option code starts with a weighted weekly
// prefix. Otherwise the raw value is returned unchanged.
func RecoverWeeklyPlan(r model.SheetRecord, weights map[string]float64) *float64 {
	if r.DoneMonth == nil || *r.DoneMonth != 0 {
		return r.DoneMonth
	}
	w, ok := weights[weeklyPrefix.FindString(r.Option)]
	if !ok {
		return r.DoneMonth
	}
	v := float64(r.CycleCount) * w
	return &v
}

// ProcessSheet recovers weekly-plan progress and buckets every record.
func ProcessSheet(recs []model.SheetRecord, p Params) []model.SheetSession {
	out := make([]model.SheetSession, len(recs))
	for i, r := range recs {
		dm := RecoverWeeklyPlan(r, p.WeeklyWeights)
		out[i] = model.SheetSession{
			SheetRecord:        r,
			RecoveredDoneMonth: dm,
			DurationDays:       BucketDays(dm, p.MonthDays),
		}
	}
	return out
}
