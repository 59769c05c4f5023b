package chart

import (
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retention-cli/internal/report"
)

// Chart kinds drawn from a report.
const (
	KindSurvival = "survival"
	KindGroups   = "groups"
	KindStarts   = "starts"
	KindWeekly   = "weekly"
)

// Kinds lists every chart kind.
var Kinds = []string{KindSurvival, KindGroups, KindStarts, KindWeekly}

// ErrNoData is returned for reports without observations; no chart is drawn.
var ErrNoData = eris.New("chart: no data")

// Report draws one chart kind from r.
func Report(w io.Writer, r *report.Report, kind string, opts Options) error {
	if r == nil || r.NoData {
		return ErrNoData
	}
	horizon := r.Summary.HorizonMonths
	xLabel := r.CurveUnit

	switch kind {
	case KindSurvival, "":
		return SurvivalPNG(w, "Kaplan-Meier survival", xLabel, horizon,
			[]Series{{Label: report.AllLabel, Curve: r.Curve}}, opts)
	case KindGroups:
		series := make([]Series, 0, len(r.GroupCurves))
		for _, g := range r.GroupCurves {
			series = append(series, Series{Label: g.Label, Curve: g.Curve})
		}
		return SurvivalPNG(w, "Survival by plan length", report.UnitMonths, horizon, series, opts)
	case KindStarts:
		return BarPNG(w, "Starts by month", r.StartsByMonth, opts)
	case KindWeekly:
		return BarPNG(w, "Starts by week", r.StartsByWeek, opts)
	}
	return eris.Errorf("chart: unknown kind %q", kind)
}
