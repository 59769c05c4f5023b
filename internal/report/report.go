// Package report assembles KPI summaries, grouped survival tables and
// start counts, and renders them as text, JSON or YAML.
package report

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retention-cli/internal/churn"
	"github.com/sells-group/retention-cli/internal/model"
	"github.com/sells-group/retention-cli/internal/survival"
)

// Report is the full result of one analysis run.
type Report struct {
	RunID         string               `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Source        model.RunSource      `json:"source" yaml:"source"`
	NoData        bool                 `json:"no_data" yaml:"no_data"`
	Period        *Period              `json:"period,omitempty" yaml:"period,omitempty"`
	Filter        *churn.FilterSummary `json:"filter,omitempty" yaml:"filter,omitempty"`
	Summary       model.RunSummary     `json:"summary" yaml:"summary"`
	Curve         survival.Curve       `json:"curve" yaml:"curve"`
	CurveUnit     string               `json:"curve_unit" yaml:"curve_unit"`
	GroupCurves   []GroupCurve         `json:"group_curves,omitempty" yaml:"group_curves,omitempty"`
	StartsByMonth []PeriodCount        `json:"starts_by_month,omitempty" yaml:"starts_by_month,omitempty"`
	StartsByWeek  []PeriodCount        `json:"starts_by_week,omitempty" yaml:"starts_by_week,omitempty"`
	Improvement   *Improvement         `json:"improvement,omitempty" yaml:"improvement,omitempty"`
	Sessions      []model.Session      `json:"-" yaml:"-"`
	SheetSessions []model.SheetSession `json:"-" yaml:"-"`
}

// Curve units.
const (
	UnitMonths = "months"
	UnitDays   = "days"
)

// Period is the analysed creation-date window and the staleness cutoff.
type Period struct {
	Start  time.Time `json:"start" yaml:"start"`
	End    time.Time `json:"end" yaml:"end"`
	Cutoff time.Time `json:"cutoff" yaml:"cutoff"`
}

// GroupCurve is the truncated survival curve of one group.
type GroupCurve struct {
	Label string         `json:"label" yaml:"label"`
	Curve survival.Curve `json:"curve" yaml:"curve"`
}

// Sample is one (duration, event) observation with its plan-length key.
type Sample struct {
	Duration float64
	Event    bool
	Plan     string
}

// AllLabel labels the ungrouped row.
const AllLabel = "All"

// PlanLabel labels the row for a plan length.
func PlanLabel(months int) string {
	if months == 1 {
		return "1-month plan"
	}
	return fmt.Sprintf("%d-month plan", months)
}

// FitSamples fits a Kaplan-Meier curve. Negative durations count as 0.
func FitSamples(samples []Sample) (survival.Curve, error) {
	durations := make([]float64, len(samples))
	events := make([]bool, len(samples))
	for i, s := range samples {
		durations[i] = max(s.Duration, 0)
		events[i] = s.Event
	}
	return survival.Fit(durations, events)
}

// Groups builds the comparison table: an "All" row followed by one row per
// plan length. Groups with no samples are omitted.
func Groups(samples []Sample, plans []int, horizon float64) ([]model.GroupStat, []GroupCurve, error) {
	type group struct {
		label string
		rows  []Sample
	}
	groups := []group{{label: AllLabel, rows: samples}}
	for _, p := range plans {
		key := strconv.Itoa(p)
		var rows []Sample
		for _, s := range samples {
			if s.Plan == key {
				rows = append(rows, s)
			}
		}
		groups = append(groups, group{label: PlanLabel(p), rows: rows})
	}

	var stats []model.GroupStat
	var curves []GroupCurve
	for _, g := range groups {
		if len(g.rows) == 0 {
			continue
		}
		c, err := FitSamples(g.rows)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "report: fit group %s", g.label)
		}

		var events int
		for _, s := range g.rows {
			if s.Event {
				events++
			}
		}
		stats = append(stats, model.GroupStat{
			Label:      g.label,
			SampleSize: len(g.rows),
			ChurnRate:  float64(events) / float64(len(g.rows)) * 100,
			AUC:        c.AUC(horizon),
			Median:     c.Median().Ptr(),
		})
		curves = append(curves, GroupCurve{Label: g.label, Curve: c.Truncate(horizon)})
	}
	return stats, curves, nil
}

// PeriodCount is the number of starts in one period.
type PeriodCount struct {
	Period string `json:"period" yaml:"period"`
	Count  int    `json:"count" yaml:"count"`
}

// StartsByMonth counts dates per calendar month, including empty months
// between the first and last.
func StartsByMonth(dates []time.Time) []PeriodCount {
	if len(dates) == 0 {
		return nil
	}
	counts := make(map[string]int)
	first, last := dates[0], dates[0]
	for _, d := range dates {
		counts[d.Format("2006-01")]++
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	var out []PeriodCount
	m := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)
	for ; !m.After(end); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		out = append(out, PeriodCount{Period: key, Count: counts[key]})
	}
	return out
}

// StartsByWeek counts dates per ISO week, labelled "<year>-W<week>", for
// the weeks that have starts.
func StartsByWeek(dates []time.Time) []PeriodCount {
	type week struct{ year, week int }
	counts := make(map[week]int)
	for _, d := range dates {
		y, w := d.ISOWeek()
		counts[week{y, w}]++
	}

	keys := make([]week, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b week) int {
		return (a.year*100 + a.week) - (b.year*100 + b.week)
	})

	out := make([]PeriodCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, PeriodCount{Period: fmt.Sprintf("%d-W%d", k.year, k.week), Count: counts[k]})
	}
	return out
}

// Improvement compares the current AUC with a target.
type Improvement struct {
	Current  float64  `json:"current" yaml:"current"`
	Improved float64  `json:"improved" yaml:"improved"`
	Delta    float64  `json:"delta" yaml:"delta"`
	Percent  *float64 `json:"percent" yaml:"percent"`
}

// CompareAUC computes the delta and relative change from current to
// improved. Percent is nil when current is 0.
func CompareAUC(current, improved float64) Improvement {
	imp := Improvement{Current: current, Improved: improved, Delta: improved - current}
	if current != 0 {
		p := imp.Delta / current * 100
		imp.Percent = &p
	}
	return imp
}
