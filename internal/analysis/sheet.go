package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retention-cli/internal/churn"
	"github.com/sells-group/retention-cli/internal/ingest"
	"github.com/sells-group/retention-cli/internal/model"
	"github.com/sells-group/retention-cli/internal/report"
)

// daysPerMonth converts the day-based worksheet curve to months.
const daysPerMonth = 30.0

// SheetOptions tunes a worksheet analysis.
type SheetOptions struct {
	TargetAUC float64
}

// Sheet analyses one worksheet of the configured spreadsheet. An
// unreachable or empty worksheet yields a NoData report.
func (a *Analyzer) Sheet(ctx context.Context, worksheet string, opts SheetOptions) (*report.Report, error) {
	if a.sheets == nil {
		return nil, eris.New("analysis: no worksheet source configured")
	}
	source := model.RunSource{Kind: model.SourceSheet, Name: worksheet}
	return a.record(ctx, source, func(ctx context.Context) (*report.Report, error) {
		return a.sheet(ctx, worksheet, opts)
	})
}

func (a *Analyzer) sheet(ctx context.Context, worksheet string, opts SheetOptions) (*report.Report, error) {
	p := a.params
	recs, err := ingest.SheetRecords(a.sheets.Load(ctx, worksheet))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return emptyReport(p.HorizonMonths, report.UnitMonths), nil
	}

	sessions := churn.ProcessSheet(recs, p)

	overall := make([]report.Sample, len(sessions))
	grouped := make([]report.Sample, len(sessions))
	starts := make([]time.Time, 0, len(sessions))
	var churned int
	for i, s := range sessions {
		event := s.Flag.Churned()
		if event {
			churned++
		}
		overall[i] = report.Sample{Duration: float64(s.DurationDays), Event: event, Plan: s.PlanMonths}
		var months float64
		if s.RecoveredDoneMonth != nil {
			months = *s.RecoveredDoneMonth
		}
		grouped[i] = report.Sample{Duration: months, Event: event, Plan: s.PlanMonths}
		if s.PaymentDate != nil {
			starts = append(starts, *s.PaymentDate)
		}
	}

	days, err := report.FitSamples(overall)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: fit worksheet curve")
	}
	curve := days.Scale(1 / daysPerMonth)

	groups, groupCurves, err := report.Groups(grouped, p.PlanGroups, p.HorizonMonths)
	if err != nil {
		return nil, err
	}

	rep := emptyReport(p.HorizonMonths, report.UnitMonths)
	rep.NoData = false
	rep.SheetSessions = sessions
	rep.Summary = model.RunSummary{
		Total:             len(sessions),
		Churned:           churned,
		Active:            len(sessions) - churned,
		AUC:               curve.AUC(p.HorizonMonths),
		HorizonMonths:     p.HorizonMonths,
		SurvivalAtHorizon: curve.At(p.HorizonMonths),
		Groups:            groups,
	}
	rep.Curve = curve.Truncate(p.HorizonMonths)
	rep.GroupCurves = groupCurves
	rep.StartsByMonth = report.StartsByMonth(starts)
	rep.StartsByWeek = report.StartsByWeek(starts)
	rep.Improvement = improvement(rep.Summary.AUC, opts.TargetAUC)
	return rep, nil
}
