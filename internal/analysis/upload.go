package analysis

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retention-cli/internal/churn"
	"github.com/sells-group/retention-cli/internal/frame"
	"github.com/sells-group/retention-cli/internal/ingest"
	"github.com/sells-group/retention-cli/internal/model"
	"github.com/sells-group/retention-cli/internal/report"
)

// UploadOptions narrows an upload analysis. Nil dates fall back to the
// observed creation range and the derived cutoff.
type UploadOptions struct {
	Start     *time.Time
	End       *time.Time
	Cutoff    *time.Time
	TargetAUC float64
}

// Upload analyses an uploaded session table named name.
func (a *Analyzer) Upload(ctx context.Context, f *frame.Frame, name string, opts UploadOptions) (*report.Report, error) {
	source := model.RunSource{Kind: model.SourceUpload, Name: name}
	return a.record(ctx, source, func(ctx context.Context) (*report.Report, error) {
		return a.upload(ctx, f, opts)
	})
}

func (a *Analyzer) upload(ctx context.Context, f *frame.Frame, opts UploadOptions) (*report.Report, error) {
	p := a.params
	recs, err := ingest.UploadRecords(f, a.states)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return emptyReport(p.HorizonMonths, report.UnitMonths), nil
	}

	cutoff, ok := CutoffFor(recs, opts.Cutoff, p.CutoffWindowDays)
	if !ok {
		zap.L().Warn("analysis: no creation dates, nothing to analyse")
		return emptyReport(p.HorizonMonths, report.UnitMonths), nil
	}
	first, last, _ := churn.CreatedRange(recs)
	start, end := first, last
	if opts.Start != nil {
		start = *opts.Start
	}
	if opts.End != nil {
		end = *opts.End
	}
	if end.Before(start) {
		return nil, eris.Errorf("analysis: end %s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	kept, filter := churn.FilterPeriod(recs, start, end)
	zap.L().Info("analysis: period filter",
		zap.Int("kept", filter.Kept),
		zap.Int("original", filter.Original),
		zap.Float64("percent", filter.Percent),
		zap.Int("duplicate_lesson_ids", filter.DuplicateIDs),
	)

	rep := emptyReport(p.HorizonMonths, report.UnitMonths)
	rep.Period = &report.Period{Start: start, End: end, Cutoff: cutoff}
	rep.Filter = &filter
	if len(kept) == 0 {
		return rep, nil
	}

	sessions, err := churn.DeriveAll(ctx, kept, cutoff, p)
	if err != nil {
		return nil, err
	}
	rep.NoData = false
	rep.Sessions = sessions

	samples := make([]report.Sample, len(sessions))
	starts := make([]time.Time, 0, len(sessions))
	for i, s := range sessions {
		samples[i] = report.Sample{Duration: s.CorrectedDoneMonth, Event: s.Churned}
		if s.PlanMonths != nil {
			samples[i].Plan = strconv.Itoa(*s.PlanMonths)
		}
		if s.CreatedAt != nil {
			starts = append(starts, *s.CreatedAt)
		}
	}

	curve, err := report.FitSamples(samples)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: fit upload curve")
	}
	groups, groupCurves, err := report.Groups(samples, p.PlanGroups, p.HorizonMonths)
	if err != nil {
		return nil, err
	}

	cs := churn.Summarize(sessions)
	rep.Summary = model.RunSummary{
		Total:             cs.Total,
		Churned:           cs.Churned,
		Active:            cs.Active,
		Corrected:         cs.Corrected,
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

// CutoffFor returns override when set, otherwise the latest creation date
// minus the window.
func CutoffFor(recs []model.SessionRecord, override *time.Time, windowDays int) (time.Time, bool) {
	if override != nil {
		return *override, true
	}
	return churn.CutoffDate(recs, windowDays)
}
