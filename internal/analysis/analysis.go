// Package analysis runs the upload and worksheet pipelines end to end and
// records each pass as a run.
package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retention-cli/internal/churn"
	"github.com/sells-group/retention-cli/internal/frame"
	"github.com/sells-group/retention-cli/internal/model"
	"github.com/sells-group/retention-cli/internal/report"
)

// Recorder persists run history. store.Store satisfies it.
type Recorder interface {
	CreateRun(ctx context.Context, source model.RunSource) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, errText string) error
}

// SheetSource loads a worksheet as a frame. A failed fetch yields an
// empty frame. ingest.SheetLoader satisfies it.
type SheetSource interface {
	Load(ctx context.Context, worksheet string) *frame.Frame
}

// Config wires an Analyzer. Recorder and Sheets are optional.
type Config struct {
	Params      churn.Params
	ExtraStates []model.TutoringState
	Recorder    Recorder
	Sheets      SheetSource
}

// Analyzer runs analyses with fixed parameters.
type Analyzer struct {
	params   churn.Params
	states   model.StateSet
	recorder Recorder
	sheets   SheetSource
}

// New validates the parameters and returns an Analyzer.
func New(cfg Config) (*Analyzer, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, eris.Wrap(err, "analysis: invalid params")
	}
	return &Analyzer{
		params:   cfg.Params,
		states:   model.NewStateSet(cfg.Params.TerminalStates, cfg.ExtraStates),
		recorder: cfg.Recorder,
		sheets:   cfg.Sheets,
	}, nil
}

// Params returns the analyzer's parameters.
func (a *Analyzer) Params() churn.Params { return a.params }

type runFunc func(ctx context.Context) (*report.Report, error)

// record wraps fn in a run. Recorder failures are logged and never fail
// the analysis itself.
func (a *Analyzer) record(ctx context.Context, source model.RunSource, fn runFunc) (*report.Report, error) {
	log := zap.L().With(zap.String("source_kind", string(source.Kind)), zap.String("source", source.Name))
	start := time.Now()

	var runID string
	if a.recorder != nil {
		run, err := a.recorder.CreateRun(ctx, source)
		if err != nil {
			log.Warn("analysis: create run failed", zap.Error(err))
		} else {
			runID = run.ID
			log = log.With(zap.String("run_id", runID))
		}
	}

	rep, err := fn(ctx)
	if err != nil {
		log.Error("analysis: run failed", zap.Error(err))
		if runID != "" {
			if ferr := a.recorder.FailRun(ctx, runID, err.Error()); ferr != nil {
				log.Warn("analysis: record failure failed", zap.Error(ferr))
			}
		}
		return nil, err
	}

	rep.RunID = runID
	rep.Source = source
	if runID != "" {
		if cerr := a.recorder.CompleteRun(ctx, runID, &rep.Summary); cerr != nil {
			log.Warn("analysis: complete run failed", zap.Error(cerr))
		}
	}

	log.Info("analysis: run complete",
		zap.Bool("no_data", rep.NoData),
		zap.Int("total", rep.Summary.Total),
		zap.Int("churned", rep.Summary.Churned),
		zap.Float64("auc", rep.Summary.AUC),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rep, nil
}

func emptyReport(horizon float64, unit string) *report.Report {
	return &report.Report{
		NoData:    true,
		CurveUnit: unit,
		Summary:   model.RunSummary{HorizonMonths: horizon},
	}
}

func improvement(current, target float64) *report.Improvement {
	if target <= 0 {
		return nil
	}
	imp := report.CompareAUC(current, target)
	return &imp
}
