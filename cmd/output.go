package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retention-cli/internal/chart"
	"github.com/sells-group/retention-cli/internal/export"
	"github.com/sells-group/retention-cli/internal/report"
)

// outputFlags are the report destinations shared by analyze and sheet.
type outputFlags struct {
	Format    string
	ChartPath string
	ChartKind string
	CSVPath   string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Format, "format", report.FormatText, "report format (text, json, yaml)")
	cmd.Flags().StringVar(&o.ChartPath, "chart", "", "write a PNG chart to this path")
	cmd.Flags().StringVar(&o.ChartKind, "chart-kind", chart.KindSurvival, "chart kind (survival, groups, starts, weekly)")
	cmd.Flags().StringVar(&o.CSVPath, "csv", "", "write per-session results as CSV to this path")
}

// writeOutputs renders rep to out and writes the optional chart and CSV
// files.
func writeOutputs(out io.Writer, rep *report.Report, o outputFlags) error {
	if err := report.Render(out, rep, o.Format); err != nil {
		return err
	}

	if o.ChartPath != "" {
		if rep.NoData {
			zap.L().Warn("no data, chart skipped", zap.String("path", o.ChartPath))
		} else if err := writeFile(o.ChartPath, func(w io.Writer) error {
			return chart.Report(w, rep, o.ChartKind, cfg.Chart.Options())
		}); err != nil {
			return err
		}
	}

	if o.CSVPath != "" {
		if err := writeFile(o.CSVPath, func(w io.Writer) error {
			if rep.SheetSessions != nil {
				return export.SheetSessionsCSV(w, rep.SheetSessions)
			}
			return export.SessionsCSV(w, rep.Sessions)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", path)
	}
	zap.L().Info("wrote file", zap.String("path", path))
	return nil
}
