package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retention-cli/internal/analysis"
	"github.com/sells-group/retention-cli/internal/frame"
	"github.com/sells-group/retention-cli/internal/ingest"
)

var (
	analyzeOut       outputFlags
	analyzeStart     string
	analyzeEnd       string
	analyzeCutoff    string
	analyzeTarget    float64
	analyzeSheetName string
	analyzeCharset   string
)

var analyzeCmd = &cobra.Command{
	Use:         "analyze <location>",
	Short:       "Analyse an uploaded session export",
	Long:        "Reads a CSV or XLSX session export from a local path, http(s) or ftp URL, derives churn and prints survival KPIs.",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"mode": "analyze"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts, err := uploadOptions(analyzeStart, analyzeEnd, analyzeCutoff, analyzeTarget)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := ingest.ReadUpload(ctx, newRouter(), args[0], readOptions(analyzeSheetName, analyzeCharset))
		if err != nil {
			return err
		}

		rep, err := env.Analyzer.Upload(ctx, f, args[0], opts)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		return writeOutputs(os.Stdout, rep, analyzeOut)
	},
}

// uploadOptions parses the period flags. Empty values are left unset.
func uploadOptions(start, end, cutoff string, target float64) (analysis.UploadOptions, error) {
	opts := analysis.UploadOptions{TargetAUC: target}
	for _, p := range []struct {
		name string
		raw  string
		dst  **time.Time
	}{
		{"start", start, &opts.Start},
		{"end", end, &opts.End},
		{"cutoff", cutoff, &opts.Cutoff},
	} {
		if p.raw == "" {
			continue
		}
		d := frame.ParseDate(p.raw)
		if d == nil {
			return opts, eris.Errorf("invalid --%s date %q", p.name, p.raw)
		}
		*p.dst = d
	}
	return opts, nil
}

func readOptions(sheet, charset string) ingest.ReadOptions {
	if charset == "" {
		charset = cfg.Fetch.Charset
	}
	return ingest.ReadOptions{Charset: charset, Sheet: sheet}
}

func init() {
	analyzeOut.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeStart, "start", "", "first creation date to include (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&analyzeEnd, "end", "", "last creation date to include (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&analyzeCutoff, "cutoff", "", "staleness cutoff date (default: latest creation date minus the window)")
	analyzeCmd.Flags().Float64Var(&analyzeTarget, "target-auc", 0, "target AUC to compare against")
	analyzeCmd.Flags().StringVar(&analyzeSheetName, "sheet", "", "XLSX sheet name (default: first sheet)")
	analyzeCmd.Flags().StringVar(&analyzeCharset, "charset", "", "CSV charset (default: detect)")
	rootCmd.AddCommand(analyzeCmd)
}
