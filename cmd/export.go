package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retention-cli/internal/export"
	"github.com/sells-group/retention-cli/internal/ingest"
	"github.com/sells-group/retention-cli/internal/store"
)

var (
	exportStart     string
	exportEnd       string
	exportCutoff    string
	exportTable     string
	exportUpsert    bool
	exportSheetName string
	exportCharset   string
)

var exportCmd = &cobra.Command{
	Use:         "export <location>",
	Short:       "Analyse an upload and write per-session results to Postgres",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"mode": "export"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts, err := uploadOptions(exportStart, exportEnd, exportCutoff, 0)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		pg, ok := env.Store.(*store.PostgresStore)
		if !ok {
			return eris.New("export needs the postgres store driver")
		}

		f, err := ingest.ReadUpload(ctx, newRouter(), args[0], readOptions(exportSheetName, exportCharset))
		if err != nil {
			return err
		}
		rep, err := env.Analyzer.Upload(ctx, f, args[0], opts)
		if err != nil {
			return eris.Wrap(err, "export")
		}
		if rep.NoData {
			fmt.Fprintln(os.Stderr, "No sessions to export.")
			return nil
		}

		n, err := export.ToPostgres(ctx, pg.Pool(), rep.RunID, rep.Sessions, export.PostgresOptions{
			Table:  exportTable,
			Upsert: exportUpsert,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d session(s) for run %s.\n", n, truncateID(rep.RunID))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportStart, "start", "", "first creation date to include (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "last creation date to include (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportCutoff, "cutoff", "", "staleness cutoff date")
	exportCmd.Flags().StringVar(&exportTable, "table", export.DefaultTable, "destination table")
	exportCmd.Flags().BoolVar(&exportUpsert, "upsert", false, "upsert on (run_id, row_no) instead of COPY")
	exportCmd.Flags().StringVar(&exportSheetName, "sheet", "", "XLSX sheet name (default: first sheet)")
	exportCmd.Flags().StringVar(&exportCharset, "charset", "", "CSV charset (default: detect)")
	rootCmd.AddCommand(exportCmd)
}
