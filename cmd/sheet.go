package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retention-cli/internal/analysis"
)

var (
	sheetOut     outputFlags
	sheetTarget  float64
	sheetRefresh bool
)

var sheetCmd = &cobra.Command{
	Use:         "sheet <worksheet>",
	Short:       "Analyse one worksheet of the configured spreadsheet",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"mode": "sheet"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if sheetRefresh {
			if err := env.Loader.Invalidate(ctx, args[0]); err != nil {
				return eris.Wrap(err, "sheet: refresh")
			}
		}

		rep, err := env.Analyzer.Sheet(ctx, args[0], analysis.SheetOptions{TargetAUC: sheetTarget})
		if err != nil {
			return eris.Wrap(err, "sheet")
		}
		return writeOutputs(os.Stdout, rep, sheetOut)
	},
}

func init() {
	sheetOut.register(sheetCmd)
	sheetCmd.Flags().Float64Var(&sheetTarget, "target-auc", 0, "target AUC to compare against")
	sheetCmd.Flags().BoolVar(&sheetRefresh, "refresh", false, "drop the cached worksheet before fetching")
	rootCmd.AddCommand(sheetCmd)
}
