package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the worksheet cache",
}

var cacheInvalidateCmd = &cobra.Command{
	Use:         "invalidate <worksheet>",
	Short:       "Drop one cached worksheet",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"mode": "sheet"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Loader.Invalidate(ctx, args[0]); err != nil {
			return eris.Wrap(err, "cache invalidate")
		}
		fmt.Fprintf(os.Stderr, "Invalidated %q.\n", args[0])
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:         "prune",
	Short:       "Delete expired worksheet entries from the store cache",
	Annotations: map[string]string{"mode": "cache"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st == nil {
			return eris.New("cache prune needs a store driver")
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.DeleteExpiredSheets(ctx)
		if err != nil {
			return eris.Wrap(err, "cache prune")
		}
		fmt.Fprintf(os.Stderr, "Pruned %d expired worksheet(s).\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
