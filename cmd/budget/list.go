package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"budget-ledger/internal/config"
	"budget-ledger/internal/gateway"
)

func listCmd() *cobra.Command {
	var paths []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available budgets",
		Long: `With the sqlite backend, list the budgets stored in the database given
by --source. Otherwise search for YNAB4 budgets in the given paths, or in
the usual Dropbox and Documents locations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			var budgets []gateway.BudgetInfo
			if cfg.Backend == config.BackendSQLite {
				store, err := gateway.NewSQLiteStore(cfg.Source, slog.Default())
				if err != nil {
					return err
				}
				defer store.Close()
				if budgets, err = store.ListBudgets(cmd.Context()); err != nil {
					return fmt.Errorf("list failed: %w", err)
				}
			} else {
				if len(paths) == 0 {
					paths = gateway.DefaultSearchPaths()
				}
				for i := range paths {
					paths[i] = config.ExpandPath(paths[i])
				}
				budgets = gateway.FindBudgets(paths...)
			}

			if cfg.Format == config.FormatTable {
				return renderBudgets(cmd.OutOrStdout(), budgets)
			}
			if budgets == nil {
				budgets = []gateway.BudgetInfo{}
			}
			return writeJSON(cmd.OutOrStdout(), budgets)
		},
	}
	cmd.Flags().StringSliceVar(&paths, "path", nil, "directory to search for YNAB4 budgets (repeatable)")
	return cmd
}
