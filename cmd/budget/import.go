package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"budget-ledger/internal/config"
	"budget-ledger/internal/gateway"
)

func importCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <database>",
		Short: "Copy a budget into a SQLite database",
		Long: `Load the budget from the configured backend and source and store it in
the SQLite database under a name. An existing budget with the same name is
replaced. Reports can then run against it with --backend sqlite.`,
		Example: `  budget import ~/.local/share/budget/budgets.db --backend ynab4 --source ~/Dropbox/YNAB/Household~4F1D.ynab4
  budget import budgets.db --source ./export --name household`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := gateway.NewSQLiteStore(config.ExpandPath(args[0]), slog.Default())
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Error("failed to close database", "error", closeErr)
				}
			}()

			snapshot, err := a.uc.Import(cmd.Context(), a.source, store, name)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			if name == "" {
				name = snapshot.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts and %d transactions into %q (version %s)\n",
				len(snapshot.Accounts), len(snapshot.Transactions), name, snapshot.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "budget name in the database (default: the budget's own name)")
	return cmd
}
