package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budget-ledger/internal/config"
	"budget-ledger/internal/domain"
	"budget-ledger/internal/usecase"
)

func periodCmd() *cobra.Command {
	var (
		from, to   string
		perAccount bool
	)
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Show opening and closing balances and flows for an account pool",
		Long: `Compute the pool's opening balance, inflows, outflows and closing balance
over an inclusive date range. Transfers between accounts of the pool move
money inside it and are left out of inflows and outflows.`,
		Example: `  budget period --from 2024-01-01 --to 2024-03-31
  budget period --pool type:Checking,Savings --from 2024-01-01 --to 2024-12-31 --per-account`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.uc.PeriodReport(cmd.Context(), usecase.PeriodRequest{
				Source:     a.source,
				Pool:       a.pool,
				From:       from,
				To:         to,
				PerAccount: perAccount,
			})
			if err != nil {
				return fmt.Errorf("period report failed: %w", err)
			}
			if a.cfg.Format == config.FormatTable {
				return renderPeriod(cmd.OutOrStdout(), report)
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day of the range (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&perAccount, "per-account", false, "break the pool down per account")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func monthCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Show the category budget for one or more months",
		Long: `Show budgeted, activity and available amounts per category, rolled up
per master category, with balances carried over from the previous month.
Without a month or range every month with budget data is shown.`,
		Example: `  budget month 2024-03
  budget month --from 2024-01 --to 2024-06 --carryover reset-negative`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := usecase.BudgetRequest{}
			if len(args) == 1 {
				from, to = args[0], args[0]
			}
			var err error
			if from != "" {
				if req.From, err = domain.ParseMonth(from); err != nil {
					return err
				}
			}
			if to != "" {
				if req.To, err = domain.ParseMonth(to); err != nil {
					return err
				}
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			req.Source, req.Pool = a.source, a.pool

			report, err := a.uc.BudgetReport(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("budget report failed: %w", err)
			}
			if a.cfg.Format == config.FormatTable {
				return renderBudget(cmd.OutOrStdout(), report)
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first month (YYYY-MM)")
	cmd.Flags().StringVar(&to, "to", "", "last month (YYYY-MM)")
	return cmd
}

func flowsCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Total cash flows by kind",
		Long: `Classify every transaction of the pool in the range as income, expense,
credit card payment, transfer to or from savings, interest or other, and
report the total, count and average of each kind.`,
		Example: `  budget flows --from 2024-01-01 --to 2024-12-31 --format table`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.uc.FlowReport(cmd.Context(), usecase.FlowRequest{
				Source: a.source,
				Pool:   a.pool,
				From:   from,
				To:     to,
			})
			if err != nil {
				return fmt.Errorf("flow report failed: %w", err)
			}
			if a.cfg.Format == config.FormatTable {
				return renderFlows(cmd.OutOrStdout(), report)
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day of the range (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
