package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"budget-ledger/internal/config"
)

var (
	cfgFile string
	version = "dev"
	v       = config.NewViper()
	rootCmd = &cobra.Command{
		Use:   "budget",
		Short: "Budget ledger reports",
		Long: `budget reads a budget ledger (CSV export, YNAB4 budget or imported
SQLite copy) and reports pool balances, monthly category budgets with
carry-over, and cash flows by kind.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/budget/config.yaml)")
	flags.String("backend", config.BackendCSV, "snapshot backend (csv, ynab4, sqlite)")
	flags.String("source", ".", "budget source: CSV directory, YNAB4 budget or SQLite database")
	flags.String("budget", "", "budget name inside a SQLite database")
	flags.String("format", config.FormatJSON, "output format (json, table)")
	flags.String("pool", "on-budget", `account pool ("all", "on-budget", "type:Checking,Savings", "account:<id>")`)
	flags.String("carryover", "carry", "carry-over mode (carry, reset-negative, reset-negative-fiscal-year, per-category)")
	flags.String("locale", "", "locale for interest detection when the budget has none")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")

	_ = v.BindPFlag("backend", flags.Lookup("backend"))
	_ = v.BindPFlag("source", flags.Lookup("source"))
	_ = v.BindPFlag("budget", flags.Lookup("budget"))
	_ = v.BindPFlag("format", flags.Lookup("format"))
	_ = v.BindPFlag("pool", flags.Lookup("pool"))
	_ = v.BindPFlag("carryover.mode", flags.Lookup("carryover"))
	_ = v.BindPFlag("locale", flags.Lookup("locale"))
	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("logging.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(periodCmd())
	rootCmd.AddCommand(monthCmd())
	rootCmd.AddCommand(flowsCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	config.LoadDotEnv()
	if err := config.ReadFile(v, cfgFile, "~/.config/budget", "."); err != nil {
		return err
	}
	if err := setupLogging(v.GetString("logging.level"), v.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func setupLogging(level, format string) error {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slogLevel}
	switch format {
	case "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "budget %s\n", version)
		},
	}
}
