package main

import (
	"fmt"
	"log/slog"

	"budget-ledger/internal/config"
	"budget-ledger/internal/engine"
	"budget-ledger/internal/gateway"
	"budget-ledger/internal/usecase"
)

// app holds the wiring shared by the report commands.
type app struct {
	cfg    *config.Config
	pool   engine.Selector
	source string // what the repository is asked to load
	uc     *usecase.BudgetUseCase
	close  func() error
}

// newApp resolves the configuration and wires repository, engine policy and
// use case together.
func newApp() (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	pool, err := engine.ParseSelector(cfg.Pool)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.CarryoverPolicy()
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	repo, source, closer, err := openRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	uc := usecase.NewBudgetUseCase(repo, usecase.Options{
		Carryover:        policy,
		CacheSize:        cfg.Cache.Size,
		CacheTTL:         cfg.Cache.TTL,
		Locale:           cfg.Locale,
		InterestKeywords: cfg.InterestKeywords,
		Logger:           logger,
	})
	return &app{cfg: cfg, pool: pool, source: source, uc: uc, close: closer}, nil
}

func (a *app) Close() {
	if a.close == nil {
		return
	}
	if err := a.close(); err != nil {
		slog.Error("failed to close repository", "error", err)
	}
}

// openRepository picks the snapshot repository for the configured backend.
// For SQLite the source is the database and the budget name is loaded from it.
func openRepository(cfg *config.Config, logger *slog.Logger) (usecase.SnapshotRepository, string, func() error, error) {
	switch cfg.Backend {
	case config.BackendCSV:
		return gateway.NewCSVSnapshotRepository(logger), cfg.Source, nil, nil
	case config.BackendYNAB4:
		return gateway.NewYNAB4SnapshotRepository(logger), cfg.Source, nil, nil
	case config.BackendSQLite:
		if cfg.Budget == "" {
			return nil, "", nil, fmt.Errorf("%w: the sqlite backend needs --budget", config.ErrInvalidConfig)
		}
		store, err := gateway.NewSQLiteStore(cfg.Source, logger)
		if err != nil {
			return nil, "", nil, err
		}
		return store, cfg.Budget, store.Close, nil
	}
	return nil, "", nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidConfig, cfg.Backend)
}
