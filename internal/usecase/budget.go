package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"budget-ledger/internal/cache"
	"budget-ledger/internal/domain"
	"budget-ledger/internal/engine"
)

// Options tune a BudgetUseCase. Zero values fall back to sensible defaults.
type Options struct {
	Carryover        engine.CarryoverPolicy
	CacheSize        int
	CacheTTL         time.Duration
	Locale           string // used when the snapshot has none
	InterestKeywords []string
	Logger           *slog.Logger
}

// loadedSnapshot is a validated snapshot with its derived structures.
type loadedSnapshot struct {
	snapshot *domain.Snapshot
	index    *engine.Index

	mu        sync.Mutex
	calendars map[string]*engine.Calendar // by pool selector
}

func (l *loadedSnapshot) calendar(sel engine.Selector, policy engine.CarryoverPolicy) *engine.Calendar {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := sel.String()
	if cal, ok := l.calendars[key]; ok {
		return cal
	}
	cal := engine.NewCalendar(engine.CalendarInput{
		Index:            l.index,
		Pool:             engine.ClassifyPool(l.snapshot.Accounts, sel),
		BudgetEntries:    l.snapshot.BudgetEntries,
		Categories:       l.snapshot.Categories,
		MasterCategories: l.snapshot.MasterCategories,
	}, policy)
	l.calendars[key] = cal
	return cal
}

// BudgetUseCase orchestrates loading snapshots and producing reports.
type BudgetUseCase struct {
	repo      SnapshotRepository
	opts      Options
	logger    *slog.Logger
	snapshots *cache.LRU[*loadedSnapshot]
}

// NewBudgetUseCase creates a new instance of the usecase.
func NewBudgetUseCase(repo SnapshotRepository, opts Options) *BudgetUseCase {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := opts.CacheSize
	if size < 1 {
		size = 8
	}
	return &BudgetUseCase{
		repo:      repo,
		opts:      opts,
		logger:    logger.With("component", "budget"),
		snapshots: cache.NewLRU[*loadedSnapshot](size, opts.CacheTTL),
	}
}

// PeriodRequest asks for pool balances over an inclusive date range.
type PeriodRequest struct {
	Source     string
	Pool       engine.Selector
	From       string
	To         string
	PerAccount bool
}

// BudgetRequest asks for a month-by-month budget grid. Empty months default
// to the first and last month with data.
type BudgetRequest struct {
	Source string
	Pool   engine.Selector
	From   domain.Month
	To     domain.Month
}

// FlowRequest asks for cash-flow totals by flow kind.
type FlowRequest struct {
	Source string
	Pool   engine.Selector
	From   string
	To     string
}

// PeriodReport computes opening and closing balances and flows for a pool.
func (uc *BudgetUseCase) PeriodReport(ctx context.Context, req PeriodRequest) (*domain.PeriodReport, error) {
	l, err := uc.load(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	pool := engine.ClassifyPool(l.snapshot.Accounts, req.Pool)

	summary, err := engine.ComputePeriod(pool, l.index, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("could not compute period: %w", err)
	}

	report := &domain.PeriodReport{
		SnapshotVersion: l.snapshot.Version,
		Pool:            req.Pool.String(),
		Summary:         summary,
		Accounts:        make([]domain.AccountPeriodSummary, 0),
	}
	if req.PerAccount {
		report.Accounts, err = engine.ComputeAccountPeriods(pool, l.index, l.snapshot.Accounts, req.From, req.To)
		if err != nil {
			return nil, fmt.Errorf("could not compute account periods: %w", err)
		}
	}
	for _, tx := range l.index.UnpairedTransfers() {
		if pool.Contains(tx.AccountID) && tx.Date >= req.From && tx.Date <= req.To {
			report.UnpairedCount++
		}
	}
	if report.UnpairedCount > 0 {
		uc.logger.Warn("unpaired transfers in period", "source", req.Source, "count", report.UnpairedCount)
	}
	return report, nil
}

// BudgetReport computes the budget grid for a range of months.
func (uc *BudgetUseCase) BudgetReport(ctx context.Context, req BudgetRequest) (*domain.BudgetReport, error) {
	l, err := uc.load(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	cal := l.calendar(req.Pool, uc.opts.Carryover)

	from, to := req.From, req.To
	if from == "" || to == "" {
		first, last, ok := l.snapshot.MonthRange()
		if !ok {
			return nil, fmt.Errorf("snapshot %s holds no budget data", req.Source)
		}
		if from == "" {
			from = first
		}
		if to == "" {
			to = last
		}
	}

	before := cal.Computations()
	months, err := cal.Range(from, to)
	if err != nil {
		return nil, fmt.Errorf("could not compute budget months: %w", err)
	}
	uc.logger.Debug("budget grid computed",
		"source", req.Source,
		"from", from,
		"to", to,
		"months_computed", cal.Computations()-before,
	)

	return &domain.BudgetReport{
		SnapshotVersion: l.snapshot.Version,
		From:            from,
		To:              to,
		Carryover:       cal.Policy().Mode.String(),
		Months:          months,
	}, nil
}

// FlowReport classifies the pool's transactions and totals them per flow kind.
func (uc *BudgetUseCase) FlowReport(ctx context.Context, req FlowRequest) (*domain.FlowReport, error) {
	l, err := uc.load(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	pool := engine.ClassifyPool(l.snapshot.Accounts, req.Pool)

	locale := l.snapshot.Locale
	if locale == "" {
		locale = uc.opts.Locale
	}
	classifier := engine.NewFlowClassifier(
		l.snapshot.Accounts,
		l.snapshot.Categories,
		l.snapshot.Payees,
		engine.WithLocale(locale),
		engine.WithInterestKeywords(uc.opts.InterestKeywords...),
	)

	flows, net, err := engine.SummarizeFlows(pool, l.index, classifier, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("could not summarize flows: %w", err)
	}
	return &domain.FlowReport{
		SnapshotVersion: l.snapshot.Version,
		Pool:            req.Pool.String(),
		From:            req.From,
		To:              req.To,
		Flows:           flows,
		Net:             net,
	}, nil
}

// Import copies the snapshot at source into dst under name and returns it.
func (uc *BudgetUseCase) Import(ctx context.Context, source string, dst SnapshotWriter, name string) (*domain.Snapshot, error) {
	l, err := uc.load(ctx, source)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = l.snapshot.Name
	}
	if name == "" {
		return nil, fmt.Errorf("import of %s needs a budget name", source)
	}
	if err := dst.SaveSnapshot(ctx, name, l.snapshot); err != nil {
		return nil, fmt.Errorf("could not save snapshot %s: %w", name, err)
	}
	uc.logger.Info("snapshot imported",
		"source", source,
		"name", name,
		"version", l.snapshot.Version,
		"transactions", len(l.snapshot.Transactions),
	)
	return l.snapshot, nil
}

// Invalidate drops the cached snapshot for source, along with every
// memoized month computed from it.
func (uc *BudgetUseCase) Invalidate(source string) {
	uc.snapshots.Delete(source)
	uc.logger.Debug("snapshot invalidated", "source", source)
}

func (uc *BudgetUseCase) load(ctx context.Context, source string) (*loadedSnapshot, error) {
	if l, ok := uc.snapshots.Get(source); ok {
		return l, nil
	}

	start := time.Now()
	snapshot, err := uc.repo.LoadSnapshot(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("could not load snapshot %s: %w", source, err)
	}
	if err := snapshot.Validate(); err != nil {
		uc.logger.Error("snapshot rejected", "source", source, "error", err)
		return nil, fmt.Errorf("invalid snapshot %s: %w", source, err)
	}
	if snapshot.Version == "" {
		snapshot.Version = uuid.NewString()
	}

	l := &loadedSnapshot{
		snapshot:  snapshot,
		index:     engine.BuildIndex(snapshot.Transactions),
		calendars: make(map[string]*engine.Calendar),
	}
	uc.snapshots.Set(source, l)
	uc.logger.Info("snapshot loaded",
		"source", source,
		"version", snapshot.Version,
		"accounts", len(snapshot.Accounts),
		"transactions", l.index.Len(),
		"duration", time.Since(start),
	)
	return l, nil
}
