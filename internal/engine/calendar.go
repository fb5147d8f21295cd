package engine

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"budget-ledger/internal/domain"
)

// CarryoverMode decides what part of last month's available balance enters a month.
type CarryoverMode int

const (
	// CarryAlways carries every balance forward, overspending included.
	CarryAlways CarryoverMode = iota
	// ResetNegative drops overspending at every month boundary.
	ResetNegative
	// ResetNegativeAtFiscalYear drops overspending only when a fiscal year starts.
	ResetNegativeAtFiscalYear
	// PerCategoryHandling follows each category's overspending handling:
	// "Confined" carries the deficit, anything else drops it.
	PerCategoryHandling
)

var carryoverNames = map[CarryoverMode]string{
	CarryAlways:               "carry",
	ResetNegative:             "reset-negative",
	ResetNegativeAtFiscalYear: "reset-negative-fiscal-year",
	PerCategoryHandling:       "per-category",
}

func (m CarryoverMode) String() string {
	if name, ok := carryoverNames[m]; ok {
		return name
	}
	return fmt.Sprintf("CarryoverMode(%d)", int(m))
}

// ParseCarryoverMode accepts the names returned by CarryoverMode.String.
func ParseCarryoverMode(s string) (CarryoverMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CarryAlways, nil
	}
	for mode, name := range carryoverNames {
		if name == s {
			return mode, nil
		}
	}
	return CarryAlways, fmt.Errorf("unknown carryover mode %q", s)
}

// CarryoverPolicy is the configured carry-over rule.
type CarryoverPolicy struct {
	Mode                 CarryoverMode
	FiscalYearStartMonth int // 1-12, defaults to January
}

// Carry returns how much of prev, the available balance at the end of the
// previous month, enters month m. handling is the category's overspending
// handling in force during the previous month.
func (p CarryoverPolicy) Carry(prev decimal.Decimal, m domain.Month, handling string) decimal.Decimal {
	if !prev.IsNegative() {
		return prev
	}
	switch p.Mode {
	case ResetNegative:
		return decimal.Zero
	case ResetNegativeAtFiscalYear:
		start := p.FiscalYearStartMonth
		if start < 1 || start > 12 {
			start = 1
		}
		if m.MonthNumber() == start {
			return decimal.Zero
		}
	case PerCategoryHandling:
		if handling != domain.OverspendingConfined {
			return decimal.Zero
		}
	}
	return prev
}

// CalendarInput is the snapshot data a Calendar chains months over.
type CalendarInput struct {
	Index            *Index
	Pool             Pool // accounts whose transactions count as budget activity
	BudgetEntries    []domain.MonthlyBudgetEntry
	Categories       []domain.Category
	MasterCategories []domain.MasterCategory
}

// Calendar memoizes month summaries per month so that a multi-month grid
// costs one CalculateMonth call per month. It must be dropped or invalidated
// when the underlying snapshot changes.
type Calendar struct {
	mu       sync.Mutex
	in       CalendarInput
	policy   CarryoverPolicy
	first    domain.Month
	hasData  bool
	entries  map[domain.Month][]domain.MonthlyBudgetEntry
	handling map[string][]handlingChange // per category, by month
	months   map[domain.Month]domain.MonthSummary
	computed int
}

// NewCalendar prepares a calendar over the snapshot data.
func NewCalendar(in CalendarInput, policy CarryoverPolicy) *Calendar {
	c := &Calendar{
		in:       in,
		policy:   policy,
		entries:  make(map[domain.Month][]domain.MonthlyBudgetEntry),
		handling: make(map[string][]handlingChange),
		months:   make(map[domain.Month]domain.MonthSummary),
	}
	for _, e := range in.BudgetEntries {
		c.entries[e.Month] = append(c.entries[e.Month], e)
		if e.OverspendingHandling != "" {
			c.handling[e.CategoryID] = append(c.handling[e.CategoryID], handlingChange{month: e.Month, handling: e.OverspendingHandling})
		}
		c.observe(e.Month)
	}
	for _, changes := range c.handling {
		slices.SortStableFunc(changes, func(a, b handlingChange) int {
			return strings.Compare(string(a.month), string(b.month))
		})
	}
	for _, tx := range in.Index.Transactions() {
		if in.Pool.Contains(tx.AccountID) {
			c.observe(domain.MonthOf(tx.Date))
		}
	}
	return c
}

// handlingChange records the overspending handling a category switches to in month.
type handlingChange struct {
	month    domain.Month
	handling string
}

// handlingAt returns the handling in force for categoryID during m: the one
// set by the latest entry at or before m.
func (c *Calendar) handlingAt(categoryID string, m domain.Month) string {
	changes := c.handling[categoryID]
	for i := len(changes) - 1; i >= 0; i-- {
		if changes[i].month <= m {
			return changes[i].handling
		}
	}
	return ""
}

func (c *Calendar) observe(m domain.Month) {
	if !c.hasData || m < c.first {
		c.first = m
		c.hasData = true
	}
}

// First returns the earliest month with budget data.
func (c *Calendar) First() (domain.Month, bool) {
	return c.first, c.hasData
}

// Policy returns the carry-over policy in use.
func (c *Calendar) Policy() CarryoverPolicy {
	return c.policy
}

// Month returns the summary for m, computing any missing months between the
// first month with data and m exactly once.
func (c *Calendar) Month(m domain.Month) (domain.MonthSummary, error) {
	if _, err := domain.ParseMonth(string(m)); err != nil {
		return domain.MonthSummary{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.months[m]; ok {
		return s, nil
	}
	if !c.hasData || m <= c.first {
		return c.compute(m, NoPriorMonth)
	}

	// Walk back to the latest memoized month, then forward to m.
	start := m
	for start > c.first {
		if _, ok := c.months[start.Prev()]; ok {
			break
		}
		start = start.Prev()
	}
	var (
		s   domain.MonthSummary
		err error
	)
	for cur := start; cur <= m; cur = cur.Next() {
		prior := NoPriorMonth
		if cur > c.first {
			prior = c.priorFrom(c.months[cur.Prev()], cur)
		}
		if s, err = c.compute(cur, prior); err != nil {
			return domain.MonthSummary{}, err
		}
	}
	return s, nil
}

// Range returns the summaries from..to inclusive.
func (c *Calendar) Range(from, to domain.Month) ([]domain.MonthSummary, error) {
	if _, err := domain.ParseMonth(string(from)); err != nil {
		return nil, err
	}
	if _, err := domain.ParseMonth(string(to)); err != nil {
		return nil, err
	}
	if to < from {
		return nil, fmt.Errorf("%w: %s is before %s", domain.ErrInvalidDateRange, to, from)
	}
	out := make([]domain.MonthSummary, 0)
	for _, m := range domain.MonthsBetween(from, to) {
		s, err := c.Month(m)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Invalidate drops every memoized month.
func (c *Calendar) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.months = make(map[domain.Month]domain.MonthSummary)
}

// Computations reports how many months have been calculated so far.
func (c *Calendar) Computations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.computed
}

func (c *Calendar) priorFrom(prev domain.MonthSummary, m domain.Month) PriorAvailableFunc {
	return func(categoryID string) decimal.Decimal {
		cs, ok := prev.Categories[categoryID]
		if !ok {
			return decimal.Zero
		}
		return c.policy.Carry(cs.Available, m, c.handlingAt(categoryID, prev.Month))
	}
}

// compute must be called with c.mu held.
func (c *Calendar) compute(m domain.Month, prior PriorAvailableFunc) (domain.MonthSummary, error) {
	var txs []domain.Transaction
	for _, tx := range c.in.Index.InMonth(m) {
		if c.in.Pool.Contains(tx.AccountID) {
			txs = append(txs, tx)
		}
	}
	s, err := CalculateMonth(MonthInput{
		Month:            m,
		Transactions:     txs,
		BudgetEntries:    c.entries[m],
		Categories:       c.in.Categories,
		MasterCategories: c.in.MasterCategories,
		PriorAvailable:   prior,
	})
	if err != nil {
		return domain.MonthSummary{}, err
	}
	c.computed++
	c.months[m] = s
	return s, nil
}
