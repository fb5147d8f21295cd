package domain

import "github.com/shopspring/decimal"

// CategoryMonthSummary holds the budget triad for one category in one month.
type CategoryMonthSummary struct {
	CategoryID       string          `json:"category_id"`
	Name             string          `json:"name"`
	MasterCategoryID string          `json:"master_category_id"`
	CarriedOver      decimal.Decimal `json:"carried_over"`
	Budgeted         decimal.Decimal `json:"budgeted"`
	Activity         decimal.Decimal `json:"activity"`
	Available        decimal.Decimal `json:"available"`
	Excluded         bool            `json:"excluded,omitempty"` // left out of rollups
}

// MasterCategorySummary sums the categories of one master category for one month.
type MasterCategorySummary struct {
	MasterCategoryID string                 `json:"master_category_id"`
	Name             string                 `json:"name"`
	Budgeted         decimal.Decimal        `json:"budgeted"`
	Activity         decimal.Decimal        `json:"activity"`
	Available        decimal.Decimal        `json:"available"`
	Categories       []CategoryMonthSummary `json:"categories"`
}

// Totals is a budgeted/activity/available triple.
type Totals struct {
	Budgeted  decimal.Decimal `json:"budgeted"`
	Activity  decimal.Decimal `json:"activity"`
	Available decimal.Decimal `json:"available"`
}

// UnassignedActivity collects activity that could not be attributed to a known category.
type UnassignedActivity struct {
	Activity       decimal.Decimal `json:"activity"`
	TransactionIDs []string        `json:"transaction_ids"`
}

// MonthSummary is the full budget view of one month.
type MonthSummary struct {
	Month            Month                           `json:"month"`
	Categories       map[string]CategoryMonthSummary `json:"categories"`
	MasterCategories []MasterCategorySummary         `json:"master_categories"`
	Total            Totals                          `json:"total"`
	Income           decimal.Decimal                 `json:"income"`
	Unassigned       UnassignedActivity              `json:"unassigned"`
}

// PoolPeriodSummary aggregates a pool of accounts over a date range. Inflows and
// outflows exclude internal transfers; balances always include them.
type PoolPeriodSummary struct {
	From             string          `json:"from"`
	To               string          `json:"to"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	Inflows          decimal.Decimal `json:"inflows"`
	Outflows         decimal.Decimal `json:"outflows"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	TransactionCount int             `json:"transaction_count"`
}

// AccountPeriodSummary is a PoolPeriodSummary for a single account of a pool.
type AccountPeriodSummary struct {
	AccountID   string      `json:"account_id"`
	AccountName string      `json:"account_name"`
	AccountType AccountType `json:"account_type"`
	PoolPeriodSummary
}

// PeriodReport is the top-level structure for a pool balance report.
type PeriodReport struct {
	SnapshotVersion string                 `json:"snapshot_version"`
	Pool            string                 `json:"pool"`
	Summary         PoolPeriodSummary      `json:"summary"`
	Accounts        []AccountPeriodSummary `json:"accounts"`
	UnpairedCount   int                    `json:"unpaired_transfers"`
}

// BudgetReport is the top-level structure for a multi-month budget grid.
type BudgetReport struct {
	SnapshotVersion string         `json:"snapshot_version"`
	From            Month          `json:"from"`
	To              Month          `json:"to"`
	Carryover       string         `json:"carryover"`
	Months          []MonthSummary `json:"months"`
}

// FlowTotal aggregates the transactions of one flow kind.
type FlowTotal struct {
	Kind    string          `json:"kind"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
}

// FlowReport is the top-level structure for a cash-flow report.
type FlowReport struct {
	SnapshotVersion string          `json:"snapshot_version"`
	Pool            string          `json:"pool"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Flows           []FlowTotal     `json:"flows"`
	Net             decimal.Decimal `json:"net"`
}
