package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel category ids written by YNAB4 for system bookkeeping.
const (
	CategoryImmediateIncome = "Category/__ImmediateIncome__"
	CategoryDeferredIncome  = "Category/__DeferredIncome__"
	CategorySplit           = "Category/__Split__"
)

// Overspending handling values stored on monthly budget entries.
const (
	OverspendingConfined      = "Confined"
	OverspendingAffectsBuffer = "AffectsBuffer"
)

// reservedPrefixes identify categories used for system bookkeeping.
var reservedPrefixes = []string{"__", "Category/__", "MasterCategory/__"}

// MasterCategory groups categories. It is never a target of spending or budgeting.
type MasterCategory struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	Deleted   bool   `json:"deleted,omitempty"`
	Hidden    bool   `json:"hidden,omitempty"`
}

// Category is a budget sub-category, the unit of budget allocation.
type Category struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	MasterCategoryID   string `json:"master_category_id"`
	MasterCategoryName string `json:"master_category_name,omitempty"`
	Deleted            bool   `json:"deleted,omitempty"`
	Hidden             bool   `json:"hidden,omitempty"`
}

// MonthlyBudgetEntry is the amount budgeted to one category in one month.
type MonthlyBudgetEntry struct {
	Month                Month           `json:"month"`
	CategoryID           string          `json:"category_id"`
	Budgeted             decimal.Decimal `json:"budgeted"`
	OverspendingHandling string          `json:"overspending_handling,omitempty"`
}

// IsReserved reports whether an id or name uses a system bookkeeping prefix.
func IsReserved(s string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// IsIncomeCategory reports whether the category id is one of the income sentinels.
func IsIncomeCategory(id string) bool {
	return id == CategoryImmediateIncome || id == CategoryDeferredIncome
}

// IsSplitCategory reports whether the category id marks a split parent.
func IsSplitCategory(id string) bool {
	return id == CategorySplit
}

// ExcludedFromRollup reports whether the category stays out of master and grand totals.
func (c Category) ExcludedFromRollup() bool {
	return c.Deleted || c.Hidden || IsReserved(c.ID) || IsReserved(c.Name)
}

// ExcludedFromRollup reports whether the master category stays out of the grand total.
func (m MasterCategory) ExcludedFromRollup() bool {
	return m.Deleted || m.Hidden || IsReserved(m.ID) || IsReserved(m.Name)
}
