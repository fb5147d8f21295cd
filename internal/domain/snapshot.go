package domain

import (
	"errors"
	"sort"
)

// Snapshot is an immutable view of one budget as handed over by a repository.
// All derived figures are recomputed from it on demand.
type Snapshot struct {
	Version          string               `json:"version"`
	Name             string               `json:"name,omitempty"`
	Locale           string               `json:"locale,omitempty"` // BCP 47 tag, e.g. "en-US"
	Accounts         []Account            `json:"accounts"`
	Payees           []Payee              `json:"payees"`
	MasterCategories []MasterCategory     `json:"master_categories"`
	Categories       []Category           `json:"categories"`
	Transactions     []Transaction        `json:"transactions"`
	BudgetEntries    []MonthlyBudgetEntry `json:"budget_entries"`
}

// Validate fails fast on records that would otherwise produce wrong aggregates:
// missing ids and dates that do not compare correctly as strings. Dangling
// references between records are not errors.
func (s *Snapshot) Validate() error {
	for i, a := range s.Accounts {
		if a.ID == "" {
			return malformed("account", i, "", "id")
		}
	}
	for i, p := range s.Payees {
		if p.ID == "" {
			return malformed("payee", i, "", "id")
		}
	}
	for i, m := range s.MasterCategories {
		if m.ID == "" {
			return malformed("master category", i, "", "id")
		}
	}
	for i, c := range s.Categories {
		if c.ID == "" {
			return malformed("category", i, "", "id")
		}
	}
	for i, tx := range s.Transactions {
		if tx.ID == "" {
			return malformed("transaction", i, "", "id")
		}
		if tx.AccountID == "" {
			return malformed("transaction", i, tx.ID, "account_id")
		}
		if _, err := ParseDate(tx.Date); err != nil {
			return &RecordError{Err: err, Kind: "transaction", Index: i, ID: tx.ID, Field: "date"}
		}
	}
	for i, e := range s.BudgetEntries {
		if e.CategoryID == "" {
			return malformed("budget entry", i, "", "category_id")
		}
		if _, err := ParseMonth(string(e.Month)); err != nil {
			return &RecordError{Err: err, Kind: "budget entry", Index: i, ID: e.CategoryID, Field: "month"}
		}
	}
	return nil
}

// IsRecordError reports whether err came from snapshot validation.
func IsRecordError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}

// MonthRange returns the first and last month that carry any transaction or
// budget entry. ok is false for an empty snapshot.
func (s *Snapshot) MonthRange() (first, last Month, ok bool) {
	var months []Month
	for _, tx := range s.Transactions {
		if !tx.Deleted {
			months = append(months, MonthOf(tx.Date))
		}
	}
	for _, e := range s.BudgetEntries {
		months = append(months, e.Month)
	}
	if len(months) == 0 {
		return "", "", false
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })
	return months[0], months[len(months)-1], true
}
