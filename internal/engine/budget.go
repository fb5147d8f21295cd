package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"budget-ledger/internal/domain"
)

// PriorAvailableFunc returns the available balance a category carries into
// the month being calculated.
type PriorAvailableFunc func(categoryID string) decimal.Decimal

// NoPriorMonth is the PriorAvailableFunc for a category's first month.
func NoPriorMonth(string) decimal.Decimal {
	return decimal.Zero
}

// MonthInput is everything CalculateMonth needs for one month. Transactions
// outside the month are ignored.
type MonthInput struct {
	Month            domain.Month
	Transactions     []domain.Transaction
	BudgetEntries    []domain.MonthlyBudgetEntry
	Categories       []domain.Category
	MasterCategories []domain.MasterCategory
	PriorAvailable   PriorAvailableFunc
}

// monthActivity is the activity of one month split into its buckets.
type monthActivity struct {
	byCategory map[string]decimal.Decimal
	income     decimal.Decimal
	unassigned domain.UnassignedActivity
}

// CalculateMonth computes budgeted, activity and available for every
// non-tombstoned category of the month and rolls them up into master
// category and grand totals. Chaining months together is up to the caller;
// see Calendar.
func CalculateMonth(in MonthInput) (domain.MonthSummary, error) {
	month, err := domain.ParseMonth(string(in.Month))
	if err != nil {
		return domain.MonthSummary{}, err
	}
	prior := in.PriorAvailable
	if prior == nil {
		prior = NoPriorMonth
	}

	known := make(map[string]bool, len(in.Categories))
	for _, c := range in.Categories {
		known[c.ID] = true
	}
	act := collectActivity(month, in.Transactions, known)
	budgeted := budgetedFor(month, in.BudgetEntries)

	summary := domain.MonthSummary{
		Month:      month,
		Categories: make(map[string]domain.CategoryMonthSummary, len(in.Categories)),
		Total:      domain.Totals{Budgeted: decimal.Zero, Activity: decimal.Zero, Available: decimal.Zero},
		Income:     act.income,
		Unassigned: act.unassigned,
	}

	masters := make(map[string]domain.MasterCategory, len(in.MasterCategories))
	for _, m := range in.MasterCategories {
		masters[m.ID] = m
	}

	rollups := make(map[string]*domain.MasterCategorySummary)
	var order []string
	for _, c := range in.Categories {
		if c.Deleted {
			continue
		}
		cs := categorySummary(c, budgeted[c.ID], act.byCategory[c.ID], prior(c.ID))

		master, knownMaster := masters[c.MasterCategoryID]
		if knownMaster && master.ExcludedFromRollup() {
			cs.Excluded = true
		}
		summary.Categories[c.ID] = cs
		if cs.Excluded {
			continue
		}

		r, ok := rollups[c.MasterCategoryID]
		if !ok {
			name := master.Name
			if !knownMaster {
				name = c.MasterCategoryName
			}
			r = &domain.MasterCategorySummary{
				MasterCategoryID: c.MasterCategoryID,
				Name:             name,
				Budgeted:         decimal.Zero,
				Activity:         decimal.Zero,
				Available:        decimal.Zero,
			}
			rollups[c.MasterCategoryID] = r
			order = append(order, c.MasterCategoryID)
		}
		r.Budgeted = r.Budgeted.Add(cs.Budgeted)
		r.Activity = r.Activity.Add(cs.Activity)
		r.Available = r.Available.Add(cs.Available)
		r.Categories = append(r.Categories, cs)
	}

	// Known master categories by sort order, dangling ones after them.
	sort.SliceStable(order, func(i, j int) bool {
		mi, iok := masters[order[i]]
		mj, jok := masters[order[j]]
		if iok != jok {
			return iok
		}
		if mi.SortOrder != mj.SortOrder {
			return mi.SortOrder < mj.SortOrder
		}
		return order[i] < order[j]
	})
	for _, id := range order {
		r := rollups[id]
		summary.MasterCategories = append(summary.MasterCategories, *r)
		summary.Total.Budgeted = summary.Total.Budgeted.Add(r.Budgeted)
		summary.Total.Activity = summary.Total.Activity.Add(r.Activity)
		summary.Total.Available = summary.Total.Available.Add(r.Available)
	}
	return summary, nil
}

// CalculateCategory computes one category directly, including tombstoned,
// hidden and system categories that CalculateMonth keeps out of rollups.
func CalculateCategory(in MonthInput, categoryID string) (domain.CategoryMonthSummary, error) {
	month, err := domain.ParseMonth(string(in.Month))
	if err != nil {
		return domain.CategoryMonthSummary{}, err
	}
	prior := in.PriorAvailable
	if prior == nil {
		prior = NoPriorMonth
	}

	c := domain.Category{ID: categoryID}
	for _, candidate := range in.Categories {
		if candidate.ID == categoryID {
			c = candidate
			break
		}
	}
	act := collectActivity(month, in.Transactions, map[string]bool{categoryID: true})
	budgeted := budgetedFor(month, in.BudgetEntries)
	cs := categorySummary(c, budgeted[categoryID], act.byCategory[categoryID], prior(categoryID))
	return cs, nil
}

func categorySummary(c domain.Category, budgeted, activity, prior decimal.Decimal) domain.CategoryMonthSummary {
	return domain.CategoryMonthSummary{
		CategoryID:       c.ID,
		Name:             c.Name,
		MasterCategoryID: c.MasterCategoryID,
		CarriedOver:      prior,
		Budgeted:         budgeted,
		Activity:         activity,
		Available:        prior.Add(budgeted).Add(activity),
		Excluded:         c.ExcludedFromRollup(),
	}
}

func budgetedFor(month domain.Month, entries []domain.MonthlyBudgetEntry) map[string]decimal.Decimal {
	budgeted := make(map[string]decimal.Decimal)
	for _, e := range entries {
		if e.Month != month {
			continue
		}
		budgeted[e.CategoryID] = budgeted[e.CategoryID].Add(e.Budgeted)
	}
	return budgeted
}

// collectActivity attributes every in-month amount to exactly one bucket.
// Split transactions contribute through their lines only.
func collectActivity(month domain.Month, txs []domain.Transaction, known map[string]bool) monthActivity {
	act := monthActivity{
		byCategory: make(map[string]decimal.Decimal),
		income:     decimal.Zero,
		unassigned: domain.UnassignedActivity{Activity: decimal.Zero},
	}

	attribute := func(txID, categoryID string, amount decimal.Decimal, transfer bool) {
		switch {
		case categoryID == "" && transfer:
			// Budget-neutral transfer between accounts.
		case domain.IsIncomeCategory(categoryID):
			act.income = act.income.Add(amount)
		case categoryID != "" && known[categoryID]:
			act.byCategory[categoryID] = act.byCategory[categoryID].Add(amount)
		default:
			act.unassigned.Activity = act.unassigned.Activity.Add(amount)
			act.unassigned.TransactionIDs = append(act.unassigned.TransactionIDs, txID)
		}
	}

	for _, tx := range txs {
		if tx.Deleted || !month.Contains(tx.Date) {
			continue
		}
		if !tx.IsSplit() {
			attribute(tx.ID, tx.CategoryID, tx.Amount, tx.TransferTarget() != "")
			continue
		}
		allocated := decimal.Zero
		for _, sub := range tx.SubTransactions {
			attribute(tx.ID, sub.CategoryID, sub.Amount, sub.TransferTargetID != "")
			allocated = allocated.Add(sub.Amount)
		}
		if rest := tx.Amount.Sub(allocated); !domain.IsEffectivelyZero(rest) {
			attribute(tx.ID, "", rest, false)
		}
	}
	return act
}
