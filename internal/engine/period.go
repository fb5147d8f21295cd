package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budget-ledger/internal/domain"
)

// flowLine is one amount that counts towards inflows or outflows.
type flowLine struct {
	amount   decimal.Decimal
	internal bool
}

// flowLines splits a transaction into the amounts checked against the pool.
// Split transactions are judged line by line; whatever the lines leave
// unallocated is an ordinary line.
func flowLines(tx domain.Transaction, pool Pool, idx *Index) []flowLine {
	if !tx.IsSplit() {
		return []flowLine{{amount: tx.Amount, internal: IsInternalTransfer(tx, pool, idx)}}
	}
	lines := make([]flowLine, 0, len(tx.SubTransactions)+1)
	allocated := decimal.Zero
	for _, sub := range tx.SubTransactions {
		lines = append(lines, flowLine{amount: sub.Amount, internal: IsInternalLine(tx, sub, pool, idx)})
		allocated = allocated.Add(sub.Amount)
	}
	if rest := tx.Amount.Sub(allocated); !domain.IsEffectivelyZero(rest) {
		lines = append(lines, flowLine{amount: rest})
	}
	return lines
}

// ComputePeriod aggregates the pool over the inclusive range [from, to].
// The closing balance is the opening balance plus every in-range transaction
// of the pool's accounts; inflows and outflows leave internal transfers out.
func ComputePeriod(pool Pool, idx *Index, from, to string) (domain.PoolPeriodSummary, error) {
	if err := validateRange(from, to); err != nil {
		return domain.PoolPeriodSummary{}, err
	}

	summary := domain.PoolPeriodSummary{
		From:           from,
		To:             to,
		OpeningBalance: decimal.Zero,
		Inflows:        decimal.Zero,
		Outflows:       decimal.Zero,
		ClosingBalance: decimal.Zero,
	}
	for _, accountID := range pool.IDs() {
		accumulate(&summary, idx.ByAccount(accountID), pool, idx, from, to)
	}
	return summary, nil
}

// ComputeAccountPeriods returns one summary per pool account. Internal
// transfers are judged against the whole pool, not the single account.
func ComputeAccountPeriods(pool Pool, idx *Index, accounts []domain.Account, from, to string) ([]domain.AccountPeriodSummary, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	var out []domain.AccountPeriodSummary
	for _, a := range accounts {
		if !pool.Contains(a.ID) {
			continue
		}
		s := domain.AccountPeriodSummary{
			AccountID:   a.ID,
			AccountName: a.Name,
			AccountType: a.Type,
			PoolPeriodSummary: domain.PoolPeriodSummary{
				From:           from,
				To:             to,
				OpeningBalance: decimal.Zero,
				Inflows:        decimal.Zero,
				Outflows:       decimal.Zero,
				ClosingBalance: decimal.Zero,
			},
		}
		accumulate(&s.PoolPeriodSummary, idx.ByAccount(a.ID), pool, idx, from, to)
		out = append(out, s)
	}
	return out, nil
}

func accumulate(s *domain.PoolPeriodSummary, txs []domain.Transaction, pool Pool, idx *Index, from, to string) {
	for _, tx := range txs {
		switch {
		case tx.Date < from:
			s.OpeningBalance = s.OpeningBalance.Add(tx.Amount)
			s.ClosingBalance = s.ClosingBalance.Add(tx.Amount)
			continue
		case tx.Date > to:
			continue
		}

		s.TransactionCount++
		for _, line := range flowLines(tx, pool, idx) {
			if line.internal || domain.IsEffectivelyZero(line.amount) {
				continue
			}
			if line.amount.IsPositive() {
				s.Inflows = s.Inflows.Add(line.amount)
			} else {
				s.Outflows = s.Outflows.Add(line.amount.Abs())
			}
		}
		s.ClosingBalance = s.ClosingBalance.Add(tx.Amount)
	}
}

func validateRange(from, to string) error {
	if _, err := domain.ParseDate(from); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if _, err := domain.ParseDate(to); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if to < from {
		return fmt.Errorf("%w: %s is before %s", domain.ErrInvalidDateRange, to, from)
	}
	return nil
}
