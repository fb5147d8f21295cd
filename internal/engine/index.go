// Package engine derives budget and cash-flow aggregates from an immutable
// budget snapshot. Everything here is pure: no I/O, no logging, no shared state.
package engine

import (
	"sort"

	"budget-ledger/internal/domain"
)

// Index holds lookup structures over a flat transaction list.
type Index struct {
	transactions []domain.Transaction // chronological, stable
	byAccount    map[string][]int
	byID         map[string]int
}

// BuildIndex indexes the given transactions. Tombstoned rows are dropped;
// same-date transactions keep their original insertion order.
func BuildIndex(transactions []domain.Transaction) *Index {
	live := make([]domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if !tx.Deleted {
			live = append(live, tx)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].Date < live[j].Date
	})

	idx := &Index{
		transactions: live,
		byAccount:    make(map[string][]int),
		byID:         make(map[string]int, len(live)),
	}
	for i, tx := range live {
		idx.byAccount[tx.AccountID] = append(idx.byAccount[tx.AccountID], i)
		if tx.ID != "" {
			idx.byID[tx.ID] = i
		}
	}
	return idx
}

// Months returns the first and last month holding any transaction.
func (idx *Index) Months() (first, last domain.Month, ok bool) {
	if len(idx.transactions) == 0 {
		return "", "", false
	}
	return domain.MonthOf(idx.transactions[0].Date), domain.MonthOf(idx.transactions[len(idx.transactions)-1].Date), true
}

// Len returns the number of indexed transactions.
func (idx *Index) Len() int {
	return len(idx.transactions)
}

// Transactions returns every indexed transaction in chronological order.
func (idx *Index) Transactions() []domain.Transaction {
	out := make([]domain.Transaction, len(idx.transactions))
	copy(out, idx.transactions)
	return out
}

// ByAccount returns the account's transactions in chronological order.
func (idx *Index) ByAccount(accountID string) []domain.Transaction {
	positions := idx.byAccount[accountID]
	out := make([]domain.Transaction, len(positions))
	for i, p := range positions {
		out[i] = idx.transactions[p]
	}
	return out
}

// InMonth returns the transactions dated within the month.
func (idx *Index) InMonth(m domain.Month) []domain.Transaction {
	from, to := m.FirstDay(), m.LastDay()
	lo := sort.Search(len(idx.transactions), func(i int) bool {
		return idx.transactions[i].Date >= from
	})
	var out []domain.Transaction
	for i := lo; i < len(idx.transactions) && idx.transactions[i].Date <= to; i++ {
		out = append(out, idx.transactions[i])
	}
	return out
}

// TransferTargetOf resolves the account on the other side of a transfer. The
// explicit field wins over the "Payee/Transfer:<id>" payee convention. It
// returns "" for ordinary transactions.
func (idx *Index) TransferTargetOf(tx domain.Transaction) string {
	return tx.TransferTarget()
}

// LineTargetOf resolves the transfer target of a split line.
func (idx *Index) LineTargetOf(sub domain.SubTransaction) string {
	return sub.TransferTargetID
}

// Counterpart finds the other leg of a transfer. The stored pairing id is
// used when present; otherwise the leg in the target account with the inverse
// amount on the same date that points back at tx's account.
func (idx *Index) Counterpart(tx domain.Transaction) (domain.Transaction, bool) {
	target := idx.TransferTargetOf(tx)
	if target == "" {
		return domain.Transaction{}, false
	}
	if tx.TransferTransactionID != "" {
		if p, ok := idx.byID[tx.TransferTransactionID]; ok {
			other := idx.transactions[p]
			if other.AccountID == target {
				return other, true
			}
		}
	}
	inverse := tx.Amount.Neg()
	for _, p := range idx.byAccount[target] {
		other := idx.transactions[p]
		if other.ID == tx.ID || other.Date != tx.Date {
			continue
		}
		if other.Amount.Equal(inverse) && idx.TransferTargetOf(other) == tx.AccountID {
			return other, true
		}
	}
	return domain.Transaction{}, false
}

// UnpairedTransfers lists transfer legs without a matching counterpart.
func (idx *Index) UnpairedTransfers() []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range idx.transactions {
		if idx.TransferTargetOf(tx) == "" {
			continue
		}
		if _, ok := idx.Counterpart(tx); !ok {
			out = append(out, tx)
		}
	}
	return out
}
