package engine

import (
	"fmt"
	"sort"
	"strings"

	"budget-ledger/internal/domain"
)

// SelectorKind enumerates the ways a pool can be chosen.
type SelectorKind int

const (
	SelectAll SelectorKind = iota
	SelectOnBudget
	SelectByType
	SelectAccount
)

// Selector describes which accounts form a pool.
type Selector struct {
	Kind      SelectorKind
	Types     []domain.AccountType
	AccountID string

	// Closed accounts are included unless asked otherwise so that balances stay true.
	ExcludeClosed bool
	ExcludeHidden bool
}

// All selects every account.
func All() Selector { return Selector{Kind: SelectAll} }

// OnBudgetOnly selects on-budget accounts.
func OnBudgetOnly() Selector { return Selector{Kind: SelectOnBudget} }

// ByType selects accounts of the given types.
func ByType(types ...domain.AccountType) Selector {
	return Selector{Kind: SelectByType, Types: types}
}

// SingleAccount selects one account by id.
func SingleAccount(id string) Selector {
	return Selector{Kind: SelectAccount, AccountID: id}
}

func (s Selector) String() string {
	var b strings.Builder
	switch s.Kind {
	case SelectAll:
		b.WriteString("all")
	case SelectOnBudget:
		b.WriteString("on-budget")
	case SelectByType:
		names := make([]string, len(s.Types))
		for i, t := range s.Types {
			names[i] = string(t)
		}
		fmt.Fprintf(&b, "type:%s", strings.Join(names, ","))
	case SelectAccount:
		fmt.Fprintf(&b, "account:%s", s.AccountID)
	}
	if s.ExcludeClosed {
		b.WriteString("+open")
	}
	if s.ExcludeHidden {
		b.WriteString("+visible")
	}
	return b.String()
}

// ParseSelector reads the textual form produced by Selector.String:
// "all", "on-budget", "type:Checking,Savings" or "account:<id>", optionally
// followed by "+open" and "+visible".
func ParseSelector(s string) (Selector, error) {
	body := strings.TrimSpace(s)
	var excludeClosed, excludeHidden bool
	for {
		if rest, ok := strings.CutSuffix(body, "+open"); ok {
			excludeClosed, body = true, rest
			continue
		}
		if rest, ok := strings.CutSuffix(body, "+visible"); ok {
			excludeHidden, body = true, rest
			continue
		}
		break
	}
	sel, err := parseSelectorBody(body, s)
	if err != nil {
		return Selector{}, err
	}
	sel.ExcludeClosed = excludeClosed
	sel.ExcludeHidden = excludeHidden
	return sel, nil
}

func parseSelectorBody(body, s string) (Selector, error) {
	kind, arg, _ := strings.Cut(body, ":")
	switch strings.ToLower(kind) {
	case "", "all":
		return All(), nil
	case "on-budget", "onbudget", "budget":
		return OnBudgetOnly(), nil
	case "type":
		var types []domain.AccountType
		for _, part := range strings.Split(arg, ",") {
			t, err := domain.ParseAccountType(part)
			if err != nil {
				return Selector{}, err
			}
			types = append(types, t)
		}
		return ByType(types...), nil
	case "account":
		if arg == "" {
			return Selector{}, fmt.Errorf("pool %q: missing account id", s)
		}
		return SingleAccount(arg), nil
	}
	return Selector{}, fmt.Errorf("unknown pool selector %q", s)
}

// Pool is a set of accounts treated as one unit.
type Pool struct {
	accountIDs map[string]struct{}
}

// NewPool builds a pool from explicit account ids.
func NewPool(ids ...string) Pool {
	p := Pool{accountIDs: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		p.accountIDs[id] = struct{}{}
	}
	return p
}

// ClassifyPool returns the accounts matched by the selector. An unknown single
// account id yields an empty pool.
func ClassifyPool(accounts []domain.Account, sel Selector) Pool {
	wanted := make(map[domain.AccountType]bool, len(sel.Types))
	for _, t := range sel.Types {
		wanted[t] = true
	}

	p := Pool{accountIDs: make(map[string]struct{})}
	for _, a := range accounts {
		if sel.Kind == SelectAccount {
			if a.ID == sel.AccountID {
				p.accountIDs[a.ID] = struct{}{}
			}
			continue
		}
		if sel.ExcludeClosed && a.Closed {
			continue
		}
		if sel.ExcludeHidden && a.Hidden {
			continue
		}
		switch sel.Kind {
		case SelectAll:
			p.accountIDs[a.ID] = struct{}{}
		case SelectOnBudget:
			if a.OnBudget {
				p.accountIDs[a.ID] = struct{}{}
			}
		case SelectByType:
			if wanted[a.Type] {
				p.accountIDs[a.ID] = struct{}{}
			}
		}
	}
	return p
}

// Contains reports whether the account belongs to the pool.
func (p Pool) Contains(accountID string) bool {
	if accountID == "" {
		return false
	}
	_, ok := p.accountIDs[accountID]
	return ok
}

// Len returns the number of accounts in the pool.
func (p Pool) Len() int {
	return len(p.accountIDs)
}

// IDs returns the pool's account ids in sorted order.
func (p Pool) IDs() []string {
	ids := make([]string, 0, len(p.accountIDs))
	for id := range p.accountIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsInternalTransfer reports whether both legs of tx sit inside the pool. A
// transfer whose target cannot be resolved is never internal. This is the one
// rule every inflow/outflow total goes through.
func IsInternalTransfer(tx domain.Transaction, pool Pool, idx *Index) bool {
	return pool.Contains(tx.AccountID) && pool.Contains(idx.TransferTargetOf(tx))
}

// IsInternalLine applies IsInternalTransfer to one split line of tx.
func IsInternalLine(tx domain.Transaction, sub domain.SubTransaction, pool Pool, idx *Index) bool {
	return pool.Contains(tx.AccountID) && pool.Contains(idx.LineTargetOf(sub))
}
