package engine

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"budget-ledger/internal/domain"
)

// FlowKind is the cash-flow meaning of a transaction.
type FlowKind int

const (
	FlowIncome FlowKind = iota
	FlowExpense
	FlowCCPayment
	FlowTransferToSavings
	FlowTransferFromSavings
	FlowInterest
	FlowOther
)

// FlowKinds lists every kind in report order.
var FlowKinds = []FlowKind{
	FlowIncome, FlowExpense, FlowCCPayment, FlowTransferToSavings,
	FlowTransferFromSavings, FlowInterest, FlowOther,
}

var flowKindNames = [...]string{
	FlowIncome:              "income",
	FlowExpense:             "expense",
	FlowCCPayment:           "cc_payment",
	FlowTransferToSavings:   "transfer_to_savings",
	FlowTransferFromSavings: "transfer_from_savings",
	FlowInterest:            "interest",
	FlowOther:               "other",
}

func (k FlowKind) String() string {
	if k < 0 || int(k) >= len(flowKindNames) {
		return "unknown"
	}
	return flowKindNames[k]
}

// MarshalJSON encodes the kind by name.
func (k FlowKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// interestKeywords are matched against payee and category names.
var interestKeywords = map[language.Tag][]string{
	language.English:    {"interest"},
	language.Spanish:    {"interés", "interes", "intereses"},
	language.German:     {"zinsen", "zins"},
	language.French:     {"intérêt", "intérêts", "interet", "interets"},
	language.Italian:    {"interessi", "interesse"},
	language.Portuguese: {"juros"},
	language.Dutch:      {"rente"},
}

var (
	keywordLocales = []language.Tag{
		language.English, language.Spanish, language.German, language.French,
		language.Italian, language.Portuguese, language.Dutch,
	}
	keywordMatcher = language.NewMatcher(keywordLocales)
)

// FlowOption configures a FlowClassifier.
type FlowOption func(*FlowClassifier)

// WithLocale adds the interest keywords of the budget's locale (e.g. "es-MX").
// English keywords are always active.
func WithLocale(locale string) FlowOption {
	return func(c *FlowClassifier) {
		if locale == "" {
			return
		}
		tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
		if err != nil {
			return
		}
		_, i, confidence := keywordMatcher.Match(tag)
		if confidence == language.No {
			return
		}
		c.addKeywords(interestKeywords[keywordLocales[i]])
	}
}

// WithInterestKeywords adds extra interest markers.
func WithInterestKeywords(words ...string) FlowOption {
	return func(c *FlowClassifier) {
		c.addKeywords(words)
	}
}

// FlowClassifier labels transactions by flow kind. It holds no mutable state
// after construction.
type FlowClassifier struct {
	accountTypes  map[string]domain.AccountType
	categoryNames map[string]string
	payeeNames    map[string]string
	keywords      []string
}

// NewFlowClassifier builds a classifier over the snapshot's reference data.
func NewFlowClassifier(accounts []domain.Account, categories []domain.Category, payees []domain.Payee, opts ...FlowOption) *FlowClassifier {
	c := &FlowClassifier{
		accountTypes:  domain.AccountTypes(accounts),
		categoryNames: make(map[string]string, len(categories)),
		payeeNames:    make(map[string]string, len(payees)),
	}
	for _, cat := range categories {
		c.categoryNames[cat.ID] = cat.Name
	}
	for _, p := range payees {
		c.payeeNames[p.ID] = p.Name
	}
	c.addKeywords(interestKeywords[language.English])
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FlowClassifier) addKeywords(words []string) {
	for _, w := range words {
		w = fold(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		dup := false
		for _, existing := range c.keywords {
			if existing == w {
				dup = true
				break
			}
		}
		if !dup {
			c.keywords = append(c.keywords, w)
		}
	}
}

// Classify labels tx. The first matching rule wins:
//  1. payee, category or any split line's category name mentions interest
//  2. transfer into a credit card, line of credit or merchant account
//  3. checking-like to savings-like transfer
//  4. savings-like to checking-like transfer
//  5. transfer with both legs inside the pool
//  6. income when the amount is positive, expense otherwise
func (c *FlowClassifier) Classify(tx domain.Transaction, pool Pool, idx *Index) FlowKind {
	if c.mentionsInterest(c.payeeNames[tx.PayeeID]) || c.mentionsInterest(c.categoryNames[tx.CategoryID]) {
		return FlowInterest
	}
	for _, sub := range tx.SubTransactions {
		if c.mentionsInterest(c.categoryNames[sub.CategoryID]) {
			return FlowInterest
		}
	}

	source := c.accountTypes[tx.AccountID]
	target, resolved := c.accountTypes[idx.TransferTargetOf(tx)]
	if resolved {
		switch {
		case target.IsCreditLike():
			return FlowCCPayment
		case source.IsCheckingLike() && target.IsSavingsLike():
			return FlowTransferToSavings
		case source.IsSavingsLike() && target.IsCheckingLike():
			return FlowTransferFromSavings
		}
	}
	if IsInternalTransfer(tx, pool, idx) {
		return FlowOther
	}
	if tx.Amount.IsPositive() {
		return FlowIncome
	}
	return FlowExpense
}

func (c *FlowClassifier) mentionsInterest(name string) bool {
	if name == "" {
		return false
	}
	folded := fold(name)
	for _, k := range c.keywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

// fold case-folds s. A Caser keeps state between calls, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// SummarizeFlows totals the pool's in-range transactions per flow kind. Every
// kind is present in the result, in FlowKinds order. The net leaves out legs
// of transfers internal to the pool, so it equals the period's inflows minus
// outflows.
func SummarizeFlows(pool Pool, idx *Index, classifier *FlowClassifier, from, to string) ([]domain.FlowTotal, decimal.Decimal, error) {
	if err := validateRange(from, to); err != nil {
		return nil, decimal.Zero, err
	}

	totals := make(map[FlowKind]decimal.Decimal, len(FlowKinds))
	counts := make(map[FlowKind]int, len(FlowKinds))
	net := decimal.Zero
	for _, accountID := range pool.IDs() {
		for _, tx := range idx.ByAccount(accountID) {
			if tx.Date < from || tx.Date > to {
				continue
			}
			kind := classifier.Classify(tx, pool, idx)
			totals[kind] = totals[kind].Add(tx.Amount)
			counts[kind]++
			for _, line := range flowLines(tx, pool, idx) {
				if !line.internal {
					net = net.Add(line.amount)
				}
			}
		}
	}

	out := make([]domain.FlowTotal, 0, len(FlowKinds))
	for _, kind := range FlowKinds {
		total := totals[kind]
		out = append(out, domain.FlowTotal{
			Kind:    kind.String(),
			Total:   total,
			Count:   counts[kind],
			Average: domain.SafeDivide(total, counts[kind]),
		})
	}
	return out, net, nil
}
