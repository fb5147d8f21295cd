package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget-ledger/internal/domain"
)

func flowFixture(opts ...FlowOption) *FlowClassifier {
	accounts := append(scenarioAccounts(),
		domain.Account{ID: "LOC", Name: "Overdraft", Type: domain.AccountTypeLineOfCredit, OnBudget: true},
		domain.Account{ID: "PP", Name: "Paypal", Type: domain.AccountTypePaypal, OnBudget: true},
		domain.Account{ID: "MTG", Name: "House", Type: domain.AccountTypeMortgage, OnBudget: false},
	)
	categories := []domain.Category{
		{ID: "groceries", Name: "Groceries"},
		{ID: "bank", Name: "Bank Interest"},
	}
	payees := []domain.Payee{
		{ID: "employer", Name: "ACME Corp"},
		{ID: "bank-es", Name: "Banco: Intereses"},
		{ID: "bank-en", Name: "Savings INTEREST"},
		{ID: "bank-de", Name: "Sparkasse Zinsen"},
	}
	return NewFlowClassifier(accounts, categories, payees, opts...)
}

func TestFlowClassifier_Classify(t *testing.T) {
	classifier := flowFixture()
	idx := BuildIndex(nil)
	pool := NewPool("A", "B", "CC", "LOC", "PP")

	withPayee := func(t domain.Transaction, payee string) domain.Transaction {
		t.PayeeID = payee
		return t
	}
	withCategory := func(t domain.Transaction, category string) domain.Transaction {
		t.CategoryID = category
		return t
	}
	withLines := func(t domain.Transaction, lines ...domain.SubTransaction) domain.Transaction {
		t.CategoryID = domain.CategorySplit
		t.SubTransactions = lines
		return t
	}

	tests := []struct {
		name string
		tx   domain.Transaction
		want FlowKind
	}{
		{name: "positive is income", tx: withPayee(tx("t", "2024-01-01", "A", "2000"), "employer"), want: FlowIncome},
		{name: "negative is expense", tx: withCategory(tx("t", "2024-01-01", "A", "-20"), "groceries"), want: FlowExpense},
		{name: "zero is expense", tx: tx("t", "2024-01-01", "A", "0"), want: FlowExpense},
		{name: "interest payee", tx: withPayee(tx("t", "2024-01-01", "B", "1.25"), "bank-en"), want: FlowInterest},
		{name: "interest category", tx: withCategory(tx("t", "2024-01-01", "A", "0.80"), "bank"), want: FlowInterest},
		{
			name: "interest category on a split line",
			tx: withLines(tx("t", "2024-01-01", "B", "4.00"),
				domain.SubTransaction{ID: "s1", CategoryID: "groceries", Amount: dec("-1.00")},
				domain.SubTransaction{ID: "s2", CategoryID: "bank", Amount: dec("5.00")},
			),
			want: FlowInterest,
		},
		{
			name: "split without interest lines",
			tx: withLines(tx("t", "2024-01-01", "A", "-30.00"),
				domain.SubTransaction{ID: "s1", CategoryID: "groceries", Amount: dec("-30.00")},
			),
			want: FlowExpense,
		},
		{
			name: "interest wins over transfer",
			tx:   withPayee(transfer("t", "2024-01-01", "A", "B", "-5"), "bank-en"),
			want: FlowInterest,
		},
		{name: "credit card payment", tx: transfer("t", "2024-01-01", "A", "CC", "-400"), want: FlowCCPayment},
		{name: "line of credit payment", tx: transfer("t", "2024-01-01", "B", "LOC", "-40"), want: FlowCCPayment},
		{name: "checking to savings", tx: transfer("t", "2024-01-01", "A", "B", "-300"), want: FlowTransferToSavings},
		{name: "paypal to investment", tx: transfer("t", "2024-01-01", "PP", "INV", "-50"), want: FlowTransferToSavings},
		{name: "savings to checking", tx: transfer("t", "2024-01-01", "B", "A", "300"), want: FlowTransferFromSavings},
		{
			name: "savings leg of checking transfer via payee sentinel",
			tx:   domain.Transaction{AccountID: "B", PayeeID: "Payee/Transfer:A", Amount: dec("-10")},
			want: FlowTransferFromSavings,
		},
		{name: "checking to checking inside pool", tx: transfer("t", "2024-01-01", "A", "PP", "-10"), want: FlowOther},
		{name: "credit card refund into checking", tx: transfer("t", "2024-01-01", "CC", "A", "-10"), want: FlowOther},
		{name: "transfer to off-pool mortgage", tx: transfer("t", "2024-01-01", "A", "MTG", "-900"), want: FlowExpense},
		{name: "dangling target", tx: transfer("t", "2024-01-01", "A", "gone", "75"), want: FlowIncome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(tt.tx, pool, idx))
		})
	}
}

func TestFlowClassifier_Locale(t *testing.T) {
	idx := BuildIndex(nil)
	pool := NewPool("A")
	spanish := tx("t", "2024-01-01", "A", "3.10")
	spanish.PayeeID = "bank-es"
	german := tx("t", "2024-01-01", "A", "3.10")
	german.PayeeID = "bank-de"

	assert.Equal(t, FlowIncome, flowFixture().Classify(spanish, pool, idx))
	assert.Equal(t, FlowInterest, flowFixture(WithLocale("es_MX")).Classify(spanish, pool, idx))
	assert.Equal(t, FlowIncome, flowFixture(WithLocale("es_MX")).Classify(german, pool, idx))
	assert.Equal(t, FlowInterest, flowFixture(WithLocale("de-AT")).Classify(german, pool, idx))
	assert.Equal(t, FlowInterest, flowFixture(WithInterestKeywords("ZINSEN")).Classify(german, pool, idx))
	assert.Equal(t, FlowIncome, flowFixture(WithLocale("not a locale")).Classify(german, pool, idx))
}

func TestFlowClassifier_Deterministic(t *testing.T) {
	classifier := flowFixture(WithLocale("es"))
	idx := BuildIndex(scenarioTransactions())
	pool := NewPool("A", "B")

	for _, tr := range idx.Transactions() {
		first := classifier.Classify(tr, pool, idx)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, classifier.Classify(tr, pool, idx), tr.ID)
		}
	}
}

func TestSummarizeFlows(t *testing.T) {
	txs := append(scenarioTransactions(),
		transfer("cc", "2024-03-25", "A", "CC", "-120.00"),
		transfer("cc-leg", "2024-03-25", "CC", "A", "120.00"),
		transfer("late", "2024-04-01", "A", "B", "-1.00"),
	)
	idx := BuildIndex(txs)
	classifier := flowFixture()

	flows, net, err := SummarizeFlows(NewPool("A", "B"), idx, classifier, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, flows, len(FlowKinds))

	byKind := make(map[string]domain.FlowTotal, len(flows))
	for i, f := range flows {
		assert.Equal(t, FlowKinds[i].String(), f.Kind)
		byKind[f.Kind] = f
	}

	assertDecimal(t, "1500.00", byKind["income"].Total)
	assert.Equal(t, 1, byKind["income"].Count)
	assertDecimal(t, "-50.00", byKind["expense"].Total)
	assertDecimal(t, "-120.00", byKind["cc_payment"].Total)
	assertDecimal(t, "-300.00", byKind["transfer_to_savings"].Total)
	assertDecimal(t, "300.00", byKind["transfer_from_savings"].Total)

	interest := byKind["interest"]
	assert.Equal(t, 0, interest.Count)
	assertDecimal(t, "0", interest.Total)
	assertDecimal(t, "0", interest.Average, "average of an empty kind")

	assertDecimal(t, "1330.00", net)
}

func TestSummarizeFlows_NetMatchesPeriod(t *testing.T) {
	shopping := tx("shop", "2024-03-12", "A", "-90.00")
	shopping.CategoryID = domain.CategorySplit
	shopping.SubTransactions = []domain.SubTransaction{
		{ID: "s1", CategoryID: "groceries", Amount: dec("-30.00")},
		{ID: "s2", TransferTargetID: "CC", Amount: dec("-60.00")},
	}
	card := []domain.Transaction{
		transfer("pay", "2024-03-25", "A", "CC", "-120.00"),
		transfer("pay-leg", "2024-03-25", "CC", "A", "120.00"),
	}

	tests := []struct {
		name    string
		txs     []domain.Transaction
		pool    Pool
		wantNet string
	}{
		{name: "card payment inside the pool", txs: card, pool: NewPool("A", "CC"), wantNet: "0"},
		{name: "card outside the pool", txs: card, pool: NewPool("A"), wantNet: "-120.00"},
		{
			name:    "split line to a pool account",
			txs:     append(append([]domain.Transaction{}, card...), shopping),
			pool:    NewPool("A", "CC"),
			wantNet: "-30.00",
		},
		{
			name:    "checking and savings scenario",
			txs:     append(scenarioTransactions(), card...),
			pool:    NewPool("A", "B", "CC"),
			wantNet: "1450.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := BuildIndex(tt.txs)

			_, net, err := SummarizeFlows(tt.pool, idx, flowFixture(), "2024-03-01", "2024-03-31")
			require.NoError(t, err)
			assertDecimal(t, tt.wantNet, net)

			period, err := ComputePeriod(tt.pool, idx, "2024-03-01", "2024-03-31")
			require.NoError(t, err)
			assertDecimal(t, tt.wantNet, period.Inflows.Sub(period.Outflows))
		})
	}
}

func TestSummarizeFlows_InvalidRange(t *testing.T) {
	_, _, err := SummarizeFlows(NewPool("A"), BuildIndex(nil), flowFixture(), "2024-03-31", "2024-03-01")
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestFlowKind_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(FlowTransferToSavings)
	require.NoError(t, err)
	assert.JSONEq(t, `"transfer_to_savings"`, string(b))
	assert.Equal(t, "unknown", FlowKind(99).String())
}
