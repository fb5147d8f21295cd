package engine

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"budget-ledger/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, context ...string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", strings.Join(context, " "), want, got)
}

func tx(id, date, account, amount string) domain.Transaction {
	return domain.Transaction{ID: id, Date: date, AccountID: account, Amount: dec(amount)}
}

func transfer(id, date, account, target, amount string) domain.Transaction {
	t := tx(id, date, account, amount)
	t.TransferTargetID = target
	return t
}

// scenarioAccounts is the checking/savings pair used across the period tests.
func scenarioAccounts() []domain.Account {
	return []domain.Account{
		{ID: "A", Name: "Checking", Type: domain.AccountTypeChecking, OnBudget: true},
		{ID: "B", Name: "Savings", Type: domain.AccountTypeSavings, OnBudget: true},
		{ID: "CC", Name: "Visa", Type: domain.AccountTypeCreditCard, OnBudget: true},
		{ID: "INV", Name: "Brokerage", Type: domain.AccountTypeInvestmentAccount, OnBudget: false},
	}
}

func scenarioTransactions() []domain.Transaction {
	groceries := tx("t3", "2024-03-05", "A", "-50.00")
	groceries.CategoryID = "groceries"
	return []domain.Transaction{
		tx("t1", "2024-01-10", "A", "1000.00"),
		tx("t2", "2024-02-15", "A", "-200.00"),
		groceries,
		tx("t4", "2024-03-10", "A", "1500.00"),
		transfer("t5", "2024-03-20", "A", "B", "-300.00"),
		transfer("t6", "2024-03-20", "B", "A", "300.00"),
	}
}
