package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TransferPayeePrefix marks a payee id that encodes the target account of a transfer.
const TransferPayeePrefix = "Payee/Transfer:"

// Transaction represents one ledger row as stored in the budget file.
// Empty id fields mean "not set".
type Transaction struct {
	ID                    string           `json:"id"`
	Date                  string           `json:"date"` // YYYY-MM-DD
	AccountID             string           `json:"account_id"`
	Amount                decimal.Decimal  `json:"amount"` // positive = inflow
	CategoryID            string           `json:"category_id,omitempty"`
	PayeeID               string           `json:"payee_id,omitempty"`
	TransferTargetID      string           `json:"transfer_target_id,omitempty"`
	TransferTransactionID string           `json:"transfer_transaction_id,omitempty"`
	Memo                  string           `json:"memo,omitempty"`
	Cleared               string           `json:"cleared,omitempty"`
	Flag                  string           `json:"flag,omitempty"`
	Deleted               bool             `json:"deleted,omitempty"`
	SubTransactions       []SubTransaction `json:"sub_transactions,omitempty"`
}

// SubTransaction is one line of a split transaction.
type SubTransaction struct {
	ID               string          `json:"id,omitempty"`
	CategoryID       string          `json:"category_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Memo             string          `json:"memo,omitempty"`
	TransferTargetID string          `json:"transfer_target_id,omitempty"`
}

// TransferTarget resolves the account on the other side of a transfer. The
// explicit field wins over the "Payee/Transfer:<id>" payee convention.
func (t Transaction) TransferTarget() string {
	if t.TransferTargetID != "" {
		return t.TransferTargetID
	}
	return TransferTargetFromPayee(t.PayeeID)
}

// IsSplit reports whether the transaction carries split lines.
func (t Transaction) IsSplit() bool {
	return len(t.SubTransactions) > 0
}

// Payee is a named counterparty.
type Payee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TransferTargetFromPayee extracts the account id from a "Payee/Transfer:<id>"
// payee id. It returns "" when the payee is not a transfer payee.
func TransferTargetFromPayee(payeeID string) string {
	if !strings.HasPrefix(payeeID, TransferPayeePrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(payeeID, TransferPayeePrefix))
}
