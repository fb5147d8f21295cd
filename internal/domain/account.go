package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAccountType is returned when an account type spelling is not recognised.
var ErrUnknownAccountType = errors.New("unknown account type")

// AccountType is the closed set of account kinds a budget can hold.
type AccountType string

const (
	AccountTypeChecking          AccountType = "Checking"
	AccountTypeSavings           AccountType = "Savings"
	AccountTypeCreditCard        AccountType = "CreditCard"
	AccountTypeLineOfCredit      AccountType = "LineOfCredit"
	AccountTypeCash              AccountType = "Cash"
	AccountTypePaypal            AccountType = "Paypal"
	AccountTypeMerchantAccount   AccountType = "MerchantAccount"
	AccountTypeInvestmentAccount AccountType = "InvestmentAccount"
	AccountTypeMortgage          AccountType = "Mortgage"
	AccountTypeOtherAsset        AccountType = "OtherAsset"
	AccountTypeOtherLiability    AccountType = "OtherLiability"
)

// accountTypeSpellings maps normalised spellings to their canonical type.
var accountTypeSpellings = map[string]AccountType{
	"checking":          AccountTypeChecking,
	"chequing":          AccountTypeChecking,
	"savings":           AccountTypeSavings,
	"saving":            AccountTypeSavings,
	"creditcard":        AccountTypeCreditCard,
	"credit":            AccountTypeCreditCard,
	"lineofcredit":      AccountTypeLineOfCredit,
	"loc":               AccountTypeLineOfCredit,
	"cash":              AccountTypeCash,
	"paypal":            AccountTypePaypal,
	"merchantaccount":   AccountTypeMerchantAccount,
	"merchant":          AccountTypeMerchantAccount,
	"investmentaccount": AccountTypeInvestmentAccount,
	"investment":        AccountTypeInvestmentAccount,
	"mortgage":          AccountTypeMortgage,
	"otherasset":        AccountTypeOtherAsset,
	"asset":             AccountTypeOtherAsset,
	"otherliability":    AccountTypeOtherLiability,
	"liability":         AccountTypeOtherLiability,
}

// ParseAccountType maps any known spelling ("LineofCredit", "line of credit",
// "Merchant Account", ...) to its canonical AccountType.
func ParseAccountType(s string) (AccountType, error) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '/', '.':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	if t, ok := accountTypeSpellings[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAccountType, s)
}

// IsLiability reports whether balances of this type are conventionally non-positive when owed.
func (t AccountType) IsLiability() bool {
	switch t {
	case AccountTypeCreditCard, AccountTypeLineOfCredit, AccountTypeMortgage,
		AccountTypeOtherLiability, AccountTypeMerchantAccount:
		return true
	}
	return false
}

// IsCreditLike reports whether paying into this account counts as a credit card payment.
func (t AccountType) IsCreditLike() bool {
	return t == AccountTypeCreditCard || t == AccountTypeLineOfCredit || t == AccountTypeMerchantAccount
}

// IsCheckingLike reports whether the account is used for day-to-day spending.
func (t AccountType) IsCheckingLike() bool {
	return t == AccountTypeChecking || t == AccountTypeCash || t == AccountTypePaypal
}

// IsSavingsLike reports whether the account holds saved money.
func (t AccountType) IsSavingsLike() bool {
	return t == AccountTypeSavings || t == AccountTypeInvestmentAccount
}

// Account is a ledger account. Closed and Hidden are soft-delete flags.
type Account struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	OnBudget bool        `json:"on_budget"`
	Closed   bool        `json:"closed,omitempty"`
	Hidden   bool        `json:"hidden,omitempty"`
}

// AccountTypes returns the type of every account keyed by id.
func AccountTypes(accounts []Account) map[string]AccountType {
	types := make(map[string]AccountType, len(accounts))
	for _, a := range accounts {
		types[a.ID] = a.Type
	}
	return types
}
