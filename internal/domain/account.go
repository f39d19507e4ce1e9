package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// AccountNature fixes the sign convention: a debit-nature account grows on
// debit entries, a credit-nature account grows on credit entries.
type AccountNature string

const (
	NatureDebit  AccountNature = "debit"
	NatureCredit AccountNature = "credit"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusClosed   AccountStatus = "closed"
)

// Account represents a ledger account that holds a running balance in a
// single currency. (Name, Currency) is the natural key; the ID never changes
// once assigned.
type Account struct {
	ID        string
	Name      string
	Type      AccountType
	Nature    AccountNature
	Currency  string
	Status    AccountStatus
	Balance   decimal.Decimal
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NatureFor returns the conventional nature for an account type: assets and
// expenses grow on debits, everything else grows on credits.
func NatureFor(t AccountType) AccountNature {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NatureDebit
	default:
		return NatureCredit
	}
}

// SignedAmount converts an entry into the balance delta it causes on this
// account: +amount when entry type matches the account's nature, -amount
// otherwise. Amounts are always non-negative; the sign lives here.
func (a *Account) SignedAmount(entryType EntryType, amount decimal.Decimal) decimal.Decimal {
	if string(a.Nature) == string(entryType) {
		return amount
	}

	return amount.Neg()
}

// IsActive reports whether the account can participate in new postings.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
