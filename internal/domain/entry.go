package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the side of a double-entry record.
type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// Opposite returns the flipped entry type.
func (t EntryType) Opposite() EntryType {
	if t == EntryTypeDebit {
		return EntryTypeCredit
	}

	return EntryTypeDebit
}

// BalanceTolerance is the maximum absolute difference between the debit and
// credit totals of an entry group, after all currency conversions.
var BalanceTolerance = decimal.NewFromFloat(0.001)

// Entry is a single immutable ledger entry. Amount is always non-negative;
// direction is carried by Type and the referenced account's nature. The only
// mutation permitted after creation is the one-way IsReversed flip.
type Entry struct {
	ID              string
	EntryGroupID    string
	TransactionID   string
	EventID         string
	AccountID       string
	Type            EntryType
	Amount          decimal.Decimal
	Currency        string
	Description     string
	Metadata        map[string]any
	IsReversal      bool
	IsReversed      bool
	OriginalEntryID string
	CreatedAt       time.Time
}

// GroupTotals sums the debit and credit amounts of a set of entries.
func GroupTotals(entries []*Entry) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.Type {
		case EntryTypeDebit:
			debits = debits.Add(e.Amount)
		case EntryTypeCredit:
			credits = credits.Add(e.Amount)
		}
	}

	return debits, credits
}

// GroupBalances reports whether debit and credit totals agree within
// BalanceTolerance.
func GroupBalances(entries []*Entry) bool {
	debits, credits := GroupTotals(entries)

	return WithinTolerance(debits, credits)
}

// WithinTolerance reports whether two monetary totals agree within
// BalanceTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(BalanceTolerance)
}
