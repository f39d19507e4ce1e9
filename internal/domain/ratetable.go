package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Logical account roles referenced by posting rules. Each role resolves to
// seed attributes in the rate table's Accounts map.
const (
	RoleCash                  = "cash"
	RoleMerchantPayable       = "merchant_payable"
	RoleTransactionFeeRevenue = "transaction_fee_revenue"
	RoleFXFeeRevenue          = "fx_fee_revenue"
	RoleProcessingExpense     = "payment_processing_expense"
)

// AccountDefaults seed the creation of an account the first time a posting
// rule references it. They never overwrite an existing account.
type AccountDefaults struct {
	Name   string        `json:"name"`
	Type   AccountType   `json:"type"`
	Nature AccountNature `json:"nature"`
}

// PaymentProcessingConfig holds processor-expense settings.
type PaymentProcessingConfig struct {
	ExpensePercentage decimal.Decimal `json:"expense_percentage"`
}

// RateTable is an immutable snapshot of exchange rates and fee schedules.
// Updates replace the whole table; a posting evaluation always sees one
// consistent snapshot.
type RateTable struct {
	BaseCurrency             string                                `json:"base_currency"`
	Rates                    map[string]decimal.Decimal            `json:"rates"`
	Accounts                 map[string]AccountDefaults            `json:"accounts"`
	FXFees                   map[string]map[string]decimal.Decimal `json:"fx_fees"`
	TransactionFeePercentage decimal.Decimal                       `json:"transaction_fee_percentage"`
	TransactionFeeFixed      map[string]decimal.Decimal            `json:"transaction_fee_fixed"`
	PaymentProcessing        PaymentProcessingConfig               `json:"payment_processing"`
}

// Rate returns the multiplier that converts an amount in `from` into `to`.
// Rates are stored relative to the base currency, so the cross rate is
// rates[to] / rates[from].
func (t *RateTable) Rate(from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	fromRate, ok := t.Rates[from]
	if !ok || fromRate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrExchangeRateUnavailable, from)
	}

	toRate, ok := t.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrExchangeRateUnavailable, to)
	}

	return toRate.Div(fromRate), nil
}

// Convert converts an amount between currencies. No rounding is applied;
// rounding is a presentation concern at the boundary.
func (t *RateTable) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := t.Rate(from, to)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(rate), nil
}

// FXFeeRate returns the configured pairwise FX fee percentage, or zero when
// the pair is not configured.
func (t *RateTable) FXFeeRate(from, to string) decimal.Decimal {
	if pair, ok := t.FXFees[from]; ok {
		if fee, ok := pair[to]; ok {
			return fee
		}
	}

	return decimal.Zero
}

// TransactionFee quotes the standard transaction fee for an amount:
// amount * percentage + per-currency fixed fee.
func (t *RateTable) TransactionFee(amount decimal.Decimal, currency string) decimal.Decimal {
	fee := amount.Mul(t.TransactionFeePercentage)
	if fixed, ok := t.TransactionFeeFixed[currency]; ok {
		fee = fee.Add(fixed)
	}

	return fee
}

// AccountDefaultsFor returns the seed attributes for a logical role, falling
// back to the built-in defaults when the table does not configure the role.
func (t *RateTable) AccountDefaultsFor(role string) (AccountDefaults, error) {
	if d, ok := t.Accounts[role]; ok {
		return d, nil
	}

	if d, ok := builtinAccountDefaults[role]; ok {
		return d, nil
	}

	return AccountDefaults{}, fmt.Errorf("%w: no account defaults for role %q", ErrValidation, role)
}

// Validate checks the snapshot for completeness before it may replace the
// live table.
func (t *RateTable) Validate() error {
	if t.BaseCurrency == "" {
		return fmt.Errorf("%w: base_currency is required", ErrValidation)
	}

	if len(t.Rates) == 0 {
		return fmt.Errorf("%w: rates map is required", ErrValidation)
	}

	if _, ok := t.Rates[t.BaseCurrency]; !ok {
		return fmt.Errorf("%w: rates must include the base currency %s", ErrValidation, t.BaseCurrency)
	}

	if t.Accounts == nil {
		return fmt.Errorf("%w: accounts map is required", ErrValidation)
	}

	if t.FXFees == nil {
		return fmt.Errorf("%w: fx_fees map is required", ErrValidation)
	}

	if t.TransactionFeePercentage.IsNegative() {
		return fmt.Errorf("%w: transaction_fee_percentage must not be negative", ErrValidation)
	}

	if t.TransactionFeeFixed == nil {
		return fmt.Errorf("%w: transaction_fee_fixed map is required", ErrValidation)
	}

	if t.PaymentProcessing.ExpensePercentage.IsNegative() {
		return fmt.Errorf("%w: payment_processing.expense_percentage must not be negative", ErrValidation)
	}

	for ccy, rate := range t.Rates {
		if rate.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: rate for %s must be positive", ErrValidation, ccy)
		}
	}

	return nil
}

var builtinAccountDefaults = map[string]AccountDefaults{
	RoleCash:                  {Name: "Cash", Type: AccountTypeAsset, Nature: NatureDebit},
	RoleMerchantPayable:       {Name: "Merchant Payable", Type: AccountTypeLiability, Nature: NatureCredit},
	RoleTransactionFeeRevenue: {Name: "Transaction Fee Revenue", Type: AccountTypeRevenue, Nature: NatureCredit},
	RoleFXFeeRevenue:          {Name: "FX Fee Revenue", Type: AccountTypeRevenue, Nature: NatureCredit},
	RoleProcessingExpense:     {Name: "Payment Processing Expense", Type: AccountTypeExpense, Nature: NatureDebit},
}

// DefaultRateTable returns a minimal single-currency snapshot used when no
// configuration file is supplied.
func DefaultRateTable() *RateTable {
	accounts := make(map[string]AccountDefaults, len(builtinAccountDefaults))
	for role, d := range builtinAccountDefaults {
		accounts[role] = d
	}

	return &RateTable{
		BaseCurrency: "USD",
		Rates: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(1),
		},
		Accounts:                 accounts,
		FXFees:                   map[string]map[string]decimal.Decimal{},
		TransactionFeePercentage: decimal.Zero,
		TransactionFeeFixed:      map[string]decimal.Decimal{},
	}
}
