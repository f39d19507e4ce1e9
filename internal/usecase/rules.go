package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finpost/ledger/internal/domain"
)

// AccountCriteria identifies the account an entry should post to. (Name,
// Currency) is the natural key; the remaining fields seed creation when the
// account does not exist yet.
type AccountCriteria struct {
	Name     string
	Type     domain.AccountType
	Nature   domain.AccountNature
	Currency string
	Metadata map[string]any
}

// Key returns the natural-key string used to dedupe criteria within a group.
func (c AccountCriteria) Key() string {
	return c.Name + "\x00" + c.Currency
}

// ProposedEntry is one side of a posting produced by a rule, before any
// account has been resolved or anything persisted.
type ProposedEntry struct {
	Account     AccountCriteria
	Type        domain.EntryType
	Amount      decimal.Decimal
	Currency    string
	Description string
	Metadata    map[string]any
}

// BalanceGuard is a precondition checked under row locks before a group is
// committed: the guarded account's balance must be at least Minimum.
type BalanceGuard struct {
	Account AccountCriteria
	Minimum decimal.Decimal
}

// proposal is the full output of a posting rule.
type proposal struct {
	entries []ProposedEntry
	guards  []BalanceGuard
}

// buildProposal dispatches the event payload to its posting rule. The switch
// is exhaustive over the payload union; a new event type will not compile
// until it gets a rule here.
func buildProposal(payload domain.EventPayload, rates *domain.RateTable) (proposal, error) {
	switch p := payload.(type) {
	case *domain.PaymentCapturedPayload:
		return capturedProposal(p, rates)
	case *domain.PaymentRefundedPayload:
		return refundProposal(p.Amount, p.Currency, p.MerchantID, p.TransactionID, nil, rates)
	case *domain.PaymentPartiallyRefundedPayload:
		meta := map[string]any{
			"partial_refund":  true,
			"original_amount": p.OriginalAmount.String(),
		}

		return refundProposal(p.RefundAmount, p.Currency, p.MerchantID, p.TransactionID, meta, rates)
	case *domain.ProcessorFeeChargedPayload:
		return processorFeeProposal(p, rates)
	default:
		return proposal{}, fmt.Errorf("%w: %T", domain.ErrUnknownEventType, payload)
	}
}

func capturedProposal(p *domain.PaymentCapturedPayload, rates *domain.RateTable) (proposal, error) {
	settlement := p.Settlement()

	rate, err := rates.Rate(p.Currency, settlement)
	if err != nil {
		return proposal{}, err
	}

	convertedAmount := p.Amount.Mul(rate)
	convertedFee := p.TransactionFee.Mul(rate)
	fxFee := p.Amount.Mul(rates.FXFeeRate(p.Currency, settlement)).Mul(rate)

	cash, err := accountFor(rates, domain.RoleCash, settlement, "", nil)
	if err != nil {
		return proposal{}, err
	}

	payable, err := merchantPayableFor(rates, p.MerchantID, settlement)
	if err != nil {
		return proposal{}, err
	}

	feeRevenue, err := accountFor(rates, domain.RoleTransactionFeeRevenue, settlement, "", nil)
	if err != nil {
		return proposal{}, err
	}

	meta := map[string]any{"merchant_id": p.MerchantID}
	if p.Currency != settlement {
		meta["source_currency"] = p.Currency
		meta["source_amount"] = p.Amount.String()
		meta["exchange_rate"] = rate.String()
	}

	entries := []ProposedEntry{
		{
			Account:     cash,
			Type:        domain.EntryTypeDebit,
			Amount:      convertedAmount,
			Currency:    settlement,
			Description: fmt.Sprintf("payment captured for merchant %s", p.MerchantID),
			Metadata:    meta,
		},
		{
			Account:     payable,
			Type:        domain.EntryTypeCredit,
			Amount:      convertedAmount.Sub(convertedFee).Sub(fxFee),
			Currency:    settlement,
			Description: fmt.Sprintf("merchant payable for %s", p.MerchantID),
			Metadata:    meta,
		},
		{
			Account:     feeRevenue,
			Type:        domain.EntryTypeCredit,
			Amount:      convertedFee,
			Currency:    settlement,
			Description: "transaction fee",
			Metadata:    meta,
		},
	}

	if fxFee.IsPositive() {
		fxRevenue, err := accountFor(rates, domain.RoleFXFeeRevenue, settlement, "", nil)
		if err != nil {
			return proposal{}, err
		}

		entries = append(entries, ProposedEntry{
			Account:     fxRevenue,
			Type:        domain.EntryTypeCredit,
			Amount:      fxFee,
			Currency:    settlement,
			Description: fmt.Sprintf("fx fee %s to %s", p.Currency, settlement),
			Metadata:    meta,
		})
	}

	return proposal{entries: entries}, nil
}

func refundProposal(
	amount decimal.Decimal,
	currency, merchantID, transactionID string,
	extraMeta map[string]any,
	rates *domain.RateTable,
) (proposal, error) {
	payable, err := merchantPayableFor(rates, merchantID, currency)
	if err != nil {
		return proposal{}, err
	}

	cash, err := accountFor(rates, domain.RoleCash, currency, "", nil)
	if err != nil {
		return proposal{}, err
	}

	meta := map[string]any{"merchant_id": merchantID}
	if transactionID != "" {
		meta["transaction_id"] = transactionID
	}
	for k, v := range extraMeta {
		meta[k] = v
	}

	entries := []ProposedEntry{
		{
			Account:     payable,
			Type:        domain.EntryTypeDebit,
			Amount:      amount,
			Currency:    currency,
			Description: fmt.Sprintf("refund to merchant %s", merchantID),
			Metadata:    meta,
		},
		{
			Account:     cash,
			Type:        domain.EntryTypeCredit,
			Amount:      amount,
			Currency:    currency,
			Description: fmt.Sprintf("refund paid out for merchant %s", merchantID),
			Metadata:    meta,
		},
	}

	guards := []BalanceGuard{{Account: payable, Minimum: amount}}

	return proposal{entries: entries, guards: guards}, nil
}

func processorFeeProposal(p *domain.ProcessorFeeChargedPayload, rates *domain.RateTable) (proposal, error) {
	pct := rates.PaymentProcessing.ExpensePercentage
	if !pct.IsPositive() {
		return proposal{}, fmt.Errorf("%w: payment_processing.expense_percentage is not configured", domain.ErrValidation)
	}

	expense := p.CapturedAmount.Mul(pct)

	expenseAcct, err := accountFor(rates, domain.RoleProcessingExpense, p.Currency, "", nil)
	if err != nil {
		return proposal{}, err
	}

	cash, err := accountFor(rates, domain.RoleCash, p.Currency, "", nil)
	if err != nil {
		return proposal{}, err
	}

	meta := map[string]any{"captured_amount": p.CapturedAmount.String()}
	if p.TransactionID != "" {
		meta["transaction_id"] = p.TransactionID
	}

	entries := []ProposedEntry{
		{
			Account:     expenseAcct,
			Type:        domain.EntryTypeDebit,
			Amount:      expense,
			Currency:    p.Currency,
			Description: "payment processing expense",
			Metadata:    meta,
		},
		{
			Account:     cash,
			Type:        domain.EntryTypeCredit,
			Amount:      expense,
			Currency:    p.Currency,
			Description: "payment processing expense settled",
			Metadata:    meta,
		},
	}

	return proposal{entries: entries}, nil
}

// accountFor builds criteria for a logical role in a currency. nameSuffix and
// metadata distinguish per-merchant accounts sharing one role.
func accountFor(rates *domain.RateTable, role, currency, nameSuffix string, metadata map[string]any) (AccountCriteria, error) {
	defaults, err := rates.AccountDefaultsFor(role)
	if err != nil {
		return AccountCriteria{}, err
	}

	name := defaults.Name
	if nameSuffix != "" {
		name = name + " - " + nameSuffix
	}

	return AccountCriteria{
		Name:     name,
		Type:     defaults.Type,
		Nature:   defaults.Nature,
		Currency: currency,
		Metadata: metadata,
	}, nil
}

func merchantPayableFor(rates *domain.RateTable, merchantID, currency string) (AccountCriteria, error) {
	return accountFor(rates, domain.RoleMerchantPayable, currency, merchantID,
		map[string]any{"merchant_id": merchantID})
}

// checkBalanced is the single gate every proposed group passes before
// anything is persisted.
func checkBalanced(entries []ProposedEntry) error {
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.Amount.IsNegative() {
			return fmt.Errorf("%w: entry amount %s is negative", domain.ErrValidation, e.Amount)
		}

		switch e.Type {
		case domain.EntryTypeDebit:
			debits = debits.Add(e.Amount)
		case domain.EntryTypeCredit:
			credits = credits.Add(e.Amount)
		}
	}

	if !domain.WithinTolerance(debits, credits) {
		return fmt.Errorf("%w: debits %s, credits %s", domain.ErrImbalance, debits, credits)
	}

	return nil
}
