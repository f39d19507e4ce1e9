package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType tags an inbound business event.
type EventType string

const (
	EventPaymentCaptured          EventType = "payment.captured"
	EventPaymentRefunded          EventType = "payment.refunded"
	EventPaymentPartiallyRefunded EventType = "payment.partially_refunded"
	EventProcessorFeeCharged      EventType = "processor.fee_charged"
)

// Event is the stored record of an inbound business event. It is append-only
// and exists for audit and correlation.
type Event struct {
	ID        string
	Type      EventType
	Payload   json.RawMessage
	CreatedAt time.Time
}

// EventPayload is the tagged union of per-event-type payloads. The rule
// dispatch site switches exhaustively over the concrete types, so adding an
// event type is a compile-time-checked extension point.
type EventPayload interface {
	EventType() EventType
	Validate() error
}

// PaymentCapturedPayload carries a captured payment.
type PaymentCapturedPayload struct {
	Amount             decimal.Decimal  `json:"amount"`
	Currency           string           `json:"currency"`
	MerchantID         string           `json:"merchant_id"`
	TransactionFee     *decimal.Decimal `json:"transaction_fee"`
	SettlementCurrency string           `json:"settlement_currency,omitempty"`
	TransactionID      string           `json:"transaction_id,omitempty"`
}

func (p *PaymentCapturedPayload) EventType() EventType { return EventPaymentCaptured }

func (p *PaymentCapturedPayload) Validate() error {
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	if p.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrValidation)
	}

	if p.MerchantID == "" {
		return fmt.Errorf("%w: merchant_id is required", ErrValidation)
	}

	if p.TransactionFee == nil {
		return fmt.Errorf("%w: transaction_fee is required", ErrValidation)
	}

	if p.TransactionFee.IsNegative() {
		return fmt.Errorf("%w: transaction_fee must not be negative", ErrValidation)
	}

	return nil
}

// Settlement returns the settlement currency, defaulting to the source
// currency.
func (p *PaymentCapturedPayload) Settlement() string {
	if p.SettlementCurrency != "" {
		return p.SettlementCurrency
	}

	return p.Currency
}

// PaymentRefundedPayload carries a full refund.
type PaymentRefundedPayload struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	MerchantID    string          `json:"merchant_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

func (p *PaymentRefundedPayload) EventType() EventType { return EventPaymentRefunded }

func (p *PaymentRefundedPayload) Validate() error {
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	if p.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrValidation)
	}

	if p.MerchantID == "" {
		return fmt.Errorf("%w: merchant_id is required", ErrValidation)
	}

	return nil
}

// PaymentPartiallyRefundedPayload carries a partial refund.
type PaymentPartiallyRefundedPayload struct {
	OriginalAmount decimal.Decimal `json:"original_amount"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
	Currency       string          `json:"currency"`
	MerchantID     string          `json:"merchant_id"`
	TransactionID  string          `json:"transaction_id,omitempty"`
}

func (p *PaymentPartiallyRefundedPayload) EventType() EventType {
	return EventPaymentPartiallyRefunded
}

func (p *PaymentPartiallyRefundedPayload) Validate() error {
	if !p.OriginalAmount.IsPositive() {
		return fmt.Errorf("%w: original_amount must be positive", ErrValidation)
	}

	if !p.RefundAmount.IsPositive() {
		return fmt.Errorf("%w: refund_amount must be positive", ErrValidation)
	}

	if p.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrValidation)
	}

	if p.MerchantID == "" {
		return fmt.Errorf("%w: merchant_id is required", ErrValidation)
	}

	if p.RefundAmount.GreaterThan(p.OriginalAmount) {
		return fmt.Errorf("%w: refund %s exceeds original %s",
			ErrRefundExceedsOriginal, p.RefundAmount, p.OriginalAmount)
	}

	return nil
}

// ProcessorFeeChargedPayload books the processor's expense for a captured
// amount, using the payment_processing percentage from the rate table.
type ProcessorFeeChargedPayload struct {
	CapturedAmount decimal.Decimal `json:"captured_amount"`
	Currency       string          `json:"currency"`
	TransactionID  string          `json:"transaction_id,omitempty"`
}

func (p *ProcessorFeeChargedPayload) EventType() EventType { return EventProcessorFeeCharged }

func (p *ProcessorFeeChargedPayload) Validate() error {
	if !p.CapturedAmount.IsPositive() {
		return fmt.Errorf("%w: captured_amount must be positive", ErrValidation)
	}

	if p.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrValidation)
	}

	return nil
}

// ParseEventPayload decodes and validates the payload for an event type.
func ParseEventPayload(eventType EventType, raw json.RawMessage) (EventPayload, error) {
	var payload EventPayload

	switch eventType {
	case EventPaymentCaptured:
		payload = &PaymentCapturedPayload{}
	case EventPaymentRefunded:
		payload = &PaymentRefundedPayload{}
	case EventPaymentPartiallyRefunded:
		payload = &PaymentPartiallyRefundedPayload{}
	case EventProcessorFeeCharged:
		payload = &ProcessorFeeChargedPayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrValidation, err)
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return payload, nil
}
