package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventPayload(t *testing.T) {
	t.Run("payment captured", func(t *testing.T) {
		raw := json.RawMessage(`{
			"amount": "250.00",
			"currency": "USD",
			"merchant_id": "m-42",
			"transaction_fee": "7.55",
			"settlement_currency": "EUR",
			"transaction_id": "tx-1"
		}`)

		payload, err := ParseEventPayload(EventPaymentCaptured, raw)
		require.NoError(t, err)

		captured, ok := payload.(*PaymentCapturedPayload)
		require.True(t, ok)
		assert.True(t, captured.Amount.Equal(decimal.RequireFromString("250")))
		assert.Equal(t, "EUR", captured.Settlement())
	})

	t.Run("settlement defaults to source currency", func(t *testing.T) {
		raw := json.RawMessage(`{"amount": "10", "currency": "GBP", "merchant_id": "m-1", "transaction_fee": "0"}`)

		payload, err := ParseEventPayload(EventPaymentCaptured, raw)
		require.NoError(t, err)
		assert.Equal(t, "GBP", payload.(*PaymentCapturedPayload).Settlement())
	})

	t.Run("zero transaction fee is valid, missing is not", func(t *testing.T) {
		_, err := ParseEventPayload(EventPaymentCaptured,
			json.RawMessage(`{"amount": "10", "currency": "USD", "merchant_id": "m-1", "transaction_fee": "0"}`))
		require.NoError(t, err)

		_, err = ParseEventPayload(EventPaymentCaptured,
			json.RawMessage(`{"amount": "10", "currency": "USD", "merchant_id": "m-1"}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("partial refund exceeding original", func(t *testing.T) {
		raw := json.RawMessage(`{
			"original_amount": "100",
			"refund_amount": "100.01",
			"currency": "USD",
			"merchant_id": "m-1"
		}`)

		_, err := ParseEventPayload(EventPaymentPartiallyRefunded, raw)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRefundExceedsOriginal)
	})

	t.Run("partial refund equal to original", func(t *testing.T) {
		raw := json.RawMessage(`{
			"original_amount": "100",
			"refund_amount": "100",
			"currency": "USD",
			"merchant_id": "m-1"
		}`)

		_, err := ParseEventPayload(EventPaymentPartiallyRefunded, raw)
		require.NoError(t, err)
	})

	t.Run("unknown event type", func(t *testing.T) {
		_, err := ParseEventPayload("invoice.settled", json.RawMessage(`{}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownEventType)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := ParseEventPayload(EventPaymentRefunded, json.RawMessage(`{"amount": [}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestPayloadValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload EventPayload
		wantErr error
	}{
		{
			name: "refund missing currency",
			payload: &PaymentRefundedPayload{
				Amount:     decimal.NewFromInt(10),
				MerchantID: "m-1",
			},
			wantErr: ErrValidation,
		},
		{
			name: "refund non-positive amount",
			payload: &PaymentRefundedPayload{
				Amount:     decimal.Zero,
				Currency:   "USD",
				MerchantID: "m-1",
			},
			wantErr: ErrValidation,
		},
		{
			name: "processor fee missing amount",
			payload: &ProcessorFeeChargedPayload{
				Currency: "USD",
			},
			wantErr: ErrValidation,
		},
		{
			name: "captured negative fee",
			payload: &PaymentCapturedPayload{
				Amount:         decimal.NewFromInt(10),
				Currency:       "USD",
				MerchantID:     "m-1",
				TransactionFee: ptr(decimal.NewFromInt(-1)),
			},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }
