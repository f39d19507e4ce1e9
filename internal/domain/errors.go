package domain

import "errors"

var (
	// Validation errors
	ErrValidation       = errors.New("validation failed")
	ErrUnknownEventType = errors.New("unknown event type")

	// Lookup errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrEntryGroupNotFound = errors.New("entry group not found")
	ErrEventNotFound      = errors.New("event not found")

	// Posting errors
	ErrCurrencyMismatch        = errors.New("entry currency does not match account currency")
	ErrExchangeRateUnavailable = errors.New("exchange rate unavailable")
	ErrImbalance               = errors.New("entry group does not balance")
	ErrInsufficientFunds       = errors.New("insufficient funds for refund")
	ErrRefundExceedsOriginal   = errors.New("refund amount exceeds original amount")

	// Reversal errors
	ErrAlreadyReversed = errors.New("entry group already reversed")
)
