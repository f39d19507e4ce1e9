package dto

import (
	"encoding/json"

	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/usecase"
)

// PostEventRequest represents an inbound business event.
type PostEventRequest struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// ToUseCaseInput converts to use case input.
func (r *PostEventRequest) ToUseCaseInput() usecase.PostEventInput {
	return usecase.PostEventInput{
		EventType: domain.EventType(r.EventType),
		Payload:   r.Payload,
	}
}

// ReverseRequest carries the optional reason for reversing an entry group.
type ReverseRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ResolveAccountRequest represents a request to resolve or create an account.
type ResolveAccountRequest struct {
	Name     string         `json:"name"`
	Currency string         `json:"currency"`
	Type     string         `json:"type"`
	Nature   string         `json:"nature,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ResolveAccountRequest) ToUseCaseInput() usecase.ResolveAccountInput {
	return usecase.ResolveAccountInput{
		Name:     r.Name,
		Currency: r.Currency,
		Type:     domain.AccountType(r.Type),
		Nature:   domain.AccountNature(r.Nature),
		Metadata: r.Metadata,
	}
}

// UpdateAccountRequest represents a partial account update. Nil fields are
// left unchanged.
type UpdateAccountRequest struct {
	Name     *string        `json:"name,omitempty"`
	Status   *string        `json:"status,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input for the given account id.
func (r *UpdateAccountRequest) ToUseCaseInput(id string) usecase.UpdateAccountInput {
	input := usecase.UpdateAccountInput{
		ID:       id,
		Name:     r.Name,
		Metadata: r.Metadata,
	}

	if r.Status != nil {
		status := domain.AccountStatus(*r.Status)
		input.Status = &status
	}

	return input
}
