package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Nature    string          `json:"nature"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Balance   decimal.Decimal `json:"balance"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Nature:    string(a.Nature),
		Currency:  a.Currency,
		Status:    string(a.Status),
		Balance:   a.Balance,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}

	return result
}

// ListAccountsResponse wraps an account listing.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID              string          `json:"id"`
	EntryGroupID    string          `json:"entry_group_id"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	EventID         string          `json:"event_id,omitempty"`
	AccountID       string          `json:"account_id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	IsReversal      bool            `json:"is_reversal"`
	IsReversed      bool            `json:"is_reversed"`
	OriginalEntryID string          `json:"original_entry_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:              e.ID,
		EntryGroupID:    e.EntryGroupID,
		TransactionID:   e.TransactionID,
		EventID:         e.EventID,
		AccountID:       e.AccountID,
		Type:            string(e.Type),
		Amount:          e.Amount,
		Currency:        e.Currency,
		Description:     e.Description,
		Metadata:        e.Metadata,
		IsReversal:      e.IsReversal,
		IsReversed:      e.IsReversed,
		OriginalEntryID: e.OriginalEntryID,
		CreatedAt:       e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}

	return result
}

// PostEventResponse is the committed outcome of posting an event.
type PostEventResponse struct {
	EventID      string           `json:"event_id"`
	EventType    string           `json:"event_type"`
	EntryGroupID string           `json:"entry_group_id"`
	Entries      []*EntryResponse `json:"entries"`
}

// PostEventFromResult converts a posting result to a response.
func PostEventFromResult(result *usecase.PostEventResult) *PostEventResponse {
	return &PostEventResponse{
		EventID:      result.Event.ID,
		EventType:    string(result.Event.Type),
		EntryGroupID: result.EntryGroupID,
		Entries:      EntriesFromDomain(result.Entries),
	}
}

// EntryGroupResponse is a full entry group with its balance check.
type EntryGroupResponse struct {
	EntryGroupID string           `json:"entry_group_id"`
	Entries      []*EntryResponse `json:"entries"`
	TotalDebits  decimal.Decimal  `json:"total_debits"`
	TotalCredits decimal.Decimal  `json:"total_credits"`
	Balanced     bool             `json:"balanced"`
}

// EntryGroupFromDomain converts a group of entries to a response.
func EntryGroupFromDomain(groupID string, entries []*domain.Entry) *EntryGroupResponse {
	debits, credits := domain.GroupTotals(entries)

	return &EntryGroupResponse{
		EntryGroupID: groupID,
		Entries:      EntriesFromDomain(entries),
		TotalDebits:  debits,
		TotalCredits: credits,
		Balanced:     domain.GroupBalances(entries),
	}
}

// ReverseResponse is the committed inverse group.
type ReverseResponse struct {
	EntryGroupID string           `json:"entry_group_id"`
	Entries      []*EntryResponse `json:"entries"`
}

// PaginationResponse describes one page of a listing.
type PaginationResponse struct {
	Page         int   `json:"page"`
	PageSize     int   `json:"page_size"`
	TotalPages   int   `json:"total_pages"`
	TotalEntries int64 `json:"total_entries"`
}

// ListEntriesResponse wraps a paginated entry listing.
type ListEntriesResponse struct {
	Entries    []*EntryResponse   `json:"entries"`
	Pagination PaginationResponse `json:"pagination"`
}

// ListEntriesFromPage converts a usecase entry page to a response.
func ListEntriesFromPage(page *usecase.EntryPage) *ListEntriesResponse {
	return &ListEntriesResponse{
		Entries: EntriesFromDomain(page.Entries),
		Pagination: PaginationResponse{
			Page:         page.Pagination.Page,
			PageSize:     page.Pagination.PageSize,
			TotalPages:   page.Pagination.TotalPages,
			TotalEntries: page.Pagination.TotalEntries,
		},
	}
}

// ConsistencyResponse reports a ledger-wide balance check.
type ConsistencyResponse struct {
	Consistent bool      `json:"consistent"`
	CheckedAt  time.Time `json:"checked_at"`
}

// ReconciliationResponse compares a stored balance with its entry replay.
type ReconciliationResponse struct {
	AccountID         string          `json:"account_id"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	Reconciled        bool            `json:"reconciled"`
	CheckedAt         time.Time       `json:"checked_at"`
}

// ReconciliationFromResult converts a reconciliation result to a response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:         r.AccountID,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		Difference:        r.Difference,
		Reconciled:        r.IsReconciled,
		CheckedAt:         r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
