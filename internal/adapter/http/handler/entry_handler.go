package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/finpost/ledger/internal/adapter/http/dto"
	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	ListEntries(ctx context.Context, filter usecase.EntryFilter) (*usecase.EntryPage, error)
	GetEntry(ctx context.Context, id string) (*domain.Entry, error)
	GetEntryGroup(ctx context.Context, groupID string) ([]*domain.Entry, error)
}

// EntryHandler handles entry-related HTTP requests.
type EntryHandler struct {
	entryUC EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService) *EntryHandler {
	return &EntryHandler{entryUC: entryUC}
}

// List lists entries matching the query filters.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := entryFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter", err.Error())
		return
	}

	page, err := h.entryUC.ListEntries(r.Context(), filter)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesFromPage(page))
}

// Get retrieves an entry by ID.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	entry, err := h.entryUC.GetEntry(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// GetGroup retrieves an entry group with its debit and credit totals.
func (h *EntryHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing entry group ID", "")
		return
	}

	entries, err := h.entryUC.GetEntryGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get entry group", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryGroupFromDomain(groupID, entries))
}

// ListByAccount lists entries for an account.
func (h *EntryHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	filter, err := entryFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter", err.Error())
		return
	}
	filter.AccountID = accountID

	page, err := h.entryUC.ListEntries(r.Context(), filter)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesFromPage(page))
}

func entryFilterFromQuery(r *http.Request) (usecase.EntryFilter, error) {
	q := r.URL.Query()

	filter := usecase.EntryFilter{
		AccountID:     q.Get("account_id"),
		TransactionID: q.Get("transaction_id"),
		EventID:       q.Get("event_id"),
		Type:          domain.EntryType(q.Get("type")),
		Page:          parseIntQuery(r, "page", 0),
		PageSize:      parseIntQuery(r, "page_size", 0),
	}

	if s := q.Get("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &t
	}

	if s := q.Get("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &t
	}

	if s := q.Get("is_reversal"); s != "" {
		isReversal := s == "true"
		filter.IsReversal = &isReversal
	}

	return filter, nil
}
