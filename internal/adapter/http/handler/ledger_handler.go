package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/finpost/ledger/internal/adapter/http/dto"
	"github.com/finpost/ledger/internal/usecase"
)

// ReversalService defines the behavior needed for reversing entry groups.
type ReversalService interface {
	Reverse(ctx context.Context, input usecase.ReverseInput) (*usecase.ReverseResult, error)
}

// LedgerService defines ledger-wide checks needed by LedgerHandler.
type LedgerService interface {
	CheckConsistency(ctx context.Context) (bool, error)
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
}

// LedgerHandler handles reversals and ledger-wide operations.
type LedgerHandler struct {
	reversalUC ReversalService
	ledgerUC   LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reversalUC ReversalService, ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{
		reversalUC: reversalUC,
		ledgerUC:   ledgerUC,
	}
}

// Reverse posts the inverse of an entry group. The request body is optional;
// it may carry a reason recorded on the inverse entries.
func (h *LedgerHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing entry group ID", "")
		return
	}

	var req dto.ReverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.reversalUC.Reverse(r.Context(), usecase.ReverseInput{
		EntryGroupID: groupID,
		Reason:       req.Reason,
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reverse entry group", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, &dto.ReverseResponse{
		EntryGroupID: result.EntryGroupID,
		Entries:      dto.EntriesFromDomain(result.Entries),
	})
}

// CheckConsistency verifies that total debits equal total credits.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	consistent, err := h.ledgerUC.CheckConsistency(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrInconsistentLedger) {
			writeJSON(w, http.StatusConflict, &dto.ConsistencyResponse{
				Consistent: false,
				CheckedAt:  time.Now().UTC(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to check consistency", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &dto.ConsistencyResponse{
		Consistent: consistent,
		CheckedAt:  time.Now().UTC(),
	})
}

// Reconcile compares an account's stored balance with its entry replay.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	result, err := h.ledgerUC.ReconcileAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reconcile account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromResult(result))
}
