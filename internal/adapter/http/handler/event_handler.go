package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/finpost/ledger/internal/adapter/http/dto"
	"github.com/finpost/ledger/internal/usecase"
)

// PostingService defines the behavior needed by EventHandler.
type PostingService interface {
	PostEvent(ctx context.Context, input usecase.PostEventInput) (*usecase.PostEventResult, error)
}

// EventHandler handles business event submissions.
type EventHandler struct {
	postingUC PostingService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(postingUC PostingService) *EventHandler {
	return &EventHandler{postingUC: postingUC}
}

// Post accepts a business event and commits its ledger entries.
func (h *EventHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req dto.PostEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.EventType == "" {
		writeError(w, http.StatusBadRequest, "missing event_type", "")
		return
	}

	result, err := h.postingUC.PostEvent(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to post event", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.PostEventFromResult(result))
}
