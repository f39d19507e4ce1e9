package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/finpost/ledger/internal/domain"
)

// RateTableService exposes the live conversion rate configuration.
type RateTableService interface {
	Current() *domain.RateTable
	Replace(table *domain.RateTable) error
}

// ConfigHandler handles runtime configuration requests.
type ConfigHandler struct {
	rates RateTableService
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(rates RateTableService) *ConfigHandler {
	return &ConfigHandler{rates: rates}
}

// GetRates returns the rate table currently used for postings.
func (h *ConfigHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rates.Current())
}

// UpdateRates atomically replaces the rate table. Postings already in flight
// keep the snapshot they started with.
func (h *ConfigHandler) UpdateRates(w http.ResponseWriter, r *http.Request) {
	var table domain.RateTable
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.rates.Replace(&table); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, "invalid rate table", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update rates", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.rates.Current())
}
