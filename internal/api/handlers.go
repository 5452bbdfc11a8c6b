// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/sellerpulse/sellerpulse/internal/logging"
	"github.com/sellerpulse/sellerpulse/internal/models"
)

// SyncTrigger runs one organization's sync synchronously. Implemented by
// sync.Manager so manual triggers serialize against scheduled runs.
type SyncTrigger interface {
	TriggerSync(ctx context.Context, orgID int64) *models.SyncRunSummary
}

// RunStore reads the sync audit trail. Implemented by *database.DB.
type RunStore interface {
	LastSyncRun(ctx context.Context, orgID int64) (*models.SyncRunSummary, error)
}

// Handlers holds the API handlers and their collaborators.
type Handlers struct {
	trigger SyncTrigger
	runs    RunStore
}

// NewHandlers creates the API handlers.
func NewHandlers(trigger SyncTrigger, runs RunStore) *Handlers {
	return &Handlers{trigger: trigger, runs: runs}
}

// TriggerSync handles POST /api/v1/sync/{orgID}. The call blocks until the
// deadline-bounded run finishes and returns the full summary; partial
// failures are reflected in the body, not the status code.
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDParam(w, r)
	if !ok {
		return
	}

	summary := h.trigger.TriggerSync(r.Context(), orgID)
	respondJSON(w, http.StatusOK, summary)
}

// SyncStatus handles GET /api/v1/sync/{orgID}/status, returning the most
// recent run for the organization.
func (h *Handlers) SyncStatus(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDParam(w, r)
	if !ok {
		return
	}

	summary, err := h.runs.LastSyncRun(r.Context(), orgID)
	if err != nil {
		logging.Error().Err(err).Int64("org_id", orgID).Msg("Failed to load last sync run")
		writeError(w, http.StatusInternalServerError, "failed to load sync status")
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "organization has never been synced")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func orgIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	orgID, err := strconv.ParseInt(chi.URLParam(r, "orgID"), 10, 64)
	if err != nil || orgID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid organization id")
		return 0, false
	}
	return orgID, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}
