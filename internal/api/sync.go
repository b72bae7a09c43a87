package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/history"
	"github.com/lumadocs/driveline/internal/logger"
)

const defaultHistoryLimit = 20

// syncHandler serves the sync endpoints
type syncHandler struct {
	svc SyncController
	log logger.Logger
}

// trigger starts one sync pass in the background. A pass already in
// progress is reported as a conflict, not started twice.
func (h *syncHandler) trigger(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.svc.StartSync(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			writeError(w, http.StatusConflict, "sync_in_progress", err.Error(), h.log)
			return
		}
		h.log.Error("failed to start sync pass", "error", err)
		writeError(w, http.StatusInternalServerError, "sync_failed", err.Error(), h.log)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "started",
		"owner_id": ownerID,
	}, h.log)
}

func (h *syncHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status(), h.log)
}

func (h *syncHandler) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", h.log)
			return
		}
		limit = n
	}

	records, err := h.svc.History(limit)
	if err != nil {
		h.log.Error("failed to load pass history", "error", err)
		writeError(w, http.StatusInternalServerError, "history_failed", err.Error(), h.log)
		return
	}
	if records == nil {
		records = []history.PassRecord{}
	}

	writeJSON(w, http.StatusOK, records, h.log)
}

func (h *syncHandler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ForceReset(); err != nil {
		h.log.Error("force reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reset_failed", err.Error(), h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"}, h.log)
}

func (h *syncHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.log)
}
