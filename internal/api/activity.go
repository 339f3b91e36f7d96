package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/store"
	"github.com/erazemk/reclaim/internal/verification"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 1000
)

// ActivityHandler serves the admin dashboard.
type ActivityHandler struct {
	Svc *verification.Service
}

type activityEntry struct {
	model.ActivityLogEntry
	Label string `json:"label"`
}

// List handles GET /api/activity. Entries come newest first.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	action := model.Action(q.Get("action"))
	if action != "" && !action.Valid() {
		jsonError(w, http.StatusBadRequest, codeValidation, "invalid action")
		return
	}

	limit := defaultActivityLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxActivityLimit {
			jsonError(w, http.StatusBadRequest, codeValidation, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	entries := []activityEntry{}
	for e, err := range h.Svc.Activity(r.Context(), store.ActivityFilter{Action: action, ItemID: q.Get("item_id")}) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		entries = append(entries, activityEntry{ActivityLogEntry: e, Label: e.Action.Label()})
		if len(entries) == limit {
			break
		}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Stats handles GET /api/stats.
func (h *ActivityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
