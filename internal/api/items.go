package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/store"
	"github.com/erazemk/reclaim/internal/verification"
)

// ItemsHandler handles item report endpoints.
type ItemsHandler struct {
	Svc *verification.Service
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentity(r.Context())

	var in model.ItemReportInput
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	item, err := h.Svc.SubmitItemReport(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item reported", "user", id.UserID, "item", item.ID, "type", item.ItemType)
	jsonResponse(w, http.StatusCreated, item)
}

// List handles GET /api/items. Admins see every report, finders their own,
// and claimers the verified board without answers.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentity(r.Context())

	status := model.ItemStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		jsonError(w, http.StatusBadRequest, codeValidation, "invalid status")
		return
	}

	f := store.ItemFilter{Status: status}
	redact := false
	switch id.Role {
	case model.RoleFinder:
		f.ReporterID = id.UserID
	case model.RoleClaimer:
		if status != "" && status != model.ItemStatusVerified {
			jsonResponse(w, http.StatusOK, []model.ItemReport{})
			return
		}
		f.Status = model.ItemStatusVerified
		redact = true
	}

	items := []model.ItemReport{}
	for item, err := range h.Svc.ItemReports(r.Context(), f) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		if redact {
			item = item.Redacted()
		}
		items = append(items, item)
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentity(r.Context())
	itemID := r.PathValue("id")

	item, err := h.Svc.ItemReport(r.Context(), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	switch {
	case id.Role == model.RoleAdmin, item.ReporterID == id.UserID:
		jsonResponse(w, http.StatusOK, item)
	case id.Role == model.RoleClaimer && item.Status == model.ItemStatusPending:
		// Unverified reports are not public.
		writeError(w, r, &model.NotFoundError{Entity: "item report", ID: itemID})
	default:
		jsonResponse(w, http.StatusOK, item.Redacted())
	}
}

// Decide handles POST /api/items/{id}/decision.
func (h *ItemsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentity(r.Context())

	approve, ok := decodeDecision(w, r)
	if !ok {
		return
	}

	item, err := h.Svc.DecideItem(r.Context(), id, r.PathValue("id"), approve)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if approve {
		slog.Info("item verified", "user", id.UserID, "item", item.ID)
	} else {
		slog.Info("item rejected", "user", id.UserID, "item", item.ID)
	}
	jsonResponse(w, http.StatusOK, item)
}
