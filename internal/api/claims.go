package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/store"
	"github.com/erazemk/reclaim/internal/verification"
)

// ClaimsHandler handles claim endpoints.
type ClaimsHandler struct {
	Svc     *verification.Service
	Limiter *ClaimLimiter
}

type createClaimRequest struct {
	ItemID  string   `json:"item_id"`
	Answers []string `json:"answers"`
}

// Create handles POST /api/claims.
func (h *ClaimsHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentity(r.Context())

	if !h.Limiter.Allow(id.UserID) {
		slog.Warn("claim rate limited", "user", id.UserID)
		jsonError(w, http.StatusTooManyRequests, codeRateLimited, "too many claims, try again later")
		return
	}

	var req createClaimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if req.ItemID == "" {
		jsonError(w, http.StatusBadRequest, codeValidation, "item_id: is required")
		return
	}

	claim, err := h.Svc.SubmitClaim(r.Context(), id, req.ItemID, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("claim submitted", "user", id.UserID, "claim", claim.ID, "item", claim.ItemID)
	jsonResponse(w, http.StatusCreated, claim)
}

// List handles GET /api/claims. Claimers only see their own claims.
func (h *ClaimsHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentity(r.Context())
	q := r.URL.Query()

	status := model.ClaimStatus(q.Get("status"))
	if status != "" && !status.Valid() {
		jsonError(w, http.StatusBadRequest, codeValidation, "invalid status")
		return
	}

	f := store.ClaimFilter{Status: status, ItemID: q.Get("item_id")}
	if id.Role != model.RoleAdmin {
		f.ClaimantID = id.UserID
	}

	claims := []model.Claim{}
	for c, err := range h.Svc.Claims(r.Context(), f) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		claims = append(claims, c)
	}
	jsonResponse(w, http.StatusOK, claims)
}

// Get handles GET /api/claims/{id}. Admins get the review with answers side
// by side.
func (h *ClaimsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentity(r.Context())
	claimID := r.PathValue("id")

	if id.Role == model.RoleAdmin {
		review, err := h.Svc.ReviewClaim(r.Context(), claimID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, review)
		return
	}

	claim, err := h.Svc.Claim(r.Context(), claimID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOwn(w, r, id, claim)
}

// GetByCode handles GET /api/claims/code/{code}.
func (h *ClaimsHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentity(r.Context())

	claim, err := h.Svc.ClaimByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if id.Role == model.RoleAdmin {
		jsonResponse(w, http.StatusOK, claim)
		return
	}
	h.writeOwn(w, r, id, claim)
}

// writeOwn answers with claim if it belongs to the caller. Other claims are
// reported as missing.
func (h *ClaimsHandler) writeOwn(w http.ResponseWriter, r *http.Request, id model.Identity, claim *model.Claim) {
	if claim.ClaimantID != id.UserID {
		writeError(w, r, &model.NotFoundError{Entity: "claim", ID: claim.ID})
		return
	}
	jsonResponse(w, http.StatusOK, claim)
}

// Decide handles POST /api/claims/{id}/decision.
func (h *ClaimsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentity(r.Context())

	approve, ok := decodeDecision(w, r)
	if !ok {
		return
	}

	claim, err := h.Svc.DecideClaim(r.Context(), id, r.PathValue("id"), approve)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if approve {
		slog.Info("claim approved", "user", id.UserID, "claim", claim.ID, "code", claim.ClaimCode)
	} else {
		slog.Info("claim rejected", "user", id.UserID, "claim", claim.ID, "code", claim.ClaimCode)
	}
	jsonResponse(w, http.StatusOK, claim)
}
