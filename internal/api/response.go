package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/reclaim/internal/model"
)

// Error codes returned in the "code" field of error responses.
const (
	codeBadRequest        = "bad_request"
	codeValidation        = "validation"
	codeNotFound          = "not_found"
	codeInvalidTarget     = "invalid_target"
	codeIllegalTransition = "illegal_transition"
	codeConflict          = "conflict"
	codeUnauthorized      = "unauthorized"
	codeForbidden         = "forbidden"
	codeRateLimited       = "rate_limited"
	codeInternal          = "internal"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, errorResponse{Error: message, Code: code})
}

// writeError maps a domain error to its HTTP status. Anything unrecognized is
// logged and reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		jsonError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidTarget):
		jsonError(w, http.StatusUnprocessableEntity, codeInvalidTarget, err.Error())
	case errors.Is(err, model.ErrIllegalTransition):
		jsonError(w, http.StatusConflict, codeIllegalTransition, err.Error())
	case errors.Is(err, model.ErrConflict):
		jsonError(w, http.StatusConflict, codeConflict, err.Error())
	default:
		slog.Error("request failed", "error", err, "path", r.URL.Path, "request_id", RequestID(r.Context()))
		jsonError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

type decisionRequest struct {
	Approve *bool `json:"approve"`
}

// decodeDecision reads a {"approve": bool} body. A missing field is an error
// rather than a silent rejection.
func decodeDecision(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return false, false
	}
	if req.Approve == nil {
		jsonError(w, http.StatusBadRequest, codeValidation, "approve: is required")
		return false, false
	}
	return *req.Approve, true
}
