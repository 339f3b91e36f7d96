package api

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/obs"
	"github.com/erazemk/reclaim/internal/verification"
)

// Config holds the router settings.
type Config struct {
	// JWTSecret verifies identity-provider tokens.
	JWTSecret string
	// ClaimRate and ClaimBurst limit claim submissions per claimant.
	ClaimRate  rate.Limit
	ClaimBurst int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svc *verification.Service, cfg Config) http.Handler {
	mux := http.NewServeMux()

	itemsHandler := &ItemsHandler{Svc: svc}
	claimsHandler := &ClaimsHandler{Svc: svc, Limiter: NewClaimLimiter(cfg.ClaimRate, cfg.ClaimBurst)}
	activityHandler := &ActivityHandler{Svc: svc}

	authMW := AuthMiddleware(cfg.JWTSecret)
	route := func(pattern string, h http.HandlerFunc, roles ...string) {
		mux.Handle(pattern, obs.Instrument(authMW(RequireRole(roles...)(h))))
	}

	const (
		finder  = model.RoleFinder
		claimer = model.RoleClaimer
		admin   = model.RoleAdmin
	)

	// Item reports.
	route("POST /api/items", itemsHandler.Create, finder)
	route("GET /api/items", itemsHandler.List, finder, claimer, admin)
	route("GET /api/items/{id}", itemsHandler.Get, finder, claimer, admin)
	route("POST /api/items/{id}/decision", itemsHandler.Decide, admin)

	// Claims.
	route("POST /api/claims", claimsHandler.Create, claimer)
	route("GET /api/claims", claimsHandler.List, claimer, admin)
	route("GET /api/claims/{id}", claimsHandler.Get, claimer, admin)
	route("GET /api/claims/code/{code}", claimsHandler.GetByCode, claimer, admin)
	route("POST /api/claims/{id}/decision", claimsHandler.Decide, admin)

	// Dashboard.
	route("GET /api/activity", activityHandler.List, admin)
	route("GET /api/stats", activityHandler.Stats, admin)

	return LoggingMiddleware(mux)
}
