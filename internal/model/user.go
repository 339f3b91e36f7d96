package model

import "slices"

// Identity is the authenticated caller as vouched for by the identity
// provider.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Roles.
const (
	RoleFinder  = "finder"
	RoleClaimer = "claimer"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one the service understands.
func ValidRole(role string) bool {
	return role == RoleFinder || role == RoleClaimer || role == RoleAdmin
}

// RoleIn checks if role is one of the allowed roles. Unknown roles never match.
func RoleIn(role string, allowed ...string) bool {
	return ValidRole(role) && slices.Contains(allowed, role)
}
