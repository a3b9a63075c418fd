// Package rbac gates routes by the role carried in the JWT claims.
package rbac

import (
	"net/http"
	"slices"

	"github.com/anfisaforfriends/anfisa/pkg/middleware"
	"github.com/anfisaforfriends/anfisa/pkg/response"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleUser  = "user"
)

// Roles lists every known role.
var Roles = []string{RoleAdmin, RoleStaff, RoleUser}

// IsStaff reports whether role may manage the catalog.
func IsStaff(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}

// Valid reports whether role is known.
func Valid(role string) bool {
	return slices.Contains(Roles, role)
}

// HasRole allows the request only when middleware.Auth stored one of roles.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !slices.Contains(roles, role) {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
