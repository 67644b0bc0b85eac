package httpx

import (
	"net/http"
	"slices"
	"strings"
)

// RequireAnyRole rejects callers whose token role is not one of roles. It
// must run after AuthnMiddleware. Services re-check roles against stored
// membership; this only turns away obvious misses early.
func RequireAnyRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			role := strings.ToLower(strings.TrimSpace(claims.Role))
			if !ok || !slices.Contains(roles, role) {
				WriteError(w, http.StatusForbidden, "permission_denied",
					"requires role "+strings.Join(roles, " or "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
