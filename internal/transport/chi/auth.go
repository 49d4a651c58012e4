package chi

import (
	"context"
	"net/http"
	"strings"
)

type ctxKeyOwner struct{}

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// OwnerFromContext returns the owner resolved by the auth middleware,
// empty when the request was not authenticated.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ctxKeyOwner{}).(string)
	return owner
}

// BearerAuthMiddleware validates Bearer tokens against the key -> owner map
// and stores the resolved owner in the request context. An empty map disables
// authentication (pass-through, no owner is set).
func BearerAuthMiddleware(apiKeys map[string]string) func(http.Handler) http.Handler {
	owners := make(map[string]string, len(apiKeys))
	for key, owner := range apiKeys {
		if key != "" && owner != "" {
			owners[key] = owner
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled — pass everything through
		if len(owners) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			owner, ok := owners[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyOwner{}, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
