package auth

import (
	"net/http"
	"strings"

	"github.com/prontivus/prontivus/internal/shared"
)

// Middleware extracts and verifies the Bearer credential, placing its claims
// in the request context. Requests without a token pass through
// unauthenticated; guards decide whether that is acceptable per route.
func Middleware(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := issuer.ParseAccess(strings.TrimSpace(token))
			if err != nil {
				// Expired or tampered credential: treat as unauthenticated.
				next.ServeHTTP(w, r)
				return
			}
			ctx := shared.ContextWithClaims(r.Context(), claims.SharedClaims())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
