package auth

import (
	"context"
	"net/http"
	"strings"
)

type emailKey struct{}

// Middleware extracts a bearer token from the Authorization header and, if
// valid, injects the authenticated email into the request context. Invalid
// or missing tokens are ignored here; use Require to enforce.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			email, err := ValidateAccessToken(secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), emailKey{}, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EmailFromContext returns the authenticated email, or "" when the request
// carries no valid credential.
func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(emailKey{}).(string)
	return email
}

// Require rejects requests that carry no authenticated identity.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if EmailFromContext(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Could not validate credentials"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
