package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"pleura/internal/auth"
	"pleura/services/sessions"
)

// Re-exported so handlers only import one package for request context.
var (
	GetAccountID = auth.GetAccountID
	IsGuest      = auth.IsGuest
)

// AccountAuthMiddleware validates the session token on every request and
// injects the account identity into the request context. OPTIONS passes
// through so CORS preflights never need credentials.
func AccountAuthMiddleware(sessionsSvc *sessions.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "authentication required")
				return
			}

			session, err := sessionsSvc.Validate(token)
			if err != nil {
				unauthorized(w, "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), auth.ContextKeyAccountID, session.AccountID)
			ctx = context.WithValue(ctx, auth.ContextKeyIsGuest, session.IsGuest)
			ctx = context.WithValue(ctx, auth.ContextKeySession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountOnlyMiddleware rejects guest sessions on routes that need a
// registered account.
func AccountOnlyMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if IsGuest(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": "a registered account is required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken pulls the session token from the Authorization header, falling
// back to ?token= for clients that cannot set headers (image loads).
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, rest, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "bearer") {
			if token := strings.TrimSpace(rest); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "` + msg + `"}`))
}
