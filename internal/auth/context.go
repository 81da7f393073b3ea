// Package auth carries the request identity between middleware and handlers.
package auth

import "net/http"

type ContextKey string

const (
	ContextKeyAccountID ContextKey = "accountID"
	ContextKeyIsGuest   ContextKey = "isGuest"
	ContextKeySession   ContextKey = "session"
)

// GetAccountID returns the authenticated account id, or "" when the request
// carried no valid session.
func GetAccountID(r *http.Request) string {
	id, _ := r.Context().Value(ContextKeyAccountID).(string)
	return id
}

// IsGuest reports whether the request's session belongs to a guest account.
func IsGuest(r *http.Request) bool {
	isGuest, _ := r.Context().Value(ContextKeyIsGuest).(bool)
	return isGuest
}
