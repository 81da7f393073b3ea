package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"pleura/models"
	"pleura/services/accounts"
	"pleura/services/sessions"
	"pleura/services/users"
)

// AuthHandler handles sign-up, sign-in and session endpoints.
type AuthHandler struct {
	accounts *accounts.Service
	sessions *sessions.Service
	users    *users.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accountsSvc *accounts.Service, sessionsSvc *sessions.Service, usersSvc *users.Service) *AuthHandler {
	return &AuthHandler{
		accounts: accountsSvc,
		sessions: sessionsSvc,
		users:    usersSvc,
	}
}

// SignUpRequest represents the sign-up request body.
type SignUpRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Avatar      int    `json:"avatar"`
}

// SignInRequest represents the sign-in request body.
type SignInRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
	RememberMe  bool   `json:"rememberMe"`
}

// AuthResponse is returned by sign-up, sign-in, guest and refresh.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	AccountID string       `json:"accountId"`
	IsGuest   bool         `json:"isGuest"`
	User      *models.User `json:"user,omitempty"`
}

const timeLayout = "2006-01-02T15:04:05Z"

// SignUp registers a phone account, creates its profile document and signs
// the new account in.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	account, err := h.accounts.Create(req.PhoneNumber, req.Password)
	if err != nil {
		writeJSONError(w, accountErrorStatus(err), err.Error())
		return
	}

	avatar := req.Avatar
	if avatar < 1 || avatar > 12 {
		avatar = accounts.GuestAvatar()
	}
	user, err := h.users.Create(models.User{
		ID:          account.ID,
		Name:        strings.TrimSpace(req.Name),
		Surname:     strings.TrimSpace(req.Surname),
		Avatar:      avatar,
		PhoneNumber: account.PhoneNumber,
	})
	if err != nil {
		log.Printf("[auth] create profile for %s: %v", account.ID, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to create profile")
		return
	}

	session, err := h.sessions.Create(account.ID, false, r.Header.Get("User-Agent"), getClientIPAddress(r))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeAuth(w, http.StatusCreated, session, account, &user)
}

// SignIn authenticates a phone account and returns a session token.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	account, err := h.accounts.Authenticate(req.PhoneNumber, req.Password)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid phone number or password")
		return
	}

	userAgent := r.Header.Get("User-Agent")
	ipAddress := getClientIPAddress(r)
	var session models.Session
	if req.RememberMe {
		session, err = h.sessions.CreatePersistent(account.ID, false, userAgent, ipAddress)
	} else {
		session, err = h.sessions.Create(account.ID, false, userAgent, ipAddress)
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	var userPtr *models.User
	if user, ok := h.users.Get(account.ID); ok {
		userPtr = &user
	}
	writeAuth(w, http.StatusOK, session, account, userPtr)
}

// Guest creates an anonymous account with a generated display name and a
// persistent session, so the device stays signed in.
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.CreateGuest()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to create guest account")
		return
	}

	user, err := h.users.Create(models.User{
		ID:      account.ID,
		Name:    accounts.GuestName(),
		Avatar:  accounts.GuestAvatar(),
		IsGuest: true,
	})
	if err != nil {
		log.Printf("[auth] create guest profile for %s: %v", account.ID, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to create guest profile")
		return
	}

	session, err := h.sessions.CreatePersistent(account.ID, true, r.Header.Get("User-Agent"), getClientIPAddress(r))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeAuth(w, http.StatusCreated, session, account, &user)
}

// SignOut invalidates the current session.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		http.Error(w, `{"error": "no session token"}`, http.StatusBadRequest)
		return
	}

	if err := h.sessions.Revoke(token); err != nil {
		// Session not found is OK - might already be expired
		if err != sessions.ErrSessionNotFound {
			writeJSONError(w, http.StatusInternalServerError, "failed to revoke session")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "signed out"})
}

// Me returns the current account and its profile document.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	account, ok := h.accounts.Get(session.AccountID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "account not found")
		return
	}

	var userPtr *models.User
	if user, found := h.users.Get(account.ID); found {
		userPtr = &user
	}

	resp := AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(timeLayout),
		AccountID: account.ID,
		IsGuest:   account.IsGuest,
		User:      userPtr,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Refresh extends the session expiration.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	session, err := h.sessions.Refresh(token)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid or expired session")
		return
	}

	account, ok := h.accounts.Get(session.AccountID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "account not found")
		return
	}

	writeAuth(w, http.StatusOK, session, account, nil)
}

// ChangePasswordRequest represents password change request.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword changes the current account's password. Guests have no
// password to change.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	account, ok := h.accounts.Get(session.AccountID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "account not found")
		return
	}
	if account.IsGuest {
		writeJSONError(w, http.StatusForbidden, "guest accounts have no password")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	if _, err := h.accounts.Authenticate(account.PhoneNumber, req.CurrentPassword); err != nil {
		writeJSONError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	if err := h.accounts.UpdatePassword(session.AccountID, req.NewPassword); err != nil {
		writeJSONError(w, accountErrorStatus(err), err.Error())
		return
	}

	// Other devices must sign in again with the new password.
	h.sessions.RevokeOthers(session.AccountID, session.Token)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "password changed"})
}

// Options handles CORS preflight requests.
func (h *AuthHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *AuthHandler) requireSession(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	token := extractBearerToken(r)
	if token == "" {
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
		return models.Session{}, false
	}

	session, err := h.sessions.Validate(token)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid or expired session")
		return models.Session{}, false
	}
	return session, true
}

func writeAuth(w http.ResponseWriter, status int, session models.Session, account models.Account, user *models.User) {
	resp := AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(timeLayout),
		AccountID: account.ID,
		IsGuest:   account.IsGuest,
		User:      user,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// accountErrorStatus maps account service errors to HTTP status codes.
func accountErrorStatus(err error) int {
	switch {
	case errors.Is(err, accounts.ErrPhoneExists):
		return http.StatusConflict
	case errors.Is(err, accounts.ErrPhoneRequired),
		errors.Is(err, accounts.ErrPhoneInvalid),
		errors.Is(err, accounts.ErrPasswordRequired),
		errors.Is(err, accounts.ErrPasswordTooShort):
		return http.StatusBadRequest
	case errors.Is(err, accounts.ErrAccountNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// getClientIPAddress extracts the client IP address from the request.
func getClientIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take the first IP in the chain
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
