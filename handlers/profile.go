package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"pleura/internal/auth"
	"pleura/models"
	"pleura/services/users"
)

// ProfileHandler serves the user profile document.
type ProfileHandler struct {
	users *users.Service
}

func NewProfileHandler(usersSvc *users.Service) *ProfileHandler {
	return &ProfileHandler{users: usersSvc}
}

// Get returns the profile document.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	user, found := h.users.Get(userID)
	if !found {
		writeJSONError(w, http.StatusNotFound, "user not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Update applies a partial profile write. Absent fields stay untouched.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var update models.ProfileUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&update); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if update.Avatar != nil && (*update.Avatar < 1 || *update.Avatar > 12) {
		writeJSONError(w, http.StatusBadRequest, "avatar must be between 1 and 12")
		return
	}

	user, err := h.users.UpdateProfile(userID, update)
	if err != nil {
		writeJSONError(w, userErrorStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Options handles CORS preflight requests.
func (h *ProfileHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *ProfileHandler) requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(mux.Vars(r)["userID"])
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "user id is required")
		return "", false
	}
	if accountID := auth.GetAccountID(r); accountID != "" && accountID != userID {
		writeJSONError(w, http.StatusForbidden, "not your profile")
		return "", false
	}
	return userID, true
}
