package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"pleura/internal/auth"
	"pleura/models"
	"pleura/services/mylist"
	"pleura/services/users"
)

// myListCacheTTL evicts caches for users that have gone away.
const myListCacheTTL = 30 * time.Minute

type cacheEntry struct {
	cache    *mylist.Cache
	lastSeen time.Time
}

// MyListHandler serves the saved-titles list. Membership checks go through
// a per-user cache fed by the document store, so they never re-read disk.
type MyListHandler struct {
	users *users.Service

	mu       sync.Mutex
	caches   map[string]*cacheEntry
	stop     chan struct{}
	stopOnce sync.Once
}

func NewMyListHandler(usersSvc *users.Service) *MyListHandler {
	h := &MyListHandler{
		users:  usersSvc,
		caches: make(map[string]*cacheEntry),
		stop:   make(chan struct{}),
	}
	go h.evictLoop()
	return h
}

// Close releases every membership cache subscription and the eviction loop.
func (h *MyListHandler) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, entry := range h.caches {
		entry.cache.Close()
		delete(h.caches, id)
	}
}

func (h *MyListHandler) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.evictIdle(time.Now())
		}
	}
}

func (h *MyListHandler) evictIdle(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, entry := range h.caches {
		if now.Sub(entry.lastSeen) > myListCacheTTL {
			entry.cache.Close()
			delete(h.caches, id)
		}
	}
}

func (h *MyListHandler) cacheFor(userID string) *mylist.Cache {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.caches[userID]
	if !ok {
		entry = &cacheEntry{cache: mylist.NewCache(h.users, userID)}
		h.caches[userID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.cache
}

// List returns the user's saved titles in stored order.
func (h *MyListHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"items": h.cacheFor(userID).Items()})
}

// Toggle flips membership for an item and reports the resulting state.
func (h *MyListHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var item models.ContentItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if item.ID == 0 {
		writeJSONError(w, http.StatusBadRequest, "item id is required")
		return
	}

	member, err := h.cacheFor(userID).Toggle(item)
	if err != nil {
		writeJSONError(w, userErrorStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"member": member})
}

// Add saves an item to the list. Saving a present item succeeds silently.
func (h *MyListHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var item models.ContentItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := h.users.AddToList(userID, item); err != nil {
		writeJSONError(w, userErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Remove deletes the entry matching the path's media type and id. Removing
// an absent entry still returns 204.
func (h *MyListHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	mediaType := models.MediaType(vars["mediaType"])
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		writeJSONError(w, http.StatusBadRequest, "mediaType must be movie or tv")
		return
	}

	item := models.ContentItem{ID: id, MediaType: mediaType}
	if err := h.users.RemoveFromList(userID, item); err != nil {
		writeJSONError(w, userErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Contains answers a membership probe for one title.
func (h *MyListHandler) Contains(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	mediaType := models.MediaType(r.URL.Query().Get("type"))
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		writeJSONError(w, http.StatusBadRequest, "type must be movie or tv")
		return
	}

	member := h.cacheFor(userID).IsMember(models.ContentItem{ID: id, MediaType: mediaType})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"member": member})
}

// Options handles CORS preflight requests.
func (h *MyListHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// requireOwner resolves the path user and checks the session owns it.
func (h *MyListHandler) requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(mux.Vars(r)["userID"])
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "user id is required")
		return "", false
	}
	if _, ok := h.users.Get(userID); !ok {
		writeJSONError(w, http.StatusNotFound, "user not found")
		return "", false
	}
	if accountID := auth.GetAccountID(r); accountID != "" && accountID != userID {
		writeJSONError(w, http.StatusForbidden, "not your list")
		return "", false
	}
	return userID, true
}

// userErrorStatus maps user service errors to HTTP status codes.
func userErrorStatus(err error) int {
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, users.ErrUserIDRequired), errors.Is(err, users.ErrItemIDRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
