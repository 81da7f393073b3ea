package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"pleura/services/search"
	"pleura/services/tmdb"
)

// searchSessionTTL evicts sessions for clients that have gone away.
const searchSessionTTL = 30 * time.Minute

type sessionEntry struct {
	session  *search.Session
	lastSeen time.Time
}

// SearchHandler owns one search session per client, keyed by the
// X-Client-ID header. Each session carries its own debounce timer, selector
// and accumulated pages.
type SearchHandler struct {
	resolver *search.Resolver
	debounce time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSearchHandler creates the handler. A debounce of zero uses the session
// default.
func NewSearchHandler(resolver *search.Resolver, debounce time.Duration) *SearchHandler {
	h := &SearchHandler{
		resolver: resolver,
		debounce: debounce,
		sessions: make(map[string]*sessionEntry),
		stop:     make(chan struct{}),
	}
	go h.evictLoop()
	return h
}

// Close shuts down every client session and the eviction loop.
func (h *SearchHandler) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, entry := range h.sessions {
		entry.session.Close()
		delete(h.sessions, id)
	}
}

func (h *SearchHandler) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.mu.Lock()
			for id, entry := range h.sessions {
				if time.Since(entry.lastSeen) > searchSessionTTL {
					entry.session.Close()
					delete(h.sessions, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// sessionFor returns the client's session, creating it on first use.
func (h *SearchHandler) sessionFor(clientID string) *search.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.sessions[clientID]
	if !ok {
		entry = &sessionEntry{session: search.NewSession(h.resolver, h.debounce)}
		h.sessions[clientID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.session
}

func (h *SearchHandler) requireClient(w http.ResponseWriter, r *http.Request) (*search.Session, bool) {
	clientID := strings.TrimSpace(r.Header.Get("X-Client-ID"))
	if clientID == "" {
		writeJSONError(w, http.StatusBadRequest, "X-Client-ID header is required")
		return nil, false
	}
	return h.sessionFor(clientID), true
}

// Categories returns the genre tile grid and studio shortcuts shown before
// any query is typed.
func (h *SearchHandler) Categories(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"genres":    tmdb.GenreTiles,
		"companies": tmdb.CompanyList,
	})
}

// Input records a keystroke. The response is the immediate state; the
// resolution lands after the debounce window and is visible via State.
func (h *SearchHandler) Input(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireClient(w, r)
	if !ok {
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	session.SetQuery(body.Text)
	writeState(w, session.Snapshot())
}

// SetType switches the free-text filter chip.
func (h *SearchHandler) SetType(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireClient(w, r)
	if !ok {
		return
	}

	var body struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	session.SetSearchType(search.ParseSearchType(body.Type))
	writeState(w, session.Snapshot())
}

// Apply enters the search surface through deep-link parameters.
func (h *SearchHandler) Apply(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireClient(w, r)
	if !ok {
		return
	}

	var params search.Params
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	writeState(w, session.Apply(params))
}

// Genre enters the drill-down for a genre tile.
func (h *SearchHandler) Genre(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireClient(w, r)
	if !ok {
		return
	}

	var body struct {
		GenreID int64 `json:"genreId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if body.GenreID == 0 {
		writeJSONError(w, http.StatusBadRequest, "genreId is required")
		return
	}

	writeState(w, session.SelectCategory(body.GenreID))
}

// More appends the next result page.
func (h *SearchHandler) More(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireClient(w, r)
	if !ok {
		return
	}

	loaded := session.LoadMore()
	st := session.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"loaded": loaded,
		"state":  st,
	})
}

// State returns the current session snapshot.
func (h *SearchHandler) State(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireClient(w, r)
	if !ok {
		return
	}
	writeState(w, session.Snapshot())
}

// Clear resets the session to the categories view.
func (h *SearchHandler) Clear(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireClient(w, r)
	if !ok {
		return
	}
	session.Clear()
	writeState(w, session.Snapshot())
}

// Options handles CORS preflight requests.
func (h *SearchHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeState(w http.ResponseWriter, st search.State) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}
