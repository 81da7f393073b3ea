package search

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"pleura/models"
	"pleura/services/tmdb"
)

// ViewMode tracks which surface the search screen is showing.
type ViewMode string

const (
	// ViewCategories is the initial genre-tile grid.
	ViewCategories ViewMode = "categories"
	// ViewSearch shows flat results for a query or deep-linked selector.
	ViewSearch ViewMode = "search"
	// ViewGenre is the drill-down entered from a genre tile.
	ViewGenre ViewMode = "genre"
)

// DefaultDebounce is the quiescence window for free-text input.
const DefaultDebounce = 500 * time.Millisecond

const pageSize = 20

// State is a point-in-time snapshot of a search session.
type State struct {
	Query        string               `json:"query"`
	ViewMode     ViewMode             `json:"viewMode"`
	Selector     Selector             `json:"selector"`
	SearchType   SearchType           `json:"searchType"`
	Page         int                  `json:"page"`
	TotalPages   int                  `json:"totalPages"`
	TotalResults int                  `json:"totalResults"`
	Results      []models.ContentItem `json:"results"`
	ResultTitle  string               `json:"resultTitle"`
	HasMore      bool                 `json:"hasMore"`
	Exhausted    bool                 `json:"exhausted"`
	Loading      bool                 `json:"loading"`
	LoadingMore  bool                 `json:"loadingMore"`
	Error        string               `json:"error,omitempty"`
}

// Params are the deep-link parameters the search surface accepts. Token is a
// cache-busting value; a changed token re-resolves even when everything else
// is unchanged.
type Params struct {
	Type       string `json:"type,omitempty"`
	Query      string `json:"query,omitempty"`
	GenreID    int64  `json:"genreId,omitempty"`
	CompanyID  int64  `json:"companyId,omitempty"`
	Category   string `json:"category,omitempty"`
	ListID     string `json:"listId,omitempty"`
	Studio     string `json:"studio,omitempty"` // named studio key, e.g. "marvel"
	StudioName string `json:"studioName,omitempty"`
	Token      string `json:"t,omitempty"`
}

// Session is one screen's search state machine: the debounced input, the
// active selector, the accumulated result pages and the view mode. All
// methods are safe for concurrent use. A session holds no goroutines of its
// own apart from pending debounce timers; Close cancels those.
//
// In-flight provider calls are never cancelled. Instead every resolution is
// tagged with a sequence number and a response is discarded if a newer
// resolution has been issued since, so a slow early request cannot overwrite
// a fast later one.
type Session struct {
	resolver *Resolver
	debounce time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	seq    uint64 // bumped by every state-resetting operation

	query        string
	viewMode     ViewMode
	selector     Selector
	searchType   SearchType
	page         int
	totalPages   int
	totalResults int
	accumulated  []models.ContentItem
	resultTitle  string
	exhausted    bool
	loading      bool
	loadingMore  bool
	lastErr      string
}

// NewSession creates a session in the categories view. A debounce of zero
// uses the default window.
func NewSession(resolver *Resolver, debounce time.Duration) *Session {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Session{
		resolver:   resolver,
		debounce:   debounce,
		viewMode:   ViewCategories,
		searchType: SearchTypeMulti,
		page:       1,
	}
}

// SetQuery records a keystroke. Non-empty text schedules a debounced
// resolution, cancelling any pending one. Empty text resets to the
// categories view immediately, but only when no structured selector is
// active; drill-down context survives a cleared text box.
func (s *Session) SetQuery(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.query = text
	s.cancelTimerLocked()

	if strings.TrimSpace(text) == "" {
		if !s.selector.structured() {
			s.resetLocked()
		}
		return
	}

	s.timer = time.AfterFunc(s.debounce, func() {
		s.resolveQuery(text)
	})
}

// SetSearchType switches the free-text filter chip. An active query
// re-resolves immediately, without debouncing.
func (s *Session) SetSearchType(st SearchType) {
	s.mu.Lock()
	s.searchType = st
	query := s.query
	s.mu.Unlock()

	if strings.TrimSpace(query) != "" {
		s.resolveQuery(query)
	}
}

// resolveQuery runs a free-text resolution for text as typed at schedule
// time.
func (s *Session) resolveQuery(text string) {
	s.mu.Lock()
	if s.closed || strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	s.loading = true
	s.lastErr = ""
	s.viewMode = ViewSearch
	s.page = 1
	s.selector = Selector{Query: text}
	sel := s.selector
	st := s.searchType
	s.mu.Unlock()

	res, title, err := s.resolver.Resolve(context.Background(), sel, st, 1)
	s.applyResolution(seq, res, title, err)
}

// Apply enters the session through deep-link parameters. It resolves
// synchronously and returns the resulting state.
func (s *Session) Apply(p Params) State {
	sel := Selector{
		Query:      p.Query,
		GenreID:    p.GenreID,
		ListID:     p.ListID,
		CompanyID:  p.CompanyID,
		Category:   p.Category,
		MediaType:  models.MediaType(p.Type),
		StudioName: p.StudioName,
	}
	if sel.CompanyID == 0 && p.Studio != "" {
		if company, ok := tmdb.Companies[strings.ToLower(p.Studio)]; ok {
			sel.CompanyID = company.ID
			if sel.StudioName == "" {
				sel.StudioName = company.Name
			}
		}
	}

	s.mu.Lock()
	if s.closed {
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}
	s.cancelTimerLocked()
	s.seq++
	seq := s.seq
	s.query = p.Query
	s.selector = sel
	s.viewMode = ViewSearch
	s.loading = true
	s.lastErr = ""
	s.page = 1
	s.accumulated = nil
	s.totalResults = 0
	st := s.searchType
	s.mu.Unlock()

	res, title, err := s.resolver.Resolve(context.Background(), sel, st, 1)
	s.applyResolution(seq, res, title, err)
	return s.Snapshot()
}

// SelectCategory enters the genre drill-down from a genre tile. Tiles are
// movie genres.
func (s *Session) SelectCategory(genreID int64) State {
	s.mu.Lock()
	if s.closed {
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}
	s.cancelTimerLocked()
	s.seq++
	seq := s.seq
	s.query = ""
	s.selector = Selector{GenreID: genreID, MediaType: models.MediaTypeMovie}
	sel := s.selector
	s.viewMode = ViewGenre
	s.loading = true
	s.lastErr = ""
	s.page = 1
	s.accumulated = nil
	s.totalResults = 0
	s.mu.Unlock()

	res, title, err := s.resolver.Resolve(context.Background(), sel, SearchTypeMulti, 1)
	s.applyResolution(seq, res, title, err)
	return s.Snapshot()
}

// applyResolution installs a first-page result unless a newer resolution has
// been issued meanwhile. Provider failures surface as an empty result with a
// non-empty error; the view mode is left where the resolution put it.
func (s *Session) applyResolution(seq uint64, res models.PageResult, title string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		return // superseded
	}
	s.loading = false
	if err != nil {
		log.Printf("[search] resolve failed: %v", err)
		s.accumulated = []models.ContentItem{}
		s.totalPages = 0
		s.totalResults = 0
		s.exhausted = true
		s.resultTitle = title
		s.lastErr = err.Error()
		return
	}
	s.accumulated = res.Items
	s.totalPages = res.TotalPages
	s.totalResults = res.TotalResults
	s.resultTitle = title
	s.lastErr = ""
	s.exhausted = len(res.Items) < pageSize || res.TotalPages <= 1
}

// LoadMore fetches the next page for the currently active selector and
// appends it. It reports false without a request when a fetch is already
// running, the session is loading, or no further pages exist. Failures are
// logged and leave everything but the loadingMore flag untouched.
func (s *Session) LoadMore() bool {
	s.mu.Lock()
	if s.closed || s.loading || s.loadingMore || s.exhausted || s.page >= s.totalPages {
		s.mu.Unlock()
		return false
	}
	s.loadingMore = true
	seq := s.seq
	sel := s.selector
	st := s.searchType
	next := s.page + 1
	s.mu.Unlock()

	res, _, err := s.resolver.Resolve(context.Background(), sel, st, next)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		return false // state was reset while the page was in flight
	}
	s.loadingMore = false
	if err != nil {
		log.Printf("[search] load more failed: %v", err)
		return false
	}
	if len(res.Items) == 0 {
		s.exhausted = true
		return false
	}
	s.accumulated = append(s.accumulated, res.Items...)
	s.page = next
	if next >= s.totalPages {
		s.exhausted = true
	}
	return true
}

// Clear returns the session to the initial categories view. The selector,
// accumulated results, pagination counters and error are reset together.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimerLocked()
	s.resetLocked()
}

// Close cancels any pending debounce timer and makes the session inert, so
// a timer firing after navigation away cannot resolve into dead state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimerLocked()
	s.closed = true
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	results := make([]models.ContentItem, len(s.accumulated))
	copy(results, s.accumulated)
	return State{
		Query:        s.query,
		ViewMode:     s.viewMode,
		Selector:     s.selector,
		SearchType:   s.searchType,
		Page:         s.page,
		TotalPages:   s.totalPages,
		TotalResults: s.totalResults,
		Results:      results,
		ResultTitle:  s.resultTitle,
		HasMore:      !s.exhausted && s.page < s.totalPages,
		Exhausted:    s.exhausted,
		Loading:      s.loading,
		LoadingMore:  s.loadingMore,
		Error:        s.lastErr,
	}
}

func (s *Session) resetLocked() {
	s.seq++
	s.query = ""
	s.viewMode = ViewCategories
	s.selector = Selector{}
	s.searchType = SearchTypeMulti
	s.page = 1
	s.totalPages = 0
	s.totalResults = 0
	s.accumulated = nil
	s.resultTitle = ""
	s.exhausted = false
	s.loading = false
	s.loadingMore = false
	s.lastErr = ""
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
