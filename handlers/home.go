package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/pool"

	"pleura/models"
	"pleura/services/tmdb"
)

// homeProvider is the slice of the TMDB client the home screen needs.
type homeProvider interface {
	Trending(ctx context.Context, mediaType models.MediaType) (models.PageResult, error)
	NowPlaying(ctx context.Context, page int) (models.PageResult, error)
	Popular(ctx context.Context, mediaType models.MediaType, page int) (models.PageResult, error)
	TopRated(ctx context.Context, mediaType models.MediaType, page int) (models.PageResult, error)
	Anime(ctx context.Context, page int) (models.PageResult, error)
	AnimeMovies(ctx context.Context, page int) (models.PageResult, error)
	TopRatedAnime(ctx context.Context, page int) (models.PageResult, error)
}

var _ homeProvider = (*tmdb.Client)(nil)

// HomeSection is one shelf of the home screen. A failed fetch yields an
// empty shelf with the error message, never a failed page.
type HomeSection struct {
	Key   string               `json:"key"`
	Title string               `json:"title"`
	Items []models.ContentItem `json:"items"`
	Error string               `json:"error,omitempty"`
}

// HomeHandler serves the aggregated home screen.
type HomeHandler struct {
	provider homeProvider
	timeout  time.Duration
}

func NewHomeHandler(provider homeProvider) *HomeHandler {
	return &HomeHandler{provider: provider, timeout: 10 * time.Second}
}

// Home fans out the shelf fetches concurrently and assembles them in fixed
// order. Sections degrade independently.
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	type fetch struct {
		key   string
		title string
		run   func(context.Context) (models.PageResult, error)
	}

	fetches := []fetch{
		{"trending", "Trending Now", func(ctx context.Context) (models.PageResult, error) {
			return h.provider.Trending(ctx, models.MediaTypeMovie)
		}},
		{"now_playing", "Now Playing", func(ctx context.Context) (models.PageResult, error) {
			return h.provider.NowPlaying(ctx, 1)
		}},
		{"popular_movies", "Popular Movies", func(ctx context.Context) (models.PageResult, error) {
			return h.provider.Popular(ctx, models.MediaTypeMovie, 1)
		}},
		{"popular_tv", "Popular Series", func(ctx context.Context) (models.PageResult, error) {
			return h.provider.Popular(ctx, models.MediaTypeTV, 1)
		}},
		{"top_rated", "Top Rated", func(ctx context.Context) (models.PageResult, error) {
			return h.provider.TopRated(ctx, models.MediaTypeMovie, 1)
		}},
		{"anime", "Anime Series", func(ctx context.Context) (models.PageResult, error) {
			return h.provider.Anime(ctx, 1)
		}},
		{"anime_movies", "Anime Movies", func(ctx context.Context) (models.PageResult, error) {
			return h.provider.AnimeMovies(ctx, 1)
		}},
		{"top_rated_anime", "Top Rated Anime", func(ctx context.Context) (models.PageResult, error) {
			return h.provider.TopRatedAnime(ctx, 1)
		}},
	}

	sections := make([]HomeSection, len(fetches))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(4)
	for i, f := range fetches {
		i, f := i, f
		p.Go(func(ctx context.Context) error {
			section := HomeSection{Key: f.key, Title: f.title, Items: []models.ContentItem{}}
			res, err := f.run(ctx)
			if err != nil {
				log.Printf("[home] %s fetch failed: %v", f.key, err)
				section.Error = err.Error()
			} else {
				section.Items = res.Items
			}
			sections[i] = section
			return nil
		})
	}
	_ = p.Wait()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"sections": sections})
}

// Options handles CORS preflight requests.
func (h *HomeHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
