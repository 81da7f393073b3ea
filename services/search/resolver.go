package search

import (
	"context"
	"strconv"

	"pleura/models"
	"pleura/services/tmdb"
)

// SearchType narrows a free-text query to one media kind.
type SearchType string

const (
	SearchTypeMulti SearchType = "multi"
	SearchTypeMovie SearchType = "movie"
	SearchTypeTV    SearchType = "tv"
	SearchTypeAnime SearchType = "anime"
)

// ParseSearchType maps a request value to a known search type, defaulting
// to multi.
func ParseSearchType(s string) SearchType {
	switch SearchType(s) {
	case SearchTypeMovie, SearchTypeTV, SearchTypeAnime:
		return SearchType(s)
	default:
		return SearchTypeMulti
	}
}

// Selector is the discriminated filter driving a content query. When several
// fields are set the first non-empty wins, in this order: Query, GenreID,
// ListID, CompanyID, Category.
type Selector struct {
	Query      string           `json:"query,omitempty"`
	GenreID    int64            `json:"genreId,omitempty"`
	ListID     string           `json:"listId,omitempty"`
	CompanyID  int64            `json:"companyId,omitempty"`
	Category   string           `json:"category,omitempty"`
	MediaType  models.MediaType `json:"type,omitempty"`   // movie/tv flag for genre and category dispatch
	StudioName string           `json:"studioName,omitempty"` // display title for list/company results
}

// IsZero reports whether no filter is active.
func (s Selector) IsZero() bool {
	return s.Query == "" && s.GenreID == 0 && s.ListID == "" && s.CompanyID == 0 && s.Category == ""
}

// structured reports whether a non-free-text filter is active. An empty text
// box only resets the screen when nothing structured is driving it.
func (s Selector) structured() bool {
	return s.GenreID != 0 || s.ListID != "" || s.CompanyID != 0 || s.Category != ""
}

// Provider is the slice of the TMDB client the resolver needs.
type Provider interface {
	SearchMovies(ctx context.Context, query string, page int) (models.PageResult, error)
	SearchTV(ctx context.Context, query string, page int) (models.PageResult, error)
	SearchMulti(ctx context.Context, query string, page int) (models.PageResult, error)
	DiscoverMovies(ctx context.Context, p tmdb.DiscoverParams) (models.PageResult, error)
	DiscoverTV(ctx context.Context, p tmdb.DiscoverParams) (models.PageResult, error)
	NowPlaying(ctx context.Context, page int) (models.PageResult, error)
	OnTheAir(ctx context.Context, page int) (models.PageResult, error)
	Popular(ctx context.Context, mediaType models.MediaType, page int) (models.PageResult, error)
	TopRated(ctx context.Context, mediaType models.MediaType, page int) (models.PageResult, error)
	Trending(ctx context.Context, mediaType models.MediaType) (models.PageResult, error)
	Anime(ctx context.Context, page int) (models.PageResult, error)
	AnimeMovies(ctx context.Context, page int) (models.PageResult, error)
	ByCompany(ctx context.Context, companyID int64, page int) (models.PageResult, error)
	List(ctx context.Context, listID string, page int) (models.PageResult, error)
}

var _ Provider = (*tmdb.Client)(nil)

// Resolver turns a selector into the concrete provider call and a display
// title for the result header.
type Resolver struct {
	provider Provider
}

func NewResolver(p Provider) *Resolver {
	return &Resolver{provider: p}
}

// Resolve runs the query described by sel for the given page. Provider
// failures propagate as errors; callers decide how to degrade.
func (r *Resolver) Resolve(ctx context.Context, sel Selector, st SearchType, page int) (models.PageResult, string, error) {
	switch {
	case sel.Query != "":
		res, err := r.freeText(ctx, sel.Query, st, page)
		return res, `"` + sel.Query + `"`, err

	case sel.GenreID != 0:
		title := tmdb.GenreName(sel.GenreID)
		genres := strconv.FormatInt(sel.GenreID, 10)
		if sel.MediaType == models.MediaTypeTV {
			res, err := r.provider.DiscoverTV(ctx, tmdb.DiscoverParams{Genres: genres, Page: page})
			return res, title, err
		}
		res, err := r.provider.DiscoverMovies(ctx, tmdb.DiscoverParams{Genres: genres, Page: page})
		return res, title, err

	case sel.ListID != "":
		res, err := r.provider.List(ctx, sel.ListID, page)
		return res, titleOr(sel.StudioName, "Collection"), err

	case sel.CompanyID != 0:
		res, err := r.provider.ByCompany(ctx, sel.CompanyID, page)
		return res, titleOr(sel.StudioName, "Studio"), err

	case sel.Category != "":
		res, err := r.category(ctx, sel.Category, sel.MediaType, page)
		return res, CategoryTitle(sel.Category, sel.MediaType), err
	}

	return models.PageResult{Items: []models.ContentItem{}}, "", nil
}

// freeText dispatches a text query by search type. Anime is TV search
// filtered to the animation genre, a heuristic kept for parity with the
// category queries.
func (r *Resolver) freeText(ctx context.Context, query string, st SearchType, page int) (models.PageResult, error) {
	switch st {
	case SearchTypeMovie:
		return r.provider.SearchMovies(ctx, query, page)
	case SearchTypeTV:
		return r.provider.SearchTV(ctx, query, page)
	case SearchTypeAnime:
		res, err := r.provider.SearchTV(ctx, query, page)
		if err != nil {
			return models.PageResult{}, err
		}
		kept := res.Items[:0]
		for _, it := range res.Items {
			if it.HasGenre(models.GenreAnimation) {
				kept = append(kept, it)
			}
		}
		res.Items = kept
		return res, nil
	default:
		return r.provider.SearchMulti(ctx, query, page)
	}
}

// category maps a fixed category key to its provider call. Unknown keys
// resolve to an empty page.
func (r *Resolver) category(ctx context.Context, key string, mediaType models.MediaType, page int) (models.PageResult, error) {
	tv := mediaType == models.MediaTypeTV
	switch key {
	case "now_playing":
		if tv {
			return r.provider.OnTheAir(ctx, page)
		}
		return r.provider.NowPlaying(ctx, page)
	case "popular":
		return r.provider.Popular(ctx, mediaType, page)
	case "top_rated":
		return r.provider.TopRated(ctx, mediaType, page)
	case "trending":
		return r.provider.Trending(ctx, mediaType)
	case "anime_movies":
		return r.provider.AnimeMovies(ctx, page)
	case "anime":
		return r.provider.Anime(ctx, page)
	case "reality":
		return r.provider.DiscoverTV(ctx, tmdb.DiscoverParams{Genres: genreReality, Page: page})
	default:
		return models.PageResult{Items: []models.ContentItem{}}, nil
	}
}

const genreReality = "10764"

// CategoryTitle returns the header shown above a category's results.
func CategoryTitle(key string, mediaType models.MediaType) string {
	tv := mediaType == models.MediaTypeTV
	switch key {
	case "now_playing":
		if tv {
			return "On The Air"
		}
		return "Now Playing"
	case "popular":
		return "Popular"
	case "top_rated":
		return "Top Rated"
	case "trending":
		return "Trending Now"
	case "anime_movies":
		return "Anime Movies"
	case "anime":
		return "Anime Series"
	case "reality":
		return "Reality Shows"
	default:
		return "Results"
	}
}

func titleOr(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
