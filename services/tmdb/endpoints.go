package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pleura/models"
)

// DiscoverParams are the filter knobs for the discover endpoints. Zero
// values are omitted from the query.
type DiscoverParams struct {
	Genres    string
	Companies string
	Keywords  string
	SortBy    string
	Page      int
}

func (p DiscoverParams) apply(q url.Values) {
	if p.Genres != "" {
		q.Set("with_genres", p.Genres)
	}
	if p.Companies != "" {
		q.Set("with_companies", p.Companies)
	}
	if p.Keywords != "" {
		q.Set("with_keywords", p.Keywords)
	}
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	q.Set("sort_by", sortBy)
	page := p.Page
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
}

func (c *Client) searchQuery(query string, page int) url.Values {
	q := url.Values{}
	q.Set("query", query)
	q.Set("include_adult", "false")
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
	return q
}

// SearchMovies searches movies by free text. Blank queries resolve to an
// empty page without a network call.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (models.PageResult, error) {
	if isBlank(query) {
		return emptyPage(), nil
	}
	return c.fetchPage(ctx, "/search/movie", c.searchQuery(query, page))
}

// SearchTV searches TV shows by free text.
func (c *Client) SearchTV(ctx context.Context, query string, page int) (models.PageResult, error) {
	if isBlank(query) {
		return emptyPage(), nil
	}
	return c.fetchPage(ctx, "/search/tv", c.searchQuery(query, page))
}

// SearchMulti searches movies and TV together. Person results are dropped.
func (c *Client) SearchMulti(ctx context.Context, query string, page int) (models.PageResult, error) {
	if isBlank(query) {
		return emptyPage(), nil
	}
	res, err := c.fetchPage(ctx, "/search/multi", c.searchQuery(query, page))
	if err != nil {
		return models.PageResult{}, err
	}
	kept := res.Items[:0]
	for _, it := range res.Items {
		if it.MediaType == models.MediaTypeMovie || it.MediaType == models.MediaTypeTV {
			kept = append(kept, it)
		}
	}
	res.Items = kept
	return res, nil
}

// DiscoverMovies queries /discover/movie with the given filters.
func (c *Client) DiscoverMovies(ctx context.Context, p DiscoverParams) (models.PageResult, error) {
	q := c.baseQuery()
	q.Set("include_adult", "false")
	q.Set("include_video", "false")
	p.apply(q)
	return c.fetchPage(ctx, "/discover/movie", q)
}

// DiscoverTV queries /discover/tv with the given filters.
func (c *Client) DiscoverTV(ctx context.Context, p DiscoverParams) (models.PageResult, error) {
	q := c.baseQuery()
	q.Set("include_adult", "false")
	q.Set("include_null_first_air_dates", "false")
	p.apply(q)
	return c.fetchPage(ctx, "/discover/tv", q)
}

// Trending returns this week's trending titles. The endpoint is not
// paginated by the app; callers treat the result as a single page.
func (c *Client) Trending(ctx context.Context, mediaType models.MediaType) (models.PageResult, error) {
	return c.fetchCurated(ctx, fmt.Sprintf("/trending/%s/week", mediaTypeOr(mediaType)), c.baseQuery())
}

// NowPlaying returns movies currently in theaters.
func (c *Client) NowPlaying(ctx context.Context, page int) (models.PageResult, error) {
	return c.fetchCurated(ctx, "/movie/now_playing", c.pagedQuery(page))
}

// OnTheAir returns TV shows currently airing.
func (c *Client) OnTheAir(ctx context.Context, page int) (models.PageResult, error) {
	return c.fetchCurated(ctx, "/tv/on_the_air", c.pagedQuery(page))
}

// Popular returns popular movies or TV shows.
func (c *Client) Popular(ctx context.Context, mediaType models.MediaType, page int) (models.PageResult, error) {
	return c.fetchCurated(ctx, fmt.Sprintf("/%s/popular", mediaTypeOr(mediaType)), c.pagedQuery(page))
}

// TopRated returns top rated movies or TV shows.
func (c *Client) TopRated(ctx context.Context, mediaType models.MediaType, page int) (models.PageResult, error) {
	return c.fetchCurated(ctx, fmt.Sprintf("/%s/top_rated", mediaTypeOr(mediaType)), c.pagedQuery(page))
}

// Anime returns animated TV shows, popularity sorted with a vote floor.
// Animation genre membership is a heuristic stand-in for anime.
func (c *Client) Anime(ctx context.Context, page int) (models.PageResult, error) {
	q := c.pagedQuery(page)
	q.Set("with_genres", strconv.FormatInt(models.GenreAnimation, 10))
	q.Set("sort_by", "popularity.desc")
	q.Set("vote_average.gte", "4")
	return c.fetchCurated(ctx, "/discover/tv", q)
}

// AnimeMovies returns animated movies with a theatrical or digital release.
func (c *Client) AnimeMovies(ctx context.Context, page int) (models.PageResult, error) {
	q := c.pagedQuery(page)
	q.Set("with_genres", strconv.FormatInt(models.GenreAnimation, 10))
	q.Set("sort_by", "popularity.desc")
	q.Set("vote_average.gte", "4")
	q.Set("with_release_type", "3|4")
	return c.fetchCurated(ctx, "/discover/movie", q)
}

// TopRatedAnime returns animated TV sorted by rating with a vote-count floor.
func (c *Client) TopRatedAnime(ctx context.Context, page int) (models.PageResult, error) {
	q := c.pagedQuery(page)
	q.Set("with_genres", strconv.FormatInt(models.GenreAnimation, 10))
	q.Set("sort_by", "vote_average.desc")
	q.Set("vote_count.gte", "100")
	return c.fetchCurated(ctx, "/discover/tv", q)
}

// ByCompany returns movies from a production company, popularity sorted.
func (c *Client) ByCompany(ctx context.Context, companyID int64, page int) (models.PageResult, error) {
	q := c.pagedQuery(page)
	q.Set("with_companies", strconv.FormatInt(companyID, 10))
	q.Set("sort_by", "popularity.desc")
	return c.fetchPage(ctx, "/discover/movie", q)
}

// List returns one page of a curated TMDB list. The endpoint reports items
// and a total count but no page count, so pages are derived from the
// 20-per-page layout.
func (c *Client) List(ctx context.Context, listID string, page int) (models.PageResult, error) {
	var env pageEnvelope
	if err := c.doGET(ctx, "/list/"+url.PathEscape(listID), c.pagedQuery(page), &env); err != nil {
		return models.PageResult{}, err
	}
	items := make([]models.ContentItem, 0, len(env.Items))
	for _, it := range env.Items {
		if it.PosterPath != "" {
			items = append(items, it)
		}
	}
	total := env.TotalResults
	if total == 0 {
		total = len(env.Items)
	}
	pages := (total + listPageSize - 1) / listPageSize
	if pages < 1 {
		pages = 1
	}
	return models.PageResult{Items: items, TotalResults: total, TotalPages: pages}, nil
}

const listPageSize = 20

func (c *Client) pagedQuery(page int) url.Values {
	q := c.baseQuery()
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
	return q
}

func mediaTypeOr(mt models.MediaType) models.MediaType {
	if mt == models.MediaTypeTV {
		return models.MediaTypeTV
	}
	return models.MediaTypeMovie
}

func emptyPage() models.PageResult {
	return models.PageResult{Items: []models.ContentItem{}}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
