package models

import "strconv"

// MediaType identifies the kind of a catalog item.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// GenreAnimation is the TMDB genre id used for both anime series and anime
// movie queries. Animation is broader than anime; the classification is a
// heuristic carried over for behavioral parity.
const GenreAnimation int64 = 16

// ContentItem is an immutable snapshot of a TMDB catalog entry. Fields keep
// the provider's snake_case names so items round-trip through the API and the
// user document store without translation.
type ContentItem struct {
	ID           int64     `json:"id"`
	MediaType    MediaType `json:"media_type,omitempty"`
	Title        string    `json:"title,omitempty"`
	Name         string    `json:"name,omitempty"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"poster_path,omitempty"`
	BackdropPath string    `json:"backdrop_path,omitempty"`
	VoteAverage  float64   `json:"vote_average,omitempty"`
	GenreIDs     []int64   `json:"genre_ids,omitempty"`
	ReleaseDate  string    `json:"release_date,omitempty"`
	FirstAirDate string    `json:"first_air_date,omitempty"`
}

// DisplayTitle returns the movie title or, for TV items, the show name.
func (c ContentItem) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Name
}

// Kind returns the media type, inferring tv for items that carry a first air
// date but no explicit media_type (discover responses omit it).
func (c ContentItem) Kind() MediaType {
	if c.MediaType != "" {
		return c.MediaType
	}
	if c.FirstAirDate != "" {
		return MediaTypeTV
	}
	return MediaTypeMovie
}

// HasGenre reports whether the item carries the given TMDB genre id.
func (c ContentItem) HasGenre(id int64) bool {
	for _, g := range c.GenreIDs {
		if g == id {
			return true
		}
	}
	return false
}

// Key returns the (kind, id) identity used for list membership.
func (c ContentItem) Key() string {
	return string(c.Kind()) + ":" + strconv.FormatInt(c.ID, 10)
}

// PageResult is one page of provider results plus pagination metadata.
// Provider order is preserved; merging pages is the caller's job.
type PageResult struct {
	Items        []ContentItem `json:"items"`
	TotalResults int           `json:"totalResults"`
	TotalPages   int           `json:"totalPages"`
}
