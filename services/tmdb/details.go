package tmdb

import (
	"context"
	"fmt"

	"pleura/models"
)

// Genre is a TMDB genre reference as embedded in detail payloads.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the detail payload for a movie.
type MovieDetails struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	Tagline      string  `json:"tagline,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Runtime      int     `json:"runtime,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	Genres       []Genre `json:"genres,omitempty"`
	Year         int     `json:"year,omitempty"`
}

// TVDetails is the detail payload for a series, with credits and related
// titles appended so detail screens need a single round-trip.
type TVDetails struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Overview         string   `json:"overview"`
	PosterPath       string   `json:"poster_path,omitempty"`
	BackdropPath     string   `json:"backdrop_path,omitempty"`
	VoteAverage      float64  `json:"vote_average"`
	FirstAirDate     string   `json:"first_air_date,omitempty"`
	NumberOfSeasons  int      `json:"number_of_seasons"`
	NumberOfEpisodes int      `json:"number_of_episodes"`
	Genres           []Genre  `json:"genres,omitempty"`
	Seasons          []Season `json:"seasons,omitempty"`
	Credits          *Credits `json:"credits,omitempty"`
	Recommendations  *struct {
		Results []models.ContentItem `json:"results"`
	} `json:"recommendations,omitempty"`
	Similar *struct {
		Results []models.ContentItem `json:"results"`
	} `json:"similar,omitempty"`
	Year int `json:"year,omitempty"`
}

// Season is a series season summary.
type Season struct {
	ID           int64  `json:"id"`
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	Overview     string `json:"overview,omitempty"`
	PosterPath   string `json:"poster_path,omitempty"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date,omitempty"`
}

// SeasonDetails is a season with its episode list.
type SeasonDetails struct {
	ID           int64     `json:"id"`
	SeasonNumber int       `json:"season_number"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview,omitempty"`
	Episodes     []Episode `json:"episodes"`
}

// Episode is one episode of a season.
type Episode struct {
	ID            int64   `json:"id"`
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview,omitempty"`
	StillPath     string  `json:"still_path,omitempty"`
	AirDate       string  `json:"air_date,omitempty"`
	Runtime       int     `json:"runtime,omitempty"`
	VoteAverage   float64 `json:"vote_average,omitempty"`
}

// CastMember is one cast credit.
type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profile_path,omitempty"`
	Order       int    `json:"order"`
}

// CrewMember is one crew credit.
type CrewMember struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Job  string `json:"job,omitempty"`
}

// Credits holds cast and crew for a title.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Video is a trailer/teaser reference.
type Video struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// Image is one artwork entry from the images endpoint.
type Image struct {
	FilePath    string  `json:"file_path"`
	AspectRatio float64 `json:"aspect_ratio"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	VoteAverage float64 `json:"vote_average"`
}

// Images groups a title's artwork by kind.
type Images struct {
	Backdrops []Image `json:"backdrops"`
	Logos     []Image `json:"logos"`
	Posters   []Image `json:"posters"`
}

const maxCastListed = 10
const maxRelated = 10

// MovieDetails fetches the detail payload for a movie.
func (c *Client) MovieDetails(ctx context.Context, movieID int64) (*MovieDetails, error) {
	var d MovieDetails
	if err := c.doGET(ctx, fmt.Sprintf("/movie/%d", movieID), c.baseQuery(), &d); err != nil {
		return nil, err
	}
	d.Year = parseYear(d.ReleaseDate, "")
	return &d, nil
}

// TVDetails fetches a series with credits, recommendations and similar
// titles appended.
func (c *Client) TVDetails(ctx context.Context, tvID int64) (*TVDetails, error) {
	q := c.baseQuery()
	q.Set("append_to_response", "credits,recommendations,similar")
	var d TVDetails
	if err := c.doGET(ctx, fmt.Sprintf("/tv/%d", tvID), q, &d); err != nil {
		return nil, err
	}
	if d.Credits != nil && len(d.Credits.Cast) > maxCastListed {
		d.Credits.Cast = d.Credits.Cast[:maxCastListed]
	}
	d.Year = parseYear(d.FirstAirDate, "")
	return &d, nil
}

// SeasonDetails fetches one season with its episodes.
func (c *Client) SeasonDetails(ctx context.Context, tvID int64, seasonNumber int) (*SeasonDetails, error) {
	var d SeasonDetails
	if err := c.doGET(ctx, fmt.Sprintf("/tv/%d/season/%d", tvID, seasonNumber), c.baseQuery(), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Credits fetches cast and crew for a title. Cast is capped to the first ten
// billed members.
func (c *Client) Credits(ctx context.Context, mediaType models.MediaType, id int64) (*Credits, error) {
	var cr Credits
	if err := c.doGET(ctx, fmt.Sprintf("/%s/%d/credits", mediaTypeOr(mediaType), id), c.baseQuery(), &cr); err != nil {
		return nil, err
	}
	if len(cr.Cast) > maxCastListed {
		cr.Cast = cr.Cast[:maxCastListed]
	}
	return &cr, nil
}

// Videos fetches the video list for a title.
func (c *Client) Videos(ctx context.Context, mediaType models.MediaType, id int64) ([]Video, error) {
	var resp struct {
		Results []Video `json:"results"`
	}
	if err := c.doGET(ctx, fmt.Sprintf("/%s/%d/videos", mediaTypeOr(mediaType), id), c.baseQuery(), &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// TrailerURL picks the first YouTube trailer or teaser from a video list and
// returns its watch URL, or "" when none exists.
func TrailerURL(videos []Video) string {
	for _, v := range videos {
		if v.Site == "YouTube" && (v.Type == "Trailer" || v.Type == "Teaser") {
			return "https://www.youtube.com/watch?v=" + v.Key
		}
	}
	return ""
}

// Recommendations fetches related titles, preferring the recommendations
// endpoint and falling back to similar titles. Results without a poster are
// dropped and the list is capped at ten.
func (c *Client) Recommendations(ctx context.Context, mediaType models.MediaType, id int64) ([]models.ContentItem, error) {
	mt := mediaTypeOr(mediaType)
	rec, err := c.fetchCurated(ctx, fmt.Sprintf("/%s/%d/recommendations", mt, id), c.baseQuery())
	if err == nil && len(rec.Items) > 0 {
		return capItems(rec.Items, maxRelated), nil
	}

	sim, simErr := c.fetchCurated(ctx, fmt.Sprintf("/%s/%d/similar", mt, id), c.baseQuery())
	if simErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, simErr
	}
	return capItems(sim.Items, maxRelated), nil
}

// Images fetches artwork (backdrops, logos, posters) for a title.
func (c *Client) Images(ctx context.Context, mediaType models.MediaType, id int64) (*Images, error) {
	q := c.baseQuery()
	q.Del("language")
	q.Set("include_image_language", "en,null")
	var imgs Images
	if err := c.doGET(ctx, fmt.Sprintf("/%s/%d/images", mediaTypeOr(mediaType), id), q, &imgs); err != nil {
		return nil, err
	}
	return &imgs, nil
}

func capItems(items []models.ContentItem, n int) []models.ContentItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}
