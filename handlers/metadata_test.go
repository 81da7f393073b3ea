package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"pleura/handlers"
	"pleura/models"
	"pleura/services/tmdb"
)

// metadataStub records the last call and serves canned detail payloads.
type metadataStub struct {
	lastCall string
	videos   []tmdb.Video
	err      error
}

func (s *metadataStub) MovieDetails(_ context.Context, id int64) (*tmdb.MovieDetails, error) {
	s.lastCall = "movie"
	if s.err != nil {
		return nil, s.err
	}
	return &tmdb.MovieDetails{ID: id, Title: "Dune"}, nil
}

func (s *metadataStub) TVDetails(_ context.Context, id int64) (*tmdb.TVDetails, error) {
	s.lastCall = "tv"
	if s.err != nil {
		return nil, s.err
	}
	return &tmdb.TVDetails{ID: id, Name: "Severance"}, nil
}

func (s *metadataStub) SeasonDetails(_ context.Context, _ int64, seasonNumber int) (*tmdb.SeasonDetails, error) {
	s.lastCall = "season"
	if s.err != nil {
		return nil, s.err
	}
	return &tmdb.SeasonDetails{SeasonNumber: seasonNumber, Episodes: []tmdb.Episode{}}, nil
}

func (s *metadataStub) Credits(context.Context, models.MediaType, int64) (*tmdb.Credits, error) {
	s.lastCall = "credits"
	if s.err != nil {
		return nil, s.err
	}
	return &tmdb.Credits{Cast: []tmdb.CastMember{}, Crew: []tmdb.CrewMember{}}, nil
}

func (s *metadataStub) Videos(context.Context, models.MediaType, int64) ([]tmdb.Video, error) {
	s.lastCall = "videos"
	return s.videos, s.err
}

func (s *metadataStub) Recommendations(context.Context, models.MediaType, int64) ([]models.ContentItem, error) {
	s.lastCall = "recommendations"
	return nil, s.err
}

func (s *metadataStub) Images(context.Context, models.MediaType, int64) (*tmdb.Images, error) {
	s.lastCall = "images"
	if s.err != nil {
		return nil, s.err
	}
	return &tmdb.Images{}, nil
}

func metadataRequest(path string, vars map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return mux.SetURLVars(req, vars)
}

func TestMetadata_DetailsDispatchesByMediaType(t *testing.T) {
	stub := &metadataStub{}
	h := handlers.NewMetadataHandler(stub)

	rec := httptest.NewRecorder()
	h.Details(rec, metadataRequest("/api/metadata/tv/1399", map[string]string{"mediaType": "tv", "id": "1399"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if stub.lastCall != "tv" {
		t.Errorf("expected tv details call, got %q", stub.lastCall)
	}

	rec = httptest.NewRecorder()
	h.Details(rec, metadataRequest("/api/metadata/movie/550", map[string]string{"mediaType": "movie", "id": "550"}))
	if stub.lastCall != "movie" {
		t.Errorf("expected movie details call, got %q", stub.lastCall)
	}
}

func TestMetadata_RejectsBadPath(t *testing.T) {
	h := handlers.NewMetadataHandler(&metadataStub{})

	cases := []map[string]string{
		{"mediaType": "person", "id": "5"},
		{"mediaType": "movie", "id": "0"},
		{"mediaType": "movie", "id": "abc"},
	}
	for _, vars := range cases {
		rec := httptest.NewRecorder()
		h.Details(rec, metadataRequest("/api/metadata/x/y", vars))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("vars %v: expected status 400, got %d", vars, rec.Code)
		}
	}
}

func TestMetadata_VideosIncludesTrailerURL(t *testing.T) {
	stub := &metadataStub{videos: []tmdb.Video{
		{Key: "clip1", Site: "Vimeo", Type: "Trailer"},
		{Key: "abc123", Site: "YouTube", Type: "Trailer"},
	}}
	h := handlers.NewMetadataHandler(stub)

	rec := httptest.NewRecorder()
	h.Videos(rec, metadataRequest("/api/metadata/movie/550/videos", map[string]string{"mediaType": "movie", "id": "550"}))

	var body struct {
		Videos     []tmdb.Video `json:"videos"`
		TrailerURL string       `json:"trailerUrl"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Videos) != 2 {
		t.Errorf("expected 2 videos, got %d", len(body.Videos))
	}
	if body.TrailerURL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("unexpected trailer url %q", body.TrailerURL)
	}
}

func TestMetadata_RecommendationsNilBecomesEmpty(t *testing.T) {
	h := handlers.NewMetadataHandler(&metadataStub{})

	rec := httptest.NewRecorder()
	h.Recommendations(rec, metadataRequest("/api/metadata/movie/550/recommendations", map[string]string{"mediaType": "movie", "id": "550"}))

	var body struct {
		Results []models.ContentItem `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Results == nil || len(body.Results) != 0 {
		t.Errorf("expected empty results array, got %v", body.Results)
	}
}

func TestMetadata_ProviderErrorMapping(t *testing.T) {
	notFound := &metadataStub{err: &tmdb.ProviderError{Endpoint: "/movie/1", Status: http.StatusNotFound, Err: errors.New("not found")}}
	h := handlers.NewMetadataHandler(notFound)

	rec := httptest.NewRecorder()
	h.Details(rec, metadataRequest("/api/metadata/movie/1", map[string]string{"mediaType": "movie", "id": "1"}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	upstream := &metadataStub{err: errors.New("connection reset")}
	h = handlers.NewMetadataHandler(upstream)

	rec = httptest.NewRecorder()
	h.Credits(rec, metadataRequest("/api/metadata/movie/1/credits", map[string]string{"mediaType": "movie", "id": "1"}))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rec.Code)
	}
}

func TestMetadata_SeasonValidatesNumber(t *testing.T) {
	h := handlers.NewMetadataHandler(&metadataStub{})

	rec := httptest.NewRecorder()
	h.Season(rec, metadataRequest("/api/metadata/tv/1399/season/-1", map[string]string{"id": "1399", "season": "-1"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Season(rec, metadataRequest("/api/metadata/tv/1399/season/0", map[string]string{"id": "1399", "season": "0"}))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for specials season, got %d", rec.Code)
	}
}
