package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pleura/handlers"
	"pleura/models"
)

// homeStub serves a canned page and can fail individual shelves.
type homeStub struct {
	page    models.PageResult
	failing map[string]error
}

func (s *homeStub) result(key string) (models.PageResult, error) {
	if err, ok := s.failing[key]; ok {
		return models.PageResult{}, err
	}
	return s.page, nil
}

func (s *homeStub) Trending(_ context.Context, _ models.MediaType) (models.PageResult, error) {
	return s.result("trending")
}
func (s *homeStub) NowPlaying(_ context.Context, _ int) (models.PageResult, error) {
	return s.result("now_playing")
}
func (s *homeStub) Popular(_ context.Context, mt models.MediaType, _ int) (models.PageResult, error) {
	return s.result("popular_" + string(mt))
}
func (s *homeStub) TopRated(_ context.Context, _ models.MediaType, _ int) (models.PageResult, error) {
	return s.result("top_rated")
}
func (s *homeStub) Anime(_ context.Context, _ int) (models.PageResult, error) {
	return s.result("anime")
}
func (s *homeStub) AnimeMovies(_ context.Context, _ int) (models.PageResult, error) {
	return s.result("anime_movies")
}
func (s *homeStub) TopRatedAnime(_ context.Context, _ int) (models.PageResult, error) {
	return s.result("top_rated_anime")
}

func fetchHome(t *testing.T, stub *homeStub) []handlers.HomeSection {
	t.Helper()
	h := handlers.NewHomeHandler(stub)
	rec := httptest.NewRecorder()
	h.Home(rec, httptest.NewRequest(http.MethodGet, "/api/home", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body struct {
		Sections []handlers.HomeSection `json:"sections"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body.Sections
}

func TestHome_SectionsInFixedOrder(t *testing.T) {
	stub := &homeStub{page: cannedPage(5, 1, 5)}

	sections := fetchHome(t, stub)

	wantKeys := []string{"trending", "now_playing", "popular_movies", "popular_tv", "top_rated", "anime", "anime_movies", "top_rated_anime"}
	if len(sections) != len(wantKeys) {
		t.Fatalf("expected %d sections, got %d", len(wantKeys), len(sections))
	}
	for i, key := range wantKeys {
		if sections[i].Key != key {
			t.Errorf("section %d: expected key %q, got %q", i, key, sections[i].Key)
		}
		if len(sections[i].Items) != 5 {
			t.Errorf("section %q: expected 5 items, got %d", key, len(sections[i].Items))
		}
		if sections[i].Error != "" {
			t.Errorf("section %q: unexpected error %q", key, sections[i].Error)
		}
	}
}

func TestHome_FailedSectionDegrades(t *testing.T) {
	stub := &homeStub{
		page:    cannedPage(5, 1, 5),
		failing: map[string]error{"anime": errors.New("upstream unavailable")},
	}

	sections := fetchHome(t, stub)

	for _, section := range sections {
		if section.Key == "anime" {
			if section.Error == "" {
				t.Error("expected error on failed section")
			}
			if section.Items == nil || len(section.Items) != 0 {
				t.Errorf("expected empty items slice, got %v", section.Items)
			}
			continue
		}
		if section.Error != "" {
			t.Errorf("section %q: healthy section carries error %q", section.Key, section.Error)
		}
		if len(section.Items) != 5 {
			t.Errorf("section %q: expected 5 items, got %d", section.Key, len(section.Items))
		}
	}
}
