package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"pleura/models"
	"pleura/services/tmdb"
)

// metadataProvider is the slice of the TMDB client the detail screens need.
type metadataProvider interface {
	MovieDetails(ctx context.Context, movieID int64) (*tmdb.MovieDetails, error)
	TVDetails(ctx context.Context, tvID int64) (*tmdb.TVDetails, error)
	SeasonDetails(ctx context.Context, tvID int64, seasonNumber int) (*tmdb.SeasonDetails, error)
	Credits(ctx context.Context, mediaType models.MediaType, id int64) (*tmdb.Credits, error)
	Videos(ctx context.Context, mediaType models.MediaType, id int64) ([]tmdb.Video, error)
	Recommendations(ctx context.Context, mediaType models.MediaType, id int64) ([]models.ContentItem, error)
	Images(ctx context.Context, mediaType models.MediaType, id int64) (*tmdb.Images, error)
}

var _ metadataProvider = (*tmdb.Client)(nil)

// MetadataHandler serves title detail endpoints straight off the provider.
type MetadataHandler struct {
	provider metadataProvider
}

func NewMetadataHandler(provider metadataProvider) *MetadataHandler {
	return &MetadataHandler{provider: provider}
}

// Details returns the full detail payload for a movie or show.
func (h *MetadataHandler) Details(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := h.pathTarget(w, r)
	if !ok {
		return
	}

	var payload any
	var err error
	if mediaType == models.MediaTypeTV {
		payload, err = h.provider.TVDetails(r.Context(), id)
	} else {
		payload, err = h.provider.MovieDetails(r.Context(), id)
	}
	if err != nil {
		writeProviderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// Season returns one season of a show with its episode list.
func (h *MetadataHandler) Season(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	seasonNumber, err := strconv.Atoi(vars["season"])
	if err != nil || seasonNumber < 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid season number")
		return
	}

	season, err := h.provider.SeasonDetails(r.Context(), id, seasonNumber)
	if err != nil {
		writeProviderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(season)
}

// Credits returns the capped cast and crew list.
func (h *MetadataHandler) Credits(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := h.pathTarget(w, r)
	if !ok {
		return
	}

	credits, err := h.provider.Credits(r.Context(), mediaType, id)
	if err != nil {
		writeProviderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(credits)
}

// Videos returns the raw video list plus the preferred trailer URL.
func (h *MetadataHandler) Videos(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := h.pathTarget(w, r)
	if !ok {
		return
	}

	videos, err := h.provider.Videos(r.Context(), mediaType, id)
	if err != nil {
		writeProviderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"videos":     videos,
		"trailerUrl": tmdb.TrailerURL(videos),
	})
}

// Recommendations returns related titles, degrading to an empty list when
// the provider has none.
func (h *MetadataHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := h.pathTarget(w, r)
	if !ok {
		return
	}

	items, err := h.provider.Recommendations(r.Context(), mediaType, id)
	if err != nil {
		writeProviderError(w, err)
		return
	}
	if items == nil {
		items = []models.ContentItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"results": items})
}

// Images returns logos, posters and backdrops for a title.
func (h *MetadataHandler) Images(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := h.pathTarget(w, r)
	if !ok {
		return
	}

	images, err := h.provider.Images(r.Context(), mediaType, id)
	if err != nil {
		writeProviderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(images)
}

// Options handles CORS preflight requests.
func (h *MetadataHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *MetadataHandler) pathTarget(w http.ResponseWriter, r *http.Request) (models.MediaType, int64, bool) {
	vars := mux.Vars(r)

	mediaType := models.MediaType(vars["mediaType"])
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		writeJSONError(w, http.StatusBadRequest, "mediaType must be movie or tv")
		return "", 0, false
	}

	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return "", 0, false
	}

	return mediaType, id, true
}

// writeProviderError maps upstream failures onto our status codes: 404
// passes through, everything else is a bad gateway.
func writeProviderError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var perr *tmdb.ProviderError
	if errors.As(err, &perr) && perr.Status == http.StatusNotFound {
		status = http.StatusNotFound
	}
	writeJSONError(w, status, err.Error())
}
