package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"flixd/models"
	"flixd/services/metadata"

	"github.com/gorilla/mux"
)

type metadataService interface {
	Homepage(ctx context.Context) (models.Homepage, error)
	Search(ctx context.Context, query string, page int) (models.TitlePage, error)
	MovieDetails(ctx context.Context, id string) (models.MovieDetails, error)
	SeriesDetails(ctx context.Context, id string) (models.SeriesDetails, error)
	SeasonDetails(ctx context.Context, seriesID string, season int) (models.SeasonDetails, error)
	ExternalIDs(ctx context.Context, mediaType models.MediaType, id string) (models.ExternalIDs, error)
	Recommendations(ctx context.Context, mediaType models.MediaType, id string) ([]models.Title, error)
	Discover(ctx context.Context, q metadata.DiscoverQuery) (models.TitlePage, error)
	RecentlyReleased(ctx context.Context, mediaType models.MediaType, country string) (models.TitlePage, error)
	Surprise(ctx context.Context, mediaType models.MediaType) (models.Title, error)
}

var _ metadataService = (*metadata.Service)(nil)

type MetadataHandler struct {
	Service metadataService
}

func NewMetadataHandler(service metadataService) *MetadataHandler {
	return &MetadataHandler{Service: service}
}

func metadataStatus(err error) int {
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, metadata.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, metadata.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// mediaTypeVar reads and validates the {mediaType} path variable.
func mediaTypeVar(r *http.Request) (models.MediaType, bool) {
	mt := models.MediaType(mux.Vars(r)["mediaType"])
	return mt, mt.Valid()
}

func (h *MetadataHandler) Homepage(w http.ResponseWriter, r *http.Request) {
	home, err := h.Service.Homepage(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), metadataStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, home)
}

func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	results, err := h.Service.Search(r.Context(), query, page)
	if err != nil {
		writeJSONError(w, err.Error(), metadataStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *MetadataHandler) MovieDetails(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	details, err := h.Service.MovieDetails(r.Context(), id)
	if err != nil {
		writeJSONError(w, err.Error(), metadataStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *MetadataHandler) SeriesDetails(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	details, err := h.Service.SeriesDetails(r.Context(), id)
	if err != nil {
		writeJSONError(w, err.Error(), metadataStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *MetadataHandler) SeasonDetails(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	season, err := strconv.Atoi(vars["season"])
	if err != nil || season < 1 {
		writeJSONError(w, "invalid season number", http.StatusBadRequest)
		return
	}

	details, err := h.Service.SeasonDetails(r.Context(), vars["id"], season)
	if err != nil {
		writeJSONError(w, err.Error(), metadataStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *MetadataHandler) ExternalIDs(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeVar(r)
	if !ok {
		writeJSONError(w, "invalid media type", http.StatusBadRequest)
		return
	}

	ids, err := h.Service.ExternalIDs(r.Context(), mediaType, mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, err.Error(), metadataStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *MetadataHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeVar(r)
	if !ok {
		writeJSONError(w, "invalid media type", http.StatusBadRequest)
		return
	}

	titles, err := h.Service.Recommendations(r.Context(), mediaType, mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, err.Error(), metadataStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": titles})
}

func (h *MetadataHandler) Discover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mediaType := models.MediaType(q.Get("mediaType"))
	if mediaType == "" {
		mediaType = models.MediaTypeMovie
	}
	if !mediaType.Valid() {
		writeJSONError(w, "invalid media type", http.StatusBadRequest)
		return
	}

	dq := metadata.DiscoverQuery{
		MediaType: mediaType,
		Country:   q.Get("country"),
	}
	if g, err := strconv.ParseInt(q.Get("genre"), 10, 64); err == nil {
		dq.GenreID = g
	}
	if y, err := strconv.Atoi(q.Get("year")); err == nil {
		dq.Year = y
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		dq.Page = p
	}

	results, err := h.Service.Discover(r.Context(), dq)
	if err != nil {
		writeJSONError(w, err.Error(), metadataStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *MetadataHandler) Recent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mediaType := models.MediaType(q.Get("mediaType"))
	if mediaType == "" {
		mediaType = models.MediaTypeMovie
	}
	if !mediaType.Valid() {
		writeJSONError(w, "invalid media type", http.StatusBadRequest)
		return
	}

	results, err := h.Service.RecentlyReleased(r.Context(), mediaType, q.Get("country"))
	if err != nil {
		writeJSONError(w, err.Error(), metadataStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *MetadataHandler) Surprise(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaType(r.URL.Query().Get("mediaType"))
	if mediaType == "" {
		mediaType = models.MediaTypeMovie
	}
	if !mediaType.Valid() {
		writeJSONError(w, "invalid media type", http.StatusBadRequest)
		return
	}

	title, err := h.Service.Surprise(r.Context(), mediaType)
	if err != nil {
		writeJSONError(w, err.Error(), metadataStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, title)
}
