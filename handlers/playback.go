package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"flixd/models"
	"flixd/services/playback"
	"flixd/services/resolver"

	"github.com/gorilla/mux"
)

type sourceResolver interface {
	Resolve(ctx context.Context, req models.PlaybackRequest) (resolver.Resolution, error)
	EmbedSource(ctx context.Context, req models.PlaybackRequest, providerID string) (models.ResolvedSource, error)
}

var _ sourceResolver = (*resolver.Service)(nil)

type sessionManager interface {
	Start(ctx context.Context, req models.PlaybackRequest, entry *models.HistoryEntry) (models.PlaybackSession, error)
	Get(id string) (models.PlaybackSession, error)
	SelectProvider(ctx context.Context, id, providerID string) (models.PlaybackSession, error)
	Progress(id string, tick models.ProgressTick) (models.PlaybackSession, error)
	CancelAutoAdvance(id string) (models.PlaybackSession, error)
	Close(id string) error
}

var _ sessionManager = (*playback.Manager)(nil)

type PlaybackHandler struct {
	Resolver sourceResolver
	Sessions sessionManager
}

func NewPlaybackHandler(res sourceResolver, sessions sessionManager) *PlaybackHandler {
	return &PlaybackHandler{Resolver: res, Sessions: sessions}
}

func playbackStatus(err error) int {
	switch {
	case errors.Is(err, resolver.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, resolver.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, resolver.ErrNoPlayableSource):
		return http.StatusBadGateway
	case errors.Is(err, playback.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrSessionClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Resolve probes for a playable source without opening a session.
func (h *PlaybackHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req models.PlaybackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.Resolver.Resolve(r.Context(), req)
	if err != nil {
		writeJSONError(w, err.Error(), playbackStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type embedRequest struct {
	models.PlaybackRequest
	ProviderID string `json:"providerId"`
}

// Embed builds the embed URL for a specific provider.
func (h *PlaybackHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	src, err := h.Resolver.EmbedSource(r.Context(), req.PlaybackRequest, req.ProviderID)
	if err != nil {
		writeJSONError(w, err.Error(), playbackStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (h *PlaybackHandler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": resolver.Providers()})
}

func (h *PlaybackHandler) NextProvider(w http.ResponseWriter, r *http.Request) {
	current := r.URL.Query().Get("current")
	next, ok := resolver.NextProvider(current)
	if !ok {
		writeJSONError(w, "no further providers", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

type startSessionRequest struct {
	models.PlaybackRequest
	History *models.HistoryEntry `json:"history,omitempty"`
}

func (h *PlaybackHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.Sessions.Start(r.Context(), req.PlaybackRequest, req.History)
	if err != nil {
		writeJSONError(w, err.Error(), playbackStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *PlaybackHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, err.Error(), playbackStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type selectProviderRequest struct {
	ProviderID string `json:"providerId"`
}

func (h *PlaybackHandler) SelectProvider(w http.ResponseWriter, r *http.Request) {
	var req selectProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.Sessions.SelectProvider(r.Context(), mux.Vars(r)["id"], req.ProviderID)
	if err != nil {
		writeJSONError(w, err.Error(), playbackStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *PlaybackHandler) Progress(w http.ResponseWriter, r *http.Request) {
	var tick models.ProgressTick
	if err := json.NewDecoder(r.Body).Decode(&tick); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.Sessions.Progress(mux.Vars(r)["id"], tick)
	if err != nil {
		writeJSONError(w, err.Error(), playbackStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *PlaybackHandler) CancelAutoAdvance(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.CancelAutoAdvance(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, err.Error(), playbackStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *PlaybackHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Close(mux.Vars(r)["id"]); err != nil {
		writeJSONError(w, err.Error(), playbackStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
