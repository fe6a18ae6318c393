package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"flixd/config"
)

// metadataReloader lets the settings surface hot-reload the TMDB key
// without a restart.
type metadataReloader interface {
	UpdateAPIKey(tmdbAPIKey, language string)
}

type SettingsHandler struct {
	Manager  *config.Manager
	Metadata metadataReloader
}

func NewSettingsHandler(m *config.Manager) *SettingsHandler {
	return &SettingsHandler{Manager: m}
}

// SetMetadataService wires the metadata service for API key hot reloads.
func (h *SettingsHandler) SetMetadataService(ms metadataReloader) {
	h.Metadata = ms
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Manager.Load()
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var s config.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	prev, err := h.Manager.Load()
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The PIN is assigned at startup and never settable over the API.
	s.Server.PIN = prev.Server.PIN

	if err := h.Manager.Save(s); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.Metadata != nil &&
		(s.Metadata.TMDBAPIKey != prev.Metadata.TMDBAPIKey || s.Metadata.Language != prev.Metadata.Language) {
		log.Printf("[settings] metadata credentials changed, reloading client")
		h.Metadata.UpdateAPIKey(s.Metadata.TMDBAPIKey, s.Metadata.Language)
	}

	writeJSON(w, http.StatusOK, s)
}
