package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"flixd/models"
	"flixd/services/history"

	"github.com/gorilla/mux"
)

type historyService interface {
	List() ([]models.HistoryEntry, error)
	AddOrTouch(entry models.HistoryEntry) (models.HistoryEntry, error)
	UpdateProgress(id string, upd models.HistoryProgressUpdate) (models.HistoryEntry, error)
	Remove(id string) error
	Clear() error
	Subscribe() (<-chan struct{}, func())
}

var _ historyService = (*history.Service)(nil)

type HistoryHandler struct {
	Service historyService
}

func NewHistoryHandler(service historyService) *HistoryHandler {
	return &HistoryHandler{Service: service}
}

func historyStatus(err error) int {
	switch {
	case errors.Is(err, history.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, history.ErrInvalidEntry):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.List()
	if err != nil {
		writeJSONError(w, err.Error(), historyStatus(err))
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *HistoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var entry models.HistoryEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := h.Service.AddOrTouch(entry)
	if err != nil {
		writeJSONError(w, err.Error(), historyStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *HistoryHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var upd models.HistoryProgressUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.Service.UpdateProgress(mux.Vars(r)["id"], upd)
	if err != nil {
		writeJSONError(w, err.Error(), historyStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *HistoryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Remove(mux.Vars(r)["id"]); err != nil {
		writeJSONError(w, err.Error(), historyStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Clear(); err != nil {
		writeJSONError(w, err.Error(), historyStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events streams a server-sent event on every history change so open
// clients can refresh their continue-watching rows without polling.
func (h *HistoryHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, cancel := h.Service.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-ch:
			if !open {
				return
			}
			fmt.Fprint(w, "event: changed\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}
