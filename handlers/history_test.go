package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"flixd/models"
	"flixd/services/history"

	"github.com/gorilla/mux"
)

type fakeHistoryService struct {
	entries  []models.HistoryEntry
	added    []models.HistoryEntry
	removed  []string
	events   chan struct{}
	failWith error
}

func (f *fakeHistoryService) List() ([]models.HistoryEntry, error) {
	return f.entries, f.failWith
}

func (f *fakeHistoryService) AddOrTouch(entry models.HistoryEntry) (models.HistoryEntry, error) {
	if f.failWith != nil {
		return models.HistoryEntry{}, f.failWith
	}
	f.added = append(f.added, entry)
	return entry, nil
}

func (f *fakeHistoryService) UpdateProgress(id string, upd models.HistoryProgressUpdate) (models.HistoryEntry, error) {
	if f.failWith != nil {
		return models.HistoryEntry{}, f.failWith
	}
	return models.HistoryEntry{ID: id, Progress: upd.Progress, Duration: upd.Duration}, nil
}

func (f *fakeHistoryService) Remove(id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeHistoryService) Clear() error { return f.failWith }

func (f *fakeHistoryService) Subscribe() (<-chan struct{}, func()) {
	if f.events == nil {
		f.events = make(chan struct{}, 1)
	}
	return f.events, func() {}
}

func newHistoryRouter(svc historyService) *mux.Router {
	h := NewHistoryHandler(svc)
	r := mux.NewRouter()
	r.HandleFunc("/api/history", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/history", h.Add).Methods(http.MethodPost)
	r.HandleFunc("/api/history/{id}/progress", h.UpdateProgress).Methods(http.MethodPatch)
	r.HandleFunc("/api/history/{id}", h.Remove).Methods(http.MethodDelete)
	return r
}

func TestHistoryListEmptyReturnsArray(t *testing.T) {
	router := newHistoryRouter(&fakeHistoryService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string][]models.HistoryEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["history"] == nil {
		t.Fatal("expected empty array, got null")
	}
}

func TestHistoryAddValidatesBody(t *testing.T) {
	router := newHistoryRouter(&fakeHistoryService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/history", bytes.NewBufferString("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHistoryAddForwardsEntry(t *testing.T) {
	svc := &fakeHistoryService{}
	router := newHistoryRouter(svc)

	entry := models.HistoryEntry{ID: "550", Title: "Fight Club", MediaType: models.MediaTypeMovie}
	buf, _ := json.Marshal(entry)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/history", bytes.NewReader(buf)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(svc.added) != 1 || svc.added[0].ID != "550" {
		t.Fatalf("added = %+v, want one entry with id 550", svc.added)
	}
}

func TestHistoryUpdateProgressNotFound(t *testing.T) {
	router := newHistoryRouter(&fakeHistoryService{failWith: history.ErrEntryNotFound})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/history/999/progress", bytes.NewBufferString(`{"progress":10,"duration":100}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHistoryRemove(t *testing.T) {
	svc := &fakeHistoryService{}
	router := newHistoryRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/history/550", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(svc.removed) != 1 || svc.removed[0] != "550" {
		t.Fatalf("removed = %v, want [550]", svc.removed)
	}
}
