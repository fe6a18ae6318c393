package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"flixd/models"
	"flixd/services/playback"
	"flixd/services/resolver"

	"github.com/gorilla/mux"
)

type fakePlaybackResolver struct {
	resolution resolver.Resolution
	resolveErr error
	embedErr   error
}

func (f *fakePlaybackResolver) Resolve(ctx context.Context, req models.PlaybackRequest) (resolver.Resolution, error) {
	return f.resolution, f.resolveErr
}

func (f *fakePlaybackResolver) EmbedSource(ctx context.Context, req models.PlaybackRequest, providerID string) (models.ResolvedSource, error) {
	if f.embedErr != nil {
		return models.ResolvedSource{}, f.embedErr
	}
	return models.ResolvedSource{Kind: models.SourceKindEmbed, ProviderID: providerID, Via: "provider"}, nil
}

type fakeSessionManager struct {
	session models.PlaybackSession
	err     error
	closed  []string
}

func (f *fakeSessionManager) Start(ctx context.Context, req models.PlaybackRequest, entry *models.HistoryEntry) (models.PlaybackSession, error) {
	return f.session, f.err
}

func (f *fakeSessionManager) Get(id string) (models.PlaybackSession, error) {
	return f.session, f.err
}

func (f *fakeSessionManager) SelectProvider(ctx context.Context, id, providerID string) (models.PlaybackSession, error) {
	return f.session, f.err
}

func (f *fakeSessionManager) Progress(id string, tick models.ProgressTick) (models.PlaybackSession, error) {
	if f.err != nil {
		return models.PlaybackSession{}, f.err
	}
	s := f.session
	s.Position = tick.Position
	s.Duration = tick.Duration
	return s, nil
}

func (f *fakeSessionManager) CancelAutoAdvance(id string) (models.PlaybackSession, error) {
	return f.session, f.err
}

func (f *fakeSessionManager) Close(id string) error {
	if f.err != nil {
		return f.err
	}
	f.closed = append(f.closed, id)
	return nil
}

func newPlaybackRouter(res sourceResolver, sessions sessionManager) *mux.Router {
	h := NewPlaybackHandler(res, sessions)
	r := mux.NewRouter()
	r.HandleFunc("/api/playback/resolve", h.Resolve).Methods(http.MethodPost)
	r.HandleFunc("/api/playback/embed", h.Embed).Methods(http.MethodPost)
	r.HandleFunc("/api/playback/providers", h.Providers).Methods(http.MethodGet)
	r.HandleFunc("/api/playback/providers/next", h.NextProvider).Methods(http.MethodGet)
	r.HandleFunc("/api/playback/sessions", h.StartSession).Methods(http.MethodPost)
	r.HandleFunc("/api/playback/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	r.HandleFunc("/api/playback/sessions/{id}/progress", h.Progress).Methods(http.MethodPost)
	r.HandleFunc("/api/playback/sessions/{id}/cancel-auto-advance", h.CancelAutoAdvance).Methods(http.MethodPost)
	r.HandleFunc("/api/playback/sessions/{id}", h.CloseSession).Methods(http.MethodDelete)
	return r
}

func TestResolveReturnsSource(t *testing.T) {
	res := &fakePlaybackResolver{resolution: resolver.Resolution{
		Source: &models.ResolvedSource{Kind: models.SourceKindDirect, URL: "https://cdn.example/550/master.m3u8", Via: "cdn"},
	}}
	router := newPlaybackRouter(res, &fakeSessionManager{})

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"id":"550","mediaType":"movie"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/playback/resolve", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got resolver.Resolution
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Source == nil || got.Source.Kind != models.SourceKindDirect {
		t.Fatalf("source = %+v, want direct", got.Source)
	}
}

func TestResolveInvalidRequestMapsTo400(t *testing.T) {
	res := &fakePlaybackResolver{resolveErr: resolver.ErrInvalidRequest}
	router := newPlaybackRouter(res, &fakeSessionManager{})

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"id":"","mediaType":"movie"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/playback/resolve", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestEmbedUnknownProviderMapsTo404(t *testing.T) {
	res := &fakePlaybackResolver{embedErr: resolver.ErrUnknownProvider}
	router := newPlaybackRouter(res, &fakeSessionManager{})

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"id":"550","mediaType":"movie","providerId":"nope"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/playback/embed", body))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProvidersListsCatalog(t *testing.T) {
	router := newPlaybackRouter(&fakePlaybackResolver{}, &fakeSessionManager{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/playback/providers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string][]models.EmbedProvider
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body["providers"]) != 18 {
		t.Fatalf("providers = %d, want 18", len(body["providers"]))
	}
}

func TestNextProviderWalksCatalog(t *testing.T) {
	router := newPlaybackRouter(&fakePlaybackResolver{}, &fakeSessionManager{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/playback/providers/next?current=rivestream", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var next models.EmbedProvider
	if err := json.Unmarshal(rec.Body.Bytes(), &next); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if next.ID != "vidjoy" {
		t.Fatalf("next = %s, want vidjoy", next.ID)
	}
}

func TestNextProviderExhaustedReturns404(t *testing.T) {
	router := newPlaybackRouter(&fakePlaybackResolver{}, &fakeSessionManager{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/playback/providers/next?current=nontongo", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStartSessionReturns201(t *testing.T) {
	sessions := &fakeSessionManager{session: models.PlaybackSession{
		ID:    "abc",
		State: models.SessionStateDirectPlay,
	}}
	router := newPlaybackRouter(&fakePlaybackResolver{}, sessions)

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"id":"1396","mediaType":"series","season":1,"episode":1}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/playback/sessions", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestGetSessionNotFound(t *testing.T) {
	sessions := &fakeSessionManager{err: playback.ErrSessionNotFound}
	router := newPlaybackRouter(&fakePlaybackResolver{}, sessions)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/playback/sessions/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProgressEchoesTick(t *testing.T) {
	sessions := &fakeSessionManager{session: models.PlaybackSession{ID: "abc"}}
	router := newPlaybackRouter(&fakePlaybackResolver{}, sessions)

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"position":120.5,"duration":2400}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/playback/sessions/abc/progress", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sess models.PlaybackSession
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sess.Position != 120.5 || sess.Duration != 2400 {
		t.Fatalf("position = %v duration = %v", sess.Position, sess.Duration)
	}
}

func TestCloseSessionReturns204(t *testing.T) {
	sessions := &fakeSessionManager{}
	router := newPlaybackRouter(&fakePlaybackResolver{}, sessions)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/playback/sessions/abc", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(sessions.closed) != 1 || sessions.closed[0] != "abc" {
		t.Fatalf("closed = %v", sessions.closed)
	}
}
