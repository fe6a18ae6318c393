package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flixd/models"
	"flixd/services/resolver"
)

type fakeResolver struct {
	mu         sync.Mutex
	resolution resolver.Resolution
	embed      models.ResolvedSource
	embedErr   error
	resolved   []models.PlaybackRequest
}

func (f *fakeResolver) Resolve(ctx context.Context, req models.PlaybackRequest) (resolver.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, req)
	return f.resolution, nil
}

func (f *fakeResolver) EmbedSource(ctx context.Context, req models.PlaybackRequest, providerID string) (models.ResolvedSource, error) {
	if f.embedErr != nil {
		return models.ResolvedSource{}, f.embedErr
	}
	return f.embed, nil
}

func (f *fakeResolver) resolveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resolved)
}

type fakeEpisodes struct {
	episodesPerSeason int
	numberOfSeasons   int
}

func (f *fakeEpisodes) SeasonDetails(ctx context.Context, seriesID string, season int) (models.SeasonDetails, error) {
	eps := make([]models.Episode, f.episodesPerSeason)
	for i := range eps {
		eps[i] = models.Episode{SeasonNumber: season, EpisodeNumber: i + 1}
	}
	return models.SeasonDetails{SeasonNumber: season, Episodes: eps}, nil
}

func (f *fakeEpisodes) SeriesDetails(ctx context.Context, id string) (models.SeriesDetails, error) {
	return models.SeriesDetails{NumberOfSeasons: f.numberOfSeasons}, nil
}

type fakeHistory struct {
	mu       sync.Mutex
	touched  []models.HistoryEntry
	progress []models.HistoryProgressUpdate
}

func (f *fakeHistory) AddOrTouch(entry models.HistoryEntry) (models.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, entry)
	return entry, nil
}

func (f *fakeHistory) UpdateProgress(id string, upd models.HistoryProgressUpdate) (models.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, upd)
	return models.HistoryEntry{ID: id, Progress: upd.Progress}, nil
}

func directResolution(url string) resolver.Resolution {
	return resolver.Resolution{Source: &models.ResolvedSource{Kind: models.SourceKindDirect, URL: url, Via: "cdn"}}
}

func newTestManager(res *fakeResolver) (*Manager, *fakeHistory) {
	hist := &fakeHistory{}
	m := NewManager(res, &fakeEpisodes{episodesPerSeason: 10, numberOfSeasons: 3}, hist, true)
	m.delay = 30 * time.Millisecond
	return m, hist
}

func episodeReq(season, episode int) models.PlaybackRequest {
	return models.PlaybackRequest{ID: "1396", MediaType: models.MediaTypeSeries, Season: season, Episode: episode}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func sessionView(t *testing.T, m *Manager, id string) models.PlaybackSession {
	t.Helper()
	view, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return view
}

func TestStartDirectSource(t *testing.T) {
	res := &fakeResolver{resolution: directResolution("https://cdn.example/m.m3u8")}
	m, hist := newTestManager(res)

	sess, err := m.Start(context.Background(), models.PlaybackRequest{ID: "603", MediaType: models.MediaTypeMovie},
		&models.HistoryEntry{ID: "603", Title: "The Matrix", MediaType: models.MediaTypeMovie})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.State != models.SessionStateDirectPlay {
		t.Errorf("state = %s", sess.State)
	}
	if sess.Source == nil || sess.Source.URL != "https://cdn.example/m.m3u8" {
		t.Errorf("source = %+v", sess.Source)
	}
	if sess.ID == "" {
		t.Error("missing session id")
	}
	hist.mu.Lock()
	defer hist.mu.Unlock()
	if len(hist.touched) != 1 || hist.touched[0].Title != "The Matrix" {
		t.Errorf("history touch = %+v", hist.touched)
	}
}

func TestStartFallbackThenSelectProvider(t *testing.T) {
	res := &fakeResolver{
		resolution: resolver.Resolution{Providers: resolver.Providers()},
		embed:      models.ResolvedSource{Kind: models.SourceKindEmbed, URL: "https://embed.example", ProviderID: "vidjoy", Via: "provider"},
	}
	m, _ := newTestManager(res)

	sess, err := m.Start(context.Background(), models.PlaybackRequest{ID: "603", MediaType: models.MediaTypeMovie}, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.State != models.SessionStateResolving || len(sess.Providers) == 0 {
		t.Fatalf("expected resolving with provider catalog, got %+v", sess)
	}

	sess, err = m.SelectProvider(context.Background(), sess.ID, "vidjoy")
	if err != nil {
		t.Fatalf("SelectProvider: %v", err)
	}
	if sess.State != models.SessionStateEmbedPlay || sess.Source == nil || sess.Source.ProviderID != "vidjoy" {
		t.Errorf("session after selection = %+v", sess)
	}
}

func TestProgressFeedsHistory(t *testing.T) {
	res := &fakeResolver{resolution: directResolution("u")}
	m, hist := newTestManager(res)

	sess, _ := m.Start(context.Background(), models.PlaybackRequest{ID: "603", MediaType: models.MediaTypeMovie}, nil)
	if _, err := m.Progress(sess.ID, models.ProgressTick{Position: 120, Duration: 7200}); err != nil {
		t.Fatalf("Progress: %v", err)
	}

	hist.mu.Lock()
	defer hist.mu.Unlock()
	if len(hist.progress) != 1 || hist.progress[0].Progress != 120 {
		t.Errorf("progress writes = %+v", hist.progress)
	}
}

func TestAutoAdvanceToNextEpisode(t *testing.T) {
	res := &fakeResolver{resolution: directResolution("u")}
	m, _ := newTestManager(res)

	sess, _ := m.Start(context.Background(), episodeReq(1, 3), nil)

	view, err := m.Progress(sess.ID, models.ProgressTick{Position: 2690, Duration: 2700})
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if !view.CountdownArmed {
		t.Fatal("expected countdown armed at 10s remaining")
	}

	waitFor(t, "advance to next episode", func() bool {
		v := sessionView(t, m, sess.ID)
		return v.Request.Episode == 4 && v.State == models.SessionStateDirectPlay
	})

	v := sessionView(t, m, sess.ID)
	if v.Request.Season != 1 || v.Position != 0 || v.Duration != 0 {
		t.Errorf("session after advance = %+v", v)
	}
}

func TestAutoAdvanceRollsOverSeason(t *testing.T) {
	res := &fakeResolver{resolution: directResolution("u")}
	m, _ := newTestManager(res)

	sess, _ := m.Start(context.Background(), episodeReq(1, 10), nil)
	m.Progress(sess.ID, models.ProgressTick{Position: 2688, Duration: 2700})

	waitFor(t, "season rollover", func() bool {
		v := sessionView(t, m, sess.ID)
		return v.Request.Season == 2 && v.Request.Episode == 1
	})
}

func TestAutoAdvanceEndsAfterFinale(t *testing.T) {
	res := &fakeResolver{resolution: directResolution("u")}
	m, _ := newTestManager(res)

	sess, _ := m.Start(context.Background(), episodeReq(3, 10), nil)
	m.Progress(sess.ID, models.ProgressTick{Position: 2690, Duration: 2700})

	waitFor(t, "session ended", func() bool {
		return sessionView(t, m, sess.ID).State == models.SessionStateEnded
	})
	if v := sessionView(t, m, sess.ID); v.Request.Season != 3 || v.Request.Episode != 10 {
		t.Errorf("finale session retargeted: %+v", v)
	}
}

func TestSeekBackDisarmsCountdown(t *testing.T) {
	res := &fakeResolver{resolution: directResolution("u")}
	m, _ := newTestManager(res)

	sess, _ := m.Start(context.Background(), episodeReq(1, 3), nil)
	view, _ := m.Progress(sess.ID, models.ProgressTick{Position: 2690, Duration: 2700})
	if !view.CountdownArmed {
		t.Fatal("expected countdown armed")
	}

	view, _ = m.Progress(sess.ID, models.ProgressTick{Position: 100, Duration: 2700})
	if view.CountdownArmed {
		t.Fatal("seek back above threshold must disarm")
	}

	time.Sleep(3 * m.delay)
	if v := sessionView(t, m, sess.ID); v.Request.Episode != 3 {
		t.Errorf("disarmed countdown still advanced: %+v", v.Request)
	}

	// Disarm is not sticky: crossing the threshold again re-arms.
	view, _ = m.Progress(sess.ID, models.ProgressTick{Position: 2690, Duration: 2700})
	if !view.CountdownArmed {
		t.Error("expected countdown re-armed after a plain disarm")
	}
}

func TestCancelAutoAdvanceIsSticky(t *testing.T) {
	res := &fakeResolver{resolution: directResolution("u")}
	m, _ := newTestManager(res)

	sess, _ := m.Start(context.Background(), episodeReq(1, 3), nil)
	m.Progress(sess.ID, models.ProgressTick{Position: 2690, Duration: 2700})

	view, err := m.CancelAutoAdvance(sess.ID)
	if err != nil {
		t.Fatalf("CancelAutoAdvance: %v", err)
	}
	if view.CountdownArmed {
		t.Fatal("cancel must disarm")
	}

	// Further ticks inside the threshold must not re-arm for this unit.
	view, _ = m.Progress(sess.ID, models.ProgressTick{Position: 2695, Duration: 2700})
	if view.CountdownArmed {
		t.Fatal("sticky cancel re-armed")
	}

	time.Sleep(3 * m.delay)
	if v := sessionView(t, m, sess.ID); v.Request.Episode != 3 {
		t.Errorf("cancelled session advanced: %+v", v.Request)
	}
}

func TestMovieNeverArms(t *testing.T) {
	res := &fakeResolver{resolution: directResolution("u")}
	m, _ := newTestManager(res)

	sess, _ := m.Start(context.Background(), models.PlaybackRequest{ID: "603", MediaType: models.MediaTypeMovie}, nil)
	view, _ := m.Progress(sess.ID, models.ProgressTick{Position: 7190, Duration: 7200})
	if view.CountdownArmed {
		t.Error("movies have no next unit to advance to")
	}
}

func TestCloseStopsPendingAdvance(t *testing.T) {
	res := &fakeResolver{resolution: directResolution("u")}
	m, _ := newTestManager(res)

	sess, _ := m.Start(context.Background(), episodeReq(1, 3), nil)
	m.Progress(sess.ID, models.ProgressTick{Position: 2690, Duration: 2700})

	if err := m.Close(sess.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("closed session still present: %v", err)
	}

	before := res.resolveCount()
	time.Sleep(3 * m.delay)
	if res.resolveCount() != before {
		t.Error("countdown fired after close")
	}
}

func TestUnknownSession(t *testing.T) {
	m, _ := newTestManager(&fakeResolver{resolution: directResolution("u")})
	if _, err := m.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get err = %v", err)
	}
	if _, err := m.Progress("nope", models.ProgressTick{}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Progress err = %v", err)
	}
	if err := m.Close("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Close err = %v", err)
	}
}
