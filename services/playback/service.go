package playback

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"flixd/models"
	"flixd/services/history"
	"flixd/services/resolver"
)

var (
	ErrSessionNotFound = errors.New("playback session not found")
	ErrSessionClosed   = errors.New("playback session is closed")
)

// autoAdvanceThresholdSec arms the next-episode countdown once this little
// playback time remains. The countdown itself runs autoAdvanceDelay.
const (
	autoAdvanceThresholdSec = 15.0
	autoAdvanceDelay        = 10 * time.Second
)

type sourceResolver interface {
	Resolve(ctx context.Context, req models.PlaybackRequest) (resolver.Resolution, error)
	EmbedSource(ctx context.Context, req models.PlaybackRequest, providerID string) (models.ResolvedSource, error)
}

var _ sourceResolver = (*resolver.Service)(nil)

// episodeLister provides the episode counts that drive next-episode math.
type episodeLister interface {
	SeasonDetails(ctx context.Context, seriesID string, season int) (models.SeasonDetails, error)
	SeriesDetails(ctx context.Context, id string) (models.SeriesDetails, error)
}

// historyRecorder receives watch events from running sessions.
type historyRecorder interface {
	AddOrTouch(entry models.HistoryEntry) (models.HistoryEntry, error)
	UpdateProgress(id string, upd models.HistoryProgressUpdate) (models.HistoryEntry, error)
}

// session is the server-side playback state for one client player. State
// moves resolving -> (direct-playing | embed-playing) -> ended or
// closed; auto-advance loops it back to resolving for the next episode.
type session struct {
	id    string
	req   models.PlaybackRequest
	state string

	source    *models.ResolvedSource
	providers []models.EmbedProvider

	position float64
	duration float64

	// generation guards against stale resolution results: it increments on
	// every unit change and results tagged with an older value are dropped.
	generation uint64

	countdown countdown
	// autoAdvanceCancelled is sticky for the remainder of the current unit.
	autoAdvanceCancelled bool

	startedAt time.Time
	updatedAt time.Time
}

func (s *session) view() models.PlaybackSession {
	return models.PlaybackSession{
		ID:             s.id,
		Request:        s.req,
		State:          s.state,
		Source:         s.source,
		Providers:      s.providers,
		Position:       s.position,
		Duration:       s.duration,
		CountdownArmed: s.countdown.isArmed(),
		StartedAt:      s.startedAt,
		UpdatedAt:      s.updatedAt,
	}
}

// Manager owns all live playback sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	resolver sourceResolver
	episodes episodeLister
	history  historyRecorder

	autoAdvance bool
	// delay is the countdown length; tests shorten it.
	delay time.Duration
	now   func() time.Time
}

func NewManager(res sourceResolver, episodes episodeLister, history historyRecorder, autoAdvance bool) *Manager {
	return &Manager{
		sessions:    make(map[string]*session),
		resolver:    res,
		episodes:    episodes,
		history:     history,
		autoAdvance: autoAdvance,
		delay:       autoAdvanceDelay,
		now:         time.Now,
	}
}

// Start resolves a unit and opens a session for it. entry, when set, is the
// title metadata recorded into watch history.
func (m *Manager) Start(ctx context.Context, req models.PlaybackRequest, entry *models.HistoryEntry) (models.PlaybackSession, error) {
	res, err := m.resolver.Resolve(ctx, req)
	if err != nil {
		return models.PlaybackSession{}, err
	}

	now := m.now()
	s := &session{
		id:        uuid.NewString(),
		req:       req,
		state:     models.SessionStateResolving,
		startedAt: now,
		updatedAt: now,
	}
	s.applyResolution(res)

	if entry != nil && m.history != nil {
		if _, err := m.history.AddOrTouch(*entry); err != nil {
			log.Printf("[playback] record history for %s: %v", req.ID, err)
		}
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	view := s.view()
	m.mu.Unlock()
	return view, nil
}

// applyResolution moves a resolving session forward. A direct source starts
// native playback; otherwise the session stays in resolving with the
// provider catalog attached until the client picks one.
func (s *session) applyResolution(res resolver.Resolution) {
	if res.Source != nil {
		s.source = res.Source
		s.providers = nil
		s.state = models.SessionStateDirectPlay
		return
	}
	s.source = nil
	s.providers = res.Providers
	s.state = models.SessionStateResolving
}

// Get returns the current session view.
func (m *Manager) Get(id string) (models.PlaybackSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.PlaybackSession{}, ErrSessionNotFound
	}
	return s.view(), nil
}

// SelectProvider switches the session to an embed source from the catalog.
func (m *Manager) SelectProvider(ctx context.Context, id, providerID string) (models.PlaybackSession, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return models.PlaybackSession{}, ErrSessionNotFound
	}
	req := s.req
	m.mu.Unlock()

	// Resolving the embed URL can hit the metadata boundary; do it unlocked.
	src, err := m.resolver.EmbedSource(ctx, req, providerID)
	if err != nil {
		return models.PlaybackSession{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s.state == models.SessionStateClosed {
		return models.PlaybackSession{}, ErrSessionClosed
	}
	if s.req != req {
		// The session advanced while the embed URL was being built.
		return s.view(), nil
	}
	s.source = &src
	s.providers = nil
	s.state = models.SessionStateEmbedPlay
	s.updatedAt = m.now()
	return s.view(), nil
}

// Progress records a player position report. It feeds watch history and
// drives the auto-advance countdown.
func (m *Manager) Progress(id string, tick models.ProgressTick) (models.PlaybackSession, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return models.PlaybackSession{}, ErrSessionNotFound
	}
	if s.state == models.SessionStateClosed {
		m.mu.Unlock()
		return models.PlaybackSession{}, ErrSessionClosed
	}

	s.position = tick.Position
	if tick.Duration > 0 {
		s.duration = tick.Duration
	}
	s.updatedAt = m.now()

	historyID := s.req.ID
	remaining := s.duration - s.position
	playing := s.state == models.SessionStateDirectPlay || s.state == models.SessionStateEmbedPlay

	if s.duration > 0 && remaining <= 0.5 && playing {
		s.state = models.SessionStateEnded
	}

	shouldArm := m.autoAdvance &&
		playing &&
		s.req.MediaType == models.MediaTypeSeries &&
		s.duration > 0 &&
		remaining <= autoAdvanceThresholdSec &&
		remaining > 0.5 &&
		!s.autoAdvanceCancelled

	if shouldArm {
		gen := s.generation
		if s.countdown.start(m.delay, func() { m.advance(s, gen) }) {
			log.Printf("[playback] auto-advance armed for session %s (%.0fs remaining)", s.id, remaining)
		}
	} else if remaining > autoAdvanceThresholdSec {
		// Seeking back above the threshold resets the countdown. This is a
		// plain disarm, not the sticky user cancel.
		s.countdown.cancel()
	}

	view := s.view()
	m.mu.Unlock()

	if m.history != nil {
		if _, err := m.history.UpdateProgress(historyID, models.HistoryProgressUpdate{
			Progress: tick.Position,
			Duration: tick.Duration,
		}); err != nil && !errors.Is(err, history.ErrEntryNotFound) {
			log.Printf("[playback] progress write for %s: %v", historyID, err)
		}
	}
	return view, nil
}

// CancelAutoAdvance disarms the countdown and suppresses re-arming for the
// remainder of the current unit.
func (m *Manager) CancelAutoAdvance(id string) (models.PlaybackSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.PlaybackSession{}, ErrSessionNotFound
	}
	s.countdown.cancel()
	s.autoAdvanceCancelled = true
	s.updatedAt = m.now()
	return s.view(), nil
}

// Close tears a session down.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.countdown.cancel()
	s.state = models.SessionStateClosed
	delete(m.sessions, id)
	return nil
}

// advance fires when a countdown completes: it retargets the session at the
// next episode and re-resolves. gen is the unit generation the countdown was
// armed for; the session having moved on since makes this a no-op.
func (m *Manager) advance(s *session, gen uint64) {
	ctx := context.Background()

	m.mu.Lock()
	if s.state == models.SessionStateClosed || s.generation != gen || s.autoAdvanceCancelled {
		m.mu.Unlock()
		return
	}
	current := s.req
	m.mu.Unlock()

	next, err := m.nextEpisode(ctx, current)
	if err != nil {
		log.Printf("[playback] no next episode after %s s%de%d: %v", current.ID, current.Season, current.Episode, err)
		m.mu.Lock()
		if s.generation == gen && s.state != models.SessionStateClosed {
			s.state = models.SessionStateEnded
		}
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	if s.state == models.SessionStateClosed || s.generation != gen {
		m.mu.Unlock()
		return
	}
	s.generation++
	newGen := s.generation
	s.req = next
	s.state = models.SessionStateResolving
	s.source = nil
	s.providers = nil
	s.position = 0
	s.duration = 0
	s.autoAdvanceCancelled = false
	s.updatedAt = m.now()
	m.mu.Unlock()

	log.Printf("[playback] advancing session %s to s%de%d", s.id, next.Season, next.Episode)

	if m.history != nil {
		if _, err := m.history.AddOrTouch(models.HistoryEntry{
			ID:        next.ID,
			MediaType: next.MediaType,
			Season:    next.Season,
			Episode:   next.Episode,
		}); err != nil {
			log.Printf("[playback] record advance for %s: %v", next.ID, err)
		}
	}

	res, err := m.resolver.Resolve(ctx, next)
	if err != nil {
		log.Printf("[playback] re-resolve after advance failed: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Apply only if the session still targets the unit this resolution was
	// started for.
	if s.state == models.SessionStateClosed || s.generation != newGen {
		return
	}
	s.applyResolution(res)
	s.updatedAt = m.now()
}

var errNoNextEpisode = errors.New("no next episode")

// nextEpisode computes the unit after req: the next episode in the season,
// or episode 1 of the next season when the current one is exhausted.
func (m *Manager) nextEpisode(ctx context.Context, req models.PlaybackRequest) (models.PlaybackRequest, error) {
	if m.episodes == nil {
		return models.PlaybackRequest{}, errNoNextEpisode
	}

	season, err := m.episodes.SeasonDetails(ctx, req.ID, req.Season)
	if err != nil {
		return models.PlaybackRequest{}, err
	}
	if req.Episode < len(season.Episodes) {
		next := req
		next.Episode++
		return next, nil
	}

	series, err := m.episodes.SeriesDetails(ctx, req.ID)
	if err != nil {
		return models.PlaybackRequest{}, err
	}
	if req.Season < series.NumberOfSeasons {
		next := req
		next.Season++
		next.Episode = 1
		return next, nil
	}
	return models.PlaybackRequest{}, errNoNextEpisode
}
