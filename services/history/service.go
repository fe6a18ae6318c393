package history

import (
	"errors"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"flixd/models"
)

var (
	ErrEntryNotFound = errors.New("history entry not found")
	ErrInvalidEntry  = errors.New("invalid history entry")
)

// progressWriteThreshold suppresses progress writes whose position moved less
// than this many seconds. Player ticks arrive every second or faster; without
// the debounce every tick would hit the store.
const progressWriteThreshold = 5.0

const defaultMaxEntries = 20

// Service maintains the most-recently-watched list. All state lives behind
// the Store port: every mutation loads the persisted list, computes the new
// one, saves it back and notifies subscribers. One entry per catalog id,
// most recent first, capped at maxEntries.
type Service struct {
	mu         sync.Mutex
	store      Store
	maxEntries int
	now        func() time.Time

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

func NewService(store Store, maxEntries int) *Service {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Service{
		store:      store,
		maxEntries: maxEntries,
		now:        time.Now,
		subs:       make(map[int]chan struct{}),
	}
}

// Subscribe returns a channel that receives a signal after every persisted
// change, plus a cancel func. The channel is never closed while subscribed;
// signals coalesce when the consumer lags.
func (s *Service) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	return ch, func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Service) broadcast() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// List returns the history, most recent first.
func (s *Service) List() ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

// AddOrTouch upserts an entry and moves it to the head of the list. Watching
// the same unit again keeps the saved progress; switching to a different
// episode of the same series starts it from zero.
func (s *Service) AddOrTouch(entry models.HistoryEntry) (models.HistoryEntry, error) {
	if strings.TrimSpace(entry.ID) == "" || !entry.MediaType.Valid() {
		return models.HistoryEntry{}, ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		return models.HistoryEntry{}, err
	}

	entry.PlayedAt = s.now().UTC()
	for i, existing := range entries {
		if existing.ID != entry.ID {
			continue
		}
		if existing.SameUnit(entry) {
			entry.Progress = existing.Progress
			entry.Duration = existing.Duration
		} else {
			entry.Progress = 0
			entry.Duration = 0
		}
		// A bare touch (id and unit only) keeps the stored display
		// metadata; retargeting to the next episode must not strip the
		// title or imagery off the entry.
		if entry.Title == "" {
			entry.Title = existing.Title
		}
		if entry.PosterPath == "" {
			entry.PosterPath = existing.PosterPath
		}
		if entry.BackdropPath == "" {
			entry.BackdropPath = existing.BackdropPath
		}
		if entry.Overview == "" {
			entry.Overview = existing.Overview
		}
		if entry.VoteAverage == 0 {
			entry.VoteAverage = existing.VoteAverage
		}
		entries = append(entries[:i], entries[i+1:]...)
		break
	}

	entries = append([]models.HistoryEntry{entry}, entries...)
	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}

	if err := s.store.Save(entries); err != nil {
		return models.HistoryEntry{}, err
	}
	s.broadcast()
	return entry, nil
}

// UpdateProgress records a new playback position for an existing entry.
// Writes are debounced: a move of less than progressWriteThreshold seconds
// is dropped without touching the store or notifying subscribers.
func (s *Service) UpdateProgress(id string, upd models.HistoryProgressUpdate) (models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		return models.HistoryEntry{}, err
	}

	for i, existing := range entries {
		if existing.ID != id {
			continue
		}
		if math.Abs(upd.Progress-existing.Progress) < progressWriteThreshold {
			return existing, nil
		}
		entries[i].Progress = upd.Progress
		if upd.Duration > 0 {
			entries[i].Duration = upd.Duration
		}
		entries[i].PlayedAt = s.now().UTC()
		if err := s.store.Save(entries); err != nil {
			return models.HistoryEntry{}, err
		}
		s.broadcast()
		return entries[i], nil
	}
	return models.HistoryEntry{}, ErrEntryNotFound
}

// Remove deletes an entry by id.
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		return err
	}

	for i, existing := range entries {
		if existing.ID != id {
			continue
		}
		entries = append(entries[:i], entries[i+1:]...)
		if err := s.store.Save(entries); err != nil {
			return err
		}
		s.broadcast()
		return nil
	}
	return ErrEntryNotFound
}

// Clear drops the whole list.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(nil); err != nil {
		return err
	}
	s.broadcast()
	return nil
}

// NewStore builds the configured Store backend.
func NewStore(backend, path string) (Store, error) {
	switch backend {
	case "sqlite":
		return NewSQLiteStore(path)
	case "", "file":
		return NewFileStore(nil, path), nil
	default:
		log.Printf("[history] unknown backend %q, using file store", backend)
		return NewFileStore(nil, path), nil
	}
}
