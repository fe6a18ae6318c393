package history

import "flixd/models"

// Store is the persistence port for the watch history list. Implementations
// persist the whole list at once; the service re-derives its view from Load
// before every mutation, so the last writer wins.
type Store interface {
	Load() ([]models.HistoryEntry, error)
	Save(entries []models.HistoryEntry) error
}
