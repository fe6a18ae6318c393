package models

import "time"

// HistoryEntry is one row of the watch history list. There is exactly one
// entry per catalog id; for series the entry tracks the most recently watched
// episode of that series.
type HistoryEntry struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MediaType    MediaType `json:"mediaType"`
	PosterPath   string    `json:"posterPath,omitempty"`
	BackdropPath string    `json:"backdropPath,omitempty"`
	VoteAverage  float64   `json:"voteAverage,omitempty"`
	Overview     string    `json:"overview,omitempty"`
	Season       int       `json:"season,omitempty"`
	Episode      int       `json:"episode,omitempty"`
	Progress     float64   `json:"progress"` // seconds
	Duration     float64   `json:"duration"` // seconds
	PlayedAt     time.Time `json:"playedAt"`
}

// SameUnit reports whether other refers to the same playable unit: the same
// movie, or the same season and episode of the same series.
func (e HistoryEntry) SameUnit(other HistoryEntry) bool {
	if e.ID != other.ID || e.MediaType != other.MediaType {
		return false
	}
	if e.MediaType == MediaTypeSeries {
		return e.Season == other.Season && e.Episode == other.Episode
	}
	return true
}

// HistoryProgressUpdate is the PATCH body for a progress write.
type HistoryProgressUpdate struct {
	Progress float64 `json:"progress"`
	Duration float64 `json:"duration"`
}
