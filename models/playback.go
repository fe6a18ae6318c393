package models

import "time"

// MediaType discriminates movies from series everywhere a request can carry
// either. It is set at construction time and never inferred from shape.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeSeries
}

// PlaybackRequest identifies a single playable unit: a movie, or one episode
// of a series. Season and Episode are meaningful only for series.
type PlaybackRequest struct {
	ID        string    `json:"id"`
	MediaType MediaType `json:"mediaType"`
	Season    int       `json:"season,omitempty"`
	Episode   int       `json:"episode,omitempty"`
}

// Source kinds. Direct streams are trusted and played natively; embed
// sources are third-party iframe targets and stay sandboxed by default.
const (
	SourceKindDirect = "direct"
	SourceKindEmbed  = "embed"
)

// ResolvedSource is the outcome of source resolution. Kind selects which of
// the remaining fields are meaningful.
type ResolvedSource struct {
	Kind       string `json:"kind"` // direct | embed
	URL        string `json:"url"`
	ProviderID string `json:"providerId,omitempty"` // embed only
	Via        string `json:"via,omitempty"`        // cdn | streams-api | provider
}

// EmbedProvider is one entry of the static embed provider catalog. URL
// templates use %s for the title id and %d for season/episode numbers.
type EmbedProvider struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	MovieTemplate   string `json:"-"`
	EpisodeTemplate string `json:"-"`
	RequiresIMDB    bool   `json:"requiresImdb,omitempty"`
	AdFree          bool   `json:"adFree,omitempty"`
}

// Playback session states.
const (
	SessionStateResolving  = "resolving"
	SessionStateDirectPlay = "direct-playing"
	SessionStateEmbedPlay  = "embed-playing"
	SessionStateEnded      = "ended"
	SessionStateClosed     = "closed"
)

// PlaybackSession is the wire view of a playback session.
type PlaybackSession struct {
	ID        string          `json:"id"`
	Request   PlaybackRequest `json:"request"`
	State     string          `json:"state"`
	Source    *ResolvedSource `json:"source,omitempty"`
	Providers []EmbedProvider `json:"providers,omitempty"` // set when resolution fell through to the catalog
	Position  float64         `json:"position"`
	Duration  float64         `json:"duration"`
	// CountdownArmed reports an auto-advance countdown in flight.
	CountdownArmed bool      `json:"countdownArmed"`
	StartedAt      time.Time `json:"startedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProgressTick is a position report from the player.
type ProgressTick struct {
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}
