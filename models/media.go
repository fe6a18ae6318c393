package models

// Basic metadata structures for titles, seasons and episodes.

type Image struct {
	URL    string `json:"url"`
	Type   string `json:"type"` // poster, backdrop, still
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Title struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	OriginalName string  `json:"originalName,omitempty"`
	Overview     string  `json:"overview"`
	Year         int     `json:"year,omitempty"`
	Language     string  `json:"language,omitempty"`
	Poster       *Image  `json:"poster,omitempty"`
	Backdrop     *Image  `json:"backdrop,omitempty"`
	MediaType    string  `json:"mediaType"` // movie | series
	TMDBID       int64   `json:"tmdbId,omitempty"`
	IMDBID       string  `json:"imdbId,omitempty"`
	Popularity   float64 `json:"popularity,omitempty"`
	VoteAverage  float64 `json:"voteAverage,omitempty"`
	ReleaseDate  string  `json:"releaseDate,omitempty"`
	Slug         string  `json:"slug,omitempty"`
}

type MovieDetails struct {
	Title
	RuntimeMinutes int      `json:"runtimeMinutes,omitempty"`
	Tagline        string   `json:"tagline,omitempty"`
	Status         string   `json:"status,omitempty"`
	Genres         []Genre  `json:"genres,omitempty"`
	Countries      []string `json:"countries,omitempty"`
}

type SeriesDetails struct {
	Title
	Status          string          `json:"status,omitempty"` // Returning Series, Ended, Canceled
	Genres          []Genre         `json:"genres,omitempty"`
	Countries       []string        `json:"countries,omitempty"`
	NumberOfSeasons int             `json:"numberOfSeasons,omitempty"`
	Seasons         []SeasonSummary `json:"seasons,omitempty"`
}

type SeasonSummary struct {
	SeasonNumber int    `json:"seasonNumber"`
	Name         string `json:"name,omitempty"`
	EpisodeCount int    `json:"episodeCount"`
	AirDate      string `json:"airDate,omitempty"`
	Poster       *Image `json:"poster,omitempty"`
}

type SeasonDetails struct {
	SeasonNumber int       `json:"seasonNumber"`
	Name         string    `json:"name,omitempty"`
	Overview     string    `json:"overview,omitempty"`
	AirDate      string    `json:"airDate,omitempty"`
	Episodes     []Episode `json:"episodes"`
}

type Episode struct {
	SeasonNumber   int    `json:"seasonNumber"`
	EpisodeNumber  int    `json:"episodeNumber"`
	Name           string `json:"name"`
	Overview       string `json:"overview,omitempty"`
	AirDate        string `json:"airDate,omitempty"`
	RuntimeMinutes int    `json:"runtimeMinutes,omitempty"`
	Still          *Image `json:"still,omitempty"`
}

// ExternalIDs holds alternate identifiers for a title as reported upstream.
type ExternalIDs struct {
	IMDBID  string `json:"imdbId,omitempty"`
	TVDBID  int64  `json:"tvdbId,omitempty"`
	TMDBID  int64  `json:"tmdbId"`
	Wikidata string `json:"wikidataId,omitempty"`
}

// TitlePage is one page of a paginated title listing.
type TitlePage struct {
	Page         int     `json:"page"`
	TotalPages   int     `json:"totalPages"`
	TotalResults int     `json:"totalResults"`
	Results      []Title `json:"results"`
}

// HomepageRail is a named row of titles on the landing page.
type HomepageRail struct {
	Key    string  `json:"key"` // trending, popular-movies, top-rated-series, ...
	Name   string  `json:"name"`
	Titles []Title `json:"titles"`
}

type Homepage struct {
	Hero  *Title         `json:"hero,omitempty"`
	Rails []HomepageRail `json:"rails"`
}
