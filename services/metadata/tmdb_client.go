package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"flixd/models"
	"flixd/utils"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
	// Optimized image sizes instead of "original" to keep payloads small.
	// Posters render at card width, backdrops at 1080p hero width.
	tmdbPosterSize   = "w500"
	tmdbBackdropSize = "w1280"
	tmdbStillSize    = "w300"
)

type tmdbClient struct {
	apiKey   string
	language string
	httpc    *http.Client

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newTMDBClient(apiKey, language string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tmdbClient{
		apiKey:      strings.TrimSpace(apiKey),
		language:    language,
		httpc:       httpc,
		minInterval: 20 * time.Millisecond, // TMDB has generous rate limits
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// get performs a GET against a TMDB path with rate limiting and retry with
// exponential backoff on 429/5xx. query may be nil.
func (c *tmdbClient) get(ctx context.Context, apiPath string, query url.Values, v any) error {
	if !c.isConfigured() {
		return ErrNotConfigured
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	if query.Get("language") == "" {
		query.Set("language", normalizeLanguage(c.language))
	}
	endpoint := tmdbBaseURL + apiPath + "?" + query.Encode()

	return retry.Do(
		func() error {
			c.throttleMu.Lock()
			since := time.Since(c.lastRequest)
			if since < c.minInterval {
				time.Sleep(c.minInterval - since)
			}
			c.lastRequest = time.Now()
			c.throttleMu.Unlock()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return fmt.Errorf("tmdb %s: %s", apiPath, resp.Status)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("tmdb %s: %s", apiPath, resp.Status))
			}

			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("tmdb %s: decode: %w", apiPath, err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[tmdb] retrying (attempt %d/3): %v", n+1, err)
		}),
	)
}

type tmdbListItem struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	OriginalName     string  `json:"original_name"`
	OriginalTitle    string  `json:"original_title"`
	OriginalLanguage string  `json:"original_language"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	FirstAirDate     string  `json:"first_air_date"`
	ReleaseDate      string  `json:"release_date"`
	MediaType        string  `json:"media_type"`
}

type tmdbPagedResponse struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []tmdbListItem `json:"results"`
}

type tmdbGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type tmdbCountry struct {
	ISO31661 string `json:"iso_3166_1"`
	Name     string `json:"name"`
}

type tmdbMovieDetails struct {
	tmdbListItem
	Runtime             int           `json:"runtime"`
	Tagline             string        `json:"tagline"`
	Status              string        `json:"status"`
	IMDBID              string        `json:"imdb_id"`
	Genres              []tmdbGenre   `json:"genres"`
	ProductionCountries []tmdbCountry `json:"production_countries"`
}

type tmdbSeasonSummary struct {
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
	PosterPath   string `json:"poster_path"`
}

type tmdbSeriesDetails struct {
	tmdbListItem
	Status          string              `json:"status"`
	NumberOfSeasons int                 `json:"number_of_seasons"`
	Genres          []tmdbGenre         `json:"genres"`
	OriginCountry   []string            `json:"origin_country"`
	Seasons         []tmdbSeasonSummary `json:"seasons"`
}

type tmdbEpisode struct {
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
	Runtime       int    `json:"runtime"`
	StillPath     string `json:"still_path"`
}

type tmdbSeasonDetails struct {
	SeasonNumber int           `json:"season_number"`
	Name         string        `json:"name"`
	Overview     string        `json:"overview"`
	AirDate      string        `json:"air_date"`
	Episodes     []tmdbEpisode `json:"episodes"`
}

type tmdbExternalIDs struct {
	IMDBID     string `json:"imdb_id"`
	TVDBID     int64  `json:"tvdb_id"`
	WikidataID string `json:"wikidata_id"`
}

// apiMediaType maps the wire media type to TMDB's path segment.
func apiMediaType(mediaType models.MediaType) string {
	if mediaType == models.MediaTypeMovie {
		return "movie"
	}
	return "tv"
}

func (c *tmdbClient) trending(ctx context.Context, mediaType models.MediaType) ([]models.Title, error) {
	var payload tmdbPagedResponse
	if err := c.get(ctx, "/trending/"+apiMediaType(mediaType)+"/week", nil, &payload); err != nil {
		return nil, err
	}
	return mapTitles(payload.Results, mediaType), nil
}

func (c *tmdbClient) popular(ctx context.Context, mediaType models.MediaType, page int) (models.TitlePage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var payload tmdbPagedResponse
	if err := c.get(ctx, "/"+apiMediaType(mediaType)+"/popular", q, &payload); err != nil {
		return models.TitlePage{}, err
	}
	return mapPage(payload, mediaType), nil
}

func (c *tmdbClient) topRated(ctx context.Context, mediaType models.MediaType) ([]models.Title, error) {
	var payload tmdbPagedResponse
	if err := c.get(ctx, "/"+apiMediaType(mediaType)+"/top_rated", nil, &payload); err != nil {
		return nil, err
	}
	return mapTitles(payload.Results, mediaType), nil
}

func (c *tmdbClient) search(ctx context.Context, query string, page int) (models.TitlePage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("include_adult", "false")
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var payload tmdbPagedResponse
	if err := c.get(ctx, "/search/multi", q, &payload); err != nil {
		return models.TitlePage{}, err
	}

	// Multi search mixes movies, series and people; keep only playable media.
	page0 := models.TitlePage{
		Page:         payload.Page,
		TotalPages:   payload.TotalPages,
		TotalResults: payload.TotalResults,
		Results:      make([]models.Title, 0, len(payload.Results)),
	}
	for _, r := range payload.Results {
		switch r.MediaType {
		case "movie":
			page0.Results = append(page0.Results, mapTitle(r, models.MediaTypeMovie))
		case "tv":
			page0.Results = append(page0.Results, mapTitle(r, models.MediaTypeSeries))
		}
	}
	return page0, nil
}

func (c *tmdbClient) movieDetails(ctx context.Context, id string) (models.MovieDetails, error) {
	var payload tmdbMovieDetails
	if err := c.get(ctx, "/movie/"+url.PathEscape(id), nil, &payload); err != nil {
		return models.MovieDetails{}, err
	}
	details := models.MovieDetails{
		Title:          mapTitle(payload.tmdbListItem, models.MediaTypeMovie),
		RuntimeMinutes: payload.Runtime,
		Tagline:        payload.Tagline,
		Status:         payload.Status,
	}
	details.IMDBID = payload.IMDBID
	for _, g := range payload.Genres {
		details.Genres = append(details.Genres, models.Genre{ID: g.ID, Name: g.Name})
	}
	for _, pc := range payload.ProductionCountries {
		details.Countries = append(details.Countries, pc.ISO31661)
	}
	return details, nil
}

func (c *tmdbClient) seriesDetails(ctx context.Context, id string) (models.SeriesDetails, error) {
	var payload tmdbSeriesDetails
	if err := c.get(ctx, "/tv/"+url.PathEscape(id), nil, &payload); err != nil {
		return models.SeriesDetails{}, err
	}
	details := models.SeriesDetails{
		Title:           mapTitle(payload.tmdbListItem, models.MediaTypeSeries),
		Status:          payload.Status,
		NumberOfSeasons: payload.NumberOfSeasons,
		Countries:       payload.OriginCountry,
	}
	for _, g := range payload.Genres {
		details.Genres = append(details.Genres, models.Genre{ID: g.ID, Name: g.Name})
	}
	for _, s := range payload.Seasons {
		summary := models.SeasonSummary{
			SeasonNumber: s.SeasonNumber,
			Name:         s.Name,
			EpisodeCount: s.EpisodeCount,
			AirDate:      s.AirDate,
		}
		if poster := buildTMDBImage(s.PosterPath, tmdbPosterSize, "poster"); poster != nil {
			summary.Poster = poster
		}
		details.Seasons = append(details.Seasons, summary)
	}
	return details, nil
}

func (c *tmdbClient) seasonDetails(ctx context.Context, seriesID string, season int) (models.SeasonDetails, error) {
	var payload tmdbSeasonDetails
	apiPath := fmt.Sprintf("/tv/%s/season/%d", url.PathEscape(seriesID), season)
	if err := c.get(ctx, apiPath, nil, &payload); err != nil {
		return models.SeasonDetails{}, err
	}
	details := models.SeasonDetails{
		SeasonNumber: payload.SeasonNumber,
		Name:         payload.Name,
		Overview:     payload.Overview,
		AirDate:      payload.AirDate,
		Episodes:     make([]models.Episode, 0, len(payload.Episodes)),
	}
	for _, e := range payload.Episodes {
		ep := models.Episode{
			SeasonNumber:   e.SeasonNumber,
			EpisodeNumber:  e.EpisodeNumber,
			Name:           e.Name,
			Overview:       e.Overview,
			AirDate:        e.AirDate,
			RuntimeMinutes: e.Runtime,
		}
		if still := buildTMDBImage(e.StillPath, tmdbStillSize, "still"); still != nil {
			ep.Still = still
		}
		details.Episodes = append(details.Episodes, ep)
	}
	return details, nil
}

func (c *tmdbClient) externalIDs(ctx context.Context, mediaType models.MediaType, id string) (models.ExternalIDs, error) {
	var payload tmdbExternalIDs
	apiPath := "/" + apiMediaType(mediaType) + "/" + url.PathEscape(id) + "/external_ids"
	if err := c.get(ctx, apiPath, nil, &payload); err != nil {
		return models.ExternalIDs{}, err
	}
	tmdbID, _ := strconv.ParseInt(id, 10, 64)
	return models.ExternalIDs{
		IMDBID:   payload.IMDBID,
		TVDBID:   payload.TVDBID,
		TMDBID:   tmdbID,
		Wikidata: payload.WikidataID,
	}, nil
}

func (c *tmdbClient) recommendations(ctx context.Context, mediaType models.MediaType, id string) ([]models.Title, error) {
	var payload tmdbPagedResponse
	apiPath := "/" + apiMediaType(mediaType) + "/" + url.PathEscape(id) + "/recommendations"
	if err := c.get(ctx, apiPath, nil, &payload); err != nil {
		return nil, err
	}
	return mapTitles(payload.Results, mediaType), nil
}

// discoverFilter narrows a discover query. Zero values mean "any".
type discoverFilter struct {
	GenreID     int64
	Year        int
	Country     string
	Page        int
	SortBy      string
	ReleasedGTE string
	ReleasedLTE string
	MinVotes    int
}

func (c *tmdbClient) discover(ctx context.Context, mediaType models.MediaType, f discoverFilter) (models.TitlePage, error) {
	q := url.Values{}
	q.Set("include_adult", "false")
	if f.GenreID > 0 {
		q.Set("with_genres", strconv.FormatInt(f.GenreID, 10))
	}
	if f.Country != "" {
		q.Set("with_origin_country", strings.ToUpper(f.Country))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.SortBy != "" {
		q.Set("sort_by", f.SortBy)
	}
	if f.MinVotes > 0 {
		q.Set("vote_count.gte", strconv.Itoa(f.MinVotes))
	}
	if mediaType == models.MediaTypeMovie {
		if f.Year > 0 {
			q.Set("primary_release_year", strconv.Itoa(f.Year))
		}
		if f.ReleasedGTE != "" {
			q.Set("primary_release_date.gte", f.ReleasedGTE)
		}
		if f.ReleasedLTE != "" {
			q.Set("primary_release_date.lte", f.ReleasedLTE)
		}
	} else {
		if f.Year > 0 {
			q.Set("first_air_date_year", strconv.Itoa(f.Year))
		}
		if f.ReleasedGTE != "" {
			q.Set("first_air_date.gte", f.ReleasedGTE)
		}
		if f.ReleasedLTE != "" {
			q.Set("first_air_date.lte", f.ReleasedLTE)
		}
	}

	var payload tmdbPagedResponse
	if err := c.get(ctx, "/discover/"+apiMediaType(mediaType), q, &payload); err != nil {
		return models.TitlePage{}, err
	}
	return mapPage(payload, mediaType), nil
}

func mapPage(payload tmdbPagedResponse, mediaType models.MediaType) models.TitlePage {
	return models.TitlePage{
		Page:         payload.Page,
		TotalPages:   payload.TotalPages,
		TotalResults: payload.TotalResults,
		Results:      mapTitles(payload.Results, mediaType),
	}
}

func mapTitles(items []tmdbListItem, mediaType models.MediaType) []models.Title {
	titles := make([]models.Title, len(items))
	for i, r := range items {
		titles[i] = mapTitle(r, mediaType)
	}
	return titles
}

func mapTitle(r tmdbListItem, mediaType models.MediaType) models.Title {
	title := models.Title{
		ID:           strconv.FormatInt(r.ID, 10),
		Name:         pickTMDBName(mediaType, r.Name, r.Title),
		OriginalName: pickTMDBName(mediaType, r.OriginalName, r.OriginalTitle),
		Overview:     r.Overview,
		Language:     r.OriginalLanguage,
		MediaType:    string(mediaType),
		TMDBID:       r.ID,
		Popularity:   r.Popularity,
		VoteAverage:  r.VoteAverage,
		ReleaseDate:  pickTMDBDate(mediaType, r.ReleaseDate, r.FirstAirDate),
	}
	if title.OriginalName == title.Name {
		title.OriginalName = ""
	}
	if year := parseTMDBYear(title.ReleaseDate); year != 0 {
		title.Year = year
	}
	if title.Name != "" {
		title.Slug = utils.Slugify(title.Name)
	}
	if poster := buildTMDBImage(r.PosterPath, tmdbPosterSize, "poster"); poster != nil {
		title.Poster = poster
	}
	if backdrop := buildTMDBImage(r.BackdropPath, tmdbBackdropSize, "backdrop"); backdrop != nil {
		title.Backdrop = backdrop
	}
	return title
}

func pickTMDBName(mediaType models.MediaType, seriesName, movieTitle string) string {
	if mediaType == models.MediaTypeMovie && movieTitle != "" {
		return movieTitle
	}
	if seriesName != "" {
		return seriesName
	}
	return movieTitle
}

func pickTMDBDate(mediaType models.MediaType, releaseDate, firstAirDate string) string {
	if mediaType == models.MediaTypeMovie {
		return releaseDate
	}
	return firstAirDate
}

func parseTMDBYear(date string) int {
	if date == "" {
		return 0
	}
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t.Year()
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			return y
		}
	}
	return 0
}

func buildTMDBImage(imagePath, size, imageType string) *models.Image {
	trimmed := strings.TrimSpace(imagePath)
	if trimmed == "" {
		return nil
	}
	return &models.Image{
		URL:  fmt.Sprintf("%s/%s/%s", tmdbImageBaseURL, size, strings.TrimPrefix(trimmed, "/")),
		Type: imageType,
	}
}

func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if len(lang) == 2 {
		return strings.ToLower(lang) + "-US"
	}
	if len(lang) >= 5 {
		return strings.ToLower(lang[:2]) + "-" + strings.ToUpper(lang[3:5])
	}
	return "en-US"
}
