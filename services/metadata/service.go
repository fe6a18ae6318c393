package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sourcegraph/conc/pool"

	"flixd/models"
)

var (
	ErrNotConfigured = errors.New("metadata provider not configured")
	ErrNotFound      = errors.New("title not found")
	ErrEmptyQuery    = errors.New("search query is empty")
)

// stableIDCacheTTLMultiplier is used for ID mappings (TMDB to IMDB) that
// rarely change.
const stableIDCacheTTLMultiplier = 7

const surpriseMaxPage = 20

// Service fronts TMDB: it owns the API key, normalizes responses into the
// models types, and caches them in memory with a TTL.
type Service struct {
	mu      sync.RWMutex
	tmdb    *tmdbClient
	cache   *gocache.Cache
	idCache *gocache.Cache
	randMu  sync.Mutex
	rand    *rand.Rand
}

func NewService(tmdbAPIKey, language string, ttlHours int) *Service {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	ttl := time.Duration(ttlHours) * time.Hour
	return &Service{
		tmdb:    newTMDBClient(tmdbAPIKey, language, &http.Client{Timeout: 15 * time.Second}),
		cache:   gocache.New(ttl, 2*ttl),
		idCache: gocache.New(stableIDCacheTTLMultiplier*ttl, 2*stableIDCacheTTLMultiplier*ttl),
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// UpdateAPIKey swaps the TMDB credentials and flushes cached responses so
// fresh data is fetched with the new key.
func (s *Service) UpdateAPIKey(tmdbAPIKey, language string) {
	s.mu.Lock()
	s.tmdb = newTMDBClient(tmdbAPIKey, language, &http.Client{Timeout: 15 * time.Second})
	s.mu.Unlock()
	s.cache.Flush()
	s.idCache.Flush()
	log.Printf("[metadata] cleared metadata cache due to API key change")
}

func (s *Service) client() *tmdbClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tmdb
}

// cachedFetch returns the cached value for key, fetching and storing it on a
// miss. Errors are never cached.
func cachedFetch[T any](s *Service, key string, fetch func() (T, error)) (T, error) {
	if cached, found := s.cache.Get(key); found {
		if v, ok := cached.(T); ok {
			return v, nil
		}
	}
	v, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}
	s.cache.SetDefault(key, v)
	return v, nil
}

func (s *Service) Trending(ctx context.Context, mediaType models.MediaType) ([]models.Title, error) {
	return cachedFetch(s, "trending/"+string(mediaType), func() ([]models.Title, error) {
		return s.client().trending(ctx, mediaType)
	})
}

func (s *Service) Popular(ctx context.Context, mediaType models.MediaType, page int) (models.TitlePage, error) {
	key := fmt.Sprintf("popular/%s/%d", mediaType, page)
	return cachedFetch(s, key, func() (models.TitlePage, error) {
		return s.client().popular(ctx, mediaType, page)
	})
}

func (s *Service) TopRated(ctx context.Context, mediaType models.MediaType) ([]models.Title, error) {
	return cachedFetch(s, "top-rated/"+string(mediaType), func() ([]models.Title, error) {
		return s.client().topRated(ctx, mediaType)
	})
}

func (s *Service) Search(ctx context.Context, query string, page int) (models.TitlePage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.TitlePage{}, ErrEmptyQuery
	}
	key := fmt.Sprintf("search/%s/%d", strings.ToLower(query), page)
	return cachedFetch(s, key, func() (models.TitlePage, error) {
		return s.client().search(ctx, query, page)
	})
}

func (s *Service) MovieDetails(ctx context.Context, id string) (models.MovieDetails, error) {
	return cachedFetch(s, "movie/"+id, func() (models.MovieDetails, error) {
		return s.client().movieDetails(ctx, id)
	})
}

func (s *Service) SeriesDetails(ctx context.Context, id string) (models.SeriesDetails, error) {
	return cachedFetch(s, "series/"+id, func() (models.SeriesDetails, error) {
		return s.client().seriesDetails(ctx, id)
	})
}

func (s *Service) SeasonDetails(ctx context.Context, seriesID string, season int) (models.SeasonDetails, error) {
	key := fmt.Sprintf("series/%s/season/%d", seriesID, season)
	return cachedFetch(s, key, func() (models.SeasonDetails, error) {
		return s.client().seasonDetails(ctx, seriesID, season)
	})
}

func (s *Service) Recommendations(ctx context.Context, mediaType models.MediaType, id string) ([]models.Title, error) {
	key := fmt.Sprintf("recommendations/%s/%s", mediaType, id)
	return cachedFetch(s, key, func() ([]models.Title, error) {
		return s.client().recommendations(ctx, mediaType, id)
	})
}

// ExternalIDs resolves alternate identifiers for a title. Mappings are kept
// in a separate cache with a longer TTL since they never change in practice.
func (s *Service) ExternalIDs(ctx context.Context, mediaType models.MediaType, id string) (models.ExternalIDs, error) {
	key := fmt.Sprintf("ids/%s/%s", mediaType, id)
	if cached, found := s.idCache.Get(key); found {
		if ids, ok := cached.(models.ExternalIDs); ok {
			return ids, nil
		}
	}
	ids, err := s.client().externalIDs(ctx, mediaType, id)
	if err != nil {
		return models.ExternalIDs{}, err
	}
	s.idCache.SetDefault(key, ids)
	return ids, nil
}

// IMDBID is a convenience wrapper over ExternalIDs for callers that only
// need the IMDB id.
func (s *Service) IMDBID(ctx context.Context, mediaType models.MediaType, id string) (string, error) {
	ids, err := s.ExternalIDs(ctx, mediaType, id)
	if err != nil {
		return "", err
	}
	return ids.IMDBID, nil
}

// DiscoverQuery narrows a catalog browse. Zero values mean "any".
type DiscoverQuery struct {
	MediaType models.MediaType
	GenreID   int64
	Year      int
	Country   string
	Page      int
}

func (s *Service) Discover(ctx context.Context, q DiscoverQuery) (models.TitlePage, error) {
	key := fmt.Sprintf("discover/%s/%d/%d/%s/%d", q.MediaType, q.GenreID, q.Year, strings.ToUpper(q.Country), q.Page)
	return cachedFetch(s, key, func() (models.TitlePage, error) {
		return s.client().discover(ctx, q.MediaType, discoverFilter{
			GenreID: q.GenreID,
			Year:    q.Year,
			Country: q.Country,
			Page:    q.Page,
			SortBy:  "popularity.desc",
		})
	})
}

// RecentlyReleased lists popular titles released within the last three
// months, optionally narrowed to a country.
func (s *Service) RecentlyReleased(ctx context.Context, mediaType models.MediaType, country string) (models.TitlePage, error) {
	now := time.Now().UTC()
	gte := now.AddDate(0, -3, 0).Format("2006-01-02")
	lte := now.Format("2006-01-02")
	key := fmt.Sprintf("recent/%s/%s/%s", mediaType, strings.ToUpper(country), lte)
	return cachedFetch(s, key, func() (models.TitlePage, error) {
		return s.client().discover(ctx, mediaType, discoverFilter{
			Country:     country,
			SortBy:      "popularity.desc",
			ReleasedGTE: gte,
			ReleasedLTE: lte,
			MinVotes:    50,
		})
	})
}

// Surprise returns a random popular title: a random page of the popular
// listing, then a random entry from it.
func (s *Service) Surprise(ctx context.Context, mediaType models.MediaType) (models.Title, error) {
	s.randMu.Lock()
	page := s.rand.Intn(surpriseMaxPage) + 1
	s.randMu.Unlock()

	titles, err := s.Popular(ctx, mediaType, page)
	if err != nil {
		return models.Title{}, err
	}
	if len(titles.Results) == 0 {
		return models.Title{}, ErrNotFound
	}
	s.randMu.Lock()
	idx := s.rand.Intn(len(titles.Results))
	s.randMu.Unlock()
	return titles.Results[idx], nil
}

// Homepage assembles the landing page rails. The rails are fetched
// concurrently; a failed rail is logged and dropped rather than failing
// the whole bundle.
func (s *Service) Homepage(ctx context.Context) (models.Homepage, error) {
	type railSpec struct {
		key  string
		name string
		load func(context.Context) ([]models.Title, error)
	}

	specs := []railSpec{
		{"trending-movies", "Trending Movies", func(ctx context.Context) ([]models.Title, error) {
			return s.Trending(ctx, models.MediaTypeMovie)
		}},
		{"trending-series", "Trending TV Shows", func(ctx context.Context) ([]models.Title, error) {
			return s.Trending(ctx, models.MediaTypeSeries)
		}},
		{"popular-movies", "Popular Movies", func(ctx context.Context) ([]models.Title, error) {
			page, err := s.Popular(ctx, models.MediaTypeMovie, 1)
			return page.Results, err
		}},
		{"popular-series", "Popular TV Shows", func(ctx context.Context) ([]models.Title, error) {
			page, err := s.Popular(ctx, models.MediaTypeSeries, 1)
			return page.Results, err
		}},
		{"top-rated-movies", "Top Rated Movies", func(ctx context.Context) ([]models.Title, error) {
			return s.TopRated(ctx, models.MediaTypeMovie)
		}},
		{"top-rated-series", "Top Rated TV Shows", func(ctx context.Context) ([]models.Title, error) {
			return s.TopRated(ctx, models.MediaTypeSeries)
		}},
	}

	results := make([][]models.Title, len(specs))
	p := pool.New().WithMaxGoroutines(4)
	for i, spec := range specs {
		p.Go(func() {
			titles, err := spec.load(ctx)
			if err != nil {
				log.Printf("[metadata] homepage rail %s failed: %v", spec.key, err)
				return
			}
			results[i] = titles
		})
	}
	p.Wait()

	home := models.Homepage{Rails: make([]models.HomepageRail, 0, len(specs))}
	for i, spec := range specs {
		if len(results[i]) == 0 {
			continue
		}
		home.Rails = append(home.Rails, models.HomepageRail{
			Key:    spec.key,
			Name:   spec.name,
			Titles: results[i],
		})
	}
	if len(home.Rails) == 0 {
		return models.Homepage{}, fmt.Errorf("homepage: no rails available")
	}
	// Hero is the top title of the first rail that loaded.
	hero := home.Rails[0].Titles[0]
	home.Hero = &hero
	return home, nil
}
