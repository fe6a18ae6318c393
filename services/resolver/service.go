package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"flixd/internal/streammatch"
	"flixd/models"
)

var (
	ErrInvalidRequest   = errors.New("invalid playback request")
	ErrUnknownProvider  = errors.New("unknown embed provider")
	ErrNoPlayableSource = errors.New("no playable source")
)

// imdbLookup resolves the IMDB id for a title. Implemented by the metadata
// service, which caches the mapping.
type imdbLookup interface {
	IMDBID(ctx context.Context, mediaType models.MediaType, id string) (string, error)
}

// Service resolves a playable unit to a stream source. Resolution walks three
// tiers in strict order and short-circuits on the first hit: direct CDN
// probe, then the secondary streams API, then the embed provider catalog for
// manual selection. Probe failures are misses, not errors; there are no
// retries at this layer.
type Service struct {
	cdnBase string
	apiBase string
	httpc   *http.Client
	imdb    imdbLookup
}

func NewService(cdnBaseURL, streamAPIBaseURL string, probeTimeout time.Duration, imdb imdbLookup) *Service {
	if probeTimeout <= 0 {
		probeTimeout = 8 * time.Second
	}
	return &Service{
		cdnBase: strings.TrimRight(cdnBaseURL, "/"),
		apiBase: strings.TrimRight(streamAPIBaseURL, "/"),
		httpc:   &http.Client{Timeout: probeTimeout},
		imdb:    imdb,
	}
}

// Resolution is the outcome of Resolve. Either Source is set, or Providers
// carries the fallback catalog for manual selection.
type Resolution struct {
	Source    *models.ResolvedSource `json:"source,omitempty"`
	Providers []models.EmbedProvider `json:"providers,omitempty"`
}

func validate(req models.PlaybackRequest) error {
	if strings.TrimSpace(req.ID) == "" || !req.MediaType.Valid() {
		return ErrInvalidRequest
	}
	if req.MediaType == models.MediaTypeSeries && (req.Season < 1 || req.Episode < 1) {
		return ErrInvalidRequest
	}
	return nil
}

// Resolve finds a source for the requested unit.
func (s *Service) Resolve(ctx context.Context, req models.PlaybackRequest) (Resolution, error) {
	if err := validate(req); err != nil {
		return Resolution{}, err
	}

	if src, ok := s.probeCDN(ctx, req); ok {
		return Resolution{Source: &src}, nil
	}
	if src, ok := s.probeStreamsAPI(ctx, req); ok {
		return Resolution{Source: &src}, nil
	}

	log.Printf("[resolver] no direct source for %s %s, offering provider catalog", req.MediaType, req.ID)
	return Resolution{Providers: Providers()}, nil
}

// probeCDN checks the primary CDN for a prebuilt HLS playlist. A cache buster
// keeps intermediaries from answering for a stream that has since appeared.
func (s *Service) probeCDN(ctx context.Context, req models.PlaybackRequest) (models.ResolvedSource, bool) {
	streamPath := url.PathEscape(req.ID)
	if req.MediaType == models.MediaTypeSeries {
		streamPath = fmt.Sprintf("%s-%d-%d", url.PathEscape(req.ID), req.Season, req.Episode)
	}
	probeURL := fmt.Sprintf("%s/%s/master.m3u8?t=%d", s.cdnBase, streamPath, time.Now().UnixMilli())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
	if err != nil {
		return models.ResolvedSource{}, false
	}
	httpReq.Header.Set("Cache-Control", "no-store")

	resp, err := s.httpc.Do(httpReq)
	if err != nil {
		log.Printf("[resolver] cdn probe failed: %v", err)
		return models.ResolvedSource{}, false
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.ResolvedSource{}, false
	}

	// Strip the cache buster; the player fetches its own playlist.
	streamURL := fmt.Sprintf("%s/%s/master.m3u8", s.cdnBase, streamPath)
	return models.ResolvedSource{Kind: models.SourceKindDirect, URL: streamURL, Via: "cdn"}, true
}

type streamsAPIResponse struct {
	Streams []streammatch.Entry `json:"streams"`
}

// probeStreamsAPI asks the secondary streams API for a listing and picks the
// trusted entry, if any.
func (s *Service) probeStreamsAPI(ctx context.Context, req models.PlaybackRequest) (models.ResolvedSource, bool) {
	var endpoint string
	if req.MediaType == models.MediaTypeSeries {
		endpoint = fmt.Sprintf("%s/streams/series/%s?season=%s&episode=%s",
			s.apiBase, url.PathEscape(req.ID),
			url.QueryEscape(strconv.Itoa(req.Season)), url.QueryEscape(strconv.Itoa(req.Episode)))
	} else {
		endpoint = fmt.Sprintf("%s/streams/movie/%s", s.apiBase, url.PathEscape(req.ID))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.ResolvedSource{}, false
	}

	resp, err := s.httpc.Do(httpReq)
	if err != nil {
		log.Printf("[resolver] streams api probe failed: %v", err)
		return models.ResolvedSource{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.ResolvedSource{}, false
	}

	var payload streamsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Printf("[resolver] streams api returned malformed listing: %v", err)
		return models.ResolvedSource{}, false
	}

	entry, ok := streammatch.First(payload.Streams)
	if !ok {
		return models.ResolvedSource{}, false
	}
	return models.ResolvedSource{Kind: models.SourceKindDirect, URL: entry.URL, Via: "streams-api"}, true
}

// EmbedSource builds the iframe target for a chosen catalog provider.
// Providers keyed by IMDB id go through the metadata boundary; a failed
// lookup is a hard ErrNoPlayableSource rather than a silent stall.
func (s *Service) EmbedSource(ctx context.Context, req models.PlaybackRequest, providerID string) (models.ResolvedSource, error) {
	if err := validate(req); err != nil {
		return models.ResolvedSource{}, err
	}
	provider, ok := ProviderByID(providerID)
	if !ok {
		return models.ResolvedSource{}, ErrUnknownProvider
	}

	titleID := req.ID
	if provider.RequiresIMDB {
		if s.imdb == nil {
			return models.ResolvedSource{}, ErrNoPlayableSource
		}
		imdbID, err := s.imdb.IMDBID(ctx, req.MediaType, req.ID)
		if err != nil || strings.TrimSpace(imdbID) == "" {
			log.Printf("[resolver] imdb lookup failed for %s %s: %v", req.MediaType, req.ID, err)
			return models.ResolvedSource{}, ErrNoPlayableSource
		}
		titleID = imdbID
	}

	return models.ResolvedSource{
		Kind:       models.SourceKindEmbed,
		URL:        embedURL(provider, titleID, req),
		ProviderID: provider.ID,
		Via:        "provider",
	}, nil
}
