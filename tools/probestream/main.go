// Command probestream resolves a playable source for a title from the
// command line, useful for checking CDN and streams API reachability
// without starting the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"flixd/config"
	"flixd/models"
	"flixd/services/metadata"
	"flixd/services/resolver"
)

func main() {
	var (
		configPath = flag.String("config", "cache/settings.json", "Path to settings.json")
		id         = flag.String("id", "", "TMDB title id")
		mediaType  = flag.String("type", "movie", "movie or series")
		season     = flag.Int("season", 0, "season number (series only)")
		episode    = flag.Int("episode", 0, "episode number (series only)")
	)
	flag.Parse()

	if *id == "" {
		log.Fatal("missing -id")
	}

	mgr := config.NewManager(*configPath)
	settings, err := mgr.Load()
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}

	meta := metadata.NewService(settings.Metadata.TMDBAPIKey, settings.Metadata.Language, settings.Cache.MetadataTTLHours)
	res := resolver.NewService(
		settings.Playback.CDNBaseURL,
		settings.Playback.StreamAPIBaseURL,
		time.Duration(settings.Playback.ProbeTimeoutSec)*time.Second,
		meta,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resolution, err := res.Resolve(ctx, models.PlaybackRequest{
		ID:        *id,
		MediaType: models.MediaType(*mediaType),
		Season:    *season,
		Episode:   *episode,
	})
	if err != nil {
		log.Fatalf("resolve: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(resolution)
}
