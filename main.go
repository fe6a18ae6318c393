package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"flixd/api"
	"flixd/config"
	"flixd/handlers"
	"flixd/services/history"
	"flixd/services/metadata"
	"flixd/services/playback"
	"flixd/services/resolver"
	"flixd/utils"

	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configPath := flag.String("config", "", "path to settings.json")
	portOverride := flag.Int("port", 0, "override configured server port")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("FLIXD_CONFIG")
	}
	if path == "" {
		path = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(path)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// File logging with rotation, mirrored to stdout.
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Generate the API PIN on first start and persist it.
	settings.Server.PIN = strings.TrimSpace(settings.Server.PIN)
	if settings.Server.PIN == "" {
		pin, err := utils.GeneratePIN(6)
		if err != nil {
			log.Fatalf("failed to generate PIN: %v", err)
		}
		settings.Server.PIN = pin
		if err := cfgManager.Save(settings); err != nil {
			log.Fatalf("failed to persist generated PIN: %v", err)
		}
		fmt.Println("Generated a new 6-digit PIN; configure your client to send it in the X-PIN header.")
	}
	fmt.Printf("flixd PIN: %s\n", settings.Server.PIN)

	// Services
	metadataService := metadata.NewService(settings.Metadata.TMDBAPIKey, settings.Metadata.Language, settings.Cache.MetadataTTLHours)

	probeTimeout := time.Duration(settings.Playback.ProbeTimeoutSec) * time.Second
	resolverService := resolver.NewService(settings.Playback.CDNBaseURL, settings.Playback.StreamAPIBaseURL, probeTimeout, metadataService)

	historyStore, err := history.NewStore(string(settings.History.Backend), settings.History.Path)
	if err != nil {
		log.Fatalf("failed to open history store: %v", err)
	}
	historyService := history.NewService(historyStore, settings.History.MaxEntries)

	sessionManager := playback.NewManager(resolverService, metadataService, historyService, settings.Playback.AutoAdvance)

	// Handlers and routes
	settingsHandler := handlers.NewSettingsHandler(cfgManager)
	settingsHandler.SetMetadataService(metadataService)
	metadataHandler := handlers.NewMetadataHandler(metadataService)
	playbackHandler := handlers.NewPlaybackHandler(resolverService, sessionManager)
	historyHandler := handlers.NewHistoryHandler(historyService)
	imageHandler := handlers.NewImageHandler(settings.Cache.Directory)

	r := utils.NewRouter()
	api.Register(r, settings.Server.PIN, settingsHandler, metadataHandler, playbackHandler, historyHandler, imageHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// No write timeout, the history event stream stays open.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Shutdown complete")
}
