package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Metadata MetadataSettings `json:"metadata"`
	Playback PlaybackSettings `json:"playback"`
	History  HistorySettings  `json:"history"`
	Cache    CacheSettings    `json:"cache"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// PIN protects the API. Generated on first start when empty.
	PIN string `json:"pin"`
}

type MetadataSettings struct {
	TMDBAPIKey string `json:"tmdbApiKey"`
	Language   string `json:"language"`
}

// PlaybackSettings points at the upstream stream endpoints.
type PlaybackSettings struct {
	CDNBaseURL       string `json:"cdnBaseUrl"`
	StreamAPIBaseURL string `json:"streamApiBaseUrl"`
	ProbeTimeoutSec  int    `json:"probeTimeoutSec"`
	AutoAdvance      bool   `json:"autoAdvance"`
}

type HistoryBackend string

const (
	HistoryBackendFile   HistoryBackend = "file"
	HistoryBackendSQLite HistoryBackend = "sqlite"
)

type HistorySettings struct {
	Backend    HistoryBackend `json:"backend"` // file | sqlite
	Path       string         `json:"path"`
	MaxEntries int            `json:"maxEntries"`
}

type CacheSettings struct {
	Directory        string `json:"directory"`
	MetadataTTLHours int    `json:"metadataTtlHours"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

func DefaultSettings() Settings {
	return Settings{
		Server:   ServerSettings{Host: "0.0.0.0", Port: 7878},
		Metadata: MetadataSettings{TMDBAPIKey: "", Language: "en-US"},
		Playback: PlaybackSettings{
			CDNBaseURL:       "https://cdn.piracy.cloud",
			StreamAPIBaseURL: "https://api.piracy.cloud/api",
			ProbeTimeoutSec:  8,
			AutoAdvance:      true,
		},
		History: HistorySettings{Backend: HistoryBackendFile, Path: "cache/history.json", MaxEntries: 20},
		Cache:   CacheSettings{Directory: "cache", MetadataTTLHours: 24},
		Log: LogConfig{
			File:       "cache/logs/backend.log",
			Level:      "info",
			MaxSize:    50, // MB per file
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings from disk, creating the file with defaults when it does
// not exist, and backfilling fields that predate the current format.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for configs written before these fields existed.
	defaults := DefaultSettings()
	if strings.TrimSpace(s.Playback.CDNBaseURL) == "" {
		s.Playback.CDNBaseURL = defaults.Playback.CDNBaseURL
	}
	if strings.TrimSpace(s.Playback.StreamAPIBaseURL) == "" {
		s.Playback.StreamAPIBaseURL = defaults.Playback.StreamAPIBaseURL
	}
	if s.Playback.ProbeTimeoutSec <= 0 {
		s.Playback.ProbeTimeoutSec = defaults.Playback.ProbeTimeoutSec
	}
	if s.History.Backend == "" {
		s.History.Backend = defaults.History.Backend
	}
	if strings.TrimSpace(s.History.Path) == "" {
		s.History.Path = defaults.History.Path
	}
	if s.History.MaxEntries <= 0 {
		s.History.MaxEntries = defaults.History.MaxEntries
	}
	if strings.TrimSpace(s.Cache.Directory) == "" {
		s.Cache.Directory = defaults.Cache.Directory
	}
	if s.Cache.MetadataTTLHours <= 0 {
		s.Cache.MetadataTTLHours = defaults.Cache.MetadataTTLHours
	}
	if strings.TrimSpace(s.Metadata.Language) == "" {
		s.Metadata.Language = defaults.Metadata.Language
	}
	if strings.TrimSpace(s.Log.File) == "" {
		s.Log = defaults.Log
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
