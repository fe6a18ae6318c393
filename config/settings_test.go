package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewManager(path)

	s, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Server.Port != 7878 {
		t.Errorf("port = %d, want 7878", s.Server.Port)
	}
	if s.History.MaxEntries != 20 {
		t.Errorf("maxEntries = %d, want 20", s.History.MaxEntries)
	}
	if s.History.Backend != HistoryBackendFile {
		t.Errorf("backend = %q, want file", s.History.Backend)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("settings file not written: %v", err)
	}
}

func TestLoadBackfillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	old := map[string]any{
		"server":   map[string]any{"host": "127.0.0.1", "port": 9000, "pin": "123456"},
		"metadata": map[string]any{"tmdbApiKey": "key"},
	}
	buf, _ := json.Marshal(old)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Server.Port != 9000 || s.Server.PIN != "123456" {
		t.Errorf("server settings overwritten: %+v", s.Server)
	}
	if s.Playback.CDNBaseURL == "" {
		t.Error("cdn base url not backfilled")
	}
	if s.History.MaxEntries != 20 {
		t.Errorf("maxEntries = %d, want 20", s.History.MaxEntries)
	}
	if s.Metadata.TMDBAPIKey != "key" {
		t.Errorf("api key = %q, want key", s.Metadata.TMDBAPIKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewManager(path)

	s := DefaultSettings()
	s.Metadata.TMDBAPIKey = "secret"
	s.Playback.AutoAdvance = false
	if err := m.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Metadata.TMDBAPIKey != "secret" {
		t.Errorf("api key = %q", got.Metadata.TMDBAPIKey)
	}
	if got.Playback.AutoAdvance {
		t.Error("autoAdvance = true, want false")
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(filepath.Join(dir, "settings.json"))
	if err := m.Save(DefaultSettings()); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "settings.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir contents = %v, want only settings.json", names)
	}
}
