package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.Store.Path != defaultStorePath {
		t.Fatalf("expected default store path %s, got %s", defaultStorePath, cfg.Store.Path)
	}
	if !cfg.Sync.Enabled {
		t.Fatalf("expected sync enabled by default")
	}
	if cfg.Sync.RetryDelay != defaultRetryDelay {
		t.Fatalf("expected default retry delay %s, got %s", defaultRetryDelay, cfg.Sync.RetryDelay)
	}
	if cfg.Scoring.ArrowsPerEnd != defaultArrowsPerEnd {
		t.Fatalf("expected default arrows per end %d, got %d", defaultArrowsPerEnd, cfg.Scoring.ArrowsPerEnd)
	}
	if cfg.Scoring.PointsToWin != defaultPointsToWin {
		t.Fatalf("expected default points to win %d, got %d", defaultPointsToWin, cfg.Scoring.PointsToWin)
	}
	if cfg.Snapshot.Enabled {
		t.Fatalf("expected snapshot polling disabled by default")
	}
	if cfg.Cache.Version != defaultCacheVersion {
		t.Fatalf("expected default cache version %s, got %s", defaultCacheVersion, cfg.Cache.Version)
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("expected metrics disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(envPort, "5000")
	t.Setenv(envAPIBaseURL, "https://scores.example.org/api")
	t.Setenv(envAPIPasscode, "line-judge")
	t.Setenv(envRetryDelay, "45s")
	t.Setenv(envArrowsPerEnd, "6")
	t.Setenv(envRegulationSets, "5")
	t.Setenv(envSnapshotEnabled, "true")
	t.Setenv(envSnapshotEvent, "evt-9")
	t.Setenv(envCacheVersion, "v7")
	t.Setenv(envCacheOfflinePage, "/srv/offline.html")

	cfg := Load()

	if cfg.Port != "5000" {
		t.Fatalf("expected port 5000, got %s", cfg.Port)
	}
	if cfg.Sync.BaseURL != "https://scores.example.org/api" {
		t.Fatalf("expected base url override, got %s", cfg.Sync.BaseURL)
	}
	if cfg.Sync.Passcode != "line-judge" {
		t.Fatalf("expected passcode override, got %s", cfg.Sync.Passcode)
	}
	if cfg.Sync.RetryDelay != 45*time.Second {
		t.Fatalf("expected retry delay 45s, got %s", cfg.Sync.RetryDelay)
	}
	if cfg.Scoring.ArrowsPerEnd != 6 {
		t.Fatalf("expected 6 arrows per end, got %d", cfg.Scoring.ArrowsPerEnd)
	}
	if cfg.Scoring.RegulationSets != 5 {
		t.Fatalf("expected 5 regulation sets, got %d", cfg.Scoring.RegulationSets)
	}
	if !cfg.Snapshot.Enabled || cfg.Snapshot.EventID != "evt-9" {
		t.Fatalf("expected snapshot polling for evt-9, got %+v", cfg.Snapshot)
	}
	if cfg.Cache.Version != "v7" {
		t.Fatalf("expected cache version v7, got %s", cfg.Cache.Version)
	}
	if cfg.Cache.OfflinePagePath != "/srv/offline.html" {
		t.Fatalf("expected offline page override, got %s", cfg.Cache.OfflinePagePath)
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv(envRetryDelay, "not-a-duration")

	cfg := Load()

	if cfg.Sync.RetryDelay != defaultRetryDelay {
		t.Fatalf("expected default retry delay on invalid value, got %s", cfg.Sync.RetryDelay)
	}
}

func TestLoadNonPositiveIntFallsBack(t *testing.T) {
	t.Setenv(envArrowsPerEnd, "0")

	cfg := Load()

	if cfg.Scoring.ArrowsPerEnd != defaultArrowsPerEnd {
		t.Fatalf("expected default arrows per end on non-positive value, got %d", cfg.Scoring.ArrowsPerEnd)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	t.Setenv(envPort, "5000")

	path := filepath.Join(t.TempDir(), "scorekeeper.yaml")
	raw := `
port: "7070"
sync:
  baseUrl: https://scores.example.org/api
  retryDelay: 5s
scoring:
  pointsToWin: 6
cache:
  origin: https://scores.example.org
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "7070" {
		t.Fatalf("expected file to override port, got %s", cfg.Port)
	}
	if cfg.Sync.BaseURL != "https://scores.example.org/api" {
		t.Fatalf("expected base url from file, got %s", cfg.Sync.BaseURL)
	}
	if cfg.Sync.RetryDelay != 5*time.Second {
		t.Fatalf("expected retry delay 5s from file, got %s", cfg.Sync.RetryDelay)
	}
	if cfg.Scoring.PointsToWin != 6 {
		t.Fatalf("expected points to win 6 from file, got %d", cfg.Scoring.PointsToWin)
	}
	if cfg.Cache.Origin != "https://scores.example.org" {
		t.Fatalf("expected cache origin from file, got %s", cfg.Cache.Origin)
	}
	// Values the file does not mention keep their env/default values.
	if cfg.Scoring.ArrowsPerEnd != defaultArrowsPerEnd {
		t.Fatalf("expected untouched arrows per end, got %d", cfg.Scoring.ArrowsPerEnd)
	}
}

func TestLoadFileMissingPath(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadFileEmptyPath(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != defaultPort {
		t.Fatalf("expected env config when no file given, got port %s", cfg.Port)
	}
}
