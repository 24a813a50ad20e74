// Package config loads runtime configuration from the environment,
// optionally overlaid by a YAML file.
package config

import "time"

// Config holds runtime configuration for the scorekeeper daemon.
type Config struct {
	Port     string
	Store    StoreConfig
	Sync     SyncConfig
	Scoring  ScoringConfig
	Snapshot SnapshotConfig
	Cache    CacheConfig
	Metrics  MetricsConfig
}

// StoreConfig locates durable local state.
type StoreConfig struct {
	Path string
}

// SyncConfig controls the outbound queue and the remote API. The
// passcode is forwarded on every mutating call; none of these values
// are hard-coded in the core.
type SyncConfig struct {
	Enabled       bool
	BaseURL       string
	Passcode      string
	Timeout       time.Duration
	RetryDelay    time.Duration
	FlushInterval time.Duration
}

// ScoringConfig fixes the discipline's dimensions.
type ScoringConfig struct {
	ArrowsPerEnd   int
	EndsPerRound   int
	PointsToWin    int
	RegulationSets int
}

// SnapshotConfig controls leaderboard polling.
type SnapshotConfig struct {
	Enabled  bool
	EventID  string
	Interval time.Duration
}

// CacheConfig drives the resource cache policy layer. OfflinePagePath
// optionally points at an HTML file served when a document can be
// neither fetched nor found in cache; empty selects the built-in page.
type CacheConfig struct {
	Version         string
	Origin          string
	APIPrefix       string
	OfflinePagePath string
}

// MetricsConfig controls telemetry export.
type MetricsConfig struct {
	Enabled      bool
	OtlpEndpoint string
	OtlpInsecure bool
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() Config {
	return Config{
		Port: envOrDefault(envPort, defaultPort),
		Store: StoreConfig{
			Path: envOrDefault(envStorePath, defaultStorePath),
		},
		Sync: SyncConfig{
			Enabled:       boolEnvOrDefault(envSyncEnabled, defaultSyncEnabled),
			BaseURL:       envOrDefault(envAPIBaseURL, ""),
			Passcode:      envOrDefault(envAPIPasscode, ""),
			Timeout:       durationEnvOrDefault(envAPITimeout, defaultAPITimeout),
			RetryDelay:    durationEnvOrDefault(envRetryDelay, defaultRetryDelay),
			FlushInterval: durationEnvOrDefault(envFlushInterval, defaultFlushInterval),
		},
		Scoring: ScoringConfig{
			ArrowsPerEnd:   intEnvOrDefault(envArrowsPerEnd, defaultArrowsPerEnd),
			EndsPerRound:   intEnvOrDefault(envEndsPerRound, defaultEndsPerRound),
			PointsToWin:    intEnvOrDefault(envPointsToWin, defaultPointsToWin),
			RegulationSets: intEnvOrDefault(envRegulationSets, defaultRegulationSets),
		},
		Snapshot: SnapshotConfig{
			Enabled:  boolEnvOrDefault(envSnapshotEnabled, defaultSnapshotEnabled),
			EventID:  envOrDefault(envSnapshotEvent, ""),
			Interval: durationEnvOrDefault(envSnapshotInterval, defaultSnapshotInterval),
		},
		Cache: CacheConfig{
			Version:         envOrDefault(envCacheVersion, defaultCacheVersion),
			Origin:          envOrDefault(envCacheOrigin, ""),
			APIPrefix:       envOrDefault(envAPIPrefix, defaultAPIPrefix),
			OfflinePagePath: envOrDefault(envCacheOfflinePage, ""),
		},
		Metrics: MetricsConfig{
			Enabled:      boolEnvOrDefault(envMetricsEnabled, defaultMetricsEnabled),
			OtlpEndpoint: envOrDefault(envOtlpEndpoint, ""),
			OtlpInsecure: boolEnvOrDefault(envOtlpInsecure, false),
		},
	}
}
