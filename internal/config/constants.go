package config

import "time"

// Environment variable names.
const (
	envPort          = "PORT"
	envStorePath     = "STORE_PATH"
	envSyncEnabled   = "SYNC_ENABLED"
	envAPIBaseURL    = "API_BASE_URL"
	envAPIPasscode   = "API_PASSCODE"
	envAPITimeout    = "API_TIMEOUT"
	envRetryDelay    = "SYNC_RETRY_DELAY"
	envFlushInterval = "SYNC_FLUSH_INTERVAL"

	envArrowsPerEnd   = "SCORING_ARROWS_PER_END"
	envEndsPerRound   = "SCORING_ENDS_PER_ROUND"
	envPointsToWin    = "MATCH_POINTS_TO_WIN"
	envRegulationSets = "MATCH_REGULATION_SETS"

	envSnapshotEnabled  = "SNAPSHOT_ENABLED"
	envSnapshotEvent    = "SNAPSHOT_EVENT"
	envSnapshotInterval = "SNAPSHOT_INTERVAL"

	envCacheVersion     = "CACHE_VERSION"
	envCacheOrigin      = "CACHE_ORIGIN"
	envAPIPrefix        = "CACHE_API_PREFIX"
	envCacheOfflinePage = "CACHE_OFFLINE_PAGE"

	envMetricsEnabled = "METRICS_ENABLED"
	envOtlpEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtlpInsecure   = "OTEL_EXPORTER_OTLP_INSECURE"
)

// Defaults.
const (
	defaultPort          = "8090"
	defaultStorePath     = "data/scorekeeper.db"
	defaultSyncEnabled   = true
	defaultAPITimeout    = 15 * time.Second
	defaultRetryDelay    = 15 * time.Second
	defaultFlushInterval = 30 * time.Second

	defaultArrowsPerEnd   = 3
	defaultEndsPerRound   = 10
	defaultPointsToWin    = 5
	defaultRegulationSets = 4

	defaultSnapshotEnabled  = false
	defaultSnapshotInterval = 30 * time.Second

	defaultCacheVersion = "v1"
	defaultAPIPrefix    = "/api/"

	defaultMetricsEnabled = false
)
