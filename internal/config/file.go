package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with optional fields so a YAML file can
// override any subset of values. Unset fields keep the env/default
// value from Load.
type fileConfig struct {
	Port  *string `yaml:"port"`
	Store struct {
		Path *string `yaml:"path"`
	} `yaml:"store"`
	Sync struct {
		Enabled       *bool          `yaml:"enabled"`
		BaseURL       *string        `yaml:"baseUrl"`
		Passcode      *string        `yaml:"passcode"`
		Timeout       *time.Duration `yaml:"timeout"`
		RetryDelay    *time.Duration `yaml:"retryDelay"`
		FlushInterval *time.Duration `yaml:"flushInterval"`
	} `yaml:"sync"`
	Scoring struct {
		ArrowsPerEnd   *int `yaml:"arrowsPerEnd"`
		EndsPerRound   *int `yaml:"endsPerRound"`
		PointsToWin    *int `yaml:"pointsToWin"`
		RegulationSets *int `yaml:"regulationSets"`
	} `yaml:"scoring"`
	Snapshot struct {
		Enabled  *bool          `yaml:"enabled"`
		EventID  *string        `yaml:"event"`
		Interval *time.Duration `yaml:"interval"`
	} `yaml:"snapshot"`
	Cache struct {
		Version         *string `yaml:"version"`
		Origin          *string `yaml:"origin"`
		APIPrefix       *string `yaml:"apiPrefix"`
		OfflinePagePath *string `yaml:"offlinePage"`
	} `yaml:"cache"`
	Metrics struct {
		Enabled      *bool   `yaml:"enabled"`
		OtlpEndpoint *string `yaml:"otlpEndpoint"`
		OtlpInsecure *bool   `yaml:"otlpInsecure"`
	} `yaml:"metrics"`
}

// LoadFile reads config from the environment, then overlays values set
// in the YAML file at path. A missing path returns the env config.
func LoadFile(path string) (Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&cfg.Port, fc.Port)
	setString(&cfg.Store.Path, fc.Store.Path)

	setBool(&cfg.Sync.Enabled, fc.Sync.Enabled)
	setString(&cfg.Sync.BaseURL, fc.Sync.BaseURL)
	setString(&cfg.Sync.Passcode, fc.Sync.Passcode)
	setDuration(&cfg.Sync.Timeout, fc.Sync.Timeout)
	setDuration(&cfg.Sync.RetryDelay, fc.Sync.RetryDelay)
	setDuration(&cfg.Sync.FlushInterval, fc.Sync.FlushInterval)

	setInt(&cfg.Scoring.ArrowsPerEnd, fc.Scoring.ArrowsPerEnd)
	setInt(&cfg.Scoring.EndsPerRound, fc.Scoring.EndsPerRound)
	setInt(&cfg.Scoring.PointsToWin, fc.Scoring.PointsToWin)
	setInt(&cfg.Scoring.RegulationSets, fc.Scoring.RegulationSets)

	setBool(&cfg.Snapshot.Enabled, fc.Snapshot.Enabled)
	setString(&cfg.Snapshot.EventID, fc.Snapshot.EventID)
	setDuration(&cfg.Snapshot.Interval, fc.Snapshot.Interval)

	setString(&cfg.Cache.Version, fc.Cache.Version)
	setString(&cfg.Cache.Origin, fc.Cache.Origin)
	setString(&cfg.Cache.APIPrefix, fc.Cache.APIPrefix)
	setString(&cfg.Cache.OfflinePagePath, fc.Cache.OfflinePagePath)

	setBool(&cfg.Metrics.Enabled, fc.Metrics.Enabled)
	setString(&cfg.Metrics.OtlpEndpoint, fc.Metrics.OtlpEndpoint)
	setBool(&cfg.Metrics.OtlpInsecure, fc.Metrics.OtlpInsecure)

	return cfg, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil && *src > 0 {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *time.Duration) {
	if src != nil && *src > 0 {
		*dst = *src
	}
}
