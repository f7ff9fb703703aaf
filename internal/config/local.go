package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// localConfigEnv names an optional YAML file with deploy-specific defaults.
// Environment variables still override anything set there.
const localConfigEnv = "STINT_CONFIG"

// localConfig mirrors the subset of Config that makes sense in a file.
// Secrets (CRON_SECRET, connection strings with credentials) stay in the
// environment.
type localConfig struct {
	Port  *int  `yaml:"port"`
	Debug *bool `yaml:"debug"`

	Database struct {
		Driver     *string `yaml:"driver"`
		URL        *string `yaml:"url"`
		SQLitePath *string `yaml:"sqlite_path"`
	} `yaml:"database"`

	AMQPURL *string `yaml:"amqp_url"`

	Tracking struct {
		Timezone          *string `yaml:"timezone"`
		CutoffHour        *int    `yaml:"cutoff_hour"`
		AutoVerifySeconds *int    `yaml:"auto_verify_seconds"`
	} `yaml:"tracking"`

	Leaderboard struct {
		CacheTTLSeconds *int `yaml:"cache_ttl_seconds"`
	} `yaml:"leaderboard"`
}

// applyLocalConfig overlays values from the file named by STINT_CONFIG, if
// set. A missing variable means no file is consulted.
func applyLocalConfig(cfg *Config) error {
	path := os.Getenv(localConfigEnv)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var local localConfig
	if err := yaml.Unmarshal(data, &local); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setIf(&cfg.Port, local.Port)
	setIf(&cfg.Debug, local.Debug)
	setIf(&cfg.DatabaseDriver, local.Database.Driver)
	setIf(&cfg.DatabaseURL, local.Database.URL)
	setIf(&cfg.SQLitePath, local.Database.SQLitePath)
	setIf(&cfg.AMQPURL, local.AMQPURL)
	setIf(&cfg.Timezone, local.Tracking.Timezone)
	setIf(&cfg.CutoffHour, local.Tracking.CutoffHour)
	setIf(&cfg.AutoVerifySeconds, local.Tracking.AutoVerifySeconds)
	setIf(&cfg.LeaderboardCacheTTL, local.Leaderboard.CacheTTLSeconds)

	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
