// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds every runtime knob, bound from STREAMEVENTS_* env vars.
type Config struct {
	AppEnv    string `mapstructure:"app_env"`
	LogLevel  string `mapstructure:"log_level"`
	Addr      string `mapstructure:"addr"`
	DataDir   string `mapstructure:"data_dir"`
	DBPath    string `mapstructure:"db_path"`
	IndexPath string `mapstructure:"index_path"`

	EmbeddingsProvider string `mapstructure:"embeddings_provider"`
	EmbeddingsURL      string `mapstructure:"embeddings_url"`
	EmbeddingsModel    string `mapstructure:"embeddings_model"`

	SessionTTLHours       int `mapstructure:"session_ttl_hours"`
	StatusIntervalSeconds int `mapstructure:"status_interval_seconds"`
}

// Load binds environment variables, applies defaults, and unmarshals the
// configuration.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("app_env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("addr", "localhost:8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("db_path", "")
	v.SetDefault("index_path", "")
	v.SetDefault("embeddings_provider", "ollama")
	v.SetDefault("embeddings_url", "")
	v.SetDefault("embeddings_model", "")
	v.SetDefault("session_ttl_hours", 72)
	v.SetDefault("status_interval_seconds", 60)

	bindEnvVars(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Derived paths default to living under the data dir.
	if cfg.DBPath == "" {
		cfg.DBPath = cfg.DataDir + "/streamevents.db"
	}
	if cfg.IndexPath == "" {
		cfg.IndexPath = cfg.DataDir + "/bleve"
	}

	return cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app_env", "STREAMEVENTS_APP_ENV")
	v.BindEnv("log_level", "STREAMEVENTS_LOG_LEVEL")
	v.BindEnv("addr", "STREAMEVENTS_ADDR")
	v.BindEnv("data_dir", "STREAMEVENTS_DATA_DIR")
	v.BindEnv("db_path", "STREAMEVENTS_DB_PATH")
	v.BindEnv("index_path", "STREAMEVENTS_INDEX_PATH")
	v.BindEnv("embeddings_provider", "STREAMEVENTS_EMBEDDINGS_PROVIDER")
	v.BindEnv("embeddings_url", "STREAMEVENTS_EMBEDDINGS_URL")
	v.BindEnv("embeddings_model", "STREAMEVENTS_EMBEDDINGS_MODEL")
	v.BindEnv("session_ttl_hours", "STREAMEVENTS_SESSION_TTL_HOURS")
	v.BindEnv("status_interval_seconds", "STREAMEVENTS_STATUS_INTERVAL_SECONDS")
}
