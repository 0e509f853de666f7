// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. SALARY_SERVER_PORT.
const EnvPrefix = "SALARY"

// Backend names.
const (
	SourceLocal = "local"
	SourceGCS   = "gcs"

	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendPubSub   = "pubsub"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Predict   PredictConfig   `mapstructure:"predict"`
	History   HistoryConfig   `mapstructure:"history"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
	// RateLimitRPS is the per-client request rate; 0 disables limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
	// File, when set, also writes JSON logs to a rotated file.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ArtifactsConfig locates the model and preprocessor.
type ArtifactsConfig struct {
	Source           string `mapstructure:"source"`
	Dir              string `mapstructure:"dir"`
	GCSBucket        string `mapstructure:"gcs_bucket"`
	GCSPrefix        string `mapstructure:"gcs_prefix"`
	ModelPath        string `mapstructure:"model_path"`
	PreprocessorPath string `mapstructure:"preprocessor_path"`
}

// PredictConfig tunes scoring.
type PredictConfig struct {
	CacheSize        int `mapstructure:"cache_size"`
	BatchConcurrency int `mapstructure:"batch_concurrency"`
	MaxBatchSize     int `mapstructure:"max_batch_size"`
}

// HistoryConfig selects the prediction history store.
type HistoryConfig struct {
	Backend        string `mapstructure:"backend"`
	DSN            string `mapstructure:"dsn"`
	Table          string `mapstructure:"table"`
	MaxConns       int32  `mapstructure:"max_conns"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
	MemoryCapacity int    `mapstructure:"memory_capacity"`
}

// EventsConfig selects the prediction event publisher.
type EventsConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from a .env file in the working directory, an
// optional config file and the environment.
func Load(path string) (Config, error) {
	return LoadWithEnvFile(path, ".env")
}

// LoadWithEnvFile is Load with an explicit .env location. A missing env
// file is ignored; variables already set in the process win.
func LoadWithEnvFile(path, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key needs a default so AutomaticEnv can override it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.rate_limit_rps", 0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("artifacts.source", SourceLocal)
	v.SetDefault("artifacts.dir", "models")
	v.SetDefault("artifacts.gcs_bucket", "")
	v.SetDefault("artifacts.gcs_prefix", "")
	v.SetDefault("artifacts.model_path", "salary_predictor_model.json")
	v.SetDefault("artifacts.preprocessor_path", "salary_predictor_preprocessing.json")
	v.SetDefault("predict.cache_size", 1024)
	v.SetDefault("predict.batch_concurrency", 1)
	v.SetDefault("predict.max_batch_size", 1000)
	v.SetDefault("history.backend", BackendMemory)
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.table", "salary_predictions")
	v.SetDefault("history.max_conns", 4)
	v.SetDefault("history.auto_migrate", false)
	v.SetDefault("history.memory_capacity", 10000)
	v.SetDefault("events.backend", BackendNone)
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic", "salary-predictions")
	v.SetDefault("telemetry.service_name", "salary-predictor")
	v.SetDefault("telemetry.sample_ratio", 0.1)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("server.rate_limit_rps must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Logging.Level != "" {
		if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
	}
	switch c.Artifacts.Source {
	case SourceLocal:
		if c.Artifacts.Dir == "" {
			return fmt.Errorf("artifacts.dir is required for the local source")
		}
	case SourceGCS:
		if c.Artifacts.GCSBucket == "" {
			return fmt.Errorf("artifacts.gcs_bucket is required for the gcs source")
		}
	default:
		return fmt.Errorf("artifacts.source must be %q or %q, got %q", SourceLocal, SourceGCS, c.Artifacts.Source)
	}
	if c.Predict.CacheSize < 0 {
		return fmt.Errorf("predict.cache_size must be >= 0")
	}
	if c.Predict.BatchConcurrency <= 0 {
		return fmt.Errorf("predict.batch_concurrency must be > 0")
	}
	if c.Predict.MaxBatchSize <= 0 {
		return fmt.Errorf("predict.max_batch_size must be > 0")
	}
	switch c.History.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.History.DSN == "" {
			return fmt.Errorf("history.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("history.backend must be %q or %q, got %q", BackendMemory, BackendPostgres, c.History.Backend)
	}
	switch c.Events.Backend {
	case BackendNone, BackendMemory:
	case BackendPubSub:
		if c.Events.ProjectID == "" || c.Events.Topic == "" {
			return fmt.Errorf("events.project_id and events.topic are required for the pubsub backend")
		}
	default:
		return fmt.Errorf("events.backend must be one of none, memory, pubsub; got %q", c.Events.Backend)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}
	return nil
}

// RequestTimeout converts the per-request budget into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout is how long in-flight requests get to drain.
func (c Config) ShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
