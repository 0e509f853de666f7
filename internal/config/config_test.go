package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWithEnvFile("", "")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout())
	require.Equal(t, SourceLocal, cfg.Artifacts.Source)
	require.Equal(t, "models", cfg.Artifacts.Dir)
	require.Equal(t, "salary_predictor_model.json", cfg.Artifacts.ModelPath)
	require.Equal(t, 1024, cfg.Predict.CacheSize)
	require.Equal(t, 1, cfg.Predict.BatchConcurrency)
	require.Equal(t, 1000, cfg.Predict.MaxBatchSize)
	require.Equal(t, BackendMemory, cfg.History.Backend)
	require.Equal(t, "salary_predictions", cfg.History.Table)
	require.Equal(t, BackendNone, cfg.Events.Backend)
	require.Zero(t, cfg.Server.RateLimitRPS)
	require.Equal(t, 20, cfg.Server.RateLimitBurst)
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 5
  rate_limit_rps: 2.5
auth:
  enabled: true
  api_key: secret
logging:
  development: true
  level: debug
artifacts:
  source: gcs
  gcs_bucket: models-prod
  gcs_prefix: salary/v3
predict:
  cache_size: 0
  batch_concurrency: 4
  max_batch_size: 50
history:
  backend: postgres
  dsn: postgres://salary@localhost/salary
  max_conns: 8
events:
  backend: pubsub
  project_id: acme
  topic: predictions
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := LoadWithEnvFile(path, "")
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout())
	require.InDelta(t, 2.5, cfg.Server.RateLimitRPS, 1e-9)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "secret", cfg.Auth.APIKey)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, SourceGCS, cfg.Artifacts.Source)
	require.Equal(t, "salary/v3", cfg.Artifacts.GCSPrefix)
	require.Zero(t, cfg.Predict.CacheSize)
	require.Equal(t, 4, cfg.Predict.BatchConcurrency)
	require.Equal(t, int32(8), cfg.History.MaxConns)
	require.Equal(t, "predictions", cfg.Events.Topic)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("SALARY_SERVER_PORT", "7070")
	t.Setenv("SALARY_HISTORY_BACKEND", "postgres")
	t.Setenv("SALARY_HISTORY_DSN", "postgres://env@db/salary")

	cfg, err := LoadWithEnvFile("", "")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, BackendPostgres, cfg.History.Backend)
	require.Equal(t, "postgres://env@db/salary", cfg.History.DSN)
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SALARY_AUTH_ENABLED=true\nSALARY_AUTH_API_KEY=from-dotenv\n"), 0o600))
	// Registered with t.Setenv so the values godotenv sets are restored.
	t.Setenv("SALARY_AUTH_ENABLED", "")
	t.Setenv("SALARY_AUTH_API_KEY", "")
	require.NoError(t, os.Unsetenv("SALARY_AUTH_ENABLED"))
	require.NoError(t, os.Unsetenv("SALARY_AUTH_API_KEY"))

	cfg, err := LoadWithEnvFile("", envFile)
	require.NoError(t, err)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "from-dotenv", cfg.Auth.APIKey)

	_, err = LoadWithEnvFile("", filepath.Join(dir, "absent.env"))
	require.NoError(t, err)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := LoadWithEnvFile(filepath.Join(t.TempDir(), "nope.yaml"), "")
	require.ErrorContains(t, err, "read config")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:    ServerConfig{Port: 8080, RequestTimeoutSeconds: 30},
		Artifacts: ArtifactsConfig{Source: SourceLocal, Dir: "models"},
		Predict:   PredictConfig{CacheSize: 10, BatchConcurrency: 1, MaxBatchSize: 100},
		History:   HistoryConfig{Backend: BackendMemory},
		Events:    EventsConfig{Backend: BackendNone},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "invalid timeout", mutate: func(c *Config) { c.Server.RequestTimeoutSeconds = 0 }, want: "server.request_timeout_seconds"},
		{name: "negative rate limit", mutate: func(c *Config) { c.Server.RateLimitRPS = -1 }, want: "server.rate_limit_rps"},
		{name: "auth missing api key", mutate: func(c *Config) { c.Auth.Enabled = true }, want: "auth.api_key"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, want: "logging.level"},
		{name: "unknown source", mutate: func(c *Config) { c.Artifacts.Source = "s3" }, want: "artifacts.source"},
		{name: "local without dir", mutate: func(c *Config) { c.Artifacts.Dir = "" }, want: "artifacts.dir"},
		{
			name:   "gcs without bucket",
			mutate: func(c *Config) { c.Artifacts.Source = SourceGCS },
			want:   "artifacts.gcs_bucket",
		},
		{name: "negative cache", mutate: func(c *Config) { c.Predict.CacheSize = -1 }, want: "predict.cache_size"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Predict.BatchConcurrency = 0 }, want: "predict.batch_concurrency"},
		{name: "zero batch size", mutate: func(c *Config) { c.Predict.MaxBatchSize = 0 }, want: "predict.max_batch_size"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.History.Backend = BackendPostgres }, want: "history.dsn"},
		{name: "unknown history", mutate: func(c *Config) { c.History.Backend = "redis" }, want: "history.backend"},
		{name: "pubsub without project", mutate: func(c *Config) { c.Events.Backend = BackendPubSub }, want: "events.project_id"},
		{name: "unknown events", mutate: func(c *Config) { c.Events.Backend = "kafka" }, want: "events.backend"},
		{name: "sample ratio", mutate: func(c *Config) { c.Telemetry.SampleRatio = 2 }, want: "telemetry.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base
			tt.mutate(&c)
			require.ErrorContains(t, c.Validate(), tt.want)
		})
	}
}
