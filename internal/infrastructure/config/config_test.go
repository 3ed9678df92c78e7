package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the tests touch; viper ignores empty values
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OSMAP_APP_NAME", "OSMAP_APP_ENV", "OSMAP_APP_PORT",
		"OSMAP_CRM_BASE_URL", "OSMAP_CRM_TOKEN", "OSMAP_CRM_LOGIN", "OSMAP_CRM_PASSWORD",
		"OSMAP_CRM_TIMEOUT", "OSMAP_CRM_MAX_CONNS_PER_HOST",
		"OSMAP_EXPORT_BATCH_WORKERS", "OSMAP_EXPORT_FALLBACK_LONGITUDE", "OSMAP_EXPORT_FALLBACK_LATITUDE",
		"OSMAP_EXPORT_BATCH_RATE_LIMIT", "OSMAP_EXPORT_BATCH_RATE_WINDOW",
		"OSMAP_ARTIFACT_RETENTION_DAYS", "OSMAP_STORAGE_ENABLED", "OSMAP_STORAGE_BUCKET",
		"OSMAP_TELEMETRY_SAMPLING_RATIO", "OSMAP_HTTP_CORS_ALLOW_ORIGINS",
		"OSMAP_PROFILING_ENABLED", "OSMAP_PROFILING_SERVER_ADDRESS",
		"VIGO_BASE_URL", "VIGO_LOGIN", "VIGO_SENHA", "TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "osmap-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8000", cfg.App.Port)
		assert.Equal(t, 15*time.Second, cfg.CRM.Timeout)
		assert.Equal(t, 16, cfg.CRM.MaxConnsPerHost)
		assert.Equal(t, 8, cfg.Export.BatchWorkers)
		assert.Equal(t, DefaultFallbackLongitude, cfg.Export.FallbackLongitude)
		assert.Equal(t, DefaultFallbackLatitude, cfg.Export.FallbackLatitude)
		assert.Equal(t, "data_fechamento", cfg.Export.SearchField)
		assert.Equal(t, "null", cfg.Export.SearchValue)
		assert.Equal(t, 0, cfg.Export.BatchRateLimit)
		assert.Equal(t, time.Minute, cfg.Export.BatchRateWindow)
		assert.Equal(t, "./data/maps", cfg.Artifact.BasePath)
		assert.Equal(t, "/artifacts", cfg.Artifact.BaseURL)
		assert.False(t, cfg.Storage.Enabled)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.False(t, cfg.Profiling.Enabled)
		assert.Equal(t, "osmap-backend", cfg.Profiling.ApplicationName)
	})

	t.Run("loads values from environment variables with OSMAP prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_APP_PORT", "9000")
		t.Setenv("OSMAP_CRM_BASE_URL", "https://crm.example.net/")
		t.Setenv("OSMAP_CRM_TOKEN", "tok")
		t.Setenv("OSMAP_CRM_TIMEOUT", "3s")
		t.Setenv("OSMAP_CRM_MAX_CONNS_PER_HOST", "4")
		t.Setenv("OSMAP_EXPORT_BATCH_WORKERS", "2")
		t.Setenv("OSMAP_ARTIFACT_RETENTION_DAYS", "7")
		t.Setenv("OSMAP_EXPORT_BATCH_RATE_LIMIT", "5")
		t.Setenv("OSMAP_EXPORT_BATCH_RATE_WINDOW", "30s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "https://crm.example.net", cfg.CRM.BaseURL)
		assert.Equal(t, "tok", cfg.CRM.Token)
		assert.Equal(t, 3*time.Second, cfg.CRM.Timeout)
		assert.Equal(t, 4, cfg.CRM.MaxConnsPerHost)
		assert.Equal(t, 2, cfg.Export.BatchWorkers)
		assert.Equal(t, 7*24*time.Hour, cfg.Artifact.RetentionAge())
		assert.Equal(t, 5, cfg.Export.BatchRateLimit)
		assert.Equal(t, 30*time.Second, cfg.Export.BatchRateWindow)
	})

	t.Run("binds legacy environment names", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("VIGO_BASE_URL", "http://vigo.local")
		t.Setenv("VIGO_LOGIN", "user")
		t.Setenv("VIGO_SENHA", "secret")
		t.Setenv("TOKEN", "legacy-token")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "http://vigo.local", cfg.CRM.BaseURL)
		assert.Equal(t, "user", cfg.CRM.Login)
		assert.Equal(t, "secret", cfg.CRM.Password)
		assert.Equal(t, "legacy-token", cfg.CRM.Token)
	})

	t.Run("prefixed variables win over legacy names", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TOKEN", "legacy-token")
		t.Setenv("OSMAP_CRM_TOKEN", "new-token")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "new-token", cfg.CRM.Token)
	})

	t.Run("rejects a relative crm url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_CRM_BASE_URL", "crm.local")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "crm.base_url")
	})

	t.Run("rejects negative batch workers", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_EXPORT_BATCH_WORKERS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "export.batch_workers")
	})

	t.Run("rejects an out of range fallback point", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_EXPORT_FALLBACK_LATITUDE", "95")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "export.fallback_latitude")
	})

	t.Run("requires a bucket when storage is enabled", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_STORAGE_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")
	})

	t.Run("rejects an invalid sampling ratio", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("requires crm.base_url in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_APP_ENV", "production")
		t.Setenv("OSMAP_CRM_TOKEN", "tok")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "crm.base_url is required in production")
	})

	t.Run("requires crm credentials in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_APP_ENV", "production")
		t.Setenv("OSMAP_CRM_BASE_URL", "https://crm.example.net")
		t.Setenv("OSMAP_CRM_LOGIN", "user")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "crm.token or crm.login/crm.password")
	})

	t.Run("rejects wildcard CORS in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_APP_ENV", "production")
		t.Setenv("OSMAP_CRM_BASE_URL", "https://crm.example.net")
		t.Setenv("OSMAP_CRM_TOKEN", "tok")
		t.Setenv("OSMAP_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_APP_ENV", "production")
		t.Setenv("OSMAP_CRM_BASE_URL", "https://crm.example.net")
		t.Setenv("VIGO_LOGIN", "user")
		t.Setenv("VIGO_SENHA", "secret")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestLoad_ProfilingValidation(t *testing.T) {
	t.Run("requires server address when enabled", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_PROFILING_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "profiling.server_address")
	})

	t.Run("accepts enabled profiling with address", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OSMAP_PROFILING_ENABLED", "true")
		t.Setenv("OSMAP_PROFILING_SERVER_ADDRESS", "http://pyroscope:4040")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Profiling.Enabled)
		assert.Equal(t, "http://pyroscope:4040", cfg.Profiling.ServerAddress)
	})
}
