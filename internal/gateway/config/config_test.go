package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_ENV", "SOPFLOW_SETTINGS", "SESSION_CACHE_SIZE", "CORS_ALLOWED_ORIGINS",
		"LLM_TIMEOUT", "LLM_RETRIES", "LLM_RPS", "LLM_BURST", "SOPFLOW_OFFLINE",
		"EXPORT_DIR", "EXPORT_S3_ENDPOINT", "EXPORT_S3_REGION", "EXPORT_S3_ACCESS_KEY",
		"EXPORT_S3_SECRET_KEY", "EXPORT_S3_BUCKET", "EXPORT_S3_USE_SSL", "EXPORT_MINIO_ENDPOINT",
		"MINIO_ROOT_USER", "MINIO_ROOT_PASSWORD",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "sopflow.yaml", cfg.SettingsPath)
	assert.Equal(t, 256, cfg.SessionCacheSize)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, "exports", cfg.Export.Dir)
	assert.Empty(t, cfg.Export.Endpoint)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LLM_TIMEOUT", "45s")
	t.Setenv("LLM_RETRIES", "3")
	t.Setenv("LLM_RPS", "0.5")
	t.Setenv("SOPFLOW_OFFLINE", "true")
	t.Setenv("EXPORT_S3_ENDPOINT", "s3.example.com")
	t.Setenv("MINIO_ROOT_USER", "root")
	t.Setenv("EXPORT_S3_SECRET_KEY", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.Retries)
	assert.Equal(t, 0.5, cfg.LLM.RPS)
	assert.True(t, cfg.LLM.Offline)
	assert.Equal(t, "s3.example.com", cfg.Export.Endpoint)
	assert.Equal(t, "root", cfg.Export.AccessKey)
	assert.Equal(t, "s3cret", cfg.Export.SecretKey)
	assert.True(t, cfg.Export.UseSSL)
}

func TestLocalMinIO(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPORT_MINIO_ENDPOINT", "minio:9000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "minio:9000", cfg.Export.Endpoint)
	assert.Equal(t, "sopflow", cfg.Export.AccessKey)
	assert.False(t, cfg.Export.UseSSL)
}

func TestNormalizePort(t *testing.T) {
	assert.Equal(t, ":80", normalizePort("80"))
	assert.Equal(t, "127.0.0.1:80", normalizePort("127.0.0.1:80"))
	assert.Equal(t, ":80", normalizePort(":80"))
}
