package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://timjs@localhost/timjs?sslmode=disable")
	t.Setenv("S3_BUCKET_NAME", "timjs-media")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, StorageBackendS3, cfg.Storage.Backend)
	assert.Equal(t, "ap-northeast-2", cfg.Storage.Region)
	assert.Equal(t, time.Hour, cfg.Storage.UploadExpiry)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, int64(DefaultStorageLimitKB), cfg.DefaultStorageLimitKB)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("S3_BUCKET_NAME", "timjs-media")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRejectsBadPort(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadMinIORequiresEndpoint(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("S3_ENDPOINT", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("MINIO_ENDPOINT", "minio.local:9000")
	t.Setenv("MINIO_USE_SSL", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "minio.local:9000", cfg.Storage.Endpoint)
	assert.False(t, cfg.Storage.UseSSL)
}

func TestLoadAdminNeedsSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	t.Setenv("ADMIN_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadCORSOrigins(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}
