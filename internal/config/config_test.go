package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ENV", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "disk", cfg.StorageBackend)
	assert.Equal(t, int64(5*1024*1024*1024), cfg.DefaultQuota)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxUploadSize)
	assert.Equal(t, time.Hour, cfg.PresignTTL)
	assert.Equal(t, 30*time.Second, cfg.StorageTimeout)
	assert.False(t, cfg.IsProd())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("S3_BUCKET", "vault")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("S3_USE_SSL", "false")
	t.Setenv("DEFAULT_QUOTA", "1073741824")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://app.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.StorageBackend)
	assert.Equal(t, "vault", cfg.S3.Bucket)
	assert.False(t, cfg.S3.UseSSL)
	assert.Equal(t, int64(1<<30), cfg.DefaultQuota)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSOrigins)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad duration":      {"DB_TIMEOUT": "soon"},
		"bad quota":         {"DEFAULT_QUOTA": "lots"},
		"zero quota":        {"DEFAULT_QUOTA": "0"},
		"unknown backend":   {"STORAGE_BACKEND": "ftp"},
		"s3 without bucket": {"STORAGE_BACKEND": "s3"},
		"prod default key":  {"APP_ENV": "production", "STORAGE_BACKEND": "s3", "S3_BUCKET": "b"},
		"prod on disk":      {"APP_ENV": "prod", "SESSION_SECRET": "real-secret"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
