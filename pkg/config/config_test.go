package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"CATALOG_STORAGE_TYPE", "DATA_DIR", "LOG_LEVEL", "DATABASE_URL",
		"CATALOG_S3_BUCKET", "REDIS_ADDR", "CATALOG_EXTRACTOR_PROFILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()
	assert.Equal(t, "fs", cfg.StorageType)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Contains(t, cfg.DatabaseURL, "postgres://")
	assert.Empty(t, cfg.S3Bucket)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CATALOG_STORAGE_TYPE", "s3")
	t.Setenv("CATALOG_S3_BUCKET", "print-artifacts")
	t.Setenv("CATALOG_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()
	assert.Equal(t, "s3", cfg.StorageType)
	assert.Equal(t, "print-artifacts", cfg.S3Bucket)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadExtractorProfileEmptyPath(t *testing.T) {
	cfg, err := LoadExtractorProfile("")
	require.NoError(t, err)
	assert.Equal(t, int64(128*1024), cfg.HeadProbeBytes)
	assert.Equal(t, 1.75, cfg.FilamentDiameterMM)
}

func TestLoadExtractorProfileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"scan_ceiling: 1048576\nfilament_density_g_cm3: 1.04\n"), 0o644))

	cfg, err := LoadExtractorProfile(path)
	require.NoError(t, err)
	// Stated fields override, the rest keep their defaults.
	assert.Equal(t, int64(1048576), cfg.ScanCeiling)
	assert.Equal(t, 1.04, cfg.FilamentDensityGCM3)
	assert.Equal(t, int64(128*1024), cfg.HeadProbeBytes)
	assert.Equal(t, int64(256*1024), cfg.ChunkSize)
}

func TestLoadExtractorProfileRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_overlap: 999999999\n"), 0o644))

	_, err := LoadExtractorProfile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestLoadExtractorProfileMissingFile(t *testing.T) {
	_, err := LoadExtractorProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
