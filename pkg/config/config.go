// Package config loads catalog configuration from the environment, plus an
// optional YAML profile that tunes the metadata extractor.
package config

import "os"

// Config holds catalog service configuration.
type Config struct {
	// StorageType selects the object store backend: "fs", "s3" or "gcs".
	StorageType string
	DataDir     string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	GCSBucket   string

	DatabaseURL string
	RedisAddr   string

	LogLevel string
	// ExtractorProfile is the path of an optional YAML file overriding the
	// extraction budget; empty means built-in defaults.
	ExtractorProfile string
}

// Load loads configuration from environment variables.
func Load() *Config {
	storageType := os.Getenv("CATALOG_STORAGE_TYPE")
	if storageType == "" {
		storageType = "fs"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Default to local postgres
		dbURL = "postgres://catalog@localhost:5432/catalog?sslmode=disable"
	}

	return &Config{
		StorageType:      storageType,
		DataDir:          dataDir,
		S3Bucket:         os.Getenv("CATALOG_S3_BUCKET"),
		S3Region:         os.Getenv("CATALOG_S3_REGION"),
		S3Endpoint:       os.Getenv("CATALOG_S3_ENDPOINT"),
		GCSBucket:        os.Getenv("CATALOG_GCS_BUCKET"),
		DatabaseURL:      dbURL,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		LogLevel:         logLevel,
		ExtractorProfile: os.Getenv("CATALOG_EXTRACTOR_PROFILE"),
	}
}
