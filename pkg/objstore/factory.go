package objstore

import (
	"context"
	"fmt"
	"os"
)

// StoreType represents the type of object storage backend.
type StoreType string

const (
	StoreTypeFS  StoreType = "fs"
	StoreTypeS3  StoreType = "s3"
	StoreTypeGCS StoreType = "gcs"
)

// NewStoreFromEnv creates an object store based on environment variables.
//
// Environment variables:
//   - CATALOG_STORAGE_TYPE: "fs" (default), "s3", or "gcs"
//   - DATA_DIR: Base directory for filesystem store (default: "data")
//
// For S3:
//   - AWS_REGION or CATALOG_S3_REGION
//   - CATALOG_S3_BUCKET (required)
//   - CATALOG_S3_ENDPOINT (optional, for MinIO/LocalStack)
//
// For GCS:
//   - CATALOG_GCS_BUCKET (required)
func NewStoreFromEnv(ctx context.Context) (Store, error) {
	storeType := StoreType(os.Getenv("CATALOG_STORAGE_TYPE"))
	if storeType == "" {
		storeType = StoreTypeFS
	}

	switch storeType {
	case StoreTypeFS:
		return newFileStoreFromEnv()
	case StoreTypeS3:
		return newS3StoreFromEnv(ctx)
	case StoreTypeGCS:
		return newGCSStoreFromEnv(ctx)
	default:
		return nil, fmt.Errorf("unsupported catalog storage type: %s", storeType)
	}
}

func newFileStoreFromEnv() (Store, error) {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	return NewFileStore(dataDir)
}

func newS3StoreFromEnv(ctx context.Context) (Store, error) {
	bucket := os.Getenv("CATALOG_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("CATALOG_S3_BUCKET is required for S3 storage")
	}

	region := os.Getenv("CATALOG_S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	cfg := S3StoreConfig{
		Bucket:   bucket,
		Region:   region,
		Endpoint: os.Getenv("CATALOG_S3_ENDPOINT"),
	}
	return NewS3Store(ctx, cfg)
}
