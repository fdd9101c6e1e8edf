package objstore

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestNewStoreFromEnv_Default(t *testing.T) {
	_ = os.Unsetenv("CATALOG_STORAGE_TYPE")
	tmpDir := t.TempDir()
	_ = os.Setenv("DATA_DIR", tmpDir)
	defer func() { _ = os.Unsetenv("DATA_DIR") }()

	store, err := NewStoreFromEnv(context.Background())
	if err != nil {
		t.Fatalf("NewStoreFromEnv failed: %v", err)
	}

	fs, ok := store.(*FileStore)
	if !ok {
		t.Fatalf("Expected *FileStore, got %T", store)
	}
	if fs.baseDir != tmpDir {
		t.Errorf("Expected baseDir %s, got %s", tmpDir, fs.baseDir)
	}
}

func TestNewStoreFromEnv_S3MissingBucket(t *testing.T) {
	_ = os.Setenv("CATALOG_STORAGE_TYPE", "s3")
	_ = os.Unsetenv("CATALOG_S3_BUCKET")
	defer func() { _ = os.Unsetenv("CATALOG_STORAGE_TYPE") }()

	_, err := NewStoreFromEnv(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing S3 bucket")
	}
	if !strings.Contains(err.Error(), "CATALOG_S3_BUCKET is required") {
		t.Errorf("Expected missing-bucket error, got: %v", err)
	}
}

func TestNewStoreFromEnv_GCSMissingBucket(t *testing.T) {
	_ = os.Setenv("CATALOG_STORAGE_TYPE", "gcs")
	_ = os.Unsetenv("CATALOG_GCS_BUCKET")
	defer func() { _ = os.Unsetenv("CATALOG_STORAGE_TYPE") }()

	_, err := NewStoreFromEnv(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing GCS bucket")
	}
	// If GCS is not enabled in this build, we get a different error, which is also valid behavior
	if strings.Contains(err.Error(), "GCS storage is not enabled") {
		return
	}
	if !strings.Contains(err.Error(), "CATALOG_GCS_BUCKET is required") {
		t.Errorf("Expected missing-bucket error, got: %v", err)
	}
}

func TestNewStoreFromEnv_UnsupportedType(t *testing.T) {
	_ = os.Setenv("CATALOG_STORAGE_TYPE", "azure")
	defer func() { _ = os.Unsetenv("CATALOG_STORAGE_TYPE") }()

	_, err := NewStoreFromEnv(context.Background())
	if err == nil {
		t.Fatal("Expected error for unsupported storage type")
	}
}
