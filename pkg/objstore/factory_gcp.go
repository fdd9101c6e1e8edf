//go:build gcp

package objstore

import (
	"context"
	"fmt"
	"os"
)

func newGCSStoreFromEnv(ctx context.Context) (Store, error) {
	bucket := os.Getenv("CATALOG_GCS_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("CATALOG_GCS_BUCKET is required for GCS storage")
	}
	return NewGCSStore(ctx, GCSStoreConfig{Bucket: bucket})
}
