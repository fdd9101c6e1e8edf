// Package objstore provides the capability surface over the catalog's
// S3-compatible object store. All higher layers depend on the Store
// contract, never on a concrete backend or its wire protocol.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Head and GetRange when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for malformed or unsafe object keys. Keys are
// validated before any store call is made.
var ErrInvalidKey = errors.New("invalid object key")

// ObjectInfo describes an object without fetching its body.
type ObjectInfo struct {
	Size        int64
	ContentType string
	ETag        string
}

// Store defines the consumed capability set of an S3-compatible object
// store. Keys are forward-slash path strings.
type Store interface {
	// Head returns object metadata, or ErrNotFound.
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	// GetRange reads up to length bytes starting at start. Reading past
	// EOF returns the available prefix, not an error.
	GetRange(ctx context.Context, key string, start, length int64) ([]byte, error)
	// Put writes data under key with the given content type.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Copy duplicates src to dst within the store.
	Copy(ctx context.Context, src, dst string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns the keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ValidateKey rejects keys that could escape the bucket namespace or smuggle
// a URL: empty keys, leading slashes, ".." segments, and embedded schemes.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: leading slash in %q", ErrInvalidKey, key)
	}
	if strings.Contains(key, "://") {
		return fmt.Errorf("%w: embedded scheme in %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: parent traversal in %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func validateAll(keys ...string) error {
	for _, k := range keys {
		if err := ValidateKey(k); err != nil {
			return err
		}
	}
	return nil
}
