package objstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore is a filesystem-backed implementation of Store, used for local
// development and tests. Object keys map directly onto paths under baseDir;
// content types are tracked in a sidecar index file.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a new object store rooted at the specified directory.
func NewFileStore(baseDir string) (*FileStore, error) {
	//nolint:gosec // G301: 0755 is intentional for shared catalog directory
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure catalog dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

func (s *FileStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	fi, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("stat failed for %s: %w", key, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return &ObjectInfo{
		Size:        fi.Size(),
		ContentType: s.readContentType(key),
	}, nil
}

func (s *FileStore) GetRange(ctx context.Context, key string, start, length int64) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path(key)) //nolint:gosec // key validated above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("open failed for %s: %w", key, err)
	}
	defer f.Close() //nolint:errcheck // best-effort close

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("range read failed for %s: %w", key, err)
	}
	return buf[:n], nil
}

func (s *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	//nolint:gosec // G301: shared catalog directory
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to ensure dir for %s: %w", key, err)
	}

	// Write to temp, then rename
	tmpPath := path + ".tmp"
	//nolint:gosec // G306: 0644 is intentional for readable catalog files
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to commit object %s: %w", key, err)
	}

	s.writeContentType(key, contentType)
	return nil
}

func (s *FileStore) Copy(ctx context.Context, src, dst string) error {
	if err := validateAll(src, dst); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(src)) //nolint:gosec // key validated above
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, src)
		}
		return fmt.Errorf("copy read failed for %s: %w", src, err)
	}

	dstPath := s.path(dst)
	//nolint:gosec // G301: shared catalog directory
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to ensure dir for %s: %w", dst, err)
	}
	//nolint:gosec // G306: readable catalog files
	if err := os.WriteFile(dstPath, data, 0644); err != nil {
		return fmt.Errorf("copy write failed for %s: %w", dst, err)
	}

	s.writeContentType(dst, s.readContentType(src))
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ValidateKey(prefix); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if strings.HasSuffix(path, ".tmp") || strings.HasSuffix(path, contentTypeIndex) {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list failed for %s: %w", prefix, err)
	}
	return keys, nil
}

const contentTypeIndex = ".content-types.json"

// Content types live in one JSON sidecar per store. Failures here degrade to
// an empty content type rather than failing the object operation.
func (s *FileStore) readContentType(key string) string {
	idx := s.loadIndex()
	return idx[key]
}

func (s *FileStore) writeContentType(key, contentType string) {
	if contentType == "" {
		return
	}
	idx := s.loadIndex()
	idx[key] = contentType
	data, err := json.Marshal(idx)
	if err != nil {
		return
	}
	//nolint:gosec,errcheck // best-effort sidecar
	_ = os.WriteFile(filepath.Join(s.baseDir, contentTypeIndex), data, 0644)
}

func (s *FileStore) loadIndex() map[string]string {
	idx := map[string]string{}
	data, err := os.ReadFile(filepath.Join(s.baseDir, contentTypeIndex)) //nolint:gosec // fixed name
	if err == nil {
		_ = json.Unmarshal(data, &idx) //nolint:errcheck // best-effort sidecar
	}
	return idx
}
