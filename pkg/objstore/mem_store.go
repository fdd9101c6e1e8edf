package objstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type memObject struct {
	data        []byte
	contentType string
}

// MemStore is a thread-safe in-memory implementation of Store for tests and
// ephemeral tooling.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string]memObject)}
}

func (s *MemStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return &ObjectInfo{
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
	}, nil
}

func (s *MemStore) GetRange(ctx context.Context, key string, start, length int64) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	size := int64(len(obj.data))
	if start >= size || length <= 0 {
		return nil, nil
	}
	end := start + length
	if end > size {
		end = size
	}
	out := make([]byte, end-start)
	copy(out, obj.data[start:end])
	return out, nil
}

func (s *MemStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = memObject{data: buf, contentType: contentType}
	return nil
}

func (s *MemStore) Copy(ctx context.Context, src, dst string) error {
	if err := validateAll(src, dst); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[src]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	s.objects[dst] = memObject{data: buf, contentType: obj.contentType}
	return nil
}

func (s *MemStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

func (s *MemStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ValidateKey(prefix); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len reports the number of stored objects.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
