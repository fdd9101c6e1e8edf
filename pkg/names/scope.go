package names

import (
	"context"
	"sync"
)

// Scope answers whether a normalized name is already committed. Production
// scopes are backed by an indexed durable store; tests and batch runs can
// supply in-memory snapshots.
type Scope interface {
	Contains(ctx context.Context, normalized string) (bool, error)
}

// OwnerScope answers the same question restricted to one owner's names. The
// global scope already implies per-owner uniqueness; this is kept as an
// independent fast path.
type OwnerScope interface {
	Contains(ctx context.Context, ownerID, normalized string) (bool, error)
}

// MemoryScope is a thread-safe in-memory Scope.
type MemoryScope struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

func NewMemoryScope(names ...string) *MemoryScope {
	s := &MemoryScope{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[Normalize(n)] = struct{}{}
	}
	return s
}

func (s *MemoryScope) Add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[Normalize(name)] = struct{}{}
}

func (s *MemoryScope) Contains(ctx context.Context, normalized string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[normalized]
	return ok, nil
}

// MemoryOwnerScope is a thread-safe in-memory OwnerScope.
type MemoryOwnerScope struct {
	mu     sync.RWMutex
	owners map[string]map[string]struct{}
}

func NewMemoryOwnerScope() *MemoryOwnerScope {
	return &MemoryOwnerScope{owners: make(map[string]map[string]struct{})}
}

func (s *MemoryOwnerScope) Add(ownerID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.owners[ownerID]
	if !ok {
		set = make(map[string]struct{})
		s.owners[ownerID] = set
	}
	set[Normalize(name)] = struct{}{}
}

func (s *MemoryOwnerScope) Contains(ctx context.Context, ownerID, normalized string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.owners[ownerID][normalized]
	return ok, nil
}
