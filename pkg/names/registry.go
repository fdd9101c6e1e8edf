// Package names maintains the catalog's naming invariant: no two published
// artifacts share a case-insensitive display name, globally or within one
// owner's namespace. Collisions resolve deterministically by version-bumping
// the name stem ("Foo.gcode" -> "Foo_V2.gcode" -> "Foo_V3.gcode" ...).
package names

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// maxVersionProbes bounds collision resolution. A name that is still taken
// after this many candidates indicates registry corruption or a pathological
// naming pattern; the desired name is then returned unchanged so the durable
// unique index rejects it loudly instead of silently minting ever-longer
// version suffixes.
const maxVersionProbes = 1000

// Registry reserves unique display names against three scopes: the durable
// global set, the durable per-owner set, and a batch reservation set local
// to the current run. Batch reservations make two artifacts resolved in the
// same run collision-safe before either is committed.
type Registry struct {
	global Scope
	owner  OwnerScope
	logger *slog.Logger

	mu    sync.Mutex
	batch map[string]struct{}
}

// NewRegistry creates a Registry over the given durable scopes. The logger
// may be nil.
func NewRegistry(global Scope, owner OwnerScope, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		global: global,
		owner:  owner,
		logger: logger,
		batch:  make(map[string]struct{}),
	}
}

// Reserve returns the display name to publish under for (ownerID,
// desiredName). The result equals the desired name when it is free in all
// three scopes, otherwise the first free version-bumped candidate. The
// reservation is recorded in the batch set before returning, so subsequent
// calls in the same run can never be handed the same name.
func (r *Registry) Reserve(ctx context.Context, ownerID, desiredName, extension string) (string, error) {
	name := EnsureExtension(desiredName, extension)

	r.mu.Lock()
	defer r.mu.Unlock()

	taken, err := r.isTaken(ctx, ownerID, Normalize(name))
	if err != nil {
		return "", err
	}
	if !taken {
		r.batch[Normalize(name)] = struct{}{}
		return name, nil
	}

	stem, version, ext := ParseVersioned(name)
	start := 2
	if version > 0 {
		start = version + 1
	}

	for i := start; i < start+maxVersionProbes; i++ {
		candidate := FormatVersioned(stem, i, ext)
		taken, err := r.isTaken(ctx, ownerID, Normalize(candidate))
		if err != nil {
			return "", err
		}
		if !taken {
			r.batch[Normalize(candidate)] = struct{}{}
			return candidate, nil
		}
	}

	// Pathological: thousands of version collisions. Hand back the desired
	// name and let the unique constraint at commit time surface the anomaly.
	r.logger.Warn("name version probing exhausted",
		slog.String("owner_id", ownerID),
		slog.String("desired_name", name),
		slog.Int("probes", maxVersionProbes))
	return name, nil
}

// ResetBatch drops all batch reservations. Call between independent runs
// when reusing one Registry.
func (r *Registry) ResetBatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch = make(map[string]struct{})
}

// isTaken checks the batch set first (cheap, and authoritative for this
// run), then the owner fast path, then the global scope. Caller holds r.mu.
func (r *Registry) isTaken(ctx context.Context, ownerID, normalized string) (bool, error) {
	if _, ok := r.batch[normalized]; ok {
		return true, nil
	}
	if r.owner != nil {
		ok, err := r.owner.Contains(ctx, ownerID, normalized)
		if err != nil {
			return false, fmt.Errorf("owner scope lookup for %q: %w", normalized, err)
		}
		if ok {
			return true, nil
		}
	}
	ok, err := r.global.Contains(ctx, normalized)
	if err != nil {
		return false, fmt.Errorf("global scope lookup for %q: %w", normalized, err)
	}
	return ok, nil
}
