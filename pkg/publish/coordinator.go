// Package publish moves a complete staged artifact triple (payload,
// manifest, preview) into its final catalog location. The object store has
// no cross-key transactions, so atomicity-in-effect comes from idempotent,
// order-fixed, resumable moves: a crashed commit is finished by calling
// Commit again with the same staging handle, and final objects are never
// deleted to undo anything.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/printforge/catalog/pkg/catalogpath"
	"github.com/printforge/catalog/pkg/objstore"
)

// ErrTripleIncomplete is returned when a commit is attempted before all
// three staging objects exist. Retryable once the producer finishes.
var ErrTripleIncomplete = errors.New("staged triple incomplete")

// State describes one publish attempt as observed in the store.
type State string

const (
	// StateStagedIncomplete: fewer than three objects under the staging
	// handle; commit refuses.
	StateStagedIncomplete State = "staged_incomplete"
	// StateStagedComplete: all three staging objects present, final
	// location untouched or partially written.
	StateStagedComplete State = "staged_complete"
	// StateCommitted: all three final objects present.
	StateCommitted State = "committed"
)

// Object roles, in commit order.
const (
	rolePayload  = "payload"
	roleManifest = "manifest"
	rolePreview  = "preview"
)

// Coordinator orchestrates staged-to-catalog commits.
type Coordinator struct {
	store  objstore.Store
	logger *slog.Logger
	tracer trace.Tracer
}

// NewCoordinator creates a Coordinator over the given store. The logger may
// be nil.
func NewCoordinator(store objstore.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("github.com/printforge/catalog/pkg/publish"),
	}
}

// CheckStaged existence-checks the three staging keys and returns the roles
// that are missing, in commit order.
func (c *Coordinator) CheckStaged(ctx context.Context, h catalogpath.Handle) ([]string, error) {
	return c.missing(ctx, tripleOf(h.Payload, h.Manifest, h.Preview))
}

// IsPublished reports whether the final triple for (model, jobName) is
// complete. Catalog listers must treat an entry as published only when this
// holds; partial presence is a defect in flight, not a published job.
func (c *Coordinator) IsPublished(ctx context.Context, model, jobName string) (bool, error) {
	p := catalogpath.FinalPaths(model, jobName)
	missing, err := c.missing(ctx, tripleOf(p.Payload, p.Manifest, p.Preview))
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// Status classifies a publish attempt.
func (c *Coordinator) Status(ctx context.Context, model, jobName string, h catalogpath.Handle) (State, error) {
	published, err := c.IsPublished(ctx, model, jobName)
	if err != nil {
		return "", err
	}
	if published {
		return StateCommitted, nil
	}
	missing, err := c.CheckStaged(ctx, h)
	if err != nil {
		return "", err
	}
	if len(missing) > 0 {
		return StateStagedIncomplete, nil
	}
	return StateStagedComplete, nil
}

// Commit moves the staged triple under h to its final catalog location and
// returns the final paths. jobName must be the display name reserved for
// this publish.
//
// Commit is an idempotent replay when the final triple already exists:
// leftover staging objects are discarded and the existing final paths are
// returned without copying anything, so a retried publish never consumes a
// second name. A commit interrupted mid-move is resumed by calling Commit
// again with the same handle; objects whose move already completed are
// skipped via final-key existence.
func (c *Coordinator) Commit(ctx context.Context, model, jobName string, h catalogpath.Handle) (catalogpath.Paths, error) {
	final := catalogpath.FinalPaths(model, jobName)

	ctx, span := c.tracer.Start(ctx, "publish.Commit", trace.WithAttributes(
		attribute.String("catalog.dir", final.Dir),
		attribute.String("staging.prefix", h.Prefix),
	))
	defer span.End()

	moves := []struct {
		role     string
		src, dst string
	}{
		{rolePayload, h.Payload, final.Payload},
		{roleManifest, h.Manifest, final.Manifest},
		{rolePreview, h.Preview, final.Preview},
	}

	// Replay detection: a complete final triple means an earlier commit
	// already succeeded.
	missingFinal, err := c.missing(ctx, tripleOf(final.Payload, final.Manifest, final.Preview))
	if err != nil {
		return catalogpath.Paths{}, err
	}
	if len(missingFinal) == 0 {
		span.AddEvent("replay")
		c.logger.Info("commit replay, final triple already complete",
			slog.String("dir", final.Dir))
		c.CleanupStaging(ctx, h)
		return final, nil
	}

	missingStaged, err := c.CheckStaged(ctx, h)
	if err != nil {
		return catalogpath.Paths{}, err
	}
	// A staging object may legitimately be gone when its move already
	// completed; only roles absent from both sides block the commit.
	var blocked []string
	for _, role := range missingStaged {
		if contains(missingFinal, role) {
			blocked = append(blocked, role)
		}
	}
	if len(blocked) > 0 {
		return catalogpath.Paths{}, fmt.Errorf("%w, missing: %s",
			ErrTripleIncomplete, strings.Join(blocked, ", "))
	}

	// Forward-only moves in fixed order. Each copy is idempotent and each
	// source delete tolerates absence, so resuming after a crash is safe.
	for _, mv := range moves {
		if err := c.move(ctx, span, mv.role, mv.src, mv.dst); err != nil {
			return catalogpath.Paths{}, err
		}
	}

	c.logger.Info("committed artifact triple",
		slog.String("dir", final.Dir),
		slog.String("payload_key", final.Payload))
	return final, nil
}

// move copies src to dst unless dst already exists, then removes src.
func (c *Coordinator) move(ctx context.Context, span trace.Span, role, src, dst string) error {
	_, err := c.store.Head(ctx, dst)
	switch {
	case err == nil:
		span.AddEvent("skip "+role) // moved by an earlier attempt
	case errors.Is(err, objstore.ErrNotFound):
		if err := c.store.Copy(ctx, src, dst); err != nil {
			return fmt.Errorf("commit copy of %s (%s): %w", role, src, err)
		}
		span.AddEvent("copied " + role)
	default:
		return fmt.Errorf("commit check of %s (%s): %w", role, dst, err)
	}

	if err := c.store.Delete(ctx, src); err != nil {
		return fmt.Errorf("commit cleanup of %s (%s): %w", role, src, err)
	}
	return nil
}

// CleanupStaging removes whatever remains under the staging handle.
// Failures are logged, not returned: orphaned staging objects are garbage,
// not correctness hazards.
func (c *Coordinator) CleanupStaging(ctx context.Context, h catalogpath.Handle) {
	for _, key := range []string{h.Payload, h.Manifest, h.Preview} {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("staging cleanup failed",
				slog.String("key", key), slog.Any("error", err))
		}
	}
}

// missing existence-checks the given role/key pairs and returns the roles
// whose keys are absent.
func (c *Coordinator) missing(ctx context.Context, triple [3]roleKey) ([]string, error) {
	var out []string
	for _, rk := range triple {
		_, err := c.store.Head(ctx, rk.key)
		switch {
		case err == nil:
		case errors.Is(err, objstore.ErrNotFound):
			out = append(out, rk.role)
		default:
			return nil, fmt.Errorf("existence check of %s (%s): %w", rk.role, rk.key, err)
		}
	}
	return out, nil
}

type roleKey struct {
	role, key string
}

func tripleOf(payload, manifestKey, preview string) [3]roleKey {
	return [3]roleKey{
		{rolePayload, payload},
		{roleManifest, manifestKey},
		{rolePreview, preview},
	}
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
