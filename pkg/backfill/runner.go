// Package backfill publishes batches of staged print jobs: it reserves a
// unique display name for each item, extracts metadata from the staged
// payload, enriches the staged manifest, commits the triple to the catalog
// and records the entry, then repairs any duplicate names left behind by
// earlier, less careful writers.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/printforge/catalog/pkg/catalogpath"
	"github.com/printforge/catalog/pkg/manifest"
	"github.com/printforge/catalog/pkg/metaextract"
	"github.com/printforge/catalog/pkg/names"
	"github.com/printforge/catalog/pkg/objstore"
	"github.com/printforge/catalog/pkg/publish"
)

// Item is one staged job awaiting publication.
type Item struct {
	OwnerID string
	Model   string
	// JobName is the desired display name. The published name may carry a
	// version suffix when this one is taken.
	JobName string
	Handle  catalogpath.Handle
}

// Result summarizes one run.
type Result struct {
	Published int
	Failed    int
	Renamed   int
}

// Runner drives a backfill batch. Store traffic is paced by Limiter when
// set; the same limiter also paces the extractor's chunked scans.
type Runner struct {
	store       objstore.Store
	records     names.RecordStore
	registry    *names.Registry
	coordinator *publish.Coordinator
	extractor   *metaextract.Extractor
	repairer    *names.Repairer
	logger      *slog.Logger

	Limiter *rate.Limiter

	now func() time.Time
}

func NewRunner(store objstore.Store, records names.RecordStore, registry *names.Registry,
	coordinator *publish.Coordinator, extractor *metaextract.Extractor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:       store,
		records:     records,
		registry:    registry,
		coordinator: coordinator,
		extractor:   extractor,
		repairer:    names.NewRepairer(records, logger),
		logger:      logger,
		now:         time.Now,
	}
}

// SeedScopes snapshots the record store into in-memory scopes for a batch
// run: the global scope from every committed name, the owner scope from the
// given owners' names. A snapshot taken before the run plus the registry's
// batch set covers every name the run can collide with.
func SeedScopes(ctx context.Context, records names.RecordStore, owners []string) (*names.MemoryScope, *names.MemoryOwnerScope, error) {
	all, err := records.AllNames(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("seeding global scope: %w", err)
	}
	global := names.NewMemoryScope(all...)

	owner := names.NewMemoryOwnerScope()
	for _, id := range owners {
		ns, err := records.NamesForOwner(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("seeding owner scope for %s: %w", id, err)
		}
		for _, n := range ns {
			owner.Add(id, n)
		}
	}
	return global, owner, nil
}

// Run publishes every item, then repairs duplicate names to a fixed point.
// Item failures do not abort the batch; the first error is returned after
// the run so callers can distinguish a clean batch from a degraded one.
func (r *Runner) Run(ctx context.Context, items []Item) (Result, error) {
	var res Result
	var firstErr error

	for _, item := range items {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return res, err
			}
		}
		if err := r.publishOne(ctx, item); err != nil {
			res.Failed++
			if firstErr == nil {
				firstErr = err
			}
			r.logger.Error("backfill item failed",
				slog.String("owner_id", item.OwnerID),
				slog.String("job", item.JobName),
				slog.Any("error", err))
			continue
		}
		res.Published++
	}

	renamed, err := r.repairer.RepairDuplicates(ctx)
	res.Renamed = renamed
	if err != nil && firstErr == nil {
		firstErr = err
	}

	r.logger.Info("backfill run finished",
		slog.Int("published", res.Published),
		slog.Int("failed", res.Failed),
		slog.Int("renamed", res.Renamed))
	return res, firstErr
}

func (r *Runner) publishOne(ctx context.Context, item Item) error {
	h := item.Handle
	if missing, err := r.coordinator.CheckStaged(ctx, h); err != nil {
		return err
	} else if len(missing) > 0 {
		return fmt.Errorf("%w, missing: %v", publish.ErrTripleIncomplete, missing)
	}

	info, err := r.store.Head(ctx, h.Payload)
	if err != nil {
		return fmt.Errorf("staged payload %s: %w", h.Payload, err)
	}

	_, ext := catalogpath.JobBase(item.JobName)
	reserved, err := r.registry.Reserve(ctx, item.OwnerID, item.JobName, ext)
	if err != nil {
		return fmt.Errorf("reserving name for %q: %w", item.JobName, err)
	}

	// Facts are best-effort annotations; a failed extraction degrades the
	// manifest, it does not block the publish.
	facts, err := r.extractor.Extract(ctx, h.Payload, &info.Size)
	if err != nil {
		r.logger.Warn("fact extraction failed",
			slog.String("key", h.Payload), slog.Any("error", err))
		facts = metaextract.Facts{}
	}

	final := catalogpath.FinalPaths(item.Model, reserved)
	if err := r.enrichStagedManifest(ctx, h, final, facts); err != nil {
		return err
	}

	paths, err := r.coordinator.Commit(ctx, item.Model, reserved, h)
	if err != nil {
		return err
	}

	rec := names.Record{
		OwnerID:     item.OwnerID,
		DisplayName: reserved,
		Normalized:  names.Normalize(reserved),
		PayloadKey:  paths.Payload,
		Size:        info.Size,
		ContentType: info.ContentType,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.records.Insert(ctx, &rec); err != nil {
		return fmt.Errorf("recording %q: %w", reserved, err)
	}

	r.logger.Info("backfilled catalog entry",
		slog.String("owner_id", item.OwnerID),
		slog.String("name", reserved),
		slog.String("payload_key", paths.Payload))
	return nil
}

// enrichStagedManifest rewrites the staged manifest with the final object
// keys and any facts it does not already carry, validating the result
// before it is written back.
func (r *Runner) enrichStagedManifest(ctx context.Context, h catalogpath.Handle, final catalogpath.Paths, facts metaextract.Facts) error {
	info, err := r.store.Head(ctx, h.Manifest)
	if err != nil {
		return fmt.Errorf("staged manifest %s: %w", h.Manifest, err)
	}
	raw, err := r.store.GetRange(ctx, h.Manifest, 0, info.Size)
	if err != nil {
		return fmt.Errorf("staged manifest %s: %w", h.Manifest, err)
	}

	m, err := manifest.Decode(raw)
	if err != nil {
		return fmt.Errorf("staged manifest %s: %w", h.Manifest, err)
	}
	m.GCodeKey = final.Payload
	m.PreviewKey = final.Preview
	manifest.Enrich(m, facts)

	out, err := manifest.Encode(m)
	if err != nil {
		return fmt.Errorf("encoding manifest for %s: %w", h.Manifest, err)
	}
	if err := manifest.Validate(out); err != nil {
		return fmt.Errorf("enriched manifest for %s: %w", h.Manifest, err)
	}
	return r.store.Put(ctx, h.Manifest, out, "application/json")
}
