package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/printforge/catalog/pkg/catalogpath"
	"github.com/printforge/catalog/pkg/names"
)

// Retract hard-deletes a published entry: the registry record first, so the
// name stops resolving immediately, then the final object triple. Object
// deletes tolerate absence, so a retraction interrupted mid-way can be run
// again. There is no soft-delete or tombstone; a retracted name becomes
// reservable again once the record is gone.
func (c *Coordinator) Retract(ctx context.Context, records names.RecordStore, rec names.Record, model string) error {
	if err := records.Delete(ctx, rec.ID); err != nil {
		return fmt.Errorf("retract record %d: %w", rec.ID, err)
	}

	p := catalogpath.FinalPaths(model, rec.DisplayName)
	for _, key := range []string{p.Payload, p.Manifest, p.Preview} {
		if err := c.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("retract object %s: %w", key, err)
		}
	}

	c.logger.Info("retracted catalog entry",
		slog.Int64("record_id", rec.ID),
		slog.String("name", rec.DisplayName),
		slog.String("dir", p.Dir))
	return nil
}
