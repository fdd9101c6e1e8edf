package names

import (
	"context"
	"fmt"
	"log/slog"
)

// maxRepairPasses caps the fixed-point loop in RepairDuplicates. Each pass
// strictly shrinks the duplicate population, so hitting the cap means the
// store is being mutated concurrently or the rename probes keep colliding.
const maxRepairPasses = 32

// Rename records one repair decision: entry ID to its new display name.
type Rename struct {
	ID      int64
	OldName string
	NewName string
}

// Repairer renames duplicate catalog entries until no two share a
// normalized name. Within each duplicate group the single oldest entry
// (creation time, tie-broken by ID) keeps its name; every other entry is
// version-bumped step by step until the result is free.
type Repairer struct {
	records RecordStore
	logger  *slog.Logger
}

func NewRepairer(records RecordStore, logger *slog.Logger) *Repairer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repairer{records: records, logger: logger}
}

// ResolveDuplicateGroup computes the renames for one group of entries
// sharing a normalized name, ordered oldest first. taken holds every
// normalized name currently in use and is updated with each rename so
// decisions within one pass never collide with each other.
func ResolveDuplicateGroup(group []Record, taken map[string]struct{}) ([]Rename, error) {
	if len(group) < 2 {
		return nil, nil
	}

	var renames []Rename
	for _, rec := range group[1:] {
		candidate := rec.DisplayName
		found := false
		for i := 0; i < maxVersionProbes; i++ {
			candidate = BumpOnce(candidate)
			if _, ok := taken[Normalize(candidate)]; !ok {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("rename probing exhausted for entry %d (%q)", rec.ID, rec.DisplayName)
		}
		taken[Normalize(candidate)] = struct{}{}
		renames = append(renames, Rename{ID: rec.ID, OldName: rec.DisplayName, NewName: candidate})
	}
	return renames, nil
}

// RepairDuplicates runs duplicate resolution to a fixed point: a rename can
// itself collide with another still-unresolved duplicate, so passes repeat
// until no duplicate groups remain. Returns the total number of renames.
func (r *Repairer) RepairDuplicates(ctx context.Context) (int, error) {
	total := 0
	for pass := 1; pass <= maxRepairPasses; pass++ {
		groups, err := r.records.DuplicateGroups(ctx)
		if err != nil {
			return total, err
		}
		if len(groups) == 0 {
			return total, nil
		}

		all, err := r.records.AllNames(ctx)
		if err != nil {
			return total, err
		}
		taken := make(map[string]struct{}, len(all))
		for _, n := range all {
			taken[n] = struct{}{}
		}

		renamed := 0
		for _, group := range groups {
			renames, err := ResolveDuplicateGroup(group, taken)
			if err != nil {
				return total, err
			}
			for _, rn := range renames {
				if err := r.records.Rename(ctx, rn.ID, rn.NewName); err != nil {
					return total, fmt.Errorf("repair rename of entry %d: %w", rn.ID, err)
				}
				r.logger.Info("renamed duplicate catalog entry",
					slog.Int64("entry_id", rn.ID),
					slog.String("old_name", rn.OldName),
					slog.String("new_name", rn.NewName),
					slog.Int("pass", pass))
				renamed++
			}
		}
		total += renamed
		if renamed == 0 {
			// Groups remain but nothing changed; bail out rather than spin.
			return total, fmt.Errorf("duplicate repair stalled after pass %d", pass)
		}
	}
	return total, fmt.Errorf("duplicate repair did not converge in %d passes", maxRepairPasses)
}
