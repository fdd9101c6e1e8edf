package names

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound is returned when a catalog entry does not exist.
var ErrRecordNotFound = errors.New("catalog entry not found")

// Record is one committed catalog entry: the durable side of a published
// name. The normalized name is the uniqueness key.
type Record struct {
	ID          int64
	OwnerID     string
	DisplayName string
	Normalized  string
	PayloadKey  string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}

// RecordStore persists catalog entries. Entries are created once per
// successful commit, mutated only to repair missing derived fields, and
// removed only by hard delete.
type RecordStore interface {
	// Insert persists a new entry and fills in its ID.
	Insert(ctx context.Context, rec *Record) error
	// UpdateDerived corrects size and content type discovered after the
	// fact. Other fields are immutable.
	UpdateDerived(ctx context.Context, id int64, size int64, contentType string) error
	// Rename changes the display name (and its normalized key). Used only
	// by duplicate repair.
	Rename(ctx context.Context, id int64, displayName string) error
	// Delete hard-deletes an entry.
	Delete(ctx context.Context, id int64) error
	// NamesForOwner returns the normalized names committed by one owner.
	NamesForOwner(ctx context.Context, ownerID string) ([]string, error)
	// AllNames returns every committed normalized name.
	AllNames(ctx context.Context) ([]string, error)
	// DuplicateGroups returns groups of entries sharing a normalized name,
	// each group ordered oldest first (creation time, then ID).
	DuplicateGroups(ctx context.Context) ([][]Record, error)
}
