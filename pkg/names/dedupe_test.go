package names

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRecordStore implements RecordStore in memory for repair tests.
type memRecordStore struct {
	nextID  int64
	records map[int64]*Record
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{nextID: 1, records: make(map[int64]*Record)}
}

func (s *memRecordStore) add(owner, displayName string, createdAt time.Time) *Record {
	rec := &Record{
		ID:          s.nextID,
		OwnerID:     owner,
		DisplayName: displayName,
		Normalized:  Normalize(displayName),
		CreatedAt:   createdAt,
	}
	s.records[rec.ID] = rec
	s.nextID++
	return rec
}

func (s *memRecordStore) Insert(ctx context.Context, rec *Record) error {
	rec.ID = s.nextID
	rec.Normalized = Normalize(rec.DisplayName)
	cp := *rec
	s.records[rec.ID] = &cp
	s.nextID++
	return nil
}

func (s *memRecordStore) UpdateDerived(ctx context.Context, id int64, size int64, contentType string) error {
	rec, ok := s.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Size = size
	rec.ContentType = contentType
	return nil
}

func (s *memRecordStore) Rename(ctx context.Context, id int64, displayName string) error {
	rec, ok := s.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.DisplayName = displayName
	rec.Normalized = Normalize(displayName)
	return nil
}

func (s *memRecordStore) Delete(ctx context.Context, id int64) error {
	delete(s.records, id)
	return nil
}

func (s *memRecordStore) NamesForOwner(ctx context.Context, ownerID string) ([]string, error) {
	var names []string
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			names = append(names, rec.Normalized)
		}
	}
	return names, nil
}

func (s *memRecordStore) AllNames(ctx context.Context) ([]string, error) {
	var names []string
	for _, rec := range s.records {
		names = append(names, rec.Normalized)
	}
	return names, nil
}

func (s *memRecordStore) DuplicateGroups(ctx context.Context) ([][]Record, error) {
	byName := make(map[string][]Record)
	for _, rec := range s.records {
		byName[rec.Normalized] = append(byName[rec.Normalized], *rec)
	}

	var keys []string
	for name, group := range byName {
		if len(group) > 1 {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)

	var groups [][]Record
	for _, name := range keys {
		group := byName[name]
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
		groups = append(groups, group)
	}
	return groups, nil
}

func TestResolveDuplicateGroupKeepsOldest(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	group := []Record{
		{ID: 1, DisplayName: "Benchy.gcode", Normalized: "benchy.gcode", CreatedAt: t0},
		{ID: 2, DisplayName: "Benchy.gcode", Normalized: "benchy.gcode", CreatedAt: t0.Add(time.Hour)},
		{ID: 3, DisplayName: "Benchy.gcode", Normalized: "benchy.gcode", CreatedAt: t0.Add(2 * time.Hour)},
	}
	taken := map[string]struct{}{"benchy.gcode": {}}

	renames, err := ResolveDuplicateGroup(group, taken)
	require.NoError(t, err)
	require.Len(t, renames, 2)

	// Oldest entry (ID 1) keeps its name; the rest bump stepwise without
	// colliding with each other.
	assert.Equal(t, int64(2), renames[0].ID)
	assert.Equal(t, "Benchy_V2.gcode", renames[0].NewName)
	assert.Equal(t, int64(3), renames[1].ID)
	assert.Equal(t, "Benchy_V3.gcode", renames[1].NewName)
}

func TestRepairDuplicatesFixedPoint(t *testing.T) {
	ctx := context.Background()
	store := newMemRecordStore()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Two duplicate groups where the first group's rename candidate
	// collides with the second group's name and must bump past it.
	store.add("u1", "Part.gcode", t0)
	store.add("u2", "Part.gcode", t0.Add(time.Minute))
	store.add("u3", "Part_V2.gcode", t0.Add(2*time.Minute))
	store.add("u4", "Part_V2.gcode", t0.Add(3*time.Minute))

	repairer := NewRepairer(store, nil)
	renamed, err := repairer.RepairDuplicates(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, renamed, 2)

	groups, err := store.DuplicateGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups, "no duplicate groups may remain")

	// The oldest holder of each name is untouched.
	assert.Equal(t, "Part.gcode", store.records[1].DisplayName)
	assert.Equal(t, "Part_V2.gcode", store.records[3].DisplayName)

	// All four names are distinct.
	seen := map[string]bool{}
	for _, rec := range store.records {
		assert.False(t, seen[rec.Normalized], rec.Normalized)
		seen[rec.Normalized] = true
	}
}

func TestRepairDuplicatesTieBreakByID(t *testing.T) {
	ctx := context.Background()
	store := newMemRecordStore()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := store.add("u1", "Tie.gcode", t0)
	b := store.add("u2", "Tie.gcode", t0)

	repairer := NewRepairer(store, nil)
	_, err := repairer.RepairDuplicates(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Tie.gcode", store.records[a.ID].DisplayName)
	assert.Equal(t, "Tie_V2.gcode", store.records[b.ID].DisplayName)
}

func TestRepairDuplicatesNoop(t *testing.T) {
	ctx := context.Background()
	store := newMemRecordStore()
	store.add("u1", "Solo.gcode", time.Now())

	repairer := NewRepairer(store, nil)
	renamed, err := repairer.RepairDuplicates(ctx)
	require.NoError(t, err)
	assert.Zero(t, renamed)
}
