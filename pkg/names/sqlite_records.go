package names

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver (cgo-free)
)

// SQLiteRecordStore implements RecordStore on an embedded SQLite database
// for single-node deployments and local development.
type SQLiteRecordStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the catalog database at path.
func OpenSQLite(path string) (*SQLiteRecordStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog db: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent use.
	db.SetMaxOpenConns(1)
	return &SQLiteRecordStore{db: db}, nil
}

func NewSQLiteRecordStore(db *sql.DB) *SQLiteRecordStore {
	return &SQLiteRecordStore{db: db}
}

const sqliteRecordSchema = `
CREATE TABLE IF NOT EXISTS catalog_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	display_name TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	payload_key TEXT NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS catalog_entries_normalized_idx
	ON catalog_entries (normalized_name);
CREATE INDEX IF NOT EXISTS catalog_entries_owner_idx
	ON catalog_entries (owner_id, normalized_name);
`

func (s *SQLiteRecordStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteRecordSchema)
	return err
}

func (s *SQLiteRecordStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteRecordStore) Insert(ctx context.Context, rec *Record) error {
	rec.Normalized = Normalize(rec.DisplayName)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_entries
			(owner_id, display_name, normalized_name, payload_key, size_bytes, content_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.OwnerID, rec.DisplayName, rec.Normalized, rec.PayloadKey,
		rec.Size, rec.ContentType, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert catalog entry %q: %w", rec.DisplayName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read entry id: %w", err)
	}
	rec.ID = id
	return nil
}

func (s *SQLiteRecordStore) UpdateDerived(ctx context.Context, id int64, size int64, contentType string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE catalog_entries SET size_bytes = ?, content_type = ? WHERE id = ?",
		size, contentType, id)
	if err != nil {
		return fmt.Errorf("failed to update catalog entry %d: %w", id, err)
	}
	return oneRowAffected(res, id)
}

func (s *SQLiteRecordStore) Rename(ctx context.Context, id int64, displayName string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE catalog_entries SET display_name = ?, normalized_name = ? WHERE id = ?",
		displayName, Normalize(displayName), id)
	if err != nil {
		return fmt.Errorf("failed to rename catalog entry %d: %w", id, err)
	}
	return oneRowAffected(res, id)
}

func (s *SQLiteRecordStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM catalog_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog entry %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteRecordStore) NamesForOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT normalized_name FROM catalog_entries WHERE owner_id = ?", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query owner names: %w", err)
	}
	return scanNames(rows)
}

func (s *SQLiteRecordStore) AllNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT normalized_name FROM catalog_entries")
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	return scanNames(rows)
}

func (s *SQLiteRecordStore) DuplicateGroups(ctx context.Context) ([][]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, display_name, normalized_name, payload_key, size_bytes, content_type, created_at
		FROM catalog_entries
		WHERE normalized_name IN (
			SELECT normalized_name FROM catalog_entries
			GROUP BY normalized_name HAVING COUNT(*) > 1
		)
		ORDER BY normalized_name, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate groups: %w", err)
	}
	return scanGroups(rows)
}

// ContainsName answers the global scope query with an indexed lookup.
func (s *SQLiteRecordStore) ContainsName(ctx context.Context, normalized string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM catalog_entries WHERE normalized_name = ?)",
		normalized).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check name %q: %w", normalized, err)
	}
	return exists, nil
}

// OwnerHasName answers the per-owner scope query with an indexed lookup.
func (s *SQLiteRecordStore) OwnerHasName(ctx context.Context, ownerID, normalized string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM catalog_entries WHERE owner_id = ? AND normalized_name = ?)",
		ownerID, normalized).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check name %q for owner %s: %w", normalized, ownerID, err)
	}
	return exists, nil
}

// GlobalScope adapts the store to the Scope interface.
func (s *SQLiteRecordStore) GlobalScope() Scope {
	return scopeFunc(s.ContainsName)
}

// OwnerScope adapts the store to the OwnerScope interface.
func (s *SQLiteRecordStore) OwnerScope() OwnerScope {
	return ownerScopeFunc(s.OwnerHasName)
}
