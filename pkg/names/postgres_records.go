package names

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // Postgres Driver
)

// PostgresRecordStore implements RecordStore with SQL persistence. The
// unique index on normalized_name is the durable backstop for the naming
// invariant: a reservation that slipped past the in-process scopes fails
// here instead of silently overwriting.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

const pgRecordSchema = `
CREATE TABLE IF NOT EXISTS catalog_entries (
	id BIGSERIAL PRIMARY KEY,
	owner_id TEXT NOT NULL,
	display_name TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	payload_key TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS catalog_entries_normalized_idx
	ON catalog_entries (normalized_name);
CREATE INDEX IF NOT EXISTS catalog_entries_owner_idx
	ON catalog_entries (owner_id, normalized_name);
`

func (s *PostgresRecordStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, pgRecordSchema)
	return err
}

func (s *PostgresRecordStore) Insert(ctx context.Context, rec *Record) error {
	rec.Normalized = Normalize(rec.DisplayName)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO catalog_entries
			(owner_id, display_name, normalized_name, payload_key, size_bytes, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		rec.OwnerID, rec.DisplayName, rec.Normalized, rec.PayloadKey,
		rec.Size, rec.ContentType, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert catalog entry %q: %w", rec.DisplayName, err)
	}
	return nil
}

func (s *PostgresRecordStore) UpdateDerived(ctx context.Context, id int64, size int64, contentType string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE catalog_entries SET size_bytes = $2, content_type = $3 WHERE id = $1",
		id, size, contentType)
	if err != nil {
		return fmt.Errorf("failed to update catalog entry %d: %w", id, err)
	}
	return oneRowAffected(res, id)
}

func (s *PostgresRecordStore) Rename(ctx context.Context, id int64, displayName string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE catalog_entries SET display_name = $2, normalized_name = $3 WHERE id = $1",
		id, displayName, Normalize(displayName))
	if err != nil {
		return fmt.Errorf("failed to rename catalog entry %d: %w", id, err)
	}
	return oneRowAffected(res, id)
}

func (s *PostgresRecordStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM catalog_entries WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog entry %d: %w", id, err)
	}
	return nil
}

func (s *PostgresRecordStore) NamesForOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT normalized_name FROM catalog_entries WHERE owner_id = $1", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query owner names: %w", err)
	}
	return scanNames(rows)
}

func (s *PostgresRecordStore) AllNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT normalized_name FROM catalog_entries")
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	return scanNames(rows)
}

func (s *PostgresRecordStore) DuplicateGroups(ctx context.Context) ([][]Record, error) {
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
func (s *PostgresRecordStore) ContainsName(ctx context.Context, normalized string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM catalog_entries WHERE normalized_name = $1)",
		normalized).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check name %q: %w", normalized, err)
	}
	return exists, nil
}

// OwnerHasName answers the per-owner scope query with an indexed lookup.
func (s *PostgresRecordStore) OwnerHasName(ctx context.Context, ownerID, normalized string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM catalog_entries WHERE owner_id = $1 AND normalized_name = $2)",
		ownerID, normalized).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check name %q for owner %s: %w", normalized, ownerID, err)
	}
	return exists, nil
}

// GlobalScope adapts the store to the Scope interface.
func (s *PostgresRecordStore) GlobalScope() Scope {
	return scopeFunc(s.ContainsName)
}

// OwnerScope adapts the store to the OwnerScope interface.
func (s *PostgresRecordStore) OwnerScope() OwnerScope {
	return ownerScopeFunc(s.OwnerHasName)
}

type scopeFunc func(ctx context.Context, normalized string) (bool, error)

func (f scopeFunc) Contains(ctx context.Context, normalized string) (bool, error) {
	return f(ctx, normalized)
}

type ownerScopeFunc func(ctx context.Context, ownerID, normalized string) (bool, error)

func (f ownerScopeFunc) Contains(ctx context.Context, ownerID, normalized string) (bool, error) {
	return f(ctx, ownerID, normalized)
}

func oneRowAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // driver without RowsAffected support; treat as success
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	}
	return nil
}

func scanNames(rows *sql.Rows) ([]string, error) {
	defer rows.Close() //nolint:errcheck // read-only cursor

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("name cursor failed: %w", err)
	}
	return names, nil
}

func scanGroups(rows *sql.Rows) ([][]Record, error) {
	defer rows.Close() //nolint:errcheck // read-only cursor

	var groups [][]Record
	var current []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.DisplayName, &rec.Normalized,
			&rec.PayloadKey, &rec.Size, &rec.ContentType, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		if len(current) > 0 && current[0].Normalized != rec.Normalized {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duplicate cursor failed: %w", err)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups, nil
}
