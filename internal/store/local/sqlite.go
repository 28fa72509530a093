// Package local implements the store.Adapter contract over an embedded,
// file-backed SQLite database. It is always available, has no owner
// partitioning, and keeps payload bodies in plaintext.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/recallhq/recall/internal/dbx"
	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"

	_ "modernc.org/sqlite"
)

// Adapter is the SQLite implementation of store.Adapter, bound to a DBTX
// (either *sql.DB or *sql.Tx).
type Adapter struct {
	db dbx.DBTX
}

// NewAdapter returns an Adapter bound to the given DBTX.
func NewAdapter(db dbx.DBTX) *Adapter {
	return &Adapter{db: db}
}

// Open opens (or creates) the local database, enables WAL mode, and brings
// the schema up to date. A database created by a newer binary is refused
// with store.ErrSchemaMismatch.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Create inserts a new record. A duplicate id is store.ErrConflict.
func (a *Adapter) Create(ctx context.Context, rec *models.Record) error {
	query := `INSERT INTO records (id, owner_id, kind, title, body, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`
	res, err := a.db.ExecContext(ctx, query,
		rec.ID, rec.OwnerID, string(rec.Kind), rec.Payload.Title, []byte(rec.Payload.Body), rec.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("id %s: %w", rec.ID, store.ErrConflict)
	}
	return nil
}

// Get returns a record by id. The local store has no owner partitioning, so
// ownerID is ignored.
func (a *Adapter) Get(ctx context.Context, id string, _ string) (*models.Record, error) {
	query := `SELECT id, owner_id, kind, title, body, updated_at FROM records WHERE id=?`
	row := a.db.QueryRowContext(ctx, query, id)

	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("id %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

// List returns records matching the filter ordered by updated_at ascending.
func (a *Adapter) List(ctx context.Context, filter models.Filter) ([]*models.Record, error) {
	query := `SELECT id, owner_id, kind, title, body, updated_at FROM records WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind=?`
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		query += ` AND updated_at>=?`
		args = append(args, filter.Since.UnixNano())
	}
	if !filter.Until.IsZero() {
		query += ` AND updated_at<?`
		args = append(args, filter.Until.UnixNano())
	}
	query += ` ORDER BY updated_at ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update applies a last-writer-wins overwrite. With a zero base, an older
// incoming timestamp is dropped silently; with a non-zero base, a stored
// timestamp newer than base is store.ErrStaleWrite.
func (a *Adapter) Update(ctx context.Context, rec *models.Record, base time.Time) error {
	var stored int64
	row := a.db.QueryRowContext(ctx, `SELECT updated_at FROM records WHERE id=?`, rec.ID)
	if err := row.Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("id %s: %w", rec.ID, store.ErrNotFound)
		}
		return fmt.Errorf("query row scan failed: %w", err)
	}

	if !base.IsZero() && stored > base.UnixNano() {
		return fmt.Errorf("id %s: %w", rec.ID, store.ErrStaleWrite)
	}
	if stored > rec.UpdatedAt.UnixNano() {
		// a newer write already landed
		return nil
	}

	query := `UPDATE records SET owner_id=?, kind=?, title=?, body=?, updated_at=?, migrated=0 WHERE id=?`
	if _, err := a.db.ExecContext(ctx, query,
		rec.OwnerID, string(rec.Kind), rec.Payload.Title, []byte(rec.Payload.Body), rec.UpdatedAt.UnixNano(), rec.ID); err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

// Delete removes a record. Deleting a missing id succeeds silently.
// The local store has no owner partitioning, so ownerID is ignored.
func (a *Adapter) Delete(ctx context.Context, id string, _ string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM records WHERE id=?`, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// ListUnmigrated returns records not yet confirmed as written to the remote
// store. The migration protocol re-sends exactly these after a partial
// failure.
func (a *Adapter) ListUnmigrated(ctx context.Context) ([]*models.Record, error) {
	query := `SELECT id, owner_id, kind, title, body, updated_at FROM records WHERE migrated=0 ORDER BY updated_at ASC`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select unmigrated records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkMigrated records that the remote write for id has been acknowledged.
// The source row is kept as a read-only cache rather than deleted.
func (a *Adapter) MarkMigrated(ctx context.Context, id string) error {
	if _, err := a.db.ExecContext(ctx, `UPDATE records SET migrated=1 WHERE id=?`, id); err != nil {
		return fmt.Errorf("failed to mark record migrated: %w", err)
	}
	return nil
}

func scanRecord(scan func(dest ...any) error) (*models.Record, error) {
	var rec models.Record
	var kind string
	var body []byte
	var updated int64
	if err := scan(&rec.ID, &rec.OwnerID, &kind, &rec.Payload.Title, &body, &updated); err != nil {
		return nil, err
	}
	rec.Kind = models.Kind(kind)
	rec.Payload.Kind = rec.Kind
	rec.Payload.Body = body
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return &rec, nil
}
