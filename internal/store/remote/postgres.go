// Package remote implements the store.Adapter contract over the managed
// PostgreSQL document store. Every row is owner-scoped and carries a sealed
// payload body: plaintext columns hold only what the dashboard needs to
// filter without decryption (kind, title, timestamps, owner).
//
// Idempotent operations (Get, List, Delete, Ping) retry transient network
// failures with bounded exponential backoff. Create and Update fail fast and
// leave retry decisions to the caller.
package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/recallhq/recall/internal/dbx"
	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/internal/store/remote/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Adapter is the PostgreSQL implementation of store.Adapter.
type Adapter struct {
	db dbx.DBTX
}

// NewAdapter returns an Adapter bound to the given DBTX.
func NewAdapter(db dbx.DBTX) *Adapter {
	return &Adapter{db: db}
}

// Open connects to the remote store. The schema is managed by the cloud
// deployment; RunMigrations exists for self-hosted installs.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

// RunMigrations brings a self-hosted remote schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Create inserts a new sealed record. A duplicate id is store.ErrConflict.
// Not retried: a duplicate send could double side effects.
func (a *Adapter) Create(ctx context.Context, rec *models.Record) error {
	query := `INSERT INTO records (id, owner_id, kind, title, cipher_body, nonce, encrypted, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`
	res, err := a.db.ExecContext(ctx, query,
		rec.ID, rec.OwnerID, string(rec.Kind), rec.Payload.Title,
		rec.Payload.CipherBody, rec.Payload.Nonce, rec.Encrypted, rec.UpdatedAt.UnixNano())
	if err != nil {
		return mapError("create", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("id %s: %w", rec.ID, store.ErrConflict)
	}
	return nil
}

// Get returns a record by id, scoped to ownerID. A record owned by a
// different user is store.ErrNotFound. Retried on transient errors.
func (a *Adapter) Get(ctx context.Context, id string, ownerID string) (*models.Record, error) {
	var rec *models.Record
	err := withRetry(ctx, "get", func(ctx context.Context) error {
		row := a.db.QueryRowContext(ctx,
			`SELECT id, owner_id, kind, title, cipher_body, nonce, encrypted, updated_at
			FROM records WHERE id=$1 AND owner_id=$2`, id, ownerID)
		r, err := scanRecord(row.Scan)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("id %s: %w", id, store.ErrNotFound)
			}
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns sealed records matching the filter ordered by updated_at
// ascending. Owner scoping comes from the filter, injected by the facade.
// Retried on transient errors.
func (a *Adapter) List(ctx context.Context, filter models.Filter) ([]*models.Record, error) {
	query := `SELECT id, owner_id, kind, title, cipher_body, nonce, encrypted, updated_at
			FROM records WHERE owner_id=$1`
	args := []any{filter.OwnerID}

	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += fmt.Sprintf(" AND kind=$%d", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since.UnixNano())
		query += fmt.Sprintf(" AND updated_at>=$%d", len(args))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until.UnixNano())
		query += fmt.Sprintf(" AND updated_at<$%d", len(args))
	}
	query += " ORDER BY updated_at ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}

	var result []*models.Record
	err := withRetry(ctx, "list", func(ctx context.Context) error {
		rows, err := a.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			rec, err := scanRecord(rows.Scan)
			if err != nil {
				return err
			}
			result = append(result, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Update overwrites a sealed record, owner-scoped, with last-writer-wins
// semantics mirroring the local adapter. Not retried.
func (a *Adapter) Update(ctx context.Context, rec *models.Record, base time.Time) error {
	var stored int64
	row := a.db.QueryRowContext(ctx,
		`SELECT updated_at FROM records WHERE id=$1 AND owner_id=$2`, rec.ID, rec.OwnerID)
	if err := row.Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("id %s: %w", rec.ID, store.ErrNotFound)
		}
		return mapError("update", err)
	}

	if !base.IsZero() && stored > base.UnixNano() {
		return fmt.Errorf("id %s: %w", rec.ID, store.ErrStaleWrite)
	}
	if stored > rec.UpdatedAt.UnixNano() {
		return nil
	}

	query := `UPDATE records SET kind=$1, title=$2, cipher_body=$3, nonce=$4, encrypted=$5, updated_at=$6
			WHERE id=$7 AND owner_id=$8`
	if _, err := a.db.ExecContext(ctx, query,
		string(rec.Kind), rec.Payload.Title, rec.Payload.CipherBody, rec.Payload.Nonce,
		rec.Encrypted, rec.UpdatedAt.UnixNano(), rec.ID, rec.OwnerID); err != nil {
		return mapError("update", err)
	}
	return nil
}

// Delete removes a record, owner-scoped. Idempotent, retried on transient
// errors.
func (a *Adapter) Delete(ctx context.Context, id string, ownerID string) error {
	return withRetry(ctx, "delete", func(ctx context.Context) error {
		_, err := a.db.ExecContext(ctx,
			`DELETE FROM records WHERE id=$1 AND owner_id=$2`, id, ownerID)
		return err
	})
}

// Upsert inserts or overwrites a record keyed by id, used by the migration
// protocol. If the id exists under a different owner, no row changes and
// store.ErrConflict is returned.
func (a *Adapter) Upsert(ctx context.Context, rec *models.Record) error {
	query := `INSERT INTO records (id, owner_id, kind, title, cipher_body, nonce, encrypted, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id)
			DO UPDATE SET
				kind = EXCLUDED.kind,
				title = EXCLUDED.title,
				cipher_body = EXCLUDED.cipher_body,
				nonce = EXCLUDED.nonce,
				encrypted = EXCLUDED.encrypted,
				updated_at = EXCLUDED.updated_at
			WHERE records.owner_id = EXCLUDED.owner_id
				AND records.updated_at <= EXCLUDED.updated_at`
	res, err := a.db.ExecContext(ctx, query,
		rec.ID, rec.OwnerID, string(rec.Kind), rec.Payload.Title,
		rec.Payload.CipherBody, rec.Payload.Nonce, rec.Encrypted, rec.UpdatedAt.UnixNano())
	if err != nil {
		return mapError("upsert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		// either owned by another user, or the remote copy is newer
		// (last-writer-wins keeps it); distinguish to fail loudly on
		// ownership clashes
		var owner string
		row := a.db.QueryRowContext(ctx, `SELECT owner_id FROM records WHERE id=$1`, rec.ID)
		if err := row.Scan(&owner); err == nil && owner != rec.OwnerID {
			return fmt.Errorf("id %s: %w", rec.ID, store.ErrConflict)
		}
	}
	return nil
}

// Ping checks reachability of the remote store. Retried once through the
// shared backoff so a single dropped packet does not flip the online flag.
func (a *Adapter) Ping(ctx context.Context) error {
	return withRetry(ctx, "ping", func(ctx context.Context) error {
		var one int
		return a.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
	})
}

func mapError(op string, err error) error {
	if IsTransient(err) {
		return fmt.Errorf("%s: %v: %w", op, err, store.ErrTransient)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, store.ErrTimeout)
	}
	return fmt.Errorf("%s: db error: %w", op, err)
}

func scanRecord(scan func(dest ...any) error) (*models.Record, error) {
	var rec models.Record
	var kind string
	var updated int64
	if err := scan(&rec.ID, &rec.OwnerID, &kind, &rec.Payload.Title,
		&rec.Payload.CipherBody, &rec.Payload.Nonce, &rec.Encrypted, &updated); err != nil {
		return nil, err
	}
	rec.Kind = models.Kind(kind)
	rec.Payload.Kind = rec.Kind
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return &rec, nil
}
