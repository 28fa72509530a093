package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/recallhq/recall/internal/dbx"
	"github.com/recallhq/recall/internal/store"
)

// Well-known meta keys used by the session layer for offline login.
const (
	MetaUsername = "username"
	MetaSalt     = "salt"
	MetaVerifier = "verifier"
	MetaOwnerID  = "owner_id"
)

// Meta is a small key/value store inside the local database, used to cache
// auth metadata (username, salt, verifier) between sessions.
type Meta struct {
	db dbx.DBTX
}

// NewMeta returns a Meta bound to the given DBTX.
func NewMeta(db dbx.DBTX) *Meta {
	return &Meta{db: db}
}

// Get returns the value stored under name, or store.ErrNotFound.
func (m *Meta) Get(ctx context.Context, name string) ([]byte, error) {
	row := m.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE name=?`, name)
	var value []byte
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("meta %s: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return value, nil
}

// Set upserts the value stored under name.
func (m *Meta) Set(ctx context.Context, name string, value []byte) error {
	query := `INSERT INTO meta (name, value) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value`
	if _, err := m.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("failed to upsert meta: %w", err)
	}
	return nil
}

// Delete removes a key. Removing a missing key succeeds silently.
func (m *Meta) Delete(ctx context.Context, name string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM meta WHERE name=?`, name); err != nil {
		return fmt.Errorf("failed to delete meta: %w", err)
	}
	return nil
}
