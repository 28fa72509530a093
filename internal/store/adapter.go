// Package store defines the adapter contract both physical stores implement
// and the error taxonomy of the data-access layer.
//
// Callers never touch an Adapter directly: every access goes through the
// gateway and the repository facade, which re-resolve the authoritative
// adapter on each operation.
package store

import (
	"context"
	"time"

	"github.com/recallhq/recall/internal/models"
)

// Adapter is the capability set implemented by the local and remote stores.
type Adapter interface {
	// Create inserts a new record. Fails with ErrConflict if the id
	// already exists in this store.
	Create(ctx context.Context, rec *models.Record) error

	// Get returns a record by id. The remote store additionally scopes by
	// ownerID; a record owned by someone else is ErrNotFound. The local
	// store has no owner partitioning and ignores ownerID.
	Get(ctx context.Context, id string, ownerID string) (*models.Record, error)

	// List returns records matching the filter, ordered by UpdatedAt
	// ascending. The result is a fresh query each call (restartable).
	List(ctx context.Context, filter models.Filter) ([]*models.Record, error)

	// Update overwrites payload and UpdatedAt for an existing record.
	// Fails with ErrNotFound if absent. Last-writer-wins: a non-zero base
	// enables optimistic concurrency: if the stored UpdatedAt is newer
	// than base the update fails with ErrStaleWrite.
	Update(ctx context.Context, rec *models.Record, base time.Time) error

	// Delete removes a record. Idempotent: deleting a missing id succeeds.
	// The remote store scopes the delete by ownerID; the local store
	// ignores it.
	Delete(ctx context.Context, id string, ownerID string) error
}

// Upserter is implemented by adapters that support create-or-update keyed by
// id. The migration protocol requires it of the destination store.
type Upserter interface {
	Upsert(ctx context.Context, rec *models.Record) error
}

// Pinger reports whether the underlying store is reachable. The mode
// selector's connectivity watcher uses it to flip the online flag.
type Pinger interface {
	Ping(ctx context.Context) error
}
