package store

import "errors"

// Sentinel errors shared by both adapters and the layers above them.
// Callers match with errors.Is; layers wrap with fmt.Errorf("...: %w", err)
// to add operation context without hiding the sentinel.
var (
	// ErrNotFound: record absent, or owned by a different owner.
	ErrNotFound = errors.New("record not found")

	// ErrConflict: duplicate id on create.
	ErrConflict = errors.New("record already exists")

	// ErrStaleWrite: optimistic-concurrency violation, the caller's base
	// timestamp is older than the stored one.
	ErrStaleWrite = errors.New("stale write")

	// ErrDecryption: key unavailable or mismatched while unsealing.
	ErrDecryption = errors.New("decryption failed")

	// ErrMigrationFailed: mode transition aborted, the previous adapter
	// remains authoritative.
	ErrMigrationFailed = errors.New("migration failed")

	// ErrTimeout: a queued dispatch or network operation exceeded its bound.
	ErrTimeout = errors.New("operation timed out")

	// ErrSchemaMismatch: the local database schema is newer than this binary
	// understands.
	ErrSchemaMismatch = errors.New("schema version mismatch")

	// ErrTransient: network/disk hiccup, idempotent operations may be
	// retried with backoff.
	ErrTransient = errors.New("transient store error")
)
