package local

import (
	"context"
	"database/sql"
	"testing"

	"github.com/recallhq/recall/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestRunMigrations_FreshDatabase(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, db))

	_, err = db.ExecContext(ctx,
		`INSERT INTO records (id, kind, title, body, updated_at) VALUES ('x', 'summary', 't', x'7b7d', 1)`)
	assert.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO meta (name, value) VALUES ('k', x'01')`)
	assert.NoError(t, err)

	// re-running is a no-op
	assert.NoError(t, RunMigrations(ctx, db))
}

func TestRunMigrations_NewerSchemaRefused(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()

	// simulate a database already migrated by a newer binary
	_, err = db.ExecContext(ctx, `
CREATE TABLE goose_db_version (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  version_id INTEGER NOT NULL,
  is_applied INTEGER NOT NULL,
  tstamp TIMESTAMP DEFAULT (datetime('now'))
);
INSERT INTO goose_db_version (version_id, is_applied) VALUES (0, 1), (99, 1);
`)
	require.NoError(t, err)

	err = RunMigrations(ctx, db)
	assert.ErrorIs(t, err, store.ErrSchemaMismatch)
}

func TestOpen_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, t.TempDir()+"/recall.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
