package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE records (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL DEFAULT '',
  kind TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  body BLOB,
  updated_at INTEGER NOT NULL,
  migrated INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE meta (
  name TEXT PRIMARY KEY,
  value BLOB
);
`)
	require.NoError(t, err)

	return db
}

func testRecord(id string, kind models.Kind, updatedAt time.Time) *models.Record {
	return &models.Record{
		ID:   id,
		Kind: kind,
		Payload: models.Envelope{
			Kind:  kind,
			Title: "title-" + id,
			Body:  json.RawMessage(`{"text":"` + id + `"}`),
		},
		UpdatedAt: updatedAt,
	}
}

func TestCreateAndGet(t *testing.T) {
	db := setupDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := testRecord("id1", models.KindSummary, now)
	require.NoError(t, a.Create(ctx, rec))

	got, err := a.Get(ctx, "id1", "")
	require.NoError(t, err)
	assert.Equal(t, "id1", got.ID)
	assert.Equal(t, models.KindSummary, got.Kind)
	assert.Equal(t, "title-id1", got.Payload.Title)
	assert.JSONEq(t, `{"text":"id1"}`, string(got.Payload.Body))
	assert.True(t, got.UpdatedAt.Equal(now))
}

func TestCreate_DuplicateIdIsConflict(t *testing.T) {
	db := setupDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	rec := testRecord("id1", models.KindSummary, time.Now().UTC())
	require.NoError(t, a.Create(ctx, rec))

	err := a.Create(ctx, rec)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestGet_Missing(t *testing.T) {
	db := setupDB(t)
	a := NewAdapter(db)

	_, err := a.Get(context.Background(), "nope", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestList_FilterAndOrder(t *testing.T) {
	db := setupDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, a.Create(ctx, testRecord("b", models.KindSummary, base.Add(2*time.Second))))
	require.NoError(t, a.Create(ctx, testRecord("a", models.KindSummary, base.Add(1*time.Second))))
	require.NoError(t, a.Create(ctx, testRecord("c", models.KindSession, base.Add(3*time.Second))))

	all, err := a.List(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID) // updated_at ascending
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)

	summaries, err := a.List(ctx, models.Filter{Kind: models.KindSummary})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	since, err := a.List(ctx, models.Filter{Since: base.Add(2 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	limited, err := a.List(ctx, models.Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "b", limited[0].ID)
}

func TestUpdate_LastWriterWins(t *testing.T) {
	db := setupDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, a.Create(ctx, testRecord("id1", models.KindSummary, base)))

	// newer write lands
	newer := testRecord("id1", models.KindSummary, base.Add(time.Second))
	newer.Payload.Title = "newer"
	require.NoError(t, a.Update(ctx, newer, time.Time{}))

	got, err := a.Get(ctx, "id1", "")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.Payload.Title)

	// older write is dropped silently
	older := testRecord("id1", models.KindSummary, base.Add(-time.Second))
	older.Payload.Title = "older"
	require.NoError(t, a.Update(ctx, older, time.Time{}))

	got, err = a.Get(ctx, "id1", "")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.Payload.Title)
}

func TestUpdate_StaleBase(t *testing.T) {
	db := setupDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, a.Create(ctx, testRecord("id1", models.KindSummary, base)))

	// someone else already wrote at base+1s; an update read at base must fail
	other := testRecord("id1", models.KindSummary, base.Add(time.Second))
	require.NoError(t, a.Update(ctx, other, time.Time{}))

	mine := testRecord("id1", models.KindSummary, base.Add(2*time.Second))
	err := a.Update(ctx, mine, base)
	assert.ErrorIs(t, err, store.ErrStaleWrite)
}

func TestUpdate_Missing(t *testing.T) {
	db := setupDB(t)
	a := NewAdapter(db)

	err := a.Update(context.Background(), testRecord("nope", models.KindSummary, time.Now().UTC()), time.Time{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdate_ResetsMigratedFlag(t *testing.T) {
	db := setupDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, a.Create(ctx, testRecord("id1", models.KindSummary, base)))
	require.NoError(t, a.MarkMigrated(ctx, "id1"))

	unmigrated, err := a.ListUnmigrated(ctx)
	require.NoError(t, err)
	assert.Empty(t, unmigrated)

	require.NoError(t, a.Update(ctx, testRecord("id1", models.KindSummary, base.Add(time.Second)), time.Time{}))

	unmigrated, err = a.ListUnmigrated(ctx)
	require.NoError(t, err)
	require.Len(t, unmigrated, 1)
	assert.Equal(t, "id1", unmigrated[0].ID)
}

func TestDelete_Idempotent(t *testing.T) {
	db := setupDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	require.NoError(t, a.Create(ctx, testRecord("id1", models.KindSummary, time.Now().UTC())))
	require.NoError(t, a.Delete(ctx, "id1", ""))

	_, err := a.Get(ctx, "id1", "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// deleting again is not an error
	require.NoError(t, a.Delete(ctx, "id1", ""))
}

func TestListUnmigrated_MarkMigrated(t *testing.T) {
	db := setupDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, a.Create(ctx, testRecord("a", models.KindSummary, base)))
	require.NoError(t, a.Create(ctx, testRecord("b", models.KindSummary, base.Add(time.Second))))

	unmigrated, err := a.ListUnmigrated(ctx)
	require.NoError(t, err)
	assert.Len(t, unmigrated, 2)

	require.NoError(t, a.MarkMigrated(ctx, "a"))

	unmigrated, err = a.ListUnmigrated(ctx)
	require.NoError(t, err)
	require.Len(t, unmigrated, 1)
	assert.Equal(t, "b", unmigrated[0].ID)

	// the acknowledged row is kept, not deleted
	got, err := a.Get(ctx, "a", "")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}
