package mode

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/recallhq/recall/internal/logging"
	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/session"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/internal/store/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type stubAdapter struct{ name string }

func (a *stubAdapter) Create(ctx context.Context, rec *models.Record) error { return nil }
func (a *stubAdapter) Get(ctx context.Context, id, ownerID string) (*models.Record, error) {
	return nil, store.ErrNotFound
}
func (a *stubAdapter) List(ctx context.Context, f models.Filter) ([]*models.Record, error) {
	return nil, nil
}
func (a *stubAdapter) Update(ctx context.Context, rec *models.Record, base time.Time) error {
	return nil
}
func (a *stubAdapter) Delete(ctx context.Context, id, ownerID string) error { return nil }

type stubMigrator struct {
	calls int
	err   error
	owner string
}

func (m *stubMigrator) Migrate(ctx context.Context, ownerID string) error {
	m.calls++
	m.owner = ownerID
	return m.err
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testSession(t *testing.T) *session.Manager {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE meta (name TEXT PRIMARY KEY, value BLOB)`)
	require.NoError(t, err)
	return session.NewManager(local.NewMeta(db))
}

func TestNew_StartsLocal(t *testing.T) {
	localAd := &stubAdapter{name: "local"}
	s := New(testSession(t), localAd, &stubAdapter{name: "remote"}, &stubMigrator{}, testLogger())

	m, ad := s.Current()
	assert.Equal(t, Local, m)
	assert.Same(t, localAd, ad)
	assert.Equal(t, Local, s.Mode())
}

func TestTransition_NoChangeIsNoop(t *testing.T) {
	mig := &stubMigrator{}
	s := New(testSession(t), &stubAdapter{}, &stubAdapter{}, mig, testLogger())

	require.NoError(t, s.Transition(context.Background()))
	assert.Equal(t, 0, mig.calls)
	assert.Equal(t, Local, s.Mode())
}

func TestTransition_ToRemoteRunsMigration(t *testing.T) {
	sess := testSession(t)
	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, "alice", []byte("pw")))
	sess.SetOnline(true)

	mig := &stubMigrator{}
	remoteAd := &stubAdapter{name: "remote"}
	s := New(sess, &stubAdapter{name: "local"}, remoteAd, mig, testLogger())

	events := s.Subscribe()

	require.NoError(t, s.Transition(ctx))

	assert.Equal(t, 1, mig.calls)
	assert.Equal(t, sess.Current().OwnerID, mig.owner)

	m, ad := s.Current()
	assert.Equal(t, Remote, m)
	assert.Same(t, remoteAd, ad)

	select {
	case e := <-events:
		assert.Equal(t, Event{From: Local, To: Remote}, e)
	default:
		t.Fatal("expected a transition event")
	}
}

func TestTransition_MigrationFailureStaysLocal(t *testing.T) {
	sess := testSession(t)
	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, "alice", []byte("pw")))
	sess.SetOnline(true)

	mig := &stubMigrator{err: errors.New("remote refused")}
	localAd := &stubAdapter{name: "local"}
	s := New(sess, localAd, &stubAdapter{name: "remote"}, mig, testLogger())

	err := s.Transition(ctx)
	assert.ErrorIs(t, err, store.ErrMigrationFailed)

	m, ad := s.Current()
	assert.Equal(t, Local, m)
	assert.Same(t, localAd, ad)

	// the next transition retries from scratch
	mig.err = nil
	require.NoError(t, s.Transition(ctx))
	assert.Equal(t, 2, mig.calls)
	assert.Equal(t, Remote, s.Mode())
}

func TestTransition_BackToLocalSkipsMigration(t *testing.T) {
	sess := testSession(t)
	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, "alice", []byte("pw")))
	sess.SetOnline(true)

	mig := &stubMigrator{}
	s := New(sess, &stubAdapter{}, &stubAdapter{}, mig, testLogger())
	require.NoError(t, s.Transition(ctx))
	require.Equal(t, 1, mig.calls)

	// connectivity drops: fall back without moving any data
	sess.SetOnline(false)
	require.NoError(t, s.Transition(ctx))

	assert.Equal(t, 1, mig.calls)
	assert.Equal(t, Local, s.Mode())
}
