// Package mode decides which store adapter is authoritative for the current
// session. The decision is an explicit state machine rather than branching
// at call sites: {local, remote} committed states plus a migrating state
// passed through on every authentication transition.
package mode

import (
	"context"
	"fmt"
	"sync"

	"github.com/recallhq/recall/internal/logging"
	"github.com/recallhq/recall/internal/session"
	"github.com/recallhq/recall/internal/store"
)

// Mode names the authoritative store.
type Mode string

const (
	Local     Mode = "local"
	Remote    Mode = "remote"
	Migrating Mode = "migrating"
)

// Migrator moves locally persisted records into the remote store before a
// switch to remote is committed.
type Migrator interface {
	Migrate(ctx context.Context, ownerID string) error
}

// Event announces a settled transition.
type Event struct {
	From Mode
	To   Mode
}

// Selector owns the committed mode. Every operation re-resolves the
// authoritative adapter through Current; no caller retains an adapter
// across operations, which is what makes mid-session switches safe.
type Selector struct {
	mu        sync.Mutex
	committed Mode
	migrating bool

	session *session.Manager
	local   store.Adapter
	remote  store.Adapter

	migrator Migrator
	subs     []chan Event
	logger   logging.Logger
}

// New returns a Selector committed to the local store, the only mode an
// anonymous session can be in.
func New(sess *session.Manager, localAd, remoteAd store.Adapter, migrator Migrator, logger logging.Logger) *Selector {
	return &Selector{
		committed: Local,
		session:   sess,
		local:     localAd,
		remote:    remoteAd,
		migrator:  migrator,
		logger:    logger.With("module", "mode_selector"),
	}
}

// Current returns the committed mode and its adapter.
func (s *Selector) Current() (Mode, store.Adapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed == Remote {
		return Remote, s.remote
	}
	return Local, s.local
}

// Mode returns the externally visible state, including Migrating.
func (s *Selector) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrating {
		return Migrating
	}
	return s.committed
}

func desired(sc session.Context) Mode {
	if sc.Authenticated && sc.Online {
		return Remote
	}
	return Local
}

// Transition re-evaluates the session context and, if the authoritative
// store must change, runs the migration protocol before committing. On
// migration failure the previous mode stays committed and the caller that
// triggered the transition receives store.ErrMigrationFailed.
//
// Callers must hold the gateway's transition gate: no dispatches may be in
// flight while the switch is settling.
func (s *Selector) Transition(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.session.Current()
	want := desired(sc)
	if want == s.committed {
		return nil
	}

	from := s.committed
	s.migrating = true
	defer func() { s.migrating = false }()

	if want == Remote {
		if err := s.migrator.Migrate(ctx, sc.OwnerID); err != nil {
			s.logger.Error(ctx, "migration failed, staying on previous store",
				"from", from, "error", err)
			return fmt.Errorf("%v: %w", err, store.ErrMigrationFailed)
		}
	}
	// the reverse direction needs no data movement: the remote store
	// simply stops being authoritative and local caches serve reads

	s.committed = want
	s.logger.Info(ctx, "mode switch committed", "from", from, "to", want)
	s.notify(Event{From: from, To: want})
	return nil
}

// Subscribe returns a channel receiving settled transitions. Slow consumers
// drop events rather than blocking the selector.
func (s *Selector) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 4)
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Selector) notify(e Event) {
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
