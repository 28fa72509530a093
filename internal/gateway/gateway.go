// Package gateway is the single entry point into the process that owns the
// store adapters. It serializes writes per record id, queues new dispatches
// while a mode transition settles, and verifies the identity of
// remote-dashboard callers. No caller reaches an adapter any other way.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recallhq/recall/internal/auth"
	"github.com/recallhq/recall/internal/logging"
	"github.com/recallhq/recall/internal/mode"
	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/repository"
	"github.com/recallhq/recall/internal/store"
	"golang.org/x/sync/semaphore"
)

// CallerLocalUI identifies the in-process capture UI; dashboard callers are
// identified by their token.
const CallerLocalUI = "local-ui"

// DefaultTransitionWait bounds how long a dispatch queues behind a mode
// transition before failing with store.ErrTimeout.
const DefaultTransitionWait = 10 * time.Second

// gateCapacity is effectively "unlimited" concurrent dispatches; a
// transition acquires the whole capacity to drain in-flight work.
const gateCapacity = 1 << 20

// Verb names a logical operation.
type Verb string

const (
	VerbCreate Verb = "create"
	VerbGet    Verb = "get"
	VerbList   Verb = "list"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
	VerbFetch  Verb = "fetch" // artifact bytes
)

// Operation is one logical request from a caller.
type Operation struct {
	Verb     Verb
	ID       string
	Envelope models.Envelope
	Base     time.Time
	Filter   models.Filter
}

// Result carries whichever output the verb produces.
type Result struct {
	Record  *models.Record
	Records []*models.Record
	Data    []byte
}

// Gateway funnels every caller into the repository facade.
type Gateway struct {
	repo   *repository.Repo
	modes  *mode.Selector
	gate   *semaphore.Weighted
	locks  *keyedLocks
	secret []byte
	wait   time.Duration
	logger logging.Logger
}

// New builds a Gateway. secret verifies dashboard caller tokens; wait
// bounds queueing during transitions (0 means DefaultTransitionWait).
func New(repo *repository.Repo, modes *mode.Selector, secret []byte, wait time.Duration, logger logging.Logger) *Gateway {
	if wait <= 0 {
		wait = DefaultTransitionWait
	}
	return &Gateway{
		repo:   repo,
		modes:  modes,
		gate:   semaphore.NewWeighted(gateCapacity),
		locks:  newKeyedLocks(),
		secret: secret,
		wait:   wait,
		logger: logger.With("module", "gateway"),
	}
}

// Authenticate resolves a dashboard caller token to a caller id.
func (g *Gateway) Authenticate(token string) (string, error) {
	callerID, err := auth.CallerIDFromToken(token, g.secret)
	if err != nil {
		return "", fmt.Errorf("caller token: %w", err)
	}
	return callerID, nil
}

// Dispatch runs one operation for callerID. Cancelled requests that have
// not reached an adapter are dropped; requests queued behind a transition
// fail with store.ErrTimeout once the wait bound expires.
func (g *Gateway) Dispatch(ctx context.Context, callerID string, op Operation) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := g.enter(ctx); err != nil {
		return nil, err
	}
	defer g.gate.Release(1)

	// writes to an existing id serialize; creates carry a fresh uuid and
	// cannot collide, reads never block each other
	if op.ID != "" && (op.Verb == VerbUpdate || op.Verb == VerbDelete) {
		if err := g.locks.Acquire(ctx, op.ID); err != nil {
			return nil, err
		}
		defer g.locks.Release(op.ID)
	}

	g.logger.Debug(ctx, "dispatch", "caller", callerID, "verb", op.Verb, "id", op.ID)

	switch op.Verb {
	case VerbCreate:
		rec, err := g.repo.Create(ctx, op.Envelope)
		return &Result{Record: rec}, err
	case VerbGet:
		rec, err := g.repo.Get(ctx, op.ID)
		return &Result{Record: rec}, err
	case VerbList:
		recs, err := g.repo.List(ctx, op.Filter)
		return &Result{Records: recs}, err
	case VerbUpdate:
		rec, err := g.repo.Update(ctx, op.ID, op.Envelope, op.Base)
		return &Result{Record: rec}, err
	case VerbDelete:
		return &Result{}, g.repo.Delete(ctx, op.ID)
	case VerbFetch:
		rec, err := g.repo.Get(ctx, op.ID)
		if err != nil {
			return nil, err
		}
		data, err := g.repo.FetchArtifact(ctx, rec)
		return &Result{Record: rec, Data: data}, err
	default:
		return nil, fmt.Errorf("unknown verb %q", op.Verb)
	}
}

// enter takes one slot of the transition gate, queueing while a transition
// holds the whole capacity.
func (g *Gateway) enter(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.wait)
	defer cancel()

	if err := g.gate.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("transition did not settle within %s: %w", g.wait, store.ErrTimeout)
		}
		return err
	}
	return nil
}

// Transition drains in-flight dispatches, then lets the mode selector
// re-evaluate and (if needed) migrate before new work is admitted. Queued
// dispatches resume against the newly authoritative adapter.
func (g *Gateway) Transition(ctx context.Context) error {
	if err := g.gate.Acquire(ctx, gateCapacity); err != nil {
		return err
	}
	defer g.gate.Release(gateCapacity)

	return g.modes.Transition(ctx)
}
