// Package cli is the local UI of the recall process: a small REPL whose
// commands act as the local caller of the access gateway. It never touches
// a store adapter directly.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/gateway"
	"github.com/recallhq/recall/internal/logging"
	"github.com/recallhq/recall/internal/mode"
	"github.com/recallhq/recall/internal/repository"
	"github.com/recallhq/recall/internal/session"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/internal/store/local"
	"github.com/recallhq/recall/internal/store/remote"
	"github.com/recallhq/recall/internal/store/seal"
)

type App struct {
	config *config.Config
	logger logging.Logger

	db     *sql.DB
	sess   *session.Manager
	modes  *mode.Selector
	gw     *gateway.Gateway
	pinger store.Pinger

	reader *bufio.Reader
}

// NewApp wires the whole data layer: local and remote adapters, sealer,
// migrator, mode selector, repository facade, and the gateway in front of
// them all.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := local.Open(ctx, c.LocalDSN)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	localAd := local.NewAdapter(db)
	meta := local.NewMeta(db)
	sess := session.NewManager(meta)
	sealer := seal.New(sess)

	var remoteAd store.Adapter
	var pinger store.Pinger
	var sink repository.RemoteSink
	if c.RemoteDSN != "" {
		rdb, err := remote.Open(c.RemoteDSN)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("opening remote store: %w", err)
		}
		ra := remote.NewAdapter(rdb)
		remoteAd, pinger, sink = ra, ra, ra
	}

	migrator := repository.NewMigrator(localAd, sink, sealer, logger)
	modes := mode.New(sess, localAd, remoteAd, migrator, logger)

	var blobs repository.Blobs
	if c.S3Bucket != "" {
		blobs = remote.NewBlobStore(remote.BlobConfig{
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		})
	}

	repo := repository.New(sess, modes, sealer, blobs, logger)
	gw := gateway.New(repo, modes, []byte(c.CallerTokenSecret), c.TransitionWait, logger)

	return &App{
		config: c,
		logger: logger.With("module", "cli"),
		db:     db,
		sess:   sess,
		modes:  modes,
		gw:     gw,
		pinger: pinger,
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

// Gateway exposes the dispatch surface to other in-process callers (the
// dashboard bridge attaches here).
func (a *App) Gateway() *gateway.Gateway {
	return a.gw
}

func (a *App) Close() error {
	return a.db.Close()
}

// Run starts the connectivity watcher and the REPL, returning when the
// user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	a.repl(ctx)
}

// dispatch routes one REPL command through the gateway as the local UI
// caller.
func (a *App) dispatch(ctx context.Context, op gateway.Operation) (*gateway.Result, error) {
	return a.gw.Dispatch(ctx, gateway.CallerLocalUI, op)
}

// StartOnlineStatusWatcher probes the remote store on the given interval
// and triggers a mode transition whenever reachability flips.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if a.pinger == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.pinger.Ping(pingCtx)
			cancel()

			if changed := a.sess.SetOnline(err == nil); changed {
				a.transition(ctx)
			}
		case <-ctx.Done():
			return
		}
	}
}

// transition asks the gateway to settle the mode switch; a failed migration
// keeps the previous store authoritative.
func (a *App) transition(ctx context.Context) {
	trCtx, cancel := context.WithTimeout(ctx, a.config.TransitionWait)
	defer cancel()

	if err := a.gw.Transition(trCtx); err != nil {
		a.logger.Warn(ctx, "mode transition failed, staying in previous mode", "error", err)
	}
}
