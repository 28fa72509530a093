// Package repository is the single caller-facing data API. Each operation
// re-resolves the authoritative adapter through the mode selector, injects
// the session owner for remote-bound calls, and routes payloads through the
// encryption boundary only when the remote store is involved.
// Callers never learn which physical store served them.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/recallhq/recall/internal/logging"
	"github.com/recallhq/recall/internal/mode"
	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/session"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/internal/store/seal"
)

// Blobs moves large sealed artifact payloads to and from object storage.
type Blobs interface {
	Put(ctx context.Context, key string, payload []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Repo dispatches logical operations to the authoritative store adapter.
type Repo struct {
	sess   *session.Manager
	modes  *mode.Selector
	sealer *seal.Sealer
	blobs  Blobs // nil disables artifact offload
	logger logging.Logger
}

// New builds the facade. blobs may be nil when object storage is not
// configured; artifacts then stay inline.
func New(sess *session.Manager, modes *mode.Selector, sealer *seal.Sealer, blobs Blobs, logger logging.Logger) *Repo {
	return &Repo{
		sess:   sess,
		modes:  modes,
		sealer: sealer,
		blobs:  blobs,
		logger: logger.With("module", "repository"),
	}
}

// Create persists a new record built from the envelope and returns its
// logical (plaintext) form.
func (r *Repo) Create(ctx context.Context, env models.Envelope) (*models.Record, error) {
	rec := &models.Record{
		ID:        uuid.NewString(),
		Kind:      env.Kind,
		Payload:   env,
		UpdatedAt: time.Now().UTC(),
	}

	m, ad := r.modes.Current()
	if m == mode.Remote {
		rec.OwnerID = r.sess.Current().OwnerID
		sealed, err := r.sealOutbound(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("create %s %s: %w", rec.Kind, rec.ID, err)
		}
		if err := ad.Create(ctx, sealed); err != nil {
			return nil, fmt.Errorf("create %s %s: %w", rec.Kind, rec.ID, err)
		}
		return rec, nil
	}

	if err := ad.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create %s %s: %w", rec.Kind, rec.ID, err)
	}
	return rec, nil
}

// Get returns the decoded record for id.
func (r *Repo) Get(ctx context.Context, id string) (*models.Record, error) {
	m, ad := r.modes.Current()

	ownerID := ""
	if m == mode.Remote {
		ownerID = r.sess.Current().OwnerID
	}

	rec, err := ad.Get(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}

	if rec.Encrypted {
		rec, err = r.sealer.Decode(rec)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", id, err)
		}
	}
	return rec, nil
}

// List returns decoded records matching the filter, ordered by UpdatedAt
// ascending. Remote records that fail to decode are skipped with a warning:
// one rotated key must not make the whole listing unusable.
func (r *Repo) List(ctx context.Context, filter models.Filter) ([]*models.Record, error) {
	m, ad := r.modes.Current()
	if m == mode.Remote {
		filter.OwnerID = r.sess.Current().OwnerID
	}

	recs, err := ad.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", filter.Kind, err)
	}

	result := make([]*models.Record, 0, len(recs))
	for _, rec := range recs {
		if rec.Encrypted {
			decoded, err := r.sealer.Decode(rec)
			if err != nil {
				r.logger.Warn(ctx, "skipping undecodable record", "id", rec.ID, "error", err)
				continue
			}
			rec = decoded
		}
		result = append(result, rec)
	}
	return result, nil
}

// Update overwrites the record's payload. A non-zero base enables
// optimistic concurrency: the update fails with store.ErrStaleWrite when a
// newer write already landed.
func (r *Repo) Update(ctx context.Context, id string, env models.Envelope, base time.Time) (*models.Record, error) {
	rec := &models.Record{
		ID:        id,
		Kind:      env.Kind,
		Payload:   env,
		UpdatedAt: time.Now().UTC(),
	}

	m, ad := r.modes.Current()
	if m == mode.Remote {
		rec.OwnerID = r.sess.Current().OwnerID
		sealed, err := r.sealOutbound(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("update %s %s: %w", rec.Kind, id, err)
		}
		if err := ad.Update(ctx, sealed, base); err != nil {
			return nil, fmt.Errorf("update %s %s: %w", rec.Kind, id, err)
		}
		return rec, nil
	}

	if err := ad.Update(ctx, rec, base); err != nil {
		return nil, fmt.Errorf("update %s %s: %w", rec.Kind, id, err)
	}
	return rec, nil
}

// Delete removes the record. Idempotent.
func (r *Repo) Delete(ctx context.Context, id string) error {
	m, ad := r.modes.Current()

	ownerID := ""
	if m == mode.Remote {
		ownerID = r.sess.Current().OwnerID
	}

	if err := ad.Delete(ctx, id, ownerID); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// sealOutbound offloads oversized artifact payloads to blob storage, then
// seals the envelope body for the remote store.
func (r *Repo) sealOutbound(ctx context.Context, rec *models.Record) (*models.Record, error) {
	if rec.Kind == models.KindArtifact && r.blobs != nil {
		if err := r.offloadArtifact(ctx, rec); err != nil {
			return nil, err
		}
	}
	return r.sealer.Encode(rec)
}

// FetchArtifact returns the raw bytes of a decoded artifact record,
// downloading and unsealing the blob when the payload was offloaded.
func (r *Repo) FetchArtifact(ctx context.Context, rec *models.Record) ([]byte, error) {
	if rec.Kind != models.KindArtifact {
		return nil, fmt.Errorf("fetch artifact %s: not an artifact record", rec.ID)
	}

	var a models.Artifact
	if err := json.Unmarshal(rec.Payload.Body, &a); err != nil {
		return nil, fmt.Errorf("fetch artifact %s: %w", rec.ID, err)
	}

	if a.StorageKey == "" {
		return a.Inline, nil
	}
	if r.blobs == nil {
		return nil, fmt.Errorf("fetch artifact %s: blob storage not configured", rec.ID)
	}

	sealed, err := r.blobs.Get(ctx, a.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact %s: %w", rec.ID, err)
	}

	key, err := r.sess.OwnerKey(rec.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact %s: %w", rec.ID, store.ErrDecryption)
	}
	data, err := unsealBlob(sealed, key)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact %s: %w", rec.ID, store.ErrDecryption)
	}
	return data, nil
}
