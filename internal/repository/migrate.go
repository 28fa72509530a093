package repository

import (
	"context"
	"fmt"

	"github.com/recallhq/recall/internal/logging"
	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store/seal"
)

// LocalSource is the slice of the local adapter the migrator needs: the
// unmigrated backlog and the acknowledgement marker.
type LocalSource interface {
	ListUnmigrated(ctx context.Context) ([]*models.Record, error)
	MarkMigrated(ctx context.Context, id string) error
}

// RemoteSink is the slice of the remote adapter the migrator needs.
type RemoteSink interface {
	Upsert(ctx context.Context, rec *models.Record) error
}

// Migrator implements the login-time migration protocol: every record still
// unacknowledged in the local store is owned, sealed, and upserted remotely
// keyed by its unchanged id. Source rows are only marked, never deleted,
// so a crash mid-way re-sends exactly the unacknowledged tail.
type Migrator struct {
	local  LocalSource
	remote RemoteSink
	sealer *seal.Sealer
	logger logging.Logger
}

// NewMigrator wires the migration protocol between the two adapters.
func NewMigrator(local LocalSource, remote RemoteSink, sealer *seal.Sealer, logger logging.Logger) *Migrator {
	return &Migrator{
		local:  local,
		remote: remote,
		sealer: sealer,
		logger: logger.With("module", "migrator"),
	}
}

// Migrate runs the protocol for ownerID. Record-by-record idempotent:
// re-running after a partial failure resumes where the marker stopped.
func (m *Migrator) Migrate(ctx context.Context, ownerID string) error {
	if m.remote == nil {
		return fmt.Errorf("remote store not configured")
	}

	recs, err := m.local.ListUnmigrated(ctx)
	if err != nil {
		return fmt.Errorf("listing unmigrated records: %w", err)
	}
	if len(recs) == 0 {
		return nil
	}

	for _, rec := range recs {
		rec.OwnerID = ownerID

		sealed, err := m.sealer.Encode(rec)
		if err != nil {
			return fmt.Errorf("sealing record %s: %w", rec.ID, err)
		}

		if err := m.remote.Upsert(ctx, sealed); err != nil {
			return fmt.Errorf("uploading record %s: %w", rec.ID, err)
		}

		// mark only after the remote write is acknowledged
		if err := m.local.MarkMigrated(ctx, rec.ID); err != nil {
			return fmt.Errorf("marking record %s migrated: %w", rec.ID, err)
		}
	}

	m.logger.Info(ctx, "migration complete", "records", len(recs), "owner", ownerID)
	return nil
}
