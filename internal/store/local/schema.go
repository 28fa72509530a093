package local

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/internal/store/local/migrations"
)

// latestSchemaVersion is the highest migration this binary ships. Bump it
// together with every new file under migrations/.
const latestSchemaVersion = 2

// RunMigrations brings the local schema up to latestSchemaVersion. A
// database already migrated past that by a newer binary is refused with
// store.ErrSchemaMismatch instead of being touched.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latestSchemaVersion {
		return fmt.Errorf("database at version %d, binary supports %d: %w",
			current, latestSchemaVersion, store.ErrSchemaMismatch)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
