// Package localdb wires the client's local SQLite database and applies the
// embedded goose migrations. The local database holds only device-level
// state: the metadata key-value table.
package localdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clarifio/clarifio/internal/client/migrations"
	"github.com/clarifio/clarifio/internal/client/repositories/metadata"
	"github.com/pressly/goose/v3"
)

// Repositories bundles the repositories backed by the local database.
type Repositories struct {
	Metadata metadata.Repository
	DB       *sql.DB
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Init opens (or creates) the local database at dsn, migrates it, and
// returns the ready repositories.
func Init(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Metadata: metadata.NewSQLiteRepository(db),
		DB:       db,
	}, nil
}
