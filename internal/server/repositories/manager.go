// Package repositories wires the server's storage backends behind one
// manager so services receive ready repositories and tests can swap in
// in-memory fakes.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clarifio/clarifio/internal/server/migrations"
	"github.com/clarifio/clarifio/internal/server/repositories/records"
	"github.com/clarifio/clarifio/internal/server/repositories/refreshtokens"
	"github.com/clarifio/clarifio/internal/server/repositories/subscriptions"
	"github.com/clarifio/clarifio/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	Subscriptions() subscriptions.Repository
	Records() records.Repository
}

type PostgresRepositoryManager struct {
	db            *sql.DB
	users         users.Repository
	refreshTokens refreshtokens.Repository
	subscriptions subscriptions.Repository
	records       records.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *PostgresRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *PostgresRepositoryManager) Subscriptions() subscriptions.Repository {
	return m.subscriptions
}

func (m *PostgresRepositoryManager) Records() records.Repository {
	return m.records
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, m.db, ".")
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:            db,
		users:         users.NewPostgresRepository(db),
		refreshTokens: refreshtokens.NewPostgresRepository(db),
		subscriptions: subscriptions.NewPostgresRepository(db),
		records:       records.NewPostgresRepository(db),
	}

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
