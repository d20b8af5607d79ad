package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/taskmaster/todo/internal/infrastructure/config"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrator runs the embedded schema migrations for the connection's driver
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator prepares a migrator bound to db. The migrator shares the
// connection and must not be closed independently of it.
func NewMigrator(db *DB) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations/"+db.Driver())
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	var driver database.Driver
	switch db.Driver() {
	case config.DriverSQLite:
		driver, err = migratesqlite.WithInstance(db.DB.DB, &migratesqlite.Config{})
	default:
		driver, err = postgres.WithInstance(db.DB.DB, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, db.Driver(), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return &Migrator{m: m}, nil
}

// Up applies all pending migrations. Having nothing to apply is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Down reverts all migrations
func (mg *Migrator) Down() error {
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version returns the current schema version
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Migrate brings the schema up to date
func Migrate(db *DB) error {
	mg, err := NewMigrator(db)
	if err != nil {
		return err
	}
	return mg.Up()
}
