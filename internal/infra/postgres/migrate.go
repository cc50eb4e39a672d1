package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationResult reports the schema version before and after a run.
type MigrationResult struct {
	Before uint
	After  uint
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("newMigrator: source: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("newMigrator: postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("newMigrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(db *sql.DB) (MigrationResult, error) {
	return runMigration(db, func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown rolls back steps migrations.
func MigrateDown(db *sql.DB, steps int) (MigrationResult, error) {
	if steps <= 0 {
		return MigrationResult{}, fmt.Errorf("MigrateDown: steps must be positive")
	}
	return runMigration(db, func(m *migrate.Migrate) error { return m.Steps(-steps) })
}

func runMigration(db *sql.DB, run func(*migrate.Migrate) error) (MigrationResult, error) {
	m, err := newMigrator(db)
	if err != nil {
		return MigrationResult{}, err
	}

	var res MigrationResult
	if res.Before, err = version(m); err != nil {
		return res, err
	}
	if err := run(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return res, fmt.Errorf("runMigration: %w", err)
	}
	if res.After, err = version(m); err != nil {
		return res, err
	}
	return res, nil
}

func version(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("version: %w", err)
	}
	if dirty {
		return v, fmt.Errorf("version: database is dirty at version %d", v)
	}
	return v, nil
}
