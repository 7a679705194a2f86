package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema is returned when a previous migration stopped half way.
// The snapshot must be rebuilt with tradedash-import before it is used again.
var ErrDirtySchema = errors.New("snapshot schema is dirty")

// RunMigrations brings the snapshot at dbPath up to the latest schema and
// returns the version it ends at.
func RunMigrations(dbPath string) (uint, error) {
	// The migrate driver closes the *sql.DB it is given, so it gets its own.
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open snapshot for migration: %w", err)
	}
	defer conn.Close()

	m, err := newSnapshotMigrator(conn)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if _, dirty, err := m.Version(); err == nil && dirty {
		return 0, ErrDirtySchema
	} else if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read snapshot schema version: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("upgrade snapshot schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read snapshot schema version: %w", err)
	}
	if dirty {
		return version, ErrDirtySchema
	}
	return version, nil
}

func newSnapshotMigrator(conn *sql.DB) (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("snapshot migration driver: %w", err)
	}
	migrations, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("embedded snapshot migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", migrations, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("snapshot migrator: %w", err)
	}
	return m, nil
}
