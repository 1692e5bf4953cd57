package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationSet names one group of embedded migrations.
type MigrationSet string

const (
	// SnapshotSchema owns the metrics_snapshots table on any backend.
	SnapshotSchema MigrationSet = "snapshots"
	// ConfigSchema owns projects_metrics_config in the taiga database.
	ConfigSchema MigrationSet = "config"
)

func (s MigrationSet) table() string {
	return "metrics_" + string(s) + "_migrations"
}

// Migrate runs the set's migrations for backend against db.
//   - If targetVersion < 0, it migrates to the latest version.
//   - If targetVersion == 0, it rolls back all migrations.
//   - If targetVersion > 0, it migrates to the specified version.
//
// The caller keeps ownership of db.
func Migrate(db *sql.DB, backend Backend, set MigrationSet, targetVersion int, out io.Writer) error {
	if backend == None {
		return errors.New("migrations are not supported for the none backend")
	}
	if set == ConfigSchema && backend != Postgres {
		return fmt.Errorf("%s migrations only exist for postgres", set)
	}

	var (
		driver migratedb.Driver
		err    error
	)
	switch backend {
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: set.table()})
	case MySQL:
		driver, err = mysql.WithInstance(db, &mysql.Config{MigrationsTable: set.table()})
	case SQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: set.table()})
	default:
		return fmt.Errorf("unsupported backend: %s", backend)
	}
	if err != nil {
		return fmt.Errorf("create %s migrate driver: %w", backend, err)
	}

	dir, err := fs.Sub(migrationsFS, "migrations/"+string(set)+"/"+string(backend))
	if err != nil {
		return fmt.Errorf("access %s migrations: %w", set, err)
	}
	source, err := iofs.New(dir, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(backend), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("%s schema is dirty at version %d, fix it manually or force the version", set, current)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		_, _ = fmt.Fprintf(out, "%s: no migration needed, schema is at version %d\n", set, current)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", set, err)
	}

	next, _, verr := m.Version()
	if errors.Is(verr, migrate.ErrNilVersion) {
		next = 0
	}
	_, _ = fmt.Fprintf(out, "%s: migrated from version %d to version %d\n", set, current, next)
	return nil
}
