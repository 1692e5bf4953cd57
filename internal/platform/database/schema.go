package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// InitialSchema returns the statements of the set's first up migration for
// backend, in file order.
func InitialSchema(backend Backend, set MigrationSet) ([]string, error) {
	dir := path.Join("migrations", string(set), string(backend))
	matches, err := fs.Glob(migrationsFS, path.Join(dir, "000001_*.up.sql"))
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, fmt.Errorf("no initial %s migration for %s", set, backend)
	}

	raw, err := fs.ReadFile(migrationsFS, matches[0])
	if err != nil {
		return nil, err
	}

	var stmts []string
	for _, stmt := range strings.Split(string(raw), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

// EnsureSchema runs the set's initial migration against db. Every statement
// in it is IF NOT EXISTS, so it is a no-op on a migrated database.
func EnsureSchema(ctx context.Context, db *sql.DB, backend Backend, set MigrationSet) error {
	stmts, err := InitialSchema(backend, set)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure %s schema: %w", set, err)
		}
	}
	return nil
}
