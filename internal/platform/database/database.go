// Package database opens the SQL handles the service works with: the taiga
// database the metrics are read from, and the backend snapshots are kept in.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for snapshots
	_ "github.com/lib/pq"              // PostgreSQL driver for taiga
	_ "modernc.org/sqlite"             // SQLite driver
)

// Backend is where snapshots are persisted.
type Backend string

const (
	Postgres Backend = "postgres"
	MySQL    Backend = "mysql"
	SQLite   Backend = "sqlite"
	None     Backend = "none"
)

var ValidBackends = []Backend{Postgres, MySQL, SQLite, None}

// ParseBackend accepts the backend names plus "postgresql" and "" (postgres).
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "none":
		return None, nil
	default:
		return "", fmt.Errorf("unsupported snapshot backend %q", s)
	}
}

// DriverName is the database/sql driver registered for b.
func (b Backend) DriverName() string {
	switch b {
	case Postgres:
		return "pgx"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	default:
		return ""
	}
}

// Placeholder returns the n-th (1-based) bind parameter for b.
func (b Backend) Placeholder(n int) string {
	if b == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func DefaultPool() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

func (p PoolConfig) apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
}

// OpenTaiga connects to the taiga PostgreSQL database and pings it.
func OpenTaiga(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open taiga database: %w", err)
	}
	pool.apply(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping taiga database: %w. Check that PostgreSQL is running and the DSN is correct", err)
	}
	return db, nil
}

// Open connects to a snapshot backend. None has no handle and returns nil.
func Open(ctx context.Context, backend Backend, dsn string, pool PoolConfig) (*sql.DB, error) {
	if backend == None {
		return nil, nil
	}
	driver := backend.DriverName()
	if driver == "" {
		return nil, fmt.Errorf("unsupported snapshot backend %q", backend)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", backend, err)
	}

	if backend == SQLite {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	} else {
		pool.apply(db)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", backend, err)
	}
	return db, nil
}
