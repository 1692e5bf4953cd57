// Package snapshotstore persists metric snapshots in PostgreSQL, MySQL or
// SQLite, one row per (project, provider).
package snapshotstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"
	"taiga-metrics-service/internal/platform/database"
)

const tableName = "metrics_snapshots"

// Store is a snapshot store over one of the supported backends. With the
// none backend it stores nothing and every lookup misses.
type Store struct {
	db      *sql.DB
	backend database.Backend
	dsn     string
}

var _ ports.SnapshotStorePort = (*Store)(nil)

// Open connects to the backend and creates the snapshot table if needed.
func Open(ctx context.Context, backend database.Backend, dsn string, pool database.PoolConfig) (*Store, error) {
	if backend == database.None {
		return &Store{backend: backend}, nil
	}
	if backend == database.MySQL {
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
	}

	db, err := database.Open(ctx, backend, dsn, pool)
	if err != nil {
		return nil, err
	}

	s, err := NewWithDB(ctx, db, backend)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.dsn = dsn
	return s, nil
}

// NewWithDB wraps an existing handle. The table and its computed_at index
// are created from the initial snapshot migration if missing.
func NewWithDB(ctx context.Context, db *sql.DB, backend database.Backend) (*Store, error) {
	if err := database.EnsureSchema(ctx, db, backend, database.SnapshotSchema); err != nil {
		return nil, fmt.Errorf("create %s: %w", tableName, err)
	}
	return &Store{db: db, backend: backend}, nil
}

func (s *Store) Backend() database.Backend {
	return s.backend
}

// DB exposes the handle for migrations. It is nil for the none backend.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ph(n int) string {
	return s.backend.Placeholder(n)
}

// upsertQuery replaces the row for (project_id, provider) in one statement.
// created_at is kept from the first insert.
func (s *Store) upsertQuery() string {
	switch s.backend {
	case database.Postgres:
		return `INSERT INTO metrics_snapshots
			(project_id, provider, version, created_at, computed_at, payload, historical_payload, historical_errors)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (project_id, provider) DO UPDATE SET
				version = EXCLUDED.version,
				computed_at = EXCLUDED.computed_at,
				payload = EXCLUDED.payload,
				historical_payload = EXCLUDED.historical_payload,
				historical_errors = EXCLUDED.historical_errors`
	case database.MySQL:
		// Row aliases need MySQL 8.0.19 or later; MariaDB is not supported.
		return `INSERT INTO metrics_snapshots
			(project_id, provider, version, created_at, computed_at, payload, historical_payload, historical_errors)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE
				version = new.version,
				computed_at = new.computed_at,
				payload = new.payload,
				historical_payload = new.historical_payload,
				historical_errors = new.historical_errors`
	default:
		return `INSERT INTO metrics_snapshots
			(project_id, provider, version, created_at, computed_at, payload, historical_payload, historical_errors)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (project_id, provider) DO UPDATE SET
				version = excluded.version,
				computed_at = excluded.computed_at,
				payload = excluded.payload,
				historical_payload = excluded.historical_payload,
				historical_errors = excluded.historical_errors`
	}
}

// Save upserts the snapshot inside a transaction.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	if s.db == nil {
		return nil
	}

	payload, err := json.Marshal(snap.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	historical, err := json.Marshal(snap.Historical)
	if err != nil {
		return fmt.Errorf("encode historical payload: %w", err)
	}
	var historicalErrs any
	if len(snap.HistoricalErrors) > 0 {
		raw, err := json.Marshal(snap.HistoricalErrors)
		if err != nil {
			return fmt.Errorf("encode historical errors: %w", err)
		}
		historicalErrs = string(raw)
	}

	created := snap.CreatedAt
	if created.IsZero() {
		created = snap.ComputedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.upsertQuery(),
		snap.ProjectID,
		snap.Provider,
		snap.Version,
		created.UnixMicro(),
		snap.ComputedAt.UnixMicro(),
		string(payload),
		string(historical),
		historicalErrs,
	); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, projectID int64, provider string) (*domain.Snapshot, error) {
	if s.db == nil {
		return nil, domain.ErrSnapshotNotFound
	}

	query := fmt.Sprintf(`SELECT version, created_at, computed_at, payload, historical_payload, historical_errors
		FROM metrics_snapshots WHERE project_id = %s AND provider = %s`, s.ph(1), s.ph(2))

	var (
		version                string
		createdAt, computedAt  int64
		payload, historicalRaw string
		historicalErrs         sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, projectID, provider).
		Scan(&version, &createdAt, &computedAt, &payload, &historicalRaw, &historicalErrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	snap := &domain.Snapshot{
		ProjectID:  projectID,
		Provider:   provider,
		Version:    version,
		CreatedAt:  time.UnixMicro(createdAt).UTC(),
		ComputedAt: time.UnixMicro(computedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(payload), &snap.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal([]byte(historicalRaw), &snap.Historical); err != nil {
		return nil, fmt.Errorf("decode historical payload: %w", err)
	}
	if historicalErrs.Valid {
		if err := json.Unmarshal([]byte(historicalErrs.String), &snap.HistoricalErrors); err != nil {
			return nil, fmt.Errorf("decode historical errors: %w", err)
		}
	}
	return snap, nil
}

func (s *Store) Delete(ctx context.Context, projectID int64, provider string) (bool, error) {
	if s.db == nil {
		return false, nil
	}
	query := fmt.Sprintf(`DELETE FROM metrics_snapshots WHERE project_id = %s AND provider = %s`, s.ph(1), s.ph(2))
	res, err := s.db.ExecContext(ctx, query, projectID, provider)
	if err != nil {
		return false, fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete snapshot: %w", err)
	}
	return n > 0, nil
}

// List returns every stored snapshot, newest first.
func (s *Store) List(ctx context.Context) ([]domain.SnapshotInfo, error) {
	out := []domain.SnapshotInfo{}
	if s.db == nil {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT project_id, provider, version, computed_at
		FROM metrics_snapshots ORDER BY computed_at DESC, project_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			info       domain.SnapshotInfo
			computedAt int64
		)
		if err := rows.Scan(&info.ProjectID, &info.Provider, &info.Version, &computedAt); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		info.ComputedAt = time.UnixMicro(computedAt).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// Clear removes every snapshot and returns how many rows were dropped.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM metrics_snapshots`)
	if err != nil {
		return 0, fmt.Errorf("clear snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Status summarizes the table contents.
type Status struct {
	Backend   database.Backend
	Connected bool
	Rows      int64
	Oldest    time.Time
	Newest    time.Time
	SizeBytes int64
}

func (s *Store) Status(ctx context.Context) (Status, error) {
	st := Status{Backend: s.backend}
	if s.db == nil {
		return st, nil
	}
	if err := s.db.PingContext(ctx); err != nil {
		return st, fmt.Errorf("ping %s: %w", s.backend, err)
	}
	st.Connected = true

	var oldest, newest sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(computed_at), MAX(computed_at) FROM metrics_snapshots`,
	).Scan(&st.Rows, &oldest, &newest); err != nil {
		return st, fmt.Errorf("snapshot status: %w", err)
	}
	if oldest.Valid {
		st.Oldest = time.UnixMicro(oldest.Int64).UTC()
	}
	if newest.Valid {
		st.Newest = time.UnixMicro(newest.Int64).UTC()
	}

	size, err := s.sizeBytes(ctx)
	if err != nil {
		return st, err
	}
	st.SizeBytes = size
	return st, nil
}

func (s *Store) sizeBytes(ctx context.Context) (int64, error) {
	var (
		size  sql.NullInt64
		query string
		args  []any
	)
	switch s.backend {
	case database.Postgres:
		query = `SELECT pg_total_relation_size($1)`
		args = []any{tableName}
	case database.MySQL:
		query = `SELECT data_length + index_length FROM information_schema.TABLES
			WHERE table_schema = DATABASE() AND table_name = ?`
		args = []any{tableName}
		if s.dsn != "" {
			cfg, err := mysql.ParseDSN(s.dsn)
			if err != nil {
				return 0, fmt.Errorf("parse mysql dsn: %w", err)
			}
			query = `SELECT data_length + index_length FROM information_schema.TABLES
				WHERE table_schema = ? AND table_name = ?`
			args = []any{cfg.DBName, tableName}
		}
	default:
		query = `SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&size); err != nil {
		return 0, fmt.Errorf("snapshot table size: %w", err)
	}
	return size.Int64, nil
}
