package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"

	"taiga-metrics-service/internal/projectconfig/core/domain"
)

// fakeRow implements RowScanner for tests.
type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: expected %d destinations, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case sql.Scanner:
			if err := p.Scan(r.values[i]); err != nil {
				return err
			}
		case *bool:
			*p = r.values[i].(bool)
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			*p = r.values[i].([]byte)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// fakeDB implements DB interface for tests.
type fakeDB struct {
	QueryRowFn func(ctx context.Context, query string, args ...any) RowScanner
	lastQuery  string
	lastArgs   []any
}

func (f *fakeDB) QueryRowContext(ctx context.Context, query string, args ...any) RowScanner {
	f.lastQuery = query
	f.lastArgs = args
	return f.QueryRowFn(ctx, query, args...)
}

var updatedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// ------------------------------------------------------------
// UPSERT
// ------------------------------------------------------------

func TestConfigRepository_Upsert_Created(t *testing.T) {
	db := &fakeDB{
		QueryRowFn: func(ctx context.Context, query string, args ...any) RowScanner {
			if !strings.Contains(query, "INSERT INTO projects_metrics_config") {
				t.Fatalf("unexpected query: %s", query)
			}
			return &fakeRow{values: []any{true, updatedAt}}
		},
	}
	repo := NewConfigRepository(db)

	c := &domain.MetricsConfig{
		ProjectID:           11,
		Provider:            "internal",
		Classification:      map[string]string{"taskcompletion": "team"},
		ProjectMetricsOrder: []string{"a", "b"},
		TeamMetricsOrder:    []string{},
	}
	created, err := repo.UpsertConfig(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}
	if !c.UpdatedAt.Equal(updatedAt) {
		t.Errorf("expected updated_at to be scanned back, got %v", c.UpdatedAt)
	}
	if len(db.lastArgs) != 6 {
		t.Fatalf("expected 6 args, got %d", len(db.lastArgs))
	}
	if db.lastArgs[0] != int64(11) {
		t.Errorf("expected project id 11 as first arg, got %v", db.lastArgs[0])
	}
	if string(db.lastArgs[3].([]byte)) != `{"taskcompletion":"team"}` {
		t.Errorf("unexpected classification json: %s", db.lastArgs[3])
	}
}

func TestConfigRepository_Upsert_Updated(t *testing.T) {
	db := &fakeDB{
		QueryRowFn: func(ctx context.Context, query string, args ...any) RowScanner {
			return &fakeRow{values: []any{false, updatedAt}}
		},
	}
	created, err := NewConfigRepository(db).UpsertConfig(context.Background(), &domain.MetricsConfig{ProjectID: 11})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatalf("expected created=false")
	}
}

func TestConfigRepository_Upsert_DBError(t *testing.T) {
	dbErr := errors.New("connection refused")
	db := &fakeDB{
		QueryRowFn: func(ctx context.Context, query string, args ...any) RowScanner {
			return &fakeRow{err: dbErr}
		},
	}
	_, err := NewConfigRepository(db).UpsertConfig(context.Background(), &domain.MetricsConfig{ProjectID: 11})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

// ------------------------------------------------------------
// GET
// ------------------------------------------------------------

func TestConfigRepository_Get(t *testing.T) {
	db := &fakeDB{
		QueryRowFn: func(ctx context.Context, query string, args ...any) RowScanner {
			return &fakeRow{values: []any{
				"external",
				"ext-1",
				[]byte(`{"blockedtasks":"hidden"}`),
				[]byte(`{task_completion,blocked_tasks}`),
				[]byte(`{}`),
				updatedAt,
			}}
		},
	}

	c, err := NewConfigRepository(db).GetConfig(context.Background(), 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ProjectID != 11 || c.Provider != "external" || c.ExternalProjectID != "ext-1" {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.Classification["blockedtasks"] != "hidden" {
		t.Errorf("unexpected classification: %v", c.Classification)
	}
	if len(c.ProjectMetricsOrder) != 2 || c.ProjectMetricsOrder[1] != "blocked_tasks" {
		t.Errorf("unexpected project order: %v", c.ProjectMetricsOrder)
	}
	if c.TeamMetricsOrder == nil || len(c.TeamMetricsOrder) != 0 {
		t.Errorf("expected empty team order, got %v", c.TeamMetricsOrder)
	}
	if db.lastArgs[0] != int64(11) {
		t.Errorf("expected project id arg, got %v", db.lastArgs[0])
	}
}

func TestConfigRepository_Get_NotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFn: func(ctx context.Context, query string, args ...any) RowScanner {
			return &fakeRow{err: sql.ErrNoRows}
		},
	}
	_, err := NewConfigRepository(db).GetConfig(context.Background(), 11)
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestConfigRepository_Get_MissingTable(t *testing.T) {
	db := &fakeDB{
		QueryRowFn: func(ctx context.Context, query string, args ...any) RowScanner {
			return &fakeRow{err: &pq.Error{Code: "42P01", Message: `relation "projects_metrics_config" does not exist`}}
		},
	}
	_, err := NewConfigRepository(db).GetConfig(context.Background(), 11)
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestConfigRepository_Get_OtherPQError(t *testing.T) {
	db := &fakeDB{
		QueryRowFn: func(ctx context.Context, query string, args ...any) RowScanner {
			return &fakeRow{err: &pq.Error{Code: "42501", Message: "permission denied"}}
		},
	}
	_, err := NewConfigRepository(db).GetConfig(context.Background(), 11)
	if err == nil || errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("expected a wrapped pq error, got %v", err)
	}
}
