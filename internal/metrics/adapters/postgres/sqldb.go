package postgres

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type sqlRows struct {
	rows *sql.Rows
	span trace.Span
}

func (r *sqlRows) Next() bool {
	return r.rows.Next()
}

func (r *sqlRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *sqlRows) Err() error {
	return r.rows.Err()
}

// Close ends the query span together with the result set.
func (r *sqlRows) Close() error {
	err := r.rows.Close()
	if rerr := r.rows.Err(); rerr != nil {
		r.span.RecordError(rerr)
		r.span.SetStatus(codes.Error, rerr.Error())
	}
	r.span.End()
	return err
}

type sqlDB struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewSQLDB adapts a taiga database handle to DB. Every query gets its own
// client span.
func NewSQLDB(db *sql.DB) DB {
	return &sqlDB{db: db, tracer: otel.Tracer("taiga-metrics-service/postgres")}
}

func (s *sqlDB) QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error) {
	ctx, span := s.tracer.Start(ctx, "db.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.Int("db.args", len(args)),
		),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	return &sqlRows{rows: rows, span: span}, nil
}
