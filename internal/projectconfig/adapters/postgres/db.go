package postgres

import "context"

type RowScanner interface {
	Scan(dest ...any) error
}

type DB interface {
	QueryRowContext(ctx context.Context, query string, args ...any) RowScanner
}
