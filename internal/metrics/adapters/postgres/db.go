package postgres

import (
	"context"
	"errors"
	"fmt"
)

type RowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error)
}

var errNoRows = errors.New("query returned no rows")

// queryOne scans the first row of query into dest.
func queryOne(ctx context.Context, db DB, query string, args []any, dest ...any) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return errNoRows
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	return rows.Err()
}

// queryEach calls fn once per row; fn scans the row itself.
func queryEach(ctx context.Context, db DB, query string, args []any, fn func(RowScanner) error) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// sprintFilter returns the milestone condition for alias and the arguments
// to run the query with. The project id is always $1, the sprint id $2.
func sprintFilter(alias string, projectID int64, sprintID *int64) (string, []any) {
	args := []any{projectID}
	if sprintID == nil {
		return "", args
	}
	return fmt.Sprintf("AND %s.milestone_id = $2", alias), append(args, *sprintID)
}
