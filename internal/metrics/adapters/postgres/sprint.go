package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"
)

const currentSprintSQL = `
SELECT m.id, m.name, m.estimated_start, m.estimated_finish
FROM milestones_milestone m
WHERE m.project_id = $1
  AND m.closed = FALSE
  AND m.estimated_start <= CURRENT_DATE
  AND m.estimated_finish >= CURRENT_DATE
ORDER BY m.estimated_finish ASC, m.id ASC
LIMIT 1`

const nextOpenSprintSQL = `
SELECT m.id, m.name, m.estimated_start, m.estimated_finish
FROM milestones_milestone m
WHERE m.project_id = $1
  AND m.closed = FALSE
ORDER BY m.estimated_finish ASC, m.id ASC
LIMIT 1`

type SprintRepository struct {
	db DB
}

func NewSprintRepository(db DB) *SprintRepository {
	return &SprintRepository{db: db}
}

var _ ports.SprintResolverPort = (*SprintRepository)(nil)

// ActiveSprint prefers the open milestone whose date range contains today
// and falls back to the open milestone that finishes first.
func (r *SprintRepository) ActiveSprint(ctx context.Context, projectID int64) (*domain.Sprint, error) {
	for _, query := range []string{currentSprintSQL, nextOpenSprintSQL} {
		sprint, err := r.scanSprint(ctx, query, projectID)
		if err != nil {
			return nil, fmt.Errorf("active sprint: %w", err)
		}
		if sprint != nil {
			return sprint, nil
		}
	}
	return nil, nil
}

func (r *SprintRepository) scanSprint(ctx context.Context, query string, projectID int64) (*domain.Sprint, error) {
	var (
		s      domain.Sprint
		name   sql.NullString
		start  sql.NullTime
		finish sql.NullTime
	)
	err := queryOne(ctx, r.db, query, []any{projectID}, &s.ID, &name, &start, &finish)
	if errors.Is(err, errNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Name = name.String
	s.EstimatedStart = start.Time
	s.EstimatedFinish = finish.Time
	return &s, nil
}

func sprintID(scope domain.Scope) *int64 {
	if scope.Sprint == nil {
		return nil
	}
	id := scope.Sprint.ID
	return &id
}
