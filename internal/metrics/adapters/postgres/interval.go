package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"taiga-metrics-service/internal/metrics/core/domain"
)

// Span of the project's task creation dates, in whole days.
const taskSpanSQL = `
SELECT EXTRACT(DAY FROM (MAX(t.created_date) - MIN(t.created_date)))::float8
FROM tasks_task t
WHERE t.project_id = $1 AND t.created_date IS NOT NULL`

// AdaptiveInterval picks day, week or month buckets from how long the
// project has been creating tasks.
func AdaptiveInterval(ctx context.Context, db DB, projectID int64) (domain.Interval, error) {
	var span sql.NullFloat64
	if err := queryOne(ctx, db, taskSpanSQL, []any{projectID}, &span); err != nil {
		return domain.Interval{}, fmt.Errorf("adaptive interval: %w", err)
	}
	return domain.IntervalForSpan(span.Float64), nil
}
