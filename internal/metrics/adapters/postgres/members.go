package postgres

import (
	"context"
	"fmt"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"
)

type MemberRepository struct {
	db DB
}

func NewMemberRepository(db DB) *MemberRepository {
	return &MemberRepository{db: db}
}

var _ ports.TeamReaderPort = (*MemberRepository)(nil)

// Each count is its own correlated subquery; joining tasks and stories in
// one pass would multiply the rows of one by the other.
const teamRowsSQL = `
SELECT
    u.id AS user_id,
    u.username,
    COALESCE(NULLIF(u.full_name, ''), u.username) AS full_name,
    (SELECT COUNT(*)
       FROM tasks_task t
      WHERE t.project_id = m.project_id AND t.assigned_to_id = u.id %[1]s) AS assigned_tasks,
    (SELECT COUNT(*)
       FROM tasks_task t
       JOIN projects_taskstatus ts ON ts.id = t.status_id
      WHERE t.project_id = m.project_id AND t.assigned_to_id = u.id AND ts.is_closed %[1]s) AS closed_tasks,
    (SELECT COUNT(*)
       FROM userstories_userstory us
      WHERE us.project_id = m.project_id AND us.assigned_to_id = u.id %[2]s) AS assigned_stories,
    (SELECT COUNT(*)
       FROM userstories_userstory us
       JOIN projects_userstorystatus uss ON uss.id = us.status_id
      WHERE us.project_id = m.project_id AND us.assigned_to_id = u.id AND uss.is_closed %[2]s) AS closed_stories
FROM projects_membership m
JOIN users_user u ON u.id = m.user_id
WHERE m.project_id = $1 AND m.user_id IS NOT NULL
ORDER BY full_name ASC, u.username ASC`

// TeamRows returns one aggregate row per project member, scoped to the
// active sprint when there is one.
func (r *MemberRepository) TeamRows(ctx context.Context, scope domain.Scope) ([]domain.MemberRow, error) {
	taskFilter, args := sprintFilter("t", scope.Project.ID, sprintID(scope))
	storyFilter, _ := sprintFilter("us", scope.Project.ID, sprintID(scope))
	query := fmt.Sprintf(teamRowsSQL, taskFilter, storyFilter)

	out := []domain.MemberRow{}
	err := queryEach(ctx, r.db, query, args, func(rows RowScanner) error {
		var row domain.MemberRow
		if err := rows.Scan(
			&row.UserID,
			&row.Username,
			&row.FullName,
			&row.AssignedTasks,
			&row.ClosedTasks,
			&row.AssignedStories,
			&row.ClosedStories,
		); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("team rows: %w", err)
	}
	return out, nil
}
