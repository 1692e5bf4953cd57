package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"taiga-metrics-service/internal/metrics/core/domain"
)

// Lookback of the weekly and per-sprint series.
const fixedLookbackDays = 360

// bucketDate keeps a NULL bucket as a null date.
func bucketDate(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	return domain.DateOf(t.Time)
}

// ------------------------------------------------------------

// TaskCompletionSeries is the closed/total task ratio per adaptive bucket.
type TaskCompletionSeries struct{ db DB }

func NewTaskCompletionSeries(db DB) *TaskCompletionSeries { return &TaskCompletionSeries{db: db} }

func (m *TaskCompletionSeries) ID() string { return "task_completion" }

func (m *TaskCompletionSeries) CalculateSeries(ctx context.Context, project domain.Project) (map[string][]domain.Point, error) {
	iv, err := AdaptiveInterval(ctx, m.db, project.ID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT
    DATE_TRUNC('%s', COALESCE(t.finished_date, t.created_date))::date AS bucket,
    COUNT(*) AS total,
    COALESCE(SUM(CASE WHEN ts.is_closed THEN 1 ELSE 0 END), 0) AS closed
FROM tasks_task t
LEFT JOIN projects_taskstatus ts ON ts.id = t.status_id
WHERE t.project_id = $1
  AND COALESCE(t.finished_date, t.created_date) >= NOW() - make_interval(days => $2::int)
GROUP BY bucket
ORDER BY bucket`, iv.Name)

	points := []domain.Point{}
	err = queryEach(ctx, m.db, query, []any{project.ID, iv.Days}, func(rows RowScanner) error {
		var (
			bucket        sql.NullTime
			total, closed int64
		)
		if err := rows.Scan(&bucket, &total, &closed); err != nil {
			return err
		}
		points = append(points, domain.Point{
			ID:       m.ID(),
			Name:     "Cierre de tareas",
			Date:     bucketDate(bucket),
			Value:    domain.Round(domain.Ratio(closed, total, 0), 4),
			Interval: iv.Name,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string][]domain.Point{m.ID(): points}, nil
}

// ------------------------------------------------------------

// TaskVsIssueSeries yields two count series: closed tasks and resolved issues.
type TaskVsIssueSeries struct{ db DB }

func NewTaskVsIssueSeries(db DB) *TaskVsIssueSeries { return &TaskVsIssueSeries{db: db} }

func (m *TaskVsIssueSeries) ID() string { return "task_vs_issue" }

func (m *TaskVsIssueSeries) CalculateSeries(ctx context.Context, project domain.Project) (map[string][]domain.Point, error) {
	iv, err := AdaptiveInterval(ctx, m.db, project.ID)
	if err != nil {
		return nil, err
	}

	tasks := fmt.Sprintf(`
SELECT
    DATE_TRUNC('%s', COALESCE(t.finished_date, t.created_date))::date AS bucket,
    COALESCE(SUM(CASE WHEN ts.is_closed THEN 1 ELSE 0 END), 0) AS closed
FROM tasks_task t
LEFT JOIN projects_taskstatus ts ON ts.id = t.status_id
WHERE t.project_id = $1
  AND COALESCE(t.finished_date, t.created_date) >= NOW() - make_interval(days => $2::int)
GROUP BY bucket
ORDER BY bucket`, iv.Name)

	issues := fmt.Sprintf(`
SELECT
    DATE_TRUNC('%s', COALESCE(i.finished_date, i.created_date))::date AS bucket,
    COALESCE(SUM(CASE WHEN st.is_closed THEN 1 ELSE 0 END), 0) AS closed
FROM issues_issue i
LEFT JOIN projects_issuestatus st ON st.id = i.status_id
WHERE i.project_id = $1
  AND COALESCE(i.finished_date, i.created_date) >= NOW() - make_interval(days => $2::int)
GROUP BY bucket
ORDER BY bucket`, iv.Name)

	closedTasks, err := m.countSeries(ctx, tasks, project, iv, "closed_tasks", "Tareas cerradas")
	if err != nil {
		return nil, err
	}
	closedIssues, err := m.countSeries(ctx, issues, project, iv, "closed_issues", "Issues resueltos")
	if err != nil {
		return nil, err
	}

	return map[string][]domain.Point{
		"closed_tasks":  closedTasks,
		"closed_issues": closedIssues,
	}, nil
}

func (m *TaskVsIssueSeries) countSeries(ctx context.Context, query string, project domain.Project, iv domain.Interval, id, name string) ([]domain.Point, error) {
	points := []domain.Point{}
	err := queryEach(ctx, m.db, query, []any{project.ID, iv.Days}, func(rows RowScanner) error {
		var (
			bucket sql.NullTime
			closed int64
		)
		if err := rows.Scan(&bucket, &closed); err != nil {
			return err
		}
		points = append(points, domain.Point{
			ID:       id,
			Name:     name,
			Date:     bucketDate(bucket),
			Value:    float64(closed),
			Interval: iv.Name,
		})
		return nil
	})
	return points, err
}

// ------------------------------------------------------------

// UserClosedTasksSeries is each member's closed/assigned ratio per bucket.
type UserClosedTasksSeries struct{ db DB }

func NewUserClosedTasksSeries(db DB) *UserClosedTasksSeries { return &UserClosedTasksSeries{db: db} }

func (m *UserClosedTasksSeries) ID() string { return "user_closed_tasks" }

func (m *UserClosedTasksSeries) CalculateSeries(ctx context.Context, project domain.Project) (map[string][]domain.Point, error) {
	iv, err := AdaptiveInterval(ctx, m.db, project.ID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT
    DATE_TRUNC('%s', COALESCE(t.finished_date, t.created_date))::date AS bucket,
    u.username,
    COUNT(DISTINCT t.id) AS assigned_tasks,
    COALESCE(SUM(CASE WHEN ts.is_closed THEN 1 ELSE 0 END), 0) AS closed_tasks
FROM tasks_task t
LEFT JOIN projects_taskstatus ts ON ts.id = t.status_id
LEFT JOIN users_user u ON u.id = t.assigned_to_id
WHERE t.project_id = $1
  AND u.username IS NOT NULL
  AND COALESCE(t.finished_date, t.created_date) >= NOW() - make_interval(days => $2::int)
GROUP BY bucket, u.username
ORDER BY bucket, u.username`, iv.Name)

	points := []domain.Point{}
	err = queryEach(ctx, m.db, query, []any{project.ID, iv.Days}, func(rows RowScanner) error {
		var (
			bucket           sql.NullTime
			username         string
			assigned, closed int64
		)
		if err := rows.Scan(&bucket, &username, &assigned, &closed); err != nil {
			return err
		}
		points = append(points, domain.Point{
			ID:       m.ID(),
			Name:     "Tareas cerradas por usuario",
			Date:     bucketDate(bucket),
			Value:    domain.Round(domain.Ratio(closed, assigned, 0), 4),
			Interval: iv.Name,
			Student:  username,
			Metadata: map[string]any{
				"closed":   closed,
				"assigned": assigned,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string][]domain.Point{m.ID(): points}, nil
}

// ------------------------------------------------------------

// UserStoryPointsSeries credits a member with the full points of every closed
// story where they closed at least one task, per week.
type UserStoryPointsSeries struct{ db DB }

func NewUserStoryPointsSeries(db DB) *UserStoryPointsSeries { return &UserStoryPointsSeries{db: db} }

func (m *UserStoryPointsSeries) ID() string { return "user_story_points" }

const userStoryPointsSQL = `
WITH us_points AS (
    SELECT
        us.id,
        us.finish_date,
        COALESCE(SUM(pp.value), 0)::float8 AS total_points
    FROM userstories_userstory us
    LEFT JOIN userstories_rolepoints rp ON rp.user_story_id = us.id
    LEFT JOIN projects_points pp ON pp.id = rp.points_id
    WHERE us.project_id = $1
    GROUP BY us.id, us.finish_date
), credited AS (
    SELECT DISTINCT usp.id, usp.finish_date, usp.total_points, u.username
    FROM us_points usp
    JOIN userstories_userstory us ON us.id = usp.id
    JOIN projects_userstorystatus uss ON uss.id = us.status_id
    JOIN tasks_task t ON t.user_story_id = us.id
    JOIN projects_taskstatus ts ON ts.id = t.status_id
    JOIN users_user u ON u.id = t.assigned_to_id
    WHERE uss.is_closed = TRUE
      AND ts.is_closed = TRUE
      AND usp.finish_date IS NOT NULL
      AND usp.finish_date >= NOW() - make_interval(days => $2::int)
)
SELECT
    DATE_TRUNC('week', c.finish_date)::date AS bucket,
    c.username,
    COALESCE(SUM(c.total_points), 0)::float8 AS total_points
FROM credited c
GROUP BY bucket, c.username
ORDER BY bucket, c.username`

func (m *UserStoryPointsSeries) CalculateSeries(ctx context.Context, project domain.Project) (map[string][]domain.Point, error) {
	points := []domain.Point{}
	err := queryEach(ctx, m.db, userStoryPointsSQL, []any{project.ID, fixedLookbackDays}, func(rows RowScanner) error {
		var (
			bucket   sql.NullTime
			username string
			total    float64
		)
		if err := rows.Scan(&bucket, &username, &total); err != nil {
			return err
		}
		points = append(points, domain.Point{
			ID:      m.ID(),
			Name:    "Story Points por usuario",
			Date:    bucketDate(bucket),
			Value:   total,
			Student: username,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string][]domain.Point{m.ID(): points}, nil
}

// ------------------------------------------------------------

// RoleStoryPointsSeries is weekly closed story points split by role.
type RoleStoryPointsSeries struct{ db DB }

func NewRoleStoryPointsSeries(db DB) *RoleStoryPointsSeries { return &RoleStoryPointsSeries{db: db} }

func (m *RoleStoryPointsSeries) ID() string { return "role_story_points" }

const roleStoryPointsSQL = `
SELECT
    DATE_TRUNC('week', us.finish_date)::date AS bucket,
    r.name AS role_name,
    COALESCE(SUM(p.value), 0)::float8 AS role_points
FROM userstories_userstory us
JOIN userstories_rolepoints rp ON rp.user_story_id = us.id
JOIN users_role r ON r.id = rp.role_id
JOIN projects_points p ON p.id = rp.points_id
LEFT JOIN projects_userstorystatus uss ON uss.id = us.status_id
WHERE us.project_id = $1
  AND uss.is_closed = TRUE
  AND us.finish_date IS NOT NULL
  AND us.finish_date >= NOW() - make_interval(days => $2::int)
  AND p.value IS NOT NULL
GROUP BY bucket, r.name
ORDER BY bucket, r.name`

func (m *RoleStoryPointsSeries) CalculateSeries(ctx context.Context, project domain.Project) (map[string][]domain.Point, error) {
	points := []domain.Point{}
	err := queryEach(ctx, m.db, roleStoryPointsSQL, []any{project.ID, fixedLookbackDays}, func(rows RowScanner) error {
		var (
			bucket sql.NullTime
			role   string
			total  float64
		)
		if err := rows.Scan(&bucket, &role, &total); err != nil {
			return err
		}
		points = append(points, domain.Point{
			ID:    m.ID(),
			Name:  "SP " + role,
			Date:  bucketDate(bucket),
			Value: total,
			Role:  role,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string][]domain.Point{m.ID(): points}, nil
}

// ------------------------------------------------------------

// UserStoriesClosedSeries counts closed stories per assignee and week.
type UserStoriesClosedSeries struct{ db DB }

func NewUserStoriesClosedSeries(db DB) *UserStoriesClosedSeries {
	return &UserStoriesClosedSeries{db: db}
}

func (m *UserStoriesClosedSeries) ID() string { return "user_stories_closed" }

const userStoriesClosedSQL = `
SELECT
    DATE_TRUNC('week', us.finish_date)::date AS bucket,
    u.username,
    COUNT(*) AS stories_closed
FROM userstories_userstory us
LEFT JOIN users_user u ON u.id = us.assigned_to_id
LEFT JOIN projects_userstorystatus uss ON uss.id = us.status_id
WHERE us.project_id = $1
  AND uss.is_closed = TRUE
  AND us.finish_date IS NOT NULL
  AND us.finish_date >= NOW() - make_interval(days => $2::int)
  AND u.username IS NOT NULL
GROUP BY bucket, u.username
ORDER BY bucket, u.username`

func (m *UserStoriesClosedSeries) CalculateSeries(ctx context.Context, project domain.Project) (map[string][]domain.Point, error) {
	points := []domain.Point{}
	err := queryEach(ctx, m.db, userStoriesClosedSQL, []any{project.ID, fixedLookbackDays}, func(rows RowScanner) error {
		var (
			bucket   sql.NullTime
			username string
			closed   int64
		)
		if err := rows.Scan(&bucket, &username, &closed); err != nil {
			return err
		}
		points = append(points, domain.Point{
			ID:      m.ID(),
			Name:    "Historias cerradas por usuario",
			Date:    bucketDate(bucket),
			Value:   float64(closed),
			Student: username,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string][]domain.Point{m.ID(): points}, nil
}

// ------------------------------------------------------------

// SprintVelocitySeries has one point per milestone: closed story points,
// with the planned total in metadata.
type SprintVelocitySeries struct{ db DB }

func NewSprintVelocitySeries(db DB) *SprintVelocitySeries { return &SprintVelocitySeries{db: db} }

func (m *SprintVelocitySeries) ID() string { return "sprint_velocity" }

const sprintVelocitySQL = `
WITH us_points AS (
    SELECT
        us.id,
        us.milestone_id,
        us.status_id,
        COALESCE(SUM(pp.value), 0) AS total_points
    FROM userstories_userstory us
    LEFT JOIN userstories_rolepoints rp ON rp.user_story_id = us.id
    LEFT JOIN projects_points pp ON pp.id = rp.points_id
    WHERE us.project_id = $1
    GROUP BY us.id, us.milestone_id, us.status_id
)
SELECT
    m.name AS sprint_name,
    m.estimated_finish AS finish_date,
    COALESCE(SUM(CASE WHEN uss.is_closed THEN usp.total_points ELSE 0 END), 0)::float8 AS completed_points,
    COALESCE(SUM(usp.total_points), 0)::float8 AS total_points
FROM milestones_milestone m
LEFT JOIN us_points usp ON usp.milestone_id = m.id
LEFT JOIN projects_userstorystatus uss ON uss.id = usp.status_id
WHERE m.project_id = $1
  AND m.estimated_finish >= NOW() - make_interval(days => $2::int)
GROUP BY m.id, m.name, m.estimated_finish
ORDER BY m.estimated_finish`

func (m *SprintVelocitySeries) CalculateSeries(ctx context.Context, project domain.Project) (map[string][]domain.Point, error) {
	points := []domain.Point{}
	err := queryEach(ctx, m.db, sprintVelocitySQL, []any{project.ID, fixedLookbackDays}, func(rows RowScanner) error {
		var (
			name             sql.NullString
			finish           sql.NullTime
			completed, total float64
		)
		if err := rows.Scan(&name, &finish, &completed, &total); err != nil {
			return err
		}
		label := name.String
		if label == "" {
			label = domain.UnnamedSprintName
		}
		points = append(points, domain.Point{
			ID:    m.ID(),
			Name:  label,
			Date:  bucketDate(finish),
			Value: completed,
			Metadata: map[string]any{
				"total_planned": total,
				"sprint_name":   name.String,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string][]domain.Point{m.ID(): points}, nil
}
