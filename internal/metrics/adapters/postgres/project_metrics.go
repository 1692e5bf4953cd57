package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"
)

var (
	taskCompletionDef = domain.MetricDefinition{
		ID:             "task_completion",
		Name:           "Tareas cerradas",
		Description:    "Progreso de cierre de tareas del sprint.",
		QualityFactors: []string{"Delivery"},
	}
	userStoryCompletionDef = domain.MetricDefinition{
		ID:             "userstory_completion",
		Name:           "Historias completadas",
		Description:    "Progreso de funcionalidades entregadas.",
		QualityFactors: []string{"Delivery"},
	}
	issueResolutionDef = domain.MetricDefinition{
		ID:             "issue_resolution",
		Name:           "Incidencias resueltas",
		Description:    "Bugs e incidencias solucionados.",
		QualityFactors: []string{"Quality"},
	}
	taskAssignmentDef = domain.MetricDefinition{
		ID:             "task_assignment",
		Name:           "Tareas asignadas",
		Description:    "Tareas con responsable definido.",
		QualityFactors: []string{"Planning"},
	}
	blockedTasksDef = domain.MetricDefinition{
		ID:             "blocked_tasks",
		Name:           "Tareas sin bloquear",
		Description:    "Tareas que fluyen sin impedimentos.",
		QualityFactors: []string{"Quality"},
	}
	storiesWithTasksDef = domain.MetricDefinition{
		ID:             "stories_with_tasks",
		Name:           "Historias desglosadas",
		Description:    "Historias con tareas definidas.",
		QualityFactors: []string{"Planning"},
	}
	teamParticipationDef = domain.MetricDefinition{
		ID:             "team_participation",
		Name:           "Participación del equipo",
		Description:    "Miembros activos con tareas asignadas.",
		QualityFactors: []string{"Delivery"},
	}
	tasksOnTimeDef = domain.MetricDefinition{
		ID:             "tasks_on_time",
		Name:           "Tareas en plazo",
		Description:    "Tareas sin fecha vencida.",
		QualityFactors: []string{"Delivery"},
	}
	taskClosureTimeDef = domain.MetricDefinition{
		ID:             "task_closure_time",
		Name:           "Tiempo medio de cierre",
		Description:    "Tiempo promedio de cierre de tareas (en horas).",
		QualityFactors: []string{"Team"},
	}
)

// ProjectMetrics returns every project KPI in display order.
func ProjectMetrics(db DB) []ports.ProjectMetric {
	return []ports.ProjectMetric{
		NewTaskCompletionMetric(db),
		NewUserStoryCompletionMetric(db),
		NewIssueResolutionMetric(db),
		NewTaskAssignmentMetric(db),
		NewBlockedTasksMetric(db),
		NewStoriesWithTasksMetric(db),
		NewTeamParticipationMetric(db),
		NewTasksOnTimeMetric(db),
		NewTaskClosureTimeMetric(db),
	}
}

func inSprint(done, total int64, scope domain.Scope) string {
	return fmt.Sprintf("%d/%d en %s", done, total, scope.SprintName())
}

// ------------------------------------------------------------

type TaskCompletionMetric struct{ db DB }

func NewTaskCompletionMetric(db DB) *TaskCompletionMetric { return &TaskCompletionMetric{db: db} }

func (m *TaskCompletionMetric) ID() string { return taskCompletionDef.ID }

func (m *TaskCompletionMetric) Calculate(ctx context.Context, scope domain.Scope) (*domain.MetricResult, error) {
	filter, args := sprintFilter("t", scope.Project.ID, sprintID(scope))
	query := fmt.Sprintf(`
SELECT
    COUNT(*) AS total,
    COALESCE(SUM(CASE WHEN ts.is_closed THEN 1 ELSE 0 END), 0) AS closed,
    COALESCE(SUM(CASE
        WHEN ts.is_closed AND t.finished_date >= NOW() - INTERVAL '7 days' THEN 1
        ELSE 0
    END), 0) AS recent_closed
FROM tasks_task t
LEFT JOIN projects_taskstatus ts ON ts.id = t.status_id
WHERE t.project_id = $1 %s`, filter)

	var total, closed, recent int64
	if err := queryOne(ctx, m.db, query, args, &total, &closed, &recent); err != nil {
		return nil, err
	}

	return domain.NewProjectResult(taskCompletionDef, scope.Project,
		domain.Ratio(closed, total, 0),
		inSprint(closed, total, scope),
		map[string]any{
			"total":             total,
			"closed":            closed,
			"recent_closed":     recent,
			"sprint_name":       scope.SprintName(),
			"has_active_sprint": scope.HasSprint(),
		},
	), nil
}

// ------------------------------------------------------------

type UserStoryCompletionMetric struct{ db DB }

func NewUserStoryCompletionMetric(db DB) *UserStoryCompletionMetric {
	return &UserStoryCompletionMetric{db: db}
}

func (m *UserStoryCompletionMetric) ID() string { return userStoryCompletionDef.ID }

func (m *UserStoryCompletionMetric) Calculate(ctx context.Context, scope domain.Scope) (*domain.MetricResult, error) {
	filter, args := sprintFilter("us", scope.Project.ID, sprintID(scope))
	query := fmt.Sprintf(`
SELECT
    COUNT(*) AS total,
    COALESCE(SUM(CASE WHEN st.is_closed THEN 1 ELSE 0 END), 0) AS closed
FROM userstories_userstory us
LEFT JOIN projects_userstorystatus st ON st.id = us.status_id
WHERE us.project_id = $1 %s`, filter)

	var total, closed int64
	if err := queryOne(ctx, m.db, query, args, &total, &closed); err != nil {
		return nil, err
	}

	return domain.NewProjectResult(userStoryCompletionDef, scope.Project,
		domain.Ratio(closed, total, 0),
		inSprint(closed, total, scope),
		map[string]any{
			"total":             total,
			"closed":            closed,
			"sprint_name":       scope.SprintName(),
			"has_active_sprint": scope.HasSprint(),
		},
	), nil
}

// ------------------------------------------------------------

type IssueResolutionMetric struct{ db DB }

func NewIssueResolutionMetric(db DB) *IssueResolutionMetric { return &IssueResolutionMetric{db: db} }

func (m *IssueResolutionMetric) ID() string { return issueResolutionDef.ID }

func (m *IssueResolutionMetric) Calculate(ctx context.Context, scope domain.Scope) (*domain.MetricResult, error) {
	filter, args := sprintFilter("i", scope.Project.ID, sprintID(scope))
	query := fmt.Sprintf(`
SELECT
    COUNT(*) AS total,
    COALESCE(SUM(CASE WHEN st.is_closed THEN 1 ELSE 0 END), 0) AS closed,
    COALESCE(SUM(CASE
        WHEN st.is_closed AND i.finished_date >= NOW() - INTERVAL '14 days' THEN 1
        ELSE 0
    END), 0) AS recent_closed
FROM issues_issue i
LEFT JOIN projects_issuestatus st ON st.id = i.status_id
WHERE i.project_id = $1 %s`, filter)

	var total, closed, recent int64
	if err := queryOne(ctx, m.db, query, args, &total, &closed, &recent); err != nil {
		return nil, err
	}

	return domain.NewProjectResult(issueResolutionDef, scope.Project,
		domain.Ratio(closed, total, 0),
		inSprint(closed, total, scope),
		map[string]any{
			"total":             total,
			"closed":            closed,
			"recent_closed":     recent,
			"sprint_name":       scope.SprintName(),
			"has_active_sprint": scope.HasSprint(),
		},
	), nil
}

// ------------------------------------------------------------

type TaskAssignmentMetric struct{ db DB }

func NewTaskAssignmentMetric(db DB) *TaskAssignmentMetric { return &TaskAssignmentMetric{db: db} }

func (m *TaskAssignmentMetric) ID() string { return taskAssignmentDef.ID }

func (m *TaskAssignmentMetric) Calculate(ctx context.Context, scope domain.Scope) (*domain.MetricResult, error) {
	filter, args := sprintFilter("t", scope.Project.ID, sprintID(scope))
	query := fmt.Sprintf(`
SELECT
    COUNT(*) AS total,
    COALESCE(SUM(CASE WHEN t.assigned_to_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS assigned
FROM tasks_task t
WHERE t.project_id = $1 %s`, filter)

	var total, assigned int64
	if err := queryOne(ctx, m.db, query, args, &total, &assigned); err != nil {
		return nil, err
	}

	return domain.NewProjectResult(taskAssignmentDef, scope.Project,
		domain.Ratio(assigned, total, 1),
		inSprint(assigned, total, scope),
		map[string]any{
			"total":       total,
			"assigned":    assigned,
			"unassigned":  total - assigned,
			"sprint_name": scope.SprintName(),
		},
	), nil
}

// ------------------------------------------------------------

// BlockedTasksMetric is inverted: 1.0 means no open task is blocked.
type BlockedTasksMetric struct{ db DB }

func NewBlockedTasksMetric(db DB) *BlockedTasksMetric { return &BlockedTasksMetric{db: db} }

func (m *BlockedTasksMetric) ID() string { return blockedTasksDef.ID }

func (m *BlockedTasksMetric) Calculate(ctx context.Context, scope domain.Scope) (*domain.MetricResult, error) {
	filter, args := sprintFilter("t", scope.Project.ID, sprintID(scope))
	query := fmt.Sprintf(`
SELECT
    COUNT(*) AS total,
    COALESCE(SUM(CASE WHEN t.is_blocked = TRUE THEN 1 ELSE 0 END), 0) AS blocked
FROM tasks_task t
LEFT JOIN projects_taskstatus ts ON ts.id = t.status_id
WHERE t.project_id = $1 AND ts.is_closed = FALSE %s`, filter)

	var open, blocked int64
	if err := queryOne(ctx, m.db, query, args, &open, &blocked); err != nil {
		return nil, err
	}

	return domain.NewProjectResult(blockedTasksDef, scope.Project,
		domain.InvertedRatio(blocked, open, 1),
		fmt.Sprintf("%d bloqueadas en %s", blocked, scope.SprintName()),
		map[string]any{
			"total_open":  open,
			"blocked":     blocked,
			"sprint_name": scope.SprintName(),
		},
	), nil
}

// ------------------------------------------------------------

type StoriesWithTasksMetric struct{ db DB }

func NewStoriesWithTasksMetric(db DB) *StoriesWithTasksMetric { return &StoriesWithTasksMetric{db: db} }

func (m *StoriesWithTasksMetric) ID() string { return storiesWithTasksDef.ID }

func (m *StoriesWithTasksMetric) Calculate(ctx context.Context, scope domain.Scope) (*domain.MetricResult, error) {
	filter, args := sprintFilter("us", scope.Project.ID, sprintID(scope))
	query := fmt.Sprintf(`
SELECT
    COUNT(DISTINCT us.id) AS total_stories,
    COUNT(DISTINCT CASE
        WHEN EXISTS (SELECT 1 FROM tasks_task t WHERE t.user_story_id = us.id) THEN us.id
        ELSE NULL
    END) AS stories_with_tasks
FROM userstories_userstory us
WHERE us.project_id = $1 %s`, filter)

	var total, withTasks int64
	if err := queryOne(ctx, m.db, query, args, &total, &withTasks); err != nil {
		return nil, err
	}

	return domain.NewProjectResult(storiesWithTasksDef, scope.Project,
		domain.Ratio(withTasks, total, 1),
		inSprint(withTasks, total, scope),
		map[string]any{
			"total_stories": total,
			"with_tasks":    withTasks,
			"sprint_name":   scope.SprintName(),
		},
	), nil
}

// ------------------------------------------------------------

// TeamParticipationMetric puts the sprint condition inside the task join so
// members without sprint tasks still count towards the total.
type TeamParticipationMetric struct{ db DB }

func NewTeamParticipationMetric(db DB) *TeamParticipationMetric {
	return &TeamParticipationMetric{db: db}
}

func (m *TeamParticipationMetric) ID() string { return teamParticipationDef.ID }

func (m *TeamParticipationMetric) Calculate(ctx context.Context, scope domain.Scope) (*domain.MetricResult, error) {
	filter, args := sprintFilter("t", scope.Project.ID, sprintID(scope))
	query := fmt.Sprintf(`
SELECT
    COUNT(DISTINCT m.user_id) AS total_members,
    COUNT(DISTINCT t.assigned_to_id) AS members_with_tasks
FROM projects_membership m
LEFT JOIN tasks_task t ON t.project_id = m.project_id
                      AND t.assigned_to_id = m.user_id
                      %s
WHERE m.project_id = $1 AND m.user_id IS NOT NULL`, filter)

	var members, active int64
	if err := queryOne(ctx, m.db, query, args, &members, &active); err != nil {
		return nil, err
	}

	return domain.NewProjectResult(teamParticipationDef, scope.Project,
		domain.Ratio(active, members, 0),
		inSprint(active, members, scope),
		map[string]any{
			"total_members":      members,
			"members_with_tasks": active,
			"sprint_name":        scope.SprintName(),
		},
	), nil
}

// ------------------------------------------------------------

// TasksOnTimeMetric is inverted: 1.0 means no open task is past its due date.
type TasksOnTimeMetric struct{ db DB }

func NewTasksOnTimeMetric(db DB) *TasksOnTimeMetric { return &TasksOnTimeMetric{db: db} }

func (m *TasksOnTimeMetric) ID() string { return tasksOnTimeDef.ID }

func (m *TasksOnTimeMetric) Calculate(ctx context.Context, scope domain.Scope) (*domain.MetricResult, error) {
	filter, args := sprintFilter("t", scope.Project.ID, sprintID(scope))
	query := fmt.Sprintf(`
SELECT
    COUNT(*) AS total_open,
    COALESCE(SUM(CASE
        WHEN t.due_date IS NOT NULL AND t.due_date < CURRENT_DATE THEN 1
        ELSE 0
    END), 0) AS overdue
FROM tasks_task t
LEFT JOIN projects_taskstatus ts ON ts.id = t.status_id
WHERE t.project_id = $1 AND ts.is_closed = FALSE %s`, filter)

	var open, overdue int64
	if err := queryOne(ctx, m.db, query, args, &open, &overdue); err != nil {
		return nil, err
	}

	return domain.NewProjectResult(tasksOnTimeDef, scope.Project,
		domain.InvertedRatio(overdue, open, 1),
		fmt.Sprintf("%d vencidas en %s", overdue, scope.SprintName()),
		map[string]any{
			"total_open":  open,
			"overdue":     overdue,
			"on_time":     open - overdue,
			"sprint_name": scope.SprintName(),
		},
	), nil
}

// ------------------------------------------------------------

// TaskClosureTimeMetric reports hours, not a ratio.
type TaskClosureTimeMetric struct{ db DB }

func NewTaskClosureTimeMetric(db DB) *TaskClosureTimeMetric { return &TaskClosureTimeMetric{db: db} }

func (m *TaskClosureTimeMetric) ID() string { return taskClosureTimeDef.ID }

func (m *TaskClosureTimeMetric) Calculate(ctx context.Context, scope domain.Scope) (*domain.MetricResult, error) {
	filter, args := sprintFilter("t", scope.Project.ID, sprintID(scope))
	query := fmt.Sprintf(`
SELECT
    AVG(EXTRACT(EPOCH FROM (t.finished_date - t.created_date)) / 3600)::float8 AS avg_hours,
    COUNT(*) AS task_count,
    MIN(EXTRACT(EPOCH FROM (t.finished_date - t.created_date)) / 3600)::float8 AS min_hours,
    MAX(EXTRACT(EPOCH FROM (t.finished_date - t.created_date)) / 3600)::float8 AS max_hours
FROM tasks_task t
LEFT JOIN projects_taskstatus ts ON ts.id = t.status_id
WHERE t.project_id = $1
  AND ts.is_closed = TRUE
  AND t.finished_date IS NOT NULL
  %s`, filter)

	var (
		avg, lo, hi sql.NullFloat64
		count       int64
	)
	if err := queryOne(ctx, m.db, query, args, &avg, &count, &lo, &hi); err != nil {
		return nil, err
	}

	hours := avg.Float64
	return domain.NewProjectResult(taskClosureTimeDef, scope.Project,
		domain.Round(hours, 2),
		formatHours(hours),
		map[string]any{
			"avg_hours":   domain.Round(hours, 2),
			"task_count":  count,
			"min_hours":   domain.Round(lo.Float64, 2),
			"max_hours":   domain.Round(hi.Float64, 2),
			"sprint_name": scope.SprintName(),
		},
	), nil
}

// formatHours renders a duration in hours as minutes, hours or days.
func formatHours(h float64) string {
	switch {
	case h < 1:
		return fmt.Sprintf("%d min", int(h*60))
	case h < 24:
		return fmt.Sprintf("%.1f h", h)
	default:
		return fmt.Sprintf("%.1f días", h/24)
	}
}
