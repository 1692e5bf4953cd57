package postgres

import (
	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/registry"
	"taiga-metrics-service/internal/metrics/core/student"
)

// DefaultRegistry is the full metric set computed against a taiga database.
func DefaultRegistry(db DB) *registry.Registry {
	return registry.New().
		RegisterProject(ProjectMetrics(db)...).
		RegisterStudent(student.All()...).
		RegisterHistorical(domain.StrategicSeries,
			NewTaskCompletionSeries(db),
		).
		RegisterHistorical(domain.ProjectSeries,
			NewTaskVsIssueSeries(db),
			NewRoleStoryPointsSeries(db),
			NewSprintVelocitySeries(db),
		).
		RegisterHistorical(domain.UserSeries,
			NewUserClosedTasksSeries(db),
			NewUserStoryPointsSeries(db),
			NewUserStoriesClosedSeries(db),
		)
}
