package ports

import (
	"context"

	"taiga-metrics-service/internal/metrics/core/domain"
)

// ProjectMetric computes one project KPI. A nil result with a nil error means
// the metric does not apply to the scope.
type ProjectMetric interface {
	ID() string
	Calculate(ctx context.Context, scope domain.Scope) (*domain.MetricResult, error)
}

// StudentMetric derives one value per team member from its aggregate row and
// the team totals of the same calculation.
type StudentMetric interface {
	Key() string
	Label() string
	ValueForUser(row domain.MemberRow, team domain.TeamTotals) float64
	Describe(row domain.MemberRow, team domain.TeamTotals) string
}

// HistoricalMetric produces one or more named series ordered by date.
type HistoricalMetric interface {
	ID() string
	CalculateSeries(ctx context.Context, project domain.Project) (map[string][]domain.Point, error)
}
