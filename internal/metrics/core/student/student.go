// Package student implements the per-member team metrics. They are pure
// functions of the member row and the team totals.
package student

import (
	"fmt"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"
)

// All returns the team metrics in display order.
func All() []ports.StudentMetric {
	return []ports.StudentMetric{
		AssignedTasks{},
		ClosedTasks{},
		AssignedStories{},
		CompletedStories{},
	}
}

// AssignedTasks is the member's share of all assigned tasks; summed over the
// team it is 1.
type AssignedTasks struct{}

func (AssignedTasks) Key() string   { return "assignedtasks" }
func (AssignedTasks) Label() string { return "Tareas asignadas" }

func (AssignedTasks) ValueForUser(row domain.MemberRow, team domain.TeamTotals) float64 {
	return domain.Ratio(row.AssignedTasks, team.Tasks, 0)
}

func (AssignedTasks) Describe(row domain.MemberRow, team domain.TeamTotals) string {
	return fraction(row.AssignedTasks, team.Tasks)
}

// ClosedTasks is closed over assigned tasks of the member.
type ClosedTasks struct{}

func (ClosedTasks) Key() string   { return "closedtasks" }
func (ClosedTasks) Label() string { return "Tareas cerradas" }

func (ClosedTasks) ValueForUser(row domain.MemberRow, _ domain.TeamTotals) float64 {
	return domain.Ratio(row.ClosedTasks, row.AssignedTasks, 0)
}

func (ClosedTasks) Describe(row domain.MemberRow, _ domain.TeamTotals) string {
	return fraction(row.ClosedTasks, row.AssignedTasks)
}

// AssignedStories is the member's share of all assigned user stories.
type AssignedStories struct{}

func (AssignedStories) Key() string   { return "totalus" }
func (AssignedStories) Label() string { return "Historias asignadas" }

func (AssignedStories) ValueForUser(row domain.MemberRow, team domain.TeamTotals) float64 {
	return domain.Ratio(row.AssignedStories, team.Stories, 0)
}

func (AssignedStories) Describe(row domain.MemberRow, team domain.TeamTotals) string {
	return fraction(row.AssignedStories, team.Stories)
}

// CompletedStories is closed over assigned stories of the member.
type CompletedStories struct{}

func (CompletedStories) Key() string   { return "completedus" }
func (CompletedStories) Label() string { return "Historias finalizadas" }

func (CompletedStories) ValueForUser(row domain.MemberRow, _ domain.TeamTotals) float64 {
	return domain.Ratio(row.ClosedStories, row.AssignedStories, 0)
}

func (CompletedStories) Describe(row domain.MemberRow, _ domain.TeamTotals) string {
	return fraction(row.ClosedStories, row.AssignedStories)
}

func fraction(num, den int64) string {
	return fmt.Sprintf("%d/%d", num, den)
}
