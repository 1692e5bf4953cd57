package usecase

import (
	"strings"

	"taiga-metrics-service/internal/metrics/core/domain"
)

const (
	colorRed    = "#EF4444"
	colorAmber  = "#F59E0B"
	colorGreen  = "#22C55E"
	colorPurple = "#8B5CF6"
)

// MetricCategories is the fixed dashboard legend.
func MetricCategories() []domain.Category {
	out := make([]domain.Category, 0, 10)
	for _, name := range []string{"Delivery", "Planning", "Quality"} {
		out = append(out,
			domain.Category{Name: name, UpperThreshold: 0.5, Color: colorRed, Type: "percentage"},
			domain.Category{Name: name, UpperThreshold: 0.8, Color: colorAmber, Type: "percentage"},
			domain.Category{Name: name, UpperThreshold: 1.0, Color: colorGreen, Type: "percentage"},
		)
	}
	out = append(out, domain.Category{Name: "Team", UpperThreshold: 100, Color: colorPurple, Type: "absolute"})
	return out
}

// HoursBreakdown reuses the total/closed counts already carried by the task
// completion and issue resolution entries.
func HoursBreakdown(metrics []domain.MetricResult) domain.Hours {
	var h domain.Hours
	for _, m := range metrics {
		total, ok := domain.MetadataInt(m.Metadata, "total")
		if !ok {
			continue
		}
		closed, _ := domain.MetadataInt(m.Metadata, "closed")
		open := max(total-closed, 0)

		switch {
		case strings.HasPrefix(m.ID, "task_completion"):
			h.Execution = closed
			h.Pending = open
		case strings.HasPrefix(m.ID, "issue_resolution"):
			h.Quality = closed
			h.Incidents = open
		}
	}
	return h
}

// IsNewProject is true when no metric saw any data and nobody has a
// per-member entry.
func IsNewProject(metrics []domain.MetricResult, studentEntries int) bool {
	for _, m := range metrics {
		for _, key := range []string{"total", "total_open", "total_stories", "total_members"} {
			if n, ok := domain.MetadataInt(m.Metadata, key); ok && n != 0 {
				return false
			}
		}
	}
	return studentEntries == 0
}
