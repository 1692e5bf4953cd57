// Package registry holds the explicit table of metrics a calculation runs.
package registry

import (
	"errors"
	"fmt"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"
)

var (
	ErrEmptyRegistry   = errors.New("metric registry is empty")
	ErrDuplicateMetric = errors.New("duplicate metric")
	ErrInvalidCategory = errors.New("invalid series category")
)

// HistoricalEntry tags a historical metric with the payload bucket its
// series belong to.
type HistoricalEntry struct {
	Category domain.SeriesCategory
	Metric   ports.HistoricalMetric
}

// Registry is built once at startup and shared read-only afterwards.
type Registry struct {
	Project    []ports.ProjectMetric
	Student    []ports.StudentMetric
	Historical []HistoricalEntry
}

func New() *Registry {
	return &Registry{}
}

func (r *Registry) RegisterProject(metrics ...ports.ProjectMetric) *Registry {
	r.Project = append(r.Project, metrics...)
	return r
}

func (r *Registry) RegisterStudent(metrics ...ports.StudentMetric) *Registry {
	r.Student = append(r.Student, metrics...)
	return r
}

func (r *Registry) RegisterHistorical(category domain.SeriesCategory, metrics ...ports.HistoricalMetric) *Registry {
	for _, m := range metrics {
		r.Historical = append(r.Historical, HistoricalEntry{Category: category, Metric: m})
	}
	return r
}

func (r *Registry) Len() int {
	return len(r.Project) + len(r.Student) + len(r.Historical)
}

// Validate rejects an empty table, duplicate ids within a kind and unknown
// series categories.
func (r *Registry) Validate() error {
	if r.Len() == 0 {
		return ErrEmptyRegistry
	}

	seen := map[string]bool{}
	for _, m := range r.Project {
		if err := mark(seen, "project", m.ID()); err != nil {
			return err
		}
	}
	for _, m := range r.Student {
		if err := mark(seen, "student", m.Key()); err != nil {
			return err
		}
	}
	for _, e := range r.Historical {
		if !e.Category.Valid() {
			return fmt.Errorf("%w: %q for %s", ErrInvalidCategory, e.Category, e.Metric.ID())
		}
		if err := mark(seen, "historical", e.Metric.ID()); err != nil {
			return err
		}
	}
	return nil
}

func mark(seen map[string]bool, kind, id string) error {
	key := kind + ":" + id
	if seen[key] {
		return fmt.Errorf("%w: %s %s", ErrDuplicateMetric, kind, id)
	}
	seen[key] = true
	return nil
}
