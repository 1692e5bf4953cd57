package postgres

import (
	"context"
	"errors"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"
)

const projectBySlugSQL = `
SELECT p.id, p.slug, p.name
FROM projects_project p
WHERE p.slug = $1`

type ProjectRepository struct {
	db DB
}

func NewProjectRepository(db DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

var _ ports.ProjectReaderPort = (*ProjectRepository)(nil)

func (r *ProjectRepository) ProjectBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	var p domain.Project
	err := queryOne(ctx, r.db, projectBySlugSQL, []any{slug}, &p.ID, &p.Slug, &p.Name)
	if errors.Is(err, errNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
