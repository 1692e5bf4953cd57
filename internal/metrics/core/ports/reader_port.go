package ports

import (
	"context"

	"taiga-metrics-service/internal/metrics/core/domain"
)

type SprintResolverPort interface {
	// ActiveSprint returns nil when the project has no open milestone.
	ActiveSprint(ctx context.Context, projectID int64) (*domain.Sprint, error)
}

type TeamReaderPort interface {
	TeamRows(ctx context.Context, scope domain.Scope) ([]domain.MemberRow, error)
}

type ProjectReaderPort interface {
	// ProjectBySlug returns domain.ErrProjectNotFound for unknown slugs.
	ProjectBySlug(ctx context.Context, slug string) (*domain.Project, error)
}

type ProviderSettingsPort interface {
	// ProviderSettings returns the zero value when the project has no
	// stored configuration.
	ProviderSettings(ctx context.Context, projectID int64) (domain.ProviderSettings, error)
}
