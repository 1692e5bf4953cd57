package ports

import (
	"context"

	"taiga-metrics-service/internal/projectconfig/core/domain"
)

type ConfigRepositoryPort interface {
	// UpsertConfig:
	//   created = true,  err = nil  -> new row
	//   created = false, err = nil  -> existing row replaced
	//   created = false, err != nil -> DB error
	UpsertConfig(ctx context.Context, c *domain.MetricsConfig) (created bool, err error)
	// GetConfig returns domain.ErrConfigNotFound when the project has none.
	GetConfig(ctx context.Context, projectID int64) (*domain.MetricsConfig, error)
}
