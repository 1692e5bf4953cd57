package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"taiga-metrics-service/internal/projectconfig/core/domain"
	"taiga-metrics-service/internal/projectconfig/core/ports"
)

type ConfigRepository struct {
	db DB
}

func NewConfigRepository(db DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

var _ ports.ConfigRepositoryPort = (*ConfigRepository)(nil)

// xmax is 0 only for a freshly inserted row.
const upsertConfigSQL = `
INSERT INTO projects_metrics_config (
    project_id,
    provider,
    external_project_id,
    classification,
    project_metrics_order,
    team_metrics_order,
    created_at,
    updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, NOW(), NOW()
)
ON CONFLICT (project_id) DO UPDATE SET
    provider              = EXCLUDED.provider,
    external_project_id   = EXCLUDED.external_project_id,
    classification        = EXCLUDED.classification,
    project_metrics_order = EXCLUDED.project_metrics_order,
    team_metrics_order    = EXCLUDED.team_metrics_order,
    updated_at            = NOW()
RETURNING (xmax = 0) AS created, updated_at;
`

// A taiga database nobody has migrated yet has no config table; reads treat
// that as "no config stored".
const undefinedTable pq.ErrorCode = "42P01"

const getConfigSQL = `
SELECT provider, external_project_id, classification, project_metrics_order, team_metrics_order, updated_at
FROM projects_metrics_config
WHERE project_id = $1;
`

func (r *ConfigRepository) UpsertConfig(ctx context.Context, c *domain.MetricsConfig) (bool, error) {
	classification, err := json.Marshal(c.Classification)
	if err != nil {
		return false, err
	}

	var created bool
	err = r.db.QueryRowContext(ctx, upsertConfigSQL,
		c.ProjectID,
		c.Provider,
		c.ExternalProjectID,
		classification,
		pq.Array(c.ProjectMetricsOrder),
		pq.Array(c.TeamMetricsOrder),
	).Scan(&created, &c.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("upsert metrics config: %w", err)
	}
	return created, nil
}

func (r *ConfigRepository) GetConfig(ctx context.Context, projectID int64) (*domain.MetricsConfig, error) {
	c := &domain.MetricsConfig{ProjectID: projectID}
	var classification []byte

	err := r.db.QueryRowContext(ctx, getConfigSQL, projectID).Scan(
		&c.Provider,
		&c.ExternalProjectID,
		&classification,
		pq.Array(&c.ProjectMetricsOrder),
		pq.Array(&c.TeamMetricsOrder),
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConfigNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return nil, domain.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get metrics config: %w", err)
	}

	c.Classification = map[string]string{}
	if len(classification) > 0 {
		if err := json.Unmarshal(classification, &c.Classification); err != nil {
			return nil, fmt.Errorf("decode classification: %w", err)
		}
	}
	if c.ProjectMetricsOrder == nil {
		c.ProjectMetricsOrder = []string{}
	}
	if c.TeamMetricsOrder == nil {
		c.TeamMetricsOrder = []string{}
	}
	return c, nil
}
