package fiber

import (
	"time"

	"taiga-metrics-service/internal/projectconfig/core/domain"
)

// SaveConfigRequest represents the metrics config payload
// @Description Per-project metrics configuration
type SaveConfigRequest struct {
	Project             string            `json:"project" example:"alpha"`
	Provider            string            `json:"provider" example:"internal"`
	ExternalProjectID   string            `json:"external_project_id"`
	Classification      map[string]string `json:"classification"`
	ProjectMetricsOrder []string          `json:"project_metrics_order"`
	TeamMetricsOrder    []string          `json:"team_metrics_order"`
}

type ConfigResponse struct {
	ProjectID           int64             `json:"project_id"`
	Provider            string            `json:"provider"`
	ExternalProjectID   string            `json:"external_project_id"`
	Classification      map[string]string `json:"classification"`
	ProjectMetricsOrder []string          `json:"project_metrics_order"`
	TeamMetricsOrder    []string          `json:"team_metrics_order"`
	UpdatedAt           *time.Time        `json:"updated_at,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"METRICS.ERROR_INVALID_CONFIG"`
	Message string `json:"message" example:"provider must be internal or external"`
}

func toConfigResponse(c *domain.MetricsConfig) ConfigResponse {
	resp := ConfigResponse{
		ProjectID:           c.ProjectID,
		Provider:            c.Provider,
		ExternalProjectID:   c.ExternalProjectID,
		Classification:      c.Classification,
		ProjectMetricsOrder: c.ProjectMetricsOrder,
		TeamMetricsOrder:    c.TeamMetricsOrder,
	}
	if !c.UpdatedAt.IsZero() {
		at := c.UpdatedAt.UTC()
		resp.UpdatedAt = &at
	}
	return resp
}
