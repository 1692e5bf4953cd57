package fiber

import (
	"time"

	"taiga-metrics-service/internal/metrics/core/domain"
)

// MetricsResponse is the snapshot payload plus the provider that served it.
type MetricsResponse struct {
	domain.Payload
	Provider string `json:"provider" example:"internal"`
}

type HistoricalResponse struct {
	ProjectSlug       string                   `json:"project_slug"`
	ProjectName       string                   `json:"project_name"`
	ExternalProjectID string                   `json:"external_project_id"`
	HistoricalData    domain.HistoricalPayload `json:"historical_data"`
	Errors            map[string]string        `json:"errors"`
	Provider          string                   `json:"provider"`
}

type StatusResponse struct {
	Provider   string     `json:"provider" example:"internal"`
	Cached     bool       `json:"cached"`
	ComputedAt *time.Time `json:"computed_at"`
	Version    string     `json:"version,omitempty"`
	TTLMinutes int        `json:"ttl_minutes" example:"60"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

type RefreshRequest struct {
	Projects []string `json:"projects" example:"alpha,beta"`
}

type RefreshResponse struct {
	Refreshed []string          `json:"refreshed"`
	Failed    map[string]string `json:"failed"`
}

type DeleteSnapshotResponse struct {
	Deleted bool `json:"deleted"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"METRICS.ERROR_PROJECT_REQUIRED"`
	Message string `json:"message" example:"project is required"`
}
