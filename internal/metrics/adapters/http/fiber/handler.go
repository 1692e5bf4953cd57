package fiber

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/usecase"
)

type GetMetricsUseCase interface {
	Execute(ctx context.Context, in usecase.GetMetricsInput) (*usecase.GetMetricsOutput, error)
	Status(ctx context.Context, slug string) (*domain.Project, *domain.Snapshot, bool, error)
	Invalidate(ctx context.Context, slug string) (bool, error)
	RefreshAll(ctx context.Context, slugs []string) (*usecase.RefreshOutput, error)
}

type MetricsHandler struct {
	uc         GetMetricsUseCase
	ttlMinutes int
}

func NewMetricsHandler(uc GetMetricsUseCase, ttlMinutes int) *MetricsHandler {
	return &MetricsHandler{uc: uc, ttlMinutes: ttlMinutes}
}

func (h *MetricsHandler) Register(r fiber.Router) {
	r.Get("/metrics", h.GetMetrics)
	r.Get("/metrics/historical", h.GetHistorical)
	r.Get("/metrics/status", h.GetStatus)
	r.Post("/metrics/refresh", h.Refresh)
	r.Delete("/metrics/snapshots", h.DeleteSnapshot)
}

func refreshRequested(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func (h *MetricsHandler) input(c *fiber.Ctx) usecase.GetMetricsInput {
	return usecase.GetMetricsInput{
		ProjectSlug: c.Query("project"),
		Source:      c.Query("source"),
		Refresh:     refreshRequested(c.Query("refresh")),
	}
}

// GetMetrics godoc
// @Summary Project metrics
// @Description Returns the real-time metrics payload of a project, served from the snapshot cache when fresh
// @Tags Metrics
// @Produce json
// @Param project query string true "Project slug"
// @Param source query string false "Provider: internal | external"
// @Param refresh query string false "Force a rebuild: 1 | true | yes"
// @Success 200 {object} MetricsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 501 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /metrics [get]
func (h *MetricsHandler) GetMetrics(c *fiber.Ctx) error {
	out, err := h.uc.Execute(c.UserContext(), h.input(c))
	if err != nil {
		return writeError(c, err)
	}

	payload := out.Snapshot.Payload
	payload.ExternalProjectID = out.ExternalProjectID
	return c.Status(http.StatusOK).JSON(MetricsResponse{
		Payload:  payload,
		Provider: out.Provider,
	})
}

// GetHistorical godoc
// @Summary Historical project metrics
// @Description Returns the time series of a project grouped by category
// @Tags Metrics
// @Produce json
// @Param project query string true "Project slug"
// @Param source query string false "Provider: internal | external"
// @Param refresh query string false "Force a rebuild: 1 | true | yes"
// @Success 200 {object} HistoricalResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 501 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /metrics/historical [get]
func (h *MetricsHandler) GetHistorical(c *fiber.Ctx) error {
	out, err := h.uc.Execute(c.UserContext(), h.input(c))
	if err != nil {
		return writeError(c, err)
	}

	errs := out.Snapshot.HistoricalErrors
	if errs == nil {
		errs = map[string]string{}
	}

	return c.Status(http.StatusOK).JSON(HistoricalResponse{
		ProjectSlug:       out.Project.Slug,
		ProjectName:       out.Project.Name,
		ExternalProjectID: out.ExternalProjectID,
		HistoricalData:    out.Snapshot.Historical,
		Errors:            errs,
		Provider:          out.Provider,
	})
}

// GetStatus godoc
// @Summary Snapshot status
// @Description Reports whether a fresh snapshot is cached for the project
// @Tags Metrics
// @Produce json
// @Param project query string true "Project slug"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /metrics/status [get]
func (h *MetricsHandler) GetStatus(c *fiber.Ctx) error {
	_, snap, fresh, err := h.uc.Status(c.UserContext(), c.Query("project"))
	if err != nil {
		return writeError(c, err)
	}

	resp := StatusResponse{
		Provider:   domain.ProviderInternal,
		TTLMinutes: h.ttlMinutes,
	}
	if snap != nil {
		computed := snap.ComputedAt.UTC()
		expires := computed.Add(time.Duration(h.ttlMinutes) * time.Minute)
		resp.Provider = snap.Provider
		resp.Cached = fresh
		resp.Version = snap.Version
		resp.ComputedAt = &computed
		resp.ExpiresAt = &expires
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// Refresh godoc
// @Summary Rebuild snapshots
// @Description Validates every project slug, then force-rebuilds each snapshot
// @Tags Metrics
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Projects to refresh"
// @Success 200 {object} RefreshResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /metrics/refresh [post]
func (h *MetricsHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error: "METRICS.ERROR_INVALID_JSON",
		})
	}

	out, err := h.uc.RefreshAll(c.UserContext(), req.Projects)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(RefreshResponse{
		Refreshed: out.Refreshed,
		Failed:    out.Failed,
	})
}

// DeleteSnapshot godoc
// @Summary Drop a snapshot
// @Description Removes the stored snapshot so the next request rebuilds it
// @Tags Metrics
// @Produce json
// @Param project query string true "Project slug"
// @Success 200 {object} DeleteSnapshotResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /metrics/snapshots [delete]
func (h *MetricsHandler) DeleteSnapshot(c *fiber.Ctx) error {
	deleted, err := h.uc.Invalidate(c.UserContext(), c.Query("project"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(DeleteSnapshotResponse{Deleted: deleted})
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usecase.ErrProjectRequired):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "METRICS.ERROR_PROJECT_REQUIRED",
			Message: err.Error(),
		})
	case errors.Is(err, usecase.ErrEmptyRefreshList):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "METRICS.ERROR_PROJECTS_REQUIRED",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrProjectNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Error:   "METRICS.ERROR_PROJECT_NOT_FOUND",
			Message: err.Error(),
		})
	case errors.Is(err, usecase.ErrProviderUnavailable):
		return c.Status(http.StatusNotImplemented).JSON(ErrorResponse{
			Error:   "METRICS.ERROR_PROVIDER_UNAVAILABLE",
			Message: err.Error(),
		})
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}
}
