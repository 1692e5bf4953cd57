package fiber

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	metricsdomain "taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/projectconfig/core/domain"
	"taiga-metrics-service/internal/projectconfig/core/usecase"
)

type ConfigUseCase interface {
	Save(ctx context.Context, in usecase.SaveConfigInput) (*domain.MetricsConfig, bool, error)
	Get(ctx context.Context, slug string) (*domain.MetricsConfig, error)
}

type ConfigHandler struct {
	uc ConfigUseCase
}

func NewConfigHandler(uc ConfigUseCase) *ConfigHandler {
	return &ConfigHandler{uc: uc}
}

func (h *ConfigHandler) Register(r fiber.Router) {
	r.Put("/metrics/config", h.SaveConfig)
	r.Get("/metrics/config", h.GetConfig)
}

// SaveConfig godoc
// @Summary Save project metrics config
// @Description Creates or replaces the provider and layout settings of a project
// @Tags Config
// @Accept json
// @Produce json
// @Param request body SaveConfigRequest true "Config payload"
// @Success 201 {object} ConfigResponse
// @Success 200 {object} ConfigResponse "Existing config replaced"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /metrics/config [put]
func (h *ConfigHandler) SaveConfig(c *fiber.Ctx) error {
	var req SaveConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error: "METRICS.ERROR_INVALID_JSON",
		})
	}

	cfg, created, err := h.uc.Save(c.UserContext(), usecase.SaveConfigInput{
		ProjectSlug:         req.Project,
		Provider:            req.Provider,
		ExternalProjectID:   req.ExternalProjectID,
		Classification:      req.Classification,
		ProjectMetricsOrder: req.ProjectMetricsOrder,
		TeamMetricsOrder:    req.TeamMetricsOrder,
	})
	if err != nil {
		return writeError(c, err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(toConfigResponse(cfg))
}

// GetConfig godoc
// @Summary Get project metrics config
// @Description Returns the stored config, or defaults when none was saved
// @Tags Config
// @Produce json
// @Param project query string true "Project slug"
// @Success 200 {object} ConfigResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /metrics/config [get]
func (h *ConfigHandler) GetConfig(c *fiber.Ctx) error {
	cfg, err := h.uc.Get(c.UserContext(), c.Query("project"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toConfigResponse(cfg))
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usecase.ErrProjectRequired):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "METRICS.ERROR_PROJECT_REQUIRED",
			Message: err.Error(),
		})
	case errors.Is(err, usecase.ErrInvalidProvider),
		errors.Is(err, usecase.ErrInvalidClassification):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "METRICS.ERROR_INVALID_CONFIG",
			Message: err.Error(),
		})
	case errors.Is(err, metricsdomain.ErrProjectNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Error:   "METRICS.ERROR_PROJECT_NOT_FOUND",
			Message: err.Error(),
		})
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}
}
