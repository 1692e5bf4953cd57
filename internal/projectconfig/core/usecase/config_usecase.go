package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	metricsdomain "taiga-metrics-service/internal/metrics/core/domain"
	metricsports "taiga-metrics-service/internal/metrics/core/ports"
	"taiga-metrics-service/internal/projectconfig/core/domain"
	"taiga-metrics-service/internal/projectconfig/core/ports"
)

var (
	ErrProjectRequired       = errors.New("project is required")
	ErrInvalidProvider       = errors.New("provider must be internal or external")
	ErrInvalidClassification = errors.New("classification values must be project, team or hidden")
)

type ConfigUseCase struct {
	projects metricsports.ProjectReaderPort
	repo     ports.ConfigRepositoryPort
}

func NewConfigUseCase(projects metricsports.ProjectReaderPort, repo ports.ConfigRepositoryPort) *ConfigUseCase {
	return &ConfigUseCase{projects: projects, repo: repo}
}

var _ metricsports.ProviderSettingsPort = (*ConfigUseCase)(nil)

type SaveConfigInput struct {
	ProjectSlug         string
	Provider            string
	ExternalProjectID   string
	Classification      map[string]string
	ProjectMetricsOrder []string
	TeamMetricsOrder    []string
}

// Save validates and stores the config. created is false when an existing
// config was replaced.
func (uc *ConfigUseCase) Save(ctx context.Context, in SaveConfigInput) (*domain.MetricsConfig, bool, error) {
	project, err := uc.project(ctx, in.ProjectSlug)
	if err != nil {
		return nil, false, err
	}

	provider := metricsdomain.ProviderInternal
	if strings.TrimSpace(in.Provider) != "" {
		provider = metricsdomain.NormalizeProvider(in.Provider)
		if provider == "" {
			return nil, false, fmt.Errorf("%w: %q", ErrInvalidProvider, in.Provider)
		}
	}

	classification, err := normalizeClassification(in.Classification)
	if err != nil {
		return nil, false, err
	}

	cfg := &domain.MetricsConfig{
		ProjectID:           project.ID,
		Provider:            provider,
		ExternalProjectID:   strings.TrimSpace(in.ExternalProjectID),
		Classification:      classification,
		ProjectMetricsOrder: cleanOrder(in.ProjectMetricsOrder),
		TeamMetricsOrder:    cleanOrder(in.TeamMetricsOrder),
	}

	created, err := uc.repo.UpsertConfig(ctx, cfg)
	if err != nil {
		return nil, false, err
	}
	return cfg, created, nil
}

// Get returns the stored config, or the defaults when none was saved.
func (uc *ConfigUseCase) Get(ctx context.Context, slug string) (*domain.MetricsConfig, error) {
	project, err := uc.project(ctx, slug)
	if err != nil {
		return nil, err
	}
	cfg, err := uc.repo.GetConfig(ctx, project.ID)
	if errors.Is(err, domain.ErrConfigNotFound) {
		return defaults(project.ID), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProviderSettings feeds the metrics request flow.
func (uc *ConfigUseCase) ProviderSettings(ctx context.Context, projectID int64) (metricsdomain.ProviderSettings, error) {
	cfg, err := uc.repo.GetConfig(ctx, projectID)
	if errors.Is(err, domain.ErrConfigNotFound) {
		return metricsdomain.ProviderSettings{}, nil
	}
	if err != nil {
		return metricsdomain.ProviderSettings{}, err
	}
	return metricsdomain.ProviderSettings{
		Provider:          cfg.Provider,
		ExternalProjectID: cfg.ExternalProjectID,
	}, nil
}

func (uc *ConfigUseCase) project(ctx context.Context, slug string) (*metricsdomain.Project, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrProjectRequired
	}
	return uc.projects.ProjectBySlug(ctx, slug)
}

func defaults(projectID int64) *domain.MetricsConfig {
	return &domain.MetricsConfig{
		ProjectID:           projectID,
		Provider:            metricsdomain.ProviderInternal,
		Classification:      map[string]string{},
		ProjectMetricsOrder: []string{},
		TeamMetricsOrder:    []string{},
	}
}

// Keys are normalized so "Task Completion" and "task_completion" collide.
func normalizeClassification(in map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := metricsdomain.NormalizeIdentifier(k)
		if key == "" {
			continue
		}
		place := strings.ToLower(strings.TrimSpace(v))
		if !domain.ValidPlacement(place) {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidClassification, k, v)
		}
		out[key] = place
	}
	return out, nil
}

func cleanOrder(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
