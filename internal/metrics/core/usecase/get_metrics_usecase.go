package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"
)

var (
	ErrProjectRequired     = errors.New("project is required")
	ErrProviderUnavailable = errors.New("metrics provider unavailable")
	ErrEmptyRefreshList    = errors.New("no projects to refresh")
)

type GetMetricsInput struct {
	ProjectSlug string
	Source      string // "", "internal", "external"
	Refresh     bool
}

type GetMetricsOutput struct {
	Project           domain.Project
	Provider          string
	ExternalProjectID string
	Snapshot          *domain.Snapshot
}

type RefreshOutput struct {
	Refreshed []string
	Failed    map[string]string
}

// SnapshotProvider is the part of SnapshotService the request flow needs.
type SnapshotProvider interface {
	GetOrBuildSnapshot(ctx context.Context, project domain.Project, opts GetOrBuildOptions) (*domain.Snapshot, error)
	Status(ctx context.Context, project domain.Project) (*domain.Snapshot, bool, error)
	Invalidate(ctx context.Context, project domain.Project) (bool, error)
}

type GetMetricsUseCase struct {
	projects        ports.ProjectReaderPort
	settings        ports.ProviderSettingsPort
	snapshots       SnapshotProvider
	defaultProvider string
}

// NewGetMetricsUseCase wires the request flow. settings may be nil, in which
// case every project uses defaultProvider.
func NewGetMetricsUseCase(projects ports.ProjectReaderPort, settings ports.ProviderSettingsPort, snapshots SnapshotProvider, defaultProvider string) *GetMetricsUseCase {
	if p := domain.NormalizeProvider(defaultProvider); p != "" {
		defaultProvider = p
	} else {
		defaultProvider = domain.ProviderInternal
	}
	return &GetMetricsUseCase{
		projects:        projects,
		settings:        settings,
		snapshots:       snapshots,
		defaultProvider: defaultProvider,
	}
}

// Execute resolves the project and its provider, then serves the snapshot.
// Only the internal provider is computed here.
func (uc *GetMetricsUseCase) Execute(ctx context.Context, in GetMetricsInput) (*GetMetricsOutput, error) {
	project, settings, err := uc.resolve(ctx, in.ProjectSlug)
	if err != nil {
		return nil, err
	}

	provider := domain.NormalizeProvider(in.Source)
	if provider == "" {
		provider = domain.NormalizeProvider(settings.Provider)
	}
	if provider == "" {
		provider = uc.defaultProvider
	}
	if provider != domain.ProviderInternal {
		return nil, ErrProviderUnavailable
	}

	snap, err := uc.snapshots.GetOrBuildSnapshot(ctx, *project, GetOrBuildOptions{
		UseCache: !in.Refresh,
		Force:    in.Refresh,
	})
	if err != nil {
		return nil, err
	}

	external := settings.ExternalProjectID
	if external == "" {
		external = project.Slug
	}
	return &GetMetricsOutput{
		Project:           *project,
		Provider:          provider,
		ExternalProjectID: external,
		Snapshot:          snap,
	}, nil
}

// Status looks at the stored snapshot without computing anything.
func (uc *GetMetricsUseCase) Status(ctx context.Context, slug string) (*domain.Project, *domain.Snapshot, bool, error) {
	project, _, err := uc.resolve(ctx, slug)
	if err != nil {
		return nil, nil, false, err
	}
	snap, fresh, err := uc.snapshots.Status(ctx, *project)
	if err != nil {
		return nil, nil, false, err
	}
	return project, snap, fresh, nil
}

func (uc *GetMetricsUseCase) Invalidate(ctx context.Context, slug string) (bool, error) {
	project, _, err := uc.resolve(ctx, slug)
	if err != nil {
		return false, err
	}
	return uc.snapshots.Invalidate(ctx, *project)
}

// RefreshAll force-rebuilds every listed project. All slugs are resolved
// before anything is rebuilt; build failures are reported per slug.
func (uc *GetMetricsUseCase) RefreshAll(ctx context.Context, slugs []string) (*RefreshOutput, error) {
	if len(slugs) == 0 {
		return nil, ErrEmptyRefreshList
	}

	projects := make([]domain.Project, 0, len(slugs))
	seen := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		slug = strings.TrimSpace(slug)
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}

		p, _, err := uc.resolve(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", slug, err)
		}
		projects = append(projects, *p)
	}

	out := &RefreshOutput{Refreshed: []string{}, Failed: map[string]string{}}
	for _, p := range projects {
		if _, err := uc.snapshots.GetOrBuildSnapshot(ctx, p, GetOrBuildOptions{Force: true}); err != nil {
			out.Failed[p.Slug] = err.Error()
			continue
		}
		out.Refreshed = append(out.Refreshed, p.Slug)
	}
	return out, nil
}

func (uc *GetMetricsUseCase) resolve(ctx context.Context, slug string) (*domain.Project, domain.ProviderSettings, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.ProviderSettings{}, ErrProjectRequired
	}

	project, err := uc.projects.ProjectBySlug(ctx, slug)
	if err != nil {
		return nil, domain.ProviderSettings{}, err
	}

	var settings domain.ProviderSettings
	if uc.settings != nil {
		settings, err = uc.settings.ProviderSettings(ctx, project.ID)
		if err != nil {
			return nil, domain.ProviderSettings{}, fmt.Errorf("provider settings: %w", err)
		}
	}
	return project, settings, nil
}
