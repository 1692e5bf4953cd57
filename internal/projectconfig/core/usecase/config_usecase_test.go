package usecase_test

import (
	"context"
	"errors"
	"testing"

	metricsdomain "taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/projectconfig/core/domain"
	"taiga-metrics-service/internal/projectconfig/core/usecase"
)

type fakeProjects struct{}

func (fakeProjects) ProjectBySlug(_ context.Context, slug string) (*metricsdomain.Project, error) {
	if slug == "alpha" {
		return &metricsdomain.Project{ID: 11, Slug: "alpha", Name: "Alpha"}, nil
	}
	return nil, metricsdomain.ErrProjectNotFound
}

// Fake repository implementing ConfigRepositoryPort
type fakeConfigRepo struct {
	UpsertFn func(ctx context.Context, c *domain.MetricsConfig) (bool, error)
	GetFn    func(ctx context.Context, projectID int64) (*domain.MetricsConfig, error)
	saved    *domain.MetricsConfig
}

func (f *fakeConfigRepo) UpsertConfig(ctx context.Context, c *domain.MetricsConfig) (bool, error) {
	f.saved = c
	if f.UpsertFn != nil {
		return f.UpsertFn(ctx, c)
	}
	return true, nil
}

func (f *fakeConfigRepo) GetConfig(ctx context.Context, projectID int64) (*domain.MetricsConfig, error) {
	if f.GetFn != nil {
		return f.GetFn(ctx, projectID)
	}
	return nil, domain.ErrConfigNotFound
}

// ------------------------------------------------------------
// SAVE
// ------------------------------------------------------------
func TestSave_NormalizesInput(t *testing.T) {
	repo := &fakeConfigRepo{}
	uc := usecase.NewConfigUseCase(fakeProjects{}, repo)

	cfg, created, err := uc.Save(context.Background(), usecase.SaveConfigInput{
		ProjectSlug:       " alpha ",
		Provider:          " External ",
		ExternalProjectID: " ext-42 ",
		Classification: map[string]string{
			"Task_Completion": "Team",
			"":                "project",
		},
		ProjectMetricsOrder: []string{"a", " ", "b", "a"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}
	if repo.saved == nil || repo.saved.ProjectID != 11 {
		t.Fatalf("expected config saved for project 11, got %+v", repo.saved)
	}
	if cfg.Provider != "external" {
		t.Errorf("expected provider external, got %q", cfg.Provider)
	}
	if cfg.ExternalProjectID != "ext-42" {
		t.Errorf("expected trimmed external id, got %q", cfg.ExternalProjectID)
	}
	if got := cfg.Classification["taskcompletion"]; got != "team" {
		t.Errorf("expected taskcompletion=team, got %q (%v)", got, cfg.Classification)
	}
	if len(cfg.Classification) != 1 {
		t.Errorf("expected empty keys dropped, got %v", cfg.Classification)
	}
	if len(cfg.ProjectMetricsOrder) != 2 || cfg.ProjectMetricsOrder[0] != "a" || cfg.ProjectMetricsOrder[1] != "b" {
		t.Errorf("unexpected order: %v", cfg.ProjectMetricsOrder)
	}
	if cfg.TeamMetricsOrder == nil {
		t.Errorf("expected non-nil team order")
	}
}

func TestSave_DefaultProvider(t *testing.T) {
	uc := usecase.NewConfigUseCase(fakeProjects{}, &fakeConfigRepo{})

	cfg, _, err := uc.Save(context.Background(), usecase.SaveConfigInput{ProjectSlug: "alpha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "internal" {
		t.Fatalf("expected provider internal, got %q", cfg.Provider)
	}
}

func TestSave_Updated(t *testing.T) {
	repo := &fakeConfigRepo{
		UpsertFn: func(ctx context.Context, c *domain.MetricsConfig) (bool, error) {
			return false, nil
		},
	}
	uc := usecase.NewConfigUseCase(fakeProjects{}, repo)

	_, created, err := uc.Save(context.Background(), usecase.SaveConfigInput{ProjectSlug: "alpha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatalf("expected created=false for an existing config")
	}
}

func TestSave_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		in   usecase.SaveConfigInput
		want error
	}{
		{"missing project", usecase.SaveConfigInput{ProjectSlug: "  "}, usecase.ErrProjectRequired},
		{"unknown project", usecase.SaveConfigInput{ProjectSlug: "nope"}, metricsdomain.ErrProjectNotFound},
		{"bad provider", usecase.SaveConfigInput{ProjectSlug: "alpha", Provider: "jira"}, usecase.ErrInvalidProvider},
		{
			"bad classification",
			usecase.SaveConfigInput{ProjectSlug: "alpha", Classification: map[string]string{"m": "Planning"}},
			usecase.ErrInvalidClassification,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeConfigRepo{}
			uc := usecase.NewConfigUseCase(fakeProjects{}, repo)

			_, _, err := uc.Save(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if repo.saved != nil {
				t.Fatalf("repository must not be called on invalid input")
			}
		})
	}
}

func TestSave_RepositoryError(t *testing.T) {
	dbErr := errors.New("db down")
	repo := &fakeConfigRepo{
		UpsertFn: func(ctx context.Context, c *domain.MetricsConfig) (bool, error) {
			return false, dbErr
		},
	}
	uc := usecase.NewConfigUseCase(fakeProjects{}, repo)

	_, _, err := uc.Save(context.Background(), usecase.SaveConfigInput{ProjectSlug: "alpha"})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected db error, got %v", err)
	}
}

// ------------------------------------------------------------
// GET / PROVIDER SETTINGS
// ------------------------------------------------------------
func TestGet_DefaultsWhenMissing(t *testing.T) {
	uc := usecase.NewConfigUseCase(fakeProjects{}, &fakeConfigRepo{})

	cfg, err := uc.Get(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ProjectID != 11 || cfg.Provider != "internal" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Classification == nil || cfg.ProjectMetricsOrder == nil {
		t.Fatalf("expected empty, non-nil collections")
	}
}

func TestGet_Stored(t *testing.T) {
	stored := &domain.MetricsConfig{ProjectID: 11, Provider: "external", ExternalProjectID: "ext"}
	repo := &fakeConfigRepo{
		GetFn: func(ctx context.Context, projectID int64) (*domain.MetricsConfig, error) {
			return stored, nil
		},
	}
	uc := usecase.NewConfigUseCase(fakeProjects{}, repo)

	cfg, err := uc.Get(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != stored {
		t.Fatalf("expected stored config")
	}

	settings, err := uc.ProviderSettings(context.Background(), 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Provider != "external" || settings.ExternalProjectID != "ext" {
		t.Fatalf("unexpected settings: %+v", settings)
	}
}

func TestProviderSettings_ZeroWhenMissing(t *testing.T) {
	uc := usecase.NewConfigUseCase(fakeProjects{}, &fakeConfigRepo{})

	settings, err := uc.ProviderSettings(context.Background(), 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings != (metricsdomain.ProviderSettings{}) {
		t.Fatalf("expected zero settings, got %+v", settings)
	}
}

func TestProviderSettings_Error(t *testing.T) {
	repo := &fakeConfigRepo{
		GetFn: func(ctx context.Context, projectID int64) (*domain.MetricsConfig, error) {
			return nil, errors.New("boom")
		},
	}
	uc := usecase.NewConfigUseCase(fakeProjects{}, repo)

	if _, err := uc.ProviderSettings(context.Background(), 11); err == nil {
		t.Fatalf("expected error")
	}
}
