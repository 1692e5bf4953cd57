package ports

import (
	"context"
	"time"

	"taiga-metrics-service/internal/metrics/core/domain"
)

type SnapshotStorePort interface {
	// Get returns domain.ErrSnapshotNotFound when nothing is stored.
	Get(ctx context.Context, projectID int64, provider string) (*domain.Snapshot, error)
	// Save replaces whatever is stored for (project, provider).
	Save(ctx context.Context, s *domain.Snapshot) error
	Delete(ctx context.Context, projectID int64, provider string) (bool, error)
	List(ctx context.Context) ([]domain.SnapshotInfo, error)
}

type SnapshotBuilderPort interface {
	BuildSnapshot(ctx context.Context, project domain.Project) (*domain.BuildResult, error)
}

// RecorderPort receives build and cache observations.
type RecorderPort interface {
	ObserveBuild(d time.Duration, err error)
	ObserveCache(hit bool)
	ObserveMetricFailure(kind domain.FailureKind, metricID string)
}
