package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"

	"github.com/google/uuid"
)

const DefaultSnapshotTTL = 60 * time.Minute

type GetOrBuildOptions struct {
	UseCache bool
	Force    bool
}

// SnapshotService serves internally computed snapshots, rebuilding them
// when the stored one is missing, older than the TTL or explicitly forced.
type SnapshotService struct {
	builder  ports.SnapshotBuilderPort
	store    ports.SnapshotStorePort
	ttl      time.Duration
	recorder ports.RecorderPort
	logger   *slog.Logger
	now      func() time.Time
}

type SnapshotServiceOption func(*SnapshotService)

func WithServiceLogger(l *slog.Logger) SnapshotServiceOption {
	return func(s *SnapshotService) { s.logger = l }
}

func WithServiceRecorder(r ports.RecorderPort) SnapshotServiceOption {
	return func(s *SnapshotService) { s.recorder = r }
}

func WithServiceClock(now func() time.Time) SnapshotServiceOption {
	return func(s *SnapshotService) { s.now = now }
}

// NewSnapshotService takes the TTL in minutes; values below one fall back to
// one minute.
func NewSnapshotService(builder ports.SnapshotBuilderPort, store ports.SnapshotStorePort, ttlMinutes int, opts ...SnapshotServiceOption) *SnapshotService {
	if ttlMinutes < 1 {
		ttlMinutes = 1
	}
	s := &SnapshotService{
		builder:  builder,
		store:    store,
		ttl:      time.Duration(ttlMinutes) * time.Minute,
		recorder: nopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "snapshots")
	return s
}

func (s *SnapshotService) TTL() time.Duration {
	return s.ttl
}

// GetOrBuildSnapshot returns the cached snapshot when UseCache is set, Force
// is not, and the stored copy was computed within the TTL. Anything else
// rebuilds and replaces the stored snapshot.
func (s *SnapshotService) GetOrBuildSnapshot(ctx context.Context, project domain.Project, opts GetOrBuildOptions) (*domain.Snapshot, error) {
	if opts.UseCache && !opts.Force {
		cutoff := s.now().Add(-s.ttl)
		cached, err := s.store.Get(ctx, project.ID, domain.ProviderInternal)
		switch {
		case err == nil && cached.Fresh(cutoff):
			s.recorder.ObserveCache(true)
			return cached, nil
		case err != nil && !errors.Is(err, domain.ErrSnapshotNotFound):
			s.logger.WarnContext(ctx, "snapshot lookup failed, rebuilding",
				"project", project.Slug,
				"error", err,
			)
		}
		s.recorder.ObserveCache(false)
	}

	return s.rebuild(ctx, project)
}

func (s *SnapshotService) rebuild(ctx context.Context, project domain.Project) (*domain.Snapshot, error) {
	start := s.now()
	res, err := s.builder.BuildSnapshot(ctx, project)
	s.recorder.ObserveBuild(s.now().Sub(start), err)
	if err != nil {
		return nil, fmt.Errorf("build snapshot for %s: %w", project.Slug, err)
	}

	now := s.now().UTC()
	snap := &domain.Snapshot{
		ProjectID:  project.ID,
		Provider:   domain.ProviderInternal,
		Version:    uuid.NewString(),
		CreatedAt:  now,
		ComputedAt: now,
		Payload:    res.Payload,
		Historical: res.Historical,

		HistoricalErrors: res.HistoricalErrors,
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot for %s: %w", project.Slug, err)
	}

	s.logger.InfoContext(ctx, "snapshot rebuilt",
		"project", project.Slug,
		"version", snap.Version,
		"failures", len(res.Failures),
		"duration", s.now().Sub(start),
	)
	return snap, nil
}

// Status reports the stored snapshot for project without rebuilding it.
func (s *SnapshotService) Status(ctx context.Context, project domain.Project) (*domain.Snapshot, bool, error) {
	snap, err := s.store.Get(ctx, project.ID, domain.ProviderInternal)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return snap, snap.Fresh(s.now().Add(-s.ttl)), nil
}

// Invalidate drops the stored snapshot so the next request rebuilds it.
func (s *SnapshotService) Invalidate(ctx context.Context, project domain.Project) (bool, error) {
	return s.store.Delete(ctx, project.ID, domain.ProviderInternal)
}

func (s *SnapshotService) List(ctx context.Context) ([]domain.SnapshotInfo, error) {
	return s.store.List(ctx)
}
