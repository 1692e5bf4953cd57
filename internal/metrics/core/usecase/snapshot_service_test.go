package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	rows   map[int64]*domain.Snapshot
	GetErr error
	saves  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[int64]*domain.Snapshot{}}
}

func (m *memoryStore) Get(_ context.Context, projectID int64, provider string) (*domain.Snapshot, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	s, ok := m.rows[projectID]
	if !ok || s.Provider != provider {
		return nil, domain.ErrSnapshotNotFound
	}
	return s, nil
}

func (m *memoryStore) Save(_ context.Context, s *domain.Snapshot) error {
	m.saves++
	m.rows[s.ProjectID] = s
	return nil
}

func (m *memoryStore) Delete(_ context.Context, projectID int64, _ string) (bool, error) {
	_, ok := m.rows[projectID]
	delete(m.rows, projectID)
	return ok, nil
}

func (m *memoryStore) List(context.Context) ([]domain.SnapshotInfo, error) {
	out := []domain.SnapshotInfo{}
	for _, s := range m.rows {
		out = append(out, domain.SnapshotInfo{ProjectID: s.ProjectID, Provider: s.Provider, Version: s.Version, ComputedAt: s.ComputedAt})
	}
	return out, nil
}

type fakeBuilder struct {
	calls   int
	BuildFn func(ctx context.Context, p domain.Project) (*domain.BuildResult, error)
}

func (f *fakeBuilder) BuildSnapshot(ctx context.Context, p domain.Project) (*domain.BuildResult, error) {
	f.calls++
	if f.BuildFn != nil {
		return f.BuildFn(ctx, p)
	}
	return &domain.BuildResult{
		Payload:    domain.Payload{ProjectSlug: p.Slug},
		Historical: domain.NewHistoricalPayload(),
	}, nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

// ------------------------------------------------------------

func TestGetOrBuild_CachedWithinTTL(t *testing.T) {
	store := newMemoryStore()
	builder := &fakeBuilder{}
	clk := &clock{t: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	rec := &countingRecorder{}

	svc := usecase.NewSnapshotService(builder, store, 60,
		usecase.WithServiceClock(clk.Now),
		usecase.WithServiceRecorder(rec),
	)
	opts := usecase.GetOrBuildOptions{UseCache: true}

	first, err := svc.GetOrBuildSnapshot(context.Background(), testProject, opts)
	require.NoError(t, err)

	clk.t = clk.t.Add(59 * time.Minute)
	second, err := svc.GetOrBuildSnapshot(context.Background(), testProject, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, builder.calls)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, 1, rec.builds)
}

func TestGetOrBuild_StaleSnapshotIsRebuilt(t *testing.T) {
	store := newMemoryStore()
	builder := &fakeBuilder{}
	clk := &clock{t: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}

	svc := usecase.NewSnapshotService(builder, store, 30, usecase.WithServiceClock(clk.Now))
	opts := usecase.GetOrBuildOptions{UseCache: true}

	first, err := svc.GetOrBuildSnapshot(context.Background(), testProject, opts)
	require.NoError(t, err)

	clk.t = clk.t.Add(31 * time.Minute)
	second, err := svc.GetOrBuildSnapshot(context.Background(), testProject, opts)
	require.NoError(t, err)

	assert.Equal(t, 2, builder.calls)
	assert.NotEqual(t, first.Version, second.Version)
}

func TestGetOrBuild_ForceAlwaysRebuilds(t *testing.T) {
	store := newMemoryStore()
	builder := &fakeBuilder{}
	svc := usecase.NewSnapshotService(builder, store, 60)

	var versions []string
	for range 3 {
		snap, err := svc.GetOrBuildSnapshot(context.Background(), testProject, usecase.GetOrBuildOptions{UseCache: true, Force: true})
		require.NoError(t, err)
		versions = append(versions, snap.Version)
	}

	assert.Equal(t, 3, builder.calls)
	assert.Len(t, store.rows, 1)
	assert.Equal(t, versions[2], store.rows[testProject.ID].Version)
	assert.NotEqual(t, versions[0], versions[1])
}

func TestGetOrBuild_NoCacheSkipsLookup(t *testing.T) {
	store := newMemoryStore()
	store.GetErr = errors.New("must not be called")
	builder := &fakeBuilder{}

	svc := usecase.NewSnapshotService(builder, store, 60)
	snap, err := svc.GetOrBuildSnapshot(context.Background(), testProject, usecase.GetOrBuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderInternal, snap.Provider)
	assert.Equal(t, 1, builder.calls)
}

func TestGetOrBuild_StoreReadErrorFallsBackToBuild(t *testing.T) {
	store := newMemoryStore()
	store.GetErr = errors.New("no such table")
	builder := &fakeBuilder{}

	svc := usecase.NewSnapshotService(builder, store, 60)
	snap, err := svc.GetOrBuildSnapshot(context.Background(), testProject, usecase.GetOrBuildOptions{UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, "demo", snap.Payload.ProjectSlug)
}

func TestGetOrBuild_BuildErrorIsReturned(t *testing.T) {
	boom := errors.New("db down")
	builder := &fakeBuilder{
		BuildFn: func(context.Context, domain.Project) (*domain.BuildResult, error) { return nil, boom },
	}
	store := newMemoryStore()

	svc := usecase.NewSnapshotService(builder, store, 60)
	_, err := svc.GetOrBuildSnapshot(context.Background(), testProject, usecase.GetOrBuildOptions{UseCache: true})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, store.saves)
}

func TestSnapshotService_TTLFloor(t *testing.T) {
	svc := usecase.NewSnapshotService(&fakeBuilder{}, newMemoryStore(), 0)
	assert.Equal(t, time.Minute, svc.TTL())
}

func TestSnapshotService_StatusAndInvalidate(t *testing.T) {
	store := newMemoryStore()
	clk := &clock{t: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := usecase.NewSnapshotService(&fakeBuilder{}, store, 10, usecase.WithServiceClock(clk.Now))
	ctx := context.Background()

	snap, fresh, err := svc.Status(ctx, testProject)
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.False(t, fresh)

	_, err = svc.GetOrBuildSnapshot(ctx, testProject, usecase.GetOrBuildOptions{})
	require.NoError(t, err)

	snap, fresh, err = svc.Status(ctx, testProject)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, fresh)

	clk.t = clk.t.Add(11 * time.Minute)
	_, fresh, err = svc.Status(ctx, testProject)
	require.NoError(t, err)
	assert.False(t, fresh)

	deleted, err := svc.Invalidate(ctx, testProject)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Invalidate(ctx, testProject)
	require.NoError(t, err)
	assert.False(t, deleted)
}
