package snapshotstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/platform/database"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), database.SQLite, ":memory:", database.DefaultPool())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func snapshot(projectID int64, version string, at time.Time) *domain.Snapshot {
	hist := domain.NewHistoricalPayload()
	hist.StrategicMetrics["task_completion"] = []domain.Point{
		{ID: "task_completion", Name: "Completitud de tareas", Date: domain.DateOf(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)), Value: 0.5},
	}
	return &domain.Snapshot{
		ProjectID:  projectID,
		Provider:   domain.ProviderInternal,
		Version:    version,
		ComputedAt: at,
		Payload: domain.Payload{
			ProjectSlug: "alpha",
			ProjectName: "Alpha",
			Metrics: []domain.MetricResult{
				{ID: "task_completion_alpha", Name: "Completitud de tareas", Value: 0.5},
			},
			Students: []domain.StudentView{},
			Errors:   map[string]string{},
		},
		Historical: hist,
	}
}

// ---

func TestStore_SaveAndGet(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, snapshot(11, "v1", at)))

	got, err := s.Get(ctx, 11, domain.ProviderInternal)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Version)
	assert.True(t, got.ComputedAt.Equal(at))
	assert.True(t, got.CreatedAt.Equal(at))
	assert.Equal(t, "alpha", got.Payload.ProjectSlug)
	require.Len(t, got.Payload.Metrics, 1)
	assert.InDelta(t, 0.5, got.Payload.Metrics[0].Value, 1e-9)
	require.Len(t, got.Historical.StrategicMetrics["task_completion"], 1)
}

func TestStore_HistoricalErrorsRoundTrip(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	snap := snapshot(11, "v1", at)
	snap.HistoricalErrors = map[string]string{"sprint_velocity": "boom"}
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Get(ctx, 11, domain.ProviderInternal)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sprint_velocity": "boom"}, got.HistoricalErrors)

	require.NoError(t, s.Save(ctx, snapshot(11, "v2", at.Add(time.Hour))))
	got, err = s.Get(ctx, 11, domain.ProviderInternal)
	require.NoError(t, err)
	assert.Empty(t, got.HistoricalErrors)
}

func TestOpen_CreatesComputedAtIndex(t *testing.T) {
	s := openMemory(t)

	var name string
	err := s.DB().QueryRowContext(context.Background(),
		`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'metrics_snapshots' AND name = 'metrics_snapshots_computed_at_idx'`,
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "metrics_snapshots_computed_at_idx", name)
}

func TestStore_GetMissing(t *testing.T) {
	s := openMemory(t)

	_, err := s.Get(context.Background(), 99, domain.ProviderInternal)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestStore_SaveReplacesSingleRow(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	require.NoError(t, s.Save(ctx, snapshot(11, "v1", first)))
	require.NoError(t, s.Save(ctx, snapshot(11, "v2", second)))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "v2", list[0].Version)

	got, err := s.Get(ctx, 11, domain.ProviderInternal)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Version)
	assert.True(t, got.ComputedAt.Equal(second))
	assert.True(t, got.CreatedAt.Equal(first), "created_at survives rebuilds")
}

func TestStore_ProvidersAreSeparateRows(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	ext := snapshot(11, "ext", at)
	ext.Provider = domain.ProviderExternal
	require.NoError(t, s.Save(ctx, snapshot(11, "int", at)))
	require.NoError(t, s.Save(ctx, ext))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, snapshot(1, "old", at)))
	require.NoError(t, s.Save(ctx, snapshot(2, "new", at.Add(time.Minute))))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ProjectID)
	assert.Equal(t, int64(1), list[1].ProjectID)
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, snapshot(1, "a", at)))
	require.NoError(t, s.Save(ctx, snapshot(2, "b", at)))

	deleted, err := s.Delete(ctx, 1, domain.ProviderInternal)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, 1, domain.ProviderInternal)
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_Status(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	st, err := s.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Zero(t, st.Rows)
	assert.True(t, st.Oldest.IsZero())

	require.NoError(t, s.Save(ctx, snapshot(1, "a", at)))
	require.NoError(t, s.Save(ctx, snapshot(2, "b", at.Add(time.Hour))))

	st, err = s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, database.SQLite, st.Backend)
	assert.Equal(t, int64(2), st.Rows)
	assert.True(t, st.Oldest.Equal(at))
	assert.True(t, st.Newest.Equal(at.Add(time.Hour)))
	assert.Positive(t, st.SizeBytes)
}

func TestStore_NoneBackend(t *testing.T) {
	s, err := Open(context.Background(), database.None, "", database.DefaultPool())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, snapshot(1, "a", time.Now())))

	_, err = s.Get(ctx, 1, domain.ProviderInternal)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	deleted, err := s.Delete(ctx, 1, domain.ProviderInternal)
	require.NoError(t, err)
	assert.False(t, deleted)

	st, err := s.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.NoError(t, s.Close())
}

func TestOpen_InvalidMySQLDSN(t *testing.T) {
	_, err := Open(context.Background(), database.MySQL, "not a dsn", database.DefaultPool())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mysql dsn")
}
