package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI2HU/sqlite2pg/internal/db/sqlite"
	"github.com/AI2HU/sqlite2pg/internal/models"
)

func TestGetOperationStats(t *testing.T) {
	ctx := context.Background()
	j, err := sqlite.New(&models.Config{URI: filepath.Join(t.TempDir(), "ops.db")})
	require.NoError(t, err)
	require.NoError(t, j.Connect(ctx))
	t.Cleanup(func() { _ = j.Disconnect(ctx) })

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	entries := []struct {
		id, op, status string
		ms             int64
	}{
		{"m1", "migrate", "succeeded", 1000},
		{"m2", "migrate", "failed", 3000},
		{"m3", "migrate", "succeeded", 2000},
		{"b1", "backup", "timed_out", 600000},
	}
	for i, e := range entries {
		require.NoError(t, j.RecordOperation(ctx, &models.Operation{
			ID:         e.id,
			Operation:  e.op,
			Status:     e.status,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			DurationMs: e.ms,
		}))
	}

	stats, err := New(j.GetDatabase()).GetOperationStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	backup, migrate := stats[0], stats[1]
	assert.Equal(t, "backup", backup.Operation)
	assert.Equal(t, 1, backup.Total)
	assert.Equal(t, map[string]int{"timed_out": 1}, backup.StatusCounts)

	assert.Equal(t, "migrate", migrate.Operation)
	assert.Equal(t, 3, migrate.Total)
	assert.Equal(t, map[string]int{"succeeded": 2, "failed": 1}, migrate.StatusCounts)
	assert.InDelta(t, 2000.0, migrate.AvgDurationMs, 0.001)
	require.NotNil(t, migrate.LastRun)
	assert.Equal(t, "m3", migrate.LastRun.ID)
	assert.True(t, base.Add(2*time.Minute).Equal(migrate.LastRun.StartedAt))
}

func TestGetOperationStats_Empty(t *testing.T) {
	ctx := context.Background()
	j, err := sqlite.New(&models.Config{URI: filepath.Join(t.TempDir(), "ops.db")})
	require.NoError(t, err)
	require.NoError(t, j.Connect(ctx))
	t.Cleanup(func() { _ = j.Disconnect(ctx) })

	stats, err := New(j.GetDatabase()).GetOperationStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)
}
