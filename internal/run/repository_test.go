package run

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewRepository(filepath.Join(dir, "run-1"))

	_, err := repo.Load()
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	snap := Snapshot{
		RunID:     "run-1",
		PlanID:    "p",
		Status:    RunRunning,
		UpdatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Save(snap))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, snap.RunID, loaded.RunID)
	assert.Equal(t, RunRunning, loaded.Status)
	assert.True(t, snap.UpdatedAt.Equal(loaded.UpdatedAt))
}

func TestLatestSnapshotPicksNewestRun(t *testing.T) {
	runsDir := t.TempDir()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, NewRepository(filepath.Join(runsDir, "run-old")).Save(Snapshot{
		RunID: "run-old", UpdatedAt: base,
	}))
	require.NoError(t, NewRepository(filepath.Join(runsDir, "run-new")).Save(Snapshot{
		RunID: "run-new", UpdatedAt: base.Add(time.Hour),
	}))

	latest, err := LatestSnapshot(runsDir)
	require.NoError(t, err)
	assert.Equal(t, "run-new", latest.RunID)
}

func TestLatestSnapshotEmptyDir(t *testing.T) {
	_, err := LatestSnapshot(t.TempDir())
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}
