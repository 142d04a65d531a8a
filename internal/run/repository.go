package run

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ErrSnapshotNotFound is returned when no persisted run snapshot exists yet.
var ErrSnapshotNotFound = errors.New("run: snapshot not found")

// StateStore persists run snapshots.
type StateStore interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// Repository stores a run's snapshot as JSON under the run directory.
type Repository struct {
	path string
}

// NewRepository creates a repository rooted at runDir (.foreman/runs/<id>).
func NewRepository(runDir string) *Repository {
	return &Repository{path: filepath.Join(runDir, "state.json")}
}

// Load reads the persisted snapshot if present.
func (r *Repository) Load() (Snapshot, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, ErrSnapshotNotFound
		}
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Save writes the snapshot to disk.
func (r *Repository) Save(snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, append(encoded, '\n'), 0o644)
}

// LatestSnapshot scans the runs directory and loads the most recently
// updated snapshot.
func LatestSnapshot(runsDir string) (Snapshot, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, ErrSnapshotNotFound
		}
		return Snapshot{}, err
	}
	var snapshots []Snapshot
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		snap, err := NewRepository(filepath.Join(runsDir, entry.Name())).Load()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, snap)
	}
	if len(snapshots) == 0 {
		return Snapshot{}, ErrSnapshotNotFound
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].UpdatedAt.After(snapshots[j].UpdatedAt)
	})
	return snapshots[0], nil
}
