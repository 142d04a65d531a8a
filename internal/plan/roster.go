package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WorkerSpec describes one worker in the static roster supplied at startup.
// A worker's specialization is fixed for its lifetime and is matched against
// an item's required specialization by case-insensitive equality.
type WorkerSpec struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Role           string `json:"role,omitempty" yaml:"role,omitempty"`
	Specialization string `json:"specialization" yaml:"specialization"`
}

// Normalize trims whitespace and ensures essential fields are present.
func (w WorkerSpec) Normalize() (WorkerSpec, error) {
	w.ID = strings.TrimSpace(w.ID)
	if w.ID == "" {
		return WorkerSpec{}, errors.New("roster: worker entry missing id")
	}
	w.Name = strings.TrimSpace(w.Name)
	if w.Name == "" {
		w.Name = w.ID
	}
	w.Role = strings.TrimSpace(w.Role)
	w.Specialization = strings.TrimSpace(w.Specialization)
	if w.Specialization == "" {
		return WorkerSpec{}, fmt.Errorf("roster: worker %s missing specialization", w.ID)
	}
	return w, nil
}

// ValidateRoster normalizes every entry and rejects duplicate worker IDs.
func ValidateRoster(entries []WorkerSpec) error {
	seen := map[string]struct{}{}
	for idx, entry := range entries {
		normalized, err := entry.Normalize()
		if err != nil {
			return fmt.Errorf("roster entry[%d]: %w", idx, err)
		}
		if _, exists := seen[normalized.ID]; exists {
			return fmt.Errorf("roster: duplicate worker id %s", normalized.ID)
		}
		seen[normalized.ID] = struct{}{}
	}
	return nil
}

// rosterFile models the on-disk roster document.
type rosterFile struct {
	Workers []WorkerSpec `yaml:"workers"`
}

// LoadRoster reads the worker roster from a YAML file.
func LoadRoster(path string) ([]WorkerSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// A bare top-level list does not decode into the envelope, so the
	// envelope error is held until the list form has been tried too.
	var doc rosterFile
	envErr := yaml.Unmarshal(data, &doc)
	workers := doc.Workers
	if len(workers) == 0 {
		// Also accept a bare list of entries.
		if listErr := yaml.Unmarshal(data, &workers); listErr != nil && envErr != nil {
			return nil, fmt.Errorf("roster: parse %s: %w", path, envErr)
		}
	}
	if len(workers) == 0 {
		return nil, fmt.Errorf("roster: %s declares no workers", path)
	}
	normalized := make([]WorkerSpec, 0, len(workers))
	for idx, entry := range workers {
		spec, err := entry.Normalize()
		if err != nil {
			return nil, fmt.Errorf("roster: %s entry[%d]: %w", path, idx, err)
		}
		normalized = append(normalized, spec)
	}
	if err := ValidateRoster(normalized); err != nil {
		return nil, fmt.Errorf("roster: %s: %w", path, err)
	}
	return normalized, nil
}

// SaveRoster writes the worker roster to disk, creating parent directories.
func SaveRoster(path string, workers []WorkerSpec) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(rosterFile{Workers: workers})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
