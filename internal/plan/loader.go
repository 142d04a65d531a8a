package plan

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ParsePlanYAML decodes a plan from YAML/JSON bytes. Malformed specifications
// are rejected here, before any item enters a store.
func ParsePlanYAML(data []byte) (Plan, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Plan{}, fmt.Errorf("plan: payload is empty")
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("plan: decode: %w", err)
	}
	return p.Normalized()
}

// LoadPlanReader reads plan data from an io.Reader.
func LoadPlanReader(r io.Reader) (Plan, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Plan{}, fmt.Errorf("plan: read: %w", err)
	}
	return ParsePlanYAML(content)
}

// LoadPlanFile loads a plan from an explicit file path.
func LoadPlanFile(path string) (Plan, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("plan: read %s: %w", path, err)
	}
	p, parseErr := ParsePlanYAML(content)
	if parseErr != nil {
		return Plan{}, fmt.Errorf("plan: %s: %w", path, parseErr)
	}
	return p, nil
}
