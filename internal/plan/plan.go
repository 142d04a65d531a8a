package plan

import (
	"fmt"
	"sort"
	"strings"
)

// Plan declares an executable set of work items plus the metadata required to
// schedule them. It is produced by an external collaborator (a document
// parser, a planning tool) and handed to foreman as YAML.
type Plan struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Items       []ItemSpec        `json:"items" yaml:"items"`
	Roster      []WorkerSpec      `json:"roster,omitempty" yaml:"roster,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// DeadlineHours is an informational target-completion window. Zero means
	// no deadline.
	DeadlineHours float64 `json:"deadline_hours,omitempty" yaml:"deadline_hours,omitempty"`
}

// ItemSpec is the work-item specification consumed from the external
// producer. Dependencies reference other item IDs within the same plan.
type ItemSpec struct {
	ID             string   `json:"id" yaml:"id"`
	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	Specialization string   `json:"specialization" yaml:"specialization"`
	Priority       int      `json:"priority,omitempty" yaml:"priority,omitempty"`
	DependsOn      []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Artifacts      []string `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Acceptance     []string `json:"acceptance_criteria,omitempty" yaml:"acceptance_criteria,omitempty"`
	EstimatedHours float64  `json:"estimated_hours,omitempty" yaml:"estimated_hours,omitempty"`
}

// Clone returns a deep copy of the item specification.
func (s ItemSpec) Clone() ItemSpec {
	clone := s
	clone.DependsOn = cloneStringSlice(s.DependsOn)
	clone.Artifacts = cloneStringSlice(s.Artifacts)
	clone.Acceptance = cloneStringSlice(s.Acceptance)
	return clone
}

// Validate ensures the specification carries its required fields.
func (s ItemSpec) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("plan: item id is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("plan: item %s: title is required", s.ID)
	}
	if strings.TrimSpace(s.Specialization) == "" {
		return fmt.Errorf("plan: item %s: specialization is required", s.ID)
	}
	deps := append([]string{}, s.DependsOn...)
	sort.Strings(deps)
	for i := 1; i < len(deps); i++ {
		if deps[i] == deps[i-1] {
			return fmt.Errorf("plan: item %s has duplicate dependency on %s", s.ID, deps[i])
		}
	}
	for _, dep := range s.DependsOn {
		if dep == s.ID {
			return fmt.Errorf("plan: item %s depends on itself", s.ID)
		}
	}
	return nil
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	clone := Plan{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Metadata:      cloneStringMap(p.Metadata),
		DeadlineHours: p.DeadlineHours,
	}
	if len(p.Items) > 0 {
		clone.Items = make([]ItemSpec, len(p.Items))
		for i, item := range p.Items {
			clone.Items[i] = item.Clone()
		}
	}
	if len(p.Roster) > 0 {
		clone.Roster = make([]WorkerSpec, len(p.Roster))
		copy(clone.Roster, p.Roster)
	}
	return clone
}

// Validate ensures the plan is self-consistent: every item carries its
// required fields, IDs are unique, and every dependency references a declared
// item. Dangling dependencies are a configuration error caught here, never at
// dispatch time.
func (p Plan) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("plan: id is required")
	}
	if len(p.Items) == 0 {
		return fmt.Errorf("plan %s: at least one item is required", p.ID)
	}
	seen := map[string]struct{}{}
	for idx, item := range p.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("plan %s item[%d]: %w", p.ID, idx, err)
		}
		if _, exists := seen[item.ID]; exists {
			return fmt.Errorf("plan %s: duplicate item id %s", p.ID, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	for _, item := range p.Items {
		for _, dep := range item.DependsOn {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("plan %s: item %s depends on unknown item %s", p.ID, item.ID, dep)
			}
		}
	}
	if len(p.Roster) > 0 {
		if err := ValidateRoster(p.Roster); err != nil {
			return fmt.Errorf("plan %s: %w", p.ID, err)
		}
	}
	return nil
}

// Normalized clones the plan, trims identifier whitespace, and validates the
// result.
func (p Plan) Normalized() (Plan, error) {
	clone := p.Clone()
	clone.ID = strings.TrimSpace(clone.ID)
	for i := range clone.Items {
		clone.Items[i].ID = strings.TrimSpace(clone.Items[i].ID)
		clone.Items[i].Specialization = strings.TrimSpace(clone.Items[i].Specialization)
		for j := range clone.Items[i].DependsOn {
			clone.Items[i].DependsOn[j] = strings.TrimSpace(clone.Items[i].DependsOn[j])
		}
	}
	if err := clone.Validate(); err != nil {
		return Plan{}, err
	}
	return clone, nil
}

// ItemIDs returns the item identifiers in declaration order.
func (p Plan) ItemIDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// Item returns the specification for an item id.
func (p Plan) Item(id string) (ItemSpec, bool) {
	for _, item := range p.Items {
		if item.ID == id {
			return item, true
		}
	}
	return ItemSpec{}, false
}

// CheckCoverage verifies that every item's required specialization is served
// by at least one worker in the roster. An uncovered specialization would
// otherwise stall silently at runtime.
func (p Plan) CheckCoverage(roster []WorkerSpec) error {
	offered := make(map[string]struct{}, len(roster))
	for _, worker := range roster {
		offered[normalizeTag(worker.Specialization)] = struct{}{}
	}
	for _, item := range p.Items {
		if _, ok := offered[normalizeTag(item.Specialization)]; !ok {
			return fmt.Errorf("plan %s: item %s requires specialization %q but no worker offers it", p.ID, item.ID, item.Specialization)
		}
	}
	return nil
}

// normalizeTag canonicalizes a specialization tag for case-insensitive
// matching.
func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func cloneStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	clone := make([]string, len(values))
	copy(clone, values)
	return clone
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	clone := make(map[string]string, len(values))
	for key, value := range values {
		clone[key] = value
	}
	return clone
}
