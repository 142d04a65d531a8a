package run

import "time"

// Snapshot is the serializable view of a run persisted after every tick and
// consumed by `foreman status` and the TUI.
type Snapshot struct {
	RunID    string `json:"run_id"`
	PlanID   string `json:"plan_id"`
	PlanName string `json:"plan_name,omitempty"`

	Status       RunStatus `json:"status"`
	StatusReason string    `json:"status_reason,omitempty"`

	StartedAt time.Time `json:"started_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Deadline  time.Time `json:"deadline,omitempty"`

	Items    []Item           `json:"items"`
	Workers  []Worker         `json:"workers"`
	Progress ProgressSnapshot `json:"progress"`
}

// Snapshot captures a consistent copy of the full run state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		RunID:        s.runID,
		PlanID:       s.plan.ID,
		PlanName:     s.plan.Name,
		Status:       s.status,
		StatusReason: s.statusReason,
		StartedAt:    s.startedAt,
		UpdatedAt:    s.clock(),
		Deadline:     s.deadline,
		Progress:     s.progressLocked(),
	}
	for _, item := range s.store.Items() {
		copied := *item
		copied.Spec = item.Spec.Clone()
		copied.Produced = append([]string{}, item.Produced...)
		copied.BlockedBy = append([]string{}, item.BlockedBy...)
		snap.Items = append(snap.Items, copied)
	}
	for _, worker := range s.registry.Workers() {
		snap.Workers = append(snap.Workers, *worker)
	}
	return snap
}
