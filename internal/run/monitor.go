package run

import (
	"context"
	"time"
)

// ProgressSnapshot is the structured record emitted on each monitor tick.
type ProgressSnapshot struct {
	ActiveWorkers int `json:"active_workers"`
	TotalWorkers  int `json:"total_workers"`

	CompletedCount  int `json:"completed_count"`
	PendingCount    int `json:"pending_count"`
	InProgressCount int `json:"in_progress_count"`
	FailedCount     int `json:"failed_count"`
	BlockedCount    int `json:"blocked_count"`
	TotalItems      int `json:"total_items"`

	// Elapsed counts from run start. Remaining counts down to the optional
	// deadline and is zero when no deadline was set.
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`

	// PercentComplete is completed / total items, in [0, 100].
	PercentComplete float64 `json:"percent_complete"`

	Status RunStatus `json:"status"`
	At     time.Time `json:"at"`
}

// Progress samples the run state. Read-only; safe to call concurrently with
// the scheduling loop.
func (s *State) Progress() ProgressSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *State) progressLocked() ProgressSnapshot {
	pending, inProgress, completed, failed, blocked := s.store.counts()
	total := s.store.Len()
	now := s.clock()
	snap := ProgressSnapshot{
		ActiveWorkers:   s.registry.BusyCount(),
		TotalWorkers:    s.registry.Len(),
		CompletedCount:  completed,
		PendingCount:    pending,
		InProgressCount: inProgress,
		FailedCount:     failed,
		BlockedCount:    blocked,
		TotalItems:      total,
		Status:          s.status,
		At:              now,
	}
	if !s.startedAt.IsZero() {
		snap.Elapsed = now.Sub(s.startedAt)
	}
	if !s.deadline.IsZero() {
		if remaining := s.deadline.Sub(now); remaining > 0 {
			snap.Remaining = remaining
		}
	}
	if total > 0 {
		snap.PercentComplete = float64(completed) / float64(total) * 100
	}
	return snap
}

// Monitor samples run state on a fixed interval and emits progress
// snapshots. It is purely observational: it never mutates store or registry
// state. It self-terminates once the run reaches a terminal status, emitting
// one final snapshot, or when ctx is canceled.
type Monitor struct {
	state    *State
	interval time.Duration
	emit     func(ProgressSnapshot)
}

// NewMonitor wires a monitor to run state. The emit callback receives every
// sample; a nil callback makes the monitor a no-op.
func NewMonitor(state *State, interval time.Duration, emit func(ProgressSnapshot)) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{state: state, interval: interval, emit: emit}
}

// Run blocks sampling until the run finishes or ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap := m.state.Progress()
			if m.emit != nil {
				m.emit(snap)
			}
			switch snap.Status {
			case RunCompleted, RunStalled, RunCanceled:
				return nil
			}
		}
	}
}
