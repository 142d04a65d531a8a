package run

import "time"

// EventKind enumerates the run events published while the loop executes.
type EventKind string

const (
	EventDispatched    EventKind = "dispatched"
	EventItemCompleted EventKind = "item_completed"
	EventItemFailed    EventKind = "item_failed"
	EventItemBlocked   EventKind = "item_blocked"
	EventTick          EventKind = "tick"
	EventRunFinished   EventKind = "run_finished"
)

// Event is a single scheduling occurrence. Consumers (the TUI, a log sink)
// are outside the core; delivery is best-effort and never blocks the loop.
type Event struct {
	Kind     EventKind `json:"kind"`
	ItemID   string    `json:"item_id,omitempty"`
	WorkerID string    `json:"worker_id,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// publish sends an event without blocking; slow consumers lose events rather
// than stalling the scheduler.
func publish(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}
