package run

import (
	"fmt"
	"time"

	"github.com/foremanhq/foreman/internal/plan"
)

// ItemStatus enumerates the work-item lifecycle.
//
// PENDING -> IN_PROGRESS -> COMPLETED | FAILED. BLOCKED is terminal for the
// run and is applied only by stall detection when a dependency chain can
// never complete. No transition returns an item to PENDING.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemInProgress ItemStatus = "in_progress"
	ItemCompleted  ItemStatus = "completed"
	ItemFailed     ItemStatus = "failed"
	ItemBlocked    ItemStatus = "blocked"
)

// Terminal reports whether the status can no longer change during a run.
func (s ItemStatus) Terminal() bool {
	switch s {
	case ItemCompleted, ItemFailed, ItemBlocked:
		return true
	}
	return false
}

// Item is a scheduled work item tracked by the store.
type Item struct {
	Spec   plan.ItemSpec `json:"spec"`
	Status ItemStatus    `json:"status"`

	// AssignedTo holds the worker ID while the item is in progress.
	AssignedTo string `json:"assigned_to,omitempty"`

	// Result carries the free-text execution outcome (success summary or
	// failure reason).
	Result string `json:"result,omitempty"`

	// Produced lists the artifact names the executor actually delivered.
	Produced []string `json:"produced,omitempty"`

	// BlockedBy lists dependency IDs when Status is blocked.
	BlockedBy []string `json:"blocked_by,omitempty"`

	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// ID returns the item identifier.
func (i *Item) ID() string { return i.Spec.ID }

// start transitions PENDING -> IN_PROGRESS when a worker is assigned.
func (i *Item) start(workerID string, now time.Time) error {
	if i.Status != ItemPending {
		return fmt.Errorf("run: item %s: cannot start from %s", i.ID(), i.Status)
	}
	i.Status = ItemInProgress
	i.AssignedTo = workerID
	i.StartedAt = now
	return nil
}

// complete transitions IN_PROGRESS -> COMPLETED.
func (i *Item) complete(result string, produced []string, now time.Time) error {
	if i.Status != ItemInProgress {
		return fmt.Errorf("run: item %s: cannot complete from %s", i.ID(), i.Status)
	}
	i.Status = ItemCompleted
	i.Result = result
	i.Produced = append([]string{}, produced...)
	i.AssignedTo = ""
	i.FinishedAt = now
	return nil
}

// fail transitions IN_PROGRESS -> FAILED.
func (i *Item) fail(reason string, now time.Time) error {
	if i.Status != ItemInProgress {
		return fmt.Errorf("run: item %s: cannot fail from %s", i.ID(), i.Status)
	}
	i.Status = ItemFailed
	i.Result = reason
	i.AssignedTo = ""
	i.FinishedAt = now
	return nil
}

// block marks a PENDING item as permanently blocked. Only stall detection
// applies this transition.
func (i *Item) block(reason string, blockedBy []string, now time.Time) error {
	if i.Status != ItemPending {
		return fmt.Errorf("run: item %s: cannot block from %s", i.ID(), i.Status)
	}
	i.Status = ItemBlocked
	i.Result = reason
	i.BlockedBy = append([]string{}, blockedBy...)
	i.FinishedAt = now
	return nil
}
