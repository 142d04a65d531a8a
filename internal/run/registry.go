package run

import (
	"fmt"
	"strings"

	"github.com/foremanhq/foreman/internal/plan"
)

// WorkerStatus enumerates the worker lifecycle:
// INITIALIZING -> IDLE <-> BUSY, or -> ERROR.
type WorkerStatus string

const (
	WorkerInitializing WorkerStatus = "initializing"
	WorkerIdle         WorkerStatus = "idle"
	WorkerBusy         WorkerStatus = "busy"
	WorkerError        WorkerStatus = "error"
)

// Worker is a stateful executor slot with a fixed specialization. A worker
// holds at most one assigned item at any instant. A worker that enters ERROR
// stays there for the remainder of the run.
type Worker struct {
	Spec   plan.WorkerSpec `json:"spec"`
	Status WorkerStatus    `json:"status"`

	// CurrentItem is the ID of the assigned item while busy.
	CurrentItem string `json:"current_item,omitempty"`

	// Completed counts items this worker finished successfully.
	Completed int `json:"completed"`
}

// ID returns the worker identifier.
func (w *Worker) ID() string { return w.Spec.ID }

// Registry is the fixed worker roster for a run: constructed once at startup,
// never modified structurally afterwards. Idle workers are indexed by
// normalized specialization tag for O(1) dispatch lookup.
type Registry struct {
	workers map[string]*Worker
	ordered []string

	// idle maps a normalized specialization tag to the IDs of idle workers
	// offering it, in roster order.
	idle map[string][]string
}

// NewRegistry builds the roster from validated worker specs. Every worker
// starts INITIALIZING and is moved to IDLE before the first tick.
func NewRegistry(specs []plan.WorkerSpec) (*Registry, error) {
	r := &Registry{
		workers: make(map[string]*Worker, len(specs)),
		idle:    make(map[string][]string),
	}
	for _, spec := range specs {
		normalized, err := spec.Normalize()
		if err != nil {
			return nil, fmt.Errorf("run: %w", err)
		}
		if _, exists := r.workers[normalized.ID]; exists {
			return nil, fmt.Errorf("run: duplicate worker id %s", normalized.ID)
		}
		r.workers[normalized.ID] = &Worker{Spec: normalized, Status: WorkerInitializing}
		r.ordered = append(r.ordered, normalized.ID)
	}
	if len(r.ordered) == 0 {
		return nil, fmt.Errorf("run: roster declares no workers")
	}
	return r, nil
}

// Activate moves every INITIALIZING worker to IDLE. Called once before the
// first scheduling tick.
func (r *Registry) Activate() {
	for _, id := range r.ordered {
		worker := r.workers[id]
		if worker.Status == WorkerInitializing {
			worker.Status = WorkerIdle
			r.pushIdle(worker)
		}
	}
}

// Worker looks up a worker by ID.
func (r *Registry) Worker(id string) (*Worker, bool) {
	worker, ok := r.workers[id]
	return worker, ok
}

// Workers returns the roster in declaration order.
func (r *Registry) Workers() []*Worker {
	out := make([]*Worker, 0, len(r.ordered))
	for _, id := range r.ordered {
		out = append(out, r.workers[id])
	}
	return out
}

// Len returns the roster size.
func (r *Registry) Len() int { return len(r.ordered) }

// BusyCount returns the number of workers currently executing an item.
func (r *Registry) BusyCount() int {
	count := 0
	for _, worker := range r.workers {
		if worker.Status == WorkerBusy {
			count++
		}
	}
	return count
}

// IdleFor returns an idle worker whose specialization matches the tag
// (case-insensitive), or nil when none is available this tick.
func (r *Registry) IdleFor(specialization string) *Worker {
	tag := normalizeTag(specialization)
	ids := r.idle[tag]
	if len(ids) == 0 {
		return nil
	}
	return r.workers[ids[0]]
}

// Covers reports whether any worker (idle or not, excluding errored ones)
// offers the specialization.
func (r *Registry) Covers(specialization string) bool {
	tag := normalizeTag(specialization)
	for _, worker := range r.workers {
		if worker.Status == WorkerError {
			continue
		}
		if normalizeTag(worker.Spec.Specialization) == tag {
			return true
		}
	}
	return false
}

// Assign marks an idle worker busy with the given item.
func (r *Registry) Assign(workerID, itemID string) error {
	worker, ok := r.workers[workerID]
	if !ok {
		return fmt.Errorf("run: unknown worker %s", workerID)
	}
	if worker.Status != WorkerIdle {
		return fmt.Errorf("run: worker %s is %s, cannot assign %s", workerID, worker.Status, itemID)
	}
	if worker.CurrentItem != "" {
		return fmt.Errorf("run: worker %s already holds item %s", workerID, worker.CurrentItem)
	}
	r.removeIdle(worker)
	worker.Status = WorkerBusy
	worker.CurrentItem = itemID
	return nil
}

// Release returns a busy worker to IDLE after a successful execution and
// increments its completed count.
func (r *Registry) Release(workerID string) error {
	worker, ok := r.workers[workerID]
	if !ok {
		return fmt.Errorf("run: unknown worker %s", workerID)
	}
	if worker.Status != WorkerBusy {
		return fmt.Errorf("run: worker %s is %s, cannot release", workerID, worker.Status)
	}
	worker.Status = WorkerIdle
	worker.CurrentItem = ""
	worker.Completed++
	r.pushIdle(worker)
	return nil
}

// Fail moves a busy worker to ERROR after a failed execution. Errored workers
// are not returned to the idle pool.
func (r *Registry) Fail(workerID string) error {
	worker, ok := r.workers[workerID]
	if !ok {
		return fmt.Errorf("run: unknown worker %s", workerID)
	}
	if worker.Status != WorkerBusy {
		return fmt.Errorf("run: worker %s is %s, cannot mark errored", workerID, worker.Status)
	}
	worker.Status = WorkerError
	worker.CurrentItem = ""
	return nil
}

func (r *Registry) pushIdle(worker *Worker) {
	tag := normalizeTag(worker.Spec.Specialization)
	r.idle[tag] = append(r.idle[tag], worker.ID())
}

func (r *Registry) removeIdle(worker *Worker) {
	tag := normalizeTag(worker.Spec.Specialization)
	ids := r.idle[tag]
	for i, id := range ids {
		if id == worker.ID() {
			r.idle[tag] = append(ids[:i:i], ids[i+1:]...)
			return
		}
	}
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
