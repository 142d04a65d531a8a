package run

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foremanhq/foreman/internal/plan"
	"github.com/foremanhq/foreman/internal/plan/resolver"
)

// RunStatus enumerates coarse run phases.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunStalled   RunStatus = "stalled"
	RunCanceled  RunStatus = "canceled"
)

// State owns every mutable scheduling structure for one run: the work-item
// store, the worker registry, and the dependency resolver. The scheduling
// loop is the only writer; every mutation and read goes through the single
// mutex so the monitor and TUI always observe a consistent snapshot.
type State struct {
	mu sync.Mutex

	runID    string
	plan     plan.Plan
	store    *Store
	registry *Registry
	res      *resolver.Resolver

	status       RunStatus
	statusReason string

	startedAt time.Time
	deadline  time.Time

	clock func() time.Time
}

// StateOption customizes State construction.
type StateOption func(*State)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) StateOption {
	return func(s *State) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewState builds run state from a validated plan and roster. The roster
// argument wins over any roster embedded in the plan.
func NewState(p plan.Plan, roster []plan.WorkerSpec, opts ...StateOption) (*State, error) {
	normalized, err := p.Normalized()
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		roster = normalized.Roster
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("run: no worker roster supplied")
	}
	res, err := resolver.New(normalized)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(normalized.Items)
	if err != nil {
		return nil, err
	}
	registry, err := NewRegistry(roster)
	if err != nil {
		return nil, err
	}
	s := &State{
		runID:    NewRunID(normalized.ID),
		plan:     normalized,
		store:    store,
		registry: registry,
		res:      res,
		status:   RunPending,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewRunID derives a unique, sortable-enough run identifier from a plan ID.
func NewRunID(planID string) string {
	base := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(planID), " ", "-"))
	if base == "" {
		base = "run"
	}
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8])
}

// RunID returns the run identifier.
func (s *State) RunID() string { return s.runID }

// Plan returns a clone of the run's plan.
func (s *State) Plan() plan.Plan { return s.plan.Clone() }

// begin marks the run started and activates the roster.
func (s *State) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != RunPending {
		return
	}
	s.startedAt = s.clock()
	if s.plan.DeadlineHours > 0 {
		s.deadline = s.startedAt.Add(time.Duration(s.plan.DeadlineHours * float64(time.Hour)))
	}
	s.registry.Activate()
	s.status = RunRunning
}

// finish records the terminal run status.
func (s *State) finish(status RunStatus, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.statusReason = reason
}

// Status returns the current run status and reason.
func (s *State) Status() (RunStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.statusReason
}

// refreshLocked re-evaluates the resolver from current store statuses.
// Callers must hold the mutex.
func (s *State) refreshLocked() {
	completed, failed, inProgress := s.store.view()
	s.res.Refresh(resolver.RunView{
		Completed:  completed,
		Failed:     failed,
		InProgress: inProgress,
	})
}

// Assignment pairs a dispatched item with the worker that will execute it.
type Assignment struct {
	Item     plan.ItemSpec
	WorkerID string
	Worker   string
}

// dispatchBatch computes the ready set, selects a bounded prefix, and pairs
// each selected item with an idle matching worker. Selected items without a
// matching idle worker are skipped this tick and stay PENDING.
func (s *State) dispatchBatch(batchSize int) ([]Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	ready := s.res.Ready()
	if batchSize > 0 && len(ready) > batchSize {
		ready = ready[:batchSize]
	}
	var assignments []Assignment
	now := s.clock()
	for _, node := range ready {
		worker := s.registry.IdleFor(node.Spec.Specialization)
		if worker == nil {
			continue
		}
		item, ok := s.store.Item(node.ID)
		if !ok {
			return nil, fmt.Errorf("run: ready item %s missing from store", node.ID)
		}
		if err := s.registry.Assign(worker.ID(), item.ID()); err != nil {
			return nil, err
		}
		if err := item.start(worker.ID(), now); err != nil {
			return nil, err
		}
		assignments = append(assignments, Assignment{
			Item:     item.Spec.Clone(),
			WorkerID: worker.ID(),
			Worker:   worker.Spec.Name,
		})
	}
	return assignments, nil
}

// applySuccess is the post-execution hook for a successful item: COMPLETED
// item, incremented worker counter, worker back to IDLE.
func (s *State) applySuccess(itemID, workerID, result string, produced []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.store.Item(itemID)
	if !ok {
		return fmt.Errorf("run: unknown item %s", itemID)
	}
	if err := item.complete(result, produced, s.clock()); err != nil {
		return err
	}
	s.store.markCompleted(itemID)
	return s.registry.Release(workerID)
}

// applyFailure is the post-execution hook for a failed item: FAILED item,
// worker parked in ERROR.
func (s *State) applyFailure(itemID, workerID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.store.Item(itemID)
	if !ok {
		return fmt.Errorf("run: unknown item %s", itemID)
	}
	if err := item.fail(reason, s.clock()); err != nil {
		return err
	}
	s.store.markFailed(itemID)
	return s.registry.Fail(workerID)
}

// unfinished reports whether non-terminal items remain.
func (s *State) unfinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.unfinished()
}

// BlockedItem describes one item retired by stall detection.
type BlockedItem struct {
	ID     string
	Reason string
}

// detectStall retires every remaining non-terminal item as BLOCKED with an
// explanation: a failed or blocked dependency chain, or a specialization no
// live worker offers. Called only when a tick dispatched nothing and no work
// is in flight, which in a bulk-synchronous loop means no item can ever run.
func (s *State) detectStall() ([]BlockedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var retired []BlockedItem
	now := s.clock()
	for s.store.unfinished() {
		s.refreshLocked()
		progressed := false
		for _, node := range s.res.Nodes() {
			item, ok := s.store.Item(node.ID)
			if !ok || item.Status.Terminal() {
				continue
			}
			var reason string
			var blockedBy []string
			switch {
			case node.State == resolver.NodeStateBlocked:
				blockedBy = node.BlockedBy
				reason = fmt.Sprintf("dependency %s can never complete", strings.Join(node.BlockedBy, ", "))
			case node.State == resolver.NodeStateReady && !s.registry.Covers(item.Spec.Specialization):
				reason = fmt.Sprintf("no live worker offers specialization %q", item.Spec.Specialization)
			default:
				continue
			}
			if err := item.block(reason, blockedBy, now); err != nil {
				return retired, err
			}
			retired = append(retired, BlockedItem{ID: item.ID(), Reason: reason})
			progressed = true
		}
		if !progressed {
			// Remaining non-terminal items are ready with a covering worker;
			// the stall was transient (should not happen between ticks).
			break
		}
	}
	return retired, nil
}
