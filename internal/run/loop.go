package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/foremanhq/foreman/internal/plan"
)

// Executor is the boundary to the external execution capability. It must not
// mutate scheduler state; outcomes are applied by the loop's post-execution
// hooks. A panic inside Execute is treated as a failure.
type Executor interface {
	Execute(ctx context.Context, item plan.ItemSpec) (result string, produced []string, err error)
}

// StallPolicy selects how the loop reacts when nothing is dispatchable while
// unfinished items remain.
type StallPolicy int

const (
	// StallRetire marks permanently stuck items BLOCKED and keeps going, so
	// the run always terminates with an explicit outcome per item.
	StallRetire StallPolicy = iota
	// StallWait reproduces the historical behavior: idle-poll until the
	// situation changes or the run is canceled.
	StallWait
)

// Printer is the minimal logging contract the loop needs.
type Printer interface {
	Printf(format string, args ...any)
}

// LoopConfig bounds a run's scheduling behavior.
type LoopConfig struct {
	// BatchSize caps items dispatched per tick. Values <= 0 fall back to 3.
	BatchSize int
	// PollInterval is the idle wait used by StallWait and transient stalls.
	PollInterval time.Duration
	// StallPolicy picks the liveness strategy.
	StallPolicy StallPolicy
}

// DefaultLoopConfig returns the default scheduling bounds.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		BatchSize:    3,
		PollInterval: 5 * time.Second,
		StallPolicy:  StallRetire,
	}
}

func (cfg LoopConfig) normalized() LoopConfig {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return cfg
}

// Loop drives bulk-synchronous scheduling rounds: compute the ready set,
// dispatch a bounded batch to matching idle workers, execute the batch
// concurrently, join, apply outcomes, repeat until every item is terminal.
type Loop struct {
	state  *State
	exec   Executor
	cfg    LoopConfig
	logger Printer
	events chan<- Event
	repo   StateStore
}

// LoopOption customizes Loop construction.
type LoopOption func(*Loop)

// WithLogger attaches a file logger for scheduling activity lines.
func WithLogger(logger Printer) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// WithEvents attaches a best-effort event channel for UI consumers.
func WithEvents(events chan<- Event) LoopOption {
	return func(l *Loop) { l.events = events }
}

// WithRepository persists a state snapshot after every tick so `foreman
// status` can inspect the run from another process.
func WithRepository(repo StateStore) LoopOption {
	return func(l *Loop) { l.repo = repo }
}

// NewLoop wires a scheduling loop to run state and an executor.
func NewLoop(state *State, exec Executor, cfg LoopConfig, opts ...LoopOption) (*Loop, error) {
	if state == nil {
		return nil, fmt.Errorf("run: loop requires state")
	}
	if exec == nil {
		return nil, fmt.Errorf("run: loop requires an executor")
	}
	l := &Loop{state: state, exec: exec, cfg: cfg.normalized()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run executes the scheduling loop until every item is terminal or ctx is
// canceled. A single item's failure never aborts the run; the loop only
// stops cleanly or by cancellation. In-flight executions are awaited on
// cancellation, not forcibly killed beyond ctx propagation.
func (l *Loop) Run(ctx context.Context) error {
	l.state.begin()
	l.logf("run %s: started with %d items, %d workers",
		l.state.RunID(), l.state.store.Len(), l.state.registry.Len())
	l.persist()

	for {
		if err := ctx.Err(); err != nil {
			l.state.finish(RunCanceled, "canceled before dispatch")
			l.logf("run %s: canceled", l.state.RunID())
			l.persist()
			return err
		}

		assignments, err := l.state.dispatchBatch(l.cfg.BatchSize)
		if err != nil {
			l.state.finish(RunStalled, err.Error())
			l.persist()
			return fmt.Errorf("run %s: dispatch: %w", l.state.RunID(), err)
		}

		if len(assignments) == 0 {
			done, err := l.handleEmptyTick(ctx)
			if done || err != nil {
				return err
			}
			continue
		}

		for _, a := range assignments {
			l.logf("[%s] started %s: %s", a.Worker, a.Item.ID, a.Item.Title)
			publish(l.events, Event{Kind: EventDispatched, ItemID: a.Item.ID, WorkerID: a.WorkerID, At: l.state.clock()})
		}

		outcomes := l.executeBatch(ctx, assignments)
		for i, a := range assignments {
			outcome := outcomes[i]
			if outcome.err != nil {
				if applyErr := l.state.applyFailure(a.Item.ID, a.WorkerID, outcome.err.Error()); applyErr != nil {
					return applyErr
				}
				l.logf("[%s] failed %s: %v", a.Worker, a.Item.ID, outcome.err)
				publish(l.events, Event{Kind: EventItemFailed, ItemID: a.Item.ID, WorkerID: a.WorkerID, Reason: outcome.err.Error(), At: l.state.clock()})
				continue
			}
			if applyErr := l.state.applySuccess(a.Item.ID, a.WorkerID, outcome.result, outcome.produced); applyErr != nil {
				return applyErr
			}
			l.logf("[%s] completed %s", a.Worker, a.Item.ID)
			publish(l.events, Event{Kind: EventItemCompleted, ItemID: a.Item.ID, WorkerID: a.WorkerID, At: l.state.clock()})
		}
		publish(l.events, Event{Kind: EventTick, At: l.state.clock()})
		l.persist()
	}
}

// handleEmptyTick decides what an all-skipped tick means: clean termination,
// a permanent stall to retire, or an idle wait.
func (l *Loop) handleEmptyTick(ctx context.Context) (done bool, err error) {
	if !l.state.unfinished() {
		status, reason := l.finalStatus()
		l.state.finish(status, reason)
		l.logf("run %s: finished %s%s", l.state.RunID(), status, suffixReason(reason))
		publish(l.events, Event{Kind: EventRunFinished, Reason: reason, At: l.state.clock()})
		l.persist()
		return true, nil
	}

	if l.cfg.StallPolicy == StallWait {
		l.logf("run %s: waiting for dependencies", l.state.RunID())
		if err := l.sleep(ctx); err != nil {
			l.state.finish(RunCanceled, "canceled while idle")
			l.persist()
			return true, err
		}
		return false, nil
	}

	retired, stallErr := l.state.detectStall()
	if stallErr != nil {
		return true, stallErr
	}
	if len(retired) == 0 {
		// Nothing provably stuck; give in-flight external conditions a
		// moment and retry.
		if err := l.sleep(ctx); err != nil {
			l.state.finish(RunCanceled, "canceled while idle")
			l.persist()
			return true, err
		}
		return false, nil
	}
	for _, blocked := range retired {
		l.logf("run %s: blocked %s: %s", l.state.RunID(), blocked.ID, blocked.Reason)
		publish(l.events, Event{Kind: EventItemBlocked, ItemID: blocked.ID, Reason: blocked.Reason, At: l.state.clock()})
	}
	l.persist()
	return false, nil
}

// finalStatus distinguishes a clean drain from one that retired items.
func (l *Loop) finalStatus() (RunStatus, string) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	_, _, completed, failed, blocked := l.state.store.counts()
	switch {
	case blocked > 0:
		return RunStalled, fmt.Sprintf("%d completed, %d failed, %d blocked", completed, failed, blocked)
	case failed > 0:
		return RunCompleted, fmt.Sprintf("%d completed, %d failed", completed, failed)
	default:
		return RunCompleted, ""
	}
}

type outcome struct {
	result   string
	produced []string
	err      error
}

// executeBatch fans the assignments out concurrently and joins on all of
// them before returning: a bulk-synchronous round. New work is not admitted
// mid-batch even if a worker frees up early.
func (l *Loop) executeBatch(ctx context.Context, assignments []Assignment) []outcome {
	outcomes := make([]outcome, len(assignments))
	var wg sync.WaitGroup
	for i, a := range assignments {
		wg.Add(1)
		go func(i int, item plan.ItemSpec) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = outcome{err: fmt.Errorf("run: executor panic: %v", r)}
				}
			}()
			result, produced, err := l.exec.Execute(ctx, item)
			outcomes[i] = outcome{result: result, produced: produced, err: err}
		}(i, a.Item)
	}
	wg.Wait()
	return outcomes
}

func (l *Loop) sleep(ctx context.Context) error {
	timer := time.NewTimer(l.cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Loop) persist() {
	if l.repo == nil {
		return
	}
	if err := l.repo.Save(l.state.Snapshot()); err != nil {
		l.logf("run %s: persist state: %v", l.state.RunID(), err)
	}
}

func (l *Loop) logf(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

func suffixReason(reason string) string {
	if reason == "" {
		return ""
	}
	return " (" + reason + ")"
}
