package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/foremanhq/foreman/internal/config"
	"github.com/foremanhq/foreman/internal/executor"
	"github.com/foremanhq/foreman/internal/logging"
	"github.com/foremanhq/foreman/internal/plan"
	"github.com/foremanhq/foreman/internal/run"
	"github.com/foremanhq/foreman/internal/tui"
)

type runOptions struct {
	rosterPath     string
	command        string
	batchSize      int
	pollInterval   time.Duration
	timeout        time.Duration
	waitOnStall    bool
	allowUncovered bool
	noTUI          bool
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Execute a plan across the worker roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.rosterPath, "roster", "", "roster file (defaults to the configured roster)")
	cmd.Flags().StringVar(&opts.command, "command", "", "executor command invoked per artifact (overrides config)")
	cmd.Flags().IntVar(&opts.batchSize, "batch", 0, "max items dispatched per round (overrides config)")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll", 0, "idle wait between rounds (overrides config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-artifact execution deadline (overrides config)")
	cmd.Flags().BoolVar(&opts.waitOnStall, "wait-on-stall", false, "poll forever instead of retiring stuck items")
	cmd.Flags().BoolVar(&opts.allowUncovered, "allow-uncovered", false, "start even when some specializations have no worker")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "print progress lines instead of the live view")
	return cmd
}

func runPlan(cmd *cobra.Command, planPath string, opts runOptions) error {
	projectDir, err := os.Getwd()
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(projectDir, config.ForemanDir)); err != nil {
		return fmt.Errorf("no %s directory here; run `foreman init` first", config.ForemanDir)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return err
	}

	p, err := plan.LoadPlanFile(planPath)
	if err != nil {
		return err
	}
	roster, err := resolveRoster(cfg, p, opts.rosterPath)
	if err != nil {
		return err
	}
	if err := p.CheckCoverage(roster); err != nil {
		if !opts.allowUncovered {
			return fmt.Errorf("%w (use --allow-uncovered to start anyway)", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	state, err := run.NewState(p, roster)
	if err != nil {
		return err
	}
	runDir := cfg.RunDir(state.RunID())
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	command := opts.command
	if command == "" {
		command = cfg.Project.Executor.Command
	}
	if command == "" {
		return errors.New("no executor command configured; set executor.command in .foreman/config.yaml or pass --command")
	}
	gen, err := executor.NewCommandGenerator(command)
	if err != nil {
		return err
	}
	timeout := opts.timeout
	if timeout == 0 {
		timeout = cfg.Project.Executor.Timeout.Std()
	}
	adapter, err := executor.NewAdapter(gen,
		executor.WithTimeout(timeout),
		executor.WithSink(executor.NewDirSink(filepath.Join(runDir, "artifacts"))),
	)
	if err != nil {
		return err
	}

	logger, err := logging.New(projectDir)
	if err != nil {
		return err
	}
	defer logger.Close()

	loopCfg := run.DefaultLoopConfig()
	loopCfg.BatchSize = cfg.Project.Scheduler.BatchSize
	loopCfg.PollInterval = cfg.Project.Scheduler.PollInterval.Std()
	if opts.batchSize > 0 {
		loopCfg.BatchSize = opts.batchSize
	}
	if opts.pollInterval > 0 {
		loopCfg.PollInterval = opts.pollInterval
	}
	if opts.waitOnStall {
		loopCfg.StallPolicy = run.StallWait
	}

	events := make(chan run.Event, 64)
	loop, err := run.NewLoop(state, adapter, loopCfg,
		run.WithLogger(logger),
		run.WithEvents(events),
		run.WithRepository(run.NewRepository(runDir)),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d items, %d workers\n", state.RunID(), len(p.Items), len(roster))

	var runErr error
	if opts.noTUI {
		runErr = runHeadless(ctx, cmd, cfg, state, loop, events)
	} else {
		runErr = runWithTUI(ctx, cancel, state, loop, events)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	return reportOutcome(cmd, state)
}

// runHeadless drives the loop in the foreground and prints monitor samples.
// The event channel is closed once the loop returns so the drain goroutine
// finishes before the command does.
func runHeadless(ctx context.Context, cmd *cobra.Command, cfg *config.Config, state *run.State, loop *run.Loop, events chan run.Event) error {
	drained := make(chan struct{})
	go func() {
		drainEvents(ctx, cmd, events)
		close(drained)
	}()

	monitor := run.NewMonitor(state, cfg.Project.Monitor.SampleEvery.Std(), func(p run.ProgressSnapshot) {
		fmt.Fprintf(cmd.OutOrStdout(), "progress: %d/%d done, %d in progress, %d workers busy, %.0f%%\n",
			p.CompletedCount, p.TotalItems, p.InProgressCount, p.ActiveWorkers, p.PercentComplete)
	})
	go monitor.Run(ctx)

	err := loop.Run(ctx)
	close(events)
	<-drained
	return err
}

func drainEvents(ctx context.Context, cmd *cobra.Command, events <-chan run.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case run.EventItemFailed:
				fmt.Fprintf(cmd.OutOrStdout(), "failed %s: %s\n", ev.ItemID, ev.Reason)
			case run.EventItemBlocked:
				fmt.Fprintf(cmd.OutOrStdout(), "blocked %s: %s\n", ev.ItemID, ev.Reason)
			}
		}
	}
}

// runWithTUI drives the loop in the background while the live view owns the
// terminal. Quitting the view cancels the run.
func runWithTUI(ctx context.Context, cancel context.CancelFunc, state *run.State, loop *run.Loop, events chan run.Event) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(ctx)
		close(events)
	}()

	program := tea.NewProgram(tui.New(state, events, cancel))
	if _, err := program.Run(); err != nil {
		cancel()
		<-errCh
		return err
	}
	cancel()
	return <-errCh
}

func reportOutcome(cmd *cobra.Command, state *run.State) error {
	snap := state.Snapshot()
	p := snap.Progress
	fmt.Fprintf(cmd.OutOrStdout(), "run %s %s in %s: %d completed, %d failed, %d blocked of %d items\n",
		snap.RunID, snap.Status, p.Elapsed.Round(time.Second), p.CompletedCount, p.FailedCount, p.BlockedCount, p.TotalItems)
	for _, item := range snap.Items {
		switch item.Status {
		case run.ItemFailed:
			fmt.Fprintf(cmd.OutOrStdout(), "  failed  %s: %s\n", item.Spec.ID, item.Result)
		case run.ItemBlocked:
			fmt.Fprintf(cmd.OutOrStdout(), "  blocked %s: %s\n", item.Spec.ID, blockedReason(item))
		}
	}
	if snap.Status == run.RunStalled {
		return fmt.Errorf("run stalled: %s", snap.StatusReason)
	}
	return nil
}

func blockedReason(item run.Item) string {
	if item.Result != "" {
		return item.Result
	}
	if len(item.BlockedBy) > 0 {
		return "waiting on " + item.BlockedBy[0]
	}
	return "no eligible worker"
}

// resolveRoster picks the roster source: explicit flag, the plan's embedded
// roster, then the configured roster file.
func resolveRoster(cfg *config.Config, p plan.Plan, flagPath string) ([]plan.WorkerSpec, error) {
	if flagPath != "" {
		return plan.LoadRoster(flagPath)
	}
	if len(p.Roster) > 0 {
		return p.Roster, nil
	}
	return plan.LoadRoster(cfg.RosterPath())
}
