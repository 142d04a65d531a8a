package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/foremanhq/foreman/internal/config"
	"github.com/foremanhq/foreman/internal/run"
)

var (
	statusHeaderStyle = lipgloss.NewStyle().Bold(true)
	statusDimStyle    = lipgloss.NewStyle().Faint(true)
)

func newStatusCmd() *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest run's progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := config.NewConfig(projectDir)
			if err != nil {
				return err
			}

			var snap run.Snapshot
			if runID != "" {
				snap, err = run.NewRepository(cfg.RunDir(runID)).Load()
			} else {
				snap, err = run.LatestSnapshot(cfg.RunsDir())
			}
			if errors.Is(err, run.ErrSnapshotNotFound) {
				return fmt.Errorf("no runs recorded yet; start one with `foreman run <plan.yaml>`")
			}
			if err != nil {
				return err
			}

			renderStatus(cmd, snap)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "inspect a specific run instead of the latest")
	return cmd
}

func renderStatus(cmd *cobra.Command, snap run.Snapshot) {
	out := cmd.OutOrStdout()
	name := snap.PlanName
	if name == "" {
		name = snap.PlanID
	}
	fmt.Fprintln(out, statusHeaderStyle.Render(fmt.Sprintf("%s  [%s]", name, snap.RunID)))
	fmt.Fprintf(out, "status: %s", snap.Status)
	if snap.StatusReason != "" {
		fmt.Fprintf(out, " (%s)", snap.StatusReason)
	}
	fmt.Fprintln(out)

	p := snap.Progress
	fmt.Fprintf(out, "items: %d/%d completed, %d in progress, %d pending, %d failed, %d blocked\n",
		p.CompletedCount, p.TotalItems, p.InProgressCount, p.PendingCount, p.FailedCount, p.BlockedCount)
	fmt.Fprintf(out, "workers: %d/%d busy\n", p.ActiveWorkers, p.TotalWorkers)
	if !snap.StartedAt.IsZero() {
		fmt.Fprintf(out, "elapsed: %s", snap.UpdatedAt.Sub(snap.StartedAt).Round(time.Second))
		if !snap.Deadline.IsZero() {
			fmt.Fprintf(out, "  deadline: %s", snap.Deadline.Format(time.RFC3339))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out)
	for _, item := range snap.Items {
		line := fmt.Sprintf("  %-12s %-14s %s", item.Status, item.Spec.ID, item.Spec.Title)
		if item.Status == run.ItemBlocked || item.Status == run.ItemFailed {
			line += statusDimStyle.Render("  " + item.Result)
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	for _, worker := range snap.Workers {
		line := fmt.Sprintf("  %-12s %-14s %s (%d completed)", worker.Status, worker.Spec.ID, worker.Spec.Specialization, worker.Completed)
		if worker.CurrentItem != "" {
			line += statusDimStyle.Render("  on " + worker.CurrentItem)
		}
		fmt.Fprintln(out, line)
	}
}
