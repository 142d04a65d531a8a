package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foremanhq/foreman/internal/config"
	"github.com/foremanhq/foreman/internal/plan"
	"github.com/foremanhq/foreman/internal/plan/resolver"
)

func newValidateCmd() *cobra.Command {
	var rosterPath string
	cmd := &cobra.Command{
		Use:   "validate <plan.yaml>",
		Short: "Check a plan for structural problems without running it",
		Long: `validate loads a plan, verifies item references and dependency edges,
rejects cycles, and reports the execution order items would complete in.
When a roster is available it also checks specialization coverage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.LoadPlanFile(args[0])
			if err != nil {
				return err
			}
			res, err := resolver.New(p)
			if err != nil {
				return err
			}

			roster, rosterSource, err := optionalRoster(p, rosterPath)
			if err != nil {
				return err
			}
			if len(roster) > 0 {
				if err := p.CheckCoverage(roster); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "plan %s: %d items, no cycles\n", p.ID, len(p.Items))
			if rosterSource != "" {
				fmt.Fprintf(out, "roster %s: %d workers, all specializations covered\n", rosterSource, len(roster))
			} else {
				fmt.Fprintln(out, "no roster found; skipping coverage check")
			}
			fmt.Fprintf(out, "execution order: %s\n", strings.Join(res.Order(), ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&rosterPath, "roster", "", "roster file to check coverage against")
	return cmd
}

// optionalRoster finds a roster for coverage checking without requiring one:
// the flag, the plan's embedded roster, then the configured roster file if it
// exists.
func optionalRoster(p plan.Plan, flagPath string) ([]plan.WorkerSpec, string, error) {
	if flagPath != "" {
		roster, err := plan.LoadRoster(flagPath)
		return roster, flagPath, err
	}
	if len(p.Roster) > 0 {
		return p.Roster, "(embedded in plan)", nil
	}
	projectDir, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, "", err
	}
	path := cfg.RosterPath()
	if _, err := os.Stat(path); err != nil {
		return nil, "", nil
	}
	roster, err := plan.LoadRoster(path)
	return roster, path, err
}
