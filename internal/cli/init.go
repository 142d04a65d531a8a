package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/foremanhq/foreman/internal/config"
	"github.com/foremanhq/foreman/internal/plan"
)

const sampleRosterYAML = `# foreman worker roster
workers:
  - id: builder-1
    name: Builder One
    role: engineer
    specialization: backend
  - id: builder-2
    name: Builder Two
    role: engineer
    specialization: frontend
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .foreman directory in the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := config.InitForemanDir(projectDir); err != nil {
				return fmt.Errorf("init: %w", err)
			}
			cfg, err := config.NewConfig(projectDir)
			if err != nil {
				return err
			}
			if err := ensureSampleRoster(cfg.RosterPath()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", cfg.ForemanProjectDir)
			fmt.Fprintf(cmd.OutOrStdout(), "edit %s to describe your workers, then run `foreman run <plan.yaml>`\n", cfg.RosterPath())
			return nil
		},
	}
}

// ensureSampleRoster writes a starter roster unless one already exists.
func ensureSampleRoster(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(sampleRosterYAML), 0644); err != nil {
		return fmt.Errorf("init: write roster: %w", err)
	}
	// Round-trip through the loader so a broken template never ships.
	if _, err := plan.LoadRoster(path); err != nil {
		return err
	}
	return nil
}
