// internal/config/config.go
//
// This package handles configuration and the .foreman directory structure.
// Every project that uses foreman gets a .foreman/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ForemanDir is the name of the directory we create in each project
	ForemanDir = ".foreman"

	defaultBatchSize    = 3
	defaultPollInterval = 5 * time.Second
	defaultSampleEvery  = 30 * time.Second
)

const defaultProjectConfigYAML = `# foreman project configuration
version: 1

scheduler:
  # Maximum work items dispatched per scheduling round.
  batch_size: 3
  # How long to wait before re-checking readiness when nothing is dispatchable.
  poll_interval: 5s

monitor:
  # How often the progress monitor emits a snapshot.
  sample_every: 30s

executor:
  # Command invoked once per (item, artifact). The prompt is passed on stdin
  # and stdout is captured as the artifact content. Arguments are split on
  # whitespace; quote an argument to keep spaces inside it. Leave empty to
  # require --command at run time.
  command: ""
  # Per-artifact execution deadline. Zero disables the deadline.
  timeout: 10m

# Worker roster file, relative to the project root.
roster: .foreman/roster.yaml
`

// Duration wraps time.Duration so YAML values like "5s" decode cleanly.
type Duration time.Duration

// UnmarshalYAML parses a duration from either a string ("30s") or a bare
// number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		var seconds int64
		if numErr := value.Decode(&seconds); numErr != nil {
			return fmt.Errorf("config: invalid duration %q: %w", raw, err)
		}
		parsed = time.Duration(seconds) * time.Second
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SchedulerConfig captures dispatch constraints.
type SchedulerConfig struct {
	BatchSize    int      `yaml:"batch_size"`
	PollInterval Duration `yaml:"poll_interval"`
}

// MonitorConfig captures progress monitor settings.
type MonitorConfig struct {
	SampleEvery Duration `yaml:"sample_every"`
}

// ExecutorConfig captures how dispatched items are executed.
type ExecutorConfig struct {
	Command string   `yaml:"command"`
	Timeout Duration `yaml:"timeout"`
}

// ProjectConfig models .foreman/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Roster    string          `yaml:"roster"`
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Scheduler: SchedulerConfig{
			BatchSize:    defaultBatchSize,
			PollInterval: Duration(defaultPollInterval),
		},
		Monitor: MonitorConfig{
			SampleEvery: Duration(defaultSampleEvery),
		},
		Executor: ExecutorConfig{
			Timeout: Duration(10 * time.Minute),
		},
		Roster: filepath.Join(ForemanDir, "roster.yaml"),
	}
}

// Config holds the runtime configuration for foreman.
type Config struct {
	// ProjectDir is the directory where the user ran `foreman` from
	ProjectDir string

	// ForemanProjectDir is ProjectDir/.foreman
	ForemanProjectDir string

	Project ProjectConfig
}

// InitForemanDir creates the .foreman directory structure in the given
// project directory.
//
// Structure created:
// .foreman/
// ├── logs/   <- scheduling activity log
// └── runs/   <- per-run state snapshots and generated artifacts
func InitForemanDir(projectDir string) error {
	foremanDir := filepath.Join(projectDir, ForemanDir)

	dirs := []string{
		filepath.Join(foremanDir, "logs"),
		filepath.Join(foremanDir, "runs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return ensureProjectConfig(filepath.Join(foremanDir, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		ForemanProjectDir: filepath.Join(projectDir, ForemanDir),
		Project:           defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.ForemanProjectDir, "logs")
}

// RunsDir returns the directory that holds per-run state and artifacts.
func (c *Config) RunsDir() string {
	return filepath.Join(c.ForemanProjectDir, "runs")
}

// RunDir returns the state directory for a specific run.
func (c *Config) RunDir(runID string) string {
	return filepath.Join(c.RunsDir(), runID)
}

// RosterPath returns the on-disk location of the worker roster.
func (c *Config) RosterPath() string {
	if filepath.IsAbs(c.Project.Roster) {
		return c.Project.Roster
	}
	return filepath.Join(c.ProjectDir, c.Project.Roster)
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ForemanProjectDir, "config.yaml")
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if parsed.Scheduler.BatchSize <= 0 {
		parsed.Scheduler.BatchSize = defaultBatchSize
	}
	if parsed.Scheduler.PollInterval <= 0 {
		parsed.Scheduler.PollInterval = Duration(defaultPollInterval)
	}
	if parsed.Monitor.SampleEvery <= 0 {
		parsed.Monitor.SampleEvery = Duration(defaultSampleEvery)
	}
	if parsed.Roster == "" {
		parsed.Roster = filepath.Join(ForemanDir, "roster.yaml")
	}
	c.Project = parsed
	return nil
}

// ensureProjectConfig writes the default config file when none exists yet.
func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}
