package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	foremanDir := filepath.Join(projectDir, ".foreman")
	if err := os.MkdirAll(foremanDir, 0755); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, ForemanProjectDir: foremanDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.Project.Scheduler.BatchSize != defaultBatchSize {
		t.Fatalf("expected default batch size %d, got %d", defaultBatchSize, c.Project.Scheduler.BatchSize)
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	foremanDir := filepath.Join(projectDir, ".foreman")
	if err := os.MkdirAll(foremanDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
scheduler:
  batch_size: 5
  poll_interval: 2s
monitor:
  sample_every: 10s
executor:
  command: ./gen.sh
  timeout: 1m
roster: team/roster.yaml
`)
	if err := os.WriteFile(filepath.Join(foremanDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, ForemanProjectDir: foremanDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Scheduler.BatchSize != 5 {
		t.Fatalf("expected batch size 5, got %d", c.Project.Scheduler.BatchSize)
	}
	if c.Project.Scheduler.PollInterval.Std() != 2*time.Second {
		t.Fatalf("expected poll interval 2s, got %s", c.Project.Scheduler.PollInterval.Std())
	}
	if c.Project.Monitor.SampleEvery.Std() != 10*time.Second {
		t.Fatalf("expected sample interval 10s, got %s", c.Project.Monitor.SampleEvery.Std())
	}
	if c.Project.Executor.Command != "./gen.sh" {
		t.Fatalf("unexpected executor command %q", c.Project.Executor.Command)
	}
	if got := c.RosterPath(); got != filepath.Join(projectDir, "team", "roster.yaml") {
		t.Fatalf("unexpected roster path %q", got)
	}
}

func TestInitForemanDirWritesDefaultConfig(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitForemanDir(projectDir); err != nil {
		t.Fatalf("InitForemanDir returned error: %v", err)
	}
	for _, sub := range []string{"logs", "runs"} {
		if _, err := os.Stat(filepath.Join(projectDir, ".foreman", sub)); err != nil {
			t.Fatalf("expected %s directory: %v", sub, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(projectDir, ".foreman", "config.yaml"))
	if err != nil {
		t.Fatalf("expected default config file: %v", err)
	}
	if !strings.Contains(string(data), "batch_size") {
		t.Fatalf("default config missing scheduler settings")
	}
	// A second init must not clobber an existing config.
	if err := os.WriteFile(filepath.Join(projectDir, ".foreman", "config.yaml"), []byte("version: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := InitForemanDir(projectDir); err != nil {
		t.Fatalf("second InitForemanDir returned error: %v", err)
	}
	data, err = os.ReadFile(filepath.Join(projectDir, ".foreman", "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "version: 2") {
		t.Fatalf("init overwrote existing config")
	}
}
