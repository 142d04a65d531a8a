package executor

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foremanhq/foreman/internal/plan"
)

func TestNewCommandGeneratorRejectsEmptyCommand(t *testing.T) {
	_, err := NewCommandGenerator("   ")
	require.Error(t, err)
}

func TestNewCommandGeneratorSplitsArgs(t *testing.T) {
	gen, err := NewCommandGenerator("mytool --flag value")
	require.NoError(t, err)
	assert.Equal(t, "mytool", gen.command)
	assert.Equal(t, []string{"--flag", "value"}, gen.args)
}

func TestNewCommandGeneratorPreservesQuotedArgs(t *testing.T) {
	gen, err := NewCommandGenerator(`claude -p "act as a backend engineer" --model 'opus latest'`)
	require.NoError(t, err)
	assert.Equal(t, "claude", gen.command)
	assert.Equal(t, []string{"-p", "act as a backend engineer", "--model", "opus latest"}, gen.args)
}

func TestNewCommandGeneratorQuotedEmptyArg(t *testing.T) {
	gen, err := NewCommandGenerator(`mytool ""`)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, gen.args)
}

func TestNewCommandGeneratorRejectsUnterminatedQuote(t *testing.T) {
	_, err := NewCommandGenerator(`mytool -p "half open`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")
}

func TestCommandGeneratorCapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on cat")
	}
	// cat echoes the prompt back, so stdout doubles as a prompt check
	gen, err := NewCommandGenerator("cat")
	require.NoError(t, err)

	item := plan.ItemSpec{ID: "a", Title: "A", Specialization: "backend"}
	out, err := gen.Generate(context.Background(), item, "out.md")
	require.NoError(t, err)
	assert.Contains(t, out, "**ID**: a")
	assert.Contains(t, out, "**Target artifact**: out.md")
}

func TestCommandGeneratorReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on false")
	}
	gen, err := NewCommandGenerator("false")
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), plan.ItemSpec{ID: "a", Title: "A", Specialization: "s"}, "out.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with error")
}

func TestBuildPromptIncludesAcceptanceCriteria(t *testing.T) {
	item := plan.ItemSpec{
		ID:             "build",
		Title:          "Build the API",
		Description:    "Implement the endpoints",
		Specialization: "backend",
		Acceptance:     []string{"endpoints return JSON", "errors use problem detail"},
	}
	prompt := BuildPrompt(item, "api/server.go")

	assert.Contains(t, prompt, "**Title**: Build the API")
	assert.Contains(t, prompt, "**Description**: Implement the endpoints")
	assert.Contains(t, prompt, "**Target artifact**: api/server.go")
	assert.Contains(t, prompt, "1. endpoints return JSON")
	assert.Contains(t, prompt, "2. errors use problem detail")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(prompt), "Output nothing but the artifact content."))
}

func TestBuildPromptOmitsEmptySections(t *testing.T) {
	prompt := BuildPrompt(plan.ItemSpec{ID: "a", Title: "A", Specialization: "s"}, "out.md")
	assert.NotContains(t, prompt, "**Description**")
	assert.NotContains(t, prompt, "Acceptance Criteria")
}
