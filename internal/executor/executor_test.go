package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foremanhq/foreman/internal/plan"
)

func twoArtifactItem() plan.ItemSpec {
	return plan.ItemSpec{
		ID:             "design",
		Title:          "Design the API",
		Specialization: "backend",
		Artifacts:      []string{"docs/api.md", "docs/schema.md"},
	}
}

func TestAdapterInvokesGeneratorPerArtifact(t *testing.T) {
	gen := NewScriptedGenerator()
	adapter, err := NewAdapter(gen)
	require.NoError(t, err)

	result, produced, err := adapter.Execute(context.Background(), twoArtifactItem())
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/api.md", "docs/schema.md"}, produced)
	assert.Contains(t, result, "produced")
	assert.Equal(t, []string{"design/docs/api.md", "design/docs/schema.md"}, gen.Calls())
}

func TestAdapterSucceedsWithoutArtifacts(t *testing.T) {
	called := false
	adapter, err := NewAdapter(GeneratorFunc(func(ctx context.Context, item plan.ItemSpec, artifact string) (string, error) {
		called = true
		return "", nil
	}))
	require.NoError(t, err)

	result, produced, err := adapter.Execute(context.Background(), plan.ItemSpec{ID: "a", Title: "A", Specialization: "s"})
	require.NoError(t, err)
	assert.Empty(t, produced)
	assert.Contains(t, result, "no artifacts")
	assert.False(t, called, "the generator is not invoked for artifact-free items")
}

func TestAdapterStopsAtFirstFailedArtifact(t *testing.T) {
	gen := NewScriptedGenerator()
	calls := 0
	adapter, err := NewAdapter(GeneratorFunc(func(ctx context.Context, item plan.ItemSpec, artifact string) (string, error) {
		calls++
		if artifact == "docs/api.md" {
			return "", errors.New("generation refused")
		}
		return gen.Generate(ctx, item, artifact)
	}))
	require.NoError(t, err)

	_, produced, err := adapter.Execute(context.Background(), twoArtifactItem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docs/api.md")
	assert.Empty(t, produced)
	assert.Equal(t, 1, calls, "remaining artifacts are not attempted after a failure")
}

func TestAdapterTimeoutCancelsGeneration(t *testing.T) {
	gen := NewScriptedGenerator().WithDelay(time.Second)
	adapter, err := NewAdapter(gen, WithTimeout(10*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, _, err = adapter.Execute(context.Background(), twoArtifactItem())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAdapterWritesArtifactsThroughSink(t *testing.T) {
	dir := t.TempDir()
	adapter, err := NewAdapter(NewScriptedGenerator(), WithSink(NewDirSink(dir)))
	require.NoError(t, err)

	_, produced, err := adapter.Execute(context.Background(), twoArtifactItem())
	require.NoError(t, err)
	require.Len(t, produced, 2)

	// path separators in artifact names are flattened inside the item dir
	content, err := os.ReadFile(filepath.Join(dir, "design", "docs__api.md"))
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}

func TestAdapterScriptedFailure(t *testing.T) {
	gen := NewScriptedGenerator().FailItem("design", "reviewer rejected the draft")
	adapter, err := NewAdapter(gen)
	require.NoError(t, err)

	_, _, err = adapter.Execute(context.Background(), twoArtifactItem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reviewer rejected the draft")
}

func TestNewAdapterRequiresGenerator(t *testing.T) {
	_, err := NewAdapter(nil)
	require.Error(t, err)
}
