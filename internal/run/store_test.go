package run

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foremanhq/foreman/internal/plan"
)

func TestStoreLifecycleTransitions(t *testing.T) {
	store, err := NewStore([]plan.ItemSpec{
		{ID: "a", Title: "A", Specialization: "backend"},
		{ID: "b", Title: "B", Specialization: "backend"},
	})
	require.NoError(t, err)

	now := time.Now()
	item, ok := store.Item("a")
	require.True(t, ok)

	// pending -> in progress -> completed
	require.NoError(t, item.start("w1", now))
	assert.Equal(t, ItemInProgress, item.Status)
	assert.Equal(t, "w1", item.AssignedTo)

	// an item that is already running cannot start again
	require.Error(t, item.start("w2", now))

	require.NoError(t, item.complete("done", []string{"out.md"}, now))
	store.markCompleted("a")
	assert.Equal(t, ItemCompleted, item.Status)
	assert.Empty(t, item.AssignedTo)
	assert.Equal(t, []string{"out.md"}, item.Produced)

	// terminal states reject further transitions
	require.Error(t, item.fail("late", now))
	require.Error(t, item.start("w1", now))

	assert.Equal(t, []string{"a"}, store.CompletedIDs())
	assert.True(t, store.unfinished(), "b is still pending")
}

func TestStoreViewCountsBlockedAsUnsatisfiable(t *testing.T) {
	store, err := NewStore([]plan.ItemSpec{
		{ID: "a", Title: "A", Specialization: "backend"},
		{ID: "b", Title: "B", Specialization: "backend"},
		{ID: "c", Title: "C", Specialization: "backend"},
	})
	require.NoError(t, err)
	now := time.Now()

	a, _ := store.Item("a")
	require.NoError(t, a.start("w1", now))
	require.NoError(t, a.fail("boom", now))
	store.markFailed("a")

	b, _ := store.Item("b")
	require.NoError(t, b.block("dependency a can never complete", []string{"a"}, now))

	completed, failed, inProgress := store.view()
	assert.Empty(t, completed)
	assert.Empty(t, inProgress)
	// blocked items join the failed set so their dependents resolve as blocked
	assert.Contains(t, failed, "a")
	assert.Contains(t, failed, "b")

	pending, _, _, failedCount, blocked := store.counts()
	assert.Equal(t, 1, pending)
	assert.Equal(t, 1, failedCount)
	assert.Equal(t, 1, blocked)
}

func TestNewStoreRejectsDuplicateIDs(t *testing.T) {
	_, err := NewStore([]plan.ItemSpec{
		{ID: "a", Title: "A", Specialization: "s"},
		{ID: "a", Title: "Again", Specialization: "s"},
	})
	require.Error(t, err)
}
