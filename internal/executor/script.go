package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/foremanhq/foreman/internal/plan"
)

// ScriptedGenerator replays canned outcomes keyed by item ID. Useful for
// demos and tests where no external capability is available. Items without
// an entry succeed with placeholder content.
type ScriptedGenerator struct {
	mu sync.Mutex

	// failures maps item IDs to the failure reason returned for them.
	failures map[string]string
	// delay simulates execution latency per artifact.
	delay time.Duration
	// calls records every (item, artifact) pair in invocation order.
	calls []string
}

// NewScriptedGenerator builds an empty scripted generator.
func NewScriptedGenerator() *ScriptedGenerator {
	return &ScriptedGenerator{failures: map[string]string{}}
}

// FailItem scripts a failure for the given item ID.
func (g *ScriptedGenerator) FailItem(id, reason string) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[id] = reason
	return g
}

// WithDelay adds simulated latency to every Generate call.
func (g *ScriptedGenerator) WithDelay(delay time.Duration) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = delay
	return g
}

// Calls returns the recorded (item, artifact) invocations as "item/artifact".
func (g *ScriptedGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string{}, g.calls...)
}

// Generate implements Generator.
func (g *ScriptedGenerator) Generate(ctx context.Context, item plan.ItemSpec, artifact string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, item.ID+"/"+artifact)
	reason, failing := g.failures[item.ID]
	delay := g.delay
	g.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	if failing {
		return "", fmt.Errorf("%s", reason)
	}
	return fmt.Sprintf("// %s: generated for %s\n", artifact, item.Title), nil
}
