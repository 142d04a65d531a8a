package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foremanhq/foreman/internal/plan"
)

// Generator produces the content of one expected artifact for a work item.
// Implementations perform the actual work (a code generation service, a
// shelled-out agent); the scheduler core is agnostic to what happens inside.
type Generator interface {
	Generate(ctx context.Context, item plan.ItemSpec, artifact string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, item plan.ItemSpec, artifact string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, item plan.ItemSpec, artifact string) (string, error) {
	return f(ctx, item, artifact)
}

// Sink receives artifact content produced during a run.
type Sink interface {
	Write(itemID, artifact, content string) error
}

// Adapter drives a Generator once per expected artifact of a dispatched item
// and folds the results into a single item outcome. Any artifact error fails
// the item immediately; remaining artifacts are not attempted.
type Adapter struct {
	gen Generator
	// timeout bounds each Generate call so a hung external capability
	// cannot stall its batch indefinitely. Zero disables the deadline.
	timeout time.Duration
	sink    Sink
}

// AdapterOption customizes an Adapter.
type AdapterOption func(*Adapter)

// WithTimeout sets the per-artifact execution deadline.
func WithTimeout(timeout time.Duration) AdapterOption {
	return func(a *Adapter) { a.timeout = timeout }
}

// WithSink persists every produced artifact as it arrives.
func WithSink(sink Sink) AdapterOption {
	return func(a *Adapter) { a.sink = sink }
}

// NewAdapter wraps a Generator in the scheduler's execution contract.
func NewAdapter(gen Generator, opts ...AdapterOption) (*Adapter, error) {
	if gen == nil {
		return nil, fmt.Errorf("executor: generator is required")
	}
	a := &Adapter{gen: gen}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Execute implements the scheduling loop's executor contract.
func (a *Adapter) Execute(ctx context.Context, item plan.ItemSpec) (string, []string, error) {
	if len(item.Artifacts) == 0 {
		return "no artifacts expected", nil, nil
	}
	produced := make([]string, 0, len(item.Artifacts))
	for _, artifact := range item.Artifacts {
		content, err := a.generateOne(ctx, item, artifact)
		if err != nil {
			return "", produced, fmt.Errorf("executor: item %s artifact %s: %w", item.ID, artifact, err)
		}
		if a.sink != nil {
			if err := a.sink.Write(item.ID, artifact, content); err != nil {
				return "", produced, fmt.Errorf("executor: item %s artifact %s: store: %w", item.ID, artifact, err)
			}
		}
		produced = append(produced, artifact)
	}
	return fmt.Sprintf("produced %s", strings.Join(produced, ", ")), produced, nil
}

func (a *Adapter) generateOne(ctx context.Context, item plan.ItemSpec, artifact string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.gen.Generate(ctx, item, artifact)
}
