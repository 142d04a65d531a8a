package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/foremanhq/foreman/internal/plan"
)

// NodeState represents the resolver's understanding of an item's readiness.
type NodeState string

const (
	NodeStateUnknown    NodeState = "unknown"
	NodeStatePending    NodeState = "pending"
	NodeStateReady      NodeState = "ready"
	NodeStateInProgress NodeState = "in_progress"
	NodeStateBlocked    NodeState = "blocked"
	NodeStateComplete   NodeState = "complete"
	NodeStateFailed     NodeState = "failed"
)

// Terminal reports whether the state can no longer change during a run.
func (s NodeState) Terminal() bool {
	switch s {
	case NodeStateComplete, NodeStateFailed, NodeStateBlocked:
		return true
	}
	return false
}

// Node captures a work item plus its dependency metadata.
type Node struct {
	ID           string
	Spec         plan.ItemSpec
	Dependencies []string
	Dependents   []string

	State NodeState
	// BlockedBy lists the dependency IDs preventing this node from ever
	// becoming ready (failed or themselves blocked).
	BlockedBy []string
}

// RunView tells the resolver what the run currently knows about each item.
// Items absent from every set are treated as not yet started.
type RunView struct {
	Completed  map[string]struct{}
	Failed     map[string]struct{}
	InProgress map[string]struct{}
}

// Resolver builds and evaluates the work-item dependency graph.
type Resolver struct {
	plan       plan.Plan
	nodes      map[string]*Node
	orderedIDs []string
	topoIDs    []string
}

// New constructs a resolver for the provided plan. The dependency graph is
// topologically checked immediately: cycles and dangling references are
// configuration errors surfaced at load time, not at dispatch time.
func New(p plan.Plan) (*Resolver, error) {
	normalized, err := p.Normalized()
	if err != nil {
		return nil, err
	}
	nodes := make(map[string]*Node, len(normalized.Items))
	ordered := make([]string, 0, len(normalized.Items))
	for _, spec := range normalized.Items {
		nodes[spec.ID] = &Node{
			ID:           spec.ID,
			Spec:         spec,
			Dependencies: append([]string{}, spec.DependsOn...),
			State:        NodeStateUnknown,
		}
		ordered = append(ordered, spec.ID)
	}
	for _, node := range nodes {
		for _, depID := range node.Dependencies {
			dep, ok := nodes[depID]
			if !ok {
				return nil, fmt.Errorf("plan %s: dependency %s referenced by %s not declared", normalized.ID, depID, node.ID)
			}
			dep.Dependents = append(dep.Dependents, node.ID)
		}
	}
	for _, node := range nodes {
		if len(node.Dependents) > 1 {
			sort.Strings(node.Dependents)
		}
	}
	topo, err := topologicalOrder(normalized.ID, nodes, ordered)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		plan:       normalized,
		nodes:      nodes,
		orderedIDs: ordered,
		topoIDs:    topo,
	}, nil
}

// Plan returns a clone of the resolver's plan.
func (r *Resolver) Plan() plan.Plan {
	return r.plan.Clone()
}

// Nodes returns the nodes in plan declaration order.
func (r *Resolver) Nodes() []*Node {
	out := make([]*Node, 0, len(r.orderedIDs))
	for _, id := range r.orderedIDs {
		out = append(out, r.nodes[id])
	}
	return out
}

// Node retrieves a specific node by item ID.
func (r *Resolver) Node(id string) (*Node, bool) {
	node, ok := r.nodes[id]
	return node, ok
}

// Refresh re-evaluates readiness from the supplied run view. Nodes are
// visited in topological order so a failed dependency propagates blocked
// state through its entire dependent chain in a single pass.
func (r *Resolver) Refresh(view RunView) {
	for _, id := range r.topoIDs {
		node := r.nodes[id]
		node.BlockedBy = nil
		switch {
		case contains(view.Completed, id):
			node.State = NodeStateComplete
		case contains(view.Failed, id):
			node.State = NodeStateFailed
		case contains(view.InProgress, id):
			node.State = NodeStateInProgress
		default:
			node.State = r.pendingState(node)
		}
	}
}

// pendingState classifies a not-yet-started node from its dependencies.
// Dependencies are already classified because of topological visit order.
func (r *Resolver) pendingState(node *Node) NodeState {
	var blockers []string
	incomplete := 0
	for _, depID := range node.Dependencies {
		dep := r.nodes[depID]
		switch dep.State {
		case NodeStateComplete:
		case NodeStateFailed, NodeStateBlocked:
			blockers = append(blockers, depID)
		default:
			incomplete++
		}
	}
	if len(blockers) > 0 {
		node.BlockedBy = blockers
		return NodeStateBlocked
	}
	if incomplete > 0 {
		return NodeStatePending
	}
	return NodeStateReady
}

// Ready returns ready nodes in plan declaration order. A FAILED dependency is
// neither satisfied nor ignored: its dependents simply never appear here.
func (r *Resolver) Ready() []*Node {
	var ready []*Node
	for _, id := range r.orderedIDs {
		if node := r.nodes[id]; node.State == NodeStateReady {
			ready = append(ready, node)
		}
	}
	return ready
}

// Blocked returns nodes that can never run because a dependency failed or is
// itself blocked.
func (r *Resolver) Blocked() []*Node {
	var blocked []*Node
	for _, id := range r.orderedIDs {
		if node := r.nodes[id]; node.State == NodeStateBlocked {
			blocked = append(blocked, node)
		}
	}
	return blocked
}

// Order returns every item ID in a valid execution order (dependencies before
// dependents).
func (r *Resolver) Order() []string {
	out := make([]string, len(r.topoIDs))
	copy(out, r.topoIDs)
	return out
}

// topologicalOrder produces a dependency-first ordering via DFS, rejecting
// cycles with the full path in the error.
func topologicalOrder(planID string, nodes map[string]*Node, ordered []string) ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	marks := make(map[string]int, len(nodes))
	result := make([]string, 0, len(nodes))
	var path []string
	var visit func(id string) error
	visit = func(id string) error {
		switch marks[id] {
		case done:
			return nil
		case visiting:
			cycle := append(path[indexOf(path, id):], id)
			return fmt.Errorf("plan %s: dependency cycle: %s", planID, strings.Join(cycle, " -> "))
		}
		marks[id] = visiting
		path = append(path, id)
		for _, dep := range nodes[id].Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		marks[id] = done
		result = append(result, id)
		return nil
	}
	for _, id := range ordered {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return 0
}

func contains(set map[string]struct{}, id string) bool {
	if set == nil {
		return false
	}
	_, ok := set[id]
	return ok
}
