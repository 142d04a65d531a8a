package run

import (
	"fmt"

	"github.com/foremanhq/foreman/internal/plan"
)

// Store holds the full set of work items for a run. It is pure data: lookup
// and update only, no scheduling behavior. All mutation happens on the
// scheduling loop's goroutine; concurrent readers go through State.Snapshot.
type Store struct {
	items   map[string]*Item
	ordered []string

	// Terminal buckets, appended in completion order. Items are never
	// deleted during a run.
	completed []string
	failed    []string
}

// NewStore builds a store from validated item specifications.
func NewStore(specs []plan.ItemSpec) (*Store, error) {
	s := &Store{items: make(map[string]*Item, len(specs))}
	for _, spec := range specs {
		if _, exists := s.items[spec.ID]; exists {
			return nil, fmt.Errorf("run: duplicate item id %s", spec.ID)
		}
		s.items[spec.ID] = &Item{Spec: spec, Status: ItemPending}
		s.ordered = append(s.ordered, spec.ID)
	}
	return s, nil
}

// Item looks up an item by ID.
func (s *Store) Item(id string) (*Item, bool) {
	item, ok := s.items[id]
	return item, ok
}

// Items returns all items in declaration order.
func (s *Store) Items() []*Item {
	out := make([]*Item, 0, len(s.ordered))
	for _, id := range s.ordered {
		out = append(out, s.items[id])
	}
	return out
}

// Len returns the total number of items.
func (s *Store) Len() int { return len(s.ordered) }

// CompletedIDs returns item IDs that finished successfully, in completion
// order.
func (s *Store) CompletedIDs() []string {
	return append([]string{}, s.completed...)
}

// FailedIDs returns item IDs that failed, in failure order.
func (s *Store) FailedIDs() []string {
	return append([]string{}, s.failed...)
}

// view summarizes item statuses for the dependency resolver.
func (s *Store) view() (completed, failed, inProgress map[string]struct{}) {
	completed = make(map[string]struct{})
	failed = make(map[string]struct{})
	inProgress = make(map[string]struct{})
	for id, item := range s.items {
		switch item.Status {
		case ItemCompleted:
			completed[id] = struct{}{}
		case ItemFailed, ItemBlocked:
			failed[id] = struct{}{}
		case ItemInProgress:
			inProgress[id] = struct{}{}
		}
	}
	return completed, failed, inProgress
}

// counts tallies items per status.
func (s *Store) counts() (pending, inProgress, completed, failed, blocked int) {
	for _, item := range s.items {
		switch item.Status {
		case ItemPending:
			pending++
		case ItemInProgress:
			inProgress++
		case ItemCompleted:
			completed++
		case ItemFailed:
			failed++
		case ItemBlocked:
			blocked++
		}
	}
	return
}

// unfinished reports whether any item has not reached a terminal status.
func (s *Store) unfinished() bool {
	for _, item := range s.items {
		if !item.Status.Terminal() {
			return true
		}
	}
	return false
}

// markCompleted appends the item to the completed bucket.
func (s *Store) markCompleted(id string) { s.completed = append(s.completed, id) }

// markFailed appends the item to the failed bucket.
func (s *Store) markFailed(id string) { s.failed = append(s.failed, id) }
