package feed

import (
	"sort"
	"time"

	"toolfeed/internal/domain"
)

// Entry is one rendered line of an invocation's log.
type Entry struct {
	Style   domain.Style       `json:"style"`
	Text    string             `json:"text"`
	Outcome domain.Style       `json:"outcome,omitempty"` // set once an outcome was merged in
	Handle  domain.EntryHandle `json:"-"`
}

// Container is the log of one invocation. It is created on the first event
// for its call id and never removed.
type Container struct {
	CallID  string
	Handle  domain.ContainerHandle
	Entries []Entry
	pending int // index of the entry eligible for an outcome merge, -1 if none
}

// Pending returns the entry currently awaiting an outcome, if any.
func (c *Container) Pending() (Entry, bool) {
	if c.pending < 0 || c.pending >= len(c.Entries) {
		return Entry{}, false
	}
	return c.Entries[c.pending], true
}

// State is the aggregator's mutable state. It is owned by exactly one
// Aggregator and must not be shared.
type State struct {
	active     map[string]time.Time // call id -> start time
	containers map[string]*Container
	order      []string // call ids in creation order
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		active:     make(map[string]time.Time),
		containers: make(map[string]*Container),
	}
}

// IsActive reports whether callID is between start and finish.
func (s *State) IsActive(callID string) bool {
	_, ok := s.active[callID]
	return ok
}

// Active returns the active call ids in sorted order.
func (s *State) Active() []string {
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Container returns the container for callID.
func (s *State) Container(callID string) (*Container, bool) {
	c, ok := s.containers[callID]
	return c, ok
}

// Len returns the number of containers.
func (s *State) Len() int { return len(s.order) }

// Snapshot is a point-in-time copy of the aggregator state.
type Snapshot struct {
	Busy       bool                `json:"busy"`
	Active     []string            `json:"active"`
	Containers []ContainerSnapshot `json:"containers"`
}

// ContainerSnapshot is the copied log of one invocation.
type ContainerSnapshot struct {
	CallID  string  `json:"call_id"`
	Entries []Entry `json:"entries"`
	Pending int     `json:"pending"`
}

func (s *State) snapshot() Snapshot {
	snap := Snapshot{
		Busy:       len(s.active) > 0,
		Active:     s.Active(),
		Containers: make([]ContainerSnapshot, 0, len(s.order)),
	}
	for _, id := range s.order {
		c := s.containers[id]
		entries := make([]Entry, len(c.Entries))
		copy(entries, c.Entries)
		snap.Containers = append(snap.Containers, ContainerSnapshot{
			CallID:  c.CallID,
			Entries: entries,
			Pending: c.pending,
		})
	}
	return snap
}
