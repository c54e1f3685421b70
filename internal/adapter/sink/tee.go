package sink

import (
	"strconv"
	"sync"

	"toolfeed/internal/domain"
)

// Tee fans every call out to several sinks. Each sink keeps its own handles;
// Tee hands out its own entry ids and maps them back.
type Tee struct {
	sinks []domain.ViewSink

	mu      sync.Mutex
	next    int
	entries map[string][]domain.EntryHandle
}

// NewTee returns a sink writing to all of sinks, in order. Nil sinks are skipped.
func NewTee(sinks ...domain.ViewSink) *Tee {
	t := &Tee{entries: make(map[string][]domain.EntryHandle)}
	for _, s := range sinks {
		if s != nil {
			t.sinks = append(t.sinks, s)
		}
	}
	return t
}

func (t *Tee) EnsureContainer(callID string) domain.ContainerHandle {
	for _, s := range t.sinks {
		s.EnsureContainer(callID)
	}
	return domain.ContainerHandle{CallID: callID}
}

func (t *Tee) AppendEntry(c domain.ContainerHandle, style domain.Style, html string) domain.EntryHandle {
	handles := make([]domain.EntryHandle, len(t.sinks))
	for i, s := range t.sinks {
		handles[i] = s.AppendEntry(c, style, html)
	}

	t.mu.Lock()
	t.next++
	id := strconv.Itoa(t.next)
	t.entries[id] = handles
	t.mu.Unlock()

	return domain.EntryHandle{CallID: c.CallID, ID: id}
}

func (t *Tee) MergeIntoEntry(e domain.EntryHandle, suffix string) {
	t.mu.Lock()
	handles, ok := t.entries[e.ID]
	t.mu.Unlock()
	if !ok {
		return
	}
	for i, s := range t.sinks {
		s.MergeIntoEntry(handles[i], suffix)
	}
}

func (t *Tee) SetBusy(busy bool) {
	for _, s := range t.sinks {
		s.SetBusy(busy)
	}
}

func (t *Tee) ScrollToLatest(c domain.ContainerHandle) {
	for _, s := range t.sinks {
		s.ScrollToLatest(c)
	}
}
