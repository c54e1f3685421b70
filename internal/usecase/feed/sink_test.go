package feed

import (
	"fmt"

	"toolfeed/internal/domain"
)

type sinkEntry struct {
	callID string
	style  domain.Style
	html   string
}

// recordingSink records every call made by the aggregator.
type recordingSink struct {
	containers []string
	entries    map[string]*sinkEntry
	order      []string
	busyCalls  []bool
	scrolls    []string
	nextID     int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{entries: make(map[string]*sinkEntry)}
}

func (s *recordingSink) EnsureContainer(callID string) domain.ContainerHandle {
	s.containers = append(s.containers, callID)
	return domain.ContainerHandle{CallID: callID}
}

func (s *recordingSink) AppendEntry(c domain.ContainerHandle, style domain.Style, html string) domain.EntryHandle {
	s.nextID++
	id := fmt.Sprintf("e%d", s.nextID)
	s.entries[id] = &sinkEntry{callID: c.CallID, style: style, html: html}
	s.order = append(s.order, id)
	return domain.EntryHandle{CallID: c.CallID, ID: id}
}

func (s *recordingSink) MergeIntoEntry(e domain.EntryHandle, suffix string) {
	s.entries[e.ID].html += suffix
}

func (s *recordingSink) SetBusy(busy bool) {
	s.busyCalls = append(s.busyCalls, busy)
}

func (s *recordingSink) ScrollToLatest(c domain.ContainerHandle) {
	s.scrolls = append(s.scrolls, c.CallID)
}

// lines returns the rendered entries of callID in order.
func (s *recordingSink) lines(callID string) []string {
	var out []string
	for _, id := range s.order {
		if e := s.entries[id]; e.callID == callID {
			out = append(out, e.html)
		}
	}
	return out
}
