package feed

import (
	"strconv"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"toolfeed/internal/domain"
)

// Sink implements domain.ViewSink by sending messages to a Bubble Tea
// program. All state lives in the model; the sink only assigns entry ids.
type Sink struct {
	send func(tea.Msg)
	seq  atomic.Uint64
}

var _ domain.ViewSink = (*Sink)(nil)

// NewSink creates a sink delivering to send, usually (*tea.Program).Send.
func NewSink(send func(tea.Msg)) *Sink {
	return &Sink{send: send}
}

func (s *Sink) EnsureContainer(callID string) domain.ContainerHandle {
	s.send(ContainerMsg{CallID: callID})
	return domain.ContainerHandle{CallID: callID}
}

func (s *Sink) AppendEntry(c domain.ContainerHandle, style domain.Style, html string) domain.EntryHandle {
	id := "e" + strconv.FormatUint(s.seq.Add(1), 10)
	s.send(EntryMsg{CallID: c.CallID, ID: id, Style: style, HTML: html})
	return domain.EntryHandle{CallID: c.CallID, ID: id}
}

func (s *Sink) MergeIntoEntry(e domain.EntryHandle, styledSuffixHTML string) {
	s.send(MergeMsg{ID: e.ID, HTML: styledSuffixHTML})
}

func (s *Sink) SetBusy(busy bool) {
	s.send(BusyMsg{Busy: busy})
}

func (s *Sink) ScrollToLatest(c domain.ContainerHandle) {
	s.send(ScrollMsg{CallID: c.CallID})
}
