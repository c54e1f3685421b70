// Package feed is the terminal view of the tool activity feed.
package feed

import "toolfeed/internal/domain"

// ContainerMsg ensures a container exists for CallID.
type ContainerMsg struct {
	CallID string
}

// EntryMsg appends an entry to a container.
type EntryMsg struct {
	CallID string
	ID     string
	Style  domain.Style
	HTML   string
}

// MergeMsg appends a styled suffix to an existing entry.
type MergeMsg struct {
	ID   string
	HTML string
}

// BusyMsg toggles the busy indicator.
type BusyMsg struct {
	Busy bool
}

// ScrollMsg asks the view to reveal the newest entry of CallID.
type ScrollMsg struct {
	CallID string
}

// NoticeMsg reports a background failure, such as the gateway stopping.
// A nil Err clears the notice.
type NoticeMsg struct {
	Err error
}

// contentMsg carries a content-store item to open in the modal.
type contentMsg struct {
	link    Link
	content string
	err     error
}
