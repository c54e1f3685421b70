package domain

// Style is the visual classification of a rendered entry.
type Style string

const (
	StyleInfo    Style = "info"
	StyleSuccess Style = "success"
	StyleError   Style = "error"
	StyleStdout  Style = "stdout"
	StyleStderr  Style = "stderr"
	StylePlain   Style = "plain"
)

// ContainerHandle identifies the visual container of one invocation.
type ContainerHandle struct {
	CallID string
}

// EntryHandle identifies one rendered entry inside a container.
// ID is sink-assigned and opaque to the aggregator.
type EntryHandle struct {
	CallID string
	ID     string
}

// ViewSink is the render target driven by the feed aggregator.
// Implementations must not call back into the aggregator.
type ViewSink interface {
	// EnsureContainer returns the container for callID, creating it if needed.
	EnsureContainer(callID string) ContainerHandle
	// AppendEntry adds a new line to a container.
	AppendEntry(c ContainerHandle, style Style, html string) EntryHandle
	// MergeIntoEntry appends an already-styled suffix to an existing entry.
	MergeIntoEntry(e EntryHandle, styledSuffixHTML string)
	// SetBusy toggles the global busy indicator.
	SetBusy(busy bool)
	// ScrollToLatest scrolls the view to the newest entry of c.
	ScrollToLatest(c ContainerHandle)
}

// ContentStore holds large payloads referenced from log entries by index.
// Indices are stable for the lifetime of the store; nothing is evicted.
type ContentStore interface {
	Push(content string) int
	Get(index int) (string, error)
	Len() int
}
