package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	// Ingest events.
	EventProgressReceived EventType = "progress.received"
	EventFeedSweep        EventType = "feed.sweep"

	// View events, mirrored from ViewSink calls for remote viewers.
	EventViewContainer EventType = "view.container"
	EventViewEntry     EventType = "view.entry"
	EventViewMerge     EventType = "view.merge"
	EventViewBusy      EventType = "view.busy"
	EventViewScroll    EventType = "view.scroll"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event of the given type.
// A payload that fails to marshal yields an event with no payload.
func NewEvent(t EventType, payload any) Event {
	ev := Event{Type: t, Timestamp: time.Now()}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = raw
		}
	}
	return ev
}

// ViewPayload is the payload of every view.* event.
type ViewPayload struct {
	CallID  string `json:"call_id,omitempty"`
	EntryID string `json:"entry_id,omitempty"`
	Style   Style  `json:"style,omitempty"`
	HTML    string `json:"html,omitempty"`
	Busy    *bool  `json:"busy,omitempty"`
}

// SweepPayload is the payload of EventFeedSweep.
type SweepPayload struct {
	Now time.Time `json:"now"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for feed events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
