package gateway

import (
	"encoding/json"

	"toolfeed/internal/domain"
)

// FrameType identifies the kind of frame sent over the WebSocket connection.
type FrameType string

const (
	FrameTypeRequest  FrameType = "request"
	FrameTypeResponse FrameType = "response"
	// FrameTypeEvent frames carry a progress event from producer to server, or
	// a view.* event from server to viewers.
	FrameTypeEvent FrameType = "event"
	// FrameTypeError answers an event frame that was rejected.
	FrameTypeError FrameType = "error"
)

// Frame is the envelope exchanged between client and server over WebSocket.
type Frame struct {
	Type    FrameType        `json:"type"`
	ID      uint64           `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Payload json.RawMessage  `json:"payload,omitempty"`
	Error   string           `json:"error,omitempty"`
	Code    domain.ErrorCode `json:"code,omitempty"`
}

func errorFrame(id uint64, t FrameType, err error) Frame {
	return Frame{
		Type:  t,
		ID:    id,
		Error: err.Error(),
		Code:  domain.ErrorCodeOf(err),
	}
}
