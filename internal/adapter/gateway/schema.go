package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"toolfeed/internal/domain"
)

// progressEventSchema checks the JSON types of the fields the feed reads.
// Unknown fields and unknown phase or kind values are accepted; the
// aggregator renders those with its fallback.
const progressEventSchema = `{
  "type": "object",
  "properties": {
    "tool":    {"type": ["string", "null"]},
    "event":   {"type": ["string", "null"]},
    "type":    {"type": ["string", "null"]},
    "call_id": {"type": ["string", "null"]},
    "args":    {"type": ["object", "null"]},
    "error":   {"type": ["string", "null"]},
    "message": {"type": ["string", "null"]}
  }
}`

// eventValidator decodes and validates inbound progress events.
type eventValidator struct {
	schema *jsonschema.Schema
}

func newEventValidator() (*eventValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("progress_event.json", strings.NewReader(progressEventSchema)); err != nil {
		return nil, fmt.Errorf("add progress event schema: %w", err)
	}
	schema, err := compiler.Compile("progress_event.json")
	if err != nil {
		return nil, fmt.Errorf("compile progress event schema: %w", err)
	}
	return &eventValidator{schema: schema}, nil
}

// Decode validates raw and decodes it into a ProgressEvent.
func (v *eventValidator) Decode(raw json.RawMessage) (domain.ProgressEvent, error) {
	var ev domain.ProgressEvent
	if len(raw) == 0 {
		return ev, domain.NewDomainError("gateway.Decode", domain.ErrInvalidFrame, "missing payload")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return ev, domain.NewDomainError("gateway.Decode", domain.ErrInvalidFrame, err.Error())
	}
	if err := v.schema.Validate(doc); err != nil {
		return ev, domain.NewDomainError("gateway.Decode", domain.ErrInvalidFrame, err.Error())
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, domain.NewDomainError("gateway.Decode", domain.ErrInvalidFrame, err.Error())
	}
	return ev, nil
}
