package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"toolfeed/internal/domain"
)

// Default is the fallback formatter used for unknown tools, failed tool
// formatters and events with no recognised phase.
func Default(ev domain.ProgressEvent) string {
	tool := Escape(ev.Tool)
	switch ev.Phase {
	case domain.PhaseStart:
		return fmt.Sprintf("[%s] starting", tool)
	case domain.PhaseFinish:
		if ev.Error != "" {
			return "<span class='error'>Error:</span> " + Escape(ev.Error)
		}
		return fmt.Sprintf("[%s] finished", tool)
	default:
		return "<pre>" + Escape(dump(ev)) + "</pre>"
	}
}

func dump(ev domain.ProgressEvent) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ev); err != nil {
		return fmt.Sprintf("%+v", ev)
	}
	return strings.TrimRight(buf.String(), "\n")
}
