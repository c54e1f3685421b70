package domain

// UnknownCallID is the invocation id assigned to events that arrive without one.
const UnknownCallID = "unknown"

// Phase is the lifecycle phase of a tool invocation carried in the "event" field.
type Phase string

const (
	PhaseNone     Phase = ""
	PhaseStart    Phase = "start"
	PhaseFinish   Phase = "finish"
	PhaseProgress Phase = "progress"
)

// Known reports whether p is one of the recognised lifecycle phases.
func (p Phase) Known() bool {
	switch p {
	case PhaseStart, PhaseFinish, PhaseProgress:
		return true
	}
	return false
}

// Kind classifies an event for log styling and merging ("type" on the wire).
type Kind string

const (
	KindNone       Kind = ""
	KindInfo       Kind = "info"
	KindSuccess    Kind = "success"
	KindError      Kind = "error"
	KindStdout     Kind = "stdout"
	KindStderr     Kind = "stderr"
	KindToolCall   Kind = "tool_call"
	KindToolResult Kind = "tool_result"
)

// Known reports whether k is a recognised classification.
func (k Kind) Known() bool {
	switch k {
	case KindInfo, KindSuccess, KindError, KindStdout, KindStderr, KindToolCall, KindToolResult:
		return true
	}
	return false
}

// Structural reports whether k is bookkeeping that never produces a visible entry.
func (k Kind) Structural() bool {
	return k == KindToolCall || k == KindToolResult
}

// Style maps k to the entry style used for rendering. Unrecognised kinds are plain.
func (k Kind) Style() Style {
	switch k {
	case KindInfo:
		return StyleInfo
	case KindSuccess:
		return StyleSuccess
	case KindError:
		return StyleError
	case KindStdout:
		return StyleStdout
	case KindStderr:
		return StyleStderr
	default:
		return StylePlain
	}
}

// ProgressEvent is one progress notification about a tool invocation.
// Every field is optional; unknown JSON fields are ignored.
type ProgressEvent struct {
	Tool    string         `json:"tool,omitempty"`
	Phase   Phase          `json:"event,omitempty"`
	Kind    Kind           `json:"type,omitempty"`
	CallID  string         `json:"call_id,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Result  any            `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
	Message string         `json:"message,omitempty"`
}

// ResolvedCallID returns the invocation id, substituting UnknownCallID when absent.
func (e ProgressEvent) ResolvedCallID() string {
	if e.CallID == "" {
		return UnknownCallID
	}
	return e.CallID
}

// Malformed reports whether the event carries neither a known phase nor a known kind.
func (e ProgressEvent) Malformed() bool {
	return !e.Phase.Known() && !e.Kind.Known()
}

// StringArg returns args[key] as a string, or "" if missing or not a string.
func (e ProgressEvent) StringArg(key string) string {
	if e.Args == nil {
		return ""
	}
	s, _ := e.Args[key].(string)
	return s
}
