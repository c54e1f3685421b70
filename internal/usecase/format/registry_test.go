package format

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolfeed/internal/adapter/contentstore"
	"toolfeed/internal/domain"
)

func newTestRegistry(t *testing.T) (*Registry, *contentstore.Memory) {
	t.Helper()
	store := contentstore.NewMemory()
	return NewRegistry(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestEveryKnownToolHasFormatter(t *testing.T) {
	table := builtinFormatters()
	for k := ToolKind(1); k < toolKindCount; k++ {
		assert.NotNil(t, table[k], "no formatter for %s", k)
		assert.Equal(t, k, ParseToolKind(k.String()), "round trip for %s", k)
	}
	assert.Equal(t, ToolUnknown, ParseToolKind("frobnicate"))
	assert.Equal(t, "unknown", ToolUnknown.String())
}

func TestFormatIsIdempotent(t *testing.T) {
	r, store := newTestRegistry(t)
	events := []domain.ProgressEvent{
		{Tool: "view_file", Phase: domain.PhaseFinish, Args: map[string]any{"path": "a.py"}, Result: "1: x\n2: y"},
		{Tool: "find_files", Phase: domain.PhaseFinish, Result: []any{"a", "b"}},
		{Tool: "bash_exec", Phase: domain.PhaseFinish, Result: "ok\nreturncode: 0"},
		{Tool: "frobnicate", Message: "<b>"},
	}
	for _, ev := range events {
		first := r.Format(ev)
		second := r.Format(ev)
		assert.Equal(t, first, second, "tool %s", ev.Tool)
	}
	assert.Equal(t, 3, store.Len(), "identical content is stored once")
}

func TestFormatEscapesMarkup(t *testing.T) {
	r, _ := newTestRegistry(t)

	tests := []struct {
		name string
		ev   domain.ProgressEvent
	}{
		{"fallback dump", domain.ProgressEvent{Tool: "x", Message: "<img src=x>"}},
		{"default error", domain.ProgressEvent{Tool: "x", Phase: domain.PhaseFinish, Error: "<img src=x>"}},
		{"tool error", domain.ProgressEvent{Tool: "view_file", Phase: domain.PhaseFinish, Error: "<img src=x>"}},
		{"path arg", domain.ProgressEvent{Tool: "create_file", Phase: domain.PhaseStart, Args: map[string]any{"path": "<img src=x>"}}},
		{"tool name", domain.ProgressEvent{Tool: "<img src=x>", Phase: domain.PhaseStart}},
		{"move args", domain.ProgressEvent{Tool: "move_file", Phase: domain.PhaseFinish, Args: map[string]any{"source_path": "<img src=x>", "destination_path": "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Format(tt.ev)
			assert.NotContains(t, out, "<img")
			assert.Contains(t, out, "&lt;img src=x&gt;")
		})
	}
}

func TestUnknownToolFallback(t *testing.T) {
	r, _ := newTestRegistry(t)

	assert.Equal(t, "[frobnicate] finished",
		r.Format(domain.ProgressEvent{Tool: "frobnicate", Phase: domain.PhaseFinish}))
	assert.Equal(t, "[frobnicate] starting",
		r.Format(domain.ProgressEvent{Tool: "frobnicate", Phase: domain.PhaseStart}))
	assert.Equal(t, "<span class='error'>Error:</span> boom",
		r.Format(domain.ProgressEvent{Tool: "frobnicate", Phase: domain.PhaseFinish, Error: "boom"}))

	dump := r.Format(domain.ProgressEvent{Tool: "frobnicate"})
	assert.True(t, strings.HasPrefix(dump, "<pre>"))
	assert.Contains(t, dump, "&#34;tool&#34;: &#34;frobnicate&#34;")
}

func TestViewFile(t *testing.T) {
	r, store := newTestRegistry(t)

	start := r.Format(domain.ProgressEvent{
		Tool: "view_file", Phase: domain.PhaseStart,
		Args: map[string]any{"path": "main.py", "start_line": float64(10)},
	})
	assert.Equal(t, "Viewing main.py lines 10 to end", start)

	finish := r.Format(domain.ProgressEvent{
		Tool: "view_file", Phase: domain.PhaseFinish,
		Args:   map[string]any{"path": "main.py"},
		Result: "1: import os\n2:   print(1)\r\n3: x = 2",
	})
	assert.Equal(t,
		"3 lines (<a href='#' class='content-link' data-index='0' data-lang='python'>3 lines</a>)",
		finish)

	content, err := store.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "import os\nprint(1)\nx = 2", content)
}

func TestViewFileTrailingNewlineCountMatchesLink(t *testing.T) {
	r, _ := newTestRegistry(t)

	out := r.Format(domain.ProgressEvent{
		Tool: "view_file", Phase: domain.PhaseFinish,
		Args:   map[string]any{"path": "notes.txt"},
		Result: "1: a\n2: b\n",
	})
	assert.Equal(t,
		"3 lines (<a href='#' class='content-link' data-index='0' data-lang=''>3 lines</a>)",
		out)
}

func TestViewFileEmptyResult(t *testing.T) {
	r, _ := newTestRegistry(t)
	out := r.Format(domain.ProgressEvent{Tool: "view_file", Phase: domain.PhaseFinish, Result: nil})
	assert.True(t, strings.HasPrefix(out, "0 lines ("), out)
}

func TestFindFiles(t *testing.T) {
	r, store := newTestRegistry(t)

	assert.Equal(t, "Searching in src",
		r.Format(domain.ProgressEvent{Tool: "find_files", Phase: domain.PhaseStart, Args: map[string]any{"directory": "src"}}))

	out := r.Format(domain.ProgressEvent{Tool: "search_text", Phase: domain.PhaseFinish, Result: []any{"a.go", "b.go"}})
	assert.Equal(t, "Found 2 items (<a href='#' class='content-link' data-index='0' data-lang=''>2 lines</a>)", out)

	out = r.Format(domain.ProgressEvent{Tool: "find_files", Phase: domain.PhaseFinish, Result: "only.go\n"})
	assert.Contains(t, out, "Found 1 item (")

	got, err := store.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "a.go\nb.go", got)
}

func TestBashExec(t *testing.T) {
	r, _ := newTestRegistry(t)

	assert.Equal(t, "Running command", r.Format(domain.ProgressEvent{Tool: "bash_exec", Phase: domain.PhaseStart}))

	out := r.Format(domain.ProgressEvent{Tool: "bash_exec", Phase: domain.PhaseFinish, Result: "stdout:\nhi\nreturncode: -1"})
	assert.True(t, strings.HasPrefix(out, "Command finished (code -1) ("), out)

	assert.Equal(t, "Command finished (code ?)",
		r.Format(domain.ProgressEvent{Tool: "bash_exec", Phase: domain.PhaseFinish}))
}

func TestBashExecUnexpectedResultFallsBack(t *testing.T) {
	r, _ := newTestRegistry(t)
	out := r.Format(domain.ProgressEvent{Tool: "bash_exec", Phase: domain.PhaseFinish, Result: map[string]any{"code": 1}})
	assert.Equal(t, "[bash_exec] finished", out)
}

func TestPanickingFormatterFallsBack(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register(ToolAskUser, func(domain.ProgressEvent, Linker) (string, error) {
		panic("unexpected shape")
	})

	out := r.Format(domain.ProgressEvent{Tool: "ask_user", Phase: domain.PhaseStart})
	assert.Equal(t, "[ask_user] starting", out)

	// The next event is unaffected.
	assert.Equal(t, "Fetched u",
		r.Format(domain.ProgressEvent{Tool: "fetch_url", Phase: domain.PhaseFinish, Args: map[string]any{"url": "u"}}))
}

func TestSimpleVerbFormatters(t *testing.T) {
	r, _ := newTestRegistry(t)
	args := map[string]any{"path": "p", "url": "http://x", "source_path": "a", "destination_path": "b"}

	tests := []struct {
		tool   string
		start  string
		finish string
	}{
		{"fetch_url", "Fetching http://x", "Fetched http://x"},
		{"create_file", "Creating file p", "Created file p"},
		{"create_directory", "Creating directory p", "Created directory p"},
		{"move_file", "Moving a → b", "Moved a → b"},
		{"remove_file", "Removing p", "Removed p"},
		{"file_str_replace", "Replacing in p", "Replaced in p"},
		{"ask_user", "Waiting for user input", "User input done"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			assert.Equal(t, tt.start, r.Format(domain.ProgressEvent{Tool: tt.tool, Phase: domain.PhaseStart, Args: args}))
			assert.Equal(t, tt.finish, r.Format(domain.ProgressEvent{Tool: tt.tool, Phase: domain.PhaseFinish, Args: args}))
			assert.Empty(t, r.Format(domain.ProgressEvent{Tool: tt.tool, Phase: domain.PhaseProgress, Args: args}))
		})
	}
}

func TestLinkWithoutStore(t *testing.T) {
	r := NewRegistry(nil, nil)
	assert.Equal(t, "2 lines", r.Link("a\nb", ""))
	assert.Equal(t, "1 line", r.Link("", ""))
}

func TestRegisterIgnoresUnknownKind(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register(ToolUnknown, func(domain.ProgressEvent, Linker) (string, error) { return "hijacked", nil })
	assert.Equal(t, "[zzz] finished", r.Format(domain.ProgressEvent{Tool: "zzz", Phase: domain.PhaseFinish}))
}

func TestFailingFormatterTripsBreaker(t *testing.T) {
	r, _ := newTestRegistry(t)
	var calls int
	r.Register(ToolFetchURL, func(domain.ProgressEvent, Linker) (string, error) {
		calls++
		return "", assert.AnError
	})

	ev := domain.ProgressEvent{Tool: "fetch_url", Phase: domain.PhaseStart}
	for i := 0; i < int(breakerMaxFailures)+3; i++ {
		assert.Equal(t, "[fetch_url] starting", r.Format(ev))
	}
	assert.Equal(t, int(breakerMaxFailures), calls, "open breaker bypasses the formatter")

	// Other tools are unaffected.
	assert.Equal(t, "Running command", r.Format(domain.ProgressEvent{Tool: "bash_exec", Phase: domain.PhaseStart}))
}
