package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"toolfeed/internal/adapter/tui/theme"
)

// KeyHint is one keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string
	Desc string
}

// StatusBarModel renders the bottom line: key hints on the left, feed state
// (spinner, follow mode, call count) on the right.
type StatusBarModel struct {
	Hints   []KeyHint
	Busy    bool
	Spinner string // current spinner frame, shown while Busy
	Calls   int
	Follow  bool
	width   int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	hints := make([]string, 0, len(m.Hints))
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var right string
	if m.Busy {
		right = theme.TextInfo.Render(m.Spinner+" working") + "  "
	}
	if !m.Follow {
		right += theme.TextWarning.Render("paused") + "  "
	}
	right += theme.TextMuted.Render(strconv.Itoa(m.Calls) + " calls")

	gap := m.width - theme.StatusBar.GetHorizontalFrameSize() - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
