package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"toolfeed/internal/adapter/tui/theme"
)

// ModalModel is a full-screen viewport over one content-store item.
type ModalModel struct {
	Viewport viewport.Model
	Title    string
	Visible  bool
	// Markdown renders content through glamour; code gets a fenced block so
	// it is highlighted by its language.
	Markdown bool
	width    int
	height   int
}

// NewModal creates a hidden modal.
func NewModal(markdown bool) ModalModel {
	return ModalModel{Markdown: markdown}
}

// Open shows content under title. lang is the content's language hint and
// may be empty.
func (m *ModalModel) Open(title, content, lang string) {
	m.Title = title
	m.Visible = true
	w, h := 80, 24
	if m.width > 0 {
		w, h = m.width-4, m.height-4
	}
	m.Viewport = viewport.New(w, h)
	m.Viewport.MouseWheelEnabled = true
	m.Viewport.SetContent(m.render(content, lang, w))
}

func (m *ModalModel) render(content, lang string, width int) string {
	if !m.Markdown {
		return content
	}
	src := content
	if lang != "markdown" && lang != "md" {
		src = "```" + lang + "\n" + content + "\n```\n"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(src)
	if err != nil {
		return content
	}
	return out
}

// Close hides the modal.
func (m *ModalModel) Close() {
	m.Visible = false
}

// SetSize updates the modal dimensions.
func (m *ModalModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.Visible {
		m.Viewport.Width = w - 4
		m.Viewport.Height = h - 4
	}
}

// Update handles modal keys: Esc/q close, j/k scroll, g/G jump.
func (m ModalModel) Update(msg tea.Msg) (ModalModel, tea.Cmd) {
	if !m.Visible {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc", "q":
			m.Close()
			return m, nil
		case "j", "down":
			m.Viewport.LineDown(3)
			return m, nil
		case "k", "up":
			m.Viewport.LineUp(3)
			return m, nil
		case "g":
			m.Viewport.GotoTop()
			return m, nil
		case "G":
			m.Viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View renders the modal overlay.
func (m ModalModel) View() string {
	if !m.Visible {
		return ""
	}

	title := theme.Bold.Render("  " + m.Title)
	pct := theme.TextMuted.Render(fmt.Sprintf(" %.0f%%", m.Viewport.ScrollPercent()*100))
	footer := theme.Dim.Render("  Esc/q: close  j/k: scroll  g/G: top/bottom") + "  " + pct

	inner := lipgloss.JoinVertical(lipgloss.Left, title, m.Viewport.View(), footer)
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorderActive).
		Padding(0, 1).
		Width(m.width - 2).
		Height(m.height - 2).
		Render(inner)
}
