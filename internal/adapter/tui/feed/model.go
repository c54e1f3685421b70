package feed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"toolfeed/internal/adapter/tui/components"
	"toolfeed/internal/adapter/tui/theme"
	"toolfeed/internal/adapter/tui/uxerror"
	"toolfeed/internal/domain"
)

// ModelDeps are dependencies injected into the feed model.
type ModelDeps struct {
	Content  domain.ContentStore
	Markdown bool
	Logger   *slog.Logger
}

type entry struct {
	id       string
	style    domain.Style
	segments []segment
	links    []Link
}

type container struct {
	callID  string
	entries []*entry
}

// Model is the root Bubble Tea model of the feed view.
type Model struct {
	deps   ModelDeps
	logger *slog.Logger

	containers []*container
	byCallID   map[string]*container
	entries    map[string]*entry
	latest     string
	busy       bool

	viewport  viewport.Model
	ready     bool
	follow    bool
	spinner   spinner.Model
	statusBar components.StatusBarModel
	modal     components.ModalModel

	// links is the flattened list of content links in display order;
	// selected indexes it, -1 when nothing is selected.
	links    []Link
	selected int
	ends     map[string]int // callID -> last rendered line of its container

	notice string // last background error, shown above the status bar

	width    int
	height   int
	quitting bool
}

// NewModel creates the feed model.
func NewModel(deps ModelDeps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	sb := components.NewStatusBar()
	sb.Hints = defaultHints()
	sb.Follow = true

	return Model{
		deps:      deps,
		logger:    logger.With("component", "tui"),
		byCallID:  make(map[string]*container),
		entries:   make(map[string]*entry),
		follow:    true,
		spinner:   s,
		statusBar: sb,
		modal:     components.NewModal(deps.Markdown),
		selected:  -1,
		ends:      make(map[string]int),
	}
}

func defaultHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "q", Desc: "Quit"},
		{Key: "Tab", Desc: "Next link"},
		{Key: "Enter", Desc: "Open"},
		{Key: "f", Desc: "Follow"},
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.modal.SetSize(m.width, m.height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.statusBar.Spinner = m.spinner.View()
		return m, cmd

	case ContainerMsg:
		m.ensure(msg.CallID)
		m.refresh()
		return m, nil

	case EntryMsg:
		c := m.ensure(msg.CallID)
		segs, links := parseEntryHTML(msg.HTML)
		e := &entry{id: msg.ID, style: msg.Style, segments: segs, links: links}
		c.entries = append(c.entries, e)
		m.entries[msg.ID] = e
		m.refresh()
		return m, nil

	case MergeMsg:
		e, ok := m.entries[msg.ID]
		if !ok {
			m.logger.Debug("merge into unknown entry", "entry_id", msg.ID)
			return m, nil
		}
		segs, links := parseEntryHTML(msg.HTML)
		for _, s := range segs {
			if s.link >= 0 {
				s.link += len(e.links)
			}
			e.segments = append(e.segments, s)
		}
		e.links = append(e.links, links...)
		m.refresh()
		return m, nil

	case BusyMsg:
		m.busy = msg.Busy
		m.statusBar.Busy = msg.Busy
		return m, nil

	case ScrollMsg:
		m.latest = msg.CallID
		m.refresh()
		if m.follow {
			m.reveal(msg.CallID)
		}
		return m, nil

	case NoticeMsg:
		m.notice = ""
		if msg.Err != nil {
			m.notice = uxerror.Humanize(msg.Err).Title + ": " + msg.Err.Error()
		}
		if m.ready {
			m.layout()
		}
		return m, nil

	case contentMsg:
		if msg.err != nil {
			m.modal.Open(fmt.Sprintf("content #%d", msg.link.Index), theme.TextError.Render(uxerror.Humanize(msg.err).Render()), "")
			return m, nil
		}
		m.modal.Open(fmt.Sprintf("content #%d  %s", msg.link.Index, msg.link.Label), msg.content, msg.link.Lang)
		return m, nil
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal.Visible {
		var cmd tea.Cmd
		m.modal, cmd = m.modal.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab", "n":
		m.selectLink(1)
		return m, nil
	case "shift+tab", "p":
		m.selectLink(-1)
		return m, nil
	case "enter", "o":
		return m, m.openSelected()
	case "f":
		m.follow = !m.follow
		m.statusBar.Follow = m.follow
		if m.follow && m.latest != "" {
			m.reveal(m.latest)
		}
		return m, nil
	case "x":
		m.notice = ""
		if m.ready {
			m.layout()
		}
		return m, nil
	case "g":
		m.viewport.GotoTop()
		return m, nil
	case "G":
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// ensure returns the container for callID, creating it if needed.
func (m *Model) ensure(callID string) *container {
	if c, ok := m.byCallID[callID]; ok {
		return c
	}
	c := &container{callID: callID}
	m.containers = append(m.containers, c)
	m.byCallID[callID] = c
	return c
}

func (m *Model) selectLink(delta int) {
	n := len(m.links)
	if n == 0 {
		return
	}
	switch {
	case m.selected < 0 && delta > 0:
		m.selected = 0
	case m.selected < 0:
		m.selected = n - 1
	default:
		m.selected = (m.selected + delta + n) % n
	}
	m.refresh()
}

// openSelected loads the selected link, or the newest one when none is selected.
func (m *Model) openSelected() tea.Cmd {
	if len(m.links) == 0 || m.deps.Content == nil {
		return nil
	}
	link := m.links[len(m.links)-1]
	if m.selected >= 0 && m.selected < len(m.links) {
		link = m.links[m.selected]
	}
	store := m.deps.Content
	return func() tea.Msg {
		content, err := store.Get(link.Index)
		return contentMsg{link: link, content: content, err: err}
	}
}

func (m *Model) layout() {
	h := m.height - 1
	if m.notice != "" {
		h--
	}
	if h < 1 {
		h = 1
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, h)
		m.viewport.MouseWheelEnabled = true
		m.viewport.MouseWheelDelta = 3
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = h
	}
	m.statusBar.SetWidth(m.width)
	m.refresh()
}

// reveal scrolls so the last line of callID's container is visible.
func (m *Model) reveal(callID string) {
	end, ok := m.ends[callID]
	if !ok || !m.ready {
		return
	}
	m.viewport.SetYOffset(end - m.viewport.Height + 1)
}

// refresh re-renders every container into the viewport.
func (m *Model) refresh() {
	m.statusBar.Calls = len(m.containers)
	m.links = m.links[:0]
	if !m.ready {
		for _, c := range m.containers {
			for _, e := range c.entries {
				m.links = append(m.links, e.links...)
			}
		}
		return
	}

	if len(m.containers) == 0 {
		m.viewport.SetContent(theme.TextMuted.Render("  Waiting for tool activity" + theme.SymbolEllipsis))
		return
	}

	width := theme.Clamp(m.width-2, 10, m.width)
	var sb strings.Builder
	line := 0
	for _, c := range m.containers {
		block := m.renderContainer(c, width)
		sb.WriteString(block)
		sb.WriteByte('\n')
		line += lipgloss.Height(block)
		m.ends[c.callID] = line - 1
	}
	m.viewport.SetContent(sb.String())
}

func (m *Model) renderContainer(c *container, width int) string {
	var body strings.Builder
	body.WriteString(theme.CallID.Render(c.callID))
	for _, e := range c.entries {
		style, symbol := theme.Entry(e.style)
		body.WriteString("\n" + style.Render(symbol) + " " + m.renderEntry(e))
	}
	box := theme.Container
	if c.callID == m.latest {
		box = theme.ContainerLatest
	}
	return box.Width(width).Render(body.String())
}

func (m *Model) renderEntry(e *entry) string {
	base := lipgloss.NewStyle()
	if e.style == domain.StyleError || e.style == domain.StyleStderr {
		base, _ = theme.Entry(e.style)
	}
	first := len(m.links)
	m.links = append(m.links, e.links...)

	var sb strings.Builder
	for _, s := range e.segments {
		switch {
		case s.link >= 0:
			st := theme.Link
			if first+s.link == m.selected {
				st = theme.LinkSelected
			}
			sb.WriteString(st.Render("[" + s.text + "]"))
		case s.class != "":
			st, _ := theme.Span(s.class)
			sb.WriteString(st.Render(s.text))
		default:
			sb.WriteString(base.Render(s.text))
		}
	}
	return sb.String()
}

// View renders the feed, or the content modal when open.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.modal.Visible {
		return m.modal.View()
	}
	if !m.ready {
		return "Starting" + theme.SymbolEllipsis
	}
	view := m.viewport.View() + "\n"
	if m.notice != "" {
		view += theme.TextError.Width(m.width).MaxHeight(1).Render(theme.SymbolError+" "+m.notice) + "\n"
	}
	return view + m.statusBar.View()
}
