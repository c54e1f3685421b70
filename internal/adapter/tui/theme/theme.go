// Package theme holds the terminal palette and styles of the feed view.
// Colors adapt to light and dark terminals; lipgloss honours NO_COLOR.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"toolfeed/internal/domain"
)

var (
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}

	ColorBorder       = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
	ColorBorderActive = lipgloss.AdaptiveColor{Light: "#1565c0", Dark: "#42a5f5"}

	ColorBgAlt = lipgloss.AdaptiveColor{Light: "#f5f5f5", Dark: "#2d2d2d"}
	ColorFgDim = lipgloss.AdaptiveColor{Light: "#9e9e9e", Dark: "#757575"}
)

var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	TextSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	TextError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	TextWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	TextInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	TextAccent  = lipgloss.NewStyle().Foreground(ColorAccent)
	TextMuted   = lipgloss.NewStyle().Foreground(ColorMuted)

	// Link marks a content-store reference; LinkSelected is the one Enter opens.
	Link         = lipgloss.NewStyle().Foreground(ColorAccent).Underline(true)
	LinkSelected = lipgloss.NewStyle().Foreground(ColorBgAlt).Background(ColorAccent).Bold(true)
)

var (
	// Container frames one invocation; ContainerLatest marks the newest.
	Container = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorBorder).
			PaddingLeft(1)

	ContainerLatest = Container.
			BorderForeground(ColorBorderActive)

	CallID = lipgloss.NewStyle().Foreground(ColorFgDim).Faint(true)
)

var (
	StatusBar = lipgloss.NewStyle().
			Foreground(ColorFgDim).
			Background(ColorBgAlt).
			Padding(0, 1)

	StatusKey = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)
)

// Entry returns the style and leading symbol for an entry style.
func Entry(s domain.Style) (lipgloss.Style, string) {
	switch s {
	case domain.StyleSuccess:
		return TextSuccess, SymbolSuccess
	case domain.StyleError:
		return TextError, SymbolError
	case domain.StyleStderr:
		return TextWarning, SymbolWarning
	case domain.StyleStdout:
		return lipgloss.NewStyle(), SymbolBullet
	case domain.StyleInfo:
		return TextInfo, SymbolInfo
	default:
		return lipgloss.NewStyle(), SymbolBullet
	}
}

// Span returns the style for an inline span class emitted by formatters.
func Span(class string) (lipgloss.Style, bool) {
	switch class {
	case "success":
		return TextSuccess, true
	case "error":
		return TextError, true
	case "info":
		return TextInfo, true
	case "stderr":
		return TextWarning, true
	}
	return lipgloss.Style{}, false
}

// Clamp returns v clamped to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
