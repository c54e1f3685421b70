package format

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// Escape makes s safe for insertion into HTML markup.
func Escape(s string) string {
	return html.EscapeString(s)
}

// countLines returns the number of line-break separated segments in s.
// An empty string counts as one line.
func countLines(s string) int {
	return len(lineBreak.Split(s, -1))
}

// countContentLines is countLines but reports zero for blank content.
// Trailing line breaks still count, matching the link label.
func countContentLines(s string) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return countLines(s)
}

// countNonEmptyLines counts the lines of s ignoring surrounding blank lines,
// and reports zero for blank content.
func countNonEmptyLines(s string) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return countLines(strings.TrimSpace(s))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// argText renders a scalar argument value for display, or def when absent.
func argText(v any, def string) string {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		if t == "" {
			return def
		}
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
