package theme

import (
	"os"
	"strings"
)

// SymbolSet holds the glyphs used by the feed view.
type SymbolSet struct {
	Success  string
	Error    string
	Warning  string
	Info     string
	Busy     string
	Bullet   string
	Ellipsis string
}

var unicodeSymbols = SymbolSet{
	Success:  "\u2713", // ✓
	Error:    "\u2717", // ✗
	Warning:  "\u26A0", // ⚠
	Info:     "\u25CF", // ●
	Busy:     "\u23F3", // ⏳
	Bullet:   "\u2022", // •
	Ellipsis: "\u2026", // …
}

var asciiSymbols = SymbolSet{
	Success:  "[OK]",
	Error:    "[ERR]",
	Warning:  "[!]",
	Info:     "[i]",
	Busy:     "[...]",
	Bullet:   "*",
	Ellipsis: "...",
}

var (
	SymbolSuccess  string
	SymbolError    string
	SymbolWarning  string
	SymbolInfo     string
	SymbolBusy     string
	SymbolBullet   string
	SymbolEllipsis string
)

// DetectUnicodeSupport reports whether the terminal likely renders Unicode.
// TOOLFEED_ASCII_SYMBOLS=1 forces ASCII.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("TOOLFEED_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if strings.Contains(val, "utf-8") || strings.Contains(val, "utf8") {
			return true
		}
	}
	return true
}

// UseASCII switches the package symbols to the ASCII or Unicode set.
func UseASCII(ascii bool) {
	set := unicodeSymbols
	if ascii {
		set = asciiSymbols
	}
	SymbolSuccess = set.Success
	SymbolError = set.Error
	SymbolWarning = set.Warning
	SymbolInfo = set.Info
	SymbolBusy = set.Busy
	SymbolBullet = set.Bullet
	SymbolEllipsis = set.Ellipsis
}

func init() {
	UseASCII(!DetectUnicodeSupport())
}
