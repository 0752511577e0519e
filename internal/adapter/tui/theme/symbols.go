package theme

import (
	"os"
	"strings"
)

// SymbolSet holds all UI symbols so Unicode and ASCII sets can be swapped.
type SymbolSet struct {
	Success  string
	Error    string
	Warning  string
	Info     string
	ArrowR   string
	Bullet   string
	Ellipsis string
	BarFull  string
	BarEmpty string
}

var unicodeSymbols = SymbolSet{
	Success:  "\u2713", // ✓
	Error:    "\u2717", // ✗
	Warning:  "\u26A0", // ⚠
	Info:     "\u25CF", // ●
	ArrowR:   "\u2192", // →
	Bullet:   "\u2022", // •
	Ellipsis: "\u2026", // …
	BarFull:  "\u25AE", // ▮
	BarEmpty: "\u25AF", // ▯
}

var asciiSymbols = SymbolSet{
	Success:  "[OK]",
	Error:    "[ERR]",
	Warning:  "[!]",
	Info:     "[i]",
	ArrowR:   "->",
	Bullet:   "*",
	Ellipsis: "...",
	BarFull:  "#",
	BarEmpty: ".",
}

// DetectUnicodeSupport reports whether the terminal likely renders Unicode.
// BLECENTRAL_ASCII_SYMBOLS=1 forces ASCII.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("BLECENTRAL_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
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

// InitSymbols sets the Symbol* variables for the current terminal. It runs
// from init and may be called again, e.g. from tests.
func InitSymbols() {
	set := unicodeSymbols
	if !DetectUnicodeSupport() {
		set = asciiSymbols
	}

	SymbolSuccess = set.Success
	SymbolError = set.Error
	SymbolWarning = set.Warning
	SymbolInfo = set.Info
	SymbolArrowR = set.ArrowR
	SymbolBullet = set.Bullet
	SymbolEllipsis = set.Ellipsis
	SymbolBarFull = set.BarFull
	SymbolBarEmpty = set.BarEmpty
}

func init() {
	InitSymbols()
}
