package logger

import (
	"os"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// getTerminalWidth returns the current terminal width, capped at 120
// (max for readability), falling back to 80 if detection fails or the
// terminal is narrower than 60 columns.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 60 {
		return 80
	}
	if width > 120 {
		return 120
	}
	return width
}

var ansiRegexp = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// visibleLength returns the visible terminal width of a string, ignoring
// ANSI escapes and accounting for wide runes.
func visibleLength(s string) int {
	return runewidth.StringWidth(ansiRegexp.ReplaceAllString(s, ""))
}

// truncateName truncates to maxWidth visible columns, appending "..." and
// stripping color codes if truncation was necessary.
func truncateName(s string, maxWidth int) string {
	if visibleLength(s) <= maxWidth {
		return s
	}
	clean := ansiRegexp.ReplaceAllString(s, "")
	return runewidth.Truncate(clean, maxWidth-3, "...")
}

// banner frames content with "---" padding bars sized to fill width,
// splitting the filler evenly (extra dash on the right when odd).
func banner(content string, width int) string {
	filler := width - visibleLength(content)
	if filler < 6 {
		filler = 6
	}
	left := filler / 2
	right := filler - left
	return strings.Repeat("-", left) + content + strings.Repeat("-", right)
}
