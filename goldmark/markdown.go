// Package goldmark renders assistant markdown to ANSI-styled terminal
// output using goldmark for parsing and lipgloss for styling.
package goldmark

import "github.com/fwojciec/concierge"

// defaultWidth is used when the caller does not know the terminal width yet.
const defaultWidth = 80

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs, quotes and list items are word-wrapped to width. Code blocks
// and tables are not reflowed.
//
// Render is called on every token while a response streams, so it must
// tolerate unterminated markup; goldmark treats it as literal text.
func Render(source string, width int, theme concierge.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	return newRenderer(theme, width).render([]byte(source))
}
