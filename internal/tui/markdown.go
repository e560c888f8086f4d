package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderFunc turns reply text into terminal output.
type renderFunc func(text string) string

func plainText(text string) string { return text }

// markdownRenderer wraps glamour at width. Falls back to raw text if the
// renderer cannot be built or fails on a message.
func markdownRenderer(width int) renderFunc {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return plainText
	}

	return func(text string) string {
		if strings.TrimSpace(text) == "" {
			return text
		}
		out, err := r.Render(text)
		if err != nil {
			return text
		}
		// glamour pads with blank lines
		return strings.Trim(out, "\n")
	}
}
