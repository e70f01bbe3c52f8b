package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minMarkdownWrap is the narrowest wrap width the task info overlay renders at.
const minMarkdownWrap = 24

// markdownRenderer renders task descriptions for the info overlay, rebuilding
// the glamour renderer when the wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown into ANSI-styled text at the requested wrap width.
// On renderer failure the raw markdown is returned unstyled.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, minMarkdownWrap)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}
