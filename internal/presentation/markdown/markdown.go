// Package markdown renders concept definitions for the terminal.
package markdown

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// compactStyle drops document margins so rendered blocks line up with the
// surrounding plain text.
const compactStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer renders markdown with a fixed word wrap.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// New creates a renderer wrapping at width. style is a glamour standard
// style name ("dark", "light", "notty", ...) and defaults to "dark". A
// fixed style avoids querying the terminal background.
func New(width int, style string) (*Renderer, error) {
	if style == "" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithStylesFromJSONBytes([]byte(compactStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, width: width}, nil
}

// Width returns the word wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Render renders md and trims surrounding blank lines.
func (r *Renderer) Render(md string) (string, error) {
	out, err := r.renderer.Render(md)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}
