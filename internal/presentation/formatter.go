// Package presentation renders project state, validation results, diffs,
// coverage and run history for the CLI.
package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// rule is the underline printed below human section titles.
var rule = strings.Repeat("=", 50)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	styles Styles
}

// Option configures a Formatter.
type Option func(*lipgloss.Renderer)

// WithColor forces colored output on or off. Without it the color profile
// is detected from the writer.
func WithColor(enabled bool) Option {
	return func(r *lipgloss.Renderer) {
		if enabled {
			r.SetColorProfile(termenv.TrueColor)
		} else {
			r.SetColorProfile(termenv.Ascii)
		}
	}
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer, opts ...Option) *Formatter {
	r := lipgloss.NewRenderer(writer)
	for _, opt := range opts {
		opt(r)
	}
	return &Formatter{
		writer: writer,
		styles: NewStyles(r),
	}
}

// Styles returns the styles bound to the formatter's writer.
func (f *Formatter) Styles() Styles {
	return f.styles
}

// JSON writes v as indented JSON.
func (f *Formatter) JSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Text writes s followed by a newline unless it already ends in one.
func (f *Formatter) Text(s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(f.writer, s)
	return err
}

// builder accumulates one rendering before it is written out.
type builder struct {
	strings.Builder
}

func (b *builder) line(format string, args ...any) {
	fmt.Fprintf(&b.Builder, format, args...)
	b.WriteByte('\n')
}

func (b *builder) blank() {
	b.WriteByte('\n')
}

func (b *builder) section(st Styles, title string) {
	b.blank()
	b.line("%s", st.Header.Render(title))
	b.line("%s", rule)
}

func (f *Formatter) flush(b *builder) error {
	_, err := io.WriteString(f.writer, b.String())
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
