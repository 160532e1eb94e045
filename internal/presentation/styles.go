package presentation

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Status colors
	successColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warningColor = lipgloss.AdaptiveColor{Light: "#D4A017", Dark: "#FECA57"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	infoColor    = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}

	// Text hierarchy
	accentColor = lipgloss.AdaptiveColor{Light: "#179299", Dark: "#94E2D5"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#696969"}
)

// Styles are the text styles used by human output. They are bound to the
// renderer of the output writer so plain files and pipes get no escapes.
type Styles struct {
	Header  lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Added   lipgloss.Style
	Removed lipgloss.Style
}

// NewStyles builds Styles for r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header:  r.NewStyle().Bold(true),
		Accent:  r.NewStyle().Foreground(accentColor),
		Success: r.NewStyle().Foreground(successColor),
		Warning: r.NewStyle().Foreground(warningColor),
		Error:   r.NewStyle().Foreground(errorColor),
		Info:    r.NewStyle().Foreground(infoColor),
		Muted:   r.NewStyle().Foreground(mutedColor),
		Added:   r.NewStyle().Foreground(successColor).Bold(true),
		Removed: r.NewStyle().Foreground(errorColor).Strikethrough(true),
	}
}
