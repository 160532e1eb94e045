package presentation

import (
	"fmt"
	"slices"
	"strings"
)

// Format selects how a command renders its result.
type Format string

const (
	FormatHuman    Format = "human"
	FormatGitHub   Format = "github"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates s against the formats a command supports.
// Matching is case-insensitive.
func ParseFormat(s string, allowed ...Format) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(allowed, f) {
		return f, nil
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", fmt.Errorf("invalid format %q (choose from %s)", s, strings.Join(names, ", "))
}
