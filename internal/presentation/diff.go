package presentation

import (
	"fmt"
	"strings"

	"github.com/zjrosen/conceptual/internal/differ"
	"github.com/zjrosen/conceptual/internal/state"
)

// maxValueWidth bounds field values shown in human diff output.
const maxValueWidth = 50

// DiffDTO is the JSON diff document.
type DiffDTO struct {
	HasChanges bool `json:"has_changes"`
	differ.ChangeSet
}

// FromChangeSet wraps a change set for JSON output.
func FromChangeSet(cs differ.ChangeSet) DiffDTO {
	if cs.Domains == nil {
		cs.Domains = []differ.DomainChange{}
	}
	if cs.Concepts == nil {
		cs.Concepts = []differ.ConceptChange{}
	}
	if cs.Relationships == nil {
		cs.Relationships = []differ.RelationshipChange{}
	}
	return DiffDTO{HasChanges: cs.HasChanges(), ChangeSet: cs}
}

// Diff writes cs in the requested format.
func (f *Formatter) Diff(format Format, cs differ.ChangeSet) error {
	switch format {
	case FormatJSON:
		return f.JSON(FromChangeSet(cs))
	case FormatGitHub:
		return f.Text(DiffGitHub(cs))
	case FormatMarkdown:
		return f.Text(DiffMarkdown(cs))
	default:
		return f.Text(DiffHuman(f.styles, cs))
	}
}

// truncate shortens s to maxValueWidth runes, marking the cut with "...".
func truncate(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	r := []rune(s)
	if len(r) <= maxValueWidth {
		return s
	}
	return string(r[:maxValueWidth-3]) + "..."
}

func domainLabel(key string, d *state.Domain) string {
	if d == nil || d.DisplayName == "" {
		return key
	}
	return key + " - " + d.DisplayName
}

func conceptDomain(c *state.Concept) string {
	if c == nil || c.Domain == "" {
		return "no domain"
	}
	return c.Domain
}

func changePick[T any](c differ.Change[T]) *T {
	if c.New != nil {
		return c.New
	}
	return c.Old
}

// DiffHuman renders cs for a terminal.
func DiffHuman(st Styles, cs differ.ChangeSet) string {
	if !cs.HasChanges() {
		return "No conceptual changes detected."
	}

	var b builder
	b.line("%s", st.Header.Render("Conceptual Changes"))
	b.line("%s", strings.Repeat("=", len("Conceptual Changes")))

	marker := func(t differ.ChangeType) string {
		switch t {
		case differ.Added:
			return st.Success.Render("+")
		case differ.Removed:
			return st.Error.Render("-")
		default:
			return st.Warning.Render("~")
		}
	}
	fields := func(names []string, mod map[string]differ.FieldChange) {
		for _, name := range names {
			fc := mod[name]
			b.line("      %s: '%s' → '%s'", name, truncate(fc.Old), truncate(fc.New))
			if name == "definition" && fc.Old != "" && fc.New != "" {
				if words := renderWordDiff(st, fc.Old, fc.New); words != "" {
					b.line("      %s %s", st.Muted.Render("words:"), words)
				}
			}
		}
	}

	if len(cs.Domains) > 0 {
		b.blank()
		b.line("Domains:")
		for _, c := range cs.Domains {
			if c.ChangeType == differ.Modified {
				b.line("  %s %s", marker(c.ChangeType), c.Key)
				fields(differ.FieldOrder(c), c.ModifiedFields)
				continue
			}
			b.line("  %s %s", marker(c.ChangeType), domainLabel(c.Key, changePick(c)))
		}
	}

	if len(cs.Concepts) > 0 {
		b.blank()
		b.line("Concepts:")
		for _, c := range cs.Concepts {
			if c.ChangeType == differ.Modified {
				b.line("  %s %s", marker(c.ChangeType), c.Key)
				fields(differ.FieldOrder(c), c.ModifiedFields)
				continue
			}
			b.line("  %s %s (%s)", marker(c.ChangeType), c.Key, conceptDomain(changePick(c)))
		}
	}

	if len(cs.Relationships) > 0 {
		b.blank()
		b.line("Relationships:")
		for _, c := range cs.Relationships {
			switch c.ChangeType {
			case differ.Added:
				b.line("  %s %s (%s)", marker(c.ChangeType), c.Key, state.NormalizeCardinality(cardinalityOf(c.New)))
			case differ.Removed:
				b.line("  %s %s", marker(c.ChangeType), c.Key)
			default:
				b.line("  %s %s", marker(c.ChangeType), c.Key)
				fields(differ.FieldOrder(c), c.ModifiedFields)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func cardinalityOf(r *state.Relationship) string {
	if r == nil {
		return ""
	}
	return r.Cardinality
}

// DiffGitHub renders cs as GitHub Actions annotations, one per change.
func DiffGitHub(cs differ.ChangeSet) string {
	if !cs.HasChanges() {
		return "::notice title=Conceptual Model::No changes detected"
	}

	var lines []string
	add := func(level, title, msg string) {
		lines = append(lines, fmt.Sprintf("::%s title=%s::%s", level, title, msg))
	}

	for _, c := range cs.Domains {
		switch c.ChangeType {
		case differ.Added:
			add("notice", "New Domain", domainLabel(c.Key, c.New))
		case differ.Removed:
			add("warning", "Removed Domain", c.Key)
		default:
			add("notice", "Modified Domain", fmt.Sprintf("%s (%s)", c.Key, strings.Join(differ.FieldOrder(c), ", ")))
		}
	}

	for _, c := range cs.Concepts {
		switch c.ChangeType {
		case differ.Added:
			if c.New == nil || c.New.Status() == state.StatusStub {
				add("warning", "New Concept", c.Key+" - stub concept (needs domain)")
			} else {
				add("notice", "New Concept", fmt.Sprintf("%s (%s)", c.Key, c.New.Domain))
			}
		case differ.Removed:
			add("warning", "Removed Concept", c.Key)
		default:
			add("notice", "Modified Concept", fmt.Sprintf("%s (%s)", c.Key, strings.Join(differ.FieldOrder(c), ", ")))
		}
	}

	for _, c := range cs.Relationships {
		switch c.ChangeType {
		case differ.Added:
			if c.New == nil || len(c.New.Domains) == 0 {
				add("warning", "New Relationship", c.Key+" - draft relationship (no domains)")
			} else {
				add("notice", "New Relationship", fmt.Sprintf("%s (%s)", c.Key, state.NormalizeCardinality(c.New.Cardinality)))
			}
		case differ.Removed:
			add("warning", "Removed Relationship", c.Key)
		default:
			add("notice", "Modified Relationship", fmt.Sprintf("%s (%s)", c.Key, strings.Join(differ.FieldOrder(c), ", ")))
		}
	}
	return strings.Join(lines, "\n")
}

// markdownIcons label change types in markdown output.
var markdownIcons = map[differ.ChangeType]string{
	differ.Added:    "➕",
	differ.Removed:  "➖",
	differ.Modified: "✏️",
}

// DiffMarkdown renders cs as a pull request comment or job summary.
func DiffMarkdown(cs differ.ChangeSet) string {
	var b builder
	if !cs.HasChanges() {
		b.line("## ✅ No Conceptual Changes")
		b.blank()
		b.line("The conceptual model is unchanged compared to the base ref.")
		return b.String()
	}

	counts := cs.Counts()
	b.line("## 📊 Conceptual Model Changes")
	b.blank()
	b.line("| Change | Count |")
	b.line("|--------|-------|")
	b.line("| %s Added | %d |", markdownIcons[differ.Added], counts[differ.Added])
	b.line("| %s Removed | %d |", markdownIcons[differ.Removed], counts[differ.Removed])
	b.line("| %s Modified | %d |", markdownIcons[differ.Modified], counts[differ.Modified])

	modified := func(names []string, mod map[string]differ.FieldChange) {
		for _, name := range names {
			fc := mod[name]
			b.line("  - %s: `%s` → `%s`", name, truncate(fc.Old), truncate(fc.New))
		}
	}

	if len(cs.Domains) > 0 {
		b.blank()
		b.line("### Domains")
		b.blank()
		for _, c := range cs.Domains {
			icon := markdownIcons[c.ChangeType]
			if c.ChangeType == differ.Modified {
				b.line("- %s `%s`", icon, c.Key)
				modified(differ.FieldOrder(c), c.ModifiedFields)
				continue
			}
			if d := changePick(c); d != nil && d.DisplayName != "" {
				b.line("- %s `%s` (%s)", icon, c.Key, d.DisplayName)
			} else {
				b.line("- %s `%s`", icon, c.Key)
			}
		}
	}

	if len(cs.Concepts) > 0 {
		b.blank()
		b.line("### Concepts")
		b.blank()
		for _, c := range cs.Concepts {
			icon := markdownIcons[c.ChangeType]
			if c.ChangeType == differ.Modified {
				b.line("- %s `%s`", icon, c.Key)
				modified(differ.FieldOrder(c), c.ModifiedFields)
				continue
			}
			b.line("- %s `%s` (domain: %s)", icon, c.Key, conceptDomain(changePick(c)))
		}
	}

	if len(cs.Relationships) > 0 {
		b.blank()
		b.line("### Relationships")
		b.blank()
		for _, c := range cs.Relationships {
			icon := markdownIcons[c.ChangeType]
			switch c.ChangeType {
			case differ.Modified:
				b.line("- %s `%s`", icon, c.Key)
				modified(differ.FieldOrder(c), c.ModifiedFields)
			default:
				b.line("- %s `%s` (cardinality: %s)", icon, c.Key, state.NormalizeCardinality(cardinalityOf(changePick(c))))
			}
		}
	}
	return b.String()
}
