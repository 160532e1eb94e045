package presentation

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/zjrosen/conceptual/internal/state"
)

// OrphanDTO is one orphan model.
type OrphanDTO struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// OrphansDTO is the JSON orphan document.
type OrphansDTO struct {
	Count  int         `json:"count"`
	Models []OrphanDTO `json:"models"`
}

func sortedOrphans(st *state.ProjectState) []state.OrphanModel {
	orphans := slices.Clone(st.Orphans)
	slices.SortStableFunc(orphans, func(a, b state.OrphanModel) int { return cmp.Compare(a.Name, b.Name) })
	return orphans
}

// FromOrphans builds the orphan document, sorted by name.
func FromOrphans(st *state.ProjectState) OrphansDTO {
	orphans := sortedOrphans(st)
	dto := OrphansDTO{Count: len(orphans), Models: make([]OrphanDTO, 0, len(orphans))}
	for _, o := range orphans {
		dto.Models = append(dto.Models, OrphanDTO{Name: o.Name, Path: o.Path, Description: o.Description})
	}
	return dto
}

// Orphans writes the sorted orphan listing with next steps.
func (f *Formatter) Orphans(st *state.ProjectState) error {
	s := f.styles
	var b builder

	if len(st.Orphans) == 0 {
		b.line("%s", s.Success.Render("✓ No orphan models found!"))
		b.blank()
		b.line("All models have conceptual tags (meta.concept).")
		return f.flush(&b)
	}

	b.line("%s", s.Header.Render("Orphan Models ("+strconv.Itoa(len(st.Orphans))+")"))
	b.line("%s", rule)
	b.line("%s", s.Warning.Render("These models have no meta.concept tag:"))
	b.blank()
	for _, o := range sortedOrphans(st) {
		b.line("  • %s", o.Name)
	}
	b.blank()
	b.line("%s", s.Muted.Render("Next steps:"))
	b.line("%s", s.Muted.Render("  1. Run 'conceptual sync --create-stubs' to create stub concepts"))
	b.line("%s", s.Muted.Render("  2. Edit conceptual.yml to enrich the stubs"))
	b.line("%s", s.Muted.Render("  3. Add meta.concept tags to model YAML files"))
	return f.flush(&b)
}

// OrphansMarkdown writes the orphan listing as a markdown table.
func (f *Formatter) OrphansMarkdown(st *state.ProjectState) error {
	var b builder
	b.line("### Orphan Models")
	b.blank()

	orphans := sortedOrphans(st)
	if len(orphans) == 0 {
		b.line("✅ **No orphan models found!**")
		b.blank()
		b.line("All models have `meta.concept` tags.")
		b.blank()
		return f.flush(&b)
	}

	b.line("Found **%d models** without conceptual tags:", len(orphans))
	b.blank()
	b.line("| Model | Path |")
	b.line("|-------|------|")
	for _, o := range orphans {
		path := o.Path
		if path == "" {
			path = "-"
		}
		b.line("| `%s` | %s |", o.Name, path)
	}
	b.blank()
	return f.flush(&b)
}
