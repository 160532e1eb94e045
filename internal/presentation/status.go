package presentation

import (
	"slices"
	"strings"

	"github.com/zjrosen/conceptual/internal/state"
)

// ConceptStatusDTO is one concept line of the status report.
type ConceptStatusDTO struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Domain     string       `json:"domain,omitempty"`
	Status     state.Status `json:"status"`
	Owner      string       `json:"owner,omitempty"`
	ModelCount int          `json:"model_count"`
	IsGhost    bool         `json:"is_ghost,omitempty"`
}

// RelationshipStatusDTO is one relationship line of the status report.
type RelationshipStatusDTO struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	From   string       `json:"from"`
	To     string       `json:"to"`
	Status state.Status `json:"status"`
}

// StatusDTO is the JSON status document.
type StatusDTO struct {
	Summary       SummaryDTO              `json:"summary"`
	Concepts      []ConceptStatusDTO      `json:"concepts"`
	Relationships []RelationshipStatusDTO `json:"relationships"`
}

// FromState builds the status document for st.
func FromState(st *state.ProjectState) StatusDTO {
	dto := StatusDTO{
		Summary:       FromCoverage(state.Coverage(st)),
		Concepts:      make([]ConceptStatusDTO, 0, len(st.Concepts)),
		Relationships: make([]RelationshipStatusDTO, 0, len(st.Relationships)),
	}
	for _, id := range st.ConceptIDs() {
		c := st.Concepts[id]
		dto.Concepts = append(dto.Concepts, ConceptStatusDTO{
			ID:         id,
			Name:       c.Name,
			Domain:     c.Domain,
			Status:     c.Status(),
			Owner:      c.Owner,
			ModelCount: len(c.Models),
			IsGhost:    c.IsGhost,
		})
	}
	keys := st.RelationshipKeys()
	slices.Sort(keys)
	for _, key := range keys {
		r := st.Relationships[key]
		dto.Relationships = append(dto.Relationships, RelationshipStatusDTO{
			ID:     key,
			Name:   r.Name(),
			From:   r.From,
			To:     r.To,
			Status: r.Status(st.Concepts),
		})
	}
	return dto
}

// domainGroup is the concepts shown under one status heading.
type domainGroup struct {
	title    string
	concepts []string
}

// groupByDomain groups concept ids under declared domains (sorted), then
// referenced but undeclared domains, then concepts with no domain.
func groupByDomain(st *state.ProjectState) (declared []domainGroup, noDomain []string) {
	members := make(map[string][]string)
	for _, id := range st.ConceptIDs() {
		c := st.Concepts[id]
		if c.Domain == "" {
			noDomain = append(noDomain, id)
			continue
		}
		members[c.Domain] = append(members[c.Domain], id)
	}

	for _, id := range st.DomainIDs() {
		declared = append(declared, domainGroup{title: st.Domains[id].DisplayName, concepts: members[id]})
		delete(members, id)
	}
	undeclared := make([]string, 0, len(members))
	for id := range members {
		undeclared = append(undeclared, id)
	}
	slices.Sort(undeclared)
	for _, id := range undeclared {
		declared = append(declared, domainGroup{title: id, concepts: members[id]})
	}
	return declared, noDomain
}

// Status writes the human status report: concepts by domain, relationships,
// orphans and the attention list.
func (f *Formatter) Status(st *state.ProjectState) error {
	s := f.styles
	var b builder

	b.section(s, "Concepts by Domain")
	groups, noDomain := groupByDomain(st)
	if len(st.Domains) == 0 {
		b.line("%s", s.Warning.Render("No domains defined"))
	}
	for _, g := range groups {
		b.blank()
		b.line("%s (%s)", s.Accent.Render(g.title), plural(len(g.concepts), "concept"))
		for _, id := range g.concepts {
			f.conceptStatusLine(&b, id, st.Concepts[id])
		}
	}
	if len(noDomain) > 0 {
		b.blank()
		b.line("%s", s.Accent.Render("No Domain"))
		for _, id := range noDomain {
			f.conceptStatusLine(&b, id, st.Concepts[id])
		}
	}

	b.section(s, "Relationships")
	if len(st.Relationships) == 0 {
		b.line("%s", s.Warning.Render("No relationships defined"))
	}
	for _, key := range st.RelationshipKeys() {
		r := st.Relationships[key]
		icon := s.Warning.Render("○")
		if r.Status(st.Concepts) == state.StatusComplete {
			icon = s.Success.Render("✓")
		}
		b.line("  %s %s (%s → %s)", icon, r.Name(), r.From, r.To)
	}

	if len(st.Orphans) > 0 {
		b.section(s, "Orphan Models")
		b.line("%s", s.Warning.Render("These models have no concept tags:"))
		for _, o := range st.Orphans {
			b.line("  - %s", o.Name)
		}
		b.blank()
		b.line("%s", s.Muted.Render("Tip: Run 'conceptual sync --create-stubs' to create stub concepts"))
	}

	if attention := state.Coverage(st).Attention; len(attention) > 0 {
		b.section(s, "Concepts Needing Attention")
		b.line("%s", s.Warning.Render(plural(len(attention), "concept")+" missing required attributes:"))
		for _, a := range attention {
			b.line("  • %s [%s] - missing: %s", a.ConceptID, a.Status, strings.Join(a.Missing, ", "))
		}
		b.blank()
		b.line("%s", s.Muted.Render("Edit conceptual.yml to add missing attributes"))
	}
	b.blank()
	return f.flush(&b)
}

func (f *Formatter) conceptStatusLine(b *builder, id string, c *state.Concept) {
	s := f.styles
	status := c.Status()
	var icon string
	switch status {
	case state.StatusComplete:
		icon = s.Success.Render("✓")
	case state.StatusStub:
		icon = s.Warning.Render("⚠")
	default:
		icon = s.Info.Render("◐")
	}

	badge := "[" + plural(len(c.Models), "model") + "]"
	line := "  " + icon + " " + id + " [" + string(status) + "]  " + badge
	if c.IsGhost {
		line += " " + s.Error.Render("(ghost)")
	}
	b.line("%s", line)

	if status != state.StatusComplete {
		if missing := c.MissingAttributes(); len(missing) > 0 {
			b.line("     %s", s.Muted.Render("missing: "+strings.Join(missing, ", ")))
		}
	}
}

// statusIcons are the markdown status glyphs.
var statusIcons = map[state.Status]string{
	state.StatusComplete: "✅",
	state.StatusDraft:    "📝",
	state.StatusStub:     "⚠️",
}

// StatusMarkdown writes the status report as a markdown job summary.
func (f *Formatter) StatusMarkdown(st *state.ProjectState) error {
	sum := FromCoverage(state.Coverage(st))
	var b builder

	b.line("### Status Summary")
	b.blank()
	b.line("**Concepts:** %d total (%d complete, %d draft, %d stub)",
		sum.Concepts.Total, sum.Concepts.Complete, sum.Concepts.Draft, sum.Concepts.Stub)
	b.blank()
	b.line("**Relationships:** %d total (%d complete)", sum.Relationships.Total, sum.Relationships.Complete)
	b.blank()

	b.line("#### Concepts by Domain")
	b.blank()
	groups, noDomain := groupByDomain(st)
	if len(noDomain) > 0 {
		groups = append(groups, domainGroup{title: state.UncategorizedDomain, concepts: noDomain})
	}
	for _, g := range groups {
		if len(g.concepts) == 0 {
			continue
		}
		ids := slices.Clone(g.concepts)
		slices.SortStableFunc(ids, func(a, b string) int {
			return strings.Compare(st.Concepts[a].Name, st.Concepts[b].Name)
		})

		b.line("**%s** (%s)", g.title, plural(len(ids), "concept"))
		b.blank()
		b.line("| Concept | Status | Models |")
		b.line("|---------|--------|--------|")
		for _, id := range ids {
			c := st.Concepts[id]
			status := c.Status()
			b.line("| %s | %s %s | %d |", c.Name, statusIcons[status], status, len(c.Models))
		}
		b.blank()
	}
	return f.flush(&b)
}
