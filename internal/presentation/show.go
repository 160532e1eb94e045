package presentation

import (
	"fmt"
	"strings"

	"github.com/zjrosen/conceptual/internal/presentation/markdown"
	"github.com/zjrosen/conceptual/internal/state"
)

// ConceptNotFoundError is returned when a concept id is not in the state.
type ConceptNotFoundError struct {
	ID string
}

func (e *ConceptNotFoundError) Error() string {
	return fmt.Sprintf("concept %q not found", e.ID)
}

// ConceptDetailDTO is the JSON concept card.
type ConceptDetailDTO struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Domain        string                  `json:"domain,omitempty"`
	DomainName    string                  `json:"domain_name,omitempty"`
	Owner         string                  `json:"owner,omitempty"`
	Definition    string                  `json:"definition,omitempty"`
	Status        state.Status            `json:"status"`
	IsGhost       bool                    `json:"is_ghost,omitempty"`
	Models        []string                `json:"models"`
	Missing       []string                `json:"missing,omitempty"`
	Relationships []RelationshipStatusDTO `json:"relationships"`
	Messages      []string                `json:"validation_messages,omitempty"`
}

// FromConcept builds the concept card for id.
func FromConcept(st *state.ProjectState, id string) (ConceptDetailDTO, error) {
	c, ok := st.Concepts[id]
	if !ok {
		return ConceptDetailDTO{}, &ConceptNotFoundError{ID: id}
	}

	dto := ConceptDetailDTO{
		ID:            id,
		Name:          c.Name,
		Domain:        c.Domain,
		Owner:         c.Owner,
		Definition:    c.Definition,
		Status:        c.Status(),
		IsGhost:       c.IsGhost,
		Models:        append([]string{}, c.Models...),
		Missing:       c.MissingAttributes(),
		Relationships: []RelationshipStatusDTO{},
		Messages:      c.ValidationMessages,
	}
	if d, ok := st.Domains[c.Domain]; ok {
		dto.DomainName = d.DisplayName
	}
	for _, key := range st.RelationshipKeys() {
		r := st.Relationships[key]
		if r.From != id && r.To != id {
			continue
		}
		dto.Relationships = append(dto.Relationships, RelationshipStatusDTO{
			ID:     key,
			Name:   r.Name(),
			From:   r.From,
			To:     r.To,
			Status: r.Status(st.Concepts),
		})
	}
	return dto, nil
}

// Concept writes the card for concept id. The definition is rendered as
// markdown when md is non-nil.
func (f *Formatter) Concept(st *state.ProjectState, id string, md *markdown.Renderer) error {
	dto, err := FromConcept(st, id)
	if err != nil {
		return err
	}
	s := f.styles
	var b builder

	title := dto.Name
	if title != dto.ID {
		title += " (" + dto.ID + ")"
	}
	b.line("%s", s.Header.Render(title))
	b.line("%s", rule)

	domain := s.Muted.Render("-")
	switch {
	case dto.DomainName != "":
		domain = dto.DomainName + " [" + dto.Domain + "]"
	case dto.Domain != "":
		domain = dto.Domain + " " + s.Warning.Render("(undeclared)")
	}
	owner := dto.Owner
	if owner == "" {
		owner = s.Muted.Render("-")
	}
	b.line("Domain:  %s", domain)
	b.line("Owner:   %s", owner)
	status := f.statusBadge(dto.Status)
	if dto.IsGhost {
		status += " " + s.Error.Render("(ghost)")
	}
	b.line("Status:  %s", status)
	if len(dto.Missing) > 0 {
		b.line("Missing: %s", s.Warning.Render(strings.Join(dto.Missing, ", ")))
	}

	b.section(s, "Definition")
	switch {
	case dto.Definition == "":
		b.line("%s", s.Muted.Render("No definition."))
	case md != nil:
		rendered, err := md.Render(dto.Definition)
		if err != nil {
			return fmt.Errorf("rendering definition: %w", err)
		}
		b.line("%s", rendered)
	default:
		b.line("%s", dto.Definition)
	}

	b.section(s, "Models")
	if len(dto.Models) == 0 {
		b.line("%s", s.Muted.Render("No implementing models."))
	}
	for _, m := range dto.Models {
		b.line("  • %s", m)
	}

	if len(dto.Relationships) > 0 {
		b.section(s, "Relationships")
		for _, r := range dto.Relationships {
			icon := s.Warning.Render("○")
			if r.Status == state.StatusComplete {
				icon = s.Success.Render("✓")
			}
			b.line("  %s %s (%s → %s)", icon, r.Name, r.From, r.To)
		}
	}

	if len(dto.Messages) > 0 {
		b.section(s, "Messages")
		for _, m := range dto.Messages {
			b.line("  %s %s", s.Warning.Render("⚠"), m)
		}
	}
	b.blank()
	return f.flush(&b)
}
