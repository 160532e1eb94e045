package presentation

import (
	"github.com/zjrosen/conceptual/internal/state"
)

// ConceptStatsDTO counts concepts by status.
type ConceptStatsDTO struct {
	Total             int `json:"total"`
	Complete          int `json:"complete"`
	Draft             int `json:"draft"`
	Stub              int `json:"stub"`
	CompletionPercent int `json:"completion_percent"`
}

// ModelCoverageDTO counts concepts with at least one model.
type ModelCoverageDTO struct {
	Count   int `json:"count"`
	Percent int `json:"percent"`
}

// RelationshipStatsDTO counts complete relationships.
type RelationshipStatsDTO struct {
	Total    int `json:"total"`
	Complete int `json:"complete"`
	Percent  int `json:"percent"`
}

// SummaryDTO is the coverage summary shared by status and coverage output.
type SummaryDTO struct {
	Concepts ConceptStatsDTO `json:"concepts"`
	Coverage struct {
		Models ModelCoverageDTO `json:"models"`
	} `json:"coverage"`
	Relationships RelationshipStatsDTO `json:"relationships"`
	Orphans       int                  `json:"orphans"`
}

// FromCoverage converts a coverage report into its summary DTO.
func FromCoverage(r state.CoverageReport) SummaryDTO {
	var s SummaryDTO
	s.Concepts = ConceptStatsDTO{
		Total:             r.TotalConcepts,
		Complete:          r.CompleteConcepts,
		Draft:             r.DraftConcepts,
		Stub:              r.StubConcepts,
		CompletionPercent: r.CompletionPct,
	}
	s.Coverage.Models = ModelCoverageDTO{Count: r.ConceptsWithModels, Percent: r.ModelCoveragePct}
	s.Relationships = RelationshipStatsDTO{
		Total:    r.TotalRelationships,
		Complete: r.CompleteRelationships,
		Percent:  r.RelationshipPct,
	}
	s.Orphans = r.OrphanCount
	return s
}

// CoverageConceptDTO is one concept in the coverage listing.
type CoverageConceptDTO struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Status state.Status `json:"status"`
	Owner  string       `json:"owner"`
	Models []string     `json:"models"`
}

// CoverageDomainDTO describes a declared domain.
type CoverageDomainDTO struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
}

// CoverageDTO is the JSON coverage document.
type CoverageDTO struct {
	Summary          SummaryDTO                      `json:"summary"`
	ConceptsByDomain map[string][]CoverageConceptDTO `json:"concepts_by_domain"`
	Domains          map[string]CoverageDomainDTO    `json:"domains"`
}

// FromStateCoverage builds the coverage document for st.
func FromStateCoverage(st *state.ProjectState) CoverageDTO {
	report := state.Coverage(st)
	dto := CoverageDTO{
		Summary:          FromCoverage(report),
		ConceptsByDomain: make(map[string][]CoverageConceptDTO, len(report.ByDomain)),
		Domains:          make(map[string]CoverageDomainDTO, len(st.Domains)),
	}
	for domain, ids := range report.ByDomain {
		for _, id := range ids {
			c := st.Concepts[id]
			models := c.Models
			if models == nil {
				models = []string{}
			}
			dto.ConceptsByDomain[domain] = append(dto.ConceptsByDomain[domain], CoverageConceptDTO{
				ID:     id,
				Name:   c.Name,
				Status: c.Status(),
				Owner:  c.Owner,
				Models: models,
			})
		}
	}
	for id, d := range st.Domains {
		dto.Domains[id] = CoverageDomainDTO{Name: id, DisplayName: d.DisplayName, Color: d.Color}
	}
	return dto
}

// CoverageMarkdown writes the coverage summary table and attention list.
func (f *Formatter) CoverageMarkdown(st *state.ProjectState) error {
	s := FromCoverage(state.Coverage(st))
	var b builder

	b.line("### Coverage Summary")
	b.blank()
	b.line("| Metric | Value |")
	b.line("|--------|-------|")
	b.line("| Concept Completion | %d%% (%d/%d) |", s.Concepts.CompletionPercent, s.Concepts.Complete, s.Concepts.Total)
	b.line("| Model Coverage | %d%% (%d concepts) |", s.Coverage.Models.Percent, s.Coverage.Models.Count)
	b.line("| Relationships Complete | %d%% (%d/%d) |", s.Relationships.Percent, s.Relationships.Complete, s.Relationships.Total)
	if s.Orphans > 0 {
		b.line("| Orphan Models | %d |", s.Orphans)
	}
	b.blank()

	if s.Concepts.Stub > 0 || s.Concepts.Draft > 0 {
		b.line("#### Attention Needed")
		b.blank()
		if s.Concepts.Stub > 0 {
			b.line("- ⚠️ **%d stub concepts** need definitions and domain assignment", s.Concepts.Stub)
		}
		if s.Concepts.Draft > 0 {
			b.line("- 📝 **%d draft concepts** have no model implementations yet", s.Concepts.Draft)
		}
		b.blank()
	}
	return f.flush(&b)
}
