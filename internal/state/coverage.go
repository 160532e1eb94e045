package state

// UncategorizedDomain groups concepts without a domain in coverage output.
const UncategorizedDomain = "uncategorized"

// CoverageReport summarizes how much of the conceptual model is implemented.
type CoverageReport struct {
	TotalConcepts      int `json:"total_concepts"`
	CompleteConcepts   int `json:"complete_concepts"`
	DraftConcepts      int `json:"draft_concepts"`
	StubConcepts       int `json:"stub_concepts"`
	ConceptsWithModels int `json:"concepts_with_models"`

	TotalRelationships    int `json:"total_relationships"`
	CompleteRelationships int `json:"complete_relationships"`

	OrphanCount int `json:"orphan_count"`

	CompletionPct    int `json:"completion_pct"`
	ModelCoveragePct int `json:"model_coverage_pct"`
	RelationshipPct  int `json:"relationship_pct"`

	// ByDomain maps domain id (or UncategorizedDomain) to concept ids.
	ByDomain map[string][]string `json:"by_domain"`

	// Attention lists incomplete concepts missing a required attribute.
	Attention []AttentionItem `json:"attention,omitempty"`
}

// AttentionItem is a concept that still needs enrichment.
type AttentionItem struct {
	ConceptID string   `json:"concept"`
	Status    Status   `json:"status"`
	Missing   []string `json:"missing"`
}

// Coverage computes a CoverageReport. Percentages truncate toward zero and
// are 0 when the denominator is 0.
func Coverage(s *ProjectState) CoverageReport {
	r := CoverageReport{ByDomain: make(map[string][]string)}

	for _, id := range s.ConceptIDs() {
		c := s.Concepts[id]
		r.TotalConcepts++
		status := c.Status()
		switch status {
		case StatusComplete:
			r.CompleteConcepts++
		case StatusDraft:
			r.DraftConcepts++
		case StatusStub:
			r.StubConcepts++
		}
		if len(c.Models) > 0 {
			r.ConceptsWithModels++
		}

		domain := c.Domain
		if domain == "" {
			domain = UncategorizedDomain
		}
		r.ByDomain[domain] = append(r.ByDomain[domain], id)

		if status != StatusComplete {
			if missing := c.MissingAttributes(); len(missing) > 0 {
				r.Attention = append(r.Attention, AttentionItem{ConceptID: id, Status: status, Missing: missing})
			}
		}
	}

	for _, rel := range s.Relationships {
		r.TotalRelationships++
		if rel.Status(s.Concepts) == StatusComplete {
			r.CompleteRelationships++
		}
	}

	r.OrphanCount = len(s.Orphans)
	r.CompletionPct = percent(r.CompleteConcepts, r.TotalConcepts)
	r.ModelCoveragePct = percent(r.ConceptsWithModels, r.TotalConcepts)
	r.RelationshipPct = percent(r.CompleteRelationships, r.TotalRelationships)
	return r
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return n * 100 / total
}
