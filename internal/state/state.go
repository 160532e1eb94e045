// Package state holds the in-memory graph of a conceptual model and its
// pipeline implementation: domains, concepts, relationships, discovered
// models and orphans.
//
// Status fields are derived on every call from the current graph and are
// never stored on the entities.
package state

import (
	"maps"
	"slices"
)

// ValidationStatus is the annotation written by the sync pass.
type ValidationStatus string

const (
	ValidationValid   ValidationStatus = "valid"
	ValidationWarning ValidationStatus = "warning"
	ValidationError   ValidationStatus = "error"
)

// Domain is a named grouping of concepts.
type Domain struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

// Concept is a declared business entity. Empty strings mean "not set".
type Concept struct {
	Name       string `json:"name"`
	Domain     string `json:"domain,omitempty"`
	Owner      string `json:"owner,omitempty"`
	Definition string `json:"definition,omitempty"`
	Color      string `json:"color,omitempty"`

	// Models lists implementing model names in discovery order, deduplicated.
	Models []string `json:"models"`

	IsGhost            bool             `json:"is_ghost,omitempty"`
	ValidationStatus   ValidationStatus `json:"validation_status,omitempty"`
	ValidationMessages []string         `json:"validation_messages,omitempty"`
}

// Relationship is a directed, named edge between two concept keys.
type Relationship struct {
	Verb        string   `json:"verb"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Cardinality string   `json:"cardinality"`
	Definition  string   `json:"definition,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	Domains     []string `json:"domains,omitempty"`
	CustomName  string   `json:"custom_name,omitempty"`

	ValidationStatus   ValidationStatus `json:"validation_status,omitempty"`
	ValidationMessages []string         `json:"validation_messages,omitempty"`
}

// ModelInfo is the per-model tag metadata used by tag checks.
type ModelInfo struct {
	Name       string   `json:"name"`
	Concept    string   `json:"concept,omitempty"`
	DomainTags []string `json:"domain_tags,omitempty"`
	OwnerTag   string   `json:"owner_tag,omitempty"`
	Path       string   `json:"path,omitempty"`
}

// OrphanModel is a discovered model with no concept linkage.
type OrphanModel struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Path        string `json:"path,omitempty"`
}

// ProjectState is the reconciled graph. It is the unit of diffing, the unit
// presentation consumes, and the unit the sync pass mutates in place.
type ProjectState struct {
	Domains       map[string]*Domain       `json:"domains"`
	Concepts      map[string]*Concept      `json:"concepts"`
	Relationships map[string]*Relationship `json:"relationships"`

	// ConceptOrder holds concept keys in document order. Ghosts are never
	// listed.
	ConceptOrder []string `json:"concept_order,omitempty"`

	// RelationshipOrder holds one key per declared relationship in document
	// order. Repeated declarations repeat the key even though the map keeps
	// a single entry.
	RelationshipOrder []string `json:"relationship_order,omitempty"`

	Orphans  []OrphanModel        `json:"orphan_models"`
	Models   map[string]ModelInfo `json:"models"`
	Metadata map[string]string    `json:"metadata,omitempty"`
}

// New returns an empty ProjectState with all maps allocated.
func New() *ProjectState {
	return &ProjectState{
		Domains:       make(map[string]*Domain),
		Concepts:      make(map[string]*Concept),
		Relationships: make(map[string]*Relationship),
		Models:        make(map[string]ModelInfo),
		Metadata:      make(map[string]string),
	}
}

// Clone returns a deep copy. Mutating the copy never affects s.
func (s *ProjectState) Clone() *ProjectState {
	out := New()
	if s == nil {
		return out
	}
	for id, d := range s.Domains {
		dc := *d
		out.Domains[id] = &dc
	}
	for id, c := range s.Concepts {
		out.Concepts[id] = c.clone()
	}
	for id, r := range s.Relationships {
		out.Relationships[id] = r.clone()
	}
	out.ConceptOrder = slices.Clone(s.ConceptOrder)
	out.RelationshipOrder = slices.Clone(s.RelationshipOrder)
	out.Orphans = slices.Clone(s.Orphans)
	for name, m := range s.Models {
		m.DomainTags = slices.Clone(m.DomainTags)
		out.Models[name] = m
	}
	maps.Copy(out.Metadata, s.Metadata)
	return out
}

func (c *Concept) clone() *Concept {
	cc := *c
	cc.Models = slices.Clone(c.Models)
	cc.ValidationMessages = slices.Clone(c.ValidationMessages)
	return &cc
}

func (r *Relationship) clone() *Relationship {
	rc := *r
	rc.Domains = slices.Clone(r.Domains)
	rc.ValidationMessages = slices.Clone(r.ValidationMessages)
	return &rc
}

// ConceptIDs returns concept keys sorted for deterministic iteration.
func (s *ProjectState) ConceptIDs() []string {
	return slices.Sorted(maps.Keys(s.Concepts))
}

// DeclaredConceptIDs returns concept keys in declared order. Keys present
// in the map but absent from ConceptOrder follow in sorted order.
func (s *ProjectState) DeclaredConceptIDs() []string {
	seen := make(map[string]bool, len(s.Concepts))
	ids := make([]string, 0, len(s.Concepts))
	for _, id := range s.ConceptOrder {
		if _, ok := s.Concepts[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	var rest []string
	for id := range s.Concepts {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(ids, rest...)
}

// AddConcept stores c under id and records the declaration in ConceptOrder.
func (s *ProjectState) AddConcept(id string, c *Concept) {
	if _, ok := s.Concepts[id]; !ok {
		s.ConceptOrder = append(s.ConceptOrder, id)
	}
	s.Concepts[id] = c
}

// DomainIDs returns domain keys sorted for deterministic iteration.
func (s *ProjectState) DomainIDs() []string {
	return slices.Sorted(maps.Keys(s.Domains))
}

// RelationshipKeys returns relationship keys in declared order, each key
// once. Keys present in the map but absent from RelationshipOrder (states
// assembled by hand) follow in sorted order.
func (s *ProjectState) RelationshipKeys() []string {
	seen := make(map[string]bool, len(s.Relationships))
	keys := make([]string, 0, len(s.Relationships))
	for _, k := range s.RelationshipOrder {
		if _, ok := s.Relationships[k]; !ok || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	var rest []string
	for k := range s.Relationships {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

// AddRelationship stores r under its natural key and records the
// declaration in RelationshipOrder.
func (s *ProjectState) AddRelationship(r *Relationship) string {
	key := r.Key()
	s.Relationships[key] = r
	s.RelationshipOrder = append(s.RelationshipOrder, key)
	return key
}

// IsOrphan reports whether a model with the given name is in the orphan list.
func (s *ProjectState) IsOrphan(name string) bool {
	return slices.ContainsFunc(s.Orphans, func(o OrphanModel) bool { return o.Name == name })
}

// ConceptForModel returns the key of the concept implementing the model, if any.
func (s *ProjectState) ConceptForModel(name string) (string, bool) {
	for _, id := range s.ConceptIDs() {
		if slices.Contains(s.Concepts[id].Models, name) {
			return id, true
		}
	}
	return "", false
}
