// Package differ computes the structural changes between two project
// states: domains, concepts and relationships added, removed or modified.
package differ

import (
	"slices"
	"strings"

	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/state"
)

// ChangeType classifies a change.
type ChangeType string

const (
	Added    ChangeType = "added"
	Removed  ChangeType = "removed"
	Modified ChangeType = "modified"
)

// FieldChange is the before and after rendering of one field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Change describes one keyed element that differs between base and
// current. Old is set for removed and modified, New for added and modified.
// ModifiedFields is only populated for modified changes.
type Change[T any] struct {
	Key            string                 `json:"key"`
	ChangeType     ChangeType             `json:"change_type"`
	Old            *T                     `json:"old_value,omitempty"`
	New            *T                     `json:"new_value,omitempty"`
	ModifiedFields map[string]FieldChange `json:"modified_fields,omitempty"`
}

type (
	DomainChange       = Change[state.Domain]
	ConceptChange      = Change[state.Concept]
	RelationshipChange = Change[state.Relationship]
)

// ChangeSet is the full diff. Each list is sorted by key.
type ChangeSet struct {
	Domains       []DomainChange       `json:"domain_changes"`
	Concepts      []ConceptChange      `json:"concept_changes"`
	Relationships []RelationshipChange `json:"relationship_changes"`
}

// HasChanges reports whether any change was found.
func (c ChangeSet) HasChanges() bool {
	return len(c.Domains)+len(c.Concepts)+len(c.Relationships) > 0
}

// Counts tallies changes of every kind by change type.
func (c ChangeSet) Counts() map[ChangeType]int {
	counts := map[ChangeType]int{Added: 0, Removed: 0, Modified: 0}
	for _, ch := range c.Domains {
		counts[ch.ChangeType]++
	}
	for _, ch := range c.Concepts {
		counts[ch.ChangeType]++
	}
	for _, ch := range c.Relationships {
		counts[ch.ChangeType]++
	}
	return counts
}

type field struct {
	name  string
	value string
}

func domainFields(d *state.Domain) []field {
	return []field{
		{"display_name", d.DisplayName},
		{"color", d.Color},
		{"owner", d.Owner},
	}
}

func conceptFields(c *state.Concept) []field {
	return []field{
		{"name", c.Name},
		{"domain", c.Domain},
		{"owner", c.Owner},
		{"definition", c.Definition},
		{"color", c.Color},
	}
}

func relationshipFields(r *state.Relationship) []field {
	return []field{
		{"cardinality", r.Cardinality},
		{"definition", r.Definition},
		{"owner", r.Owner},
		{"domains", strings.Join(r.Domains, ", ")},
	}
}

// Diff compares base against current. Ghost concepts and discovered models
// are part of the states but only the declared fields are compared.
func Diff(base, current *state.ProjectState) ChangeSet {
	if base == nil {
		base = state.New()
	}
	if current == nil {
		current = state.New()
	}

	cs := ChangeSet{
		Domains:       diffMaps(base.Domains, current.Domains, domainFields),
		Concepts:      diffMaps(base.Concepts, current.Concepts, conceptFields),
		Relationships: diffMaps(base.Relationships, current.Relationships, relationshipFields),
	}

	log.Debug(log.CatDiff, "Computed diff",
		"domains", len(cs.Domains),
		"concepts", len(cs.Concepts),
		"relationships", len(cs.Relationships))
	return cs
}

func diffMaps[T any](base, current map[string]*T, fields func(*T) []field) []Change[T] {
	keys := make([]string, 0, len(base)+len(current))
	for k := range base {
		keys = append(keys, k)
	}
	for k := range current {
		if _, ok := base[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	changes := []Change[T]{}
	for _, key := range keys {
		old, inBase := base[key]
		cur, inCurrent := current[key]
		switch {
		case !inBase:
			changes = append(changes, Change[T]{Key: key, ChangeType: Added, New: cur})
		case !inCurrent:
			changes = append(changes, Change[T]{Key: key, ChangeType: Removed, Old: old})
		default:
			modified := compareFields(fields(old), fields(cur))
			if len(modified) == 0 {
				continue
			}
			changes = append(changes, Change[T]{
				Key:            key,
				ChangeType:     Modified,
				Old:            old,
				New:            cur,
				ModifiedFields: modified,
			})
		}
	}
	return changes
}

func compareFields(old, cur []field) map[string]FieldChange {
	var out map[string]FieldChange
	for i := range old {
		if old[i].value == cur[i].value {
			continue
		}
		if out == nil {
			out = make(map[string]FieldChange)
		}
		out[old[i].name] = FieldChange{Old: old[i].value, New: cur[i].value}
	}
	return out
}

// FieldOrder returns the modified field names of a change in their
// declared order, for stable rendering.
func FieldOrder[T any](c Change[T]) []string {
	var order []field
	switch any(c).(type) {
	case DomainChange:
		order = domainFields(&state.Domain{})
	case ConceptChange:
		order = conceptFields(&state.Concept{})
	case RelationshipChange:
		order = relationshipFields(&state.Relationship{})
	}
	out := make([]string, 0, len(c.ModifiedFields))
	for _, f := range order {
		if _, ok := c.ModifiedFields[f.name]; ok {
			out = append(out, f.name)
		}
	}
	return out
}
