package state

import (
	"fmt"
	"slices"
)

// Status is the derived maturity of a concept or relationship.
type Status string

const (
	StatusStub     Status = "stub"
	StatusDraft    Status = "draft"
	StatusComplete Status = "complete"
)

// Supported cardinalities. Anything else normalizes to CardinalityOneToMany.
const (
	CardinalityOneToOne  = "1:1"
	CardinalityOneToMany = "1:N"
)

// DefaultVerb is used for relationships declared without a verb.
const DefaultVerb = "relates_to"

// Status derives the concept status from its domain and model linkage.
func (c *Concept) Status() Status {
	if c.Domain == "" {
		return StatusStub
	}
	if len(c.Models) == 0 {
		return StatusDraft
	}
	return StatusComplete
}

// MissingAttributes lists which of domain, owner and definition are unset.
func (c *Concept) MissingAttributes() []string {
	var missing []string
	if c.Domain == "" {
		missing = append(missing, "domain")
	}
	if c.Owner == "" {
		missing = append(missing, "owner")
	}
	if c.Definition == "" {
		missing = append(missing, "definition")
	}
	return missing
}

// AddModel appends a model name unless it is already linked.
// Reports whether the list changed.
func (c *Concept) AddModel(name string) bool {
	if slices.Contains(c.Models, name) {
		return false
	}
	c.Models = append(c.Models, name)
	return true
}

// Key returns the natural key from:verb:to.
func (r *Relationship) Key() string {
	return RelationshipKey(r.From, r.Verb, r.To)
}

// RelationshipKey builds the natural key for a relationship.
func RelationshipKey(from, verb, to string) string {
	return fmt.Sprintf("%s:%s:%s", from, verb, to)
}

// Name is the display name. A custom name wins over the derived key.
func (r *Relationship) Name() string {
	if r.CustomName != "" {
		return r.CustomName
	}
	return r.Key()
}

// Status derives the relationship status from the current concept map:
// stub when either endpoint is missing, a ghost or a stub.
func (r *Relationship) Status(concepts map[string]*Concept) Status {
	for _, id := range []string{r.From, r.To} {
		c, ok := concepts[id]
		if !ok || c.IsGhost || c.Status() == StatusStub {
			return StatusStub
		}
	}
	return StatusComplete
}

// NormalizeCardinality maps any value other than "1:1" or "1:N" to "1:N".
func NormalizeCardinality(s string) string {
	if s == CardinalityOneToOne {
		return CardinalityOneToOne
	}
	return CardinalityOneToMany
}
