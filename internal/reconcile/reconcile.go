// Package reconcile merges the declared conceptual model with discovered
// pipeline models and runs the validation and sync pass that creates ghost
// concepts for dangling references.
package reconcile

import (
	"slices"
	"strings"

	"github.com/zjrosen/conceptual/internal/state"
)

const (
	domainTagPrefix = "domain:"
	ownerTagPrefix  = "owner:"
)

// Reconcile returns a new state combining doc with the discovered model
// records. doc is not modified.
//
// A record whose meta.concept names a known concept is linked to it. A
// record with no concept link becomes an orphan. A record linking to an
// unknown concept is neither: it is only kept in Models, where its
// ModelInfo.Concept names the missing concept. Ghosts are never created here.
func Reconcile(doc *state.ProjectState, records []state.ModelRecord) *state.ProjectState {
	st := doc.Clone()

	for _, rec := range records {
		link, hasLink := rec.ConceptLink()
		switch {
		case !hasLink:
			if !st.IsOrphan(rec.Name) {
				st.Orphans = append(st.Orphans, state.OrphanModel{
					Name:        rec.Name,
					Description: rec.Description,
					Domain:      rec.MetaString("domain"),
					Path:        rec.Path,
				})
			}
		default:
			if c, ok := st.Concepts[link]; ok {
				c.AddModel(rec.Name)
			}
		}

		st.Models[rec.Name] = modelInfo(rec, link)
	}

	return st
}

// modelInfo extracts domain and owner tags from both encodings. Flat tags
// come first, structured tags are appended, and a structured owner wins.
func modelInfo(rec state.ModelRecord, link string) state.ModelInfo {
	info := state.ModelInfo{
		Name:    rec.Name,
		Concept: link,
		Path:    rec.Path,
	}

	addDomain := func(d string) {
		if d != "" && !slices.Contains(info.DomainTags, d) {
			info.DomainTags = append(info.DomainTags, d)
		}
	}

	for _, tag := range rec.Tags {
		switch {
		case strings.HasPrefix(tag, domainTagPrefix):
			addDomain(strings.TrimPrefix(tag, domainTagPrefix))
		case strings.HasPrefix(tag, ownerTagPrefix):
			info.OwnerTag = strings.TrimPrefix(tag, ownerTagPrefix)
		}
	}

	if v, ok := rec.StructuredTags["domain"]; ok {
		switch d := v.(type) {
		case []any:
			for _, item := range d {
				addDomain(state.StringValue(item))
			}
		case []string:
			for _, s := range d {
				addDomain(s)
			}
		default:
			addDomain(state.StringValue(d))
		}
	}
	if v, ok := rec.StructuredTags["owner"]; ok {
		if s := state.StringValue(v); s != "" {
			info.OwnerTag = s
		}
	}

	return info
}
