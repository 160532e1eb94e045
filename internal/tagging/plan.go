// Package tagging propagates concept domains and owners onto the tags of
// the models that implement them.
package tagging

import (
	"cmp"
	"slices"

	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/state"
)

// Tag encodings accepted in validation.tags.format.
const (
	FormatStandard   = "standard"
	FormatDatabricks = "databricks"
)

// Action says whether a model gains its first domain tag or has tags rewritten.
type Action string

const (
	ActionAdd    Action = "add"
	ActionModify Action = "modify"
)

// Change is the tag edit needed to bring one model in line with its concept.
type Change struct {
	Model string `json:"model"`
	// Path is the schema file declaring the model, relative to the project dir.
	Path   string `json:"path"`
	Action Action `json:"action"`

	CurrentDomains []string `json:"current_domains"`
	CurrentOwner   string   `json:"current_owner,omitempty"`
	Domain         string   `json:"domain"`
	Owner          string   `json:"owner,omitempty"`

	AddDomains    []string `json:"add_domains,omitempty"`
	RemoveDomains []string `json:"remove_domains,omitempty"`
	AddOwner      string   `json:"add_owner,omitempty"`
	RemoveOwner   string   `json:"remove_owner,omitempty"`
}

// Domains returns the domain tags the model carries after the change.
func (c Change) Domains() []string {
	out := []string{c.Domain}
	for _, d := range c.CurrentDomains {
		if d != c.Domain && !slices.Contains(c.RemoveDomains, d) {
			out = append(out, d)
		}
	}
	slices.Sort(out[1:])
	return out
}

// FinalOwner returns the owner the model carries after the change.
func (c Change) FinalOwner() string {
	if c.AddOwner != "" {
		return c.AddOwner
	}
	return c.CurrentOwner
}

// Planner computes tag changes from a reconciled state.
type Planner struct {
	st  *state.ProjectState
	cfg config.TagConfig
}

// NewPlanner creates a Planner for st.
func NewPlanner(st *state.ProjectState, cfg config.TagConfig) *Planner {
	if cfg.Format == "" {
		cfg.Format = FormatStandard
	}
	return &Planner{st: st, cfg: cfg}
}

// Plan returns the changes needed, sorted by model name. When models is
// non-empty only those models are considered. Models without a concept,
// linked to a ghost, whose concept has no domain, or with no known schema
// path are skipped.
func (p *Planner) Plan(models ...string) []Change {
	var changes []Change
	for name, info := range p.st.Models {
		if len(models) > 0 && !slices.Contains(models, name) {
			continue
		}
		if change, ok := p.planModel(info); ok {
			changes = append(changes, change)
		}
	}
	slices.SortFunc(changes, func(a, b Change) int { return cmp.Compare(a.Model, b.Model) })
	log.Debug(log.CatReconcile, "Planned tag changes", "changes", len(changes))
	return changes
}

func (p *Planner) planModel(info state.ModelInfo) (Change, bool) {
	if info.Concept == "" {
		return Change{}, false
	}
	concept, ok := p.st.Concepts[info.Concept]
	if !ok || concept.IsGhost || concept.Domain == "" {
		return Change{}, false
	}
	if info.Path == "" {
		log.Debug(log.CatReconcile, "No schema path for model", "model", info.Name)
		return Change{}, false
	}

	owner := concept.Owner
	if owner == "" {
		if d, ok := p.st.Domains[concept.Domain]; ok {
			owner = d.Owner
		}
	}

	change := Change{
		Model:          info.Name,
		Path:           info.Path,
		Action:         ActionModify,
		CurrentDomains: slices.Clone(info.DomainTags),
		CurrentOwner:   info.OwnerTag,
		Domain:         concept.Domain,
		Owner:          owner,
	}
	if len(info.DomainTags) == 0 {
		change.Action = ActionAdd
	}
	if change.CurrentDomains == nil {
		change.CurrentDomains = []string{}
	}

	if !slices.Contains(info.DomainTags, concept.Domain) {
		change.AddDomains = []string{concept.Domain}
	}
	if !p.cfg.DomainsAllowMultiple {
		for _, d := range info.DomainTags {
			if d != concept.Domain {
				change.RemoveDomains = append(change.RemoveDomains, d)
			}
		}
		slices.Sort(change.RemoveDomains)
	}
	if owner != "" && info.OwnerTag != owner {
		change.AddOwner = owner
		change.RemoveOwner = info.OwnerTag
	}

	if len(change.AddDomains) == 0 && len(change.RemoveDomains) == 0 && change.AddOwner == "" {
		return Change{}, false
	}
	return change, true
}
