// Package validator runs the configurable rule set over a reconciled
// project state and reports issues with stable codes.
package validator

import (
	"fmt"
	"strings"

	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/state"
)

// Severity is the level of a reported issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue codes.
const (
	CodeUnknownConcept         = "E002"
	CodeOrphanModel            = "W101"
	CodeUnimplementedConcept   = "W102"
	CodeMissingDefinition      = "W104"
	CodeUnknownDomain          = "W001"
	CodeStubConcept            = "I001"
	CodeStubRelationship       = "I002"
	CodeStubConceptStrict      = "E201"
	CodeStubRelationshipStrict = "E202"
)

// Issue is a single rule violation.
type Issue struct {
	Severity Severity       `json:"severity"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
}

// Summary counts issues by severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"info"`
}

// Option configures a Validator.
type Option func(*Validator)

// WithNoDrafts promotes stub and draft reminders to errors.
func WithNoDrafts(noDrafts bool) Option {
	return func(v *Validator) {
		v.noDrafts = noDrafts
	}
}

// WithLayerResolver sets how an orphan model path maps to a layer for
// severity lookup. Without it every orphan is treated as gold.
func WithLayerResolver(resolve func(path string) string) Option {
	return func(v *Validator) {
		v.layerFor = resolve
	}
}

// Validator checks a project state against the validation rules.
type Validator struct {
	cfg      config.ValidationConfig
	st       *state.ProjectState
	noDrafts bool
	layerFor func(path string) string

	issues []Issue
}

// New returns a Validator for st.
func New(cfg config.ValidationConfig, st *state.ProjectState, opts ...Option) *Validator {
	v := &Validator{cfg: cfg, st: st}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every rule in order and returns the issues found. Calling
// it again recomputes from scratch.
func (v *Validator) Validate() []Issue {
	v.issues = nil

	v.checkRelationshipEndpoints()
	v.checkOrphanModels()
	v.checkUnimplementedConcepts()
	v.checkMissingDefinitions()
	v.checkDomainReferences()
	v.checkStubs()

	s := v.Summary()
	log.Debug(log.CatValidate, "Validation complete",
		"errors", s.Errors,
		"warnings", s.Warnings,
		"infos", s.Infos,
		"no_drafts", v.noDrafts)
	return v.issues
}

// Issues returns the result of the last Validate call.
func (v *Validator) Issues() []Issue {
	return v.issues
}

// HasErrors reports whether the last run produced an error-level issue.
func (v *Validator) HasErrors() bool {
	for _, issue := range v.issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Summary counts the issues of the last run by severity.
func (v *Validator) Summary() Summary {
	var s Summary
	for _, issue := range v.issues {
		switch issue.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		case SeverityInfo:
			s.Infos++
		}
	}
	return s
}

func (v *Validator) add(sev Severity, code string, ctx map[string]any, format string, args ...any) {
	v.issues = append(v.issues, Issue{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Context:  ctx,
	})
}

// severity maps the configured rule severity to an issue severity. The
// second result is false when the rule is ignored.
func (v *Validator) severity(rule config.Rule, layer string) (Severity, bool) {
	switch v.cfg.SeverityFor(rule, layer) {
	case config.SeverityError:
		return SeverityError, true
	case config.SeverityWarn:
		return SeverityWarning, true
	default:
		return "", false
	}
}

func (v *Validator) checkRelationshipEndpoints() {
	for _, key := range v.st.RelationshipKeys() {
		r := v.st.Relationships[key]
		for _, id := range []string{r.From, r.To} {
			if _, ok := v.st.Concepts[id]; ok {
				continue
			}
			v.add(SeverityError, CodeUnknownConcept,
				map[string]any{"relationship": key, "missing_concept": id},
				"Relationship '%s' references non-existent concept '%s'", key, id)
		}
	}
}

func (v *Validator) checkOrphanModels() {
	for _, orphan := range v.st.Orphans {
		layer := config.LayerGold
		if v.layerFor != nil {
			layer = v.layerFor(orphan.Path)
		}
		sev, ok := v.severity(config.RuleOrphanModels, layer)
		if !ok {
			continue
		}
		v.add(sev, CodeOrphanModel,
			map[string]any{"model": orphan.Name, "path": orphan.Path},
			"Model '%s' is not linked to any concept", orphan.Name)
	}
}

func (v *Validator) checkUnimplementedConcepts() {
	sev, ok := v.severity(config.RuleUnimplementedConcepts, config.LayerGold)
	if !ok {
		return
	}
	for _, id := range v.st.ConceptIDs() {
		c := v.st.Concepts[id]
		if c.IsGhost || len(c.Models) > 0 {
			continue
		}
		v.add(sev, CodeUnimplementedConcept,
			map[string]any{"concept": id, "status": string(c.Status())},
			"Concept '%s' has no implementing models", id)
	}
}

func (v *Validator) checkMissingDefinitions() {
	sev, ok := v.severity(config.RuleMissingDefinitions, config.LayerGold)
	if !ok {
		return
	}
	for _, id := range v.st.ConceptIDs() {
		c := v.st.Concepts[id]
		if c.IsGhost || c.Status() == state.StatusStub || c.Definition != "" {
			continue
		}
		v.add(sev, CodeMissingDefinition,
			map[string]any{"concept": id, "status": string(c.Status())},
			"Concept '%s' is missing a definition", id)
	}
	for _, key := range v.st.RelationshipKeys() {
		if v.st.Relationships[key].Definition != "" {
			continue
		}
		v.add(sev, CodeMissingDefinition,
			map[string]any{"relationship": key},
			"Relationship '%s' is missing a definition", key)
	}
}

func (v *Validator) checkDomainReferences() {
	for _, id := range v.st.ConceptIDs() {
		c := v.st.Concepts[id]
		if c.Domain == "" {
			continue
		}
		if _, ok := v.st.Domains[c.Domain]; ok {
			continue
		}
		v.add(SeverityWarning, CodeUnknownDomain,
			map[string]any{"concept": id, "domain": c.Domain},
			"Concept '%s' references unknown domain '%s'", id, c.Domain)
	}
}

func (v *Validator) checkStubs() {
	sev, conceptCode, relCode := SeverityInfo, CodeStubConcept, CodeStubRelationship
	if v.noDrafts {
		sev, conceptCode, relCode = SeverityError, CodeStubConceptStrict, CodeStubRelationshipStrict
	}

	for _, id := range v.st.ConceptIDs() {
		c := v.st.Concepts[id]
		if c.IsGhost {
			continue
		}
		status := c.Status()
		if status == state.StatusComplete {
			continue
		}
		missing := c.MissingAttributes()
		if len(missing) == 0 {
			continue
		}
		v.add(sev, conceptCode,
			map[string]any{"concept": id, "missing": missing, "status": string(status)},
			"%s concept '%s' needs enrichment: missing %s", capitalize(string(status)), id, strings.Join(missing, ", "))
	}

	for _, key := range v.st.RelationshipKeys() {
		r := v.st.Relationships[key]
		status := r.Status(v.st.Concepts)
		if status != state.StatusStub {
			continue
		}
		missing := []string{}
		if r.Definition == "" {
			missing = append(missing, "definition")
		}
		ctx := map[string]any{"relationship": r.Name(), "missing": missing, "status": string(status)}
		if len(missing) > 0 {
			v.add(sev, relCode, ctx, "Stub relationship '%s' needs enrichment: missing %s", r.Name(), strings.Join(missing, ", "))
		} else {
			v.add(sev, relCode, ctx, "Stub relationship '%s' has stub/ghost endpoint concepts", r.Name())
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
