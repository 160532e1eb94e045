// Package stubs creates stub concepts in conceptual.yml for orphan models.
package stubs

import (
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/state"
)

// modelPrefixes are stripped from model names to derive concept ids. Only
// the first matching prefix is removed.
var modelPrefixes = []string{"dim_", "fact_", "stg_", "fct_", "bridge_"}

// ConceptID derives a concept id from a model name.
func ConceptID(model string) string {
	for _, p := range modelPrefixes {
		if rest, ok := strings.CutPrefix(model, p); ok && rest != "" {
			return rest
		}
	}
	return model
}

// Title turns an id like "sales_order" into "Sales Order".
func Title(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '_' || unicode.IsSpace(r) })
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Stub is one concept created from an orphan model.
type Stub struct {
	Model      string `json:"model"`
	ConceptID  string `json:"concept_id"`
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
	Domain     string `json:"domain,omitempty"`
}

// FromOrphan builds the stub for o.
func FromOrphan(o state.OrphanModel) Stub {
	id := ConceptID(o.Name)
	return Stub{
		Model:      o.Name,
		ConceptID:  id,
		Name:       Title(id),
		Definition: strings.TrimSpace(o.Description),
		Domain:     o.Domain,
	}
}

// Result lists stubs written and stubs skipped because the concept id was
// already taken.
type Result struct {
	Created []Stub `json:"created"`
	Skipped []Stub `json:"skipped"`
}

// Write appends stub concepts for orphans to the concepts mapping of the
// document at path. Existing content, comments and key order are kept. The
// file is left untouched when no stub is created.
func Write(path string, orphans []state.OrphanModel) (Result, error) {
	var res Result

	doc, err := config.LoadNode(path)
	if err != nil {
		return res, err
	}
	root := config.Root(doc)
	if root == nil {
		return res, fmt.Errorf("%s: top level is not a mapping", config.ConceptualFileName)
	}
	concepts, err := config.EnsureMapping(root, "concepts")
	if err != nil {
		return res, err
	}

	for _, o := range orphans {
		stub := FromOrphan(o)
		if config.MappingValue(concepts, stub.ConceptID) != nil {
			log.Info(log.CatReconcile, "Skipping stub, concept exists", "model", o.Name, "concept", stub.ConceptID)
			res.Skipped = append(res.Skipped, stub)
			continue
		}
		config.SetMappingValue(concepts, stub.ConceptID, stubNode(stub))
		res.Created = append(res.Created, stub)
	}

	if len(res.Created) == 0 {
		return res, nil
	}
	if err := config.SaveNode(path, doc); err != nil {
		return res, err
	}
	log.Info(log.CatReconcile, "Created stub concepts", "count", len(res.Created), "path", path)
	return res, nil
}

func stubNode(s Stub) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	config.SetMappingValue(m, "name", config.StringScalar(s.Name))
	if s.Domain != "" {
		config.SetMappingValue(m, "domain", config.StringScalar(s.Domain))
	}
	if s.Definition != "" {
		def := config.StringScalar(s.Definition)
		if strings.Contains(s.Definition, "\n") {
			def.Style = yaml.LiteralStyle
		}
		config.SetMappingValue(m, "definition", def)
	}
	return m
}
