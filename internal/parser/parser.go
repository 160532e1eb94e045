// Package parser reads conceptual.yml into a state.ProjectState holding the
// declared domains, concepts and relationships. It performs no model
// discovery and no validation.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/state"
)

var (
	// ErrDocumentNotFound is returned when conceptual.yml does not exist.
	ErrDocumentNotFound = errors.New("conceptual.yml not found")

	// ErrInvalidDocument wraps structural problems the document cannot
	// be parsed past, such as a relationship with no endpoints.
	ErrInvalidDocument = errors.New("invalid conceptual document")
)

// Document is the on-disk shape of conceptual.yml. The config section is
// read separately by the config package.
type Document struct {
	Metadata      map[string]any         `yaml:"metadata"`
	Domains       map[string]DomainSpec  `yaml:"domains"`
	Concepts      ConceptSpecs           `yaml:"concepts"`
	Relationships []RelationshipSpec     `yaml:"relationships"`
}

// DomainSpec is a domain entry.
type DomainSpec struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Color       string `yaml:"color"`
	Owner       string `yaml:"owner"`
}

// ConceptSpec is a concept entry. Models are never declared here.
type ConceptSpec struct {
	Name       string `yaml:"name"`
	Domain     string `yaml:"domain"`
	Owner      string `yaml:"owner"`
	Definition string `yaml:"definition"`
	Color      string `yaml:"color"`
}

// ConceptSpecs is the concepts mapping with its keys in document order.
type ConceptSpecs struct {
	Order []string
	Specs map[string]ConceptSpec
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *ConceptSpecs) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: concepts must be a mapping", value.Line)
	}
	c.Specs = make(map[string]ConceptSpec, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, specNode := value.Content[i], value.Content[i+1]
		id := keyNode.Value
		if _, dup := c.Specs[id]; dup {
			return fmt.Errorf("line %d: concept %q already defined", keyNode.Line, id)
		}
		var spec ConceptSpec
		if err := specNode.Decode(&spec); err != nil {
			return fmt.Errorf("concept %q: %w", id, err)
		}
		c.Order = append(c.Order, id)
		c.Specs[id] = spec
	}
	return nil
}

// RelationshipSpec is one element of the relationships list.
type RelationshipSpec struct {
	Verb        string     `yaml:"verb"`
	Name        string     `yaml:"name"`
	From        string     `yaml:"from"`
	To          string     `yaml:"to"`
	Cardinality string     `yaml:"cardinality"`
	Definition  string     `yaml:"definition"`
	Owner       string     `yaml:"owner"`
	Domains     StringList `yaml:"domains"`
}

// StringList decodes either a single scalar or a sequence of scalars.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || value.Value == "" {
			*l = nil
			return nil
		}
		*l = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := value.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list", value.Line)
	}
}

// FileParser parses the conceptual document at Path.
type FileParser struct {
	Path string
}

// NewFileParser creates a FileParser for path.
func NewFileParser(path string) *FileParser {
	return &FileParser{Path: path}
}

// Parse reads and parses the document. A missing file yields
// ErrDocumentNotFound.
func (p *FileParser) Parse(ctx context.Context) (*state.ProjectState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := ParseFile(p.Path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ParseFile reads and parses the document at path.
func ParseFile(path string) (*state.ProjectState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("reading conceptual document: %w", err)
	}
	st, err := Parse(data)
	if err != nil {
		return nil, err
	}
	log.Debug(log.CatParser, "Parsed conceptual document",
		"path", path,
		"domains", len(st.Domains),
		"concepts", len(st.Concepts),
		"relationships", len(st.RelationshipOrder))
	return st, nil
}

// Parse builds a ProjectState from raw document bytes. An empty document
// yields an empty state.
func Parse(data []byte) (*state.ProjectState, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing conceptual document: %w", err)
	}
	return doc.State()
}

// State converts the document into a ProjectState, applying defaults:
// missing verb is relates_to, concept name falls back to its key, domain
// display name is display_name, else name, else key, and cardinality is
// normalized.
func (d Document) State() (*state.ProjectState, error) {
	st := state.New()

	for k, v := range d.Metadata {
		if v == nil {
			continue
		}
		st.Metadata[k] = fmt.Sprint(v)
	}

	for id, spec := range d.Domains {
		display := spec.DisplayName
		if display == "" {
			display = spec.Name
		}
		if display == "" {
			display = id
		}
		st.Domains[id] = &state.Domain{
			ID:          id,
			DisplayName: display,
			Color:       spec.Color,
			Owner:       spec.Owner,
		}
	}

	for _, id := range d.Concepts.Order {
		spec := d.Concepts.Specs[id]
		name := spec.Name
		if name == "" {
			name = id
		}
		st.AddConcept(id, &state.Concept{
			Name:       name,
			Domain:     spec.Domain,
			Owner:      spec.Owner,
			Definition: spec.Definition,
			Color:      spec.Color,
			Models:     []string{},
		})
	}

	for i, spec := range d.Relationships {
		if spec.From == "" || spec.To == "" {
			return nil, fmt.Errorf("%w: relationship %d needs both from and to", ErrInvalidDocument, i)
		}
		verb := spec.Verb
		if verb == "" {
			verb = state.DefaultVerb
		}
		st.AddRelationship(&state.Relationship{
			Verb:        verb,
			From:        spec.From,
			To:          spec.To,
			Cardinality: state.NormalizeCardinality(spec.Cardinality),
			Definition:  spec.Definition,
			Owner:       spec.Owner,
			Domains:     []string(spec.Domains),
			CustomName:  spec.Name,
		})
	}

	return st, nil
}
