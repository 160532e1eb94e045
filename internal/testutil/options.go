package testutil

// modelData is one entry under models: in a schema file.
type modelData struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Meta        *metaData `yaml:"meta,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
}

type metaData struct {
	Concept  string   `yaml:"concept,omitempty"`
	Realizes []string `yaml:"realizes,omitempty"`
}

// ModelOption configures a model during builder setup.
type ModelOption func(*modelData)

func (m *modelData) meta() *metaData {
	if m.Meta == nil {
		m.Meta = &metaData{}
	}
	return m.Meta
}

// Concept sets meta.concept.
func Concept(id string) ModelOption {
	return func(m *modelData) { m.meta().Concept = id }
}

// Realizes sets meta.realizes.
func Realizes(relationships ...string) ModelOption {
	return func(m *modelData) { m.meta().Realizes = relationships }
}

// Description sets the model description.
func Description(text string) ModelOption {
	return func(m *modelData) { m.Description = text }
}

// Tags sets the model's top-level tags.
func Tags(tags ...string) ModelOption {
	return func(m *modelData) { m.Tags = tags }
}
