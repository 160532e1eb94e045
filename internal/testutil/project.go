// Package testutil builds dbt project fixtures on disk for tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type schemaFile struct {
	path   string
	models []modelData
}

// Project accumulates the files of a dbt project and writes them to a temp dir.
type Project struct {
	t       *testing.T
	files   map[string]string
	order   []string
	schemas []*schemaFile
}

// NewProject creates an empty project builder.
func NewProject(t *testing.T) *Project {
	t.Helper()
	return &Project{t: t, files: make(map[string]string)}
}

// WithFile adds a file at rel with the given content. A later call for the
// same path replaces the content.
func (p *Project) WithFile(rel, content string) *Project {
	if _, ok := p.files[rel]; !ok {
		p.order = append(p.order, rel)
	}
	p.files[rel] = content
	return p
}

// WithDbtProject adds dbt_project.yml with the given project name.
func (p *Project) WithDbtProject(name string) *Project {
	return p.WithFile("dbt_project.yml", "name: "+name+"\n")
}

// WithConceptual adds conceptual.yml.
func (p *Project) WithConceptual(doc string) *Project {
	return p.WithFile("conceptual.yml", doc)
}

// WithModel adds a model entry to the schema file at schemaPath, creating
// the file on first use.
func (p *Project) WithModel(schemaPath, name string, opts ...ModelOption) *Project {
	m := modelData{Name: name}
	for _, opt := range opts {
		opt(&m)
	}
	for _, s := range p.schemas {
		if s.path == schemaPath {
			s.models = append(s.models, m)
			return p
		}
	}
	p.schemas = append(p.schemas, &schemaFile{path: schemaPath, models: []modelData{m}})
	return p
}

// Build writes all files to a fresh temp dir and returns its path.
func (p *Project) Build() string {
	p.t.Helper()
	dir := p.t.TempDir()
	for _, rel := range p.order {
		writeFile(p.t, dir, rel, p.files[rel])
	}
	for _, s := range p.schemas {
		writeFile(p.t, dir, s.path, renderSchema(p.t, s.models))
	}
	return dir
}

func renderSchema(t *testing.T, models []modelData) string {
	t.Helper()
	doc := struct {
		Version int         `yaml:"version"`
		Models  []modelData `yaml:"models"`
	}{Version: 2, Models: models}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	require.NoError(t, enc.Encode(doc))
	require.NoError(t, enc.Close())
	return buf.String()
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
