// Package scanner discovers pipeline models by reading the models section
// of dbt-style schema YAML files matched by doublestar globs.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/state"
)

// Scanner finds schema files under Root matching Patterns.
type Scanner struct {
	Root     string
	Patterns []string
}

// New creates a Scanner rooted at the project directory.
func New(root string, patterns []string) *Scanner {
	return &Scanner{Root: root, Patterns: patterns}
}

// schemaFile is the subset of a dbt schema file the scanner reads.
type schemaFile struct {
	Models []schemaModel `yaml:"models"`
}

type schemaModel struct {
	Name           string         `yaml:"name"`
	Description    string         `yaml:"description"`
	Meta           map[string]any `yaml:"meta"`
	Tags           tagList        `yaml:"tags"`
	DatabricksTags map[string]any `yaml:"databricks_tags"`
	Config         struct {
		Meta           map[string]any `yaml:"meta"`
		Tags           tagList        `yaml:"tags"`
		DatabricksTags map[string]any `yaml:"databricks_tags"`
	} `yaml:"config"`
}

// tagList accepts a single tag or a list of tags.
type tagList []string

func (t *tagList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || value.Value == "" {
			*t = nil
			return nil
		}
		*t = tagList{value.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := value.Decode(&out); err != nil {
			return err
		}
		*t = out
		return nil
	default:
		return fmt.Errorf("line %d: tags must be a string or list", value.Line)
	}
}

// Files returns the schema files matched by the patterns, relative to Root,
// sorted and deduplicated. A pattern without glob characters naming a
// directory matches every .yml and .yaml file beneath it.
func (s *Scanner) Files() ([]string, error) {
	fsys := os.DirFS(s.Root)
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range s.Patterns {
		pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
		if !strings.ContainsAny(pattern, "*?[{") {
			if info, err := fs.Stat(fsys, pattern); err == nil && info.IsDir() {
				pattern = path.Join(pattern, "**", "*.{yml,yaml}")
			}
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	slices.Sort(files)
	return files, nil
}

// Scan reads every matched schema file and returns one record per model.
// Unreadable or malformed files are logged and skipped. When a model name
// repeats, the first file in sorted order wins.
func (s *Scanner) Scan(ctx context.Context) ([]state.ModelRecord, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var records []state.ModelRecord
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		models, err := readSchema(filepath.Join(s.Root, filepath.FromSlash(rel)))
		if err != nil {
			log.Warn(log.CatScan, "Skipping schema file", "path", rel, "error", err.Error())
			continue
		}
		for _, m := range models {
			if m.Name == "" {
				continue
			}
			if seen[m.Name] {
				log.Warn(log.CatScan, "Duplicate model name", "model", m.Name, "path", rel)
				continue
			}
			seen[m.Name] = true
			records = append(records, m.record(rel))
		}
	}

	log.Debug(log.CatScan, "Scanned models", "files", len(files), "models", len(records))
	return records, nil
}

func readSchema(path string) ([]schemaModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Models, nil
}

// record merges top-level and config-level keys. Top-level meta keys win
// over config.meta; tags are unioned in order.
func (m schemaModel) record(path string) state.ModelRecord {
	meta := make(map[string]any, len(m.Meta)+len(m.Config.Meta))
	for k, v := range m.Config.Meta {
		meta[k] = v
	}
	for k, v := range m.Meta {
		meta[k] = v
	}

	var tags []string
	for _, t := range append(slices.Clone([]string(m.Tags)), m.Config.Tags...) {
		if !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}

	structured := m.DatabricksTags
	if structured == nil {
		structured = m.Config.DatabricksTags
	}

	return state.ModelRecord{
		Name:           m.Name,
		Meta:           meta,
		Tags:           tags,
		StructuredTags: structured,
		Description:    strings.TrimSpace(m.Description),
		Path:           path,
	}
}
