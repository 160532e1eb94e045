package tagging

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/log"
)

// ErrModelNotInFile is returned when a planned model is missing from the
// schema file it was discovered in.
var ErrModelNotInFile = errors.New("model not found in schema file")

// FileError records a schema file that could not be updated.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Result reports what Apply did.
type Result struct {
	Changes       []Change
	ModifiedFiles []string
	Errors        []error
}

// Applier writes planned tag changes into schema files. Files are edited as
// YAML node trees so comments, key order and anchors survive.
type Applier struct {
	root string
	cfg  config.TagConfig
}

// NewApplier creates an Applier for schema files under projectDir.
func NewApplier(projectDir string, cfg config.TagConfig) *Applier {
	if cfg.Format == "" {
		cfg.Format = FormatStandard
	}
	return &Applier{root: projectDir, cfg: cfg}
}

// Apply groups changes by file and rewrites each file once. A failing file
// is recorded in Result.Errors and the remaining files are still processed.
// With dryRun set, files are parsed and edited in memory but not written.
func (a *Applier) Apply(ctx context.Context, changes []Change, dryRun bool) (Result, error) {
	result := Result{Changes: changes}

	byFile := make(map[string][]Change)
	var files []string
	for _, c := range changes {
		if _, ok := byFile[c.Path]; !ok {
			files = append(files, c.Path)
		}
		byFile[c.Path] = append(byFile[c.Path], c)
	}
	slices.Sort(files)

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := a.applyFile(rel, byFile[rel], dryRun); err != nil {
			log.Warn(log.CatReconcile, "Tag apply failed", "path", rel, "error", err.Error())
			result.Errors = append(result.Errors, &FileError{Path: rel, Err: err})
			continue
		}
		result.ModifiedFiles = append(result.ModifiedFiles, rel)
	}

	log.Info(log.CatReconcile, "Applied tag changes", "files", len(result.ModifiedFiles), "errors", len(result.Errors), "dry_run", dryRun)
	return result, nil
}

func (a *Applier) applyFile(rel string, changes []Change, dryRun bool) error {
	path := filepath.Join(a.root, filepath.FromSlash(rel))
	doc, err := config.LoadNode(path)
	if err != nil {
		return err
	}
	models := config.MappingValue(config.Root(doc), "models")
	if models == nil || models.Kind != yaml.SequenceNode {
		return fmt.Errorf("no models list")
	}

	for _, c := range changes {
		model := findModel(models, c.Model)
		if model == nil {
			return fmt.Errorf("%s: %w", c.Model, ErrModelNotInFile)
		}
		switch a.cfg.Format {
		case FormatDatabricks:
			if err := a.applyStructured(model, c); err != nil {
				return fmt.Errorf("%s: %w", c.Model, err)
			}
		default:
			if err := a.applyFlat(model, c); err != nil {
				return fmt.Errorf("%s: %w", c.Model, err)
			}
		}
	}

	if dryRun {
		return nil
	}
	return config.SaveNode(path, doc)
}

func findModel(models *yaml.Node, name string) *yaml.Node {
	for _, m := range models.Content {
		if n := config.MappingValue(m, "name"); n != nil && n.Value == name {
			return m
		}
	}
	return nil
}

// tagParent returns the mapping holding key: the model itself when the key
// already sits at top level, else its config mapping.
func tagParent(model *yaml.Node, key string) (*yaml.Node, error) {
	if config.MappingValue(model, key) != nil {
		return model, nil
	}
	return config.EnsureMapping(model, "config")
}

// applyFlat rewrites domain: and owner: entries of the tags list. Other tags
// keep their position; domain and owner tags are appended at the end.
func (a *Applier) applyFlat(model *yaml.Node, c Change) error {
	parent, err := tagParent(model, "tags")
	if err != nil {
		return err
	}

	var kept []string
	if existing := config.MappingValue(parent, "tags"); existing != nil {
		switch existing.Kind {
		case yaml.SequenceNode:
			for _, n := range existing.Content {
				kept = append(kept, n.Value)
			}
		case yaml.ScalarNode:
			if existing.Value != "" && existing.Tag != "!!null" {
				kept = append(kept, existing.Value)
			}
		default:
			return fmt.Errorf("tags is not a list")
		}
	}
	kept = slices.DeleteFunc(kept, func(t string) bool {
		return strings.HasPrefix(t, "domain:") || strings.HasPrefix(t, "owner:")
	})

	for _, d := range c.Domains() {
		kept = append(kept, "domain:"+d)
	}
	if owner := c.FinalOwner(); owner != "" {
		kept = append(kept, "owner:"+owner)
	}

	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, t := range kept {
		seq.Content = append(seq.Content, config.StringScalar(t))
	}
	config.SetMappingValue(parent, "tags", seq)
	return nil
}

// applyStructured sets domain and owner in the databricks_tags mapping.
// domain is a list when several domains are allowed, else a string.
func (a *Applier) applyStructured(model *yaml.Node, c Change) error {
	parent, err := tagParent(model, "databricks_tags")
	if err != nil {
		return err
	}
	tags, err := config.EnsureMapping(parent, "databricks_tags")
	if err != nil {
		return err
	}

	if a.cfg.DomainsAllowMultiple {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, d := range c.Domains() {
			seq.Content = append(seq.Content, config.StringScalar(d))
		}
		config.SetMappingValue(tags, "domain", seq)
	} else {
		config.SetMappingValue(tags, "domain", config.StringScalar(c.Domain))
	}
	if c.AddOwner != "" {
		config.SetMappingValue(tags, "owner", config.StringScalar(c.AddOwner))
	}
	return nil
}
