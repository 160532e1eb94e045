// Package config provides configuration types, defaults and loading for
// conceptual. All configuration lives in the config section of conceptual.yml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/templates"
)

// ConceptualFileName is the conceptual model document in the project root.
const ConceptualFileName = "conceptual.yml"

// LayerGold is the only layer currently recognised by path.
const LayerGold = "gold"

// ErrConfigExists is returned by WriteTemplate when the target already exists.
var ErrConfigExists = errors.New("conceptual.yml already exists")

// RuleSeverity is the configured severity of a validation rule.
type RuleSeverity string

const (
	SeverityError  RuleSeverity = "error"
	SeverityWarn   RuleSeverity = "warn"
	SeverityIgnore RuleSeverity = "ignore"
)

// ParseRuleSeverity parses a severity case-insensitively.
func ParseRuleSeverity(s string) (RuleSeverity, bool) {
	switch RuleSeverity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityError:
		return SeverityError, true
	case SeverityWarn:
		return SeverityWarn, true
	case SeverityIgnore:
		return SeverityIgnore, true
	}
	return "", false
}

// Rule names a configurable validation rule.
type Rule string

const (
	RuleOrphanModels          Rule = "orphan_models"
	RuleUnimplementedConcepts Rule = "unimplemented_concepts"
	RuleMissingDefinitions    Rule = "missing_definitions"
)

// Rules lists every configurable rule.
var Rules = []Rule{RuleOrphanModels, RuleUnimplementedConcepts, RuleMissingDefinitions}

var builtinSeverity = map[Rule]RuleSeverity{
	RuleOrphanModels:          SeverityWarn,
	RuleUnimplementedConcepts: SeverityWarn,
	RuleMissingDefinitions:    SeverityIgnore,
}

// Config holds all configuration options for conceptual.
type Config struct {
	ProjectDir string           `mapstructure:"project_dir"`
	Scan       ScanConfig       `mapstructure:"scan"`
	Validation ValidationConfig `mapstructure:"validation"`
	History    HistoryConfig    `mapstructure:"history"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// ScanConfig holds model discovery settings.
type ScanConfig struct {
	// Gold is a list of doublestar globs, relative to the project dir,
	// matching schema YAML files of gold-layer models.
	Gold []string `mapstructure:"gold"`
}

// SeverityConfig maps each rule to a severity string. Empty or unknown
// values fall through to the next level.
type SeverityConfig struct {
	OrphanModels          string `mapstructure:"orphan_models"`
	UnimplementedConcepts string `mapstructure:"unimplemented_concepts"`
	MissingDefinitions    string `mapstructure:"missing_definitions"`
}

func (s SeverityConfig) raw(rule Rule) string {
	switch rule {
	case RuleOrphanModels:
		return s.OrphanModels
	case RuleUnimplementedConcepts:
		return s.UnimplementedConcepts
	case RuleMissingDefinitions:
		return s.MissingDefinitions
	}
	return ""
}

func (s SeverityConfig) lookup(rule Rule) (RuleSeverity, bool) {
	return ParseRuleSeverity(s.raw(rule))
}

// ValidationConfig holds rule severities and tag conventions.
type ValidationConfig struct {
	Defaults SeverityConfig `mapstructure:"defaults"`
	Gold     SeverityConfig `mapstructure:"gold"`
	Tags     TagConfig      `mapstructure:"tags"`
}

// SeverityFor returns the effective severity of a rule. A gold override
// wins over defaults when layer is LayerGold.
func (v ValidationConfig) SeverityFor(rule Rule, layer string) RuleSeverity {
	if layer == LayerGold {
		if sev, ok := v.Gold.lookup(rule); ok {
			return sev
		}
	}
	if sev, ok := v.Defaults.lookup(rule); ok {
		return sev
	}
	if sev, ok := builtinSeverity[rule]; ok {
		return sev
	}
	return SeverityWarn
}

// TagConfig controls how domain and owner tags are written to models.
type TagConfig struct {
	DomainsAllowMultiple bool   `mapstructure:"domains_allow_multiple"`
	Format               string `mapstructure:"format"` // "standard" (default) or "databricks"
}

// HistoryConfig holds validation run history settings.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Path is the sqlite database file, relative to the project dir unless
	// absolute.
	Path string `mapstructure:"path"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: <project>/.conceptual/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
}

// Overrides carries command-line values that win over the document.
type Overrides struct {
	GoldPaths []string
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Scan: ScanConfig{
			Gold: []string{"models/marts/**/*.yml"},
		},
		Validation: ValidationConfig{
			Defaults: SeverityConfig{
				OrphanModels:          string(SeverityWarn),
				UnimplementedConcepts: string(SeverityWarn),
				MissingDefinitions:    string(SeverityIgnore),
			},
			Tags: TagConfig{Format: "standard"},
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    filepath.Join(".conceptual", "history.db"),
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// ConceptualFile returns the path of conceptual.yml in the project dir.
func (c Config) ConceptualFile() string {
	return filepath.Join(c.ProjectDir, ConceptualFileName)
}

// HistoryPath resolves the history database path against the project dir.
func (c Config) HistoryPath() string {
	if filepath.IsAbs(c.History.Path) {
		return c.History.Path
	}
	return filepath.Join(c.ProjectDir, c.History.Path)
}

// TracesPath resolves the trace file path, defaulting under .conceptual.
func (c Config) TracesPath() string {
	switch {
	case c.Tracing.FilePath == "":
		return filepath.Join(c.ProjectDir, ".conceptual", "traces.jsonl")
	case filepath.IsAbs(c.Tracing.FilePath):
		return c.Tracing.FilePath
	default:
		return filepath.Join(c.ProjectDir, c.Tracing.FilePath)
	}
}

// LayerFor returns LayerGold when path matches a gold scan pattern, else "".
// A path also matches when it sits under the literal prefix of a pattern.
func (c Config) LayerFor(path string) string {
	rel := path
	if filepath.IsAbs(path) && c.ProjectDir != "" {
		if r, err := filepath.Rel(c.ProjectDir, path); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range c.Scan.Gold {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return LayerGold
		}
		base := strings.TrimRight(strings.SplitN(pattern, "*", 2)[0], "/")
		if base != "" && strings.HasPrefix(rel, base) {
			return LayerGold
		}
	}
	return ""
}

// Load reads configuration for projectDir. Priority: overrides, then
// CONCEPTUAL_* environment variables, then the config section of
// conceptual.yml, then Defaults. A missing conceptual.yml is not an error.
func Load(projectDir string, overrides Overrides) (Config, error) {
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("getting current directory: %w", err)
		}
		projectDir = wd
	}
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolving project dir: %w", err)
	}

	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix("CONCEPTUAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := filepath.Join(abs, ConceptualFileName)
	section, err := readConfigSection(path)
	if err != nil {
		return Config{}, err
	}
	if section != nil {
		if err := v.MergeConfigMap(section); err != nil {
			return Config{}, fmt.Errorf("merging config section: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ProjectDir = abs
	if len(overrides.GoldPaths) > 0 {
		cfg.Scan.Gold = overrides.GoldPaths
	}
	warnUnknownSeverities(cfg.Validation)

	log.Debug(log.CatConfig, "Loaded config", "project_dir", abs, "gold", strings.Join(cfg.Scan.Gold, ","))
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("scan.gold", d.Scan.Gold)
	v.SetDefault("validation.defaults.orphan_models", d.Validation.Defaults.OrphanModels)
	v.SetDefault("validation.defaults.unimplemented_concepts", d.Validation.Defaults.UnimplementedConcepts)
	v.SetDefault("validation.defaults.missing_definitions", d.Validation.Defaults.MissingDefinitions)
	v.SetDefault("validation.gold.orphan_models", "")
	v.SetDefault("validation.gold.unimplemented_concepts", "")
	v.SetDefault("validation.gold.missing_definitions", "")
	v.SetDefault("validation.tags.domains_allow_multiple", d.Validation.Tags.DomainsAllowMultiple)
	v.SetDefault("validation.tags.format", d.Validation.Tags.Format)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

// readConfigSection returns the config mapping of conceptual.yml, or nil
// when the file or the section is absent.
func readConfigSection(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ConceptualFileName, err)
	}

	var doc struct {
		Config map[string]any `yaml:"config"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConceptualFileName, err)
	}
	return doc.Config, nil
}

func warnUnknownSeverities(v ValidationConfig) {
	for _, rule := range Rules {
		for layer, sc := range map[string]SeverityConfig{"defaults": v.Defaults, LayerGold: v.Gold} {
			raw := sc.raw(rule)
			if raw == "" {
				continue
			}
			if _, ok := ParseRuleSeverity(raw); !ok {
				log.Warn(log.CatConfig, "Ignoring unknown severity", "rule", string(rule), "layer", layer, "value", raw)
			}
		}
	}
}

// Validate checks configuration for errors. Unknown rule severities are
// tolerated and fall back to defaults.
func Validate(c Config) error {
	if len(c.Scan.Gold) == 0 {
		return fmt.Errorf("scan.gold must list at least one pattern")
	}
	for _, p := range c.Scan.Gold {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("scan.gold: invalid pattern %q", p)
		}
	}

	switch c.Validation.Tags.Format {
	case "", "standard", "databricks":
	default:
		return fmt.Errorf("validation.tags.format must be \"standard\" or \"databricks\", got %q", c.Validation.Tags.Format)
	}

	return ValidateTracing(c.Tracing)
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}

	return nil
}

// DefaultConfigTemplate returns the init template for conceptual.yml.
func DefaultConfigTemplate() string {
	return templates.Conceptual()
}

// WriteTemplate creates conceptual.yml in projectDir from the init template.
// It never overwrites an existing file.
func WriteTemplate(projectDir string) (string, error) {
	path := filepath.Join(projectDir, ConceptualFileName)
	log.Debug(log.CatConfig, "Writing template", "path", path)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return path, ErrConfigExists
		}
		log.Err(log.CatConfig, "Failed to create conceptual.yml", err, "path", path)
		return path, fmt.Errorf("creating %s: %w", ConceptualFileName, err)
	}
	if _, err := f.WriteString(DefaultConfigTemplate()); err != nil {
		_ = f.Close()
		return path, fmt.Errorf("writing %s: %w", ConceptualFileName, err)
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("closing %s: %w", ConceptualFileName, err)
	}

	log.Info(log.CatConfig, "Created conceptual.yml", "path", path)
	return path, nil
}
