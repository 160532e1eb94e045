package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConceptual(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConceptualFileName), []byte(content), 0o644))
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, []string{"models/marts/**/*.yml"}, cfg.Scan.Gold)
	require.Equal(t, SeverityWarn, cfg.Validation.SeverityFor(RuleOrphanModels, ""))
	require.Equal(t, SeverityWarn, cfg.Validation.SeverityFor(RuleUnimplementedConcepts, ""))
	require.Equal(t, SeverityIgnore, cfg.Validation.SeverityFor(RuleMissingDefinitions, ""))
	require.Equal(t, "standard", cfg.Validation.Tags.Format)
	require.False(t, cfg.History.Enabled)
	require.False(t, cfg.Tracing.Enabled)
	require.NoError(t, Validate(cfg))
}

func TestParseRuleSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want RuleSeverity
		ok   bool
	}{
		{"error", SeverityError, true},
		{"WARN", SeverityWarn, true},
		{" ignore ", SeverityIgnore, true},
		{"fatal", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRuleSeverity(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSeverityFor_GoldOverrideWins(t *testing.T) {
	v := ValidationConfig{
		Defaults: SeverityConfig{OrphanModels: "warn"},
		Gold:     SeverityConfig{OrphanModels: "error"},
	}
	require.Equal(t, SeverityError, v.SeverityFor(RuleOrphanModels, LayerGold))
	require.Equal(t, SeverityWarn, v.SeverityFor(RuleOrphanModels, ""))
	require.Equal(t, SeverityWarn, v.SeverityFor(RuleUnimplementedConcepts, LayerGold))
	require.Equal(t, SeverityIgnore, v.SeverityFor(RuleMissingDefinitions, LayerGold))
}

func TestSeverityFor_UnknownValuesFallBack(t *testing.T) {
	v := ValidationConfig{
		Defaults: SeverityConfig{OrphanModels: "loud"},
		Gold:     SeverityConfig{OrphanModels: "quiet"},
	}
	require.Equal(t, SeverityWarn, v.SeverityFor(RuleOrphanModels, LayerGold))
	require.Equal(t, SeverityWarn, v.SeverityFor(Rule("no_such_rule"), ""))
}

func TestLoad_MissingDocumentUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, Overrides{})
	require.NoError(t, err)
	require.Equal(t, Defaults().Scan.Gold, cfg.Scan.Gold)
	require.Equal(t, filepath.Join(cfg.ProjectDir, ConceptualFileName), cfg.ConceptualFile())
	require.True(t, filepath.IsAbs(cfg.ProjectDir))
}

func TestLoad_ReadsConfigSection(t *testing.T) {
	dir := t.TempDir()
	writeConceptual(t, dir, `
config:
  scan:
    gold:
      - models/gold/**/*.yml
      - models/facts/*.yml
  validation:
    defaults:
      orphan_models: ignore
      missing_definitions: warn
    gold:
      orphan_models: error
    tags:
      domains_allow_multiple: true
      format: databricks
  history:
    enabled: true
    path: hist.db
domains: {}
`)

	cfg, err := Load(dir, Overrides{})
	require.NoError(t, err)
	require.Equal(t, []string{"models/gold/**/*.yml", "models/facts/*.yml"}, cfg.Scan.Gold)
	require.Equal(t, SeverityIgnore, cfg.Validation.SeverityFor(RuleOrphanModels, ""))
	require.Equal(t, SeverityError, cfg.Validation.SeverityFor(RuleOrphanModels, LayerGold))
	require.Equal(t, SeverityWarn, cfg.Validation.SeverityFor(RuleMissingDefinitions, ""))
	require.Equal(t, SeverityWarn, cfg.Validation.SeverityFor(RuleUnimplementedConcepts, ""))
	require.True(t, cfg.Validation.Tags.DomainsAllowMultiple)
	require.Equal(t, "databricks", cfg.Validation.Tags.Format)
	require.True(t, cfg.History.Enabled)
	require.Equal(t, filepath.Join(cfg.ProjectDir, "hist.db"), cfg.HistoryPath())
}

func TestLoad_GoldAsString(t *testing.T) {
	dir := t.TempDir()
	writeConceptual(t, dir, `
config:
  scan:
    gold: models/core/**/*.yml
`)
	cfg, err := Load(dir, Overrides{})
	require.NoError(t, err)
	require.Equal(t, []string{"models/core/**/*.yml"}, cfg.Scan.Gold)
}

func TestLoad_OverridesWin(t *testing.T) {
	dir := t.TempDir()
	writeConceptual(t, dir, `
config:
  scan:
    gold: [models/core/**/*.yml]
`)
	cfg, err := Load(dir, Overrides{GoldPaths: []string{"custom/*.yml"}})
	require.NoError(t, err)
	require.Equal(t, []string{"custom/*.yml"}, cfg.Scan.Gold)
}

func TestLoad_EnvOverridesDocument(t *testing.T) {
	dir := t.TempDir()
	writeConceptual(t, dir, `
config:
  history:
    enabled: false
`)
	t.Setenv("CONCEPTUAL_HISTORY_ENABLED", "true")

	cfg, err := Load(dir, Overrides{})
	require.NoError(t, err)
	require.True(t, cfg.History.Enabled)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConceptual(t, dir, "config: [unclosed")
	_, err := Load(dir, Overrides{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing conceptual.yml")
}

func TestLayerFor(t *testing.T) {
	cfg := Defaults()
	cfg.ProjectDir = "/proj"

	require.Equal(t, LayerGold, cfg.LayerFor("models/marts/core/schema.yml"))
	require.Equal(t, LayerGold, cfg.LayerFor("/proj/models/marts/schema.yml"))
	require.Equal(t, LayerGold, cfg.LayerFor("models/marts/dim_customer.sql"))
	require.Equal(t, "", cfg.LayerFor("models/staging/schema.yml"))
	require.Equal(t, "", cfg.LayerFor(""))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no gold paths", func(c *Config) { c.Scan.Gold = nil }, "scan.gold must list"},
		{"bad pattern", func(c *Config) { c.Scan.Gold = []string{"models/[*.yml"} }, "invalid pattern"},
		{"bad tag format", func(c *Config) { c.Validation.Tags.Format = "json" }, "validation.tags.format"},
		{"bad sample rate", func(c *Config) { c.Tracing.SampleRate = 2 }, "sample_rate"},
		{"bad exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }, "tracing.exporter"},
		{"otlp without endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp"
			c.Tracing.OTLPEndpoint = ""
		}, "otlp_endpoint"},
		{"unknown severity tolerated", func(c *Config) { c.Validation.Defaults.OrphanModels = "loud" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTracesPath(t *testing.T) {
	cfg := Defaults()
	cfg.ProjectDir = "/proj"
	require.Equal(t, filepath.Join("/proj", ".conceptual", "traces.jsonl"), cfg.TracesPath())

	cfg.Tracing.FilePath = "out/t.jsonl"
	require.Equal(t, filepath.Join("/proj", "out", "t.jsonl"), cfg.TracesPath())

	cfg.Tracing.FilePath = "/tmp/t.jsonl"
	require.Equal(t, "/tmp/t.jsonl", cfg.TracesPath())
}

func TestWriteTemplate(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteTemplate(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, ConceptualFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))

	cfg, err := Load(dir, Overrides{})
	require.NoError(t, err)
	require.Equal(t, []string{"models/marts/**/*.yml"}, cfg.Scan.Gold)
	require.NoError(t, Validate(cfg))
}

func TestWriteTemplate_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	writeConceptual(t, dir, "domains: {}\n")

	_, err := WriteTemplate(dir)
	require.ErrorIs(t, err, ErrConfigExists)

	data, err := os.ReadFile(filepath.Join(dir, ConceptualFileName))
	require.NoError(t, err)
	require.Equal(t, "domains: {}\n", string(data))
}
