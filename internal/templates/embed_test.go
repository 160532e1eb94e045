package templates

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInitFS_ContainsConceptual(t *testing.T) {
	var names []string
	err := fs.WalkDir(InitFS(), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			names = append(names, path)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"init/conceptual.yml"}, names)
}

func TestConceptual_ParsesAsYAML(t *testing.T) {
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(Conceptual()), &doc))

	require.Contains(t, doc, "config")
	require.Contains(t, doc, "domains")
	require.Contains(t, doc, "concepts")
	require.Contains(t, doc, "relationships")
}

func TestConceptual_NoTeamSpecificValues(t *testing.T) {
	// Every example entry is commented out so init starts from an empty model.
	for _, line := range strings.Split(Conceptual(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		require.NotContains(t, trimmed, "@", "uncommented owner in template line %q", line)
	}
}
