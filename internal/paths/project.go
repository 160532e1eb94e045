// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
)

// Project markers, in the order they are looked for.
const (
	conceptualMarker = "conceptual.yml"
	dbtMarker        = "dbt_project.yml"
)

// ResolveProjectDir resolves the project directory from user input.
//
// Input normalization:
//   - "/path/to/project/conceptual.yml" -> "/path/to/project"
//   - "/path/to/project/models/marts" -> "/path/to/project" when an ancestor
//     holds conceptual.yml or dbt_project.yml
//   - "" -> nearest ancestor of the working directory holding a marker,
//     else the working directory
//
// conceptual.yml wins over dbt_project.yml: the first directory holding
// conceptual.yml is returned even if a deeper one holds dbt_project.yml.
// The returned path is absolute.
func ResolveProjectDir(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	if dir, ok := findUp(abs, conceptualMarker); ok {
		return dir, nil
	}
	if dir, ok := findUp(abs, dbtMarker); ok {
		return dir, nil
	}
	return abs, nil
}

// findUp returns the first directory from dir upward containing name.
func findUp(dir, name string) (string, bool) {
	for {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
