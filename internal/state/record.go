package state

import "fmt"

// ModelRecord is a discovered pipeline model as reported by the scanner.
// Records are read-only input to reconciliation.
type ModelRecord struct {
	Name        string
	Meta        map[string]any
	Tags        []string
	Description string
	Path        string

	// StructuredTags is the map form of tags (databricks_tags in schema
	// files). "domain" may hold a string or a list, "owner" a string.
	StructuredTags map[string]any
}

// ConceptLink returns meta.concept and whether the key is present at all.
// A present but empty link still counts as declared intent.
func (m ModelRecord) ConceptLink() (string, bool) {
	v, ok := m.Meta["concept"]
	if !ok {
		return "", false
	}
	return StringValue(v), true
}

// MetaString returns a meta value rendered as a string, or "".
func (m ModelRecord) MetaString(key string) string {
	v, ok := m.Meta[key]
	if !ok {
		return ""
	}
	return StringValue(v)
}

// StringValue renders a YAML scalar as a string. nil becomes "".
func StringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
