// Package normalize canonicalizes free-text input so dedup matching is not
// defeated by casing or whitespace variations.
package normalize

import "strings"

// Name canonicalizes a company name: trims, collapses internal whitespace
// runs to a single space, and lowercases. Returns "" for whitespace-only
// input; callers must treat an empty result as invalid.
func Name(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Join(fields, " "))
}

// PositionKey builds the uniqueness dimension for per-company duplicate
// detection: the category joined with the normalized position label.
func PositionKey(category, detail string) string {
	return category + ":" + Name(detail)
}
