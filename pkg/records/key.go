// Package records defines the data model shared by every stage of a
// reconciliation run: remote records, natural keys, ordered field payloads,
// schema field sets and pending writes.
package records

import (
	"strings"

	"golang.org/x/text/cases"
)

// NaturalKey is a deterministic identity string derived from domain data.
// Two records with the same NaturalKey are the same logical entity.
type NaturalKey string

// String returns the key as a plain string.
func (k NaturalKey) String() string { return string(k) }

// IsZero reports whether the key is empty.
func (k NaturalKey) IsZero() bool { return k == "" }

var folder = cases.Fold()

// NormalizeName trims a display name and collapses internal whitespace runs
// to a single space. Casing is kept.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// IDKey derives a key from an opaque source identifier such as a submission id.
func IDKey(id string) NaturalKey {
	return NaturalKey(strings.TrimSpace(id))
}

// NameKey derives a comparison key from a display name: trimmed,
// whitespace-collapsed and Unicode case folded.
func NameKey(name string) NaturalKey {
	return NaturalKey(folder.String(NormalizeName(name)))
}

// JoinKey combines several key parts into one key. Empty parts are kept so
// that ("a", "", "b") and ("a", "b") stay distinct.
func JoinKey(parts ...string) NaturalKey {
	trimmed := make([]string, len(parts))
	for i, p := range parts {
		trimmed[i] = strings.TrimSpace(p)
	}
	return NaturalKey(strings.Join(trimmed, "|"))
}
