// Package normalize canonicalizes attribute names and coerces raw cell values
// from heterogeneous source files.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a single attribute as it appeared in the source, in source order.
type Field struct {
	Name  string
	Value any
}

// Collision records two distinct source names mapping to the same canonical key.
type Collision struct {
	Key    string // canonical key both names map to
	First  string // source name whose value was overwritten
	Second string // source name whose value won
}

// Key canonicalizes an attribute name: lowercase, diacritics stripped, runs of
// non-alphanumeric characters collapsed to a single underscore, leading and
// trailing underscores trimmed. Idempotent: Key(Key(s)) == Key(s).
func Key(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Strip combining marks so "Zürich" and "Zurich" canonicalize identically.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	prevSep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			prevSep = false
			continue
		}
		if !prevSep {
			b.WriteByte('_')
			prevSep = true
		}
	}

	return strings.Trim(b.String(), "_")
}

// Record maps source fields to an attribute map. When apply is true, names are
// canonicalized with Key. If two distinct source names map to the same key the
// later value wins and the collision is reported; the record is never aborted.
func Record(fields []Field, apply bool) (map[string]any, []Collision) {
	attrs := make(map[string]any, len(fields))
	var collisions []Collision
	seen := make(map[string]string, len(fields))

	for _, f := range fields {
		k := f.Name
		if apply {
			k = Key(f.Name)
		}
		if k == "" {
			continue
		}
		if prev, ok := seen[k]; ok && prev != f.Name {
			collisions = append(collisions, Collision{Key: k, First: prev, Second: f.Name})
		}
		seen[k] = f.Name
		attrs[k] = f.Value
	}

	return attrs, collisions
}
