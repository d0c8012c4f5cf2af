package app

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText lower-cases s and strips combining marks so "Confecção" matches "confeccao".
func foldText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// containsFolded reports whether any field contains the already-folded query.
func containsFolded(query string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(foldText(field), query) {
			return true
		}
	}
	return false
}
