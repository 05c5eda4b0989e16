package storage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics removes combining marks after NFD decomposition, turning
// e.g. "Nguyễn" into "Nguyen".
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeName converts a display name into the folder-name suffix:
// diacritics transliterated, lowercased, spaces to underscores, everything
// outside [a-z0-9_] dropped.
func SanitizeName(name string) string {
	folded, _, err := transform.String(stripDiacritics, strings.TrimSpace(name))
	if err != nil {
		folded = strings.TrimSpace(name)
	}

	// đ/Đ are base letters (D with stroke), not combining marks.
	folded = strings.NewReplacer("đ", "d", "Đ", "D").Replace(folded)
	folded = strings.ReplaceAll(strings.ToLower(folded), " ", "_")

	var b strings.Builder
	for _, r := range folded {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
