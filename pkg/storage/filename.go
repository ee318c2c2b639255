package storage

import (
	"fmt"
	"strings"
)

// SanitizeFilename replaces every character that is not an ASCII letter,
// digit, space, period or underscore with an underscore, then trims
// surrounding whitespace.
func SanitizeFilename(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for _, r := range raw {
		if isSafeRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	return strings.TrimSpace(b.String())
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ', r == '.', r == '_':
		return true
	}
	return false
}

// PhotoFilename returns the deterministic file name for a photo:
// "{id}_{sanitized photographer}.jpg".
func PhotoFilename(id int64, photographer string) string {
	return fmt.Sprintf("%d_%s.jpg", id, SanitizeFilename(photographer))
}
