package utils

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// Slugify turns a title into a URL-safe slug. Non-ASCII characters are
// romanized first so "Amélie" becomes "amelie" rather than being dropped.
func Slugify(name string) string {
	ascii := strings.ToLower(strings.TrimSpace(unidecode.Unidecode(name)))
	var b strings.Builder
	b.Grow(len(ascii))
	lastDash := true // suppress a leading dash
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
