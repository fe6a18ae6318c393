// Package streammatch picks the known-good entry out of an upstream stream
// listing. The listing mixes sources of wildly varying quality; only a couple
// of source families are reliable enough to hand to the player directly, so
// matching is by family name rather than position.
package streammatch

import "strings"

// Entry is one stream offer from the upstream listing. Name and Provider are
// both optional; URL may be empty for placeholder rows.
type Entry struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

// trustedNameFragment and trustedProviderFragment are matched as
// case-insensitive substrings. The two spellings differ upstream and both
// are intentional.
const (
	trustedNameFragment     = "vixsrc"
	trustedProviderFragment = "vidsrc"
)

// Trusted reports whether an entry belongs to a source family that can be
// played natively.
func Trusted(e Entry) bool {
	if strings.Contains(strings.ToLower(e.Name), trustedNameFragment) {
		return true
	}
	return strings.Contains(strings.ToLower(e.Provider), trustedProviderFragment)
}

// First returns the first trusted entry in listing order. The scan stops at
// the first trusted entry even when its URL is empty; a placeholder row there
// means no match, not a later candidate.
func First(entries []Entry) (Entry, bool) {
	for _, e := range entries {
		if !Trusted(e) {
			continue
		}
		if strings.TrimSpace(e.URL) == "" {
			return Entry{}, false
		}
		return e, true
	}
	return Entry{}, false
}
