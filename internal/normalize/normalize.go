// Package normalize cleans raw street labels from district assignment files
// and folds text for cache keys and de-duplication.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// houseRangeSuffix matches "- 1-17", "- 2a", "- alle" at the end of a label.
	houseRangeSuffix = regexp.MustCompile(`\s*-\s*(alle|\d+.*?)$`)
	hamletLabel      = regexp.MustCompile(`(WBZ \d+) - (.+?)$`)
)

// CleanStreet strips a trailing house-number range or "- alle" suffix from a
// raw street label. Labels without such a suffix are returned trimmed.
func CleanStreet(label string) string {
	return strings.TrimSpace(houseRangeSuffix.ReplaceAllString(label, ""))
}

// Hamlet extracts the hamlet name from a "WBZ <n> - <name>" label.
func Hamlet(label string) (string, bool) {
	m := hamletLabel.FindStringSubmatch(label)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[2])
	if name == "" {
		return "", false
	}
	return name, true
}

// Fold lower-cases s, strips combining marks and collapses whitespace.
// ß is kept as is.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(folded), " ")
}
