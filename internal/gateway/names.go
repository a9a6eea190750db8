package gateway

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanName normalizes a name returned by the authentication service for display:
// NFC composed, control and format characters removed, whitespace collapsed.
func CleanName(s string) string {
	t := transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.Cc)), runes.Remove(runes.In(unicode.Cf)))
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.Join(strings.Fields(result), " ")
}
