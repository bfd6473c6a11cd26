package text

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// combiningMark reports whether r is in the Combining Diacritical Marks block.
func combiningMark(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}

// NormaliseForMatch folds s into the form used for every keyword comparison:
// 1. NFD decompose
// 2. Drop combining diacritics (ö -> o, ş -> s, İ -> I)
// 3. Lowercase with Turkish rules
// 4. Fold dotless ı to i so "CALISTAY" and "calistay" compare equal
//
// Whitespace is left as-is so character offsets stay meaningful.
func NormaliseForMatch(s string) string {
	if s == "" {
		return ""
	}
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.Predicate(combiningMark))), s)
	if err != nil {
		stripped = s
	}
	lowered := cases.Lower(language.Turkish).String(stripped)
	return strings.ReplaceAll(lowered, "ı", "i")
}

// NormaliseWhitespace collapses whitespace runs to a single space and trims.
// Display text only; never use the result for matching.
func NormaliseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// Contains reports whether needle occurs in haystack after both are normalised.
func Contains(haystack, needle string) bool {
	return strings.Contains(NormaliseForMatch(haystack), NormaliseForMatch(needle))
}

// LowerTR lowercases s with Turkish rules and keeps diacritics.
// Used for free-text search over titles.
func LowerTR(s string) string {
	return cases.Lower(language.Turkish).String(s)
}
