package textnorm

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes text and drops combining marks (accents, tildes, diaeresis)
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize returns the search key form of s: accents removed, lowercased,
// trimmed and with internal whitespace runs collapsed to a single space
func Normalize(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		// transform only fails on malformed input; fall back to the raw text
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// NormalizeValue normalizes the string representation of any value
func NormalizeValue(v any) string {
	switch value := v.(type) {
	case string:
		return Normalize(value)
	case nil:
		return ""
	default:
		return Normalize(fmt.Sprint(value))
	}
}

// Contains reports whether the normalized form of text contains the normalized query
func Contains(text, query string) bool {
	return strings.Contains(Normalize(text), Normalize(query))
}
