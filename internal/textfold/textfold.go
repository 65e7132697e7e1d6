// Package textfold folds material names for comparison.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold removes diacritics ("Béton" -> "Beton"), collapses whitespace and trims.
// Case is left alone.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(out), " ")
}

// Upper is Fold followed by upper-casing, the form the matcher compares.
func Upper(s string) string {
	return strings.ToUpper(Fold(s))
}

// Tokens splits a folded lower-case string into letter/digit runs.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(Fold(s)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
