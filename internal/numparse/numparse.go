// Package numparse turns locale-ambiguous numeric cells into float64.
//
// Swiss, European and US exports disagree on separators. Normalize picks a
// plausible reading instead of failing: a cell that cannot be read is 0.
//
// Repeated separators of a single kind ("1.234.567", "1,234,567") are always
// read as thousands groups. There is no "last one is decimal" variant.
package numparse

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// maxDecimalDigits is the longest run after a lone separator still read as a fraction.
const maxDecimalDigits = 3

var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// thousandsGlyphs are removed before classification.
var thousandsGlyphs = map[rune]bool{
	'\'':     true,
	'\u2019': true, // right single quotation mark
	'\u2018': true, // left single quotation mark
	'\u02BC': true, // modifier letter apostrophe
	'\u00B4': true, // acute accent
	'`':      true,
}

// Normalize parses raw. Empty and unparsable input yield 0.
func Normalize(raw string) float64 {
	s := strip(raw)
	if s == "" {
		return 0
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case commas == 1:
		s = single(s, ",")
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	case dots == 1:
		s = single(s, ".")
	}

	return parsePrefix(s)
}

// strip drops whitespace and apostrophe-like group separators.
func strip(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) || thousandsGlyphs[r] {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// single handles exactly one separator sep: short tails are fractions.
func single(s, sep string) string {
	idx := strings.Index(s, sep)
	if trailingDigits(s[idx+1:]) <= maxDecimalDigits {
		return s[:idx] + "." + s[idx+1:]
	}
	return s[:idx] + s[idx+1:]
}

func trailingDigits(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n++
	}
	return n
}

// parsePrefix reads the longest numeric prefix, so "12.5m3" is 12.5.
func parsePrefix(s string) float64 {
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}
