package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legal form suffixes carry no identifying weight in token overlap
var legalForms = map[string]bool{
	"srl": true, "srls": true, "spa": true, "snc": true, "sas": true, "sapa": true,
	"soc": true, "coop": true, "scarl": true, "ltd": true, "llc": true, "inc": true,
	"gmbh": true, "sa": true, "sl": true, "bv": true, "plc": true,
}

// Normalize folds accents and case, drops dots and apostrophes so that
// "S.R.L." and "SRL" agree, and turns any other punctuation into spaces.
func Normalize(s string) string {
	// a Chain is stateful, so build one per call
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == '.' || r == '\'' || r == '’':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the normalized words of s
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// significantTokens drops legal forms and purely numeric tokens
func significantTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if legalForms[t] || isNumeric(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// containsSequence reports whether needle occurs in haystack as contiguous whole tokens
func containsSequence(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, tok := range needle {
			if haystack[i+j] != tok {
				continue outer
			}
		}
		return true
	}
	return false
}
