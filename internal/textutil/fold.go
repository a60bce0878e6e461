package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// versionPattern matches v2, v1.3, 1.0.2, and similar release markers.
var versionPattern = regexp.MustCompile(`\b(?:v\d+[a-z]?(?:\.\d+[a-z]?)*|\d+(?:\.\d+)+[a-z]?)\b`)

var fillerWords = map[string]struct{}{
	"new":        {},
	"updated":    {},
	"update":     {},
	"latest":     {},
	"final":      {},
	"fixed":      {},
	"official":   {},
	"improved":   {},
	"remastered": {},
	"version":    {},
	"ver":        {},
}

var stopwords = map[string]struct{}{
	"the":  {},
	"and":  {},
	"for":  {},
	"with": {},
	"from": {},
	"your": {},
	"you":  {},
	"this": {},
	"that": {},
	"are":  {},
	"mod":  {},
	"mods": {},
	"sims": {},
	"ts4":  {},
}

// Fold lowercases text, removes diacritics, and replaces every run of
// non-alphanumeric characters with a single space.
func Fold(text string) string {
	if text == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// StripNoise folds text and drops version markers and filler adjectives, so
// "Cool Pack v2 (Updated)" and "cool pack" reduce to the same string.
func StripNoise(text string) string {
	stripped := versionPattern.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(Fold(stripped))
	kept := fields[:0]
	for _, field := range fields {
		if _, filler := fillerWords[field]; filler {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}

// ContentTokens returns the folded tokens of at least three characters that are
// not stopwords, in order of appearance.
func ContentTokens(text string) []string {
	fields := strings.Fields(Fold(text))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < 3 {
			continue
		}
		if _, stop := stopwords[field]; stop {
			continue
		}
		out = append(out, field)
	}
	return out
}

// SlugTokens splits a URL slug such as "cool-pack_v2" into folded tokens,
// dropping single characters and stopwords.
func SlugTokens(slug string) []string {
	fields := strings.Fields(Fold(slug))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < 2 {
			continue
		}
		if _, stop := stopwords[field]; stop {
			continue
		}
		out = append(out, field)
	}
	return out
}

// AlphaRatio reports the share of letters among the non-space runes of text.
func AlphaRatio(text string) float64 {
	var letters, total int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}

// IsNumeric reports whether text contains digits and nothing else once
// punctuation and whitespace are removed.
func IsNumeric(text string) bool {
	digits := 0
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r):
		default:
			return false
		}
	}
	return digits > 0
}
