// Package tokenize turns raw transcript text into the lowercase word and
// sentence views used by the phrase matchers.
//
// All text is folded to Unicode NFC before lowercasing, so a precomposed
// "é" and an "e" followed by a combining acute accent tokenize identically.
// Accents are preserved; lowercasing uses the locale-independent
// strings.ToLower. The typographic apostrophe is folded to ASCII so that
// "it’s" and "it's" are the same text in every view.
package tokenize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var sentenceEnd = regexp.MustCompile(`([.!?]+)(\s+|$)`)

var apostrophes = strings.NewReplacer("’", "'")

// Normalize returns text folded to NFC, with typographic apostrophes made
// ASCII, and lowercased.
func Normalize(text string) string {
	return strings.ToLower(apostrophes.Replace(norm.NFC.String(text)))
}

// Words returns the lowercase word tokens of text. A token is a run of
// letters; an apostrophe joining two letters stays inside the token so that
// contractions such as "it's" survive. Everything else is a separator.
func Words(text string) []string {
	runes := []rune(Normalize(text))
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.Is(unicode.Mn, r):
			cur.WriteRune(r)
		case isApostrophe(r) && cur.Len() > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			cur.WriteRune('\'')
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// Count returns the number of word tokens in text.
func Count(text string) int {
	return len(Words(text))
}

// Sentences splits normalized text after runs of '.', '!' or '?' that are
// followed by whitespace or the end of the text. Blank sentences are dropped.
func Sentences(text string) []string {
	delimited := sentenceEnd.ReplaceAllString(Normalize(text), "$1\x00")
	var sentences []string
	for _, s := range strings.Split(delimited, "\x00") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// Join joins tokens with single spaces.
func Join(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Canonical re-tokenizes s and joins the result, giving the form a phrase
// takes when compared against window text.
func Canonical(s string) string {
	return Join(Words(s))
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}
