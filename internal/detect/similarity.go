package detect

import (
	"fmt"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Scorer returns the similarity of two strings on a 0-100 scale.
type Scorer func(a, b string) float64

// Scorer names accepted by ParseScorer.
const (
	ScorerPartialRatio = "partial_ratio"
	ScorerRatio        = "ratio"
	ScorerJaroWinkler  = "jaro_winkler"
)

// ParseScorer returns the scorer registered under name.
//
// The choice changes matching behavior materially: "ratio" compares whole
// strings, so an 8-token window rarely scores high against a 3-word phrase,
// while "partial_ratio" scores the phrase against its best-aligned
// substring of the window and reaches 100 whenever the phrase occurs
// verbatim inside it.
func ParseScorer(name string) (Scorer, error) {
	switch name {
	case ScorerPartialRatio, "":
		return PartialRatio, nil
	case ScorerRatio:
		return Ratio, nil
	case ScorerJaroWinkler:
		return JaroWinkler, nil
	}
	return nil, fmt.Errorf("unknown similarity scorer %q", name)
}

// Ratio is the normalized Levenshtein similarity
// 100 * (1 - distance / max(len(a), len(b))), measured in runes.
// Two empty strings score 100.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	d := matchr.Levenshtein(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// PartialRatio scores the shorter string against every substring of the
// longer one with the same rune length and returns the best Ratio. An
// empty operand scores 0.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	if len(short) == len(long) {
		return Ratio(a, b)
	}

	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		score := Ratio(s, string(long[i:i+len(short)]))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// JaroWinkler is the Jaro-Winkler similarity scaled to 0-100.
func JaroWinkler(a, b string) float64 {
	return 100 * matchr.JaroWinkler(a, b, false)
}
