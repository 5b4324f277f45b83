package aggregate

import (
	"sort"

	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// RankOptions filters and truncates a ranking.
type RankOptions struct {
	MinTokens int // groups with fewer tokens are left out
	TopN      int // 0 keeps all
}

// Ranked is a summary with its normalized rate and 1-based position.
type Ranked struct {
	Summary
	Rate     float64
	Position int
}

// Rank orders summaries by rate per k tokens, highest first, breaking ties
// by key.
func Rank(summaries []Summary, k float64, opts RankOptions) []Ranked {
	out := make([]Ranked, 0, len(summaries))
	for _, s := range summaries {
		if s.Tokens < opts.MinTokens {
			continue
		}
		out = append(out, Ranked{Summary: s, Rate: s.Rate(k)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rate != out[j].Rate {
			return out[i].Rate > out[j].Rate
		}
		return out[i].Key.Less(out[j].Key)
	})
	if opts.TopN > 0 && len(out) > opts.TopN {
		out = out[:opts.TopN]
	}
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

// MostUsed returns the phrase with the highest count in s. Ties go to the
// lexicographically smallest phrase; ok is false when every count is zero.
func MostUsed(s Summary, v *vocab.Vocabulary) (pc PhraseCount, ok bool) {
	for i, c := range s.Counts {
		if c == 0 {
			continue
		}
		p := v.Phrase(i)
		if !ok || c > pc.Count || (c == pc.Count && p < pc.Phrase) {
			pc, ok = PhraseCount{Phrase: p, Count: c}, true
		}
	}
	return pc, ok
}

// Favourites returns the phrases used at least once, most used first and
// alphabetically among equal counts.
func Favourites(s Summary, v *vocab.Vocabulary) []PhraseCount {
	var out []PhraseCount
	for _, pc := range s.Phrases(v) {
		if pc.Count > 0 {
			out = append(out, pc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Phrase < out[j].Phrase
	})
	return out
}
