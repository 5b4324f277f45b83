package detect

import (
	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/TobiSchelling/ClicheCounter/internal/tokenize"
	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// ExactMatcher counts literal, possibly overlapping, substring occurrences
// of every phrase using one Aho-Corasick automaton for the vocabulary.
type ExactMatcher struct {
	automaton aho.AhoCorasick
	patterns  []string
}

// NewExactMatcher compiles the automaton for v.
func NewExactMatcher(v *vocab.Vocabulary) *ExactMatcher {
	patterns := v.Phrases()
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		DFA: true,
	})
	return &ExactMatcher{
		automaton: builder.Build(patterns),
		patterns:  patterns,
	}
}

// Match returns every occurrence in text, which is normalized first.
func (m *ExactMatcher) Match(text string) []Occurrence {
	norm := tokenize.Normalize(text)
	if norm == "" {
		return nil
	}
	iter := m.automaton.IterOverlappingByte([]byte(norm))
	var occs []Occurrence
	for next := iter.Next(); next != nil; next = iter.Next() {
		match := *next
		occs = append(occs, Occurrence{
			Phrase:   match.Pattern(),
			Text:     norm[match.Start():match.End()],
			Score:    1,
			Strategy: Exact,
			Position: NoPosition,
		})
	}
	return occs
}

// Count returns the exact-match table for text.
func (m *ExactMatcher) Count(text string) Table {
	return countOccurrences(len(m.patterns), m.Match(text))
}
