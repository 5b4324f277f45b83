package detect

import (
	"errors"
	"fmt"
	"math"

	"github.com/TobiSchelling/ClicheCounter/internal/tokenize"
	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// Defaults for the fuzzy stage.
const (
	DefaultWindowSize     = 8
	DefaultFuzzyThreshold = 95
	DefaultProximity      = 10
)

var (
	// ErrInvalidWindow is returned for a window size below one token.
	ErrInvalidWindow = errors.New("invalid window size")
	// ErrInvalidThreshold is returned for a threshold outside its scale.
	ErrInvalidThreshold = errors.New("invalid threshold")
	// ErrInvalidRadius is returned for a proximity radius below one.
	ErrInvalidRadius = errors.New("invalid proximity radius")
)

// FuzzyMatcher slides a fixed-width token window across a document and
// scores each window against every phrase.
type FuzzyMatcher struct {
	window    int
	threshold float64
	score     Scorer
	phrases   []string
}

// NewFuzzyMatcher creates a matcher with window size window (tokens),
// threshold on the 0-100 scale and the given scorer.
func NewFuzzyMatcher(v *vocab.Vocabulary, window int, threshold float64, score Scorer) (*FuzzyMatcher, error) {
	// Only the lower bound is checked; documents shorter than window yield no windows.
	if window < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("%w: fuzzy threshold %v not in [0, 100]", ErrInvalidThreshold, threshold)
	}
	if score == nil {
		score = PartialRatio
	}
	phrases := make([]string, v.Len())
	for i := range phrases {
		phrases[i] = tokenize.Canonical(v.Phrase(i))
	}
	return &FuzzyMatcher{
		window:    window,
		threshold: threshold,
		score:     score,
		phrases:   phrases,
	}, nil
}

// Window returns the window size in tokens.
func (m *FuzzyMatcher) Window() int { return m.window }

// Match returns the raw matches for tokens: one per (window start, phrase)
// pair scoring at or above the threshold, in window order. Token sequences
// shorter than the window produce no windows.
func (m *FuzzyMatcher) Match(tokens []string) []Occurrence {
	var raw []Occurrence
	for i := 0; i+m.window <= len(tokens); i++ {
		text := tokenize.Join(tokens[i : i+m.window])
		for p, phrase := range m.phrases {
			s := m.score(text, phrase)
			if s >= m.threshold {
				raw = append(raw, Occurrence{
					Phrase:   p,
					Text:     text,
					Score:    s / 100,
					Strategy: Fuzzy,
					Position: i,
				})
			}
		}
	}
	return raw
}
