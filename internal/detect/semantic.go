package detect

import (
	"fmt"
	"math"

	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// DefaultSemanticThreshold is the cosine similarity a sentence must exceed.
const DefaultSemanticThreshold = 0.7

// SemanticMatcher compares sentence embeddings against the precomputed
// phrase embeddings of the vocabulary.
type SemanticMatcher struct {
	threshold float64
	phrases   [][]float64
}

// NewSemanticMatcher requires v to carry embeddings. threshold must be
// non-negative; values above 1 are accepted and never match.
func NewSemanticMatcher(v *vocab.Vocabulary, threshold float64) (*SemanticMatcher, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return nil, fmt.Errorf("%w: semantic threshold %v", ErrInvalidThreshold, threshold)
	}
	if !v.HasEmbeddings() {
		return nil, fmt.Errorf("semantic matcher: vocabulary has no embeddings")
	}
	phrases := make([][]float64, v.Len())
	for i := range phrases {
		phrases[i] = v.Embedding(i)
	}
	return &SemanticMatcher{threshold: threshold, phrases: phrases}, nil
}

// Match returns one occurrence per (sentence, phrase) pair whose cosine
// similarity is strictly greater than the threshold.
func (m *SemanticMatcher) Match(sentences []string, embeddings [][]float64) []Occurrence {
	var occs []Occurrence
	for s, emb := range embeddings {
		for p, phraseEmb := range m.phrases {
			sim := Cosine(emb, phraseEmb)
			if sim > m.threshold {
				text := ""
				if s < len(sentences) {
					text = sentences[s]
				}
				occs = append(occs, Occurrence{
					Phrase:   p,
					Text:     text,
					Score:    sim,
					Strategy: Semantic,
					Position: NoPosition,
				})
			}
		}
	}
	return occs
}

// Count returns the semantic table for sentence embeddings.
func (m *SemanticMatcher) Count(embeddings [][]float64) Table {
	return countOccurrences(len(m.phrases), m.Match(nil, embeddings))
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero norm have similarity 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
