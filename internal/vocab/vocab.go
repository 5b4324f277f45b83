// Package vocab holds the fixed phrase vocabulary the detectors search for.
//
// A Vocabulary is validated once at load time and is read-only afterwards,
// so a single instance is shared by every concurrent detection task without
// locking. Phrase embeddings are attached with Embed, which returns a new
// Vocabulary instead of mutating the receiver.
package vocab

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/ClicheCounter/internal/embedding"
	"github.com/TobiSchelling/ClicheCounter/internal/tokenize"
)

var (
	// ErrEmptyPhrase is returned when a vocabulary entry is blank.
	ErrEmptyPhrase = errors.New("empty phrase")
	// ErrDuplicatePhrase is returned when two entries normalize to the same phrase.
	ErrDuplicatePhrase = errors.New("duplicate phrase")
)

// Vocabulary is an ordered set of unique phrases. The position of a phrase
// is its stable identifier across tables and summaries.
type Vocabulary struct {
	phrases    []string
	index      map[string]int
	embeddings [][]float64
}

// New validates phrases and builds a Vocabulary. Phrases are normalized
// (NFC, lowercase, trimmed); an empty or duplicate entry is an error.
func New(phrases []string) (*Vocabulary, error) {
	if len(phrases) == 0 {
		return nil, fmt.Errorf("vocabulary: no phrases")
	}
	v := &Vocabulary{
		phrases: make([]string, 0, len(phrases)),
		index:   make(map[string]int, len(phrases)),
	}
	for i, raw := range phrases {
		p := strings.Join(strings.Fields(tokenize.Normalize(raw)), " ")
		if p == "" {
			return nil, fmt.Errorf("vocabulary entry %d: %w", i, ErrEmptyPhrase)
		}
		if prev, ok := v.index[p]; ok {
			return nil, fmt.Errorf("vocabulary entry %d %q (same as entry %d): %w", i, raw, prev, ErrDuplicatePhrase)
		}
		v.index[p] = len(v.phrases)
		v.phrases = append(v.phrases, p)
	}
	return v, nil
}

type vocabularyFile struct {
	Cliches []string `yaml:"cliches"`
}

// Load reads a YAML file with a top-level "cliches" list.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	var f vocabularyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing vocabulary: %w", err)
	}
	return New(f.Cliches)
}

// Len returns the number of phrases.
func (v *Vocabulary) Len() int { return len(v.phrases) }

// Phrase returns the phrase at position i.
func (v *Vocabulary) Phrase(i int) string { return v.phrases[i] }

// Phrases returns a copy of the phrases in vocabulary order.
func (v *Vocabulary) Phrases() []string {
	out := make([]string, len(v.phrases))
	copy(out, v.phrases)
	return out
}

// Index returns the position of phrase, or -1.
func (v *Vocabulary) Index(phrase string) int {
	if i, ok := v.index[phrase]; ok {
		return i
	}
	return -1
}

// HasEmbeddings reports whether phrase embeddings are attached.
func (v *Vocabulary) HasEmbeddings() bool { return v.embeddings != nil }

// Embedding returns the embedding of phrase i, or nil.
func (v *Vocabulary) Embedding(i int) []float64 {
	if v.embeddings == nil {
		return nil
	}
	return v.embeddings[i]
}

// Embed computes phrase embeddings in a single batch and returns a new
// Vocabulary carrying them. Any failure here is fatal for semantic matching.
func (v *Vocabulary) Embed(ctx context.Context, embedder embedding.Embedder) (*Vocabulary, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedding vocabulary: no embedder configured")
	}
	vecs, err := embedder.Embed(ctx, v.phrases)
	if err != nil {
		return nil, fmt.Errorf("embedding vocabulary: %w", err)
	}
	if len(vecs) != len(v.phrases) {
		return nil, fmt.Errorf("embedding vocabulary: expected %d vectors, got %d", len(v.phrases), len(vecs))
	}
	return &Vocabulary{phrases: v.phrases, index: v.index, embeddings: vecs}, nil
}

// WithEmbeddings attaches precomputed embeddings, one per phrase.
func (v *Vocabulary) WithEmbeddings(vecs [][]float64) (*Vocabulary, error) {
	if len(vecs) != len(v.phrases) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(v.phrases), len(vecs))
	}
	return &Vocabulary{phrases: v.phrases, index: v.index, embeddings: vecs}, nil
}
