package detect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/ClicheCounter/internal/embedding"
	"github.com/TobiSchelling/ClicheCounter/internal/observe"
	"github.com/TobiSchelling/ClicheCounter/internal/tokenize"
	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// ErrInvalidText is returned for document text that is not valid UTF-8.
var ErrInvalidText = errors.New("document text is not valid UTF-8")

// Document is one transcript handed to the detector.
type Document struct {
	ID   string
	Text string
}

// Options configures a Detector.
type Options struct {
	Strategies        []Strategy
	WindowSize        int
	FuzzyThreshold    float64 // 0-100
	Scorer            Scorer
	Proximity         int
	SemanticThreshold float64
	Embedder          embedding.Embedder // required for Semantic
	Metrics           *observe.Metrics   // optional
	Debug             bool
}

// DefaultOptions returns exact and fuzzy matching with the default
// window, threshold and proximity.
func DefaultOptions() Options {
	return Options{
		Strategies:        []Strategy{Exact, Fuzzy},
		WindowSize:        DefaultWindowSize,
		FuzzyThreshold:    DefaultFuzzyThreshold,
		Scorer:            PartialRatio,
		Proximity:         DefaultProximity,
		SemanticThreshold: DefaultSemanticThreshold,
	}
}

// Result holds the per-strategy tables of one document.
type Result struct {
	DocumentID string
	Tokens     int

	Exact    Table
	Fuzzy    Table
	Semantic Table
	Combined Table

	// Occurrences lists exact, fuzzy (deduplicated) and semantic
	// occurrences, in that order. Positions are not exposed.
	Occurrences []Occurrence

	// SemanticUnavailable is set when the semantic strategy was enabled
	// but sentence embeddings could not be obtained. The semantic table is
	// then all zero and SemanticErr holds the cause.
	SemanticUnavailable bool
	SemanticErr         error
}

// Detector runs the enabled strategies against documents. It holds only
// read-only state and is safe for concurrent use.
type Detector struct {
	vocab    *vocab.Vocabulary
	exact    *ExactMatcher
	fuzzy    *FuzzyMatcher
	semantic *SemanticMatcher
	embedder embedding.Embedder
	radius   int
	metrics  *observe.Metrics
	debug    bool
}

// New validates opts and builds the matchers for v. When the semantic
// strategy is enabled v must already carry phrase embeddings.
func New(v *vocab.Vocabulary, opts Options) (*Detector, error) {
	if v == nil || v.Len() == 0 {
		return nil, fmt.Errorf("detector: empty vocabulary")
	}
	if len(opts.Strategies) == 0 {
		return nil, fmt.Errorf("no detection strategy enabled")
	}

	d := &Detector{
		vocab:   v,
		radius:  opts.Proximity,
		metrics: opts.Metrics,
		debug:   opts.Debug,
	}
	for _, s := range opts.Strategies {
		switch s {
		case Exact:
			d.exact = NewExactMatcher(v)
		case Fuzzy:
			if opts.Proximity < 1 {
				return nil, fmt.Errorf("%w: %d", ErrInvalidRadius, opts.Proximity)
			}
			m, err := NewFuzzyMatcher(v, opts.WindowSize, opts.FuzzyThreshold, opts.Scorer)
			if err != nil {
				return nil, err
			}
			d.fuzzy = m
		case Semantic:
			if opts.Embedder == nil {
				return nil, fmt.Errorf("semantic strategy requires an embedding provider")
			}
			m, err := NewSemanticMatcher(v, opts.SemanticThreshold)
			if err != nil {
				return nil, err
			}
			d.semantic = m
			d.embedder = opts.Embedder
		default:
			return nil, fmt.Errorf("unknown detection strategy %v", s)
		}
	}
	return d, nil
}

// Vocabulary returns the detector's vocabulary.
func (d *Detector) Vocabulary() *vocab.Vocabulary { return d.vocab }

// Detect runs every enabled strategy on doc. Strategies run concurrently;
// the text is tokenized once. A failed sentence embedding does not fail
// the document. Detect only returns an error for invalid text or a
// cancelled context.
func (d *Detector) Detect(ctx context.Context, doc Document) (*Result, error) {
	if !utf8.ValidString(doc.Text) {
		d.metrics.RecordDocument(ctx, "failed")
		return nil, fmt.Errorf("document %s: %w", doc.ID, ErrInvalidText)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := d.vocab.Len()
	tokens := tokenize.Words(doc.Text)
	res := &Result{
		DocumentID: doc.ID,
		Tokens:     len(tokens),
		Exact:      NewTable(n),
		Fuzzy:      NewTable(n),
		Semantic:   NewTable(n),
	}

	var exactOccs, fuzzyOccs, semanticOccs []Occurrence

	g, gctx := errgroup.WithContext(ctx)
	if d.exact != nil {
		g.Go(func() error {
			start := time.Now()
			exactOccs = d.exact.Match(doc.Text)
			res.Exact = countOccurrences(n, exactOccs)
			d.metrics.RecordStrategy(gctx, Exact.String(), time.Since(start), len(exactOccs))
			return nil
		})
	}
	if d.fuzzy != nil {
		g.Go(func() error {
			start := time.Now()
			fuzzyOccs = StripPositions(Deduplicate(d.fuzzy.Match(tokens), d.radius))
			res.Fuzzy = countOccurrences(n, fuzzyOccs)
			d.metrics.RecordStrategy(gctx, Fuzzy.String(), time.Since(start), len(fuzzyOccs))
			return nil
		})
	}
	if d.semantic != nil {
		g.Go(func() error {
			start := time.Now()
			sentences := tokenize.Sentences(doc.Text)
			if len(sentences) == 0 {
				return nil
			}
			embs, err := d.embedder.Embed(gctx, sentences)
			if err == nil && len(embs) != len(sentences) {
				err = fmt.Errorf("expected %d sentence embeddings, got %d", len(sentences), len(embs))
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				res.SemanticUnavailable = true
				res.SemanticErr = err
				d.metrics.RecordSemanticUnavailable(gctx)
				log.Printf("Semantic matching unavailable for %s: %v", doc.ID, err)
				return nil
			}
			semanticOccs = d.semantic.Match(sentences, embs)
			res.Semantic = countOccurrences(n, semanticOccs)
			d.metrics.RecordStrategy(gctx, Semantic.String(), time.Since(start), len(semanticOccs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Combined = Sum(n, res.Exact, res.Fuzzy, res.Semantic)
	res.Occurrences = make([]Occurrence, 0, len(exactOccs)+len(fuzzyOccs)+len(semanticOccs))
	res.Occurrences = append(res.Occurrences, exactOccs...)
	res.Occurrences = append(res.Occurrences, fuzzyOccs...)
	res.Occurrences = append(res.Occurrences, semanticOccs...)

	d.metrics.RecordDocument(ctx, "ok")
	if d.debug {
		log.Printf("  %s: %d tokens, exact=%d fuzzy=%d semantic=%d",
			doc.ID, res.Tokens, res.Exact.Total(), res.Fuzzy.Total(), res.Semantic.Total())
	}
	return res, nil
}
