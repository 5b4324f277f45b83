package pipeline

import (
	"fmt"

	"github.com/TobiSchelling/ClicheCounter/internal/aggregate"
	"github.com/TobiSchelling/ClicheCounter/internal/config"
	"github.com/TobiSchelling/ClicheCounter/internal/database"
	"github.com/TobiSchelling/ClicheCounter/internal/detect"
	"github.com/TobiSchelling/ClicheCounter/internal/embedding"
	"github.com/TobiSchelling/ClicheCounter/internal/report"
	"github.com/TobiSchelling/ClicheCounter/internal/tenure"
	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// LoadVocabulary loads the configured vocabulary file, or the inline
// phrases when no file is set.
func LoadVocabulary(cfg *config.Config) (*vocab.Vocabulary, error) {
	if cfg.Vocabulary.Path != "" {
		return vocab.Load(cfg.Vocabulary.Path)
	}
	return vocab.New(cfg.Vocabulary.Phrases)
}

// DetectOptions converts the detection config into detector options. The
// embedder is left unset.
func DetectOptions(cfg *config.Config) (detect.Options, error) {
	d := cfg.Detection
	opts := detect.Options{
		WindowSize:        d.WindowSize,
		FuzzyThreshold:    d.FuzzyThreshold,
		Proximity:         d.Proximity,
		SemanticThreshold: d.SemanticThreshold,
		Debug:             cfg.Debug(),
	}
	for _, name := range d.Strategies {
		s, err := detect.ParseStrategy(name)
		if err != nil {
			return opts, err
		}
		opts.Strategies = append(opts.Strategies, s)
	}
	scorer, err := detect.ParseScorer(d.Scorer)
	if err != nil {
		return opts, err
	}
	opts.Scorer = scorer
	return opts, nil
}

// ReportOptions converts the aggregation config into report options.
func ReportOptions(cfg *config.Config) (report.Options, error) {
	a := cfg.Aggregation
	b, err := aggregate.ParseBucket(a.Bucket)
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{
		Normalization: float64(a.Normalization),
		Bucket:        b,
		Rank:          aggregate.RankOptions{MinTokens: a.MinTokens, TopN: a.TopN},
	}, nil
}

// TenureOptions returns the tenure normalization settings.
func TenureOptions(cfg *config.Config) tenure.Options {
	return tenure.Options{Blacklist: cfg.Tenures.Blacklist, MinDays: cfg.Tenures.MinDays}
}

// EmbeddingSettings returns the embedding backend settings.
func EmbeddingSettings(cfg *config.Config) embedding.Settings {
	e := cfg.Embeddings
	return embedding.Settings{
		Provider:  e.Provider,
		Model:     e.Model,
		BaseURL:   e.BaseURL,
		APIKeyEnv: e.APIKeyEnv,
		CachePath: cfg.CachePath(),
	}
}

// NewComposer creates a report composer for the configured vocabulary.
func NewComposer(cfg *config.Config, db *database.DB) (*report.Composer, error) {
	v, err := LoadVocabulary(cfg)
	if err != nil {
		return nil, err
	}
	opts, err := ReportOptions(cfg)
	if err != nil {
		return nil, err
	}
	return report.NewComposer(db, v, TenureOptions(cfg), opts), nil
}

func reportTitle(today string) string {
	return fmt.Sprintf("Cliché report %s", today)
}
