// Package embedding maps text to dense vectors for the semantic matcher.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Embedder is the interface for generating embeddings. The i-th vector of
// the result belongs to texts[i]. Implementations must be deterministic for
// a fixed input and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// OllamaEmbedder generates embeddings via the Ollama API.
type OllamaEmbedder struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewOllamaEmbedder creates a new Ollama embedder.
func NewOllamaEmbedder(model, baseURL string) *OllamaEmbedder {
	return &OllamaEmbedder{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Embed generates embeddings for the given texts in one request.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body := map[string]any{
		"model": e.Model,
		"input": texts,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.BaseURL+"/api/embed", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embed returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding embeddings: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	return result.Embeddings, nil
}

// Settings selects and configures an embedding backend.
type Settings struct {
	Provider  string // "ollama", "openai" or "none"
	Model     string
	BaseURL   string
	APIKeyEnv string
	CachePath string // bbolt file; empty disables caching
}

// New creates the configured embedder, wrapped in a persistent cache when
// CachePath is set. It returns (nil, nil) for provider "none". The returned
// close function releases the cache and is never nil.
func New(s Settings) (Embedder, func() error, error) {
	noop := func() error { return nil }

	var (
		base    Embedder
		modelID string
	)
	switch strings.ToLower(s.Provider) {
	case "", "none":
		log.Println("Semantic matching disabled: no embedding provider")
		return nil, noop, nil
	case "ollama":
		model := s.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		base = NewOllamaEmbedder(model, baseURL)
		modelID = model
		log.Printf("Using Ollama embeddings with model: %s", model)
	case "openai":
		p, err := NewOpenAIEmbedder(os.Getenv(s.APIKeyEnv), s.Model, s.BaseURL)
		if err != nil {
			return nil, noop, err
		}
		base = p
		modelID = p.Model
		log.Printf("Using OpenAI embeddings with model: %s", p.Model)
	default:
		return nil, noop, fmt.Errorf("unknown embedding provider %q", s.Provider)
	}

	if s.CachePath == "" {
		return base, noop, nil
	}
	cache, err := OpenCache(s.CachePath, base, strings.ToLower(s.Provider)+":"+modelID)
	if err != nil {
		return nil, noop, err
	}
	return cache, cache.Close, nil
}
