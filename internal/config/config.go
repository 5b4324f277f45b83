package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Vocabulary  Vocabulary  `yaml:"vocabulary"`
	Detection   Detection   `yaml:"detection"`
	Aggregation Aggregation `yaml:"aggregation"`
	Embeddings  Embeddings  `yaml:"embeddings"`
	Sources     Sources     `yaml:"sources"`
	Tenures     Tenures     `yaml:"tenures"`
	Output      Output      `yaml:"output"`
	Server      Server      `yaml:"server"`
	Logging     Logging     `yaml:"logging"`
}

type Vocabulary struct {
	Path    string   `yaml:"path"`
	Phrases []string `yaml:"phrases"`
}

type Detection struct {
	Strategies        []string `yaml:"strategies"`
	WindowSize        int      `yaml:"window_size"`
	FuzzyThreshold    float64  `yaml:"fuzzy_threshold"`
	Scorer            string   `yaml:"scorer"`
	Proximity         int      `yaml:"proximity"`
	SemanticThreshold float64  `yaml:"semantic_threshold"`
	Workers           int      `yaml:"workers"`
}

type Aggregation struct {
	Normalization int    `yaml:"normalization"`
	MinTokens     int    `yaml:"min_tokens"`
	Bucket        string `yaml:"bucket"`
	TopN          int    `yaml:"top_n"`
}

type Embeddings struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Cache     string `yaml:"cache"`
}

type Sources struct {
	Playlists []Playlist `yaml:"playlists"`
}

// Playlist is a feed of transcripts attributed to one organization.
// Speaker may be empty, in which case tenures decide.
type Playlist struct {
	Organization string `yaml:"organization"`
	Speaker      string `yaml:"speaker"`
	Label        string `yaml:"label"`
	URL          string `yaml:"url"`
}

type Tenures struct {
	Blacklist []string `yaml:"blacklist"`
	MinDays   int      `yaml:"min_days"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

var (
	knownStrategies = []string{"exact", "fuzzy", "semantic"}
	knownScorers    = []string{"partial_ratio", "ratio", "jaro_winkler"}
	knownBuckets    = []string{"week", "month"}
	knownProviders  = []string{"none", "ollama", "openai"}
	knownLevels     = []string{"DEBUG", "INFO", "WARN", "ERROR"}
)

// ConfigDir returns the XDG config directory for clichecounter.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "clichecounter")
}

// DataDir returns the XDG data directory for clichecounter.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "clichecounter")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/clichecounter/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'clichecounter init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Detection: Detection{
			Strategies:        []string{"exact", "fuzzy"},
			WindowSize:        8,
			FuzzyThreshold:    95,
			Scorer:            "partial_ratio",
			Proximity:         10,
			SemanticThreshold: 0.7,
		},
		Aggregation: Aggregation{
			Normalization: 10000,
			Bucket:        "week",
		},
		Embeddings: Embeddings{
			Provider:  "none",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Vocabulary.Path == "" && len(c.Vocabulary.Phrases) == 0 {
		errs = append(errs, errors.New("vocabulary: set path or phrases"))
	}

	d := c.Detection
	if len(d.Strategies) == 0 {
		errs = append(errs, errors.New("detection.strategies: at least one strategy is required"))
	}
	for _, s := range d.Strategies {
		if !slices.Contains(knownStrategies, s) {
			errs = append(errs, fmt.Errorf("detection.strategies: unknown strategy %q", s))
		}
	}
	if d.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("detection.window_size: must be at least 1, got %d", d.WindowSize))
	}
	if d.FuzzyThreshold < 0 || d.FuzzyThreshold > 100 {
		errs = append(errs, fmt.Errorf("detection.fuzzy_threshold: must be within [0, 100], got %v", d.FuzzyThreshold))
	}
	if !slices.Contains(knownScorers, d.Scorer) {
		errs = append(errs, fmt.Errorf("detection.scorer: unknown scorer %q", d.Scorer))
	}
	if d.Proximity < 1 {
		errs = append(errs, fmt.Errorf("detection.proximity: must be at least 1, got %d", d.Proximity))
	}
	if d.SemanticThreshold < 0 {
		errs = append(errs, fmt.Errorf("detection.semantic_threshold: must not be negative, got %v", d.SemanticThreshold))
	}
	if d.Workers < 0 {
		errs = append(errs, fmt.Errorf("detection.workers: must not be negative, got %d", d.Workers))
	}

	a := c.Aggregation
	if a.Normalization != 1000 && a.Normalization != 10000 {
		errs = append(errs, fmt.Errorf("aggregation.normalization: must be 1000 or 10000, got %d", a.Normalization))
	}
	if a.MinTokens < 0 {
		errs = append(errs, fmt.Errorf("aggregation.min_tokens: must not be negative, got %d", a.MinTokens))
	}
	if a.TopN < 0 {
		errs = append(errs, fmt.Errorf("aggregation.top_n: must not be negative, got %d", a.TopN))
	}
	if !slices.Contains(knownBuckets, a.Bucket) {
		errs = append(errs, fmt.Errorf("aggregation.bucket: unknown bucket %q", a.Bucket))
	}

	if !slices.Contains(knownProviders, strings.ToLower(c.Embeddings.Provider)) {
		errs = append(errs, fmt.Errorf("embeddings.provider: unknown provider %q", c.Embeddings.Provider))
	}
	if c.SemanticEnabled() && strings.EqualFold(c.Embeddings.Provider, "none") {
		errs = append(errs, errors.New("detection.strategies: semantic matching needs an embeddings provider"))
	}

	for i, p := range c.Sources.Playlists {
		if p.URL == "" || p.Organization == "" {
			errs = append(errs, fmt.Errorf("sources.playlists[%d]: organization and url are required", i))
		}
	}

	if !slices.Contains(knownLevels, strings.ToUpper(c.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// SemanticEnabled reports whether the semantic strategy is configured.
func (c *Config) SemanticEnabled() bool {
	return slices.Contains(c.Detection.Strategies, "semantic")
}

// Debug reports whether the log level is DEBUG.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Logging.Level, "DEBUG")
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// CachePath returns the embedding cache file, or "" when caching is off.
// Relative names live in the data directory.
func (c *Config) CachePath() string {
	if c.Embeddings.Cache == "" {
		return ""
	}
	if filepath.IsAbs(c.Embeddings.Cache) {
		return c.Embeddings.Cache
	}
	return filepath.Join(c.GetDataDir(), c.Embeddings.Cache)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
