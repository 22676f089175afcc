package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"kbase/internal/chunker"
	"kbase/internal/domain"
	"kbase/internal/index"
)

// Environment variables that override file settings.
const (
	EnvDataDir  = "KBASE_DATA_DIR"
	EnvLogLevel = "KBASE_LOG_LEVEL"
)

// StoreConfig locates the persisted collection.
type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
}

// ChunkerConfig configures the sliding window, in characters.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// IndexConfig selects the similarity strategy.
type IndexConfig struct {
	Strategy    string `yaml:"strategy"`
	MaxFeatures int    `yaml:"max_features"`
	NGramMax    int    `yaml:"ngram_max"`
}

// Options converts the section into index options.
func (c IndexConfig) Options() index.Options {
	return index.Options{
		Vector:      c.Strategy != index.StrategyKeyword,
		MaxFeatures: c.MaxFeatures,
		NGramMax:    c.NGramMax,
	}
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	TopK int `yaml:"top_k"`
}

// IngestConfig configures file loading.
type IngestConfig struct {
	Extensions []string `yaml:"extensions"`
	PDFToText  string   `yaml:"pdftotext"`
}

// DigestConfig configures the extract shown with query results.
type DigestConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Store   StoreConfig   `yaml:"store"`
	Chunker ChunkerConfig `yaml:"chunker"`
	Index   IndexConfig   `yaml:"index"`
	Query   QueryConfig   `yaml:"query"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Digest  DigestConfig  `yaml:"digest"`
	Log     LogConfig     `yaml:"log"`
}

// Load reads a config from path. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/kbase/config.yaml.
// If neither exists, it writes defaults to ~/.config/kbase/config.yaml and
// returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overrides settings from the environment.
func (c *AppConfig) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvDataDir)); v != "" {
		c.Store.DataDir = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}

// Validate reports settings that would make a component unusable.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Chunker.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize))
	}
	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		errs = append(errs, fmt.Errorf("chunker.chunk_overlap must be in [0, chunk_size), got %d", c.Chunker.ChunkOverlap))
	}
	switch c.Index.Strategy {
	case index.StrategyVector, index.StrategyKeyword:
	default:
		errs = append(errs, fmt.Errorf("index.strategy must be %q or %q, got %q", index.StrategyVector, index.StrategyKeyword, c.Index.Strategy))
	}
	if err := c.Index.Options().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Query.TopK < 1 {
		errs = append(errs, fmt.Errorf("query.top_k must be at least 1, got %d", c.Query.TopK))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "kbase", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Store:   StoreConfig{DataDir: "./knowledge_db"},
		Chunker: ChunkerConfig{ChunkSize: chunker.DefaultChunkSize, ChunkOverlap: chunker.DefaultChunkOverlap},
		Index: IndexConfig{
			Strategy:    index.StrategyVector,
			MaxFeatures: index.DefaultMaxFeatures,
			NGramMax:    index.DefaultNGramMax,
		},
		Query:  QueryConfig{TopK: 5},
		Ingest: IngestConfig{Extensions: []string{".pdf", ".csv", ".txt", ".md"}, PDFToText: "pdftotext"},
		Digest: DigestConfig{MaxSentences: 3},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = def.Store.DataDir
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = def.Chunker.ChunkSize
		if cfg.Chunker.ChunkOverlap == 0 {
			cfg.Chunker.ChunkOverlap = def.Chunker.ChunkOverlap
		}
	}
	if cfg.Index.Strategy == "" {
		cfg.Index.Strategy = def.Index.Strategy
	}
	if cfg.Index.MaxFeatures == 0 {
		cfg.Index.MaxFeatures = def.Index.MaxFeatures
	}
	if cfg.Index.NGramMax == 0 {
		cfg.Index.NGramMax = def.Index.NGramMax
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = def.Query.TopK
	}
	if len(cfg.Ingest.Extensions) == 0 {
		cfg.Ingest.Extensions = def.Ingest.Extensions
	}
	if cfg.Ingest.PDFToText == "" {
		cfg.Ingest.PDFToText = def.Ingest.PDFToText
	}
	if cfg.Digest.MaxSentences == 0 {
		cfg.Digest.MaxSentences = def.Digest.MaxSentences
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}
