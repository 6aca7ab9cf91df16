package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"docrag/internal/domain"
)

// OllamaConfig holds connection details shared by the Ollama embedding and
// generation clients.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string        `yaml:"type"`
	Ollama *OllamaConfig `yaml:"ollama,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// SQLiteConfig contains settings for the SQLite-backed vector store.
// The default DSN keeps the index in memory so it lives and dies with the
// session.
type SQLiteConfig struct {
	DSN string `yaml:"dsn"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// GeneratorConfig configures the inference backend client.
type GeneratorConfig struct {
	Ollama OllamaConfig `yaml:"ollama"`
}

// RetrievalConfig controls how many chunks are fed into the prompt.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// LogConfig configures the per-query audit log.
type LogConfig struct {
	Dir string `yaml:"dir"`
}

// SummaryConfig configures the startup document digest.
type SummaryConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Collection  string            `yaml:"collection"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Log         LogConfig         `yaml:"log"`
	Summary     SummaryConfig     `yaml:"summary"`
	LogLevel    string            `yaml:"log_level"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, goerr.Wrap(domain.ErrConfig, "cannot read config file", goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(domain.ErrConfig, "cannot parse config file", goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/docrag/config.yaml and
// returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", goerr.Wrap(domain.ErrConfig, "cannot resolve user config path")
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
		return goerr.Wrap(domain.ErrConfig, "cannot create config directory", goerr.V("path", path))
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return goerr.Wrap(domain.ErrConfig, "cannot marshal config")
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations that must never reach indexing. It is the
// only place where chunking parameters are checked; constructors downstream
// assume a validated config.
func (c *AppConfig) Validate() error {
	if c.Chunker.Type == "words" || c.Chunker.Type == "" {
		if c.Chunker.ChunkSize <= 0 {
			return goerr.Wrap(domain.ErrConfig, "chunk_size must be positive", goerr.V("chunk_size", c.Chunker.ChunkSize))
		}
		if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
			return goerr.Wrap(domain.ErrConfig, "overlap must satisfy 0 <= overlap < chunk_size",
				goerr.V("overlap", c.Chunker.Overlap), goerr.V("chunk_size", c.Chunker.ChunkSize))
		}
	}
	if c.Retrieval.TopK <= 0 {
		return goerr.Wrap(domain.ErrConfig, "top_k must be positive", goerr.V("top_k", c.Retrieval.TopK))
	}
	if c.Log.Dir == "" {
		return goerr.Wrap(domain.ErrConfig, "log dir must not be empty")
	}
	return nil
}

// Timeout returns the configured request timeout as a duration.
func (o OllamaConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSecs) * time.Second
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docrag", "config.yaml"), nil
}

// Default returns the built-in configuration: word chunking at 500/50, the
// local TF-IDF embedder, the in-memory store and an Ollama backend on
// localhost.
func Default() *AppConfig {
	cfg := &AppConfig{
		Collection:  "pdf_rag",
		Chunker:     ChunkerConfig{Type: "words", ChunkSize: 500, Overlap: 50},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Generator: GeneratorConfig{Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "qwen3-vl:32b",
			TimeoutSecs: 300,
		}},
		Retrieval: RetrievalConfig{TopK: 5},
		Log:       LogConfig{Dir: "query_logs"},
		Summary:   SummaryConfig{MaxSentences: 5},
		LogLevel:  "info",
	}
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Collection == "" {
		cfg.Collection = def.Collection
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "words"
	}
	if cfg.Chunker.Type == "words" && cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = def.Chunker.ChunkSize
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = def.Chunker.Overlap
		}
	}
	if cfg.Chunker.Type == "sentences" && cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "ollama" {
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaConfig{}
		}
		applyOllamaDefaults(cfg.Embedder.Ollama, "nomic-embed-text")
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "sqlite" {
		if cfg.VectorStore.SQLite == nil {
			cfg.VectorStore.SQLite = &SQLiteConfig{}
		}
		if cfg.VectorStore.SQLite.DSN == "" {
			cfg.VectorStore.SQLite.DSN = ":memory:"
		}
	}
	applyOllamaDefaults(&cfg.Generator.Ollama, def.Generator.Ollama.Model)
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = def.Log.Dir
	}
	if cfg.Summary.MaxSentences == 0 {
		cfg.Summary.MaxSentences = def.Summary.MaxSentences
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
}

func applyOllamaDefaults(o *OllamaConfig, model string) {
	if o.BaseURL == "" {
		o.BaseURL = "http://localhost:11434"
	}
	if o.Model == "" {
		o.Model = model
	}
	if o.TimeoutSecs == 0 {
		o.TimeoutSecs = 300
	}
}
