package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding"
	ollamaembed "docrag/internal/embedding/ollama"
	"docrag/internal/embedding/tfidf"
	"docrag/internal/engine"
	"docrag/internal/extract"
	ollamagen "docrag/internal/generate/ollama"
	"docrag/internal/index"
	"docrag/internal/logging"
	"docrag/internal/querylog"
	"docrag/internal/session"
	"docrag/internal/summarizer"
	"docrag/internal/tui"
	"docrag/internal/vectorstore"
	"docrag/internal/vectorstore/memory"
	"docrag/internal/vectorstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath  string
		logLevel string
	)

	cmd := &cli.Command{
		Name:  "docrag",
		Usage: "Chat with a document through a local retrieval pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to YAML config (default: ./config.yaml, then ~/.config/docrag/config.yaml)",
				Sources:     cli.EnvVars("DOCRAG_CONFIG"),
				Destination: &cfgPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("DOCRAG_LOG_LEVEL"),
				Destination: &logLevel,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "chat",
				Usage:     "Index a document and answer questions interactively",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return goerr.Wrap(domain.ErrConfig, "usage: docrag chat <file>")
					}
					return runChat(ctx, cfgPath, logLevel, c.Args().First())
				},
			},
			{
				Name:      "ask",
				Usage:     "Index a document, answer one question and exit",
				ArgsUsage: "<file> <question...>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() < 2 {
						return goerr.Wrap(domain.ErrConfig, "usage: docrag ask <file> <question>")
					}
					question := strings.Join(c.Args().Slice()[1:], " ")
					return runAsk(ctx, cfgPath, logLevel, c.Args().First(), question)
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		logging.Default().Error("docrag failed", "error", err)
		os.Exit(1)
	}
}

// pipeline holds the fully assembled per-document components.
type pipeline struct {
	cfg     *config.AppConfig
	engine  *engine.Engine
	index   *index.Index
	machine *session.Machine
	summary string
	source  string
	close   func()
}

// setup loads config, indexes the document and builds the session machine.
// Configuration and extraction failures abort; everything past that point is
// recoverable at query time.
func setup(ctx context.Context, cfgPath, logLevel, path string) (*pipeline, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)
	logging.SetDefault(logger)

	doc, err := extract.FromFile(path)
	if err != nil {
		return nil, err
	}

	ch, err := buildChunker(cfg)
	if err != nil {
		return nil, err
	}
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	chunks, err := ch.Chunk(doc)
	if err != nil {
		closeStore()
		return nil, err
	}

	ix := index.New(cfg.Collection, emb, store)
	if err := ix.Add(chunks); err != nil {
		closeStore()
		return nil, goerr.Wrap(err, "indexing failed", goerr.V("source", path))
	}
	logger.Info("document indexed",
		"source", path, "chunks", ix.Count(), "collection", cfg.Collection, "embedder", emb.Name())

	qlog, err := querylog.New(cfg.Log.Dir)
	if err != nil {
		closeStore()
		return nil, err
	}
	gen := ollamagen.NewClient(ollamagen.Config{
		BaseURL: cfg.Generator.Ollama.BaseURL,
		Model:   cfg.Generator.Ollama.Model,
		Timeout: cfg.Generator.Ollama.Timeout(),
	})

	eng := engine.New(ix, gen, qlog, path)
	if err := eng.RecordIndexing(ix.Count()); err != nil {
		logger.Warn("could not record indexing", "error", err)
	}

	summary, err := summarizer.NewFrequencySummarizer().Summarize(doc.Content, cfg.Summary.MaxSentences)
	if err != nil {
		logger.Warn("summary failed", "error", err)
		summary = ""
	}

	machine := session.New(eng, ix, gen.Model(), cfg.Retrieval.TopK)
	machine.Start()

	return &pipeline{
		cfg:     cfg,
		engine:  eng,
		index:   ix,
		machine: machine,
		summary: summary,
		source:  path,
		close:   closeStore,
	}, nil
}

func runChat(ctx context.Context, cfgPath, logLevel, path string) error {
	p, err := setup(ctx, cfgPath, logLevel, path)
	if err != nil {
		return err
	}
	defer p.close()
	defer p.machine.Terminate()

	ctx = logging.With(ctx, logging.Default())
	m := tui.New(ctx, p.machine, tui.Banner{
		Source:     p.source,
		Store:      p.cfg.VectorStore.Type,
		Collection: p.cfg.Collection,
		Model:      p.cfg.Generator.Ollama.Model,
		Chunks:     p.index.Count(),
		Summary:    p.summary,
	})
	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return goerr.Wrap(err, "terminal session failed")
	}
	return nil
}

func runAsk(ctx context.Context, cfgPath, logLevel, path, question string) error {
	p, err := setup(ctx, cfgPath, logLevel, path)
	if err != nil {
		return err
	}
	defer p.close()
	defer p.machine.Terminate()

	ctx = logging.With(ctx, logging.Default())
	res := p.machine.Handle(ctx, question)
	if res.Kind != session.Answered {
		return goerr.New("question produced no answer", goerr.V("question", question))
	}
	if res.LogErr != nil {
		logging.Default().Warn("query log write failed", "error", res.LogErr)
	}
	fmt.Println(res.Answer.Text)
	if res.Answer.Failed {
		return goerr.Wrap(domain.ErrBackend, "backend call failed")
	}
	return nil
}

func loadConfig(cfgPath string) (*config.AppConfig, error) {
	if cfgPath == "" {
		cfg, from, err := config.LoadDefault()
		if err != nil {
			return nil, err
		}
		logging.Default().Debug("config loaded", "path", from)
		return cfg, nil
	}
	return config.Load(cfgPath)
}

func buildChunker(cfg *config.AppConfig) (chunker.Chunker, error) {
	switch cfg.Chunker.Type {
	case "words", "":
		return chunker.NewWordChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	case "sentences":
		return chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences), nil
	default:
		return nil, goerr.Wrap(domain.ErrConfig, "unknown chunker", goerr.V("type", cfg.Chunker.Type))
	}
}

func buildEmbedder(cfg *config.AppConfig) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			return nil, goerr.Wrap(domain.ErrConfig, "ollama embedder config missing")
		}
		return ollamaembed.NewClient(ollamaembed.Config{
			BaseURL: cfg.Embedder.Ollama.BaseURL,
			Model:   cfg.Embedder.Ollama.Model,
			Timeout: cfg.Embedder.Ollama.Timeout(),
		}), nil
	default:
		return nil, goerr.Wrap(domain.ErrConfig, "unknown embedder", goerr.V("type", cfg.Embedder.Type))
	}
}

func buildStore(cfg *config.AppConfig) (vectorstore.Storage, func(), error) {
	switch cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStorage(), func() {}, nil
	case "sqlite":
		dsn := ""
		if cfg.VectorStore.SQLite != nil {
			dsn = cfg.VectorStore.SQLite.DSN
		}
		st, err := sqlite.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, goerr.Wrap(domain.ErrConfig, "unknown vector store", goerr.V("type", cfg.VectorStore.Type))
	}
}
