// Package app is the composition root: it turns a Config into wired
// adapters and use cases.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/faqbot-go/internal/adapters/embedding"
	"github.com/0xcro3dile/faqbot-go/internal/adapters/encoder"
	"github.com/0xcro3dile/faqbot-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/faqbot-go/internal/adapters/llm"
	"github.com/0xcro3dile/faqbot-go/internal/adapters/loader"
	"github.com/0xcro3dile/faqbot-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
	"github.com/0xcro3dile/faqbot-go/internal/domain/usecases"
	"github.com/0xcro3dile/faqbot-go/internal/infrastructure/config"
	httpserver "github.com/0xcro3dile/faqbot-go/internal/infrastructure/http"
	"github.com/0xcro3dile/faqbot-go/internal/infrastructure/telemetry"
)

// App holds the wired application.
type App struct {
	Config  *config.Config
	Log     logrus.FieldLogger
	Corpus  *usecases.CorpusUseCase
	Builder *usecases.IndexBuilder
	Engine  *usecases.Engine
	Chat    *usecases.ChatUseCase

	store indexStore
}

// indexStore is a snapshot store that can also be wiped for a rebuild.
type indexStore interface {
	ports.IndexStore
	Clear(ctx context.Context) error
}

// Option overrides a wired dependency, mainly for tests.
type Option func(*options)

type options struct {
	generator ports.GeneratorFactory
	strategy  ports.EncodingStrategy
}

// WithGeneratorFactory replaces the configured generative backend.
func WithGeneratorFactory(f ports.GeneratorFactory) Option {
	return func(o *options) {
		o.generator = f
	}
}

// WithStrategy replaces the configured encoding strategy.
func WithStrategy(s ports.EncodingStrategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// New wires the application. Nothing is loaded yet: the engine initializes
// on its first query or on Warmup.
func New(cfg *config.Config, log logrus.FieldLogger, opts ...Option) (*App, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	strategy := o.strategy
	if strategy == nil {
		var err error
		strategy, err = newStrategy(cfg, log)
		if err != nil {
			return nil, err
		}
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	generator := o.generator
	if generator == nil {
		generator = llm.Factory(llm.Config{
			Type:        cfg.Generator.Type,
			Model:       cfg.Generator.Model,
			APIKeyEnv:   cfg.Generator.APIKeyEnv,
			BaseURL:     cfg.Generator.BaseURL,
			Temperature: cfg.Generator.Temperature,
		})
	}

	corpus := usecases.NewCorpusUseCase(loader.NewDefaultLoader())
	builder := usecases.NewIndexBuilder(strategy, store, log)
	engine := usecases.NewEngine(
		usecases.EngineConfig{
			CorpusPath:    cfg.Corpus.Path,
			TopK:          cfg.Retrieval.TopK,
			MinSimilarity: cfg.Retrieval.MinSimilarity,
			Answer: usecases.AnswererConfig{
				MinContextChars: cfg.Answer.MinContextChars,
				Timeout:         cfg.Answer.Timeout,
				Retries:         cfg.Answer.Retries,
				AssistantName:   cfg.Answer.AssistantName,
			},
		},
		corpus,
		builder,
		generator,
		usecases.WithLogger(log),
	)
	chat := usecases.NewChatUseCase(engine,
		usecases.WithIdleTimeout(cfg.Conversation.IdleTimeout),
		usecases.WithChatLogger(log),
	)

	return &App{
		Config:  cfg,
		Log:     log,
		Corpus:  corpus,
		Builder: builder,
		Engine:  engine,
		Chat:    chat,
		store:   store,
	}, nil
}

// Close releases the index store and the generator.
func (a *App) Close() error {
	return errors.Join(a.Engine.Close(), a.store.Close())
}

// Serve runs the HTTP server until ctx is cancelled, with the optional
// warm-up, corpus watch and session pruning alongside it.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config

	if cfg.Server.Warmup {
		go func() {
			if err := a.Engine.Warmup(ctx); err != nil {
				a.Log.WithError(err).Error("warm-up failed")
			}
		}()
	}

	if cfg.Corpus.Watch {
		watcher, err := filewatcher.NewFSNotifyWatcher(a.Log)
		if err != nil {
			return fmt.Errorf("creating corpus watcher: %w", err)
		}
		defer watcher.Stop()

		corpusSync := usecases.NewCorpusSync(watcher, a.Engine, cfg.Corpus.Debounce, a.Log)
		go func() {
			if err := corpusSync.Run(ctx, cfg.Corpus.Path); err != nil {
				a.Log.WithError(err).Error("corpus watch stopped")
			}
		}()
	}

	go a.pruneSessions(ctx)

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		a.Log.WithError(err).Warn("creating metrics failed")
	}

	server := httpserver.NewServer(httpserver.Config{
		Addr:          cfg.Server.Addr(),
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		RateLimit:     cfg.Server.RateLimit,
		CORSOrigins:   cfg.Server.CORSOrigins,
		AssistantName: cfg.Answer.AssistantName,
	}, a.Chat, a.Engine, metrics, a.Log)

	return server.Start(ctx)
}

// IndexReport summarizes an offline indexing run.
type IndexReport struct {
	Strategy string
	Passages int
	Store    string
}

// BuildIndex loads the corpus and builds or validates the persisted index.
// With rebuild set, any stored snapshot is discarded first.
func (a *App) BuildIndex(ctx context.Context, rebuild bool) (IndexReport, error) {
	passages, err := a.Corpus.LoadCorpus(ctx, a.Config.Corpus.Path)
	if err != nil {
		return IndexReport{}, err
	}

	if rebuild {
		if err := a.store.Clear(ctx); err != nil {
			return IndexReport{}, fmt.Errorf("clearing index: %w", err)
		}
	}

	ix, err := a.Builder.BuildOrLoad(ctx, passages)
	if err != nil {
		return IndexReport{}, err
	}

	report := IndexReport{Strategy: ix.Strategy, Passages: ix.Len(), Store: "memory"}
	if a.Config.Index.Persist {
		report.Store = a.Config.Index.Path
	}
	return report, nil
}

func (a *App) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(a.Config.Conversation.IdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Chat.PruneIdle(); n > 0 {
				a.Log.WithField("sessions", n).Debug("pruned idle sessions")
			}
		}
	}
}

func newStrategy(cfg *config.Config, log logrus.FieldLogger) (ports.EncodingStrategy, error) {
	switch cfg.Index.Strategy {
	case encoder.SparseName:
		return encoder.NewTFIDFStrategy(cfg.Index.MaxFeatures), nil
	case encoder.DenseName:
		embedder, err := newEmbedder(cfg, log)
		if err != nil {
			return nil, err
		}
		return encoder.NewDenseStrategy(embedder, cfg.Embedder.Model), nil
	default:
		return nil, fmt.Errorf("unknown index strategy %q", cfg.Index.Strategy)
	}
}

func newEmbedder(cfg *config.Config, log logrus.FieldLogger) (ports.EmbeddingService, error) {
	switch cfg.Embedder.Type {
	case "ollama":
		return embedding.NewOllamaAdapter(cfg.Embedder.BaseURL, cfg.Embedder.Model, log), nil
	case "openai":
		return embedding.NewOpenAIAdapter(os.Getenv(cfg.Embedder.APIKeyEnv), cfg.Embedder.BaseURL, cfg.Embedder.Model, log)
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}
}

func newStore(cfg *config.Config) (indexStore, error) {
	if !cfg.Index.Persist {
		return vectordb.NewInMemoryStore(), nil
	}
	store, err := vectordb.NewSQLiteStore(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("opening index store: %w", err)
	}
	return store, nil
}
