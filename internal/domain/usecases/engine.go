package usecases

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

// EngineConfig holds the engine's tunables.
type EngineConfig struct {
	CorpusPath    string
	TopK          int
	MinSimilarity float64
	Answer        AnswererConfig
}

// Engine is the single entry point for answering FAQ queries.
//
// It initializes lazily on the first query: credential validation, corpus
// loading and index building run exactly once, and concurrent callers wait
// for the outcome. A failed initialization is terminal for the process; the
// engine then serves the outage message until it is restarted.
type Engine struct {
	cfg          EngineConfig
	corpus       *CorpusUseCase
	builder      *IndexBuilder
	scorer       *Scorer
	newGenerator ports.GeneratorFactory
	identity     []CannedReply
	log          logrus.FieldLogger

	once     sync.Once
	state    atomic.Int32
	initErr  error
	answerer *Answerer
	index    atomic.Pointer[SearchIndex]

	reloadMu sync.Mutex
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log logrus.FieldLogger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// WithIdentityReplies replaces the canned answers about the assistant itself.
func WithIdentityReplies(replies []CannedReply) EngineOption {
	return func(e *Engine) {
		e.identity = replies
	}
}

// NewEngine creates an uninitialized Engine.
func NewEngine(
	cfg EngineConfig,
	corpus *CorpusUseCase,
	builder *IndexBuilder,
	newGenerator ports.GeneratorFactory,
	options ...EngineOption,
) *Engine {
	e := &Engine{
		cfg:          cfg,
		corpus:       corpus,
		builder:      builder,
		newGenerator: newGenerator,
		identity:     DefaultIdentityReplies,
		log:          logrus.StandardLogger(),
	}
	for _, option := range options {
		option(e)
	}

	e.scorer = NewScorer(cfg.TopK, cfg.MinSimilarity)
	e.log = e.log.WithField("component", "engine")
	return e
}

// State returns the current lifecycle state without blocking.
func (e *Engine) State() entities.EngineState {
	return entities.EngineState(e.state.Load())
}

// Err returns the initialization error once the engine has failed.
func (e *Engine) Err() error {
	if e.State() != entities.StateFailed {
		return nil
	}
	return e.initErr
}

// Warmup runs initialization if it has not run yet and reports its result.
func (e *Engine) Warmup(ctx context.Context) error {
	if e.ensureInitialized(ctx) {
		return nil
	}
	return e.initErr
}

// AnswerQuery answers message with a user-displayable string. It never fails.
func (e *Engine) AnswerQuery(ctx context.Context, message string) string {
	return e.Answer(ctx, message).Text
}

// Answer is AnswerQuery with the reply kind and grounding passages attached.
func (e *Engine) Answer(ctx context.Context, message string) (reply entities.Reply) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).Error("answering query panicked")
			reply = entities.Reply{Text: entities.FailureMessage, Kind: entities.ReplyError}
		}
	}()

	if canned, ok := matchIdentity(e.identity, message); ok {
		return entities.Reply{Text: canned, Kind: entities.ReplyCanned}
	}

	if !e.ensureInitialized(ctx) {
		return entities.Reply{Text: entities.OutageMessage, Kind: entities.ReplyOutage}
	}

	start := time.Now()
	log := e.log.WithField("query", message)

	result, err := e.scorer.Retrieve(ctx, message, e.index.Load(), 0)
	if err != nil {
		log.WithError(err).Error("retrieval failed")
		return entities.Reply{Text: entities.FailureMessage, Kind: entities.ReplyError}
	}

	outcome, err := e.answerer.Generate(ctx, message, result)
	if err != nil {
		log.WithError(err).Error("generation failed")
		return entities.Reply{Text: entities.FailureMessage, Kind: entities.ReplyError, Sources: result}
	}

	log.WithFields(logrus.Fields{
		"sources":  len(result),
		"grounded": outcome.Kind == entities.OutcomeAnswer,
		"took":     time.Since(start).String(),
	}).Debug("answered query")

	if outcome.Kind == entities.OutcomeNoAnswer {
		return entities.Reply{Text: outcome.Text, Kind: entities.ReplyRefusal, Sources: result}
	}
	return entities.Reply{Text: outcome.Text, Kind: entities.ReplyAnswer, Sources: result}
}

// Reload rebuilds the index from the current corpus and swaps it in. It only
// acts on a ready engine; on failure the previous index keeps serving.
func (e *Engine) Reload(ctx context.Context) error {
	if e.State() != entities.StateReady {
		return nil
	}

	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	passages, err := e.corpus.LoadCorpus(ctx, e.cfg.CorpusPath)
	if err != nil {
		return err
	}
	ix, err := e.builder.BuildOrLoad(ctx, passages)
	if err != nil {
		return err
	}

	e.index.Store(ix)
	e.log.WithField("passages", ix.Len()).Info("reloaded index")
	return nil
}

// Close releases the generator when it holds resources.
func (e *Engine) Close() error {
	if e.State() != entities.StateReady {
		return nil
	}
	if c, ok := e.answerer.generator.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (e *Engine) ensureInitialized(ctx context.Context) bool {
	e.once.Do(func() {
		// The first caller's cancellation must not fail the engine for everyone.
		e.initialize(context.WithoutCancel(ctx))
	})
	return e.State() == entities.StateReady
}

func (e *Engine) initialize(ctx context.Context) {
	e.state.Store(int32(entities.StateInitializing))
	start := time.Now()
	e.log.Info("initializing engine")

	if err := e.build(ctx); err != nil {
		e.initErr = err
		e.state.Store(int32(entities.StateFailed))

		e.log.WithError(err).Error("engine initialization failed, restart required after fixing configuration")
		return
	}

	e.state.Store(int32(entities.StateReady))
	e.log.WithFields(logrus.Fields{
		"passages": e.index.Load().Len(),
		"took":     time.Since(start).String(),
	}).Info("engine ready")
}

func (e *Engine) build(ctx context.Context) error {
	if e.newGenerator == nil {
		return &entities.InitializationError{Stage: "generator", Err: errors.New("no generator configured")}
	}
	generator, err := e.newGenerator(ctx)
	if err != nil {
		return &entities.InitializationError{Stage: "generator", Err: err}
	}

	passages, err := e.corpus.LoadCorpus(ctx, e.cfg.CorpusPath)
	if err != nil {
		return &entities.InitializationError{Stage: "corpus", Err: err}
	}

	ix, err := e.builder.BuildOrLoad(ctx, passages)
	if err != nil {
		return &entities.InitializationError{Stage: "index", Err: err}
	}

	e.answerer = NewAnswerer(generator, e.cfg.Answer, e.log)
	e.index.Store(ix)
	return nil
}
