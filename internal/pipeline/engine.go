package pipeline

import (
	"context"
	"time"

	"github.com/ppiankov/quizrunner/internal/interpret"
	"github.com/ppiankov/quizrunner/internal/llm"
	"github.com/ppiankov/quizrunner/internal/model"
	"github.com/ppiankov/quizrunner/internal/resolve"
	"github.com/ppiankov/quizrunner/internal/table"
	"go.uber.org/zap"
)

// Engine runs chains. It holds only read-only state; every run builds its own
// fetcher, cache and browser and releases them before returning.
type Engine struct {
	cfg         *model.Config
	newRenderer RendererFactory
	interpreter *interpret.Interpreter
	parser      *table.Parser
	llm         llm.Provider
	now         func() time.Time
	logger      *zap.Logger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithRendererFactory replaces the headless Chrome renderer
func WithRendererFactory(factory RendererFactory) EngineOption {
	return func(e *Engine) { e.newRenderer = factory }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLLM enables the language model answer fallback
func WithLLM(provider llm.Provider) EngineOption {
	return func(e *Engine) { e.llm = provider }
}

// WithInterpreter replaces the page interpreter
func WithInterpreter(interpreter *interpret.Interpreter) EngineOption {
	return func(e *Engine) { e.interpreter = interpreter }
}

// WithClock replaces time.Now for deadline checks
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine for cfg. The artifact parser, and with it the
// PDF capability, is chosen here once.
func NewEngine(cfg *model.Config, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:         cfg,
		newRenderer: RodRendererFactory(cfg),
		interpreter: interpret.NewInterpreter(),
		parser:      table.NewParserFromConfig(cfg),
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run solves the chain starting at startURL. It never fails: how the chain
// ended is logged, and the summary carries no success flag.
func (e *Engine) Run(ctx context.Context, startURL string) model.RunSummary {
	started := e.now()
	session := model.NewChainSession(e.cfg, startURL, started)
	logger := e.logger.With(zap.String("chain_id", session.ID))

	logger.Info("chain started",
		zap.String("url", startURL),
		zap.Time("deadline", session.Deadline))

	summary := func() model.RunSummary {
		return model.RunSummary{
			ChainID:  session.ID,
			StartURL: startURL,
			LastURL:  session.CurrentURL,
			Steps:    session.Steps,
			Elapsed:  e.now().Sub(started),
		}
	}

	fetcher := NewFetcherFromConfig(e.cfg, logger)
	defer fetcher.Close()

	renderer, err := e.newRenderer(ctx)
	if err != nil {
		logger.Error("chain stopped",
			zap.String("reason", string(model.StopRenderFailed)),
			zap.Error(err))
		return summary()
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			logger.Debug("close renderer", zap.Error(err))
		}
	}()

	resolver := resolve.NewResolver(fetcher, e.parser,
		resolve.WithLogger(logger),
		resolve.WithLLM(e.llm))

	driver := NewDriver(renderer, e.interpreter, resolver, NewSubmitter(fetcher, logger), logger)
	driver.now = e.now
	driver.Run(ctx, session)

	result := summary()
	logger.Info("chain finished",
		zap.Int("steps", result.Steps),
		zap.Duration("elapsed", result.Elapsed))
	return result
}
