// Package resolve computes the answer for an interpreted quiz page. Each
// question kind has a strategy; when none applies or it finds nothing, the
// page text itself is searched for a stated answer.
package resolve

import (
	"context"

	"github.com/ppiankov/quizrunner/internal/interpret"
	"github.com/ppiankov/quizrunner/internal/llm"
	"github.com/ppiankov/quizrunner/internal/model"
	"github.com/ppiankov/quizrunner/internal/table"
	"go.uber.org/zap"
)

// Fetcher retrieves artifact bytes
type Fetcher interface {
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// Strategy computes an answer for one question kind. An absent answer with a
// nil error means the strategy had nothing to say.
type Strategy interface {
	Solve(ctx context.Context, interp model.PageInterpretation, page model.RenderedPage) (model.Answer, error)
}

// StrategyFunc adapts a function to Strategy
type StrategyFunc func(ctx context.Context, interp model.PageInterpretation, page model.RenderedPage) (model.Answer, error)

// Solve calls f
func (f StrategyFunc) Solve(ctx context.Context, interp model.PageInterpretation, page model.RenderedPage) (model.Answer, error) {
	return f(ctx, interp, page)
}

// Resolver dispatches pages to strategies by question kind
type Resolver struct {
	strategies map[model.QuestionKind]Strategy
	llm        llm.Provider
	logger     *zap.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLLM enables the language model fallback. A nil provider leaves it off.
func WithLLM(provider llm.Provider) Option {
	return func(r *Resolver) {
		r.llm = provider
	}
}

// NewResolver creates a resolver with the built-in strategies. Artifacts are
// fetched with fetcher and parsed with parser.
func NewResolver(fetcher Fetcher, parser *table.Parser, opts ...Option) *Resolver {
	r := &Resolver{
		strategies: make(map[model.QuestionKind]Strategy),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.Register(model.KindSumValueColumn, NewSumColumn(fetcher, parser, "value", r.logger))
	return r
}

// Register installs or replaces the strategy for kind
func (r *Resolver) Register(kind model.QuestionKind, strategy Strategy) {
	r.strategies[kind] = strategy
}

// Resolve returns the answer for page, or model.NoAnswer when nothing
// produced one. Strategy failures are logged and fall through.
func (r *Resolver) Resolve(ctx context.Context, interp model.PageInterpretation, page model.RenderedPage) model.Answer {
	if strategy, ok := r.strategies[interp.Kind]; ok {
		answer, err := strategy.Solve(ctx, interp, page)
		if err != nil {
			r.logger.Debug("strategy produced no answer",
				zap.String("kind", string(interp.Kind)),
				zap.Error(err))
		}
		if answer.Present() {
			return answer
		}
	}

	text := interpret.VisibleText(page.HTML)
	if answer := StatedAnswer(text, page.HTML); answer.Present() {
		return answer
	}

	if r.llm != nil {
		return r.askLLM(ctx, text)
	}
	return model.NoAnswer
}

func (r *Resolver) askLLM(ctx context.Context, text string) model.Answer {
	resp, err := r.llm.Answer(ctx, llm.AnswerRequest{PageText: text})
	if err != nil {
		r.logger.Warn("llm fallback failed",
			zap.String("provider", r.llm.Name()),
			zap.Error(err))
		return model.NoAnswer
	}

	r.logger.Debug("llm fallback answered",
		zap.String("provider", r.llm.Name()),
		zap.String("model", resp.Model),
		zap.Stringer("answer", resp.Answer))
	return resp.Answer
}
