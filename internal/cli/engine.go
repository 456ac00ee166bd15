package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/quizrunner/internal/llm"
	"github.com/ppiankov/quizrunner/internal/model"
	"github.com/ppiankov/quizrunner/internal/pipeline"
	"go.uber.org/zap"
)

// newEngine builds the chain engine, enabling the LLM fallback when one is
// configured and reachable
func newEngine(ctx context.Context, cfg *model.Config) (*pipeline.Engine, error) {
	opts := []pipeline.EngineOption{pipeline.WithLogger(logger)}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	if provider != nil {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		available := provider.IsAvailable(checkCtx)
		cancel()
		if !available {
			logger.Warn("llm provider not reachable, fallback disabled", zap.String("provider", provider.Name()))
		} else {
			logger.Info("llm fallback enabled",
				zap.String("provider", provider.Name()),
				zap.String("model", cfg.LLM.Model))
			opts = append(opts, pipeline.WithLLM(provider))
		}
	}

	return pipeline.NewEngine(cfg, opts...), nil
}
