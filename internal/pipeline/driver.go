package pipeline

import (
	"context"
	"time"

	"github.com/ppiankov/quizrunner/internal/interpret"
	"github.com/ppiankov/quizrunner/internal/model"
	"go.uber.org/zap"
)

// AnswerResolver computes the answer for an interpreted page
type AnswerResolver interface {
	Resolve(ctx context.Context, interp model.PageInterpretation, page model.RenderedPage) model.Answer
}

// Driver walks one chain: render, interpret, resolve, submit, repeat until
// a step stops. A driver is used by a single goroutine.
type Driver struct {
	renderer    Renderer
	interpreter *interpret.Interpreter
	resolver    AnswerResolver
	submitter   *Submitter
	now         func() time.Time
	logger      *zap.Logger
}

// NewDriver creates a driver. A nil interpreter uses the default signatures.
func NewDriver(renderer Renderer, interpreter *interpret.Interpreter, resolver AnswerResolver, submitter *Submitter, logger *zap.Logger) *Driver {
	if interpreter == nil {
		interpreter = interpret.NewInterpreter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		renderer:    renderer,
		interpreter: interpreter,
		resolver:    resolver,
		submitter:   submitter,
		now:         time.Now,
		logger:      logger,
	}
}

// Run steps through the chain until it stops and returns why. The reason is
// for logging only.
func (d *Driver) Run(ctx context.Context, session *model.ChainSession) model.StopReason {
	for {
		result := d.Step(ctx, session)
		if result.Stopped() {
			d.logger.Info("chain stopped",
				zap.String("reason", string(result.Reason)),
				zap.Int("steps", session.Steps),
				zap.String("url", session.CurrentURL))
			return result.Reason
		}
		session.CurrentURL = result.Next
	}
}

// Step runs one step for session.CurrentURL. The deadline is checked only
// here, before rendering; a started step runs to completion on its own
// timeouts.
func (d *Driver) Step(ctx context.Context, session *model.ChainSession) model.StepResult {
	if ctx.Err() != nil {
		return model.Stop(model.StopCancelled)
	}

	now := d.now()
	if session.Expired(now) {
		return model.Stop(model.StopDeadline)
	}

	session.Steps++
	pageURL := session.CurrentURL
	log := d.logger.With(zap.Int("step", session.Steps), zap.String("url", pageURL))

	timeout := session.RenderTimeout(now)
	html, err := d.renderer.Render(ctx, pageURL, timeout)
	if err != nil {
		log.Warn("render failed", zap.Duration("timeout", timeout), zap.Error(err))
		return model.Stop(model.StopRenderFailed)
	}

	page := model.RenderedPage{URL: pageURL, HTML: html}
	interp := d.interpreter.Interpret(page)

	endpoint := interp.SubmissionEndpoint
	if endpoint == "" {
		endpoint = model.FallbackEndpoint(pageURL)
		if endpoint != "" {
			log.Debug("using fallback endpoint", zap.String("endpoint", endpoint))
		}
	}

	answer := d.resolver.Resolve(ctx, interp, page)

	log.Debug("page interpreted",
		zap.String("kind", string(interp.Kind)),
		zap.Int("artifacts", len(interp.Artifacts)),
		zap.String("endpoint", endpoint),
		zap.Stringer("answer", answer))

	if endpoint == "" {
		return model.Stop(model.StopNoEndpoint)
	}
	if !answer.Present() {
		return model.Stop(model.StopNoAnswer)
	}

	outcome, err := d.submitter.Submit(ctx, endpoint, model.SubmissionPayload{
		Email:  session.Email,
		Secret: session.Secret,
		URL:    pageURL,
		Answer: answer,
	})
	if err != nil {
		log.Warn("submission failed", zap.String("endpoint", endpoint), zap.Error(err))
		return model.Stop(model.StopSubmitFailed)
	}

	log.Info("answer submitted",
		zap.String("endpoint", endpoint),
		zap.Stringer("answer", answer),
		zap.Int("status", outcome.StatusCode))
	return outcome.Decide()
}
