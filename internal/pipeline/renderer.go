package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ppiankov/quizrunner/internal/model"
)

// Renderer produces the HTML of a page after its scripts have run
type Renderer interface {
	// Render loads rawURL and returns the serialized DOM. Failures wrap
	// model.ErrRender.
	Render(ctx context.Context, rawURL string, timeout time.Duration) (string, error)

	// Close releases the browser
	Close() error
}

// RendererFactory creates the renderer for one chain
type RendererFactory func(ctx context.Context) (Renderer, error)

// RodRenderer renders pages in a dedicated headless Chrome process
type RodRenderer struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	userAgent string
	idleWait  time.Duration
}

// NewRodRenderer launches a browser and connects to it
func NewRodRenderer(ctx context.Context, cfg *model.Config) (*RodRenderer, error) {
	l := launcher.New().Headless(cfg.Browser.Headless)
	if cfg.Browser.Bin != "" {
		l = l.Bin(cfg.Browser.Bin)
	}
	if cfg.HTTP.HTTPSProxy != "" {
		l = l.Proxy(cfg.HTTP.HTTPSProxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, model.Fail(model.ErrRender, "", fmt.Errorf("launch chrome: %w", err))
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, model.Fail(model.ErrRender, "", fmt.Errorf("connect to chrome: %w", err))
	}

	return &RodRenderer{
		launcher:  l,
		browser:   browser,
		userAgent: cfg.HTTP.UserAgent,
		idleWait:  cfg.Browser.IdleWait,
	}, nil
}

// RodRendererFactory returns a factory launching one browser per chain
func RodRendererFactory(cfg *model.Config) RendererFactory {
	return func(ctx context.Context) (Renderer, error) {
		return NewRodRenderer(ctx, cfg)
	}
}

// Render opens a fresh tab, waits for load and network quiet, and returns
// the DOM. The tab is closed before returning.
func (r *RodRenderer) Render(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", model.Fail(model.ErrRender, rawURL, fmt.Errorf("create page: %w", err))
	}
	defer func() { _ = page.Close() }()

	p := page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	if r.userAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.userAgent}); err != nil {
			return "", model.Fail(model.ErrRender, rawURL, fmt.Errorf("set user agent: %w", err))
		}
	}

	var waitIdle func()
	if r.idleWait > 0 {
		waitIdle = p.WaitRequestIdle(r.idleWait, nil, nil, nil)
	}

	if err := p.Navigate(rawURL); err != nil {
		return "", model.Fail(model.ErrRender, rawURL, fmt.Errorf("navigate: %w", err))
	}
	if err := p.WaitLoad(); err != nil {
		return "", model.Fail(model.ErrRender, rawURL, fmt.Errorf("wait load: %w", err))
	}
	if waitIdle != nil {
		waitIdle()
	}

	html, err := p.HTML()
	if err != nil {
		return "", model.Fail(model.ErrRender, rawURL, fmt.Errorf("read DOM: %w", err))
	}
	return html, nil
}

// Close shuts the browser down and removes its profile directory
func (r *RodRenderer) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	r.launcher.Cleanup()
	return err
}
