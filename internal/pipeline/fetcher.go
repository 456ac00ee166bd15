package pipeline

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/quizrunner/internal/cache"
	"github.com/ppiankov/quizrunner/internal/model"
	"github.com/ppiankov/quizrunner/internal/util"
	"github.com/ppiankov/quizrunner/internal/worker"
	"go.uber.org/zap"
)

const fetchAttempts = 3

// fetchSleepFunc is replaced in tests to skip backoff delays
var fetchSleepFunc = time.Sleep

// Fetcher retrieves artifacts and posts submissions for one chain
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	limiter *worker.Limiter
	cache   cache.Store
	robots  *util.RobotsChecker
	logger  *zap.Logger
}

// FetchResult contains the fetched body and metadata
type FetchResult struct {
	Body        []byte
	ContentType string
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(httpProxy, httpsProxy, noProxy)
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed quiz hosts
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		logger:    zap.NewNop(),
	}
}

// NewFetcherFromConfig builds a fetcher with its own limiter, cache and
// optional robots checker. Every chain gets a fresh one.
func NewFetcherFromConfig(cfg *model.Config, logger *zap.Logger) *Fetcher {
	f := NewFetcher(cfg.Chain.RequestTimeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.InsecureTLS, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)

	if cfg.HTTP.RateLimit > 0 {
		f.limiter = worker.NewLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)
		for host, rps := range cfg.HTTP.HostRates {
			f.limiter.SetDomainRate(host, rps, 0)
		}
	}
	if cfg.Artifacts.CacheTTL > 0 {
		f.cache = cache.NewArtifactCache(cfg.Artifacts.CacheTTL, cfg.Artifacts.CacheMaxBytes)
	}
	if cfg.HTTP.RespectRobots {
		f.robots = util.NewRobotsChecker(f.httpClient, cfg.HTTP.UserAgent)
	}
	if logger != nil {
		f.logger = logger
	}
	return f
}

// Close releases idle connections held by the fetcher
func (f *Fetcher) Close() {
	f.httpClient.CloseIdleConnections()
	if f.cache != nil {
		stats := f.cache.Stats()
		f.logger.Debug("artifact cache released",
			zap.Int64("hits", stats.Hits),
			zap.Int64("misses", stats.Misses),
			zap.Int64("bytes", stats.Bytes))
		f.cache.Purge()
	}
}

// Fetch retrieves the given URL once. Non-2xx statuses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/csv,application/json,application/pdf,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := f.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// FetchWithRetry retries transient failures (429, 5xx, connection errors)
// with exponential backoff. Other failures return immediately.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == fetchAttempts || ctx.Err() != nil {
			break
		}

		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err))
		fetchSleepFunc(backoff)
		backoff *= 2
	}

	return nil, lastErr
}

// FetchBytes retrieves an artifact, consulting the chain cache, robots.txt
// (when enabled) and the per-domain rate limit. Failures wrap
// model.ErrTransport.
func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	if f.cache != nil {
		if data, ok := f.cache.Lookup(rawURL); ok {
			f.logger.Debug("artifact cache hit", zap.String("url", rawURL))
			return data, nil
		}
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		verdict, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, model.Fail(model.ErrTransport, rawURL, err)
		}
		if !verdict.Allowed {
			return nil, model.Fail(model.ErrTransport, rawURL, errors.New("disallowed by robots.txt"))
		}
		crawlDelay = verdict.CrawlDelay
	}

	if f.limiter != nil {
		if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
			return nil, model.Fail(model.ErrTransport, rawURL, fmt.Errorf("rate limit: %w", err))
		}
	}

	result, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, model.Fail(model.ErrTransport, rawURL, err)
	}
	f.logger.Debug("artifact fetched",
		zap.String("url", rawURL),
		zap.String("content_type", result.ContentType),
		zap.Int("bytes", len(result.Body)))

	if f.cache != nil {
		if !f.cache.Store(rawURL, result.Body) {
			f.logger.Debug("artifact not cached, cache full", zap.String("url", rawURL))
		}
	}
	return result.Body, nil
}

// PostResponse is the raw response of a JSON POST
type PostResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// PostJSON posts body as JSON once. Any HTTP status is returned as a
// response; only transport errors fail, wrapping model.ErrTransport.
func (f *Fetcher) PostJSON(ctx context.Context, rawURL string, body any) (*PostResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return nil, model.Fail(model.ErrTransport, rawURL, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, model.Fail(model.ErrTransport, rawURL, fmt.Errorf("rate limit: %w", err))
		}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, model.Fail(model.ErrTransport, rawURL, fmt.Errorf("post: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := f.readBody(resp.Body)
	if err != nil {
		return nil, model.Fail(model.ErrTransport, rawURL, err)
	}

	return &PostResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// readBody reads the whole body. A body longer than maxBytes is an error
// rather than a truncated artifact.
func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBytes > 0 {
		r = io.LimitReader(r, f.maxBytes+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", f.maxBytes)
	}
	return body, nil
}

// isRetryableFetchError reports whether err is worth another attempt
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	if strings.HasPrefix(msg, "unexpected status: ") {
		status := strings.TrimPrefix(msg, "unexpected status: ")
		return strings.HasPrefix(status, "429") || strings.HasPrefix(status, "5")
	}

	return strings.HasPrefix(msg, "fetch: ")
}
