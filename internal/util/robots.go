package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsVerdict is the robots.txt decision for one URL
type RobotsVerdict struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// RobotsChecker decides whether artifact URLs may be fetched according to
// their origin's robots.txt. Each origin's file is read at most once per
// checker, and an unreachable file is remembered as allow-all.
type RobotsChecker struct {
	client *http.Client
	ua     string
	agent  string

	mu      sync.Mutex
	origins map[string]*robotstxt.Group
}

// NewRobotsChecker creates a checker that reads robots.txt with client
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		client:  client,
		ua:      userAgent,
		agent:   NormalizeUserAgent(userAgent),
		origins: make(map[string]*robotstxt.Group),
	}
}

// Check returns the verdict for rawURL. Only a malformed URL is an error.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (RobotsVerdict, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return RobotsVerdict{}, fmt.Errorf("parse URL %q: not absolute", rawURL)
	}

	group := r.group(ctx, u.Scheme+"://"+u.Host)
	if group == nil {
		return RobotsVerdict{Allowed: true}, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return RobotsVerdict{Allowed: group.Test(path), CrawlDelay: group.CrawlDelay}, nil
}

// group returns the rule group for this agent at origin, nil meaning no rules
func (r *RobotsChecker) group(ctx context.Context, origin string) *robotstxt.Group {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.origins[origin]; ok {
		return g
	}
	g := r.load(ctx, origin)
	r.origins[origin] = g
	return g
}

func (r *RobotsChecker) load(ctx context.Context, origin string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.ua)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data.FindGroup(r.agent)
}

// NormalizeUserAgent reduces a User-Agent header to the product token
// robots.txt groups are matched against
func NormalizeUserAgent(ua string) string {
	product, _, _ := strings.Cut(strings.TrimSpace(ua), " ")
	name, _, _ := strings.Cut(product, "/")
	return name
}
