package util

import (
	"net/http"
	"net/url"
	"testing"
)

func proxyFor(t *testing.T, fn func(*http.Request) (*url.URL, error), rawURL string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	u, err := fn(req)
	if err != nil {
		t.Fatalf("proxy func: %v", err)
	}
	if u == nil {
		return ""
	}
	return u.String()
}

func TestNewProxyFunc(t *testing.T) {
	fn := NewProxyFunc("http://proxy:8080", "http://secure-proxy:8443", "internal.example, .corp")

	if got := proxyFor(t, fn, "http://q.example/data.csv"); got != "http://proxy:8080" {
		t.Errorf("http proxy = %q", got)
	}
	if got := proxyFor(t, fn, "https://q.example/data.csv"); got != "http://secure-proxy:8443" {
		t.Errorf("https proxy = %q", got)
	}
	if got := proxyFor(t, fn, "https://internal.example/submit"); got != "" {
		t.Errorf("expected direct connection for no_proxy host, got %q", got)
	}
	if got := proxyFor(t, fn, "https://api.corp/submit"); got != "" {
		t.Errorf("expected direct connection for no_proxy suffix, got %q", got)
	}
}

func TestNewProxyFunc_EnvironmentFallback(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://env-proxy:3128")
	t.Setenv("HTTPS_PROXY", "")
	t.Setenv("NO_PROXY", "")

	fn := NewProxyFunc("", "http://secure-proxy:8443", "")

	if got := proxyFor(t, fn, "http://q.example/quiz/1"); got != "http://env-proxy:3128" {
		t.Errorf("expected environment proxy for http, got %q", got)
	}
	if got := proxyFor(t, fn, "https://q.example/quiz/1"); got != "http://secure-proxy:8443" {
		t.Errorf("expected explicit proxy for https, got %q", got)
	}
}

func TestNewProxyFunc_NoneConfigured(t *testing.T) {
	for _, key := range []string{"HTTP_PROXY", "HTTPS_PROXY", "NO_PROXY", "http_proxy", "https_proxy", "no_proxy"} {
		t.Setenv(key, "")
	}

	if got := proxyFor(t, NewProxyFunc("", "", ""), "https://q.example/data.csv"); got != "" {
		t.Errorf("expected direct connection, got %q", got)
	}
}
