package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc selects a proxy per request. Explicit values override the
// HTTP_PROXY, HTTPS_PROXY and NO_PROXY environment variables field by field;
// noProxy uses the usual comma-separated host and domain-suffix syntax.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	cfg := httpproxy.FromEnvironment()
	if httpProxy != "" {
		cfg.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTPSProxy = httpsProxy
	}
	if noProxy != "" {
		cfg.NoProxy = noProxy
	}

	proxyForURL := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxyForURL(req.URL)
	}
}
