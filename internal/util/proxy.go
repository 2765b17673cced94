// Package util holds small helpers shared across packages: agent proxy
// selection and Python-style literal decoding.
package util

import (
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
)

// ProxyFunc picks the proxy for an outgoing agent request
type ProxyFunc func(*http.Request) (*url.URL, error)

// NewProxyFunc builds the proxy selector for agent HTTP clients. Explicit
// proxies win per scheme; anything left unset falls back to
// HTTP_PROXY/HTTPS_PROXY/NO_PROXY from the environment. Proxy URLs are
// parsed once, up front.
func NewProxyFunc(httpProxy, httpsProxy string) (ProxyFunc, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment, nil
	}

	httpURL, err := parseProxy(httpProxy)
	if err != nil {
		return nil, errors.Wrap(err, "http proxy")
	}
	httpsURL, err := parseProxy(httpsProxy)
	if err != nil {
		return nil, errors.Wrap(err, "https proxy")
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsURL != nil {
			return httpsURL, nil
		}
		if httpURL != nil {
			return httpURL, nil
		}
		return http.ProxyFromEnvironment(req)
	}, nil
}

func parseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("proxy %q must be an absolute URL", raw)
	}
	return u, nil
}

// NewHTTPClient returns an HTTP client with the given timeout and proxies
func NewHTTPClient(timeoutSeconds int, defaultTimeoutSeconds int, httpProxy, httpsProxy string) (*http.Client, error) {
	proxy, err := NewProxyFunc(httpProxy, httpsProxy)
	if err != nil {
		return nil, err
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}
	return &http.Client{
		Timeout:   time.Duration(timeoutSeconds) * time.Second,
		Transport: &http.Transport{Proxy: proxy},
	}, nil
}
