package snapshot

import (
	"net/http"
	"time"
)

// Option configures client behaviour.
type Option func(*Client)

// WithBaseURL points the client at another bucket or mirror.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.rawBaseURL = baseURL
		}
	}
}

// WithProxy routes http and https requests through proxyURL.
// Without it the proxy is taken from the environment.
func WithProxy(proxyURL string) Option {
	return func(c *Client) {
		c.proxy = proxyURL
	}
}

// WithRootCA verifies TLS peers against the PEM bundle at path only.
func WithRootCA(path string) Option {
	return func(c *Client) {
		c.rootCA = path
	}
}

// WithTimeout bounds each request. Zero disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the transport built from proxy, root CA and timeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}
