package snapshot

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

var (
	// errNoCertificates is returned when a root CA file holds no PEM certificates.
	errNoCertificates = errors.New("no PEM certificates found")
	// errInvalidProxy is returned when the proxy URL lacks a scheme or host.
	errInvalidProxy = errors.New("proxy must be an absolute URL")
)

// newHTTPClient builds the client used for both bucket requests.
func newHTTPClient(proxy, rootCA string, timeout time.Duration) (*http.Client, error) {
	//nolint:forcetypeassert // http.DefaultTransport is always an *http.Transport.
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy: %w", err)
		}

		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("%q: %w", proxy, errInvalidProxy)
		}

		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if rootCA != "" {
		pool, err := loadRootCAs(rootCA)
		if err != nil {
			return nil, err
		}

		transport.TLSClientConfig = &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// loadRootCAs reads a PEM bundle into a fresh pool that replaces the system roots.
func loadRootCAs(path string) (*x509.CertPool, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read root CA: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(contents) {
		return nil, fmt.Errorf("root CA %s: %w", path, errNoCertificates)
	}

	return pool, nil
}
