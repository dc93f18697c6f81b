package integration

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/chromium-fetch/internal/config"
	"github.com/oshokin/chromium-fetch/internal/logger"
)

// snapshotBucket emulates the public bucket and records every requested path.
type snapshotBucket struct {
	mu       sync.Mutex
	requests []string
	files    map[string][]byte
	status   map[string]int
}

// ServeHTTP serves registered files and 404 for the rest.
func (b *snapshotBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, r.URL.Path)
	body, found := b.files[r.URL.Path]
	status, overridden := b.status[r.URL.Path]
	b.mu.Unlock()

	switch {
	case overridden:
		w.WriteHeader(status)
	case !found:
		http.NotFound(w, r)
	default:
		_, _ = w.Write(body)
	}
}

// Requests returns a copy of the requested paths in order.
func (b *snapshotBucket) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.requests...)
}

// startBucket starts a TLS server for files and returns it with a settings file
// trusting its certificate through root_ca.
func startBucket(t *testing.T, files map[string][]byte, status map[string]int) (*snapshotBucket, string) {
	t.Helper()

	bucket := &snapshotBucket{files: files, status: status}

	server := httptest.NewTLSServer(bucket)
	t.Cleanup(server.Close)

	dir := t.TempDir()

	// The test certificate is only trusted through the settings file.
	rootCA := filepath.Join(dir, "root_ca.pem")
	block := &pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw}
	require.NoError(t, os.WriteFile(rootCA, pem.EncodeToMemory(block), 0o600))

	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	err := config.Save(cfgPath, &config.Config{
		BaseURL: server.URL + "/chromium-browser-snapshots",
		RootCA:  rootCA,
	})
	require.NoError(t, err)

	return bucket, cfgPath
}

// zipArchive builds a zip in memory from name-body pairs.
func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)

	for name, body := range files {
		w, err := writer.Create(name)
		require.NoError(t, err)

		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return buf.Bytes()
}

// observedContext returns a context whose logger records entries.
func observedContext() (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)

	return logger.ToContext(context.Background(), zap.New(core).Sugar()), logs
}

// baseURLFromSettings reads base_url back from a settings file.
func baseURLFromSettings(t *testing.T, path string) string {
	t.Helper()

	cfg, err := config.Load(path)
	require.NoError(t, err)

	return cfg.BaseURL
}
