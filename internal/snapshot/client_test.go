package snapshot

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/chromium-fetch/internal/config"
	"github.com/oshokin/chromium-fetch/internal/domain/platform"
	"github.com/oshokin/chromium-fetch/internal/version"
)

// TestURLs pins the bucket layout for every platform.
func TestURLs(t *testing.T) {
	t.Parallel()

	c, err := New()
	require.NoError(t, err)

	base := config.DefaultBaseURL

	require.Equal(t, base+"/Mac/LAST_CHANGE", c.LastChangeURL(platform.Mac))
	require.Equal(t, base+"/Linux/LAST_CHANGE", c.LastChangeURL(platform.Linux))
	require.Equal(t, base+"/Win_x64/LAST_CHANGE", c.LastChangeURL(platform.Win))

	require.Equal(t, base+"/Mac/123456/chrome-mac.zip", c.ArchiveURL(platform.Mac, "123456"))
	require.Equal(t, base+"/Linux/123456/chrome-linux.zip", c.ArchiveURL(platform.Linux, "123456"))
	require.Equal(t, base+"/Win_x64/123456/chrome-win.zip", c.ArchiveURL(platform.Win, "123456"))

	require.Equal(t, "Win_x64_123456_chrome-win.zip", ArchiveFilename(platform.Win, "123456"))

	// A trailing slash on the base does not double up.
	c, err = New(WithBaseURL("https://mirror.local/snapshots/"))
	require.NoError(t, err)
	require.Equal(t, "https://mirror.local/snapshots/Mac/LAST_CHANGE", c.LastChangeURL(platform.Mac))
}

// TestNew_RejectsBadSettings verifies configuration errors surface before any request.
func TestNew_RejectsBadSettings(t *testing.T) {
	t.Parallel()

	_, err := New(WithBaseURL("mirror.local/snapshots"))
	require.ErrorIs(t, err, errInvalidBaseURL)

	_, err = New(WithProxy("proxy.local"))
	require.ErrorIs(t, err, errInvalidProxy)

	_, err = New(WithRootCA(filepath.Join(t.TempDir(), "missing.pem")))
	require.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))

	_, err = New(WithRootCA(garbage))
	require.ErrorIs(t, err, errNoCertificates)
}

// TestLastChangeAndDownload resolves the build and writes the archive with the expected name.
func TestLastChangeAndDownload(t *testing.T) {
	t.Parallel()

	archiveBody := []byte("PK-fake-archive")

	var (
		userAgent atomic.Value
		served    atomic.Value
	)

	served.Store(archiveBody)

	mux := http.NewServeMux()
	mux.HandleFunc("/Win_x64/LAST_CHANGE", func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.UserAgent())
		_, _ = w.Write([]byte("123456\n"))
	})
	mux.HandleFunc("/Win_x64/123456/chrome-win.zip", func(w http.ResponseWriter, _ *http.Request) {
		body, _ := served.Load().([]byte)
		_, _ = w.Write(body)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	c, err := New(WithBaseURL(ts.URL))
	require.NoError(t, err)

	ctx := context.Background()

	buildID, err := c.LastChange(ctx, platform.Win)
	require.NoError(t, err)
	require.Equal(t, "123456", buildID)
	require.Equal(t, version.UserAgent(), userAgent.Load())

	dir := t.TempDir()

	archive, err := c.Download(ctx, platform.Win, buildID, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Win_x64_123456_chrome-win.zip"), archive.Path)
	require.Equal(t, int64(len(archiveBody)), archive.Size)
	require.Equal(t, "123456", archive.Version)
	require.Equal(t, platform.Win, archive.Platform)

	contents, err := os.ReadFile(archive.Path)
	require.NoError(t, err)
	require.Equal(t, archiveBody, contents)

	// A second download replaces the file and leaves no temporary files behind.
	served.Store([]byte("PK-newer"))

	_, err = c.Download(ctx, platform.Win, buildID, dir)
	require.NoError(t, err)

	contents, err = os.ReadFile(archive.Path)
	require.NoError(t, err)
	require.Equal(t, []byte("PK-newer"), contents)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestBadStatus ensures non-200 responses are reported with ErrBadHTTPStatus.
func TestBadStatus(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	c, err := New(WithBaseURL(ts.URL))
	require.NoError(t, err)

	_, err = c.LastChange(context.Background(), platform.Mac)
	require.ErrorIs(t, err, ErrBadHTTPStatus)
	require.Contains(t, err.Error(), "404")

	dir := t.TempDir()

	_, err = c.Download(context.Background(), platform.Mac, "1", dir)
	require.ErrorIs(t, err, ErrBadHTTPStatus)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestLastChange_InvalidBody rejects empty or path-like build identifiers.
func TestLastChange_InvalidBody(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "  \n", "../../etc", "12 34"} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		c, err := New(WithBaseURL(ts.URL))
		require.NoError(t, err)

		_, err = c.LastChange(context.Background(), platform.Linux)
		require.ErrorIs(t, err, ErrInvalidVersion, body)

		ts.Close()
	}
}

// TestUnknownPlatform makes no request for invalid platforms.
func TestUnknownPlatform(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()

	c, err := New(WithBaseURL(ts.URL))
	require.NoError(t, err)

	_, err = c.LastChange(context.Background(), platform.Unknown)
	require.ErrorIs(t, err, platform.ErrUnknownPlatform)

	_, err = c.Download(context.Background(), platform.Unknown, "1", t.TempDir())
	require.ErrorIs(t, err, platform.ErrUnknownPlatform)
	require.Zero(t, hits.Load())
}

// TestRootCA trusts a TLS server only when its certificate is supplied as root CA.
func TestRootCA(t *testing.T) {
	t.Parallel()

	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("654321"))
	}))
	defer ts.Close()

	// System roots do not know the test certificate.
	c, err := New(WithBaseURL(ts.URL))
	require.NoError(t, err)

	_, err = c.LastChange(context.Background(), platform.Mac)
	require.Error(t, err)

	rootCA := filepath.Join(t.TempDir(), "root_ca.pem")
	block := &pem.Block{Type: "CERTIFICATE", Bytes: ts.Certificate().Raw}
	require.NoError(t, os.WriteFile(rootCA, pem.EncodeToMemory(block), 0o600))

	c, err = New(WithBaseURL(ts.URL), WithRootCA(rootCA))
	require.NoError(t, err)

	buildID, err := c.LastChange(context.Background(), platform.Mac)
	require.NoError(t, err)
	require.Equal(t, "654321", buildID)
}

// TestProxy routes requests through the configured proxy.
func TestProxy(t *testing.T) {
	t.Parallel()

	var proxiedHost atomic.Value

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxiedHost.Store(r.URL.Host + r.URL.Path)
		_, _ = w.Write([]byte("777"))
	}))
	defer proxy.Close()

	c, err := New(WithBaseURL("http://snapshots.invalid/bucket"), WithProxy(proxy.URL))
	require.NoError(t, err)

	buildID, err := c.LastChange(context.Background(), platform.Linux)
	require.NoError(t, err)
	require.Equal(t, "777", buildID)
	require.Equal(t, "snapshots.invalid/bucket/Linux/LAST_CHANGE", proxiedHost.Load())
}
