package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/dustin/go-humanize"

	"github.com/oshokin/chromium-fetch/internal/config"
	"github.com/oshokin/chromium-fetch/internal/domain/platform"
	"github.com/oshokin/chromium-fetch/internal/logger"
	"github.com/oshokin/chromium-fetch/internal/version"
)

const (
	// LastChangeFilename is the marker holding the newest build of a platform.
	LastChangeFilename = "LAST_CHANGE"

	// ArchiveFileMode is applied to downloaded archives.
	ArchiveFileMode os.FileMode = 0o644

	// maxVersionSize caps how much of the LAST_CHANGE body is read.
	maxVersionSize = 1 << 10
)

var (
	// ErrBadHTTPStatus is returned for any response other than 200 OK.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrInvalidVersion is returned when LAST_CHANGE holds no usable build identifier.
	ErrInvalidVersion = errors.New("invalid build identifier")

	// errInvalidBaseURL is returned when the bucket URL lacks a scheme or host.
	errInvalidBaseURL = errors.New("base URL must be an absolute URL")
	// errOutputDirectoryRequired is returned when Download gets no directory.
	errOutputDirectoryRequired = errors.New("output directory must be provided")
)

// Client resolves and downloads Chromium snapshots.
type Client struct {
	// httpClient performs every request, with proxy and TLS settings applied.
	httpClient *http.Client
	// baseURL is the parsed bucket root.
	baseURL *url.URL

	rawBaseURL string
	proxy      string
	rootCA     string
	timeout    time.Duration
	userAgent  string
}

// Archive describes a downloaded snapshot.
type Archive struct {
	// Platform the archive was built for.
	Platform platform.Platform
	// Version is the build identifier taken from LAST_CHANGE.
	Version string
	// Path is the absolute location of the written file.
	Path string
	// Size is the number of bytes written.
	Size int64
}

// New builds a client. It fails if the base URL, proxy or root CA are unusable,
// so configuration errors surface before any request is made.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		rawBaseURL: config.DefaultBaseURL,
		userAgent:  version.UserAgent(),
	}

	for _, opt := range opts {
		opt(c)
	}

	baseURL, err := url.Parse(c.rawBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("%q: %w", c.rawBaseURL, errInvalidBaseURL)
	}

	c.baseURL = baseURL

	if c.httpClient == nil {
		c.httpClient, err = newHTTPClient(c.proxy, c.rootCA, c.timeout)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

// LastChangeURL returns <base>/<segment>/LAST_CHANGE.
func (c *Client) LastChangeURL(p platform.Platform) string {
	return c.baseURL.JoinPath(p.Segment(), LastChangeFilename).String()
}

// ArchiveURL returns <base>/<segment>/<version>/<package>.
func (c *Client) ArchiveURL(p platform.Platform, buildID string) string {
	return c.baseURL.JoinPath(p.Segment(), buildID, p.PackageName()).String()
}

// ArchiveFilename returns the local name <segment>_<version>_<package>.
func ArchiveFilename(p platform.Platform, buildID string) string {
	return p.Segment() + "_" + buildID + "_" + p.PackageName()
}

// LastChange fetches the newest build identifier of a platform.
func (c *Client) LastChange(ctx context.Context, p platform.Platform) (string, error) {
	if !p.IsValid() {
		return "", fmt.Errorf("%s: %w", p, platform.ErrUnknownPlatform)
	}

	target := c.LastChangeURL(p)
	logger.DebugKV(ctx, "Fetching last change", "url", target)

	response, err := c.get(ctx, target)
	if err != nil {
		return "", fmt.Errorf("fetch last change: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxVersionSize))
	if err != nil {
		return "", fmt.Errorf("read last change: %w", err)
	}

	buildID := strings.TrimSpace(string(body))
	if buildID == "" || strings.ContainsAny(buildID, "/\\ \t\r\n") || buildID == "." || buildID == ".." {
		return "", fmt.Errorf("%q: %w", buildID, ErrInvalidVersion)
	}

	logger.InfoKV(ctx, "Resolved last change", "platform", p.String(), "version", buildID)

	return buildID, nil
}

// Download fetches the archive of a build into outputDir and returns its description.
// An existing file with the same name is replaced atomically.
func (c *Client) Download(ctx context.Context, p platform.Platform, buildID, outputDir string) (*Archive, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%s: %w", p, platform.ErrUnknownPlatform)
	}

	if outputDir == "" {
		return nil, errOutputDirectoryRequired
	}

	target := c.ArchiveURL(p, buildID)
	logger.InfoKV(ctx, "Downloading archive", "url", target)

	response, err := c.get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	outputPath := filepath.Join(outputDir, ArchiveFilename(p, buildID))
	logger.InfoKV(ctx, "Writing output file", "path", outputPath)

	written, err := writeArchive(response.Body, outputPath)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", outputPath, err)
	}

	logger.InfoKV(ctx, "Archive written", "path", outputPath, "bytes", written, "size", humanize.Bytes(uint64(written)))

	return &Archive{
		Platform: p,
		Version:  buildID,
		Path:     outputPath,
		Size:     written,
	}, nil
}

// get issues a GET and rejects everything but 200 OK.
func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		logger.ErrorKV(ctx, "Request failed", "url", target, "status_code", response.StatusCode)

		return nil, fmt.Errorf("%s, %s: %w", target, response.Status, ErrBadHTTPStatus)
	}

	return response, nil
}

// writeArchive hands body to go-update, which buffers it in memory, writes it
// to a sibling temporary file and renames that over the target.
func writeArchive(body io.Reader, path string) (int64, error) {
	// go-update renames the previous file away, so the target has to exist.
	created := false

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY, ArchiveFileMode)
		if createErr != nil {
			return 0, createErr
		}

		_ = placeholder.Close()
		created = true
	} else if err != nil {
		return 0, err
	}

	counter := &countingReader{reader: body}

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: ArchiveFileMode,
	}

	if err := goupdate.Apply(counter, options); err != nil {
		if created {
			_ = os.Remove(path)
		}

		return counter.count, err
	}

	return counter.count, nil
}

// countingReader counts the bytes read through it.
type countingReader struct {
	reader io.Reader
	count  int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.count += int64(n)

	return n, err
}
