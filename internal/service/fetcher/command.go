package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/chromium-fetch/internal/config"
	"github.com/oshokin/chromium-fetch/internal/domain/platform"
	"github.com/oshokin/chromium-fetch/internal/installer"
	"github.com/oshokin/chromium-fetch/internal/logger"
	"github.com/oshokin/chromium-fetch/internal/snapshot"
)

// loggerName names every entry written by the pipeline.
const loggerName = "chromium-fetch"

// ErrInvalidOutputDirectory is returned when the output directory is relative, missing or not a directory.
var ErrInvalidOutputDirectory = errors.New("output directory must be an existing absolute path")

// Options are inputs accepted by the fetcher entry points.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// OutputDirectory receives the downloaded archive.
	OutputDirectory string
	// Platform selects the snapshot to fetch.
	Platform platform.Platform
	// InstallDirectory triggers installation when set.
	InstallDirectory string
	// Proxy overrides the proxy from the settings file.
	Proxy string
	// RootCA overrides the root CA bundle from the settings file.
	RootCA string
	// BaseURL overrides the snapshot bucket from the settings file.
	BaseURL string
	// LogLevel overrides the log level from the settings file.
	LogLevel string
}

// runner holds everything a single fetch needs.
// It is unexported, callers use Run or Latest.
type runner struct {
	cfg       *config.Config       // Settings after flag overrides.
	opts      *Options             // Parsed command line.
	client    *snapshot.Client     // Resolver and downloader.
	installer *installer.Installer // Platform specific unpacking.
	logFile   io.Closer            // Rotating log sink, nil without log_file.
}

// Run resolves, downloads and optionally installs the newest snapshot.
func Run(ctx context.Context, opts *Options) error {
	if err := ValidateOutputDirectory(opts.OutputDirectory); err != nil {
		logger.ErrorKV(logger.WithName(ctx, loggerName), "Invalid output directory",
			"path", opts.OutputDirectory, "error", err)

		return err
	}

	r, err := newRunner(opts)
	if err != nil {
		logger.ErrorKV(logger.WithName(ctx, loggerName), "Unable to prepare fetch", "error", err)
		return err
	}

	defer r.cleanup()

	// Named after the log file sink is attached so that it receives the entries.
	ctx = logger.WithName(ctx, loggerName)

	if err = r.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Fetch failed", "error", err)
		return err
	}

	return nil
}

// Latest resolves the newest build identifier without downloading anything.
func Latest(ctx context.Context, opts *Options) (string, error) {
	r, err := newRunner(opts)
	if err != nil {
		logger.ErrorKV(logger.WithName(ctx, loggerName), "Unable to prepare lookup", "error", err)
		return "", err
	}

	defer r.cleanup()

	ctx = logger.WithName(ctx, loggerName)

	buildID, err := r.client.LastChange(ctx, opts.Platform)
	if err != nil {
		logger.ErrorKV(ctx, "Lookup failed", "error", err)
		return "", err
	}

	return buildID, nil
}

// ValidateOutputDirectory accepts only absolute paths of existing directories.
func ValidateOutputDirectory(dir string) error {
	if dir == "" || !filepath.IsAbs(dir) {
		return fmt.Errorf("%q: %w", dir, ErrInvalidOutputDirectory)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", dir, ErrInvalidOutputDirectory, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", dir, ErrInvalidOutputDirectory)
	}

	return nil
}

// newRunner loads settings, applies command line overrides, configures
// logging and builds the snapshot client.
func newRunner(opts *Options) (*runner, error) {
	if !opts.Platform.IsValid() {
		return nil, fmt.Errorf("%s: %w", opts.Platform, platform.ErrUnknownPlatform)
	}

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(cfg, opts)

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	client, err := snapshot.New(
		snapshot.WithBaseURL(cfg.BaseURL),
		snapshot.WithProxy(cfg.Proxy),
		snapshot.WithRootCA(cfg.RootCA),
		snapshot.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create snapshot client: %w", err)
	}

	r := &runner{
		cfg:       cfg,
		opts:      opts,
		client:    client,
		installer: installer.New(),
	}

	r.configureLogging()

	return r, nil
}

// applyOverrides copies non-empty command line values over the settings file.
func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	if opts.Proxy != "" {
		cfg.Proxy = opts.Proxy
	}

	if opts.RootCA != "" {
		cfg.RootCA = opts.RootCA
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
}

// configureLogging applies the log level and attaches the optional file sink.
func (r *runner) configureLogging() {
	if level, ok := logger.ParseLogLevel(r.cfg.LogLevel); ok && r.cfg.LogLevel != "" {
		logger.SetLevel(level)
	}

	if r.cfg.LogFile == "" {
		return
	}

	l, closer := logger.NewWithFile(nil, r.cfg.LogFile)
	logger.SetLogger(l)

	r.logFile = closer
}

// cleanup flushes and detaches the log file sink.
func (r *runner) cleanup() {
	if r.logFile == nil {
		return
	}

	_ = logger.Logger().Sync()
	_ = r.logFile.Close()

	logger.SetLogger(logger.New(nil))

	r.logFile = nil
}

// run performs the resolve, download and install steps in order.
func (r *runner) run(ctx context.Context) error {
	p := r.opts.Platform

	buildID, err := r.client.LastChange(ctx, p)
	if err != nil {
		return err
	}

	archive, err := r.client.Download(ctx, p, buildID, r.opts.OutputDirectory)
	if err != nil {
		return err
	}

	if r.opts.InstallDirectory == "" {
		logger.InfoKV(ctx, "Snapshot downloaded", "path", archive.Path, "version", archive.Version)
		return nil
	}

	if err = r.installer.Install(ctx, p, archive.Path, r.opts.InstallDirectory); err != nil {
		// Install failures do not change the exit status.
		logger.ErrorKV(ctx, "Installation failed", "archive", archive.Path, "error", err)
		return nil
	}

	logger.InfoKV(ctx, "Snapshot processed", "path", archive.Path, "version", archive.Version)

	return nil
}
