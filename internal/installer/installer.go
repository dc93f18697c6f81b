package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/chromium-fetch/internal/domain/platform"
	"github.com/oshokin/chromium-fetch/internal/logger"
)

var (
	// ErrArchiveNotFound is returned when the archive to install does not exist.
	ErrArchiveNotFound = errors.New("archive does not exist")
	// ErrInstallDirectoryRequired is returned for a Windows install without a target.
	ErrInstallDirectoryRequired = errors.New("install directory must be provided")

	// errArchiveInsideInstallDirectory guards against wiping the archive together with the install directory.
	errArchiveInsideInstallDirectory = errors.New("archive is located inside the install directory")
	// errInstallInsideExtractionDirectory guards against removing the fresh install with the scratch directory.
	errInstallInsideExtractionDirectory = errors.New("install directory is located inside the extraction directory")
)

// Installer unpacks archives according to their platform.
type Installer struct {
	// processes lists running processes before the install directory is replaced.
	processes ProcessLister
}

// Option configures installer behaviour.
type Option func(*Installer)

// WithProcessLister replaces the process listing used to detect a running browser.
func WithProcessLister(list ProcessLister) Option {
	return func(i *Installer) {
		if list != nil {
			i.processes = list
		}
	}
}

// New creates an installer.
func New(opts ...Option) *Installer {
	i := &Installer{
		processes: ps.Processes,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// ExtractionDirectory returns the scratch directory used for an archive:
// the archive path without its extension.
func ExtractionDirectory(archivePath string) string {
	return strings.TrimSuffix(archivePath, filepath.Ext(archivePath))
}

// Install unpacks the archive for the given platform. installDir is only used on Windows.
// Linux and unsupported platforms are reported in the log and leave the disk untouched.
func (i *Installer) Install(ctx context.Context, p platform.Platform, archivePath, installDir string) error {
	ctx = logger.WithKV(ctx, "platform", p.String())

	switch p {
	case platform.Win:
		return i.installWindows(ctx, p, archivePath, installDir)
	case platform.Mac:
		return i.installMac(ctx, archivePath)
	case platform.Linux:
		logger.Warn(ctx, "Installing Chromium on Linux is not supported, use your package manager")
		return nil
	case platform.Unknown:
		fallthrough
	default:
		logger.Warn(ctx, "Installation is not implemented for this platform")
		return nil
	}
}

// resolveArchive returns the absolute archive path and its extraction directory.
func resolveArchive(archivePath string) (string, string, error) {
	archivePath, err := filepath.Abs(archivePath)
	if err != nil {
		return "", "", err
	}

	info, err := os.Stat(archivePath)
	if err != nil || !info.Mode().IsRegular() {
		return "", "", fmt.Errorf("%s: %w", archivePath, ErrArchiveNotFound)
	}

	return archivePath, ExtractionDirectory(archivePath), nil
}

// isWithin reports whether path equals dir or lies below it.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// installWindows replaces the install directory with the package folder of the archive.
func (i *Installer) installWindows(ctx context.Context, p platform.Platform, archivePath, installDir string) error {
	archivePath, extractionDir, err := resolveArchive(archivePath)
	if err != nil {
		return err
	}

	if installDir == "" {
		return ErrInstallDirectoryRequired
	}

	installDir, err = filepath.Abs(installDir)
	if err != nil {
		return err
	}

	if isWithin(installDir, archivePath) {
		return fmt.Errorf("%s in %s: %w", archivePath, installDir, errArchiveInsideInstallDirectory)
	}

	if isWithin(extractionDir, installDir) {
		return fmt.Errorf("%s in %s: %w", installDir, extractionDir, errInstallInsideExtractionDirectory)
	}

	i.warnIfBrowserRunning(ctx)

	if err = cleanDirectory(extractionDir); err != nil {
		return fmt.Errorf("prepare extraction directory: %w", err)
	}

	// Removed whatever happens from here on.
	defer func() {
		logger.InfoKV(ctx, "Cleaning up intermediate extraction directory", "path", extractionDir)

		if removeErr := os.RemoveAll(extractionDir); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove extraction directory", "path", extractionDir, "error", removeErr)
		}
	}()

	if err = cleanDirectory(installDir); err != nil {
		return fmt.Errorf("prepare installation directory: %w", err)
	}

	if err = requireDirectory(extractionDir); err != nil {
		return fmt.Errorf("extraction directory: %w", err)
	}

	if err = requireDirectory(installDir); err != nil {
		return fmt.Errorf("installation directory: %w", err)
	}

	logger.InfoKV(ctx, "Extracting to intermediate directory", "path", extractionDir)

	if err = extractZip(archivePath, extractionDir); err != nil {
		return err
	}

	source := filepath.Join(extractionDir, p.PackageBaseName())
	logger.InfoKV(ctx, "Recursively copying extracted files", "from", source, "to", installDir)

	if err = copyTree(source, installDir); err != nil {
		return fmt.Errorf("copy extracted sources from %s to %s: %w", source, installDir, err)
	}

	logger.InfoKV(ctx, "Chromium installed", "path", installDir)

	return nil
}

// installMac extracts the archive and leaves the bundle in the extraction directory.
func (i *Installer) installMac(ctx context.Context, archivePath string) error {
	archivePath, extractionDir, err := resolveArchive(archivePath)
	if err != nil {
		return err
	}

	if err = cleanDirectory(extractionDir); err != nil {
		return fmt.Errorf("prepare extraction directory: %w", err)
	}

	if err = requireDirectory(extractionDir); err != nil {
		return fmt.Errorf("extraction directory: %w", err)
	}

	logger.InfoKV(ctx, "Extracting to intermediate directory", "path", extractionDir)

	if err = extractZip(archivePath, extractionDir); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Chromium extracted", "path", extractionDir)

	return nil
}
