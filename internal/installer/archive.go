package installer

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// defaultDirMode is used for directories created during extraction and copy.
	defaultDirMode os.FileMode = 0o755
	// defaultFileMode is used for archive entries that carry no permissions.
	defaultFileMode os.FileMode = 0o644
)

// errUnsafePath is returned for entries or links that would land outside the destination.
var errUnsafePath = errors.New("path escapes destination directory")

// extractZip unpacks every entry of the archive at src below dest.
func extractZip(src, dest string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, entry := range reader.File {
		if err = extractEntry(entry, dest); err != nil {
			return fmt.Errorf("extract %s: %w", entry.Name, err)
		}
	}

	return nil
}

// extractEntry writes a single zip entry below dest.
func extractEntry(entry *zip.File, dest string) error {
	target, err := safeJoin(dest, entry.Name)
	if err != nil {
		return err
	}

	if err = requireNoLinkedParent(dest, target); err != nil {
		return err
	}

	mode := entry.Mode()

	switch {
	case mode.IsDir():
		return os.MkdirAll(target, defaultDirMode)
	case mode&os.ModeSymlink != 0:
		return extractSymlink(entry, dest, target)
	}

	if err = os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return err
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = defaultFileMode
	}

	// Never write through a link left by an earlier entry.
	if info, statErr := os.Lstat(target); statErr == nil && info.Mode()&os.ModeSymlink != 0 {
		if err = os.Remove(target); err != nil {
			return err
		}
	}

	source, err := entry.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = source.Close()
	}()

	return writeFile(target, source, perm)
}

// extractSymlink recreates a link stored in the archive. Chromium.app relies on them.
func extractSymlink(entry *zip.File, dest, target string) error {
	source, err := entry.Open()
	if err != nil {
		return err
	}

	linkTarget, err := io.ReadAll(source)
	_ = source.Close()

	if err != nil {
		return err
	}

	link := string(linkTarget)
	if filepath.IsAbs(link) {
		return fmt.Errorf("%s -> %s: %w", entry.Name, link, errUnsafePath)
	}

	if _, err = safeJoin(dest, filepath.Join(filepath.Dir(filepath.FromSlash(entry.Name)), link)); err != nil {
		return fmt.Errorf("%s -> %s: %w", entry.Name, link, err)
	}

	if err = os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return err
	}

	_ = os.Remove(target)

	return os.Symlink(link, target)
}

// safeJoin joins name below dest and rejects results outside of dest.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))

	rel, err := filepath.Rel(dest, target)
	if err != nil {
		return "", err
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%s: %w", name, errUnsafePath)
	}

	return target, nil
}

// requireNoLinkedParent rejects targets whose parent directories below dest
// include a symbolic link. Links chained through each other can point
// outside dest even when every link target looks local on its own.
func requireNoLinkedParent(dest, target string) error {
	rel, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil || rel == "." {
		return err
	}

	current := dest

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)

		info, statErr := os.Lstat(current)
		if errors.Is(statErr, fs.ErrNotExist) {
			return nil
		}

		if statErr != nil {
			return statErr
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%s goes through link %s: %w", target, current, errUnsafePath)
		}
	}

	return nil
}

// writeFile copies source into a new file at target.
func writeFile(target string, source io.Reader, perm os.FileMode) error {
	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	//nolint:gosec // Archives come from the configured snapshot bucket.
	if _, err = io.Copy(out, source); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
