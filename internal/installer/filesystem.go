package installer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// errNotDirectory is returned when a path that must be a directory is not one.
	errNotDirectory = errors.New("not a directory")
	// errRefuseRoot is returned instead of wiping a filesystem root.
	errRefuseRoot = errors.New("refusing to clean a filesystem root")
)

// cleanDirectory deletes dir with everything below it and creates it again.
// The parent must already exist.
func cleanDirectory(dir string) error {
	if filepath.Dir(dir) == dir {
		return fmt.Errorf("%s: %w", dir, errRefuseRoot)
	}

	info, err := os.Lstat(dir)

	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%s: %w", dir, errNotDirectory)
	case err == nil:
		if err = os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	if err = os.Mkdir(dir, defaultDirMode); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("make sure parent directories of %s exist: %w", dir, err)
		}

		return err
	}

	return nil
}

// requireDirectory fails unless dir exists and is a directory.
func requireDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, errNotDirectory)
	}

	return nil
}

// copyTree recursively copies the contents of src into dst, keeping file
// modes and symbolic links. Existing files in dst are overwritten.
func copyTree(src, dst string) error {
	if err := requireDirectory(src); err != nil {
		return fmt.Errorf("cannot copy tree %s: %w", src, err)
	}

	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		info, err := entry.Info()
		if err != nil {
			return err
		}

		switch {
		case entry.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&fs.ModeSymlink != 0:
			return copySymlink(path, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copySymlink(src, dst string) error {
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}

	_ = os.Remove(dst)

	return os.Symlink(link, dst)
}

func copyFile(src, dst string, perm os.FileMode) error {
	source, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = source.Close()
	}()

	return writeFile(dst, source, perm)
}
