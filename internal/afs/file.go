package afs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/util"
)

type StatCapable interface {
	Stat() (os.FileInfo, error)
}

type SyncCapable interface {
	Sync() error
}

// CleanPath returns the canonical form of a source path: cleaned, slash-separated and without
// leading slash. Two paths naming the same file have the same canonical form.
func CleanPath(path string) string {
	path = filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "."
	}
	return path
}

// ResolveInclude returns the canonical path of a file included by includer. Include paths are relative
// to the root of the filesystem (the working directory in the CLI), not to the including file.
func ResolveInclude(includer, path string) string {
	return CleanPath(path)
}

// Read reads the whole content of a source file.
func Read(fls Filesystem, path string) ([]byte, error) {
	content, err := util.ReadFile(fls, CleanPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return content, nil
}

// WriteFile creates or truncates a file and writes data to it, missing parent directories are created.
func WriteFile(fls Filesystem, path string, data []byte) error {
	path = CleanPath(path)

	if dir := filepath.Dir(path); dir != "." {
		if err := fls.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create the directory of %s: %w", path, err)
		}
	}

	f, err := fls.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	_, err = f.Write(data)

	if err == nil {
		if capable, ok := f.(SyncCapable); ok {
			err = capable.Sync()
		}
	}

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Exists returns true if path exists and is a regular file.
func Exists(fls Filesystem, path string) bool {
	info, err := fls.Stat(CleanPath(path))
	return err == nil && info.Mode().IsRegular()
}
