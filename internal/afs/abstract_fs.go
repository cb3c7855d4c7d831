package afs

import (
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// A Filesystem provides the source files of a compilation and receives its outputs.
type Filesystem interface {
	billy.Filesystem
	Absolute(path string) (string, error)
}

type File = billy.File

type absoluteCapableFilesystem struct {
	billy.Filesystem
	absolute func(path string) (string, error)
}

func AddAbsoluteFeature(fls billy.Filesystem, absolute func(path string) (string, error)) Filesystem {
	return &absoluteCapableFilesystem{
		Filesystem: fls,
		absolute:   absolute,
	}
}

func (fls *absoluteCapableFilesystem) Absolute(path string) (string, error) {
	return fls.absolute(path)
}

// NewOsFilesystem returns a filesystem rooted at dir, paths are resolved relative to dir.
func NewOsFilesystem(dir string) (Filesystem, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	return AddAbsoluteFeature(osfs.New(root), func(path string) (string, error) {
		return filepath.Join(root, CleanPath(path)), nil
	}), nil
}

func NewMemFilesystem() Filesystem {
	return AddAbsoluteFeature(memfs.New(), func(path string) (string, error) {
		return "/" + CleanPath(path), nil
	})
}
