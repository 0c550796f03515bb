// Package fsx is the filesystem seam the extraction worker is
// parameterised over. Every path operation the worker performs goes
// through a FileSystem, so tests can swap the OS-backed implementation
// for an in-memory one.
package fsx

import (
	"io"
	"os"
	"time"
)

type (
	// TempFile is a freshly created, named temporary file.
	TempFile interface {
		io.Writer
		io.Closer
		Name() string
	}

	// FileSystem is the seam all extraction-worker packages depend on
	// instead of calling the os package directly.
	FileSystem interface {
		// Stat follows symlinks, like os.Stat.
		Stat(path string) (os.FileInfo, error)
		// Lstat does not follow symlinks, like os.Lstat.
		Lstat(path string) (os.FileInfo, error)
		// Open opens path for reading.
		Open(path string) (io.ReadCloser, error)
		// Create creates or truncates path for writing.
		Create(path string) (io.WriteCloser, error)
		// CreateTemp creates a new temporary file in dir.
		CreateTemp(dir, pattern string) (TempFile, error)
		// MkdirAll creates path and any missing parents.
		MkdirAll(path string, perm os.FileMode) error
		// Remove removes a single file or empty directory.
		Remove(path string) error
		// Rename is expected to be atomic when oldpath and newpath
		// share a filesystem, per the pool's publish discipline.
		Rename(oldpath, newpath string) error
		// Symlink creates linkname pointing at target.
		Symlink(target, linkname string) error
		// Readlink returns the target of linkname.
		Readlink(linkname string) (string, error)
		// Chmod changes path's permission bits.
		Chmod(path string, mode os.FileMode) error
	}

	// Clock abstracts time.Now so tests can control timestamps and
	// timeouts deterministically.
	Clock interface {
		Now() time.Time
	}

	systemClock struct{}
)

// SystemClock is the production Clock, backed by time.Now.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

// IsNotExist reports whether err indicates a missing path, the way
// os.IsNotExist does, tolerating wrapped errors from pkg/errors.
func IsNotExist(err error) bool {
	return os.IsNotExist(cause(err))
}

// cause unwraps a github.com/pkg/errors-wrapped error down to its root,
// without importing errors.Cause directly into every call site.
func cause(err error) error {
	type causer interface {
		Cause() error
	}
	for {
		c, ok := err.(causer)
		if !ok {
			return err
		}
		err = c.Cause()
	}
}
