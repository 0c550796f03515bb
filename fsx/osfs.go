package fsx

import (
	"io"
	"os"
)

// OS is the production FileSystem, a thin pass-through to the os package.
var OS FileSystem = osFS{}

type osFS struct{}

func (osFS) Stat(path string) (os.FileInfo, error)  { return os.Stat(path) }
func (osFS) Lstat(path string) (os.FileInfo, error) { return os.Lstat(path) }

func (osFS) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (osFS) Create(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func (osFS) CreateTemp(dir, pattern string) (TempFile, error) {
	return os.CreateTemp(dir, pattern)
}

func (osFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (osFS) Remove(path string) error {
	return os.Remove(path)
}

func (osFS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (osFS) Symlink(target, linkname string) error {
	return os.Symlink(target, linkname)
}

func (osFS) Readlink(linkname string) (string, error) {
	return os.Readlink(linkname)
}

func (osFS) Chmod(path string, mode os.FileMode) error {
	return os.Chmod(path, mode)
}
