package fsx

import (
	"bytes"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Mem returns a new in-memory FileSystem, for exercising the extraction
// worker's logic without touching disk.
func Mem() *MemFS {
	return &MemFS{entries: map[string]*memEntry{
		"/": {isDir: true, mode: 0755, modTime: time.Now()},
	}}
}

type memEntry struct {
	isDir     bool
	symlink   string // non-empty if this entry is a symlink
	data      []byte
	mode      os.FileMode
	modTime   time.Time
	immutable bool // write-protected the way a read-only DICOM source is
}

// MemFS is an in-memory FileSystem implementation.
type MemFS struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	tmpSeq  int
}

func clean(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	return p
}

func dir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return "/"
	}
	return d
}

// resolve follows symlink entries (one hop at a time, bounded to avoid
// infinite loops) and returns the path of the final non-symlink entry.
func (m *MemFS) resolve(p string) (string, *memEntry, error) {
	seen := map[string]bool{}
	cur := clean(p)
	for {
		e, ok := m.entries[cur]
		if !ok {
			return cur, nil, os.ErrNotExist
		}
		if e.symlink == "" {
			return cur, e, nil
		}
		if seen[cur] {
			return cur, nil, errors.New("symlink loop")
		}
		seen[cur] = true
		target := e.symlink
		if !path.IsAbs(target) {
			target = path.Join(dir(cur), target)
		}
		cur = clean(target)
	}
}

func (m *MemFS) ensureParents(p string) {
	d := dir(p)
	for {
		if _, ok := m.entries[d]; ok {
			return
		}
		m.entries[d] = &memEntry{isDir: true, mode: 0755, modTime: time.Now()}
		if d == "/" {
			return
		}
		d = dir(d)
	}
}

// Stat implements FileSystem.
func (m *MemFS) Stat(p string) (os.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rp, e, err := m.resolve(p)
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: p, Err: os.ErrNotExist}
	}
	return newFileInfo(path.Base(rp), e), nil
}

// Lstat implements FileSystem.
func (m *MemFS) Lstat(p string) (os.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	e, ok := m.entries[cp]
	if !ok {
		return nil, &os.PathError{Op: "lstat", Path: p, Err: os.ErrNotExist}
	}
	return newFileInfo(path.Base(cp), e), nil
}

// Open implements FileSystem.
func (m *MemFS) Open(p string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, e, err := m.resolve(p)
	if err != nil || e.isDir {
		return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}
	return &memReader{Reader: bytes.NewReader(e.data)}, nil
}

// Create implements FileSystem.
func (m *MemFS) Create(p string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	if existing, ok := m.entries[cp]; ok && existing.immutable {
		return nil, &os.PathError{Op: "create", Path: p, Err: os.ErrPermission}
	}
	m.ensureParents(cp)
	e := &memEntry{mode: 0644, modTime: time.Now()}
	m.entries[cp] = e
	return &memWriter{fs: m, path: cp, entry: e}, nil
}

// CreateTemp implements FileSystem.
func (m *MemFS) CreateTemp(d, pattern string) (TempFile, error) {
	m.mu.Lock()
	m.tmpSeq++
	seq := m.tmpSeq
	m.mu.Unlock()

	if d == "" {
		d = "/tmp"
	}
	name := path.Join(d, strings.Replace(pattern, "*", itoa(seq), 1))
	if !strings.Contains(pattern, "*") {
		name = path.Join(d, pattern+itoa(seq))
	}

	m.mu.Lock()
	m.ensureParents(clean(name))
	e := &memEntry{mode: 0600, modTime: time.Now()}
	m.entries[clean(name)] = e
	m.mu.Unlock()

	return &memTempFile{memWriter: memWriter{fs: m, path: clean(name), entry: e}, name: name}, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// MkdirAll implements FileSystem.
func (m *MemFS) MkdirAll(p string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := clean(p)
	var missing []string
	for d := cp; ; d = dir(d) {
		if _, ok := m.entries[d]; ok {
			break
		}
		missing = append(missing, d)
		if d == "/" {
			break
		}
	}
	for i := len(missing) - 1; i >= 0; i-- {
		m.entries[missing[i]] = &memEntry{isDir: true, mode: perm, modTime: time.Now()}
	}
	return nil
}

// Remove implements FileSystem.
func (m *MemFS) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	if _, ok := m.entries[cp]; !ok {
		return &os.PathError{Op: "remove", Path: p, Err: os.ErrNotExist}
	}
	delete(m.entries, cp)
	return nil
}

// Rename implements FileSystem. Matches os.Rename: replaces newpath if it
// already exists.
func (m *MemFS) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, np := clean(oldpath), clean(newpath)
	e, ok := m.entries[op]
	if !ok {
		return &os.PathError{Op: "rename", Path: oldpath, Err: os.ErrNotExist}
	}
	m.ensureParents(np)
	m.entries[np] = e
	delete(m.entries, op)
	return nil
}

// Symlink implements FileSystem.
func (m *MemFS) Symlink(target, linkname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lp := clean(linkname)
	if _, ok := m.entries[lp]; ok {
		return &os.PathError{Op: "symlink", Path: linkname, Err: os.ErrExist}
	}
	m.ensureParents(lp)
	m.entries[lp] = &memEntry{symlink: target, mode: os.ModeSymlink | 0777, modTime: time.Now()}
	return nil
}

// Readlink implements FileSystem.
func (m *MemFS) Readlink(linkname string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[clean(linkname)]
	if !ok || e.symlink == "" {
		return "", &os.PathError{Op: "readlink", Path: linkname, Err: os.ErrInvalid}
	}
	return e.symlink, nil
}

// Chmod implements FileSystem.
func (m *MemFS) Chmod(p string, mode os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, e, err := m.resolve(p)
	if err != nil {
		return &os.PathError{Op: "chmod", Path: p, Err: os.ErrNotExist}
	}
	e.mode = mode
	e.immutable = mode&0222 == 0
	return nil
}

// WriteFile is a test helper that creates p with the given content in
// one step, the way internal/testhelpers.Fill populates fixture files.
func (m *MemFS) WriteFile(p string, data []byte, mode os.FileMode) {
	m.mu.Lock()
	cp := clean(p)
	m.ensureParents(cp)
	m.entries[cp] = &memEntry{data: append([]byte(nil), data...), mode: mode, modTime: time.Now(), immutable: mode&0222 == 0}
	m.mu.Unlock()
}

// ReadFile is a test helper returning the content at p, following
// symlinks.
func (m *MemFS) ReadFile(p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, e, err := m.resolve(p)
	if err != nil {
		return nil, os.ErrNotExist
	}
	return append([]byte(nil), e.data...), nil
}

// Exists is a test helper reporting whether p has any entry (file, dir
// or symlink), without following symlinks.
func (m *MemFS) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[clean(p)]
	return ok
}

// CountRegularFiles is a test helper used to assert pool idempotence:
// it counts non-directory, non-symlink entries under dir.
func (m *MemFS) CountRegularFiles(dirPath string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := clean(dirPath) + "/"
	n := 0
	for p, e := range m.entries {
		if e.isDir || e.symlink != "" {
			continue
		}
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

type fileInfo struct {
	name string
	e    *memEntry
}

func newFileInfo(name string, e *memEntry) os.FileInfo {
	return fileInfo{name: name, e: e}
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return int64(len(fi.e.data)) }
func (fi fileInfo) Mode() os.FileMode  { return fi.e.mode }
func (fi fileInfo) ModTime() time.Time { return fi.e.modTime }
func (fi fileInfo) IsDir() bool        { return fi.e.isDir }
func (fi fileInfo) Sys() interface{}   { return nil }
