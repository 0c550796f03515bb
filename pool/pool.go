// Package pool implements the content-addressed store that backs pooled
// extractions: identical output bytes are written once under poolRoot
// and every destination that produced those bytes becomes a symlink to
// the single pool entry.
//
// A candidate is published via a uniquely named temp file followed by
// an atomic rename, and "pool entry already exists" is treated as a
// benign loss of a publish race rather than an error.
package pool

import (
	"io"
	"path"
	"sync"

	"github.com/intel-hpdd/logging/audit"
	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"

	"github.com/smi-extract/extract-worker/fsx"
	"github.com/smi-extract/extract-worker/hash"
)

// Manager ensures at most one pool entry exists per content digest and
// links destinations to it.
type Manager struct {
	fs       fsx.FileSystem
	poolRoot string

	digestLocks sync.Map // digest (string) -> *sync.Mutex
}

// New returns a Manager rooted at poolRoot.
func New(fs fsx.FileSystem, poolRoot string) *Manager {
	return &Manager{fs: fs, poolRoot: poolRoot}
}

func (m *Manager) lockFor(digest string) func() {
	v, _ := m.digestLocks.LoadOrStore(digest, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// LinkInto materialises candidate into the pool (moving it when
// preserveCandidate is false, copying it when true — the copier must
// never mutate its source) and replaces dst with a symlink to the pool
// entry. It is safe to call concurrently, including from other
// processes sharing poolRoot: the publish step is a single atomic
// rename, and losing the race to publish is not an error.
func (m *Manager) LinkInto(candidate, dst string, preserveCandidate bool) error {
	digest, err := m.digestOf(candidate)
	if err != nil {
		return errors.Wrapf(err, "%s: digest failed", candidate)
	}

	unlock := m.lockFor(digest)
	defer unlock()

	poolPath := path.Join(m.poolRoot, digest)

	published, err := m.publish(candidate, poolPath, preserveCandidate)
	if err != nil {
		return err
	}
	if published {
		audit.Logf("pool: published %s", poolPath)
	} else {
		debug.Printf("pool: %s already present, reusing", poolPath)
	}

	if !preserveCandidate && !published {
		// We lost the race: someone else's identical content is
		// already at poolPath, so our candidate is now redundant.
		if err := m.fs.Remove(candidate); err != nil && !fsx.IsNotExist(err) {
			return errors.Wrapf(err, "%s: cleanup of redundant candidate failed", candidate)
		}
	}

	if err := m.replaceWithLink(dst, poolPath); err != nil {
		return err
	}

	return nil
}

func (m *Manager) digestOf(candidate string) (string, error) {
	f, err := m.fs.Open(candidate)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hash.Sum(f)
}

// publish ensures poolPath exists, returning true if this call is the
// one that created it.
func (m *Manager) publish(candidate, poolPath string, preserveCandidate bool) (bool, error) {
	if _, err := m.fs.Lstat(poolPath); err == nil {
		return false, nil
	} else if !fsx.IsNotExist(err) {
		return false, errors.Wrapf(err, "%s: stat failed", poolPath)
	}

	if !preserveCandidate {
		if err := m.fs.Rename(candidate, poolPath); err != nil {
			if fsx.IsNotExist(err) {
				// candidate vanished; treat target presence as the
				// determining factor below.
			} else {
				return false, errors.Wrapf(err, "%s: move into pool failed", candidate)
			}
		}
		if _, err := m.fs.Lstat(poolPath); err == nil {
			return true, nil
		}
		return false, errors.Errorf("%s: move into pool failed and pool entry is still missing", candidate)
	}

	// Candidate must be preserved (it's the extraction worker's
	// source file): copy it into a uniquely named temp file under
	// poolRoot, then atomically rename into place.
	tmp, err := m.fs.CreateTemp(m.poolRoot, ".pool-publish-*")
	if err != nil {
		return false, errors.Wrap(err, "create temp publish file failed")
	}
	src, err := m.fs.Open(candidate)
	if err != nil {
		tmp.Close()
		m.fs.Remove(tmp.Name())
		return false, errors.Wrapf(err, "%s: reopen for copy failed", candidate)
	}
	_, copyErr := io.Copy(tmp, src)
	src.Close()
	tmp.Close()
	if copyErr != nil {
		m.fs.Remove(tmp.Name())
		return false, errors.Wrapf(copyErr, "%s: copy into pool failed", candidate)
	}

	if err := m.fs.Rename(tmp.Name(), poolPath); err != nil {
		// Another worker published first; our temp copy is now
		// redundant.
		m.fs.Remove(tmp.Name())
		if _, statErr := m.fs.Lstat(poolPath); statErr == nil {
			return false, nil
		}
		return false, errors.Wrapf(err, "%s: publish rename failed", poolPath)
	}
	return true, nil
}

func (m *Manager) replaceWithLink(dst, poolPath string) error {
	if _, err := m.fs.Lstat(dst); err == nil {
		if err := m.fs.Remove(dst); err != nil {
			return errors.Wrapf(err, "%s: removing prior destination failed", dst)
		}
	} else if !fsx.IsNotExist(err) {
		return errors.Wrapf(err, "%s: stat failed", dst)
	}

	if err := m.fs.Symlink(poolPath, dst); err != nil {
		return errors.Wrapf(err, "%s: symlink to %s failed", dst, poolPath)
	}
	return nil
}
