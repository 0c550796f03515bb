package backend

import (
	"path/filepath"

	"github.com/smi-extract/extract-worker/extract"
)

// toolRunner is the subset of *toolrunner.Runner the external backend
// needs, so this package doesn't have to import toolrunner directly
// (avoiding a dependency cycle with the worker's wiring code).
type toolRunner interface {
	Run(absSrc, absDst string) (extract.Status, string)
}

// External is the XA-style backend: it delegates anonymisation to a
// supervised external executable.
type External struct {
	runner toolRunner
}

// NewExternal wraps runner as an AnonymiserBackend.
func NewExternal(runner toolRunner) *External {
	return &External{runner: runner}
}

// Anonymise implements AnonymiserBackend. The external tool contract
// requires absolute paths, so src/dst are resolved before the child
// process is spawned.
func (e *External) Anonymise(src, dst, modality string) (extract.Status, string) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return extract.StatusErrorWontRetry, err.Error()
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return extract.StatusErrorWontRetry, err.Error()
	}
	return e.runner.Run(absSrc, absDst)
}
