package extractworker

import "github.com/smi-extract/extract-worker/fsx"

// Config is the runtime configuration an ExtractionWorker needs. The
// config package is responsible for loading this from HCL/CLI flags and
// validating it at startup; this package only trusts what it's given.
type Config struct {
	// FileSystemRoot and ExtractionRoot are absolute directories and
	// must exist before any worker is constructed.
	FileSystemRoot string
	ExtractionRoot string

	// PoolRoot is optional; a non-empty value enables pooled mode.
	PoolRoot string

	// RoutingKeySuccess/RoutingKeyFailure are used by AnonymiseWorker
	// for every outcome. NoVerifyRoutingKey is used by CopyWorker
	// instead, since a verbatim copy never needs a human to check it.
	RoutingKeySuccess  string
	RoutingKeyFailure  string
	NoVerifyRoutingKey string

	// FailIfSourceWriteable is honoured by AnonymiseWorker only; the
	// asymmetry with CopyWorker, which never enforces it, is
	// deliberate: a plain copy makes no identifiability claim about
	// the source it's reading.
	FailIfSourceWriteable bool
}

// DefaultRoutingKeySuccess and DefaultRoutingKeyFailure are applied by
// the config loader when left unset.
const (
	DefaultRoutingKeySuccess = "verify"
	DefaultRoutingKeyFailure = "noverify"
)

// Normalize fills in routing-key defaults. Safe to call more than once.
func (c Config) Normalize() Config {
	if c.RoutingKeySuccess == "" {
		c.RoutingKeySuccess = DefaultRoutingKeySuccess
	}
	if c.RoutingKeyFailure == "" {
		c.RoutingKeyFailure = DefaultRoutingKeyFailure
	}
	return c
}

// ValidateRoots checks that the configured filesystem and extraction
// roots exist before a worker starts consuming.
func ValidateRoots(fs fsx.FileSystem, cfg Config) error {
	for _, root := range []string{cfg.FileSystemRoot, cfg.ExtractionRoot} {
		fi, err := fs.Stat(root)
		if err != nil {
			return errNotDir(root, err)
		}
		if !fi.IsDir() {
			return errNotDir(root, nil)
		}
	}
	return nil
}

func errNotDir(root string, cause error) error {
	if cause != nil {
		return wrapf(cause, "%s: configured root does not exist", root)
	}
	return newf("%s: configured root is not a directory", root)
}
