// Package extractworker implements the per-message state machine shared
// by the copy and anonymise worker variants. Grounded on
// copytool.handleAction's dispatch-then-report shape and
// posix.Mover.Archive's open-source/create-destination/copy/report
// structure, generalised to the DICOM extraction domain.
package extractworker

import (
	"os"
	"path/filepath"

	"github.com/intel-hpdd/logging/audit"

	"github.com/smi-extract/extract-worker/extract"
	"github.com/smi-extract/extract-worker/fsx"
)

// core holds the collaborators shared by CopyWorker and AnonymiseWorker.
type core struct {
	fs        fsx.FileSystem
	clock     fsx.Clock
	cfg       Config
	publisher StatusPublisher
}

func newCore(fs fsx.FileSystem, clock fsx.Clock, cfg Config, publisher StatusPublisher) core {
	return core{fs: fs, clock: clock, cfg: cfg.Normalize(), publisher: publisher}
}

func (c *core) absSource(req extract.Request) string {
	return filepath.Join(c.cfg.FileSystemRoot, req.DicomFilePath)
}

func (c *core) destination(req extract.Request) string {
	return filepath.Join(c.cfg.ExtractionRoot, req.ExtractionDirectory, req.OutputPath)
}

func (c *core) extractionDir(req extract.Request) string {
	return filepath.Join(c.cfg.ExtractionRoot, req.ExtractionDirectory)
}

// statSource stats absSrc and classifies the result. missing is true
// only for a not-exist error; any other stat error is the caller's cue
// to raise Fatal.
func (c *core) statSource(absSrc string) (fi os.FileInfo, missing bool, err error) {
	fi, err = c.fs.Stat(absSrc)
	if err == nil {
		return fi, false, nil
	}
	if fsx.IsNotExist(err) {
		return nil, true, nil
	}
	return nil, false, err
}

// warnIfExists logs, but never errors on, a destination that will be
// overwritten. Overwriting a prior destination is explicitly allowed.
func (c *core) warnIfExists(dst string) {
	if _, err := c.fs.Lstat(dst); err == nil {
		audit.Logf("extractworker: overwriting existing destination %s", dst)
	}
}

// ensureParentDir creates dst's parent directory, non-fatally: a
// missing extraction directory is expected the first time a study is
// extracted into it.
func (c *core) ensureParentDir(dst string) error {
	return c.fs.MkdirAll(filepath.Dir(dst), 0755)
}

// publishAndAck reports the outcome and acknowledges the message. Any
// failure at this stage is unexpected and Fatal: the worker has no
// business-level way to recover from a broker error.
func (c *core) publishAndAck(ack Acknowledger, routingKey string, report extract.Report) error {
	if err := c.publisher.Publish(routingKey, report); err != nil {
		return wrapFatal(err, "publish status report")
	}
	if err := ack.Ack(); err != nil {
		return wrapFatal(err, "acknowledge message")
	}
	return nil
}
