package extractworker

import (
	"fmt"
	"io"

	"github.com/smi-extract/extract-worker/extract"
	"github.com/smi-extract/extract-worker/fsx"
	"github.com/smi-extract/extract-worker/pool"
)

// CopyWorker produces a bit-identical copy of the source DICOM file.
// Every outcome, success or failure, routes to the same no-verify
// routing key: a verbatim copy never needs a human to check it.
type CopyWorker struct {
	core
	pool *pool.Manager // nil unless PoolRoot is configured
}

// NewCopyWorker constructs a CopyWorker. pm may be nil if no request
// this worker handles will ever set isPooledExtraction.
func NewCopyWorker(fs fsx.FileSystem, clock fsx.Clock, cfg Config, publisher StatusPublisher, pm *pool.Manager) *CopyWorker {
	return &CopyWorker{
		core: newCore(fs, clock, cfg, publisher),
		pool: pm,
	}
}

// Process runs a single extraction message through the copier's state
// machine. See AnonymiseWorker.Process for the Fatal/ack contract.
func (w *CopyWorker) Process(ack Acknowledger, req extract.Request) error {
	// Stages 2/3: resolve and stat the source. The copier has no type
	// guard: it serves both identifiable and de-identified requests.
	absSrc := w.absSource(req)
	_, missing, err := w.statSource(absSrc)
	if err != nil {
		return wrapFatal(err, fmt.Sprintf("stat source %s", absSrc))
	}
	if missing {
		report := extract.NewReport(req, extract.StatusFileMissing, fmt.Sprintf("Could not find '%s'", absSrc), "")
		return w.publishAndAck(ack, w.cfg.NoVerifyRoutingKey, report)
	}

	// Stages 5/6: the copier never requires the extraction directory to
	// pre-exist; it creates the destination's parent on demand.
	dst := w.destination(req)
	w.warnIfExists(dst)
	if err := w.ensureParentDir(dst); err != nil {
		return wrapFatal(err, fmt.Sprintf("create parent directory for %s", dst))
	}

	if req.IsPooledExtraction {
		if w.cfg.PoolRoot == "" {
			return newFatal("pooled extraction requested but no poolRoot is configured")
		}
		return w.processPooled(ack, req, absSrc, dst)
	}
	return w.processDirect(ack, req, absSrc, dst)
}

func (w *CopyWorker) processDirect(ack Acknowledger, req extract.Request, absSrc, dst string) error {
	if err := w.copyBytes(absSrc, dst); err != nil {
		return wrapFatal(err, fmt.Sprintf("copy %s to %s", absSrc, dst))
	}
	report := extract.NewReport(req, extract.StatusCopied, "", req.OutputPath)
	return w.publishAndAck(ack, w.cfg.NoVerifyRoutingKey, report)
}

func (w *CopyWorker) processPooled(ack Acknowledger, req extract.Request, absSrc, dst string) error {
	// The source bytes are the pool key directly; preserveCandidate is
	// true because absSrc is the extraction worker's only copy of the
	// original file and must never be moved or mutated.
	if err := w.pool.LinkInto(absSrc, dst, true); err != nil {
		return wrapFatal(err, fmt.Sprintf("link %s into pool at %s", absSrc, dst))
	}
	report := extract.NewReport(req, extract.StatusCopied, "", req.OutputPath)
	return w.publishAndAck(ack, w.cfg.NoVerifyRoutingKey, report)
}

func (w *CopyWorker) copyBytes(absSrc, dst string) error {
	src, err := w.fs.Open(absSrc)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := w.fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
