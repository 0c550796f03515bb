package extractworker

import (
	"fmt"
	"path/filepath"

	"github.com/pborman/uuid"

	"github.com/smi-extract/extract-worker/backend"
	"github.com/smi-extract/extract-worker/extract"
	"github.com/smi-extract/extract-worker/fsx"
	"github.com/smi-extract/extract-worker/pool"
)

// AnonymiseWorker de-identifies DICOM files and routes them to the
// verify/no-verify queue the router operator acts on.
type AnonymiseWorker struct {
	core
	backend backend.AnonymiserBackend
	pool    *pool.Manager // nil unless PoolRoot is configured
}

// NewAnonymiseWorker constructs an AnonymiseWorker. pm must be non-nil
// if any request this worker handles may set isPooledExtraction.
func NewAnonymiseWorker(fs fsx.FileSystem, clock fsx.Clock, cfg Config, publisher StatusPublisher, ab backend.AnonymiserBackend, pm *pool.Manager) *AnonymiseWorker {
	return &AnonymiseWorker{
		core:    newCore(fs, clock, cfg, publisher),
		backend: ab,
		pool:    pm,
	}
}

// Process runs a single extraction message through the anonymiser's
// state machine. A nil return means the message was published and
// acknowledged (possibly as a business failure); a non-nil return is
// always a *FatalError, and ack was not touched unless the Ack call
// itself is what failed.
func (w *AnonymiseWorker) Process(ack Acknowledger, req extract.Request) error {
	// Stage 1: type guard. An identifiable extraction request has no
	// business reaching the anonymiser.
	if req.IsIdentifiableExtraction {
		return newFatal("AnonymiseWorker should not handle identifiable extraction messages")
	}

	// Stage 2/3: resolve and stat the source.
	absSrc := w.absSource(req)
	fi, missing, err := w.statSource(absSrc)
	if err != nil {
		return wrapFatal(err, fmt.Sprintf("stat source %s", absSrc))
	}
	if missing {
		report := extract.NewReport(req, extract.StatusFileMissing, fmt.Sprintf("Could not find file to anonymise: '%s'", absSrc), "")
		return w.publishAndAck(ack, w.cfg.RoutingKeyFailure, report)
	}

	// Stage 4: read-only enforcement, anonymiser only.
	if w.cfg.FailIfSourceWriteable && fi.Mode().Perm()&0222 != 0 {
		report := extract.NewReport(req, extract.StatusErrorWontRetry, fmt.Sprintf("Source file was writeable and FailIfSourceWriteable is set: '%s'", absSrc), "")
		return w.publishAndAck(ack, w.cfg.RoutingKeyFailure, report)
	}

	// Stage 5: the extraction directory must already exist for the
	// anonymiser; unlike the copier it is never created on the fly.
	extractionDir := w.extractionDir(req)
	if _, missing, err := w.statSource(extractionDir); err != nil {
		return wrapFatal(err, fmt.Sprintf("stat extraction directory %s", extractionDir))
	} else if missing {
		return fatalf("Expected extraction directory to exist: '%s'", extractionDir)
	}

	// Stage 6: destination preparation.
	dst := w.destination(req)
	w.warnIfExists(dst)
	if err := w.ensureParentDir(dst); err != nil {
		return wrapFatal(err, fmt.Sprintf("create parent directory for %s", dst))
	}

	// Stage 7: materialisation. isPooledExtraction selects the
	// strategy per-message; poolRoot's presence merely makes pooling
	// available at all.
	if req.IsPooledExtraction {
		if w.cfg.PoolRoot == "" {
			return newFatal("pooled extraction requested but no poolRoot is configured")
		}
		return w.processPooled(ack, req, absSrc, dst)
	}
	return w.processDirect(ack, req, absSrc, dst)
}

func (w *AnonymiseWorker) processDirect(ack Acknowledger, req extract.Request, absSrc, dst string) error {
	status, msg := w.backend.Anonymise(absSrc, dst, req.Modality)
	if status != extract.StatusAnonymised {
		report := extract.NewReport(req, status, msg, "")
		return w.publishAndAck(ack, w.cfg.RoutingKeyFailure, report)
	}
	report := extract.NewReport(req, extract.StatusAnonymised, msg, req.OutputPath)
	return w.publishAndAck(ack, w.cfg.RoutingKeySuccess, report)
}

func (w *AnonymiseWorker) processPooled(ack Acknowledger, req extract.Request, absSrc, dst string) error {
	tmpDir := filepath.Join(w.cfg.PoolRoot, ".tmp")
	if err := w.fs.MkdirAll(tmpDir, 0755); err != nil {
		return wrapFatal(err, fmt.Sprintf("create pool temp directory %s", tmpDir))
	}
	tmpPath := filepath.Join(tmpDir, uuid.New())

	status, msg := w.backend.Anonymise(absSrc, tmpPath, req.Modality)
	if status != extract.StatusAnonymised {
		w.fs.Remove(tmpPath) // best effort; may not exist
		report := extract.NewReport(req, status, msg, "")
		return w.publishAndAck(ack, w.cfg.RoutingKeyFailure, report)
	}

	// The anonymised bytes, not the identifiable source, are the pool
	// candidate; preserveCandidate is false since tmpPath is a
	// disposable scratch file, so moving it is correct.
	if err := w.pool.LinkInto(tmpPath, dst, false); err != nil {
		return wrapFatal(err, fmt.Sprintf("link %s into pool at %s", tmpPath, dst))
	}

	report := extract.NewReport(req, extract.StatusAnonymised, msg, req.OutputPath)
	return w.publishAndAck(ack, w.cfg.RoutingKeySuccess, report)
}
