// Package backend defines the pluggable anonymisation backends an
// AnonymiseWorker can delegate to, and the modality-based router that
// picks between them: a narrow interface with a small closed set of
// implementations, rather than open-ended plugin discovery.
package backend

import "github.com/smi-extract/extract-worker/extract"

// AnonymiserBackend transforms the identifiable DICOM file at src into
// a de-identified file at dst. It reports a Status and, on anything
// other than extract.StatusAnonymised, a diagnostic message.
type AnonymiserBackend interface {
	Anonymise(src, dst, modality string) (extract.Status, string)
}
