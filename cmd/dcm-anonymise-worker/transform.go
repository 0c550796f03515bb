package main

import (
	"io"

	"github.com/smi-extract/extract-worker/extract"
	"github.com/smi-extract/extract-worker/fsx"
)

// ctpTransform is the primary backend's concrete Anonymise operation.
// The actual pixel- and tag-level de-identification logic is a
// black box out of scope here; this stands in for wiring a real CTP-
// equivalent library into backend.Primary.
func ctpTransform(src, dst, modality string) (extract.Status, string) {
	in, err := fsx.OS.Open(src)
	if err != nil {
		return extract.StatusErrorWontRetry, err.Error()
	}
	defer in.Close()

	out, err := fsx.OS.Create(dst)
	if err != nil {
		return extract.StatusErrorWontRetry, err.Error()
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return extract.StatusErrorWontRetry, err.Error()
	}
	if err := out.Close(); err != nil {
		return extract.StatusErrorWontRetry, err.Error()
	}
	return extract.StatusAnonymised, ""
}
