package backend

import (
	"path/filepath"
	"testing"

	"github.com/smi-extract/extract-worker/extract"
)

type fakeToolRunner struct {
	gotSrc, gotDst string
	status         extract.Status
	msg            string
}

func (f *fakeToolRunner) Run(absSrc, absDst string) (extract.Status, string) {
	f.gotSrc, f.gotDst = absSrc, absDst
	return f.status, f.msg
}

func TestExternalResolvesToAbsolutePaths(t *testing.T) {
	runner := &fakeToolRunner{status: extract.StatusAnonymised}
	e := NewExternal(runner)

	status, _ := e.Anonymise("rel/src.dcm", "rel/dst.dcm", "XA")
	if status != extract.StatusAnonymised {
		t.Fatalf("got %s", status)
	}
	if !filepath.IsAbs(runner.gotSrc) || !filepath.IsAbs(runner.gotDst) {
		t.Fatalf("expected absolute paths, got src=%q dst=%q", runner.gotSrc, runner.gotDst)
	}
}

func TestExternalPropagatesRunnerResult(t *testing.T) {
	runner := &fakeToolRunner{status: extract.StatusErrorWontRetry, msg: "tool failed"}
	e := NewExternal(runner)

	status, msg := e.Anonymise("src.dcm", "dst.dcm", "XA")
	if status != extract.StatusErrorWontRetry || msg != "tool failed" {
		t.Fatalf("got %s %q", status, msg)
	}
}
