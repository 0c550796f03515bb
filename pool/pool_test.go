package pool

import (
	"sync"
	"testing"

	"github.com/smi-extract/extract-worker/fsx"
)

func TestLinkIntoMoveCase(t *testing.T) {
	fs := fsx.Mem()
	fs.WriteFile("/tmp/candidate", []byte("bytes"), 0644)

	m := New(fs, "/pool")
	if err := m.LinkInto("/tmp/candidate", "/extract/out.dcm", false); err != nil {
		t.Fatalf("LinkInto: %v", err)
	}

	if fs.Exists("/tmp/candidate") {
		t.Fatal("expected the moved candidate to be gone")
	}
	target, err := fs.Readlink("/extract/out.dcm")
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	got, err := fs.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", target, err)
	}
	if string(got) != "bytes" {
		t.Fatalf("got %q", got)
	}
}

func TestLinkIntoPreservesCandidateWhenCopying(t *testing.T) {
	fs := fsx.Mem()
	fs.WriteFile("/data/source.dcm", []byte("original"), 0444)

	m := New(fs, "/pool")
	if err := m.LinkInto("/data/source.dcm", "/extract/out.dcm", true); err != nil {
		t.Fatalf("LinkInto: %v", err)
	}

	if !fs.Exists("/data/source.dcm") {
		t.Fatal("expected the preserved candidate to still exist")
	}
	got, err := fs.ReadFile("/data/source.dcm")
	if err != nil || string(got) != "original" {
		t.Fatalf("source mutated: %q, %v", got, err)
	}
}

func TestLinkIntoDeduplicatesByDigest(t *testing.T) {
	fs := fsx.Mem()
	fs.WriteFile("/data/a.dcm", []byte("identical"), 0644)
	fs.WriteFile("/data/b.dcm", []byte("identical"), 0644)

	m := New(fs, "/pool")
	if err := m.LinkInto("/data/a.dcm", "/extract/a-out.dcm", true); err != nil {
		t.Fatalf("LinkInto a: %v", err)
	}
	before := fs.CountRegularFiles("/pool")

	if err := m.LinkInto("/data/b.dcm", "/extract/b-out.dcm", true); err != nil {
		t.Fatalf("LinkInto b: %v", err)
	}
	after := fs.CountRegularFiles("/pool")

	if before != after {
		t.Fatalf("expected pool file count unchanged, got %d -> %d", before, after)
	}
	ta, _ := fs.Readlink("/extract/a-out.dcm")
	tb, _ := fs.Readlink("/extract/b-out.dcm")
	if ta != tb {
		t.Fatalf("expected both links to target the same pool entry, got %q and %q", ta, tb)
	}
}

func TestLinkIntoOverwritesPriorDestination(t *testing.T) {
	fs := fsx.Mem()
	fs.WriteFile("/data/a.dcm", []byte("content"), 0644)
	fs.WriteFile("/extract/out.dcm", []byte("stale"), 0644)

	m := New(fs, "/pool")
	if err := m.LinkInto("/data/a.dcm", "/extract/out.dcm", true); err != nil {
		t.Fatalf("LinkInto: %v", err)
	}
	target, err := fs.Readlink("/extract/out.dcm")
	if err != nil {
		t.Fatalf("expected destination to become a symlink: %v", err)
	}
	got, _ := fs.ReadFile(target)
	if string(got) != "content" {
		t.Fatalf("got %q", got)
	}
}

func TestLinkIntoConcurrentIdenticalContentConverges(t *testing.T) {
	fs := fsx.Mem()
	for i := 0; i < 8; i++ {
		fs.WriteFile(pathFor(i), []byte("concurrent payload"), 0644)
	}

	m := New(fs, "/pool")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.LinkInto(pathFor(i), destFor(i), true); err != nil {
				t.Errorf("LinkInto %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	if n := fs.CountRegularFiles("/pool"); n != 1 {
		t.Fatalf("expected exactly one pool entry, got %d", n)
	}
	firstTarget, err := fs.Readlink(destFor(0))
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	for i := 1; i < 8; i++ {
		target, err := fs.Readlink(destFor(i))
		if err != nil {
			t.Fatalf("Readlink %d: %v", i, err)
		}
		if target != firstTarget {
			t.Fatalf("destination %d targets %q, want %q", i, target, firstTarget)
		}
	}
}

func pathFor(i int) string { return "/data/src" + string(rune('a'+i)) + ".dcm" }
func destFor(i int) string { return "/extract/dst" + string(rune('a'+i)) + ".dcm" }
