package backend

import (
	"testing"

	"github.com/smi-extract/extract-worker/extract"
)

type stubBackend struct {
	name   string
	status extract.Status
	msg    string
}

func (s *stubBackend) Anonymise(src, dst, modality string) (extract.Status, string) {
	return s.status, s.name
}

func TestRouterDispatchesXAToExternal(t *testing.T) {
	primary := &stubBackend{name: "primary", status: extract.StatusAnonymised}
	external := &stubBackend{name: "external", status: extract.StatusAnonymised}
	r := NewRouter(primary, external)

	_, who := r.Anonymise("src", "dst", "XA")
	if who != "external" {
		t.Fatalf("expected XA to route to the external backend, got %q", who)
	}
}

func TestRouterDispatchesOtherModalitiesToPrimary(t *testing.T) {
	primary := &stubBackend{name: "primary", status: extract.StatusAnonymised}
	external := &stubBackend{name: "external", status: extract.StatusAnonymised}
	r := NewRouter(primary, external)

	for _, modality := range []string{"CT", "SR", "MR", "xa"} {
		_, who := r.Anonymise("src", "dst", modality)
		if who != "primary" {
			t.Fatalf("modality %q: expected primary, got %q", modality, who)
		}
	}
}

func TestRouterFallsBackToPrimaryWhenNoExternalConfigured(t *testing.T) {
	primary := &stubBackend{name: "primary", status: extract.StatusAnonymised}
	r := NewRouter(primary, nil)

	_, who := r.Anonymise("src", "dst", "XA")
	if who != "primary" {
		t.Fatalf("expected primary when no external backend is configured, got %q", who)
	}
}

func TestPrimaryDefaultsEmptyStatusToAnonymised(t *testing.T) {
	p := NewPrimary("test", func(src, dst, modality string) (extract.Status, string) {
		return "", ""
	})
	status, _ := p.Anonymise("src", "dst", "CT")
	if status != extract.StatusAnonymised {
		t.Fatalf("expected Anonymised default, got %s", status)
	}
}

func TestPrimaryPassesThroughExplicitStatus(t *testing.T) {
	p := NewPrimary("test", func(src, dst, modality string) (extract.Status, string) {
		return extract.StatusErrorWontRetry, "unsupported"
	})
	status, msg := p.Anonymise("src", "dst", "CT")
	if status != extract.StatusErrorWontRetry || msg != "unsupported" {
		t.Fatalf("got %s %q", status, msg)
	}
}
