package backend

import (
	"github.com/intel-hpdd/logging/debug"

	"github.com/smi-extract/extract-worker/extract"
)

// Transform performs the actual pixel- and tag-level anonymisation of a
// DICOM file. It is the primary backend's black box: this package only
// supervises calling it and translating its outcome into a Status.
type Transform func(src, dst, modality string) (extract.Status, string)

// Primary is the CTP-equivalent backend: the default AnonymiserBackend
// used for every modality the external-tool backend doesn't claim.
type Primary struct {
	name      string
	transform Transform
}

// NewPrimary wraps transform as the primary AnonymiserBackend.
func NewPrimary(name string, transform Transform) *Primary {
	return &Primary{name: name, transform: transform}
}

// Anonymise implements AnonymiserBackend.
func (p *Primary) Anonymise(src, dst, modality string) (extract.Status, string) {
	debug.Printf("%s: anonymising %s (%s) -> %s", p.name, src, modality, dst)
	status, msg := p.transform(src, dst, modality)
	if status == "" {
		status = extract.StatusAnonymised
	}
	return status, msg
}
