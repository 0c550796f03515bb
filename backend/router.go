package backend

import "github.com/smi-extract/extract-worker/extract"

// xaModality is the only modality the external-tool backend claims.
// Matching is case-sensitive.
const xaModality = "XA"

// Router is the "default" AnonymiserBackend: it dispatches by modality
// to either the external-tool backend or the primary backend.
type Router struct {
	primary  AnonymiserBackend
	external AnonymiserBackend // nil when no external tool is configured
}

// NewRouter returns a Router. external may be nil, meaning no
// external-tool backend is configured; every modality then goes to
// primary.
func NewRouter(primary AnonymiserBackend, external AnonymiserBackend) *Router {
	return &Router{primary: primary, external: external}
}

// Anonymise implements AnonymiserBackend.
func (r *Router) Anonymise(src, dst, modality string) (extract.Status, string) {
	if modality == xaModality && r.external != nil {
		return r.external.Anonymise(src, dst, modality)
	}
	return r.primary.Anonymise(src, dst, modality)
}
