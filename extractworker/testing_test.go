package extractworker

import (
	"sync"

	"github.com/smi-extract/extract-worker/extract"
	"github.com/smi-extract/extract-worker/fsx"
)

type publishedMsg struct {
	routingKey string
	report     extract.Report
}

// fakePublisher is a StatusPublisher test double that records every
// published report, in the style of dmplugin/testing.go's TestAction.
type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMsg
	err       error
}

func (p *fakePublisher) Publish(routingKey string, report extract.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedMsg{routingKey, report})
	return nil
}

func (p *fakePublisher) last() publishedMsg {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published[len(p.published)-1]
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// fakeAck is an Acknowledger test double.
type fakeAck struct {
	ackErr error
	acked  int
	nacked int
}

func (a *fakeAck) Ack() error {
	a.acked++
	return a.ackErr
}

func (a *fakeAck) Nack() error {
	a.nacked++
	return nil
}

// fakeBackend is an AnonymiserBackend test double whose behaviour is
// scripted per call via a queue of canned results. When a result
// succeeds, it writes writeBytes to dst through fs, standing in for
// whatever the real transform would have produced there.
type fakeBackend struct {
	fs fsx.FileSystem

	mu      sync.Mutex
	results []fakeResult
	calls   []fakeCall
}

type fakeResult struct {
	status     extract.Status
	msg        string
	writeBytes []byte
}

type fakeCall struct {
	src, dst, modality string
}

func (b *fakeBackend) Anonymise(src, dst, modality string) (extract.Status, string) {
	b.mu.Lock()
	b.calls = append(b.calls, fakeCall{src, dst, modality})
	r := fakeResult{status: extract.StatusAnonymised}
	if len(b.results) > 0 {
		r = b.results[0]
		b.results = b.results[1:]
	}
	b.mu.Unlock()

	if r.status == extract.StatusAnonymised {
		out, err := b.fs.Create(dst)
		if err != nil {
			return extract.StatusErrorWontRetry, err.Error()
		}
		out.Write(r.writeBytes)
		out.Close()
	}
	return r.status, r.msg
}
