// Package workerloop drives deliveries from the broker into an
// extractworker.Worker: the shared consume-decode-dispatch loop both
// cmd/dcm-copy-worker and cmd/dcm-anonymise-worker run.
package workerloop

import (
	"github.com/intel-hpdd/logging/alert"
	"github.com/intel-hpdd/logging/audit"
	"github.com/streadway/amqp"

	"github.com/smi-extract/extract-worker/amqputil"
	"github.com/smi-extract/extract-worker/extract"
	"github.com/smi-extract/extract-worker/extractworker"
)

// Worker is the subset of CopyWorker/AnonymiseWorker the loop needs.
type Worker interface {
	Process(ack extractworker.Acknowledger, req extract.Request) error
}

// Run consumes deliveries until done is closed or deliveries closes.
// A malformed delivery is Nacked without requeue; a Fatal error from
// Process is an unrecoverable worker bug and terminates the process
// via alert.Fatalf.
func Run(done <-chan struct{}, deliveries <-chan amqp.Delivery, w Worker) {
	for {
		select {
		case <-done:
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			handle(d, w)
		}
	}
}

func handle(d amqp.Delivery, w Worker) {
	req, err := amqputil.DecodeRequest(d)
	if err != nil {
		audit.Logf("workerloop: discarding malformed delivery: %s", err)
		d.Nack(false, false)
		return
	}

	ack := amqputil.NewAcknowledger(d)
	if err := w.Process(ack, req); err != nil {
		if extractworker.IsFatal(err) {
			alert.Fatalf("workerloop: fatal error processing job %s: %s", req.JobID, err)
		}
		audit.Logf("workerloop: unexpected error processing job %s: %s", req.JobID, err)
	}
}
