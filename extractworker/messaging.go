package extractworker

import "github.com/smi-extract/extract-worker/extract"

// StatusPublisher publishes a completion report to the given routing
// key. Concrete implementations live in amqputil; this package only
// depends on the interface, grounded on copytool.handler's separation
// between computing an ActionResult and reporting it.
type StatusPublisher interface {
	Publish(routingKey string, report extract.Report) error
}

// Acknowledger is the subset of amqp.Delivery the worker needs.
// ExtractionWorker only ever calls Ack: a validation failure is still
// an Ack (with a failure status published), and an unexpected error
// raises a Fatal signal and touches neither Ack nor Nack. Nack exists
// on the interface for completeness of the broker seam, not because
// the worker calls it.
type Acknowledger interface {
	Ack() error
	Nack() error
}
