package amqputil

import "github.com/streadway/amqp"

// Acknowledger implements extractworker.Acknowledger over a single
// amqp.Delivery.
type Acknowledger struct {
	delivery amqp.Delivery
}

// NewAcknowledger wraps d.
func NewAcknowledger(d amqp.Delivery) Acknowledger {
	return Acknowledger{delivery: d}
}

// Ack acknowledges this delivery only, not earlier unacknowledged
// deliveries on the same channel.
func (a Acknowledger) Ack() error {
	return a.delivery.Ack(false)
}

// Nack negatively acknowledges the delivery, requeueing it for
// another worker to attempt.
func (a Acknowledger) Nack() error {
	return a.delivery.Nack(false, true)
}
