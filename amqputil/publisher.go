package amqputil

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/smi-extract/extract-worker/extract"
)

// Publisher implements extractworker.StatusPublisher over an AMQP
// channel, publishing JSON-encoded reports to a fixed exchange.
type Publisher struct {
	ch       *amqp.Channel
	exchange string
}

// NewPublisher returns a Publisher that publishes to exchange over ch.
func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish implements extractworker.StatusPublisher.
func (p *Publisher) Publish(routingKey string, report extract.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "marshal status report failed")
	}

	return p.ch.Publish(p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}
