package amqputil

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/smi-extract/extract-worker/extract"
)

// Consume starts consuming queue on ch under consumerTag. Deliveries
// are not auto-acked: the caller is responsible for Ack/Nack via
// NewAcknowledger, matching the worker's at-least-once discipline.
func Consume(ch *amqp.Channel, queue, consumerTag string) (<-chan amqp.Delivery, error) {
	deliveries, err := ch.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, errors.Wrap(err, "start consuming failed")
	}
	return deliveries, nil
}

// DecodeRequest unmarshals a delivery's JSON body into an
// extract.Request.
func DecodeRequest(d amqp.Delivery) (extract.Request, error) {
	var req extract.Request
	if err := json.Unmarshal(d.Body, &req); err != nil {
		return extract.Request{}, errors.Wrap(err, "decode extraction request failed")
	}
	return req, nil
}
