// Package amqputil wires the extraction worker to its broker: channel
// setup with retry, and the concrete StatusPublisher/Acknowledger the
// extractworker package depends on as interfaces.
package amqputil

import (
	"time"

	"github.com/intel-hpdd/logging/alert"
	"github.com/intel-hpdd/logging/audit"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

// DefaultMaxRetries bounds how many attempts dialing and channel setup
// each make, in total, before giving up.
const DefaultMaxRetries = 5

// retryDelay is paused between channel-setup attempts.
const retryDelay = 5 * time.Second

// ChannelConfig describes the exchange/queue topology the worker needs
// declared on its channel.
type ChannelConfig struct {
	Exchange      string
	Queue         string
	RoutingKey    string // binds Queue to Exchange; empty binds on Queue itself
	PrefetchCount int
}

// OpenChannel dials url and opens a channel with the given topology
// declared, making up to DefaultMaxRetries attempts at each step.
func OpenChannel(url string, cfg ChannelConfig) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := dialWithRetry(url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := channelWithRetry(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func dialWithRetry(url string) (*amqp.Connection, error) {
	var lastErr error
	for attempt := 1; attempt <= DefaultMaxRetries; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		alert.Warnf("amqputil: dial attempt %d/%d failed: %v", attempt, DefaultMaxRetries, err)
		time.Sleep(retryDelay)
	}
	return nil, errors.Wrap(lastErr, "amqputil: exhausted dial retries")
}

func channelWithRetry(conn *amqp.Connection, cfg ChannelConfig) (*amqp.Channel, error) {
	var lastErr error
	for attempt := 1; attempt <= DefaultMaxRetries; attempt++ {
		ch, err := declareChannel(conn, cfg)
		if err == nil {
			return ch, nil
		}
		lastErr = err
		alert.Warnf("amqputil: channel setup attempt %d/%d failed: %v", attempt, DefaultMaxRetries, err)
		time.Sleep(retryDelay)
	}
	return nil, errors.Wrap(lastErr, "amqputil: exhausted channel setup retries")
}

func declareChannel(conn *amqp.Connection, cfg ChannelConfig) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel failed")
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, errors.Wrap(err, "declare exchange failed")
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, errors.Wrap(err, "declare queue failed")
	}

	routingKey := cfg.RoutingKey
	if routingKey == "" {
		routingKey = cfg.Queue
	}
	if err := ch.QueueBind(cfg.Queue, routingKey, cfg.Exchange, false, nil); err != nil {
		ch.Close()
		return nil, errors.Wrap(err, "bind queue failed")
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			ch.Close()
			return nil, errors.Wrap(err, "set QoS failed")
		}
	}

	audit.Logf("amqputil: channel ready, exchange=%s queue=%s", cfg.Exchange, cfg.Queue)
	return ch, nil
}
