// Package service holds outbound integrations used by the reservation core.
// The queue publisher forwards audit events to RabbitMQ; errors are logged
// and returned so the caller can ignore them without interrupting the
// operation that produced the event.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// Publisher sends queue.ReservationEvent messages to the durable
// queue.EventsQueue.  Each Publish dials its own connection: a CLI process
// emits at most a few events and exits.
type Publisher struct {
	url string
	log *logrus.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *logrus.Logger) *Publisher {
	if log == nil {
		log = utils.DiscardLogger()
	}
	return &Publisher{url: url, log: log}
}

// Publish delivers ev as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	msg, err := newPublishing(ev, time.Now())
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: marshal event failed")
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: dial failed")
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: channel open failed")
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if err := queue.DeclareEvents(ch); err != nil {
		p.log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	if err := ch.PublishWithContext(ctx,
		"",                // default exchange
		queue.EventsQueue, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		msg,
	); err != nil {
		p.log.WithError(err).Warn("rabbitmq: publish failed")
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.log.WithFields(logrus.Fields{"event_id": ev.EventID, "kind": ev.Kind}).Debug("event published")
	return nil
}

func newPublishing(ev queue.ReservationEvent, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.EventID,
		Type:         ev.Kind,
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}
