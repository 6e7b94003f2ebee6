package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// EventsQueue is the durable queue carrying ReservationEvent messages.
const EventsQueue = "reservation.events"

// DeclareEvents declares EventsQueue on ch.  Publisher and consumer both
// call it so either may start first.
func DeclareEvents(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(
		EventsQueue, // name
		true,        // durable
		false,       // autoDelete
		false,       // exclusive
		false,       // noWait
		nil,         // args
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}

// StartEventConsumer connects to the broker at url and appends one line per
// event to feedPath.  It reconnects with backoff until ctx is cancelled,
// which is the only way it returns.  A message that cannot be decoded or
// written is rejected without requeue so it cannot block the queue.
func StartEventConsumer(ctx context.Context, url, feedPath string, log *logrus.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("event-consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect
		log.WithField("queue", EventsQueue).Info("event-consumer: connected")

		err = consumeLoop(ctx, conn, feedPath, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("event-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, feedPath string, log *logrus.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("event-consumer: set QoS failed")
	}
	if err := DeclareEvents(ch); err != nil {
		return err
	}

	msgs, err := ch.Consume(EventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(d.Body, feedPath); err != nil {
				log.WithError(err).WithField("message_id", d.MessageId).Warn("event-consumer: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one event and appends its feed line to feedPath.
func HandleMessage(body []byte, feedPath string) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" || ev.OccurredAt == "" {
		return errors.New("event missing kind or timestamp")
	}
	if err := os.MkdirAll(filepath.Dir(feedPath), 0o755); err != nil {
		return fmt.Errorf("mkdir feed dir: %w", err)
	}
	f, err := os.OpenFile(feedPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open feed file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FeedLine(ev) + "\n"); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	return nil
}

// FeedLine renders ev as a single human-friendly line.
func FeedLine(ev ReservationEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | by=%s:%s", ev.OccurredAt, ev.Kind, ev.Role, ev.Username)
	if ev.Action != "" {
		fmt.Fprintf(&b, " | action=%q", ev.Action)
	}
	if ev.Detail != "" {
		fmt.Fprintf(&b, " | detail=%q", ev.Detail)
	}
	if s := ev.Snapshot; s != nil {
		if s.ID != "" {
			fmt.Fprintf(&b, " | id=%q", s.ID)
		}
		if s.TableNumber > 0 {
			fmt.Fprintf(&b, " | table=%d", s.TableNumber)
		}
		if s.PartySize > 0 {
			fmt.Fprintf(&b, " | party=%d", s.PartySize)
		}
		if s.Date != "" || s.Time != "" {
			fmt.Fprintf(&b, " | when=%s %s", s.Date, s.Time)
		}
	}
	return b.String()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
