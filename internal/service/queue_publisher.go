// Package service publishes domain events to RabbitMQ.  Errors are logged
// and returned so callers can ignore them without interrupting the request
// that caused the event.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/mel-roster/internal/queue"
)

// dialTimeout bounds the broker handshake so an outage delays a mutation
// response by at most this much.
const dialTimeout = 3 * time.Second

// AuditPublisher sends member mutation events to a durable queue.  Each
// publish opens its own connection; mutations are rare and user driven.
type AuditPublisher struct {
	URL   string
	Queue string
}

// NewAuditPublisher returns a publisher for queue on the broker at url.
func NewAuditPublisher(url, queue string) *AuditPublisher {
	return &AuditPublisher{URL: url, Queue: queue}
}

// PublishMemberMutated publishes ev as a persistent JSON message.
func (p *AuditPublisher) PublishMemberMutated(ctx context.Context, ev q.MemberMutationEvent) error {
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         "member." + ev.Operation,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// Discard is a publisher that drops every event, used when auditing is
// disabled.
type Discard struct{}

// PublishMemberMutated implements member.Publisher.
func (Discard) PublishMemberMutated(context.Context, q.MemberMutationEvent) error { return nil }
