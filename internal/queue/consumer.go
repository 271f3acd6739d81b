package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultAuditQueue is the queue member mutation events travel on.
const DefaultAuditQueue = "roster.member.mutated"

// requeueDelay spaces out redeliveries while the journal is failing.
const requeueDelay = 2 * time.Second

// ErrStoreFailed marks a well-formed event the journal could not store.
// Such deliveries are requeued; malformed ones are dropped.
var ErrStoreFailed = errors.New("audit event not stored")

// AuditWriter persists audit events.
type AuditWriter interface {
	Insert(ctx context.Context, ev MemberMutationEvent) error
}

// StartAuditConsumer connects to the broker at url, declares queue
// (durable) and journals every event through w.  It reconnects with
// backoff until ctx is cancelled.  Messages that cannot be decoded are
// rejected without requeue so a poison message cannot loop; messages the
// journal failed to store are requeued after a short pause.
func StartAuditConsumer(ctx context.Context, url, queue string, w AuditWriter) error {
	if queue == "" {
		queue = DefaultAuditQueue
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, w)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
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

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, w AuditWriter) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("audit-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
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
			settle(ctx, d, w)
		}
	}
}

// settle journals one delivery and acks, requeues or rejects it.
func settle(ctx context.Context, d amqp.Delivery, w AuditWriter) {
	err := HandleAuditMessage(ctx, d.Body, w)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrStoreFailed):
		log.Printf("audit-consumer: %v; requeueing in %s", err, requeueDelay)
		sleep(ctx, requeueDelay)
		_ = d.Nack(false, true)
	default:
		log.Printf("audit-consumer: rejecting message: %v", err)
		_ = d.Nack(false, false)
	}
}

// HandleAuditMessage decodes one delivery body and stores it.  A storage
// failure wraps ErrStoreFailed; any other error means the body is unusable.
func HandleAuditMessage(ctx context.Context, body []byte, w AuditWriter) error {
	var ev MemberMutationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ID == "" || ev.SessionID == "" {
		return errors.New("event without id or session_id")
	}
	switch ev.Operation {
	case OpAddMember, OpEditMember, OpDeleteMember:
	default:
		return fmt.Errorf("unknown operation %q", ev.Operation)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.Insert(ctx, ev); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	return nil
}
