// Package events publishes an audit trail of operator actions to Kafka.
package events

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher records audit events. Publishing never fails the action being
// audited.
type Publisher interface {
	Publish(ctx context.Context, event *AuditEvent)
}

// Producer publishes audit events to a Kafka topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer creates a Kafka audit event producer.
func NewProducer(client *kgo.Client, topic string) *Producer {
	if topic == "" {
		topic = TopicEvents
	}
	return &Producer{client: client, topic: topic}
}

// NewRecord builds the Kafka record for an event, keyed by its target so all
// actions on one job, queue or worker land on the same partition.
func NewRecord(topic string, event *AuditEvent) (*kgo.Record, error) {
	value, err := EncodeEvent(event)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic:   topic,
		Key:     []byte(event.Target),
		Value:   value,
		Headers: EventHeaders(event),
	}, nil
}

// Publish produces the event without waiting for acknowledgment.
func (p *Producer) Publish(ctx context.Context, event *AuditEvent) {
	record, err := NewRecord(p.topic, event)
	if err != nil {
		slog.Error("failed to encode audit event", "event_type", event.EventType, "target", event.Target, "error", err)
		return
	}

	p.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			slog.Error("audit event produce failed", "event_type", event.EventType, "target", event.Target, "topic", r.Topic, "error", err)
		}
	})
}

// Close flushes buffered events and closes the client.
func (p *Producer) Close(ctx context.Context) {
	if err := p.client.Flush(ctx); err != nil {
		slog.Error("failed to flush audit events", "error", err)
	}
	p.client.Close()
}

// LogPublisher writes audit events to the structured log. It is used when
// Kafka is not configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event *AuditEvent) {
	slog.Info("audit event",
		"event_id", event.ID,
		"event_type", event.EventType,
		"instance", event.Instance,
		"target", event.Target,
		"outcome", event.Outcome,
	)
}
