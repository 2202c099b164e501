package events

import "github.com/twmb/franz-go/pkg/kgo"

// Kafka header keys for audit events.
const (
	HeaderEventID   = "ojs-event-id"
	HeaderEventType = "ojs-event-type"
	HeaderInstance  = "ojs-instance"
	HeaderOutcome   = "ojs-outcome"
)

// TopicEvents is the topic audit events are published to.
const TopicEvents = "ojs.monitor.events"

// EventHeaders creates Kafka headers for an audit event.
func EventHeaders(event *AuditEvent) []kgo.RecordHeader {
	return []kgo.RecordHeader{
		{Key: HeaderEventID, Value: []byte(event.ID)},
		{Key: HeaderEventType, Value: []byte(event.EventType)},
		{Key: HeaderInstance, Value: []byte(event.Instance)},
		{Key: HeaderOutcome, Value: []byte(event.Outcome)},
	}
}

// GetHeader retrieves a header value by key from a Kafka record.
func GetHeader(record *kgo.Record, key string) string {
	for _, h := range record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
