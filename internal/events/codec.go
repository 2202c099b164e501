package events

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

// Event types published for operator actions.
const (
	TypeJobDeleted        = "job.deleted"
	TypeJobCanceled       = "job.canceled"
	TypeJobRequeued       = "job.requeued"
	TypeQueueDeleted      = "queue.deleted"
	TypeQueueEmptied      = "queue.emptied"
	TypeQueuesDeleted     = "queues.deleted"
	TypePartitionsCleared = "partitions.cleared"
	TypeFailedRequeued    = "failed.requeued"
	TypeQueuedCanceled    = "queued.canceled"
	TypeWorkerTerminated  = "worker.terminated"
)

// AuditEvent records one destructive action taken from the monitor.
type AuditEvent struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	Instance  string         `json:"instance"`
	Target    string         `json:"target"`
	Outcome   string         `json:"outcome"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// NewAuditEvent stamps a new event with an ID and the current time.
func NewAuditEvent(eventType, instance, target, outcome string) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Instance:  instance,
		Target:    target,
		Outcome:   outcome,
		Timestamp: core.NowFormatted(),
	}
}

// EncodeEvent serializes an audit event for the events topic.
func EncodeEvent(event *AuditEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeEvent deserializes an events topic record value.
func DecodeEvent(data []byte) (*AuditEvent, error) {
	var event AuditEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
