package events

import (
	"testing"

	"github.com/twmb/franz-go/pkg/kgo"
)

func TestEncodeDecodeEvent(t *testing.T) {
	original := NewAuditEvent(TypeWorkerTerminated, "0", "worker-1", "delivered")
	original.Details = map[string]any{"via": "ssh"}

	encoded, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent error: %v", err)
	}
	decoded, err := DecodeEvent(encoded)
	if err != nil {
		t.Fatalf("DecodeEvent error: %v", err)
	}

	if decoded.ID != original.ID {
		t.Errorf("ID = %q, want %q", decoded.ID, original.ID)
	}
	if decoded.EventType != TypeWorkerTerminated {
		t.Errorf("EventType = %q, want %q", decoded.EventType, TypeWorkerTerminated)
	}
	if decoded.Details["via"] != "ssh" {
		t.Errorf("Details[via] = %v, want ssh", decoded.Details["via"])
	}
}

func TestDecodeEvent_InvalidJSON(t *testing.T) {
	if _, err := DecodeEvent([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestNewAuditEvent_UniqueIDs(t *testing.T) {
	a := NewAuditEvent(TypeJobDeleted, "0", "job-1", "ok")
	b := NewAuditEvent(TypeJobDeleted, "0", "job-1", "ok")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("IDs = %q, %q; want distinct non-empty", a.ID, b.ID)
	}
	if a.Timestamp == "" {
		t.Error("expected timestamp")
	}
}

func TestNewRecord(t *testing.T) {
	event := NewAuditEvent(TypePartitionsCleared, "1", "default/failed", "ok")

	record, err := NewRecord(TopicEvents, event)
	if err != nil {
		t.Fatalf("NewRecord error: %v", err)
	}
	if record.Topic != TopicEvents {
		t.Errorf("Topic = %q, want %q", record.Topic, TopicEvents)
	}
	if string(record.Key) != "default/failed" {
		t.Errorf("Key = %q, want default/failed", record.Key)
	}

	tests := []struct {
		key  string
		want string
	}{
		{HeaderEventID, event.ID},
		{HeaderEventType, TypePartitionsCleared},
		{HeaderInstance, "1"},
		{HeaderOutcome, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := GetHeader(record, tt.key); got != tt.want {
				t.Errorf("GetHeader(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestGetHeader_Missing(t *testing.T) {
	record := &kgo.Record{}
	if got := GetHeader(record, HeaderEventID); got != "" {
		t.Errorf("GetHeader on empty record = %q, want empty", got)
	}
}
