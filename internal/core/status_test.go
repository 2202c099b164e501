package core

import (
	"encoding/json"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		want    StatusKind
		wantErr bool
	}{
		{"queued", StatusQueued, false},
		{"started", StatusStarted, false},
		{"finished", StatusFinished, false},
		{"failed", StatusFailed, false},
		{"deferred", StatusDeferred, false},
		{"scheduled", StatusScheduled, false},
		{"Failed", 0, true},
		{"", 0, true},
		{"canceled", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStatus(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !HasCode(err, ErrCodeInvalidRequest) {
				t.Errorf("expected invalid_request, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestAllStatuses_RoundTripNames(t *testing.T) {
	all := AllStatuses()
	if len(all) != 6 {
		t.Fatalf("got %d statuses, want 6", len(all))
	}
	seen := map[StatusKind]bool{}
	for _, s := range all {
		if seen[s] {
			t.Errorf("status %v listed twice", s)
		}
		seen[s] = true
		parsed, err := ParseStatus(s.String())
		if err != nil || parsed != s {
			t.Errorf("ParseStatus(%q) = %v, %v", s.String(), parsed, err)
		}
	}
	if all[0] != StatusQueued {
		t.Errorf("first status = %v, want queued", all[0])
	}
}

func TestStatusKind_IsRegistry(t *testing.T) {
	if StatusQueued.IsRegistry() {
		t.Error("queued is a list, not a registry")
	}
	for _, s := range []StatusKind{StatusStarted, StatusFinished, StatusFailed, StatusDeferred, StatusScheduled} {
		if !s.IsRegistry() {
			t.Errorf("%v should be a registry", s)
		}
	}
}

func TestStatusKind_JSON(t *testing.T) {
	data, err := json.Marshal(Partition{Queue: "default", Status: StatusFailed})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"queue":"default","status":"failed"}` {
		t.Errorf("got %s", data)
	}

	var p Partition
	if err := json.Unmarshal([]byte(`{"queue":"high","status":"exploded"}`), &p); err == nil {
		t.Error("expected unknown status to fail decoding")
	}
}

func TestStatusKind_StringOutOfRange(t *testing.T) {
	if got := StatusKind(42).String(); got != "status(42)" {
		t.Errorf("got %q", got)
	}
}
