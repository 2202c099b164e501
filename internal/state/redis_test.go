package state

import (
	"math"
	"testing"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

func TestParseUsedMemory(t *testing.T) {
	info := "# Memory\r\nused_memory:1015856\r\nused_memory_human:992.05K\r\nused_memory_rss:4161536\r\n"
	if got := parseUsedMemory(info); got != "992.05K" {
		t.Errorf("parseUsedMemory = %q, want %q", got, "992.05K")
	}
	if got := parseUsedMemory("# Memory\r\n"); got != "unknown" {
		t.Errorf("parseUsedMemory(empty) = %q, want unknown", got)
	}
}

func TestRegistryKeys(t *testing.T) {
	tests := []struct {
		status core.StatusKind
		want   string
	}{
		{core.StatusStarted, "ojs:queue:default:started"},
		{core.StatusFinished, "ojs:queue:default:finished"},
		{core.StatusFailed, "ojs:queue:default:failed"},
		{core.StatusDeferred, "ojs:queue:default:deferred"},
		{core.StatusScheduled, "ojs:queue:default:scheduled"},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := registryKey("default", tt.status); got != tt.want {
				t.Errorf("registryKey = %q, want %q", got, tt.want)
			}
		})
	}
	if got := queueKey("default"); got != "ojs:queue:default:queued" {
		t.Errorf("queueKey = %q", got)
	}
}

func TestHashToWorker(t *testing.T) {
	w := hashToWorker("w1", map[string]string{
		"hostname":        "host-a",
		"pid":             "99",
		"queues":          "a,b",
		"successful_jobs": "7",
	})
	if w.Hostname != "host-a" || w.PID != 99 || w.SuccessfulJobs != 7 || len(w.Queues) != 2 {
		t.Errorf("hashToWorker = %+v", w)
	}

	empty := hashToWorker("w2", map[string]string{"pid": "5"})
	if empty.Hostname != "" {
		t.Errorf("absent hostname should stay empty, got %q", empty.Hostname)
	}
}

func TestRangeStop(t *testing.T) {
	tests := []struct {
		name          string
		offset, limit int64
		want          int64
	}{
		{"window", 2, 3, 4},
		{"first entry", 0, 1, 0},
		{"to end", 5, 0, -1},
		{"negative limit", 5, -1, -1},
		{"limit near max", 1, math.MaxInt64, -1},
		{"offset and limit overflow", math.MaxInt64 / 2, math.MaxInt64/2 + 2, -1},
		{"largest exact", 0, math.MaxInt64, math.MaxInt64 - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rangeStop(tt.offset, tt.limit); got != tt.want {
				t.Errorf("rangeStop(%d, %d) = %d, want %d", tt.offset, tt.limit, got, tt.want)
			}
		})
	}
}
