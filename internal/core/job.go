package core

import (
	"encoding/json"
	"time"
)

// Job is a read projection of a job record in the store.
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Queue       string          `json:"queue"`
	Status      string          `json:"status"`
	Args        json.RawMessage `json:"args,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	EnqueuedAt  string          `json:"enqueued_at,omitempty"`
	StartedAt   string          `json:"started_at,omitempty"`
	EndedAt     string          `json:"ended_at,omitempty"`
	ExcInfo     string          `json:"exc_info,omitempty"`
	Timeout     string          `json:"timeout,omitempty"`
	ResultTTL   string          `json:"result_ttl,omitempty"`
	FailureTTL  string          `json:"failure_ttl,omitempty"`
	TTL         string          `json:"ttl,omitempty"`
}

// ArgsString is the stringified positional arguments used for search.
func (j *Job) ArgsString() string {
	return string(j.Args)
}

// WorkerInfo is a read projection of a worker record.
type WorkerInfo struct {
	Name           string   `json:"name"`
	Hostname       string   `json:"hostname,omitempty"`
	PID            int      `json:"pid"`
	Queues         []string `json:"queues"`
	State          string   `json:"state"`
	CurrentJob     string   `json:"current_job,omitempty"`
	SuccessfulJobs int      `json:"successful_jobs"`
	FailedJobs     int      `json:"failed_jobs"`
	Birth          string   `json:"birth,omitempty"`
	LastHeartbeat  string   `json:"last_heartbeat,omitempty"`
}

// QueueInfo describes a queue and its queued job count.
type QueueInfo struct {
	Name     string `json:"name"`
	JobCount int64  `json:"job_count"`
}

// ItemFailure records one failed unit of a bulk action.
type ItemFailure struct {
	Item  string `json:"item"`
	Error string `json:"error"`
}

// BatchResult reports a bulk action attempted unit by unit.
type BatchResult struct {
	Attempted int           `json:"attempted"`
	Failed    int           `json:"failed"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

// Record counts one attempted unit, recording err when non-nil.
func (r *BatchResult) Record(item string, err error) {
	r.Attempted++
	if err != nil {
		r.Failed++
		r.Failures = append(r.Failures, ItemFailure{Item: item, Error: err.Error()})
	}
}

// Merge folds other into r.
func (r *BatchResult) Merge(other BatchResult) {
	r.Attempted += other.Attempted
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
}

// Succeeded is the number of units that completed.
func (r BatchResult) Succeeded() int {
	return r.Attempted - r.Failed
}

// FormatTime formats t the way timestamps are stored.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NowFormatted returns the current time as a stored timestamp.
func NowFormatted() string {
	return FormatTime(time.Now())
}
