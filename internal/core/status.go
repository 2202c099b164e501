package core

import "fmt"

// StatusKind identifies one status registry of a queue.
type StatusKind int

const (
	StatusQueued StatusKind = iota
	StatusStarted
	StatusFinished
	StatusFailed
	StatusDeferred
	StatusScheduled
)

var statusNames = [...]string{
	StatusQueued:    "queued",
	StatusStarted:   "started",
	StatusFinished:  "finished",
	StatusFailed:    "failed",
	StatusDeferred:  "deferred",
	StatusScheduled: "scheduled",
}

// AllStatuses lists every status kind in dashboard order.
func AllStatuses() []StatusKind {
	return []StatusKind{StatusQueued, StatusFinished, StatusFailed, StatusStarted, StatusDeferred, StatusScheduled}
}

func (s StatusKind) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// IsRegistry reports whether the status is kept in a scored registry rather
// than the FIFO queue list.
func (s StatusKind) IsRegistry() bool {
	return s != StatusQueued
}

// ParseStatus maps a status name to its kind.
func ParseStatus(name string) (StatusKind, error) {
	for i, n := range statusNames {
		if n == name {
			return StatusKind(i), nil
		}
	}
	return 0, NewInvalidRequestError(fmt.Sprintf("Unknown job status %q.", name), map[string]any{"status": name})
}

// ParseStatuses parses a list of status names, keeping caller order.
func ParseStatuses(names []string) ([]StatusKind, error) {
	out := make([]StatusKind, 0, len(names))
	for _, n := range names {
		s, err := ParseStatus(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (s StatusKind) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *StatusKind) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
