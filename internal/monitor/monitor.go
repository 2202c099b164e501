// Package monitor implements the operations of the dashboard over one or more
// store instances.
package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openjobspec/ojs-monitor/internal/core"
	"github.com/openjobspec/ojs-monitor/internal/events"
	"github.com/openjobspec/ojs-monitor/internal/listing"
	"github.com/openjobspec/ojs-monitor/internal/metrics"
	"github.com/openjobspec/ojs-monitor/internal/remote"
	"github.com/openjobspec/ojs-monitor/internal/state"
)

// Version is the monitor release.
const Version = "0.3.0"

// Instance is one named store the monitor can operate on.
type Instance struct {
	Name  string
	Store state.Store
}

// Terminator delivers termination signals to workers.
type Terminator interface {
	Terminate(ctx context.Context, locator remote.WorkerLocator, worker string) (*remote.Delivery, error)
}

// Monitor serves dashboard operations. Each call names the instance it acts
// on and the instance's store is passed explicitly to every lower layer.
type Monitor struct {
	instances  []Instance
	terminator Terminator
	publisher  events.Publisher
}

// New creates a Monitor. The first instance is the default.
func New(instances []Instance, terminator Terminator, publisher events.Publisher) *Monitor {
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &Monitor{
		instances:  instances,
		terminator: terminator,
		publisher:  publisher,
	}
}

// Instances lists the configured instance names in index order.
func (m *Monitor) Instances() []string {
	names := make([]string, len(m.instances))
	for i, inst := range m.instances {
		names[i] = inst.Name
	}
	return names
}

func (m *Monitor) instance(idx int) (Instance, error) {
	if idx < 0 || idx >= len(m.instances) {
		return Instance{}, core.NewInvalidRequestError(
			fmt.Sprintf("Instance %d does not exist; %d instances are configured.", idx, len(m.instances)),
			map[string]any{"instance": idx},
		)
	}
	return m.instances[idx], nil
}

func (m *Monitor) audit(ctx context.Context, inst Instance, eventType, target string, err error, details map[string]any) {
	outcome := "ok"
	if err != nil {
		outcome = remote.Outcome(err)
	}
	event := events.NewAuditEvent(eventType, inst.Name, target, outcome)
	event.Details = details
	m.publisher.Publish(ctx, event)
}

// Close closes every instance's store.
func (m *Monitor) Close() error {
	var firstErr error
	for _, inst := range m.instances {
		if err := inst.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// --- Health ---

// InstanceHealth is the reachability of one instance.
type InstanceHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse summarizes every instance.
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Instances []InstanceHealth `json:"instances"`
}

func (m *Monitor) Health(ctx context.Context) (*HealthResponse, error) {
	resp := &HealthResponse{Status: "ok", Version: Version}
	var firstErr error
	for _, inst := range m.instances {
		h := InstanceHealth{Name: inst.Name, Status: "ok"}
		if err := inst.Store.Ping(ctx); err != nil {
			h.Status = "error"
			h.Error = err.Error()
			resp.Status = "degraded"
			if firstErr == nil {
				firstErr = err
			}
		}
		resp.Instances = append(resp.Instances, h)
	}
	return resp, firstErr
}

// MemoryUsed reports the store's memory use in human readable form.
func (m *Monitor) MemoryUsed(ctx context.Context, idx int) (string, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return "", err
	}
	return inst.Store.MemoryUsed(ctx)
}

// --- Jobs ---

// JobQuery selects a window of jobs. A nil Queues or Statuses selects every
// queue or status; an empty non-nil slice selects nothing.
type JobQuery struct {
	Queues   []string
	Statuses []core.StatusKind
	Start    int64
	Length   int64
	Search   string
}

// JobPage is one window of the selection. Total is the count snapshot the
// window was located in; Jobs may be shorter than requested when the store
// changed in between.
type JobPage struct {
	Jobs  []*core.Job
	Total int64
}

// ListJobs resolves one page of the selected partitions.
func (m *Monitor) ListJobs(ctx context.Context, idx int, q JobQuery) (*JobPage, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return nil, err
	}

	queues := q.Queues
	if queues == nil {
		queues, err = m.queueNames(ctx, inst)
		if err != nil {
			return nil, err
		}
	}
	statuses := q.Statuses
	if statuses == nil {
		statuses = core.AllStatuses()
	}
	if len(queues) == 0 || len(statuses) == 0 {
		return &JobPage{Jobs: []*core.Job{}}, nil
	}

	jobs, total, err := listing.Page(ctx, inst.Store, core.Partitions(queues, statuses), q.Start, q.Length, q.Search)
	if err != nil {
		return nil, err
	}
	if q.Search == "" && int64(len(jobs)) < q.Length && q.Start+int64(len(jobs)) < total {
		metrics.ShortPages.Inc()
		slog.Debug("job page shortened by concurrent changes", "instance", inst.Name, "start", q.Start, "length", q.Length, "returned", len(jobs), "total", total)
	}
	return &JobPage{Jobs: jobs, Total: total}, nil
}

func (m *Monitor) GetJob(ctx context.Context, idx int, jobID string) (*core.Job, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return nil, err
	}
	return inst.Store.GetJob(ctx, jobID)
}

// DeleteJob removes a job from its partition and deletes its record.
func (m *Monitor) DeleteJob(ctx context.Context, idx int, jobID string) error {
	inst, err := m.instance(idx)
	if err != nil {
		return err
	}
	err = inst.Store.DeleteJob(ctx, jobID)
	m.audit(ctx, inst, events.TypeJobDeleted, jobID, err, nil)
	return err
}

// CancelJob removes a job from its queue, keeping its record.
func (m *Monitor) CancelJob(ctx context.Context, idx int, jobID string) error {
	inst, err := m.instance(idx)
	if err != nil {
		return err
	}
	err = inst.Store.CancelJob(ctx, jobID)
	m.audit(ctx, inst, events.TypeJobCanceled, jobID, err, nil)
	return err
}

// RequeueJob moves a failed job back onto its queue.
func (m *Monitor) RequeueJob(ctx context.Context, idx int, jobID string) error {
	inst, err := m.instance(idx)
	if err != nil {
		return err
	}
	err = inst.Store.RequeueJob(ctx, jobID)
	m.audit(ctx, inst, events.TypeJobRequeued, jobID, err, nil)
	return err
}

// --- Queues ---

func (m *Monitor) ListQueues(ctx context.Context, idx int) ([]core.QueueInfo, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return nil, err
	}
	return inst.Store.ListQueues(ctx)
}

func (m *Monitor) queueNames(ctx context.Context, inst Instance) ([]string, error) {
	queues, err := inst.Store.ListQueues(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing queues: %w", err)
	}
	names := make([]string, len(queues))
	for i, q := range queues {
		names[i] = q.Name
	}
	return names, nil
}

// DeleteQueue removes every job of a queue and the queue itself.
func (m *Monitor) DeleteQueue(ctx context.Context, idx int, queue string) error {
	inst, err := m.instance(idx)
	if err != nil {
		return err
	}
	err = inst.Store.DeleteQueue(ctx, queue)
	m.audit(ctx, inst, events.TypeQueueDeleted, queue, err, nil)
	return err
}

// EmptyQueue removes every queued job of a queue.
func (m *Monitor) EmptyQueue(ctx context.Context, idx int, queue string) error {
	inst, err := m.instance(idx)
	if err != nil {
		return err
	}
	_, err = inst.Store.ClearPartition(ctx, core.Partition{Queue: queue, Status: core.StatusQueued})
	m.audit(ctx, inst, events.TypeQueueEmptied, queue, err, nil)
	return err
}

// --- Workers ---

func (m *Monitor) ListWorkers(ctx context.Context, idx int) ([]*core.WorkerInfo, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return nil, err
	}
	return inst.Store.ListWorkers(ctx)
}

func (m *Monitor) WorkerInfo(ctx context.Context, idx int, name string) (*core.WorkerInfo, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return nil, err
	}
	return inst.Store.LocateWorker(ctx, name)
}

// TerminateWorker signals one worker to shut down.
func (m *Monitor) TerminateWorker(ctx context.Context, idx int, name string) (*remote.Delivery, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return nil, err
	}
	return m.terminate(ctx, inst, name)
}

func (m *Monitor) terminate(ctx context.Context, inst Instance, name string) (*remote.Delivery, error) {
	delivery, err := m.terminator.Terminate(ctx, inst.Store, name)
	outcome := remote.Outcome(err)
	metrics.Terminations.WithLabelValues(outcome).Inc()

	details := map[string]any{}
	if delivery != nil {
		details["via"] = delivery.Via
		details["hostname"] = delivery.Hostname
		details["pid"] = delivery.PID
	}
	if err != nil {
		slog.Warn("worker termination failed", "instance", inst.Name, "worker", name, "outcome", outcome, "error", err)
		if ojsErr, ok := core.AsOJSError(err); ok {
			for k, v := range ojsErr.Details {
				details[k] = v
			}
		}
	} else {
		slog.Info("worker signalled", "instance", inst.Name, "worker", name, "via", delivery.Via, "hostname", delivery.Hostname, "pid", delivery.PID)
	}
	m.audit(ctx, inst, events.TypeWorkerTerminated, name, err, details)
	return delivery, err
}

// --- Background refresh ---

// RefreshStats records the size of every partition and the number of
// registered workers of each instance. An unreachable instance is skipped so
// the others still refresh.
func (m *Monitor) RefreshStats(ctx context.Context) error {
	var firstErr error
	for _, inst := range m.instances {
		if err := refreshInstance(ctx, inst); err != nil {
			slog.Warn("stats refresh failed", "instance", inst.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func refreshInstance(ctx context.Context, inst Instance) error {
	queues, err := inst.Store.ListQueues(ctx)
	if err != nil {
		return err
	}
	names := make([]string, len(queues))
	for i, q := range queues {
		names[i] = q.Name
	}
	counts, err := listing.CountAll(ctx, inst.Store, core.Partitions(names, core.AllStatuses()))
	if err != nil {
		return err
	}
	for _, pc := range counts {
		metrics.PartitionJobs.WithLabelValues(inst.Name, pc.Queue, pc.Status.String()).Set(float64(pc.Count))
	}

	workers, err := inst.Store.ListWorkers(ctx)
	if err != nil {
		return err
	}
	metrics.Workers.WithLabelValues(inst.Name).Set(float64(len(workers)))
	return nil
}

// CheckInstances pings every instance and records which are reachable.
func (m *Monitor) CheckInstances(ctx context.Context) error {
	var firstErr error
	for _, inst := range m.instances {
		up := 1.0
		if err := inst.Store.Ping(ctx); err != nil {
			up = 0
			slog.Error("instance unreachable", "instance", inst.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		metrics.InstanceUp.WithLabelValues(inst.Name).Set(up)
	}
	return firstErr
}
