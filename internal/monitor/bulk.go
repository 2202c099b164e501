package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openjobspec/ojs-monitor/internal/core"
	"github.com/openjobspec/ojs-monitor/internal/events"
	"github.com/openjobspec/ojs-monitor/internal/metrics"
)

// Bulk actions attempt every unit independently. A failing unit is counted
// and reported; it never stops the remaining units.

const (
	actionClear         = "clear_partitions"
	actionRequeueFailed = "requeue_failed"
	actionCancelQueued  = "cancel_queued"
	actionDeleteQueues  = "delete_queues"
	actionTerminateMany = "terminate_workers"
)

func recordBulk(action string, result core.BatchResult) {
	metrics.BulkItems.WithLabelValues(action).Add(float64(result.Attempted))
	metrics.BulkFailures.WithLabelValues(action).Add(float64(result.Failed))
	if result.Failed > 0 {
		slog.Warn("bulk action partially failed", "action", action, "attempted", result.Attempted, "failed", result.Failed)
	}
}

func bulkDetails(result core.BatchResult) map[string]any {
	return map[string]any{"attempted": result.Attempted, "failed": result.Failed}
}

// selectQueues resolves a nil selection to every registered queue.
func (m *Monitor) selectQueues(ctx context.Context, inst Instance, queues []string) ([]string, error) {
	if queues != nil {
		return queues, nil
	}
	return m.queueNames(ctx, inst)
}

// ClearPartitions empties every selected (queue, status) partition and
// deletes the jobs they held. Each partition is one unit. Nil queues or
// statuses select all of them.
func (m *Monitor) ClearPartitions(ctx context.Context, idx int, queues []string, statuses []core.StatusKind) (core.BatchResult, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return core.BatchResult{}, err
	}
	if queues, err = m.selectQueues(ctx, inst, queues); err != nil {
		return core.BatchResult{}, err
	}
	if statuses == nil {
		statuses = core.AllStatuses()
	}

	var result core.BatchResult
	for _, p := range core.Partitions(queues, statuses) {
		_, err := inst.Store.ClearPartition(ctx, p)
		result.Record(p.String(), err)
	}
	recordBulk(actionClear, result)
	m.audit(ctx, inst, events.TypePartitionsCleared, fmt.Sprintf("%v", queues), nil, bulkDetails(result))
	return result, nil
}

// RequeueAllFailed requeues every job in the failed registry of each queue,
// or of every queue when queues is nil.
// Each job is one unit; a queue whose registry cannot be read counts as one
// failed unit.
func (m *Monitor) RequeueAllFailed(ctx context.Context, idx int, queues []string) (core.BatchResult, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return core.BatchResult{}, err
	}
	if queues, err = m.selectQueues(ctx, inst, queues); err != nil {
		return core.BatchResult{}, err
	}

	var result core.BatchResult
	for _, queue := range queues {
		p := core.Partition{Queue: queue, Status: core.StatusFailed}
		ids, err := inst.Store.ListEntryRange(ctx, p, 0, 0)
		if err != nil {
			result.Record(p.String(), err)
			continue
		}
		for _, id := range ids {
			result.Record(id, inst.Store.RequeueJob(ctx, id))
		}
	}
	recordBulk(actionRequeueFailed, result)
	m.audit(ctx, inst, events.TypeFailedRequeued, fmt.Sprintf("%v", queues), nil, bulkDetails(result))
	return result, nil
}

// CancelAllQueued cancels every queued job of each queue, or of every queue
// when queues is nil.
func (m *Monitor) CancelAllQueued(ctx context.Context, idx int, queues []string) (core.BatchResult, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return core.BatchResult{}, err
	}
	if queues, err = m.selectQueues(ctx, inst, queues); err != nil {
		return core.BatchResult{}, err
	}

	var result core.BatchResult
	for _, queue := range queues {
		p := core.Partition{Queue: queue, Status: core.StatusQueued}
		ids, err := inst.Store.ListEntryRange(ctx, p, 0, 0)
		if err != nil {
			result.Record(p.String(), err)
			continue
		}
		for _, id := range ids {
			result.Record(id, inst.Store.CancelJob(ctx, id))
		}
	}
	recordBulk(actionCancelQueued, result)
	m.audit(ctx, inst, events.TypeQueuedCanceled, fmt.Sprintf("%v", queues), nil, bulkDetails(result))
	return result, nil
}

// DeleteQueues deletes each selected queue with all of its jobs and
// unregisters it, or every registered queue when queues is nil. Each queue is
// one unit.
func (m *Monitor) DeleteQueues(ctx context.Context, idx int, queues []string) (core.BatchResult, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return core.BatchResult{}, err
	}
	if queues, err = m.selectQueues(ctx, inst, queues); err != nil {
		return core.BatchResult{}, err
	}

	var result core.BatchResult
	for _, queue := range queues {
		result.Record(queue, inst.Store.DeleteQueue(ctx, queue))
	}
	recordBulk(actionDeleteQueues, result)
	m.audit(ctx, inst, events.TypeQueuesDeleted, fmt.Sprintf("%v", queues), nil, bulkDetails(result))
	return result, nil
}

// TerminateWorkers signals each named worker, or every registered worker
// when all is set.
func (m *Monitor) TerminateWorkers(ctx context.Context, idx int, names []string, all bool) (core.BatchResult, error) {
	inst, err := m.instance(idx)
	if err != nil {
		return core.BatchResult{}, err
	}

	if all {
		workers, err := inst.Store.ListWorkers(ctx)
		if err != nil {
			return core.BatchResult{}, fmt.Errorf("listing workers: %w", err)
		}
		names = names[:0:0]
		for _, w := range workers {
			names = append(names, w.Name)
		}
	}

	var result core.BatchResult
	for _, name := range names {
		_, err := m.terminate(ctx, inst, name)
		result.Record(name, err)
	}
	recordBulk(actionTerminateMany, result)
	return result, nil
}
