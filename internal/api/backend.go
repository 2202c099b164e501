package api

import (
	"context"

	"github.com/openjobspec/ojs-monitor/internal/core"
	"github.com/openjobspec/ojs-monitor/internal/monitor"
	"github.com/openjobspec/ojs-monitor/internal/remote"
)

// Backend is the set of dashboard operations the HTTP handlers serve.
// *monitor.Monitor implements it.
type Backend interface {
	Instances() []string
	Health(ctx context.Context) (*monitor.HealthResponse, error)
	MemoryUsed(ctx context.Context, idx int) (string, error)

	ListJobs(ctx context.Context, idx int, q monitor.JobQuery) (*monitor.JobPage, error)
	GetJob(ctx context.Context, idx int, jobID string) (*core.Job, error)
	DeleteJob(ctx context.Context, idx int, jobID string) error
	CancelJob(ctx context.Context, idx int, jobID string) error
	RequeueJob(ctx context.Context, idx int, jobID string) error

	ListQueues(ctx context.Context, idx int) ([]core.QueueInfo, error)
	DeleteQueue(ctx context.Context, idx int, queue string) error
	EmptyQueue(ctx context.Context, idx int, queue string) error

	ListWorkers(ctx context.Context, idx int) ([]*core.WorkerInfo, error)
	WorkerInfo(ctx context.Context, idx int, name string) (*core.WorkerInfo, error)
	TerminateWorker(ctx context.Context, idx int, name string) (*remote.Delivery, error)

	ClearPartitions(ctx context.Context, idx int, queues []string, statuses []core.StatusKind) (core.BatchResult, error)
	RequeueAllFailed(ctx context.Context, idx int, queues []string) (core.BatchResult, error)
	CancelAllQueued(ctx context.Context, idx int, queues []string) (core.BatchResult, error)
	DeleteQueues(ctx context.Context, idx int, queues []string) (core.BatchResult, error)
	TerminateWorkers(ctx context.Context, idx int, names []string, all bool) (core.BatchResult, error)
}

var _ Backend = (*monitor.Monitor)(nil)
