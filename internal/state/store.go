package state

import (
	"context"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

// Store is the monitor's view of a job-queue store that worker processes
// mutate concurrently. No operation is transactional with respect to any
// other; callers must tolerate drift between reads.
type Store interface {
	// Partitions
	CountPartition(ctx context.Context, p core.Partition) (int64, error)
	ListEntryRange(ctx context.Context, p core.Partition, offset, limit int64) ([]string, error)
	RemoveEntry(ctx context.Context, p core.Partition, jobID string) (bool, error)
	ClearPartition(ctx context.Context, p core.Partition) (int64, error)

	// Jobs
	GetJob(ctx context.Context, jobID string) (*core.Job, error)
	FetchJobs(ctx context.Context, jobIDs []string) ([]*core.Job, error)
	RequeueJob(ctx context.Context, jobID string) error
	CancelJob(ctx context.Context, jobID string) error
	DeleteJob(ctx context.Context, jobID string) error

	// Queues
	ListQueues(ctx context.Context) ([]core.QueueInfo, error)
	DeleteQueue(ctx context.Context, queue string) error

	// Workers
	LocateWorker(ctx context.Context, name string) (*core.WorkerInfo, error)
	ListWorkers(ctx context.Context) ([]*core.WorkerInfo, error)

	// Health
	Ping(ctx context.Context) error
	MemoryUsed(ctx context.Context) (string, error)

	Close() error
}
