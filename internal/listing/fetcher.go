package listing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

// Source is the read side of the store used to resolve partition ranges.
type Source interface {
	ListEntryRange(ctx context.Context, p core.Partition, offset, limit int64) ([]string, error)
	FetchJobs(ctx context.Context, jobIDs []string) ([]*core.Job, error)
}

// Batch is one fetched range of a partition.
type Batch struct {
	Jobs []*core.Job
	// Scanned is the number of entries read from the partition, including
	// those that vanished or did not match the search.
	Scanned int64
}

// Fetch reads up to limit entries of p starting at offset, resolves them to
// job records, drops records that no longer exist and applies search.
func Fetch(ctx context.Context, src Source, p core.Partition, offset, limit int64, search string) (Batch, error) {
	ids, err := src.ListEntryRange(ctx, p, offset, limit)
	if err != nil {
		return Batch{}, fmt.Errorf("listing %s: %w", p, err)
	}
	if len(ids) == 0 {
		return Batch{}, nil
	}

	records, err := src.FetchJobs(ctx, ids)
	if err != nil {
		return Batch{}, fmt.Errorf("fetching jobs in %s: %w", p, err)
	}

	jobs := make([]*core.Job, 0, len(records))
	for i, job := range records {
		if job == nil {
			// Consumed or moved by a worker since the range was read.
			slog.Debug("job vanished during fetch", "partition", p.String(), "job_id", ids[i])
			continue
		}
		if !Matches(job, search) {
			continue
		}
		jobs = append(jobs, job)
	}
	return Batch{Jobs: jobs, Scanned: int64(len(ids))}, nil
}

// Matches reports whether job satisfies a case-sensitive substring search
// over its stringified arguments or its function name. An empty query
// matches everything.
func Matches(job *core.Job, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(job.ArgsString(), search) || strings.Contains(job.Type, search)
}
