// Package listing pages through jobs spread across an ordered selection of
// (queue, status) partitions without materializing the full selection.
//
// The store is shared with worker processes that move and consume jobs while
// a page is being built. Counts are read once, up front, and never
// re-validated: a partition that shrank between count and fetch simply yields
// fewer jobs and the walk continues into the next partition. Pages can
// therefore come back short near the tail, and repeated identical requests
// are not guaranteed to return identical pages while the store is changing.
package listing

import (
	"context"
	"fmt"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

// Counter reads the live size of a partition.
type Counter interface {
	CountPartition(ctx context.Context, p core.Partition) (int64, error)
}

// Count returns the number of jobs in a partition. Queues that do not exist
// count as empty.
func Count(ctx context.Context, store Counter, p core.Partition) (int64, error) {
	n, err := store.CountPartition(ctx, p)
	if err != nil {
		if core.HasCode(err, core.ErrCodeNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("counting %s: %w", p, err)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// CountAll snapshots the count of each partition, preserving order.
// Duplicates are counted independently.
func CountAll(ctx context.Context, store Counter, partitions []core.Partition) ([]core.PartitionCount, error) {
	counts := make([]core.PartitionCount, 0, len(partitions))
	for _, p := range partitions {
		n, err := Count(ctx, store, p)
		if err != nil {
			return nil, err
		}
		counts = append(counts, core.PartitionCount{Partition: p, Count: n})
	}
	return counts, nil
}
