package listing

import (
	"context"
	"fmt"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

// MaxLength is the largest page a single call may request.
const MaxLength = 1000

// maxPrealloc caps the buffers sized from a page request.
const maxPrealloc = 1024

// Store is everything the resolver needs from a store instance.
type Store interface {
	Counter
	Source
}

// Locate finds the partition holding the start-th job of the selection and
// the offset of that job within it. When start is at or past the total count
// it returns core.EndCursor.
func Locate(counts []core.PartitionCount, start int64) core.Cursor {
	if start < 0 {
		start = 0
	}
	var cumulative int64
	for i, c := range counts {
		if c.Count <= 0 {
			continue
		}
		if cumulative+c.Count > start {
			return core.Cursor{Index: i, Offset: start - cumulative}
		}
		cumulative += c.Count
	}
	return core.EndCursor
}

// Resolve returns at most length jobs beginning at the start-th job of the
// selection described by counts. Partitions are walked strictly in order.
// A length outside 1..MaxLength is rejected with an invalid_request error.
//
// Counts are trusted only for locating the first partition. Any shortfall
// found while walking is absorbed by continuing into later partitions, so the
// result may be shorter than length even when more jobs exist. A job that
// moves between partitions during the walk is returned at most once. A
// partition selected twice yields its jobs once per selection.
func Resolve(ctx context.Context, src Source, counts []core.PartitionCount, start, length int64, search string) ([]*core.Job, error) {
	if length <= 0 || length > MaxLength {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("length must be between 1 and %d.", MaxLength),
			map[string]any{"length": length, "max_length": MaxLength})
	}

	jobs := make([]*core.Job, 0, min(length, maxPrealloc))
	cursor := Locate(counts, start)
	if cursor.IsEnd() {
		return jobs, nil
	}

	// seen records where each returned job was found.
	seen := make(map[string]visit, min(length, maxPrealloc))
	offset := cursor.Offset
	for i := cursor.Index; i < len(counts) && int64(len(jobs)) < length; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := counts[i].Partition
		for int64(len(jobs)) < length {
			need := length - int64(len(jobs))
			batch, err := Fetch(ctx, src, p, offset, need, search)
			if err != nil {
				return nil, err
			}
			for _, job := range batch.Jobs {
				if prev, ok := seen[job.ID]; ok && (prev.index == i || prev.partition != p) {
					continue
				}
				seen[job.ID] = visit{index: i, partition: p}
				jobs = append(jobs, job)
			}
			if batch.Scanned < need {
				break
			}
			offset += batch.Scanned
		}
		offset = 0
	}

	if int64(len(jobs)) > length {
		jobs = jobs[:length]
	}
	return jobs, nil
}

type visit struct {
	index     int
	partition core.Partition
}

// Page counts the selected partitions and resolves one window of it. The
// returned total is the sum of the count snapshot.
func Page(ctx context.Context, store Store, partitions []core.Partition, start, length int64, search string) ([]*core.Job, int64, error) {
	counts, err := CountAll(ctx, store, partitions)
	if err != nil {
		return nil, 0, err
	}
	jobs, err := Resolve(ctx, store, counts, start, length, search)
	if err != nil {
		return nil, 0, err
	}
	return jobs, core.TotalCount(counts), nil
}
