package core

// Partition is one (queue, status) registry.
type Partition struct {
	Queue  string     `json:"queue"`
	Status StatusKind `json:"status"`
}

func (p Partition) String() string {
	return p.Queue + "/" + p.Status.String()
}

// PartitionCount pairs a partition with a count snapshot. The count may be
// stale by the time it is used.
type PartitionCount struct {
	Partition
	Count int64 `json:"count"`
}

// Cursor points at an offset within the partition at Index. Index -1 means
// the window starts beyond every partition.
type Cursor struct {
	Index  int
	Offset int64
}

// EndCursor is the terminal cursor.
var EndCursor = Cursor{Index: -1, Offset: 0}

// IsEnd reports whether c is the terminal cursor.
func (c Cursor) IsEnd() bool {
	return c.Index < 0
}

// Partitions expands queues × statuses in caller order, queue-major.
func Partitions(queues []string, statuses []StatusKind) []Partition {
	out := make([]Partition, 0, len(queues)*len(statuses))
	for _, q := range queues {
		for _, s := range statuses {
			out = append(out, Partition{Queue: q, Status: s})
		}
	}
	return out
}

// TotalCount sums the snapshot counts.
func TotalCount(counts []PartitionCount) int64 {
	var total int64
	for _, c := range counts {
		total += c.Count
	}
	return total
}
