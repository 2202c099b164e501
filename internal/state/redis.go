package state

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

const keyPrefix = "ojs:"

// RedisStore implements Store using Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed store and verifies connectivity.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// --- Partitions ---

// CountPartition returns the live size of a partition. Unknown queues have
// no keys and count as empty.
func (s *RedisStore) CountPartition(ctx context.Context, p core.Partition) (int64, error) {
	if p.Status.IsRegistry() {
		return s.client.ZCard(ctx, registryKey(p.Queue, p.Status)).Result()
	}
	return s.client.LLen(ctx, queueKey(p.Queue)).Result()
}

// ListEntryRange returns up to limit job IDs starting at offset. A limit of
// zero or less reads to the end of the partition.
func (s *RedisStore) ListEntryRange(ctx context.Context, p core.Partition, offset, limit int64) ([]string, error) {
	stop := rangeStop(offset, limit)
	if p.Status.IsRegistry() {
		return s.client.ZRange(ctx, registryKey(p.Queue, p.Status), offset, stop).Result()
	}
	return s.client.LRange(ctx, queueKey(p.Queue), offset, stop).Result()
}

// rangeStop is the inclusive stop index for LRANGE/ZRANGE. -1 reads to the
// end, which is also used when offset+limit would overflow.
func rangeStop(offset, limit int64) int64 {
	if limit <= 0 || offset > math.MaxInt64-limit {
		return -1
	}
	return offset + limit - 1
}

// RemoveEntry drops one job ID from a partition, leaving its record alone.
// Reports whether the entry was present.
func (s *RedisStore) RemoveEntry(ctx context.Context, p core.Partition, jobID string) (bool, error) {
	var removed int64
	var err error
	if p.Status.IsRegistry() {
		removed, err = s.client.ZRem(ctx, registryKey(p.Queue, p.Status), jobID).Result()
	} else {
		removed, err = s.client.LRem(ctx, queueKey(p.Queue), 0, jobID).Result()
	}
	return removed > 0, err
}

// ClearPartition removes every entry of a partition and deletes the job
// records it referenced. Returns the number of jobs removed.
func (s *RedisStore) ClearPartition(ctx context.Context, p core.Partition) (int64, error) {
	script := clearQueueScript
	key := queueKey(p.Queue)
	if p.Status.IsRegistry() {
		script = clearRegistryScript
		key = registryKey(p.Queue, p.Status)
	}
	n, err := script.Run(ctx, s.client, []string{key}, jobKeyPrefix()).Int64()
	if err != nil {
		return 0, fmt.Errorf("clearing %s: %w", p, err)
	}
	return n, nil
}

// --- Jobs ---

func (s *RedisStore) GetJob(ctx context.Context, jobID string) (*core.Job, error) {
	data, err := s.client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if len(data) == 0 {
		return nil, core.NewNotFoundError("Job", jobID)
	}
	return hashToJob(jobID, data), nil
}

// FetchJobs loads job records in one round trip. The result is parallel to
// jobIDs; records that no longer exist are nil.
func (s *RedisStore) FetchJobs(ctx context.Context, jobIDs []string) ([]*core.Job, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(jobIDs))
	for i, id := range jobIDs {
		cmds[i] = pipe.HGetAll(ctx, jobKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}

	jobs := make([]*core.Job, len(jobIDs))
	for i, cmd := range cmds {
		jobs[i] = hashToJob(jobIDs[i], cmd.Val())
	}
	return jobs, nil
}

// RequeueJob moves a failed job back onto its queue.
func (s *RedisStore) RequeueJob(ctx context.Context, jobID string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	moved, err := requeueJobScript.Run(ctx, s.client,
		[]string{jobKey(jobID), registryKey(job.Queue, core.StatusFailed), queueKey(job.Queue)},
		jobID, core.NowFormatted(),
	).Int64()
	if err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	if moved == 0 {
		return core.NewInvalidRequestError(fmt.Sprintf("Job %s is not in the failed registry.", jobID),
			map[string]any{"job_id": jobID, "status": job.Status})
	}
	return nil
}

// CancelJob removes a job from its queue without deleting its record.
func (s *RedisStore) CancelJob(ctx context.Context, jobID string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if _, err := s.RemoveEntry(ctx, core.Partition{Queue: job.Queue, Status: core.StatusQueued}, jobID); err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if err := s.client.HSet(ctx, jobKey(jobID), "status", "canceled").Err(); err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	return nil
}

// DeleteJob removes a job from every partition of its queue and deletes its
// record.
func (s *RedisStore) DeleteJob(ctx context.Context, jobID string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	keys := []string{jobKey(jobID), queueKey(job.Queue)}
	for _, st := range core.AllStatuses() {
		if st.IsRegistry() {
			keys = append(keys, registryKey(job.Queue, st))
		}
	}
	return deleteJobScript.Run(ctx, s.client, keys, jobID).Err()
}

// --- Queues ---

func (s *RedisStore) ListQueues(ctx context.Context) ([]core.QueueInfo, error) {
	names, err := s.client.SMembers(ctx, queuesKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(names))
	for i, name := range names {
		cmds[i] = pipe.LLen(ctx, queueKey(name))
	}
	if len(names) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("counting queues: %w", err)
		}
	}

	queues := make([]core.QueueInfo, len(names))
	for i, name := range names {
		queues[i] = core.QueueInfo{Name: name, JobCount: cmds[i].Val()}
	}
	return queues, nil
}

// DeleteQueue clears every partition of a queue and unregisters it.
func (s *RedisStore) DeleteQueue(ctx context.Context, queue string) error {
	for _, st := range core.AllStatuses() {
		if _, err := s.ClearPartition(ctx, core.Partition{Queue: queue, Status: st}); err != nil {
			return err
		}
	}
	return s.client.SRem(ctx, queuesKey(), queue).Err()
}

// --- Workers ---

func (s *RedisStore) LocateWorker(ctx context.Context, name string) (*core.WorkerInfo, error) {
	data, err := s.client.HGetAll(ctx, workerKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("locate worker: %w", err)
	}
	if len(data) == 0 {
		return nil, core.NewNotFoundError("Worker", name)
	}
	return hashToWorker(name, data), nil
}

func (s *RedisStore) ListWorkers(ctx context.Context) ([]*core.WorkerInfo, error) {
	names, err := s.client.SMembers(ctx, workersKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	if len(names) == 0 {
		return []*core.WorkerInfo{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(names))
	for i, name := range names {
		cmds[i] = pipe.HGetAll(ctx, workerKey(name))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}

	workers := make([]*core.WorkerInfo, 0, len(names))
	for i, cmd := range cmds {
		// Registered workers whose hash expired have died without cleanup.
		if len(cmd.Val()) == 0 {
			continue
		}
		workers = append(workers, hashToWorker(names[i], cmd.Val()))
	}
	return workers, nil
}

// --- Health ---

// MemoryUsed returns Redis' human readable used_memory figure.
func (s *RedisStore) MemoryUsed(ctx context.Context) (string, error) {
	info, err := s.client.Info(ctx, "memory").Result()
	if err != nil {
		return "", err
	}
	return parseUsedMemory(info), nil
}

func parseUsedMemory(info string) string {
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := strings.CutPrefix(line, "used_memory_human:"); ok {
			return v
		}
	}
	return "unknown"
}

// --- Fixtures used by workers and tests ---

// SaveJob writes a job record without placing it in any partition.
func (s *RedisStore) SaveJob(ctx context.Context, job *core.Job) error {
	return s.client.HSet(ctx, jobKey(job.ID), jobToHash(job)).Err()
}

// AddToPartition appends a job ID to a partition and registers its queue.
// score orders registry members and is ignored for the queued list.
func (s *RedisStore) AddToPartition(ctx context.Context, p core.Partition, jobID string, score float64) error {
	pipe := s.client.Pipeline()
	if p.Status.IsRegistry() {
		pipe.ZAdd(ctx, registryKey(p.Queue, p.Status), redis.Z{Score: score, Member: jobID})
	} else {
		pipe.RPush(ctx, queueKey(p.Queue), jobID)
	}
	pipe.SAdd(ctx, queuesKey(), p.Queue)
	_, err := pipe.Exec(ctx)
	return err
}

// RegisterWorker writes a worker record.
func (s *RedisStore) RegisterWorker(ctx context.Context, w *core.WorkerInfo) error {
	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, workersKey(), w.Name)
	pipe.HSet(ctx, workerKey(w.Name), workerToHash(w))
	_, err := pipe.Exec(ctx)
	return err
}

// --- Redis key builders ---

func jobKeyPrefix() string         { return keyPrefix + "job:" }
func jobKey(id string) string      { return jobKeyPrefix() + id }
func queueKey(name string) string  { return fmt.Sprintf("%squeue:%s:queued", keyPrefix, name) }
func queuesKey() string            { return keyPrefix + "queues" }
func workerKey(name string) string { return fmt.Sprintf("%sworker:%s", keyPrefix, name) }
func workersKey() string           { return keyPrefix + "workers" }
func registryKey(queue string, st core.StatusKind) string {
	return fmt.Sprintf("%squeue:%s:%s", keyPrefix, queue, st)
}

// --- Serialization ---

func jobToHash(job *core.Job) map[string]any {
	h := map[string]any{
		"id":     job.ID,
		"type":   job.Type,
		"queue":  job.Queue,
		"status": job.Status,
	}
	optional := map[string]string{
		"description": job.Description,
		"created_at":  job.CreatedAt,
		"enqueued_at": job.EnqueuedAt,
		"started_at":  job.StartedAt,
		"ended_at":    job.EndedAt,
		"exc_info":    job.ExcInfo,
		"timeout":     job.Timeout,
		"result_ttl":  job.ResultTTL,
		"failure_ttl": job.FailureTTL,
		"ttl":         job.TTL,
	}
	for k, v := range optional {
		if v != "" {
			h[k] = v
		}
	}
	if len(job.Args) > 0 {
		h["args"] = string(job.Args)
	}
	return h
}

func hashToJob(id string, data map[string]string) *core.Job {
	if len(data) == 0 {
		return nil
	}
	job := &core.Job{
		ID:          id,
		Type:        data["type"],
		Queue:       data["queue"],
		Status:      data["status"],
		Description: data["description"],
		CreatedAt:   data["created_at"],
		EnqueuedAt:  data["enqueued_at"],
		StartedAt:   data["started_at"],
		EndedAt:     data["ended_at"],
		ExcInfo:     data["exc_info"],
		Timeout:     data["timeout"],
		ResultTTL:   data["result_ttl"],
		FailureTTL:  data["failure_ttl"],
		TTL:         data["ttl"],
	}
	if v, ok := data["args"]; ok && v != "" {
		job.Args = []byte(v)
	}
	return job
}

func workerToHash(w *core.WorkerInfo) map[string]any {
	return map[string]any{
		"hostname":        w.Hostname,
		"pid":             strconv.Itoa(w.PID),
		"queues":          strings.Join(w.Queues, ","),
		"state":           w.State,
		"current_job":     w.CurrentJob,
		"successful_jobs": strconv.Itoa(w.SuccessfulJobs),
		"failed_jobs":     strconv.Itoa(w.FailedJobs),
		"birth":           w.Birth,
		"last_heartbeat":  w.LastHeartbeat,
	}
}

func hashToWorker(name string, data map[string]string) *core.WorkerInfo {
	w := &core.WorkerInfo{
		Name:          name,
		Hostname:      data["hostname"],
		State:         data["state"],
		CurrentJob:    data["current_job"],
		Birth:         data["birth"],
		LastHeartbeat: data["last_heartbeat"],
		Queues:        []string{},
	}
	if v := data["pid"]; v != "" {
		w.PID, _ = strconv.Atoi(v)
	}
	if v := data["successful_jobs"]; v != "" {
		w.SuccessfulJobs, _ = strconv.Atoi(v)
	}
	if v := data["failed_jobs"]; v != "" {
		w.FailedJobs, _ = strconv.Atoi(v)
	}
	if v := data["queues"]; v != "" {
		w.Queues = strings.Split(v, ",")
	}
	return w
}
