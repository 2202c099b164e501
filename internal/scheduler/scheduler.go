package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// taskTimeout bounds a single run of any background task.
const taskTimeout = 10 * time.Second

// Backend is the work the scheduler drives.
type Backend interface {
	RefreshStats(ctx context.Context) error
	CheckInstances(ctx context.Context) error
}

// Scheduler runs background tasks for the monitor.
type Scheduler struct {
	backend        Backend
	statsSchedule  cron.Schedule
	healthInterval time.Duration
	stop           chan struct{}
	wg             sync.WaitGroup
	stopOnce       sync.Once
}

// ParseSchedule parses a standard five-field cron expression or a descriptor
// such as "@every 15s".
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// New creates a new Scheduler.
func New(backend Backend, statsSchedule cron.Schedule, healthInterval time.Duration) *Scheduler {
	return &Scheduler{
		backend:        backend,
		statsSchedule:  statsSchedule,
		healthInterval: healthInterval,
		stop:           make(chan struct{}),
	}
}

// Start begins all background scheduling goroutines.
func (s *Scheduler) Start() {
	s.wg.Add(2)
	go s.runSchedule("stats-refresher", s.statsSchedule, s.backend.RefreshStats)
	go s.runLoop("instance-health", s.healthInterval, s.backend.CheckInstances)
}

// Stop signals all background goroutines to stop and waits for them to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

func (s *Scheduler) runLoop(name string, interval time.Duration, fn func(context.Context) error) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			runTask(name, fn)
		}
	}
}

func (s *Scheduler) runSchedule(name string, schedule cron.Schedule, fn func(context.Context) error) {
	defer s.wg.Done()

	runTask(name, fn)
	for {
		timer := time.NewTimer(time.Until(schedule.Next(time.Now())))
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
			runTask(name, fn)
		}
	}
}

func runTask(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		slog.Error("scheduler task failed", "task", name, "error", err)
	}
}
