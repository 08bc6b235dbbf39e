// Package scheduler runs periodic background jobs inside the server process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/fiercfly/proteinHunt/internal/metrics"
)

// ErrUnknownJob is returned by Trigger for a name that was never started.
var ErrUnknownJob = errors.New("unknown job")

const defaultTimeout = 5 * time.Minute

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run. Zero means five minutes.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Locker grants cross-instance exclusivity for a job run. Acquire reports
// false when another holder owns key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type entry struct {
	job Job
	sem *semaphore.Weighted
}

type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*entry
	wg     sync.WaitGroup
	locker Locker
	logger *slog.Logger
}

// New creates a scheduler. locker may be nil for single-instance deployments.
func New(locker Locker, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:   make(map[string]*entry),
		locker: locker,
		logger: logger,
	}
}

// Start runs job once immediately and then every Interval until ctx is
// cancelled. Runs already in flight at cancellation are allowed to finish
// within their own timeout.
func (s *Scheduler) Start(ctx context.Context, job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("scheduler: job needs a name and a run func")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("scheduler: job %s has non-positive interval %v", job.Name, job.Interval)
	}
	if job.Timeout <= 0 {
		job.Timeout = defaultTimeout
	}

	e := &entry{job: job, sem: semaphore.NewWeighted(1)}
	s.mu.Lock()
	if _, exists := s.jobs[job.Name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: job %s already started", job.Name)
	}
	s.jobs[job.Name] = e
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx, e)
	s.logger.Info("Scheduled job", "job", job.Name, "interval", job.Interval)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	s.launch(ctx, e)
	ticker := time.NewTicker(e.job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping job", "job", e.job.Name)
			return
		case <-ticker.C:
			s.launch(ctx, e)
		}
	}
}

// Trigger runs the named job out of band. It reports false when a run of
// that job is already in flight.
func (s *Scheduler) Trigger(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.launch(ctx, e), nil
}

// Jobs returns the names of all started jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Wait blocks until every loop has stopped and every run has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// launch starts a run in the background unless one is already in flight.
func (s *Scheduler) launch(ctx context.Context, e *entry) bool {
	if !e.sem.TryAcquire(1) {
		s.logger.Warn("Job still running, skipping", "job", e.job.Name)
		metrics.ObserveJob(e.job.Name, "skipped", time.Now())
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer e.sem.Release(1)
		s.run(context.WithoutCancel(ctx), e.job)
	}()
	return true
}

func (s *Scheduler) run(parent context.Context, job Job) {
	ctx, cancel := context.WithTimeout(parent, job.Timeout)
	defer cancel()

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, job.Name, job.Timeout)
		if err != nil {
			s.logger.Error("Failed to acquire job lock", "job", job.Name, "error", err)
			metrics.ObserveJob(job.Name, "error", time.Now())
			return
		}
		if !ok {
			s.logger.Info("Job held by another instance, skipping", "job", job.Name)
			metrics.ObserveJob(job.Name, "skipped", time.Now())
			return
		}
		defer release()
	}

	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		s.logger.Error("Job failed", "job", job.Name, "duration", time.Since(start), "error", err)
		metrics.ObserveJob(job.Name, "error", start)
		return
	}
	s.logger.Info("Job finished", "job", job.Name, "duration", time.Since(start))
	metrics.ObserveJob(job.Name, "success", start)
}
