package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// jobTimeout bounds a single job execution end to end.
const jobTimeout = 30 * time.Minute

// pollInterval is the base queue poll cadence; jitter spreads concurrent
// workers apart.
const (
	pollInterval       = 2 * time.Second
	pollIntervalJitter = 500 * time.Millisecond
)

// JobRegistry is the subset of WorkerPool used by Worker for cancellation
// registration.
type JobRegistry interface {
	RegisterJob(jobID string, cancel context.CancelFunc)
	UnregisterJob(jobID string)
}

// Worker is a single queue worker that polls for and processes jobs.
type Worker struct {
	id        string
	store     Store
	executors map[JobKind]Executor
	pool      JobRegistry
	maxActive int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker creates a queue worker dispatching to the given executors.
func NewWorker(id string, store Store, executors map[JobKind]Executor, pool JobRegistry, maxActive int) *Worker {
	return &Worker{
		id:           id,
		store:        store,
		executors:    executors,
		pool:         pool,
		maxActive:    maxActive,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish its current
// job. Safe to call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health snapshot.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(jitteredPollInterval())
					continue
				}
				log.Error("Error processing job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) pollAndProcess(ctx context.Context) error {
	// Best-effort capacity check; racy with concurrent workers but bounded
	// by the worker count and mitigated by poll jitter.
	active, err := w.store.CountProcessing(ctx)
	if err != nil {
		return fmt.Errorf("checking active jobs: %w", err)
	}
	if active >= w.maxActive {
		return ErrAtCapacity
	}

	job, err := w.store.ClaimNext(ctx)
	if err != nil {
		return err
	}

	log := slog.With("job_id", job.ID, "kind", job.Kind, "worker_id", w.id)
	log.Info("Job claimed")

	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	executor, ok := w.executors[job.Kind]
	if !ok {
		result := &ExecutionResult{
			Status: StatusFailed,
			Error:  fmt.Errorf("no executor registered for job kind %q", job.Kind),
		}
		return w.store.Finish(context.Background(), job, result)
	}

	jobCtx, cancelJob := context.WithTimeout(ctx, jobTimeout)
	defer cancelJob()

	w.pool.RegisterJob(job.ID, cancelJob)
	defer w.pool.UnregisterJob(job.ID)

	result := executor.Execute(jobCtx, job)

	// Nil-guard: synthesize a safe result if the executor returned nil.
	if result == nil {
		switch {
		case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
			result = &ExecutionResult{
				Status: StatusFailed,
				Error:  fmt.Errorf("job timed out after %v", jobTimeout),
			}
		case errors.Is(jobCtx.Err(), context.Canceled):
			result = &ExecutionResult{Status: StatusCancelled, Error: context.Canceled}
		default:
			result = &ExecutionResult{
				Status: StatusFailed,
				Error:  fmt.Errorf("executor returned nil result"),
			}
		}
	}

	// Map a cancellation surfaced as an error onto the cancelled status.
	if result.Error != nil && errors.Is(result.Error, context.Canceled) {
		result.Status = StatusCancelled
	}

	// Terminal write uses a background context; jobCtx may be cancelled.
	if err := w.store.Finish(context.Background(), job, result); err != nil {
		log.Error("Failed to record job terminal status", "error", err)
		return err
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("Job processing complete", "status", result.Status)
	return nil
}

func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}

// jitteredPollInterval returns the poll duration with +/- jitter.
func jitteredPollInterval() time.Duration {
	offset := time.Duration(rand.Int64N(int64(2 * pollIntervalJitter)))
	return pollInterval - pollIntervalJitter + offset
}
