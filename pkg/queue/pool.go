package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// WorkerPool manages a pool of queue workers and the registry of cancel
// functions for in-flight jobs.
type WorkerPool struct {
	store       Store
	executors   map[JobKind]Executor
	workerCount int
	workers     []*Worker

	// Job cancel registry: job_id -> cancel function.
	activeJobs map[string]context.CancelFunc
	mu         sync.RWMutex
	started    bool
}

// NewWorkerPool creates a pool of workerCount workers.
func NewWorkerPool(store Store, executors map[JobKind]Executor, workerCount int) *WorkerPool {
	return &WorkerPool{
		store:       store,
		executors:   executors,
		workerCount: workerCount,
		workers:     make([]*Worker, 0, workerCount),
		activeJobs:  make(map[string]context.CancelFunc),
	}
}

// Start spawns the worker goroutines. Safe to call multiple times;
// subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("Worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	slog.Info("Starting worker pool", "worker_count", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		worker := NewWorker(fmt.Sprintf("worker-%d", i), p.store, p.executors, p, p.workerCount)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}
}

// Stop signals all workers to stop and waits for current jobs to finish.
func (p *WorkerPool) Stop() {
	slog.Info("Stopping worker pool gracefully")
	for _, worker := range p.workers {
		worker.Stop()
	}
	slog.Info("Worker pool stopped")
}

// RegisterJob stores a cancel function for API-triggered cancellation.
func (p *WorkerPool) RegisterJob(jobID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeJobs[jobID] = cancel
}

// UnregisterJob removes the cancel function when processing ends.
func (p *WorkerPool) UnregisterJob(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeJobs, jobID)
}

// CancelJob triggers context cancellation for an in-flight job. Returns
// true when the job was running here; a queued job is cancelled purely via
// its DB row, so false is not an error.
func (p *WorkerPool) CancelJob(jobID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeJobs[jobID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns the current pool health snapshot.
func (p *WorkerPool) Health(ctx context.Context) *PoolHealth {
	queueDepth, err := p.store.QueueDepth(ctx)
	if err != nil {
		slog.Error("Failed to query queue depth for health check", "error", err)
	}
	activeJobs, err := p.store.CountProcessing(ctx)
	if err != nil {
		slog.Error("Failed to query active jobs for health check", "error", err)
	}

	stats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats[i] = worker.Health()
		if stats[i].Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	return &PoolHealth{
		IsHealthy:     len(p.workers) > 0,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		QueueDepth:    queueDepth,
		ActiveJobs:    activeJobs,
		WorkerStats:   stats,
	}
}
