// Package queue provides the background job substrate: the persisted job
// model over AIReport and TumorBoardCase rows, a polling worker pool with
// cooperative cancellation, and the process-wide concurrency semaphores.
package queue

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cyno-health/cyno/pkg/config"
)

// JobKind distinguishes the two background job types.
type JobKind string

const (
	KindDocAnalysis JobKind = "doc_analysis"
	KindTumorBoard  JobKind = "tumor_board"
)

// JobStatus is the persisted job state.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether a status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is the in-memory projection of one persisted job row.
type Job struct {
	ID              string
	PatientID       string
	Kind            JobKind
	Status          JobStatus
	ProgressPercent int
	ProgressMessage string
	Error           string
	GeneratedAt     time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	EstimatedSecs   *int
	Result          string // opaque JSON blob
	ReportCount     int
}

// ExecutionResult is returned by a job executor.
type ExecutionResult struct {
	Status JobStatus
	Result string // opaque JSON payload persisted on completion
	Error  error
}

// Executor runs one job kind. Implementations must be safe for concurrent
// use; each call owns its job row exclusively for the duration.
type Executor interface {
	Execute(ctx context.Context, job *Job) *ExecutionResult
}

// Sentinel errors for the polling loop.
var (
	ErrNoJobsAvailable = errors.New("no jobs available")
	ErrAtCapacity      = errors.New("worker pool at capacity")
)

// Semaphores are the process-wide concurrency bounds, created once at
// startup and threaded through the pipelines.
type Semaphores struct {
	// LLM bounds concurrent LLM gateway calls across all jobs.
	LLM *semaphore.Weighted
	// OCR bounds concurrent primary-OCR calls.
	OCR *semaphore.Weighted
}

// NewSemaphores builds the semaphores from configuration.
func NewSemaphores(cfg *config.Settings) *Semaphores {
	return &Semaphores{
		LLM: semaphore.NewWeighted(int64(cfg.MaxConcurrentLLM)),
		OCR: semaphore.NewWeighted(int64(cfg.MaxOCRWorkers)),
	}
}

// WorkerHealth is a snapshot of one worker's state.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}

// PoolHealth aggregates worker pool health for the health endpoint.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	QueueDepth    int            `json:"queue_depth"`
	ActiveJobs    int            `json:"active_jobs"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}
