package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"

	"github.com/cyno-health/cyno/ent"
	"github.com/cyno-health/cyno/ent/aireport"
	"github.com/cyno-health/cyno/ent/tumorboardcase"
)

// Store is the job persistence surface the workers depend on. The concrete
// implementation projects AIReport and TumorBoardCase rows into Jobs.
type Store interface {
	// ClaimNext atomically claims the oldest queued job and transitions it
	// to processing. Returns ErrNoJobsAvailable when the queue is empty.
	ClaimNext(ctx context.Context) (*Job, error)
	// UpdateProgress writes a progress checkpoint. Progress is monotonic
	// within one processing span; stale lower values are ignored.
	UpdateProgress(ctx context.Context, job *Job, percent int, message string) error
	// Finish writes the terminal state for a job the caller owns. It never
	// overwrites a cancellation already recorded on the row.
	Finish(ctx context.Context, job *Job, result *ExecutionResult) error
	// QueueDepth counts queued jobs across both kinds.
	QueueDepth(ctx context.Context) (int, error)
	// CountProcessing counts in-flight jobs across both kinds.
	CountProcessing(ctx context.Context) (int, error)
}

// EntStore implements Store over the Ent client.
type EntStore struct {
	client *ent.Client
}

// NewEntStore creates the persisted job store.
func NewEntStore(client *ent.Client) *EntStore {
	return &EntStore{client: client}
}

// ClaimNext prefers document-analysis jobs, then board jobs, oldest first.
// Claiming uses FOR UPDATE SKIP LOCKED so concurrent workers never hand the
// same row to two executors.
func (s *EntStore) ClaimNext(ctx context.Context) (*Job, error) {
	if job, err := s.claimAIReport(ctx); err == nil {
		return job, nil
	} else if !errors.Is(err, ErrNoJobsAvailable) {
		return nil, err
	}
	return s.claimTumorBoard(ctx)
}

func (s *EntStore) claimAIReport(ctx context.Context) (*Job, error) {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := tx.AIReport.Query().
		Where(aireport.StatusEQ(aireport.StatusQueued)).
		Order(ent.Asc(aireport.FieldGeneratedAt)).
		Limit(1).
		ForUpdate(sql.WithLockAction(sql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("failed to query queued analysis jobs: %w", err)
	}

	now := time.Now()
	row, err = row.Update().
		SetStatus(aireport.StatusProcessing).
		SetStartedAt(now).
		SetProgressPercent(0).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to claim analysis job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	return aiReportToJob(row), nil
}

func (s *EntStore) claimTumorBoard(ctx context.Context) (*Job, error) {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := tx.TumorBoardCase.Query().
		Where(tumorboardcase.StatusEQ(tumorboardcase.StatusQueued)).
		Order(ent.Asc(tumorboardcase.FieldCreatedAt)).
		Limit(1).
		ForUpdate(sql.WithLockAction(sql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("failed to query queued board jobs: %w", err)
	}

	now := time.Now()
	row, err = row.Update().
		SetStatus(tumorboardcase.StatusProcessing).
		SetStartedAt(now).
		SetProgressPercent(0).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to claim board job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	return boardCaseToJob(row), nil
}

// UpdateProgress writes a checkpoint, keeping progress monotonic within the
// current processing span.
func (s *EntStore) UpdateProgress(ctx context.Context, job *Job, percent int, message string) error {
	if percent < job.ProgressPercent {
		return nil
	}
	job.ProgressPercent = percent
	job.ProgressMessage = message

	switch job.Kind {
	case KindDocAnalysis:
		return s.client.AIReport.UpdateOneID(job.ID).
			SetProgressPercent(percent).
			SetProgressMessage(message).
			Exec(ctx)
	case KindTumorBoard:
		return s.client.TumorBoardCase.UpdateOneID(job.ID).
			SetProgressPercent(percent).
			SetProgressMessage(message).
			Exec(ctx)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// Finish records the terminal state. If a cancellation request already moved
// the row to cancelled, the row keeps that status regardless of how the
// executor finished.
func (s *EntStore) Finish(ctx context.Context, job *Job, result *ExecutionResult) error {
	now := time.Now()

	switch job.Kind {
	case KindDocAnalysis:
		current, err := s.client.AIReport.Get(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("failed to load job for finish: %w", err)
		}
		if current.Status == aireport.StatusCancelled {
			if current.CompletedAt == nil {
				return s.client.AIReport.UpdateOneID(job.ID).SetCompletedAt(now).Exec(ctx)
			}
			return nil
		}

		update := s.client.AIReport.UpdateOneID(job.ID).
			SetStatus(aireport.Status(result.Status)).
			SetCompletedAt(now)
		if result.Status == StatusCompleted {
			update = update.SetProgressPercent(100)
		}
		if result.Result != "" {
			update = update.SetKeyFindings(result.Result)
		}
		if result.Error != nil {
			update = update.SetErrorMessage(result.Error.Error())
		}
		return update.Exec(ctx)

	case KindTumorBoard:
		current, err := s.client.TumorBoardCase.Get(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("failed to load job for finish: %w", err)
		}
		if current.Status == tumorboardcase.StatusCancelled {
			if current.CompletedAt == nil {
				return s.client.TumorBoardCase.UpdateOneID(job.ID).SetCompletedAt(now).Exec(ctx)
			}
			return nil
		}

		update := s.client.TumorBoardCase.UpdateOneID(job.ID).
			SetStatus(tumorboardcase.Status(result.Status)).
			SetCompletedAt(now)
		if result.Status == StatusCompleted {
			update = update.SetProgressPercent(100)
		}
		if result.Result != "" {
			update = update.SetAiTumorBoardJSON(result.Result)
		}
		if result.Error != nil {
			update = update.SetErrorMessage(result.Error.Error())
		}
		return update.Exec(ctx)

	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// QueueDepth counts queued jobs across both kinds.
func (s *EntStore) QueueDepth(ctx context.Context) (int, error) {
	analysis, err := s.client.AIReport.Query().
		Where(aireport.StatusEQ(aireport.StatusQueued)).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	board, err := s.client.TumorBoardCase.Query().
		Where(tumorboardcase.StatusEQ(tumorboardcase.StatusQueued)).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	return analysis + board, nil
}

// CountProcessing counts in-flight jobs across both kinds.
func (s *EntStore) CountProcessing(ctx context.Context) (int, error) {
	analysis, err := s.client.AIReport.Query().
		Where(aireport.StatusEQ(aireport.StatusProcessing)).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	board, err := s.client.TumorBoardCase.Query().
		Where(tumorboardcase.StatusEQ(tumorboardcase.StatusProcessing)).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	return analysis + board, nil
}

func aiReportToJob(row *ent.AIReport) *Job {
	job := &Job{
		ID:              row.ID,
		PatientID:       row.PatientID,
		Kind:            KindDocAnalysis,
		Status:          JobStatus(row.Status),
		ProgressPercent: row.ProgressPercent,
		GeneratedAt:     row.GeneratedAt,
		StartedAt:       row.StartedAt,
		CompletedAt:     row.CompletedAt,
		EstimatedSecs:   row.EstimatedSeconds,
		ReportCount:     row.ReportCount,
	}
	if row.ProgressMessage != nil {
		job.ProgressMessage = *row.ProgressMessage
	}
	if row.ErrorMessage != nil {
		job.Error = *row.ErrorMessage
	}
	if row.KeyFindings != nil {
		job.Result = *row.KeyFindings
	}
	return job
}

func boardCaseToJob(row *ent.TumorBoardCase) *Job {
	job := &Job{
		ID:              row.ID,
		PatientID:       row.PatientID,
		Kind:            KindTumorBoard,
		Status:          JobStatus(row.Status),
		ProgressPercent: row.ProgressPercent,
		GeneratedAt:     row.CreatedAt,
		StartedAt:       row.StartedAt,
		CompletedAt:     row.CompletedAt,
	}
	if row.ProgressMessage != nil {
		job.ProgressMessage = *row.ProgressMessage
	}
	if row.ErrorMessage != nil {
		job.Error = *row.ErrorMessage
	}
	if row.AiTumorBoardJSON != nil {
		job.Result = *row.AiTumorBoardJSON
	}
	return job
}
