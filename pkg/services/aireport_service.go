package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cyno-health/cyno/ent"
	"github.com/cyno-health/cyno/ent/aireport"
)

// AIReportService manages document-analysis job rows. Handlers submit,
// poll and cancel; only the background executor mutates a processing job.
type AIReportService struct {
	client           *ent.Client
	secondsPerReport int
}

// NewAIReportService creates a new AIReportService.
func NewAIReportService(client *ent.Client, secondsPerReport int) *AIReportService {
	return &AIReportService{client: client, secondsPerReport: secondsPerReport}
}

// Submit enqueues a new analysis job for a patient with reportCount
// uploaded reports. The estimate is reportCount * SECONDS_PER_REPORT.
func (s *AIReportService) Submit(ctx context.Context, patientID string, reportCount int) (*ent.AIReport, error) {
	if patientID == "" {
		return nil, NewValidationError("patient_id", "required")
	}
	if reportCount == 0 {
		return nil, NewValidationError("report_count", "patient has no uploaded reports to analyze")
	}

	created, err := s.client.AIReport.Create().
		SetID(uuid.New().String()).
		SetPatientID(patientID).
		SetStatus(aireport.StatusQueued).
		SetReportCount(reportCount).
		SetEstimatedSeconds(reportCount * s.secondsPerReport).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to create analysis job: %w", err)
	}
	return created, nil
}

// Get returns one job row.
func (s *AIReportService) Get(ctx context.Context, jobID string) (*ent.AIReport, error) {
	row, err := s.client.AIReport.Get(ctx, jobID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query analysis job: %w", err)
	}
	return row, nil
}

// ListByPatient returns a patient's jobs, newest first.
func (s *AIReportService) ListByPatient(ctx context.Context, patientID string) ([]*ent.AIReport, error) {
	return s.client.AIReport.Query().
		Where(aireport.PatientIDEQ(patientID)).
		Order(ent.Desc(aireport.FieldGeneratedAt)).
		All(ctx)
}

// Latest returns the most recent job for a patient.
func (s *AIReportService) Latest(ctx context.Context, patientID string) (*ent.AIReport, error) {
	row, err := s.client.AIReport.Query().
		Where(aireport.PatientIDEQ(patientID)).
		Order(ent.Desc(aireport.FieldGeneratedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query latest job: %w", err)
	}
	return row, nil
}

// CancelByPatient bulk-cancels all queued and processing jobs for a
// patient. In-flight executors observe the cancellation cooperatively; the
// rows are terminal immediately.
func (s *AIReportService) CancelByPatient(ctx context.Context, patientID string) (int, error) {
	n, err := s.client.AIReport.Update().
		Where(
			aireport.PatientIDEQ(patientID),
			aireport.StatusIn(aireport.StatusQueued, aireport.StatusProcessing),
		).
		SetStatus(aireport.StatusCancelled).
		SetCompletedAt(time.Now()).
		Save(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel jobs: %w", err)
	}
	return n, nil
}

// CancelledJobIDs returns IDs of jobs already marked cancelled for a
// patient, so the handler can also cancel their running contexts.
func (s *AIReportService) CancelledJobIDs(ctx context.Context, patientID string) ([]string, error) {
	return s.client.AIReport.Query().
		Where(
			aireport.PatientIDEQ(patientID),
			aireport.StatusEQ(aireport.StatusCancelled),
		).
		IDs(ctx)
}

// Retry re-queues a failed job. Only failed jobs are retryable; progress
// resets for the new processing span.
func (s *AIReportService) Retry(ctx context.Context, jobID string) (*ent.AIReport, error) {
	row, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if row.Status != aireport.StatusFailed {
		return nil, fmt.Errorf("%w: cannot retry job in status %s", ErrInvalidTransition, row.Status)
	}

	updated, err := row.Update().
		SetStatus(aireport.StatusQueued).
		SetProgressPercent(0).
		ClearProgressMessage().
		ClearErrorMessage().
		ClearStartedAt().
		ClearCompletedAt().
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retry job: %w", err)
	}
	return updated, nil
}

// Review marks a completed job as reviewed.
func (s *AIReportService) Review(ctx context.Context, jobID, reviewedBy string) (*ent.AIReport, error) {
	row, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if row.Status != aireport.StatusCompleted {
		return nil, fmt.Errorf("%w: only completed reports can be reviewed", ErrInvalidTransition)
	}

	updated, err := row.Update().
		SetReviewedAt(time.Now()).
		SetReviewedBy(reviewedBy).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to review report: %w", err)
	}
	return updated, nil
}
