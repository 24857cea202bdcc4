package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cyno-health/cyno/ent"
	"github.com/cyno-health/cyno/ent/aireport"
	"github.com/cyno-health/cyno/ent/tumorboardcase"
)

// TumorBoardService manages board cases: clinician-facing CRUD plus the AI
// job lifecycle (submit, poll, cancel, retry). Deletion is always the
// soft-delete status, never a row removal.
type TumorBoardService struct {
	client *ent.Client
}

// NewTumorBoardService creates a new TumorBoardService.
func NewTumorBoardService(client *ent.Client) *TumorBoardService {
	return &TumorBoardService{client: client}
}

// Create opens a new board case for a patient, seeding the AI summary from
// the latest completed analysis job when one exists.
func (s *TumorBoardService) Create(ctx context.Context, patientID, hospitalID string) (*ent.TumorBoardCase, error) {
	if patientID == "" {
		return nil, NewValidationError("patient_id", "required")
	}
	if hospitalID == "" {
		return nil, NewValidationError("hospital_id", "required")
	}

	builder := s.client.TumorBoardCase.Create().
		SetID(uuid.New().String()).
		SetPatientID(patientID).
		SetHospitalID(hospitalID).
		SetStatus(tumorboardcase.StatusDraft)

	if summary := s.latestAISummary(ctx, patientID); summary != "" {
		builder.SetAiSummary(summary)
	}

	created, err := builder.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to create board case: %w", err)
	}
	return created, nil
}

// latestAISummary renders a short summary from the most recent completed
// analysis job; empty when none exists.
func (s *TumorBoardService) latestAISummary(ctx context.Context, patientID string) string {
	report, err := s.client.AIReport.Query().
		Where(
			aireport.PatientIDEQ(patientID),
			aireport.StatusEQ(aireport.StatusCompleted),
		).
		Order(ent.Desc(aireport.FieldGeneratedAt)).
		First(ctx)
	if err != nil {
		return ""
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("AI analysis of %d reports completed %s",
		report.ReportCount, report.GeneratedAt.Format("2006-01-02")))
	if report.KeyFindings != nil && *report.KeyFindings != "" {
		parts = append(parts, "Structured findings available for board review.")
	}
	return strings.Join(parts, "\n")
}

// Get returns one board case.
func (s *TumorBoardService) Get(ctx context.Context, caseID string) (*ent.TumorBoardCase, error) {
	row, err := s.client.TumorBoardCase.Get(ctx, caseID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query board case: %w", err)
	}
	return row, nil
}

// List returns a hospital's board cases, excluding soft-deleted ones.
func (s *TumorBoardService) List(ctx context.Context, hospitalID, status string, offset, limit int) ([]*ent.TumorBoardCase, error) {
	query := s.client.TumorBoardCase.Query().
		Where(
			tumorboardcase.HospitalIDEQ(hospitalID),
			tumorboardcase.StatusNEQ(tumorboardcase.StatusDeleted),
		)
	if status != "" {
		query = query.Where(tumorboardcase.StatusEQ(tumorboardcase.Status(status)))
	}
	return query.
		Order(ent.Desc(tumorboardcase.FieldUpdatedAt)).
		Offset(offset).
		Limit(limit).
		All(ctx)
}

// UpdateNotesRequest carries clinician edits; nil fields are untouched.
type UpdateNotesRequest struct {
	RadiologyNotes  *string
	PathologyNotes  *string
	OncologyNotes   *string
	GuidelinesRef   *string
	Recommendations *string
	FinalDecision   *string
}

// UpdateNotes applies clinician edits to a case.
func (s *TumorBoardService) UpdateNotes(ctx context.Context, caseID string, req UpdateNotesRequest) (*ent.TumorBoardCase, error) {
	row, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}

	update := row.Update()
	touched := false
	if req.RadiologyNotes != nil {
		update.SetRadiologyNotes(*req.RadiologyNotes)
		touched = true
	}
	if req.PathologyNotes != nil {
		update.SetPathologyNotes(*req.PathologyNotes)
		touched = true
	}
	if req.OncologyNotes != nil {
		update.SetOncologyNotes(*req.OncologyNotes)
		touched = true
	}
	if req.GuidelinesRef != nil {
		update.SetGuidelinesRef(*req.GuidelinesRef)
		touched = true
	}
	if req.Recommendations != nil {
		update.SetRecommendations(*req.Recommendations)
		touched = true
	}
	if req.FinalDecision != nil {
		update.SetFinalDecision(*req.FinalDecision)
		touched = true
	}
	if !touched {
		return nil, NewValidationError("body", "no fields to update")
	}

	updated, err := update.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update board case: %w", err)
	}
	return updated, nil
}

// SubmitAIJob queues the AI analysis for a case. Admissible from draft and
// from any terminal status (re-run).
func (s *TumorBoardService) SubmitAIJob(ctx context.Context, caseID string) (*ent.TumorBoardCase, error) {
	row, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	switch row.Status {
	case tumorboardcase.StatusQueued, tumorboardcase.StatusProcessing:
		return nil, fmt.Errorf("%w: job already %s", ErrInvalidTransition, row.Status)
	case tumorboardcase.StatusDeleted:
		return nil, ErrNotFound
	}

	updated, err := row.Update().
		SetStatus(tumorboardcase.StatusQueued).
		SetProgressPercent(0).
		ClearProgressMessage().
		ClearErrorMessage().
		ClearStartedAt().
		ClearCompletedAt().
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to queue board job: %w", err)
	}
	return updated, nil
}

// Cancel cancels a queued or processing board job.
func (s *TumorBoardService) Cancel(ctx context.Context, caseID string) (*ent.TumorBoardCase, error) {
	row, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if row.Status != tumorboardcase.StatusQueued && row.Status != tumorboardcase.StatusProcessing {
		return nil, fmt.Errorf("%w: cannot cancel job in status %s", ErrInvalidTransition, row.Status)
	}

	updated, err := row.Update().
		SetStatus(tumorboardcase.StatusCancelled).
		SetCompletedAt(time.Now()).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel board job: %w", err)
	}
	return updated, nil
}

// Retry re-queues a failed board job.
func (s *TumorBoardService) Retry(ctx context.Context, caseID string) (*ent.TumorBoardCase, error) {
	row, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if row.Status != tumorboardcase.StatusFailed {
		return nil, fmt.Errorf("%w: only failed jobs are retryable", ErrInvalidTransition)
	}
	return s.SubmitAIJob(ctx, caseID)
}

// SoftDelete marks a case deleted without removing the row.
func (s *TumorBoardService) SoftDelete(ctx context.Context, caseID string) error {
	row, err := s.Get(ctx, caseID)
	if err != nil {
		return err
	}
	return row.Update().
		SetStatus(tumorboardcase.StatusDeleted).
		SetCompletedAt(time.Now()).
		Exec(ctx)
}
