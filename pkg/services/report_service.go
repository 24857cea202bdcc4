package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cyno-health/cyno/ent"
	"github.com/cyno-health/cyno/ent/report"
)

// ReportService manages uploaded report metadata. File contents stay on
// disk; only paths and classification are persisted.
type ReportService struct {
	client *ent.Client
}

// NewReportService creates a new ReportService.
func NewReportService(client *ent.Client) *ReportService {
	return &ReportService{client: client}
}

// RegisterReportRequest carries upload metadata.
type RegisterReportRequest struct {
	PatientID string
	FileName  string
	FilePath  string
	Category  string
	FileSize  int64
}

// RegisterReport records an uploaded report file for a patient.
func (s *ReportService) RegisterReport(ctx context.Context, req RegisterReportRequest) (*ent.Report, error) {
	if req.PatientID == "" {
		return nil, NewValidationError("patient_id", "required")
	}
	if req.FileName == "" {
		return nil, NewValidationError("file_name", "required")
	}
	if req.FilePath == "" {
		return nil, NewValidationError("file_path", "required")
	}
	if req.Category == "" {
		req.Category = "general"
	}

	created, err := s.client.Report.Create().
		SetID(uuid.New().String()).
		SetPatientID(req.PatientID).
		SetFileName(req.FileName).
		SetFilePath(req.FilePath).
		SetCategory(req.Category).
		SetFileSize(req.FileSize).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrNotFound // dangling patient reference
		}
		return nil, fmt.Errorf("failed to register report: %w", err)
	}
	return created, nil
}

// ListByPatient returns a patient's reports, newest first.
func (s *ReportService) ListByPatient(ctx context.Context, patientID string) ([]*ent.Report, error) {
	return s.client.Report.Query().
		Where(report.PatientIDEQ(patientID)).
		Order(ent.Desc(report.FieldUploadedAt)).
		All(ctx)
}

// CountByPatient counts a patient's reports.
func (s *ReportService) CountByPatient(ctx context.Context, patientID string) (int, error) {
	return s.client.Report.Query().
		Where(report.PatientIDEQ(patientID)).
		Count(ctx)
}

// Delete removes a report's metadata row.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	err := s.client.Report.DeleteOneID(id).Exec(ctx)
	if ent.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
