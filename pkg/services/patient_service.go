package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cyno-health/cyno/ent"
	"github.com/cyno-health/cyno/ent/aireport"
	"github.com/cyno-health/cyno/ent/patient"

	"github.com/cyno-health/cyno/pkg/analysis"
)

// PatientService manages patients and their uploaded reports. It also
// implements analysis.PatientDirectory for the background runners.
type PatientService struct {
	client *ent.Client
}

// NewPatientService creates a new PatientService.
func NewPatientService(client *ent.Client) *PatientService {
	return &PatientService{client: client}
}

// CreatePatientRequest carries the fields for patient registration.
type CreatePatientRequest struct {
	PatientID  string
	Name       string
	Age        string
	Gender     string
	CancerType string
	HospitalID string
}

// CreatePatient registers a new patient for a hospital.
func (s *PatientService) CreatePatient(ctx context.Context, req CreatePatientRequest) (*ent.Patient, error) {
	if req.Name == "" {
		return nil, NewValidationError("name", "required")
	}
	if req.HospitalID == "" {
		return nil, NewValidationError("hospital_id", "required")
	}
	if req.PatientID == "" {
		req.PatientID = uuid.New().String()
	}

	builder := s.client.Patient.Create().
		SetID(uuid.New().String()).
		SetPatientID(req.PatientID).
		SetName(req.Name).
		SetHospitalID(req.HospitalID)
	if req.Age != "" {
		builder.SetAge(req.Age)
	}
	if req.Gender != "" {
		builder.SetGender(req.Gender)
	}
	if req.CancerType != "" {
		builder.SetCancerType(req.CancerType)
	}

	created, err := builder.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return created, nil
}

// FindPatient resolves a patient by internal ID or external patient ID.
func (s *PatientService) FindPatient(ctx context.Context, id string) (*ent.Patient, error) {
	row, err := s.client.Patient.Query().
		Where(patient.Or(patient.IDEQ(id), patient.PatientIDEQ(id))).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	return row, nil
}

// ListPatients returns a hospital's patients, newest first.
func (s *PatientService) ListPatients(ctx context.Context, hospitalID string, offset, limit int) ([]*ent.Patient, error) {
	return s.client.Patient.Query().
		Where(patient.HospitalIDEQ(hospitalID)).
		Order(ent.Desc(patient.FieldCreatedAt)).
		Offset(offset).
		Limit(limit).
		All(ctx)
}

// GetPatient implements analysis.PatientDirectory.
func (s *PatientService) GetPatient(ctx context.Context, patientID string) (*analysis.PatientInfo, error) {
	row, err := s.FindPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return &analysis.PatientInfo{
		ID:         row.ID,
		ExternalID: row.PatientID,
		Name:       row.Name,
		Age:        row.Age,
		Gender:     row.Gender,
	}, nil
}

// ListReports implements analysis.PatientDirectory.
func (s *PatientService) ListReports(ctx context.Context, patientID string) ([]analysis.ReportInfo, error) {
	row, err := s.FindPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	reports, err := row.QueryReports().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}

	infos := make([]analysis.ReportInfo, len(reports))
	for i, r := range reports {
		infos[i] = analysis.ReportInfo{
			ID:       r.ID,
			FileName: r.FileName,
			FilePath: r.FilePath,
			Category: r.Category,
		}
	}
	return infos, nil
}

// LatestCompletedAnalysis implements analysis.PatientDirectory: the result
// payload of the most recent completed analysis job, or "".
func (s *PatientService) LatestCompletedAnalysis(ctx context.Context, patientID string) (string, error) {
	row, err := s.FindPatient(ctx, patientID)
	if err != nil {
		return "", err
	}

	report, err := s.client.AIReport.Query().
		Where(
			aireport.PatientIDEQ(row.ID),
			aireport.StatusEQ(aireport.StatusCompleted),
		).
		Order(ent.Desc(aireport.FieldGeneratedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query completed analyses: %w", err)
	}
	if report.KeyFindings == nil {
		return "", nil
	}
	return *report.KeyFindings, nil
}
