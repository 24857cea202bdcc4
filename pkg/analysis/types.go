// Package analysis hosts the background job executors: the per-patient
// multi-document analysis runner (OCR + two-stage extraction + merge) and
// the tumor board executor that feeds merged findings into the specialist
// pipeline.
package analysis

import (
	"context"

	"github.com/cyno-health/cyno/pkg/extraction"
	"github.com/cyno-health/cyno/pkg/ocr"
)

// PatientInfo is the patient projection the runners need.
type PatientInfo struct {
	ID         string
	ExternalID string
	Name       string
	Age        string
	Gender     string
}

// ReportInfo is the uploaded-report projection the runners need.
type ReportInfo struct {
	ID       string
	FileName string
	FilePath string
	Category string
}

// PatientDirectory is the external-store surface consumed by the runners.
// The surrounding service layer implements it over Ent.
type PatientDirectory interface {
	GetPatient(ctx context.Context, patientID string) (*PatientInfo, error)
	ListReports(ctx context.Context, patientID string) ([]ReportInfo, error)
	// LatestCompletedAnalysis returns the result payload of the most recent
	// completed document-analysis job for the patient, or "" if none exists.
	LatestCompletedAnalysis(ctx context.Context, patientID string) (string, error)
}

// FileReader abstracts report file access.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// DocumentSource abstracts the OCR extractor.
type DocumentSource interface {
	Extract(ctx context.Context, data []byte, kind ocr.SourceType) (*ocr.DocumentOCR, error)
}

// Per-report processing status values.
const (
	ReportStatusSuccess = "success"
	ReportStatusWarning = "warning"
	ReportStatusSkipped = "skipped"
	ReportStatusError   = "error"
)

// ReportResult is the per-report outcome recorded on the job payload.
type ReportResult struct {
	FileName string                        `json:"file_name"`
	Status   string                        `json:"status"`
	Analysis *extraction.DocumentAnalysis  `json:"analysis,omitempty"`
	Warning  string                        `json:"warning,omitempty"`
	Error    string                        `json:"error,omitempty"`
}

// Payload is the document-analysis job result serialized onto the job row.
type Payload struct {
	ProcessingTimeSeconds float64        `json:"processing_time_seconds"`
	Results               []ReportResult `json:"results"`
	PatientName           string         `json:"patient_name"`
	ReportCount           int            `json:"report_count"`
	CompletedAt           string         `json:"completed_at"`
}
