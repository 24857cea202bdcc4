package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyno-health/cyno/pkg/queue"
	"github.com/cyno-health/cyno/pkg/tumorboard"
)

// orchestrationTimeout bounds one whole tumor board run.
const orchestrationTimeout = 300 * time.Second

// ErrNoAnalysisData is surfaced when a board job is submitted for a patient
// without a completed document analysis.
var ErrNoAnalysisData = errors.New("No AI analysis data")

// BoardExecutor runs tumor-board jobs: it loads the latest completed
// document analysis, classifies its findings into specialist inputs, and
// drives the phased agent pipeline.
type BoardExecutor struct {
	directory PatientDirectory
	runner    *tumorboard.Runner
	store     queue.Store
	logger    *slog.Logger
}

// NewBoardExecutor wires the tumor board executor.
func NewBoardExecutor(directory PatientDirectory, runner *tumorboard.Runner, store queue.Store) *BoardExecutor {
	return &BoardExecutor{
		directory: directory,
		runner:    runner,
		store:     store,
		logger:    slog.Default(),
	}
}

// Execute implements queue.Executor for tumor-board jobs.
func (e *BoardExecutor) Execute(ctx context.Context, job *queue.Job) *queue.ExecutionResult {
	logger := e.logger.With("job_id", job.ID, "patient_id", job.PatientID)
	logger.Info("Tumor board job started")

	runCtx, cancel := context.WithTimeout(ctx, orchestrationTimeout)
	defer cancel()

	patient, err := e.directory.GetPatient(runCtx, job.PatientID)
	if err != nil {
		return &queue.ExecutionResult{Status: queue.StatusFailed, Error: fmt.Errorf("failed to load patient: %w", err)}
	}

	rawPayload, err := e.directory.LatestCompletedAnalysis(runCtx, job.PatientID)
	if err != nil {
		return &queue.ExecutionResult{Status: queue.StatusFailed, Error: fmt.Errorf("failed to load analysis data: %w", err)}
	}
	if rawPayload == "" {
		return &queue.ExecutionResult{Status: queue.StatusFailed, Error: ErrNoAnalysisData}
	}

	var payload Payload
	if err := json.Unmarshal([]byte(rawPayload), &payload); err != nil {
		return &queue.ExecutionResult{Status: queue.StatusFailed, Error: fmt.Errorf("stored analysis payload is not valid JSON: %w", err)}
	}

	inputs := ClassifyPayload(&payload)
	findingsJSON := findingsForTimeline(&payload)

	view, err := e.runner.Run(runCtx, tumorboard.Inputs{
		PatientID:     job.PatientID,
		PatientName:   patient.Name,
		PatientAge:    patient.Age,
		PatientGender: patient.Gender,
		ImagingText:   inputs.Imaging,
		PathologyText: inputs.Pathology,
		ClinicalText:  inputs.Clinical,
		FindingsJSON:  findingsJSON,
	}, func(percent int, message string) {
		if err := e.store.UpdateProgress(ctx, job, percent, message); err != nil {
			logger.Warn("Failed to update board job progress", "error", err)
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Tumor board job cancelled")
			return &queue.ExecutionResult{Status: queue.StatusCancelled, Error: err}
		}
		return &queue.ExecutionResult{Status: queue.StatusFailed, Error: err}
	}

	encoded, err := json.Marshal(view)
	if err != nil {
		return &queue.ExecutionResult{Status: queue.StatusFailed, Error: fmt.Errorf("failed to serialize board view: %w", err)}
	}

	logger.Info("Tumor board job finished", "confidence", view.OverallConfidence)
	return &queue.ExecutionResult{Status: queue.StatusCompleted, Result: string(encoded)}
}

// findingsForTimeline extracts just the merged findings for the timeline
// compiler, keeping its prompt compact.
func findingsForTimeline(payload *Payload) string {
	type entry struct {
		TestName string `json:"test_name"`
		Value    string `json:"value"`
		Unit     string `json:"unit,omitempty"`
		Date     string `json:"date,omitempty"`
	}
	var entries []entry
	for _, result := range payload.Results {
		if result.Status != ReportStatusSuccess || result.Analysis == nil {
			continue
		}
		date := result.Analysis.ReportMetadata.Date
		for _, f := range result.Analysis.AllFindings {
			entries = append(entries, entry{TestName: f.TestName, Value: f.Value, Unit: f.Unit, Date: date})
		}
	}
	if len(entries) == 0 {
		return ""
	}
	encoded, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	return string(encoded)
}
