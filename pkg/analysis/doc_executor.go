package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cyno-health/cyno/pkg/config"
	"github.com/cyno-health/cyno/pkg/extraction"
	"github.com/cyno-health/cyno/pkg/llm"
	"github.com/cyno-health/cyno/pkg/ocr"
	"github.com/cyno-health/cyno/pkg/queue"
)

// Per-unit timeouts for document analysis.
const (
	pageTimeout   = 60 * time.Second
	reportTimeout = 300 * time.Second
)

// osFileReader reads report files from the local filesystem.
type osFileReader struct{}

func (osFileReader) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// DocExecutor runs document-analysis jobs: every report of the patient is
// OCR'd, extracted page by page through the two-stage LLM chain, and merged
// into one analysis per document.
type DocExecutor struct {
	directory PatientDirectory
	files     FileReader
	documents DocumentSource
	extractor *extraction.PageExtractor
	verifier  *extraction.Verifier
	validator *extraction.PageValidator
	sems      *queue.Semaphores
	store     queue.Store
	logger    *slog.Logger
}

// NewDocExecutor wires the document-analysis executor.
func NewDocExecutor(directory PatientDirectory, documents DocumentSource, gateway extraction.Gateway,
	cfg *config.Settings, sems *queue.Semaphores, store queue.Store) *DocExecutor {
	return &DocExecutor{
		directory: directory,
		files:     osFileReader{},
		documents: documents,
		extractor: extraction.NewPageExtractor(gateway, cfg.Models.ExtractionA),
		verifier:  extraction.NewVerifier(cfg.LLMBSkipThreshold),
		validator: extraction.NewPageValidator(gateway, cfg.Models.ExtractionB),
		sems:      sems,
		store:     store,
		logger:    slog.Default(),
	}
}

// SetFileReader overrides filesystem access (tests).
func (e *DocExecutor) SetFileReader(r FileReader) { e.files = r }

// Execute implements queue.Executor for document-analysis jobs.
func (e *DocExecutor) Execute(ctx context.Context, job *queue.Job) *queue.ExecutionResult {
	start := time.Now()
	logger := e.logger.With("job_id", job.ID, "patient_id", job.PatientID)
	logger.Info("Document analysis started")

	e.progress(ctx, job, 5, "Fetching patient records")

	patient, err := e.directory.GetPatient(ctx, job.PatientID)
	if err != nil {
		return failResult(fmt.Errorf("failed to load patient: %w", err))
	}
	reports, err := e.directory.ListReports(ctx, job.PatientID)
	if err != nil {
		return failResult(fmt.Errorf("failed to list reports: %w", err))
	}
	if len(reports) == 0 {
		return failResult(errors.New("patient has no uploaded reports to analyze"))
	}

	e.progress(ctx, job, 10, fmt.Sprintf("Analyzing %d reports", len(reports)))

	// Reports fan out without an outer semaphore: they are coarse-grained,
	// and the per-page LLM work below is already bounded globally.
	results := make([]ReportResult, len(reports))
	var wg sync.WaitGroup
	var done int32
	var doneMu sync.Mutex
	for i, report := range reports {
		wg.Add(1)
		go func(idx int, rep ReportInfo) {
			defer wg.Done()
			reportCtx, cancel := context.WithTimeout(ctx, reportTimeout)
			defer cancel()
			results[idx] = e.processReport(reportCtx, rep)

			doneMu.Lock()
			done++
			completed := int(done)
			doneMu.Unlock()
			percent := 10 + completed*80/len(reports)
			e.progress(ctx, job, percent, fmt.Sprintf("Processed %d/%d reports", completed, len(reports)))
		}(i, report)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return &queue.ExecutionResult{Status: queue.StatusCancelled, Error: err}
	}

	payload := Payload{
		ProcessingTimeSeconds: time.Since(start).Seconds(),
		Results:               results,
		PatientName:           patient.Name,
		ReportCount:           len(reports),
		CompletedAt:           time.Now().UTC().Format(time.RFC3339),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return failResult(fmt.Errorf("failed to serialize analysis payload: %w", err))
	}

	e.progress(ctx, job, 95, "Saving analysis results")
	logger.Info("Document analysis finished",
		"reports", len(reports), "elapsed", time.Since(start))
	return &queue.ExecutionResult{Status: queue.StatusCompleted, Result: string(encoded)}
}

// processReport runs the full per-document pipeline for one report file.
func (e *DocExecutor) processReport(ctx context.Context, report ReportInfo) ReportResult {
	result := ReportResult{FileName: report.FileName}

	kind, ok := sourceTypeForFile(report.FileName)
	if !ok {
		result.Status = ReportStatusSkipped
		result.Warning = fmt.Sprintf("Unsupported file type: %s", filepath.Ext(report.FileName))
		return result
	}

	data, err := e.files.ReadFile(report.FilePath)
	if err != nil {
		result.Status = ReportStatusError
		result.Error = mapUserError(fmt.Errorf("failed to read file: %w", err))
		return result
	}

	doc, err := e.documents.Extract(ctx, data, kind)
	if err != nil {
		result.Status = ReportStatusError
		result.Error = mapUserError(fmt.Errorf("OCR failed: %w", err))
		return result
	}

	if strings.TrimSpace(doc.FullText()) == "" {
		result.Status = ReportStatusWarning
		result.Warning = "No text could be extracted from this document"
		return result
	}

	analyses := e.analyzePages(ctx, doc)
	merged := extraction.Merge(analyses)
	result.Status = ReportStatusSuccess
	result.Analysis = &merged

	if ctx.Err() != nil {
		result.Status = ReportStatusError
		result.Error = "processing timed out"
		result.Analysis = nil
	}
	return result
}

// analyzePages runs Stage-A (and conditionally Stage-B) for every page,
// fanning out under the shared LLM semaphore.
func (e *DocExecutor) analyzePages(ctx context.Context, doc *ocr.DocumentOCR) []extraction.PageAnalysis {
	analyses := make([]extraction.PageAnalysis, len(doc.Pages))
	var wg sync.WaitGroup
	for i, page := range doc.Pages {
		wg.Add(1)
		go func(idx int, p ocr.PageOCR) {
			defer wg.Done()
			pageCtx, cancel := context.WithTimeout(ctx, pageTimeout)
			defer cancel()
			analyses[idx] = e.analyzePage(pageCtx, p)
		}(i, page)
	}
	wg.Wait()
	return analyses
}

func (e *DocExecutor) analyzePage(ctx context.Context, page ocr.PageOCR) extraction.PageAnalysis {
	if err := e.sems.LLM.Acquire(ctx, 1); err != nil {
		return extraction.PageAnalysis{
			PageNumber: page.PageNumber,
			Warnings:   []string{fmt.Sprintf("Extraction aborted: %v", err)},
		}
	}
	stageA := e.extractor.ExtractPage(ctx, page)
	e.sems.LLM.Release(1)

	stageA.Warnings = append(stageA.Warnings, page.Warnings...)

	needed, verifyWarnings := e.verifier.NeedsValidation(stageA.Findings, page.Text)
	if !needed {
		return stageA
	}
	stageA.Warnings = append(stageA.Warnings, verifyWarnings...)

	if err := e.sems.LLM.Acquire(ctx, 1); err != nil {
		return stageA
	}
	defer e.sems.LLM.Release(1)
	return e.validator.Validate(ctx, page, stageA)
}

func (e *DocExecutor) progress(ctx context.Context, job *queue.Job, percent int, message string) {
	if err := e.store.UpdateProgress(ctx, job, percent, message); err != nil {
		e.logger.Warn("Failed to update job progress", "job_id", job.ID, "error", err)
	}
}

// sourceTypeForFile maps a file extension to the OCR source type.
func sourceTypeForFile(name string) (ocr.SourceType, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tiff":
		return ocr.SourceTypeImage, true
	case ".pdf":
		return ocr.SourceTypePDF, true
	default:
		return "", false
	}
}

// mapUserError rewrites known upstream failures into the stable
// user-visible message; everything else passes through.
func mapUserError(err error) string {
	if errors.Is(err, llm.ErrUpstream) {
		return llm.ErrUpstream.Error()
	}
	msg := err.Error()
	for _, marker := range []string{"401", "invalid api key", "invalid_api_key", "authentication"} {
		if strings.Contains(strings.ToLower(msg), marker) {
			return llm.ErrUpstream.Error()
		}
	}
	return msg
}

func failResult(err error) *queue.ExecutionResult {
	if errors.Is(err, llm.ErrUpstream) {
		err = errors.New(llm.ErrUpstream.Error())
	}
	return &queue.ExecutionResult{Status: queue.StatusFailed, Error: err}
}
