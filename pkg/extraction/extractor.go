package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cyno-health/cyno/pkg/llm"
	"github.com/cyno-health/cyno/pkg/ocr"
)

// parseFailureWarning is the canonical warning when no JSON can be recovered
// from a Stage-A response.
const parseFailureWarning = "Failed to parse LLM response as JSON"

// defaultConfidence is assigned when the model omits extraction_confidence
// or reports a value that is not positive.
const defaultConfidence = 0.5

// Gateway is the LLM call surface the extractor needs.
type Gateway interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// PageExtractor runs the Stage-A structural extraction over one OCR page.
type PageExtractor struct {
	gateway Gateway
	model   string
	logger  *slog.Logger
}

// NewPageExtractor creates a Stage-A extractor using the given model.
func NewPageExtractor(gateway Gateway, model string) *PageExtractor {
	return &PageExtractor{gateway: gateway, model: model, logger: slog.Default()}
}

// stagePayload is the JSON shape shared by Stage-A and Stage-B responses.
type stagePayload struct {
	PatientIdentity struct {
		Name   *string `json:"name"`
		ID     *string `json:"id"`
		DOB    *string `json:"dob"`
		Gender *string `json:"gender"`
		Age    *string `json:"age"`
	} `json:"patient_identity"`
	ReportMetadata struct {
		ReportType         *string `json:"report_type"`
		Date               *string `json:"date"`
		LabName            *string `json:"lab_name"`
		ReferringPhysician *string `json:"referring_physician"`
	} `json:"report_metadata"`
	Findings []struct {
		TestName       *string `json:"test_name"`
		Value          *string `json:"value"`
		Unit           *string `json:"unit"`
		ReferenceRange *string `json:"reference_range"`
		Status         *string `json:"status"`
		Interpretation *string `json:"interpretation"`
	} `json:"findings"`
	Diagnosis            *string  `json:"diagnosis"`
	Recommendations      []string `json:"recommendations"`
	Warnings             []string `json:"warnings"`
	ExtractionConfidence *float64 `json:"extraction_confidence"`
}

// ExtractPage runs Stage-A over one page and applies the hallucination
// checks (numeric-value presence, patient-name token verification).
func (e *PageExtractor) ExtractPage(ctx context.Context, page ocr.PageOCR) PageAnalysis {
	analysis := PageAnalysis{
		PageNumber:     page.PageNumber,
		RawTextPreview: textPreview(page.Text),
	}

	resp, err := e.gateway.Chat(ctx, llm.ChatRequest{
		Model:       e.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: BuildStageAPrompt(page.PageNumber, page.Text)}},
		Temperature: 0.1,
		MaxTokens:   4096,
		JSONMode:    true,
	})
	if err != nil {
		e.logger.Warn("Stage-A LLM call failed", "page", page.PageNumber, "error", err)
		analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("Extraction failed: %v", err))
		return analysis
	}

	var payload stagePayload
	if err := llm.DecodeObject(resp.Content, &payload); err != nil {
		e.logger.Warn("Stage-A response unparseable", "page", page.PageNumber)
		analysis.Warnings = append(analysis.Warnings, parseFailureWarning)
		return analysis
	}

	applyPayload(&analysis, payload)
	VerifyNumericValues(&analysis, page.Text)
	VerifyPatientName(&analysis, page.Text)
	return analysis
}

// applyPayload copies a decoded stage payload onto a PageAnalysis.
func applyPayload(analysis *PageAnalysis, payload stagePayload) {
	analysis.PatientIdentity = PatientIdentity{
		Name:   deref(payload.PatientIdentity.Name),
		ID:     deref(payload.PatientIdentity.ID),
		DOB:    deref(payload.PatientIdentity.DOB),
		Gender: deref(payload.PatientIdentity.Gender),
		Age:    deref(payload.PatientIdentity.Age),
	}
	analysis.ReportMetadata = ReportMetadata{
		ReportType:         deref(payload.ReportMetadata.ReportType),
		Date:               deref(payload.ReportMetadata.Date),
		LabName:            deref(payload.ReportMetadata.LabName),
		ReferringPhysician: deref(payload.ReportMetadata.ReferringPhysician),
	}

	analysis.Findings = analysis.Findings[:0]
	for _, f := range payload.Findings {
		name := strings.TrimSpace(deref(f.TestName))
		if name == "" {
			continue
		}
		analysis.Findings = append(analysis.Findings, Finding{
			TestName:       name,
			Value:          strings.TrimSpace(deref(f.Value)),
			Unit:           deref(f.Unit),
			ReferenceRange: deref(f.ReferenceRange),
			Status:         deref(f.Status),
			Interpretation: deref(f.Interpretation),
		})
	}

	analysis.Diagnosis = deref(payload.Diagnosis)
	analysis.Recommendations = payload.Recommendations
	analysis.Warnings = append(analysis.Warnings, payload.Warnings...)

	if payload.ExtractionConfidence != nil && *payload.ExtractionConfidence > 0 {
		analysis.ExtractionConfidence = *payload.ExtractionConfidence
	} else {
		analysis.ExtractionConfidence = defaultConfidence
	}
}

var numericPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// FirstNumeric returns the first numeric substring of a value, or "".
func FirstNumeric(value string) string {
	return numericPattern.FindString(value)
}

// VerifyNumericValues checks that each finding's first numeric substring
// appears verbatim in the page text. Mismatches are kept but flagged, so a
// reviewer sees exactly which numbers could not be traced to the source.
func VerifyNumericValues(analysis *PageAnalysis, ocrText string) {
	for _, f := range analysis.Findings {
		if f.Value == "" {
			continue
		}
		num := FirstNumeric(f.Value)
		if num == "" {
			continue
		}
		if !strings.Contains(ocrText, num) {
			analysis.Warnings = append(analysis.Warnings, fmt.Sprintf(
				"Value '%s' for '%s' not found verbatim in OCR text", f.Value, f.TestName))
		}
	}
}

// VerifyPatientName clears a patient name that cannot be grounded in the
// page text: at least half of its tokens longer than 2 characters must
// appear case-insensitively.
func VerifyPatientName(analysis *PageAnalysis, ocrText string) {
	name := analysis.PatientIdentity.Name
	if name == "" {
		return
	}

	lower := strings.ToLower(ocrText)
	total := 0
	matched := 0
	for _, token := range strings.Fields(name) {
		if len(token) <= 2 {
			continue
		}
		total++
		if strings.Contains(lower, strings.ToLower(token)) {
			matched++
		}
	}

	if total > 0 && matched*2 >= total {
		return
	}

	analysis.PatientIdentity.Name = ""
	analysis.Warnings = append(analysis.Warnings, fmt.Sprintf(
		"Patient name '%s' not verified in OCR text - removed to prevent hallucination", name))
}

// MarshalAnalysis renders a PageAnalysis as the JSON handed to Stage-B.
func MarshalAnalysis(analysis PageAnalysis) string {
	data, err := json.Marshal(analysis)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
