package extraction

import (
	"context"
	"log/slog"

	"github.com/cyno-health/cyno/pkg/llm"
	"github.com/cyno-health/cyno/pkg/ocr"
)

// PageValidator runs the Stage-B validation pass: the model re-reads the OCR
// text next to the Stage-A extraction and removes everything it cannot trace
// back to the page.
type PageValidator struct {
	gateway Gateway
	model   string
	logger  *slog.Logger
}

// NewPageValidator creates a Stage-B validator using the given model.
func NewPageValidator(gateway Gateway, model string) *PageValidator {
	return &PageValidator{gateway: gateway, model: model, logger: slog.Default()}
}

// Validate filters a Stage-A analysis through the Stage-B pass. On any
// failure (call error, unparseable response) the Stage-A findings are
// returned unchanged, with a warning recording the fallback - the validation
// layer may only ever tighten a result, never lose it.
//
// A Stage-B response that parses but empties a non-empty Stage-A finding
// list is accepted (every finding was judged untraceable); a warning records
// the wipe so reviewers can distinguish it from an empty page.
func (v *PageValidator) Validate(ctx context.Context, page ocr.PageOCR, stageA PageAnalysis) PageAnalysis {
	resp, err := v.gateway.Chat(ctx, llm.ChatRequest{
		Model: v.model,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: BuildStageBPrompt(page.PageNumber, page.Text, MarshalAnalysis(stageA)),
		}},
		Temperature: 0.1,
		MaxTokens:   4096,
		JSONMode:    true,
	})
	if err != nil {
		v.logger.Warn("Stage-B LLM call failed, keeping Stage-A result",
			"page", page.PageNumber, "error", err)
		stageA.Warnings = append(stageA.Warnings, "Validation pass unavailable, kept unvalidated extraction")
		return stageA
	}

	var payload stagePayload
	if err := llm.DecodeObject(resp.Content, &payload); err != nil {
		v.logger.Warn("Stage-B response unparseable, keeping Stage-A result", "page", page.PageNumber)
		stageA.Warnings = append(stageA.Warnings, "Validation pass returned invalid JSON, kept unvalidated extraction")
		return stageA
	}

	validated := PageAnalysis{
		PageNumber:           stageA.PageNumber,
		RawTextPreview:       stageA.RawTextPreview,
		ExtractionConfidence: stageA.ExtractionConfidence,
		Warnings:             append([]string(nil), stageA.Warnings...),
	}
	applyPayload(&validated, payload)

	// applyPayload resets confidence from the payload. When Stage-B reports
	// none (the payload default), the Stage-A confidence carries over; any
	// other positive Stage-B value replaces it, higher or lower.
	if validated.ExtractionConfidence == defaultConfidence && stageA.ExtractionConfidence > 0 {
		validated.ExtractionConfidence = stageA.ExtractionConfidence
	}

	if len(validated.Findings) == 0 && len(stageA.Findings) > 0 {
		validated.Warnings = append(validated.Warnings,
			"Validation pass removed all findings as unverifiable")
	}

	VerifyNumericValues(&validated, page.Text)
	VerifyPatientName(&validated, page.Text)
	return validated
}
