package tumorboard

import (
	"log/slog"
	"strings"

	"github.com/cyno-health/cyno/pkg/llm"
)

// NewPathologyAgent builds the pathology specialist: histological diagnosis,
// grade, biomarkers, mutations, margins and hematologic findings.
func NewPathologyAgent(gateway Gateway, model string) Agent {
	a := &baseAgent{
		agentType: AgentTypePathology,
		name:      "Pathology Agent",
		model:     model,
		gateway:   gateway,
		prompt:    buildPathologyPrompt,
		logger:    slog.Default(),
	}
	a.parse = func(response string, agentCtx AgentContext) AgentOutput {
		return parsePathologyResponse(response, agentCtx)
	}
	return a
}

type pathologyPayload struct {
	Diagnosis *struct {
		Type        string `json:"type"`
		Description string `json:"description"`
		IsConfirmed bool   `json:"is_confirmed"`
		Confidence  string `json:"confidence"`
	} `json:"diagnosis"`
	SuspectedDiseaseCategory string `json:"suspected_disease_category"`
	Grade                    *struct {
		Value      string `json:"value"`
		Confidence string `json:"confidence"`
	} `json:"grade"`
	Biomarkers []struct {
		Name                string `json:"name"`
		Value               string `json:"value"`
		IsRelevantToDisease bool   `json:"is_relevant_to_disease"`
		Interpretation      string `json:"interpretation"`
		Confidence          string `json:"confidence"`
	} `json:"biomarkers"`
	Mutations []struct {
		Gene                 string `json:"gene"`
		Status               string `json:"status"`
		Variant              string `json:"variant"`
		ClinicalSignificance string `json:"clinical_significance"`
		Confidence           string `json:"confidence"`
	} `json:"mutations"`
	Margins *struct {
		Status     string `json:"status"`
		Distance   string `json:"distance"`
		Confidence string `json:"confidence"`
	} `json:"margins"`
	HematologicFindings []struct {
		Name           string `json:"name"`
		Value          string `json:"value"`
		Interpretation string `json:"interpretation"`
		IsAbnormal     bool   `json:"is_abnormal"`
	} `json:"hematologic_findings"`
	Recommendations []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"recommendations"`
	Summary  string   `json:"summary"`
	Warnings []string `json:"warnings"`
}

func parsePathologyResponse(response string, agentCtx AgentContext) AgentOutput {
	var data pathologyPayload
	if err := llm.DecodeObject(response, &data); err != nil {
		return parseFailure(AgentTypePathology, "Pathology Agent", "No valid JSON in response", agentCtx)
	}

	var findings []Finding
	warnings := data.Warnings

	if dx := data.Diagnosis; dx != nil && dx.Type != "" {
		findings = append(findings, Finding{
			Category:       "diagnosis",
			Name:           "Histological Diagnosis",
			Value:          dx.Type,
			Severity:       SeverityHigh,
			Confidence:     ParseConfidence(dx.Confidence),
			SourceReport:   agentCtx.ReportType,
			Interpretation: dx.Description,
		})
		if !dx.IsConfirmed {
			warnings = append(warnings, "Diagnosis not marked as confirmed by pathology")
		}
	}

	if data.Grade != nil && data.Grade.Value != "" {
		findings = append(findings, Finding{
			Category:     "grade",
			Name:         "Tumor Grade",
			Value:        data.Grade.Value,
			Severity:     SeverityModerate,
			Confidence:   ParseConfidence(data.Grade.Confidence),
			SourceReport: agentCtx.ReportType,
		})
	}

	for _, marker := range data.Biomarkers {
		severity := SeverityModerate
		if strings.EqualFold(marker.Value, "positive") {
			severity = SeverityHigh
		}
		f := Finding{
			Category:       "biomarker",
			Name:           orDefault(marker.Name, "Unknown Biomarker"),
			Value:          orUnknown(marker.Value),
			Severity:       severity,
			Confidence:     ParseConfidence(marker.Confidence),
			SourceReport:   agentCtx.ReportType,
			Interpretation: marker.Interpretation,
		}
		if !marker.IsRelevantToDisease {
			warnings = append(warnings, "Biomarker "+f.Name+" reported as not relevant to suspected disease")
		}
		findings = append(findings, f)
	}

	for _, mutation := range data.Mutations {
		findings = append(findings, Finding{
			Category:       "mutation",
			Name:           orDefault(mutation.Gene, "Unknown Gene"),
			Value:          orUnknown(mutation.Status),
			Severity:       SeverityHigh,
			Confidence:     ParseConfidence(mutation.Confidence),
			SourceReport:   agentCtx.ReportType,
			Interpretation: mutation.ClinicalSignificance,
		})
	}

	if m := data.Margins; m != nil && m.Status != "" {
		severity := SeverityLow
		if strings.EqualFold(m.Status, "positive") {
			severity = SeverityHigh
		}
		findings = append(findings, Finding{
			Category:     "surgical",
			Name:         "Surgical Margins",
			Value:        m.Status,
			Severity:     severity,
			Confidence:   ParseConfidence(m.Confidence),
			SourceReport: agentCtx.ReportType,
		})
	}

	for _, h := range data.HematologicFindings {
		severity := SeverityInfo
		if h.IsAbnormal {
			severity = SeverityModerate
		}
		findings = append(findings, Finding{
			Category:       "hematology",
			Name:           orUnknown(h.Name),
			Value:          h.Value,
			Severity:       severity,
			Confidence:     ConfidenceMedium,
			SourceReport:   agentCtx.ReportType,
			Interpretation: h.Interpretation,
		})
	}

	var recs []Recommendation
	for _, r := range data.Recommendations {
		if r.Text == "" {
			continue
		}
		recs = append(recs, Recommendation{
			Category: orDefault(r.Type, "pathology"),
			Text:     r.Text,
			Priority: SeverityModerate,
		})
	}

	summary := data.Summary
	if data.SuspectedDiseaseCategory != "" && data.SuspectedDiseaseCategory != "unknown" {
		summary = strings.TrimSpace(summary + " Suspected disease category: " + data.SuspectedDiseaseCategory + ".")
	}

	return AgentOutput{
		Success:         true,
		Confidence:      OverallConfidence(findings),
		Findings:        findings,
		Recommendations: recs,
		Summary:         summary,
		Warnings:        warnings,
	}
}
