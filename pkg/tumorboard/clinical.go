package tumorboard

import (
	"log/slog"
	"strings"

	"github.com/cyno-health/cyno/pkg/llm"
)

// NewClinicalAgent builds the clinical specialist: performance status,
// comorbidities, symptoms, labs and treatment history.
func NewClinicalAgent(gateway Gateway, model string) Agent {
	a := &baseAgent{
		agentType: AgentTypeClinical,
		name:      "Clinical Agent",
		model:     model,
		gateway:   gateway,
		prompt:    buildClinicalPrompt,
		logger:    slog.Default(),
	}
	a.parse = func(response string, agentCtx AgentContext) AgentOutput {
		return parseClinicalResponse(response, agentCtx)
	}
	return a
}

type clinicalPayload struct {
	PerformanceStatus *struct {
		Value      string `json:"value"`
		Confidence string `json:"confidence"`
	} `json:"performance_status"`
	Comorbidities []struct {
		Name       string `json:"name"`
		Status     string `json:"status"`
		Confidence string `json:"confidence"`
	} `json:"comorbidities"`
	Symptoms []struct {
		Name       string `json:"name"`
		Severity   string `json:"severity"`
		Confidence string `json:"confidence"`
	} `json:"symptoms"`
	Labs []struct {
		Name           string `json:"name"`
		Value          string `json:"value"`
		Unit           string `json:"unit"`
		Interpretation string `json:"interpretation"`
		Confidence     string `json:"confidence"`
	} `json:"labs"`
	TreatmentHistory []struct {
		Type       string `json:"type"`
		Name       string `json:"name"`
		Date       string `json:"date"`
		Response   string `json:"response"`
		Confidence string `json:"confidence"`
	} `json:"treatment_history"`
	Recommendations []recommendationPayload `json:"recommendations"`
	Summary         string                  `json:"summary"`
	Warnings        []string                `json:"warnings"`
}

func parseClinicalResponse(response string, agentCtx AgentContext) AgentOutput {
	var data clinicalPayload
	if err := llm.DecodeObject(response, &data); err != nil {
		return parseFailure(AgentTypeClinical, "Clinical Agent", "No valid JSON in response", agentCtx)
	}

	var findings []Finding

	if ps := data.PerformanceStatus; ps != nil && ps.Value != "" {
		findings = append(findings, Finding{
			Category:     "performance_status",
			Name:         "ECOG Performance Status",
			Value:        ps.Value,
			Severity:     performanceStatusSeverity(ps.Value),
			Confidence:   ParseConfidence(ps.Confidence),
			SourceReport: agentCtx.ReportType,
		})
	}

	for _, c := range data.Comorbidities {
		if c.Name == "" {
			continue
		}
		findings = append(findings, Finding{
			Category:     "comorbidity",
			Name:         c.Name,
			Value:        orDefault(c.Status, "Present"),
			Severity:     SeverityModerate,
			Confidence:   ParseConfidence(c.Confidence),
			SourceReport: agentCtx.ReportType,
		})
	}

	for _, s := range data.Symptoms {
		if s.Name == "" {
			continue
		}
		findings = append(findings, Finding{
			Category:     "symptom",
			Name:         s.Name,
			Value:        orDefault(s.Severity, "Present"),
			Severity:     symptomSeverity(s.Severity),
			Confidence:   ParseConfidence(s.Confidence),
			SourceReport: agentCtx.ReportType,
		})
	}

	for _, lab := range data.Labs {
		if lab.Name == "" {
			continue
		}
		findings = append(findings, Finding{
			Category:       "lab",
			Name:           lab.Name,
			Value:          orUnknown(lab.Value),
			Unit:           lab.Unit,
			Severity:       SeverityInfo,
			Confidence:     ParseConfidence(lab.Confidence),
			SourceReport:   agentCtx.ReportType,
			Interpretation: lab.Interpretation,
		})
	}

	for _, tr := range data.TreatmentHistory {
		findings = append(findings, Finding{
			Category:       "treatment",
			Name:           orDefault(tr.Type, "Treatment"),
			Value:          orUnknown(tr.Name),
			Severity:       SeverityInfo,
			Confidence:     ParseConfidence(tr.Confidence),
			SourceReport:   agentCtx.ReportType,
			Interpretation: tr.Response,
		})
	}

	var recs []Recommendation
	for _, r := range data.Recommendations {
		if r.Text == "" {
			continue
		}
		recs = append(recs, Recommendation{
			Category:  "clinical",
			Text:      r.Text,
			Priority:  SeverityModerate,
			Rationale: r.Rationale,
		})
	}

	return AgentOutput{
		Success:         true,
		Confidence:      OverallConfidence(findings),
		Findings:        findings,
		Recommendations: recs,
		Summary:         data.Summary,
		Warnings:        data.Warnings,
	}
}

// performanceStatusSeverity maps an ECOG value to clinical weight: 0-1 is
// ambulatory, 2 is limited, 3-4 is severely restricted.
func performanceStatusSeverity(value string) SeverityLevel {
	switch {
	case strings.Contains(value, "0"), strings.Contains(value, "1"):
		return SeverityLow
	case strings.Contains(value, "2"):
		return SeverityModerate
	case strings.Contains(value, "3"), strings.Contains(value, "4"):
		return SeverityHigh
	default:
		return SeverityModerate
	}
}

func symptomSeverity(s string) SeverityLevel {
	switch strings.ToLower(s) {
	case "severe":
		return SeverityHigh
	case "mild":
		return SeverityLow
	default:
		return SeverityModerate
	}
}
