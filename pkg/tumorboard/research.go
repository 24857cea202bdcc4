package tumorboard

import (
	"log/slog"
	"strings"

	"github.com/cyno-health/cyno/pkg/llm"
)

// NewResearchAgent builds the evidence specialist. It consumes the combined
// summary of the other agents and proposes diagnostics, treatment options
// (only for a confirmed diagnosis) and clinical trials (only for a known
// cancer type). Treatment options are dropped while parsing unless the
// response reports a confirmed diagnosis; the response's
// requires_diagnosis_confirmation flag is decoded but not copied onto the
// recommendations.
func NewResearchAgent(gateway Gateway, model string) Agent {
	a := &baseAgent{
		agentType: AgentTypeResearch,
		name:      "Research Agent",
		model:     model,
		gateway:   gateway,
		prompt:    buildResearchPrompt,
		logger:    slog.Default(),
	}
	a.parse = func(response string, agentCtx AgentContext) AgentOutput {
		return parseResearchResponse(response, agentCtx)
	}
	return a
}

type researchPayload struct {
	DiagnosisStatus           string `json:"diagnosis_status"`
	DiagnosticRecommendations []struct {
		Type      string `json:"type"`
		Text      string `json:"text"`
		Rationale string `json:"rationale"`
		Priority  string `json:"priority"`
	} `json:"diagnostic_recommendations"`
	TreatmentOptions []struct {
		Name                          string `json:"name"`
		Rationale                     string `json:"rationale"`
		EvidenceLevel                 string `json:"evidence_level"`
		Source                        string `json:"source"`
		Priority                      string `json:"priority"`
		Contraindications             string `json:"contraindications"`
		RequiresDiagnosisConfirmation bool   `json:"requires_diagnosis_confirmation"`
	} `json:"treatment_options"`
	ClinicalTrials []struct {
		Name        string `json:"name"`
		NCTID       string `json:"nct_id"`
		CancerType  string `json:"cancer_type"`
		Eligibility string `json:"eligibility"`
	} `json:"clinical_trials"`
	SupportiveCare []struct {
		Text      string `json:"text"`
		Rationale string `json:"rationale"`
	} `json:"supportive_care"`
	SpecialistReferrals []string `json:"specialist_referrals"`
	Summary             string   `json:"summary"`
	Warnings            []string `json:"warnings"`
}

func parseResearchResponse(response string, agentCtx AgentContext) AgentOutput {
	var data researchPayload
	if err := llm.DecodeObject(response, &data); err != nil {
		return parseFailure(AgentTypeResearch, "Research Agent", "No valid JSON in response", agentCtx)
	}

	warnings := data.Warnings
	diagnosisConfirmed := strings.EqualFold(data.DiagnosisStatus, "confirmed")

	var recs []Recommendation
	for _, r := range data.DiagnosticRecommendations {
		if r.Text == "" {
			continue
		}
		recs = append(recs, Recommendation{
			Category:  "diagnostic",
			Text:      r.Text,
			Priority:  researchPriority(r.Priority),
			Rationale: r.Rationale,
		})
	}

	for _, opt := range data.TreatmentOptions {
		if opt.Name == "" {
			continue
		}
		// Treatments only survive a confirmed diagnosis; anything else is
		// dropped here so an overeager model cannot bypass the safety gate.
		if !diagnosisConfirmed {
			warnings = append(warnings, "Dropped treatment option '"+opt.Name+"': diagnosis not confirmed")
			continue
		}
		recs = append(recs, Recommendation{
			Category:      "treatment",
			Text:          opt.Name,
			Priority:      researchPriority(opt.Priority),
			Rationale:     opt.Rationale,
			EvidenceLevel: opt.EvidenceLevel,
			Source:        opt.Source,
		})
	}

	for _, trial := range data.ClinicalTrials {
		if trial.Name == "" {
			continue
		}
		if trial.CancerType == "" || strings.EqualFold(trial.CancerType, "unknown") {
			warnings = append(warnings, "Dropped clinical trial '"+trial.Name+"': cancer type not known")
			continue
		}
		recs = append(recs, Recommendation{
			Category:      "clinical_trial",
			Text:          trial.Name,
			Priority:      SeverityModerate,
			Rationale:     trial.Eligibility,
			EvidenceLevel: "Clinical Trial",
			Source:        trial.NCTID,
		})
	}

	for _, sc := range data.SupportiveCare {
		if sc.Text == "" {
			continue
		}
		recs = append(recs, Recommendation{
			Category:  "supportive_care",
			Text:      sc.Text,
			Priority:  SeverityLow,
			Rationale: sc.Rationale,
		})
	}

	for _, ref := range data.SpecialistReferrals {
		if ref == "" {
			continue
		}
		recs = append(recs, Recommendation{
			Category: "referral",
			Text:     "Referral: " + ref,
			Priority: SeverityModerate,
		})
	}

	return AgentOutput{
		Success:         true,
		Confidence:      ConfidenceMedium,
		Findings:        nil,
		Recommendations: recs,
		Summary:         data.Summary,
		Warnings:        warnings,
	}
}

func researchPriority(p string) SeverityLevel {
	switch strings.ToLower(p) {
	case "urgent", "high", "first_line":
		return SeverityHigh
	case "low", "routine", "palliative":
		return SeverityLow
	default:
		return SeverityModerate
	}
}
