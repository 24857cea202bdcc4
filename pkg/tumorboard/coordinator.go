package tumorboard

import (
	"context"
	"log/slog"

	"github.com/cyno-health/cyno/pkg/llm"
)

// Coordinator synthesizes specialist outputs into an executive view. It is
// itself an LLM call, but its prompt enumerates the safety rules: no
// treatment without pathological confirmation, no staging not present in the
// inputs, low confidence when critical data is missing.
type Coordinator struct {
	base *baseAgent
}

// NewCoordinator builds the coordinator agent.
func NewCoordinator(gateway Gateway, model string) *Coordinator {
	base := &baseAgent{
		agentType: AgentTypeCoordinator,
		name:      "Coordinator Agent",
		model:     model,
		gateway:   gateway,
		prompt:    buildCoordinatorPrompt,
		logger:    slog.Default(),
	}
	base.parse = func(response string, agentCtx AgentContext) AgentOutput {
		return parseCoordinatorResponse(response, agentCtx)
	}
	return &Coordinator{base: base}
}

// coordinatorPayload mirrors the coordinator prompt schema.
type coordinatorPayload struct {
	ExecutiveSummary string `json:"executive_summary"`
	DiagnosticStatus string `json:"diagnostic_status"`
	KeyFindings      []struct {
		Category    string `json:"category"`
		Name        string `json:"name"`
		Value       string `json:"value"`
		Severity    string `json:"severity"`
		Confidence  string `json:"confidence"`
		SourceAgent string `json:"source_agent"`
	} `json:"key_findings"`
	DataGaps                  []string `json:"data_gaps"`
	DiagnosticRecommendations []struct {
		Category  string `json:"category"`
		Text      string `json:"text"`
		Priority  string `json:"priority"`
		Rationale string `json:"rationale"`
	} `json:"diagnostic_recommendations"`
	TreatmentRecommendations []struct {
		Category             string `json:"category"`
		Text                 string `json:"text"`
		Priority             string `json:"priority"`
		Rationale            string `json:"rationale"`
		EvidenceLevel        string `json:"evidence_level"`
		RequiresConfirmation bool   `json:"requires_confirmation"`
	} `json:"treatment_recommendations"`
	Conflicts []Conflict `json:"conflicts"`
	Staging   Staging    `json:"staging_summary"`

	OverallConfidence       string   `json:"overall_confidence"`
	ConfidenceJustification string   `json:"confidence_justification"`
	Warnings                []string `json:"warnings"`
}

// Conflict records contradictory findings between agents.
type Conflict struct {
	Description    string   `json:"description"`
	AgentsInvolved []string `json:"agents_involved"`
}

// Staging is the coordinator's staging summary; all fields stay empty unless
// explicitly present in the agent inputs.
type Staging struct {
	TNM               string `json:"tnm,omitempty"`
	ClinicalStage     string `json:"clinical_stage,omitempty"`
	PathologicalStage string `json:"pathological_stage,omitempty"`
}

// CoordinatorResult is the coordinator output plus the structured fields the
// view builder needs beyond the generic AgentOutput shape.
type CoordinatorResult struct {
	Output           AgentOutput
	DiagnosticStatus string
	DataGaps         []string
	Conflicts        []Conflict
	Staging          Staging
	// OverallConfidence uses the coordinator's extended scale
	// (very_low|low|moderate|high); it is advisory only and is replaced by
	// evidence-based scoring during cleaning.
	OverallConfidence string
}

func parseCoordinatorResponse(response string, agentCtx AgentContext) AgentOutput {
	var data coordinatorPayload
	if err := llm.DecodeObject(response, &data); err != nil {
		return parseFailure(AgentTypeCoordinator, "Coordinator Agent", "No valid JSON in response", agentCtx)
	}

	var findings []Finding
	for _, f := range data.KeyFindings {
		findings = append(findings, Finding{
			Category:     orDefault(f.Category, "summary"),
			Name:         orDefault(f.Name, "Finding"),
			Value:        f.Value,
			Severity:     ParseSeverity(f.Severity),
			Confidence:   ParseConfidence(f.Confidence),
			SourceReport: f.SourceAgent,
		})
	}

	var recs []Recommendation
	for _, r := range data.DiagnosticRecommendations {
		if r.Text == "" {
			continue
		}
		recs = append(recs, Recommendation{
			Category:  orDefault(r.Category, "diagnostic"),
			Text:      r.Text,
			Priority:  ParseSeverity(r.Priority),
			Rationale: r.Rationale,
		})
	}
	for _, r := range data.TreatmentRecommendations {
		if r.Text == "" {
			continue
		}
		recs = append(recs, Recommendation{
			Category:      "treatment",
			Text:          r.Text,
			Priority:      ParseSeverity(r.Priority),
			Rationale:     r.Rationale,
			EvidenceLevel: r.EvidenceLevel,
		})
	}

	return AgentOutput{
		Success:         true,
		Confidence:      ParseConfidence(data.OverallConfidence),
		Findings:        findings,
		Recommendations: recs,
		Summary:         data.ExecutiveSummary,
		Warnings:        data.Warnings,
	}
}

// Synthesize runs the coordinator over all available specialist outputs and
// assembles the complete case. A coordinator failure still yields a usable
// case: the view builder falls back to the raw agent outputs.
func (c *Coordinator) Synthesize(ctx context.Context, patientID, patientName string,
	radiology, pathology, clinical, research *AgentOutput) (*Case, *CoordinatorResult) {

	agentData := map[string]*AgentOutput{
		"radiology": radiology,
		"pathology": pathology,
		"clinical":  clinical,
		"research":  research,
	}

	agentCtx := AgentContext{
		PatientID:   patientID,
		PatientName: patientName,
		ReportText:  jsonMarshalIndent(agentData),
	}

	result := c.analyzeDetailed(ctx, agentCtx)

	tbCase := &Case{
		PatientID:         patientID,
		PatientName:       patientName,
		CaseDate:          nowISO(),
		RadiologyOutput:   radiology,
		PathologyOutput:   pathology,
		ClinicalOutput:    clinical,
		ResearchOutput:    research,
		CoordinatorOutput: &result.Output,
		AllWarnings:       collectWarnings(radiology, pathology, clinical, research, &result.Output),
	}
	return tbCase, result
}

// analyzeDetailed mirrors baseAgent.Analyze but retains the coordinator-only
// fields (data gaps, conflicts, staging) that AgentOutput cannot carry.
func (c *Coordinator) analyzeDetailed(ctx context.Context, agentCtx AgentContext) *CoordinatorResult {
	callCtx, cancel := context.WithTimeout(ctx, AgentTimeout)
	defer cancel()

	resp, err := c.base.gateway.Chat(callCtx, llm.ChatRequest{
		Model:       c.base.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: c.base.prompt(agentCtx)}},
		Temperature: 0.1,
		MaxTokens:   agentMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		c.base.logger.Warn("Coordinator LLM call failed", "patient_id", agentCtx.PatientID, "error", err)
		return &CoordinatorResult{
			Output:            c.base.errorOutput(err.Error(), agentCtx),
			OverallConfidence: "low",
		}
	}

	var data coordinatorPayload
	if err := llm.DecodeObject(resp.Content, &data); err != nil {
		return &CoordinatorResult{
			Output:            parseFailure(AgentTypeCoordinator, c.base.name, "No valid JSON in response", agentCtx),
			OverallConfidence: "low",
		}
	}

	output := parseCoordinatorResponse(resp.Content, agentCtx)
	output.AgentType = c.base.agentType
	output.AgentName = c.base.name
	output.Timestamp = nowISO()
	output.PatientID = agentCtx.PatientID

	return &CoordinatorResult{
		Output:            output,
		DiagnosticStatus:  data.DiagnosticStatus,
		DataGaps:          data.DataGaps,
		Conflicts:         data.Conflicts,
		Staging:           data.Staging,
		OverallConfidence: orDefault(data.OverallConfidence, "low"),
	}
}

func collectWarnings(outputs ...*AgentOutput) []string {
	seen := make(map[string]struct{})
	var warnings []string
	for _, out := range outputs {
		if out == nil {
			continue
		}
		for _, w := range out.Warnings {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			warnings = append(warnings, w)
		}
	}
	return warnings
}
