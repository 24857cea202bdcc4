package tumorboard

import (
	"log/slog"

	"github.com/cyno-health/cyno/pkg/llm"
)

// NewRadiologyAgent builds the imaging specialist: tumors, lymph nodes and
// metastases from CT/MRI/PET/X-ray reports.
func NewRadiologyAgent(gateway Gateway, model string) Agent {
	a := &baseAgent{
		agentType: AgentTypeRadiology,
		name:      "Radiology Agent",
		model:     model,
		gateway:   gateway,
		prompt:    buildRadiologyPrompt,
		logger:    slog.Default(),
	}
	a.parse = func(response string, agentCtx AgentContext) AgentOutput {
		return parseRadiologyResponse(response, agentCtx)
	}
	return a
}

type radiologyPayload struct {
	Tumors []struct {
		Location    string `json:"location"`
		Size        string `json:"size"`
		SizeUnit    string `json:"size_unit"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
		Confidence  string `json:"confidence"`
	} `json:"tumors"`
	LymphNodes []struct {
		Location    string `json:"location"`
		Status      string `json:"status"`
		Size        string `json:"size"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
		Confidence  string `json:"confidence"`
	} `json:"lymph_nodes"`
	Metastases []struct {
		Location    string `json:"location"`
		Status      string `json:"status"`
		Description string `json:"description"`
		Confidence  string `json:"confidence"`
	} `json:"metastases"`
	Recommendations []recommendationPayload `json:"recommendations"`
	Summary         string                  `json:"summary"`
	Warnings        []string                `json:"warnings"`
}

// recommendationPayload tolerates both object and bare-string entries, which
// smaller models emit interchangeably.
type recommendationPayload struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale"`
}

func (r *recommendationPayload) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := jsonUnmarshal(data, &s); err != nil {
			return err
		}
		r.Text = s
		return nil
	}
	type alias recommendationPayload
	var a alias
	if err := jsonUnmarshal(data, &a); err != nil {
		return err
	}
	*r = recommendationPayload(a)
	return nil
}

func parseRadiologyResponse(response string, agentCtx AgentContext) AgentOutput {
	var data radiologyPayload
	if err := llm.DecodeObject(response, &data); err != nil {
		return parseFailure(AgentTypeRadiology, "Radiology Agent", "No valid JSON in response", agentCtx)
	}

	var findings []Finding
	for _, t := range data.Tumors {
		findings = append(findings, Finding{
			Category:       "tumor",
			Name:           orDefault(t.Location, "Primary Tumor"),
			Value:          orUnknown(t.Size),
			Unit:           orDefault(t.SizeUnit, "cm"),
			Severity:       ParseSeverity(t.Severity),
			Confidence:     ParseConfidence(t.Confidence),
			SourceReport:   agentCtx.ReportType,
			Interpretation: t.Description,
		})
	}
	for _, ln := range data.LymphNodes {
		findings = append(findings, Finding{
			Category:       "lymph_nodes",
			Name:           orDefault(ln.Location, "Lymph Nodes"),
			Value:          orUnknown(ln.Status),
			Severity:       ParseSeverity(ln.Severity),
			Confidence:     ParseConfidence(ln.Confidence),
			SourceReport:   agentCtx.ReportType,
			Interpretation: ln.Description,
		})
	}
	for _, met := range data.Metastases {
		findings = append(findings, Finding{
			Category:       "metastasis",
			Name:           orDefault(met.Location, "Metastatic Site"),
			Value:          orDefault(met.Status, "Present"),
			Severity:       SeverityHigh,
			Confidence:     ParseConfidence(met.Confidence),
			SourceReport:   agentCtx.ReportType,
			Interpretation: met.Description,
		})
	}

	var recs []Recommendation
	for _, r := range data.Recommendations {
		if r.Text == "" {
			continue
		}
		recs = append(recs, Recommendation{
			Category:  "imaging",
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
