package tumorboard

import "time"

// ViewFinding is a finding as displayed in the board view.
type ViewFinding struct {
	Category       string `json:"category"`
	Title          string `json:"title"`
	Value          string `json:"value"`
	Severity       string `json:"severity"`
	SourceAgent    string `json:"source_agent"`
	SourceReport   string `json:"source_report,omitempty"`
	Interpretation string `json:"interpretation,omitempty"`
}

// ViewRecommendation is a recommendation as displayed in the board view.
type ViewRecommendation struct {
	Category      string `json:"category"`
	Text          string `json:"text"`
	Priority      string `json:"priority"`
	Rationale     string `json:"rationale,omitempty"`
	EvidenceLevel string `json:"evidence_level,omitempty"`
}

// ClinicalTrial is a trial suggestion attached to the view.
type ClinicalTrial struct {
	Name        string `json:"name"`
	Source      string `json:"source,omitempty"`
	Eligibility string `json:"eligibility,omitempty"`
}

// ViewFindings groups findings by clinical category.
type ViewFindings struct {
	Imaging    []ViewFinding `json:"imaging"`
	Pathology  []ViewFinding `json:"pathology"`
	Clinical   []ViewFinding `json:"clinical"`
	Biomarkers []ViewFinding `json:"biomarkers"`
}

// Total counts findings across all categories.
func (f ViewFindings) Total() int {
	return len(f.Imaging) + len(f.Pathology) + len(f.Clinical) + len(f.Biomarkers)
}

// ViewRecommendations groups recommendations by category.
type ViewRecommendations struct {
	Treatment  []ViewRecommendation `json:"treatment"`
	Imaging    []ViewRecommendation `json:"imaging"`
	Diagnostic []ViewRecommendation `json:"diagnostic"`
	Other      []ViewRecommendation `json:"other"`
}

// TimelineEntry is one grouped row of the structured medical timeline.
type TimelineEntry struct {
	Date    string `json:"date,omitempty"`
	Domain  string `json:"domain"`
	Entries []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
		Unit  string `json:"unit,omitempty"`
	} `json:"entries"`
}

// View is the complete tumor board view: the final artifact rendered to
// doctors and persisted on the board case.
type View struct {
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name"`
	PatientAge    string `json:"patient_age,omitempty"`
	PatientGender string `json:"patient_gender,omitempty"`

	CaseID      string `json:"case_id,omitempty"`
	CaseDate    string `json:"case_date"`
	GeneratedAt string `json:"generated_at"`

	ExecutiveSummary string  `json:"executive_summary"`
	Staging          Staging `json:"staging"`

	Findings        ViewFindings        `json:"findings"`
	Recommendations ViewRecommendations `json:"recommendations"`
	ClinicalTrials  []ClinicalTrial     `json:"clinical_trials"`

	Warnings  []string   `json:"warnings"`
	Conflicts []Conflict `json:"conflicts"`

	// Attached by the validator/cleaner.
	DiagnosticStatus        string   `json:"diagnostic_status,omitempty"`
	DetectedDiseaseCategory string   `json:"detected_disease_category,omitempty"`
	DataCompletenessScore   float64  `json:"data_completeness_score"`
	MissingCriticalData     []string `json:"missing_critical_data,omitempty"`
	CaseComplexity          string   `json:"case_complexity,omitempty"`

	OverallConfidence       string  `json:"overall_confidence"`
	ConfidenceScore         float64 `json:"confidence_score"`
	ConfidenceJustification string  `json:"confidence_justification,omitempty"`

	Timeline []TimelineEntry `json:"timeline,omitempty"`

	ProcessingTimeSeconds float64        `json:"processing_time_seconds"`
	AgentsUsed            []string       `json:"agents_used"`
	Orchestration         map[string]any `json:"orchestration,omitempty"`
}

// BuildView flattens a synthesized case into the UI view shape. Pathology
// biomarker findings land in their own bucket; research recommendations are
// split into treatment / diagnostic / trials / other.
func BuildView(tbCase *Case, coord *CoordinatorResult, age, gender string, elapsed time.Duration) *View {
	view := &View{
		PatientID:     tbCase.PatientID,
		PatientName:   orUnknown(tbCase.PatientName),
		PatientAge:    age,
		PatientGender: gender,
		CaseDate:      tbCase.CaseDate,
		GeneratedAt:   nowISO(),
		Warnings:      tbCase.AllWarnings,

		OverallConfidence:     "medium",
		ProcessingTimeSeconds: roundSeconds(elapsed),
	}

	if out := tbCase.RadiologyOutput; out != nil && out.Success {
		view.AgentsUsed = append(view.AgentsUsed, out.AgentName)
		for _, f := range out.Findings {
			view.Findings.Imaging = append(view.Findings.Imaging, toViewFinding(f, "radiology"))
		}
	}

	if out := tbCase.PathologyOutput; out != nil && out.Success {
		view.AgentsUsed = append(view.AgentsUsed, out.AgentName)
		for _, f := range out.Findings {
			vf := toViewFinding(f, "pathology")
			if f.Category == "biomarker" {
				view.Findings.Biomarkers = append(view.Findings.Biomarkers, vf)
			} else {
				view.Findings.Pathology = append(view.Findings.Pathology, vf)
			}
		}
	}

	if out := tbCase.ClinicalOutput; out != nil && out.Success {
		view.AgentsUsed = append(view.AgentsUsed, out.AgentName)
		for _, f := range out.Findings {
			view.Findings.Clinical = append(view.Findings.Clinical, toViewFinding(f, "clinical"))
		}
	}

	if out := tbCase.ResearchOutput; out != nil && out.Success {
		view.AgentsUsed = append(view.AgentsUsed, out.AgentName)
		for _, r := range out.Recommendations {
			switch r.Category {
			case "treatment":
				view.Recommendations.Treatment = append(view.Recommendations.Treatment, toViewRecommendation(r))
			case "clinical_trial":
				view.ClinicalTrials = append(view.ClinicalTrials, ClinicalTrial{
					Name:        r.Text,
					Source:      r.Source,
					Eligibility: r.Rationale,
				})
			case "diagnostic":
				view.Recommendations.Diagnostic = append(view.Recommendations.Diagnostic, toViewRecommendation(r))
			default:
				view.Recommendations.Other = append(view.Recommendations.Other, toViewRecommendation(r))
			}
		}
	}

	if out := tbCase.CoordinatorOutput; out != nil && out.Success {
		view.AgentsUsed = append(view.AgentsUsed, out.AgentName)
		view.ExecutiveSummary = out.Summary
		for _, r := range out.Recommendations {
			switch r.Category {
			case "treatment":
				view.Recommendations.Treatment = append(view.Recommendations.Treatment, toViewRecommendation(r))
			case "imaging":
				view.Recommendations.Imaging = append(view.Recommendations.Imaging, toViewRecommendation(r))
			default:
				view.Recommendations.Diagnostic = append(view.Recommendations.Diagnostic, toViewRecommendation(r))
			}
		}
	}

	if coord != nil {
		view.Staging = coord.Staging
		view.Conflicts = coord.Conflicts
		view.OverallConfidence = orDefault(coord.OverallConfidence, "medium")
		view.MissingCriticalData = coord.DataGaps
	}

	return view
}

func toViewFinding(f Finding, sourceAgent string) ViewFinding {
	return ViewFinding{
		Category:       f.Category,
		Title:          f.Name,
		Value:          f.Value,
		Severity:       string(f.Severity),
		SourceAgent:    sourceAgent,
		SourceReport:   f.SourceReport,
		Interpretation: f.Interpretation,
	}
}

func toViewRecommendation(r Recommendation) ViewRecommendation {
	return ViewRecommendation{
		Category:      r.Category,
		Text:          r.Text,
		Priority:      string(r.Priority),
		Rationale:     r.Rationale,
		EvidenceLevel: r.EvidenceLevel,
	}
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}
