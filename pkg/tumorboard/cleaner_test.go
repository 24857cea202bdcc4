package tumorboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPlaceholder(t *testing.T) {
	for _, v := range []string{"string", "Unknown", "None", "null", "N/A", "", "   ", "2-3 sentence summary here"} {
		assert.True(t, IsPlaceholder(v), "%q should be a placeholder", v)
	}
	for _, v := range []string{"13.2 g/dL", "Positive", "Grade 2", "pending biopsy"} {
		assert.False(t, IsPlaceholder(v), "%q should not be a placeholder", v)
	}
}

func TestCleanValue(t *testing.T) {
	assert.Equal(t, "13.2 g/dL", CleanValue("13.2 g/dL g/dL"))
	assert.Equal(t, "2.1 lakh/cu.mm", CleanValue("2.1 lakh/cu.mm lakh/cu.mm"))
	assert.Equal(t, "45 %", CleanValue("45 % %"))
	assert.Equal(t, "27 pg", CleanValue("27 pg pg"))
	assert.Equal(t, "88 fL", CleanValue("88 fL fL"))
	assert.Equal(t, "Positive", CleanValue("Positive (None)"))
	assert.Equal(t, "Negative", CleanValue("Negative None"))
	// Distinct units are not a duplicate and must survive.
	assert.Equal(t, "13.2 g/dL mg/dL", CleanValue("13.2 g/dL mg/dL"))
}

func TestStandardizeGender(t *testing.T) {
	for _, v := range []string{"m", "male", "MAN", "Male"} {
		assert.Equal(t, "Male", StandardizeGender(v), v)
	}
	for _, v := range []string{"f", "FEMALE", "woman"} {
		assert.Equal(t, "Female", StandardizeGender(v), v)
	}
	assert.Equal(t, "Nonbinary", StandardizeGender("nonbinary"))
	assert.Equal(t, "", StandardizeGender(""))
}

func unsafeView() *View {
	return &View{
		PatientID:     "p-1",
		PatientName:   "Jane Doe",
		PatientAge:    "52",
		PatientGender: "f",
		Findings: ViewFindings{
			Imaging: nil, // no imaging data
			Clinical: []ViewFinding{
				{Category: "lab", Title: "Hemoglobin", Value: "9.1 g/dL g/dL", SourceAgent: "clinical"},
				{Category: "symptom", Title: "string", Value: "string", SourceAgent: "clinical"},
			},
		},
		Recommendations: ViewRecommendations{
			Treatment: []ViewRecommendation{
				{Category: "treatment", Text: "Start chemotherapy"},
				{Category: "treatment", Text: "Biopsy to confirm malignancy"},
			},
		},
		ClinicalTrials:    []ClinicalTrial{{Name: "NCT-1234 breast cancer trial"}},
		ExecutiveSummary:  "2-3 sentence summary",
		OverallConfidence: "high",
	}
}

func TestCleanView_SafetyGating(t *testing.T) {
	cleaned := CleanView(unsafeView())

	// Scenario: no pathology findings at all.
	assert.Equal(t, string(StatusDiagnosticWorkupRequired), cleaned.DiagnosticStatus)
	assert.Contains(t, []string{"very_low", "low"}, cleaned.OverallConfidence)
	assert.Empty(t, cleaned.ClinicalTrials)

	// Only the diagnostic-intent treatment survives, re-categorized.
	require.Len(t, cleaned.Recommendations.Treatment, 1)
	assert.Equal(t, "diagnostic", cleaned.Recommendations.Treatment[0].Category)

	assertWarningContaining(t, cleaned.Warnings, "Diagnosis pending")
	assertWarningContaining(t, cleaned.Warnings, "No imaging data available")
}

func TestCleanView_PlaceholderFindingDropped(t *testing.T) {
	cleaned := CleanView(unsafeView())
	require.Len(t, cleaned.Findings.Clinical, 1)
	assert.Equal(t, "Hemoglobin", cleaned.Findings.Clinical[0].Title)
	assert.Equal(t, "9.1 g/dL", cleaned.Findings.Clinical[0].Value)
}

func TestCleanView_GenderStandardized(t *testing.T) {
	cleaned := CleanView(unsafeView())
	assert.Equal(t, "Female", cleaned.PatientGender)
}

func TestCleanView_FallbackSummary(t *testing.T) {
	cleaned := CleanView(unsafeView())
	assert.NotEqual(t, "2-3 sentence summary", cleaned.ExecutiveSummary)
	assert.Contains(t, cleaned.ExecutiveSummary, "Jane Doe")
	assert.Contains(t, cleaned.ExecutiveSummary, "PENDING")
}

func TestCleanView_ConfidenceOverridesLLM(t *testing.T) {
	view := unsafeView()
	view.OverallConfidence = "high" // LLM claims high with no evidence
	cleaned := CleanView(view)
	assert.NotEqual(t, "high", cleaned.OverallConfidence)
}

func TestCleanView_CriticalLabEscalatesComplexity(t *testing.T) {
	view := unsafeView()
	view.Findings.Clinical = append(view.Findings.Clinical,
		ViewFinding{Category: "lab", Title: "Hemoglobin", Value: "6.1 g/dL"})
	cleaned := CleanView(view)
	assert.Equal(t, "high", cleaned.CaseComplexity)
	assertWarningContaining(t, cleaned.Warnings, "CRITICAL")
}

func TestCleanView_BiomarkerDiseaseFilter(t *testing.T) {
	view := &View{
		PatientID: "p-2",
		Findings: ViewFindings{
			Pathology: []ViewFinding{{Category: "diagnosis", Title: "Histological Diagnosis", Value: "breast carcinoma"}},
			Biomarkers: []ViewFinding{
				{Category: "biomarker", Title: "ER", Value: "Positive"},
				{Category: "biomarker", Title: "BCR-ABL", Value: "Negative"},
			},
		},
	}
	cleaned := CleanView(view)
	assert.Equal(t, "breast", cleaned.DetectedDiseaseCategory)
	require.Len(t, cleaned.Findings.Biomarkers, 1)
	assert.Equal(t, "ER", cleaned.Findings.Biomarkers[0].Title)
}

func TestCleanView_Idempotent(t *testing.T) {
	once := CleanView(unsafeView())
	twice := CleanView(once)
	assert.Equal(t, once, twice)
}

func TestCleanView_IdempotentOnSafeCase(t *testing.T) {
	view := &View{
		PatientID: "p-3",
		Findings: ViewFindings{
			Imaging:   []ViewFinding{{Category: "tumor", Title: "Breast mass", Value: "2.1 cm", Severity: "high"}},
			Pathology: []ViewFinding{{Category: "diagnosis", Title: "Histological Diagnosis", Value: "invasive ductal carcinoma", Severity: "high"}},
			Clinical: []ViewFinding{
				{Category: "lab", Title: "Hemoglobin", Value: "12.8"},
				{Category: "lab", Title: "WBC", Value: "6400"},
				{Category: "lab", Title: "Platelet", Value: "240000"},
			},
		},
		Staging:          Staging{TNM: "T2N0M0"},
		ExecutiveSummary: "Confirmed invasive ductal carcinoma, early stage.",
		Recommendations: ViewRecommendations{
			Treatment: []ViewRecommendation{{Category: "treatment", Text: "Adjuvant chemotherapy per NCCN"}},
		},
		ClinicalTrials: []ClinicalTrial{{Name: "Adjuvant breast cancer trial"}},
	}

	once := CleanView(view)
	twice := CleanView(once)
	assert.Equal(t, once, twice)
	// Safe case keeps treatments. The diagnosis text names no organ, so the
	// three blood-count labs classify the case as hematologic and the breast
	// trial is dropped as a category mismatch.
	assert.Len(t, once.Recommendations.Treatment, 1)
	assert.Len(t, once.ClinicalTrials, 0)
}

func TestCleanView_Nil(t *testing.T) {
	assert.Nil(t, CleanView(nil))
}

func assertWarningContaining(t *testing.T, warnings []string, substr string) {
	t.Helper()
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return
		}
	}
	t.Fatalf("no warning containing %q in %v", substr, warnings)
}
