package tumorboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pathologyDiagnosis(value string) ViewFinding {
	return ViewFinding{Category: "diagnosis", Title: "Histological Diagnosis", Value: value, SourceAgent: "pathology"}
}

func labFinding(title, value string) ViewFinding {
	return ViewFinding{Category: "lab", Title: title, Value: value, SourceAgent: "clinical"}
}

func TestIsDiagnosisConfirmed(t *testing.T) {
	confirmed := ViewFindings{Pathology: []ViewFinding{pathologyDiagnosis("Invasive ductal carcinoma")}}
	assert.True(t, IsDiagnosisConfirmed(confirmed))

	for _, value := range []string{"pending", "unknown", "blood", "string", "", "suspicious mass"} {
		findings := ViewFindings{Pathology: []ViewFinding{pathologyDiagnosis(value)}}
		assert.False(t, IsDiagnosisConfirmed(findings), "value %q should not confirm", value)
	}
}

func TestIsDiagnosisConfirmed_AllRoots(t *testing.T) {
	for _, root := range []string{"carcinoma", "lymphoma", "leukemia", "sarcoma", "melanoma", "adenoma", "myeloma"} {
		findings := ViewFindings{Pathology: []ViewFinding{pathologyDiagnosis("diffuse " + root)}}
		assert.True(t, IsDiagnosisConfirmed(findings), root)
	}
}

func TestHasPathologyConfirmation(t *testing.T) {
	assert.False(t, HasPathologyConfirmation(ViewFindings{}))
	assert.False(t, HasPathologyConfirmation(ViewFindings{
		Pathology: []ViewFinding{{Category: "grade", Title: "Grade", Value: "unknown"}},
	}))
	assert.True(t, HasPathologyConfirmation(ViewFindings{
		Pathology: []ViewFinding{{Category: "grade", Title: "Grade", Value: "Grade 2"}},
	}))
}

func TestIsStagingAvailable(t *testing.T) {
	assert.True(t, IsStagingAvailable(ViewFindings{}, Staging{TNM: "T2N1M0"}))
	assert.False(t, IsStagingAvailable(ViewFindings{}, Staging{}))

	byTitle := ViewFindings{Clinical: []ViewFinding{{Title: "Clinical Stage", Value: "IIB"}}}
	assert.True(t, IsStagingAvailable(byTitle, Staging{}))

	pendingStage := ViewFindings{Clinical: []ViewFinding{{Title: "Stage", Value: "pending"}}}
	assert.False(t, IsStagingAvailable(pendingStage, Staging{}))
}

func TestDetectDiseaseCategory_FromDiagnosis(t *testing.T) {
	cases := map[string]string{
		"invasive breast carcinoma":   "breast",
		"pulmonary adenocarcinoma":    "lung",
		"colorectal carcinoma":        "colorectal",
		"acute myeloid leukemia":      "hematologic",
		"prostate adenocarcinoma":     "prostate",
		"high grade ovarian neoplasm": "ovarian",
		"malignant melanoma":          "melanoma",
		"soft tissue mass":            "unknown",
	}
	for dx, want := range cases {
		assert.Equal(t, want, DetectDiseaseCategory(ViewFindings{}, dx), dx)
	}
}

func TestDetectDiseaseCategory_HematologicHeuristic(t *testing.T) {
	findings := ViewFindings{Clinical: []ViewFinding{
		labFinding("Hemoglobin", "9.1"),
		labFinding("WBC count", "92000"),
		labFinding("Platelet count", "42000"),
	}}
	assert.Equal(t, "hematologic", DetectDiseaseCategory(findings, ""))

	// Two indicators are not enough.
	two := ViewFindings{Clinical: findings.Clinical[:2]}
	assert.Equal(t, "unknown", DetectDiseaseCategory(two, ""))
}

func TestCalculateDataCompletenessScore_Bounds(t *testing.T) {
	score, missing := CalculateDataCompletenessScore(ViewFindings{}, Staging{})
	assert.Equal(t, 0.0, score)
	assert.Len(t, missing, 5)

	full := ViewFindings{
		Imaging:   []ViewFinding{{Title: "Lung mass", Value: "3.2 cm"}},
		Pathology: []ViewFinding{pathologyDiagnosis("adenocarcinoma"), {Category: "grade", Title: "Stage", Value: "T2N0M0"}},
		Clinical: []ViewFinding{
			labFinding("Hemoglobin", "13.2"),
			labFinding("WBC", "7200"),
			labFinding("Platelet", "250000"),
		},
	}
	score, missing = CalculateDataCompletenessScore(full, Staging{TNM: "T2N0M0"})
	assert.Equal(t, 1.0, score)
	assert.Empty(t, missing)
}

func TestCalculateDataCompletenessScore_MissingDisjointFromSatisfied(t *testing.T) {
	findings := ViewFindings{Imaging: []ViewFinding{{Title: "CT chest", Value: "nodule"}}}
	score, missing := CalculateDataCompletenessScore(findings, Staging{})
	assert.Equal(t, 0.2, score)
	assert.NotContains(t, missing, "Imaging/radiology data")
	assert.Len(t, missing, 4)
}

func TestStatusFromScore(t *testing.T) {
	assert.Equal(t, StatusDiagnosticWorkupRequired, StatusFromScore(0.0))
	assert.Equal(t, StatusDiagnosticWorkupRequired, StatusFromScore(0.29))
	assert.Equal(t, StatusPendingConfirmation, StatusFromScore(0.3))
	assert.Equal(t, StatusPreliminary, StatusFromScore(0.5))
	assert.Equal(t, StatusReadyForReview, StatusFromScore(0.7))
	assert.Equal(t, StatusReadyForReview, StatusFromScore(1.0))
}

func TestCheckCriticalFindings(t *testing.T) {
	findings := ViewFindings{Clinical: []ViewFinding{
		labFinding("Hemoglobin", "6.2 g/dL"),
		labFinding("Platelet count", "32000"),
		labFinding("WBC count", "92000"),
	}}

	hasCritical, override, warnings := CheckCriticalFindings(findings)
	assert.True(t, hasCritical)
	assert.Equal(t, "high", override)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "Severe anemia")
	assert.Contains(t, warnings[1], "thrombocytopenia")
	assert.Contains(t, warnings[2], "Leukocytosis")
}

func TestCheckCriticalFindings_NormalValues(t *testing.T) {
	findings := ViewFindings{Clinical: []ViewFinding{
		labFinding("Hemoglobin", "13.2 g/dL"),
		labFinding("WBC count", "7200"),
		labFinding("Creatinine", "0.9 mg/dL"),
	}}
	hasCritical, override, warnings := CheckCriticalFindings(findings)
	assert.False(t, hasCritical)
	assert.Empty(t, override)
	assert.Empty(t, warnings)
}

func TestValidate_UnsafeWithoutPathology(t *testing.T) {
	findings := ViewFindings{Imaging: []ViewFinding{{Title: "Lung mass", Value: "3 cm"}}}
	result := ValidateForTreatmentRecommendations(findings, Staging{})

	assert.False(t, result.IsSafeForTreatmentRecs)
	assert.Contains(t, result.Warnings, "Diagnosis pending. Treatment recommendations are preliminary only.")
	assert.Contains(t, result.Warnings, "Pathology confirmation required before treatment initiation.")
}

func TestValidate_SafeWithFullEvidence(t *testing.T) {
	findings := ViewFindings{
		Imaging:   []ViewFinding{{Title: "Breast mass", Value: "2.1 cm"}},
		Pathology: []ViewFinding{pathologyDiagnosis("invasive ductal carcinoma")},
		Clinical: []ViewFinding{
			labFinding("Hemoglobin", "12.8"), labFinding("WBC", "6400"), labFinding("Platelet", "240000"),
		},
	}
	result := ValidateForTreatmentRecommendations(findings, Staging{TNM: "T2N0M0"})
	assert.True(t, result.IsSafeForTreatmentRecs)
	assert.Equal(t, StatusReadyForReview, result.Status)
}

func TestFilterBiomarkersByDisease(t *testing.T) {
	biomarkers := []ViewFinding{
		{Category: "biomarker", Title: "ER", Value: "Positive 90%"},
		{Category: "biomarker", Title: "HER2", Value: "Negative"},
		{Category: "biomarker", Title: "EGFR", Value: "Wild type"},
		{Category: "biomarker", Title: "LDH", Value: "220"},
	}

	breast := FilterBiomarkersByDisease(biomarkers, "breast")
	titles := make([]string, len(breast))
	for i, b := range breast {
		titles[i] = b.Title
	}
	// EGFR is lung-specific; LDH survives as a generic marker.
	assert.Equal(t, []string{"ER", "HER2", "LDH"}, titles)
}

func TestFilterBiomarkersByDisease_UnknownKeepsAll(t *testing.T) {
	biomarkers := []ViewFinding{{Title: "ER"}, {Title: "EGFR"}}
	assert.Len(t, FilterBiomarkersByDisease(biomarkers, "unknown"), 2)
}

func TestSanitizeRecommendations_Gated(t *testing.T) {
	recs := []ViewRecommendation{
		{Category: "treatment", Text: "Start FOLFOX chemotherapy"},
		{Category: "treatment", Text: "Biopsy to confirm diagnosis"},
		{Category: "diagnostic", Text: "PET-CT for staging"},
		{Category: "referral", Text: "Hematology consult"},
	}
	unsafe := ValidationResult{IsSafeForTreatmentRecs: false}

	filtered := SanitizeRecommendations(recs, unsafe)
	require.Len(t, filtered, 3)
	// The chemo recommendation is gone; the biopsy one is re-categorized.
	assert.Equal(t, "diagnostic", filtered[0].Category)
	assert.Equal(t, "Biopsy to confirm diagnosis", filtered[0].Text)
	assert.Equal(t, "PET-CT for staging", filtered[1].Text)
	assert.Equal(t, "Hematology consult", filtered[2].Text)
}

func TestSanitizeRecommendations_SafePassThrough(t *testing.T) {
	recs := []ViewRecommendation{{Category: "treatment", Text: "Adjuvant chemotherapy"}}
	safe := ValidationResult{IsSafeForTreatmentRecs: true}
	assert.Equal(t, recs, SanitizeRecommendations(recs, safe))
}
