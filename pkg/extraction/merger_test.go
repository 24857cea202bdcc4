package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_IdentityFirstNonNullWins(t *testing.T) {
	pages := []PageAnalysis{
		{PageNumber: 1, PatientIdentity: PatientIdentity{Name: "Jane Doe"}},
		{PageNumber: 2, PatientIdentity: PatientIdentity{Name: "J. Doe", Age: "52"}},
	}

	doc := Merge(pages)
	assert.Equal(t, "Jane Doe", doc.PatientIdentity.Name)
	assert.Equal(t, "52", doc.PatientIdentity.Age)
}

func TestMerge_ConflictHigherConfidenceWins(t *testing.T) {
	pages := []PageAnalysis{
		{
			PageNumber:           1,
			Findings:             []Finding{{TestName: "Hemoglobin", Value: "13", Unit: "g/dL"}},
			ExtractionConfidence: 0.7,
		},
		{
			PageNumber:           2,
			Findings:             []Finding{{TestName: "Hemoglobin", Value: "12", Unit: "g/dL"}},
			ExtractionConfidence: 0.9,
		},
	}

	doc := Merge(pages)
	require.Len(t, doc.AllFindings, 1)
	assert.Equal(t, "12", doc.AllFindings[0].Value)
	require.Len(t, doc.MergeWarnings, 1)
	assert.Contains(t, doc.MergeWarnings[0], "page 1")
	assert.Contains(t, doc.MergeWarnings[0], "page 2")
}

func TestMerge_TieKeepsEarlierPage(t *testing.T) {
	pages := []PageAnalysis{
		{PageNumber: 1, Findings: []Finding{{TestName: "WBC", Value: "7200"}}, ExtractionConfidence: 0.8},
		{PageNumber: 2, Findings: []Finding{{TestName: "WBC", Value: "9999"}}, ExtractionConfidence: 0.8},
	}

	doc := Merge(pages)
	require.Len(t, doc.AllFindings, 1)
	assert.Equal(t, "7200", doc.AllFindings[0].Value)
	assert.Empty(t, doc.MergeWarnings)
}

func TestMerge_DedupKeyNormalization(t *testing.T) {
	pages := []PageAnalysis{
		{PageNumber: 1, Findings: []Finding{{TestName: " Hemoglobin ", Value: "13"}}, ExtractionConfidence: 0.9},
		{PageNumber: 2, Findings: []Finding{{TestName: "HEMOGLOBIN", Value: "12"}}, ExtractionConfidence: 0.5},
	}

	doc := Merge(pages)
	assert.Len(t, doc.AllFindings, 1)
}

func TestMerge_EmptyKeyPassesThrough(t *testing.T) {
	pages := []PageAnalysis{
		{PageNumber: 1, Findings: []Finding{{TestName: "", Value: "a"}, {TestName: "  ", Value: "b"}}},
	}

	doc := Merge(pages)
	assert.Len(t, doc.AllFindings, 2)
}

func TestMerge_UnitConflictWarning(t *testing.T) {
	pages := []PageAnalysis{
		{PageNumber: 1, Findings: []Finding{{TestName: "Platelet", Value: "2.1", Unit: "lakh/cu.mm"}}, ExtractionConfidence: 0.8},
		{PageNumber: 3, Findings: []Finding{{TestName: "Platelet", Value: "210000", Unit: "/cu.mm"}}, ExtractionConfidence: 0.6},
	}

	doc := Merge(pages)
	require.Len(t, doc.AllFindings, 1)
	assert.Equal(t, "2.1", doc.AllFindings[0].Value) // lower confidence page did not replace
	require.Len(t, doc.MergeWarnings, 1)
	assert.Contains(t, doc.MergeWarnings[0], "Unit conflict for Platelet")
	assert.Contains(t, doc.MergeWarnings[0], "'lakh/cu.mm' (page 1)")
	assert.Contains(t, doc.MergeWarnings[0], "'/cu.mm' (page 3)")
}

func TestMerge_DiagnosesAndRecommendationsUnion(t *testing.T) {
	pages := []PageAnalysis{
		{PageNumber: 1, Diagnosis: "Anemia", Recommendations: []string{"Repeat CBC", "Iron studies"}},
		{PageNumber: 2, Diagnosis: "Anemia", Recommendations: []string{"Iron studies", "Hematology referral"}},
		{PageNumber: 3, Diagnosis: "Iron deficiency"},
	}

	doc := Merge(pages)
	assert.Equal(t, []string{"Anemia", "Iron deficiency"}, doc.Diagnoses)
	assert.Equal(t, []string{"Repeat CBC", "Iron studies", "Hematology referral"}, doc.Recommendations)
}

func TestMerge_AggregateConfidence(t *testing.T) {
	pages := []PageAnalysis{
		{PageNumber: 1, ExtractionConfidence: 0.9},
		{PageNumber: 2, ExtractionConfidence: 0.6},
		{PageNumber: 3, ExtractionConfidence: 0}, // excluded
	}

	doc := Merge(pages)
	assert.Equal(t, 0.75, doc.AggregateConfidence)
}

func TestMerge_NoPages(t *testing.T) {
	doc := Merge(nil)
	assert.Zero(t, doc.AggregateConfidence)
	assert.Empty(t, doc.AllFindings)
}

func TestMerge_PageWarningsCarried(t *testing.T) {
	pages := []PageAnalysis{
		{PageNumber: 1, Warnings: []string{"Value '14.9' for 'Hemoglobin' not found verbatim in OCR text"}},
	}
	doc := Merge(pages)
	assert.Len(t, doc.MergeWarnings, 1)
}
