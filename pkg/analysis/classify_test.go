package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyno-health/cyno/pkg/extraction"
)

func payloadWithFindings(findings []extraction.Finding, diagnoses ...string) *Payload {
	return &Payload{
		Results: []ReportResult{{
			FileName: "report.pdf",
			Status:   ReportStatusSuccess,
			Analysis: &extraction.DocumentAnalysis{
				AllFindings: findings,
				Diagnoses:   diagnoses,
			},
		}},
	}
}

func TestClassifyPayload_Buckets(t *testing.T) {
	payload := payloadWithFindings([]extraction.Finding{
		{TestName: "CT Chest", Value: "3.2 cm RUL mass"},
		{TestName: "Hemoglobin", Value: "9.1", Unit: "g/dL", ReferenceRange: "12-15"},
		{TestName: "Bone marrow biopsy", Value: "hypercellular"},
		{TestName: "Blood pressure", Value: "140/90", Unit: "mmHg"},
	})

	inputs := ClassifyPayload(payload)

	assert.Contains(t, inputs.Imaging, "CT Chest: 3.2 cm RUL mass")
	assert.Contains(t, inputs.Pathology, "Hemoglobin: 9.1 g/dL (ref: 12-15)")
	assert.Contains(t, inputs.Pathology, "Bone marrow biopsy: hypercellular")
	assert.Contains(t, inputs.Clinical, "Blood pressure: 140/90 mmHg")
	assert.NotContains(t, inputs.Clinical, "CT Chest")
}

func TestClassifyPayload_DiagnosesGoToPathology(t *testing.T) {
	payload := payloadWithFindings(nil, "Iron deficiency anemia")
	inputs := ClassifyPayload(payload)
	assert.Contains(t, inputs.Pathology, "Diagnosis noted: Iron deficiency anemia")
}

func TestClassifyPayload_SkipsFailedReports(t *testing.T) {
	payload := &Payload{Results: []ReportResult{
		{FileName: "bad.pdf", Status: ReportStatusError, Error: "unreadable"},
		{FileName: "empty.png", Status: ReportStatusWarning, Warning: "no text"},
	}}
	inputs := ClassifyPayload(payload)
	assert.Empty(t, inputs.Imaging)
	assert.Empty(t, inputs.Pathology)
	assert.Empty(t, inputs.Clinical)
}

func TestClassifyFinding_CaseInsensitive(t *testing.T) {
	assert.Equal(t, bucketImaging, classifyFinding("PET-CT Whole Body"))
	assert.Equal(t, bucketPathology, classifyFinding("WBC Count"))
	assert.Equal(t, bucketClinical, classifyFinding("Heart rate"))
}
