// Package extraction implements the two-stage LLM extraction chain over OCR
// text: Stage-A structural extraction, a deterministic verifier that decides
// whether the Stage-B validation pass is needed, and the cross-page merger.
package extraction

import "strings"

// Finding is one tabular medical result. Value is preserved verbatim from
// the source text; any discrepancy is recorded as a page warning instead of
// being corrected.
type Finding struct {
	TestName       string `json:"test_name"`
	Value          string `json:"value"`
	Unit           string `json:"unit,omitempty"`
	ReferenceRange string `json:"reference_range,omitempty"`
	Status         string `json:"status,omitempty"`
	Interpretation string `json:"interpretation,omitempty"`
}

// PatientIdentity holds demographics extracted from a page.
type PatientIdentity struct {
	Name   string `json:"name,omitempty"`
	ID     string `json:"id,omitempty"`
	DOB    string `json:"dob,omitempty"`
	Gender string `json:"gender,omitempty"`
	Age    string `json:"age,omitempty"`
}

// IsZero reports whether no identity field is set.
func (p PatientIdentity) IsZero() bool {
	return p == PatientIdentity{}
}

// ReportMetadata holds document-level metadata extracted from a page.
type ReportMetadata struct {
	ReportType         string `json:"report_type,omitempty"`
	Date               string `json:"date,omitempty"`
	LabName            string `json:"lab_name,omitempty"`
	ReferringPhysician string `json:"referring_physician,omitempty"`
}

// IsZero reports whether no metadata field is set.
func (r ReportMetadata) IsZero() bool {
	return r == ReportMetadata{}
}

// PageAnalysis is the validated extraction result for one page.
type PageAnalysis struct {
	PageNumber           int             `json:"page_number"`
	PatientIdentity      PatientIdentity `json:"patient_identity"`
	ReportMetadata       ReportMetadata  `json:"report_metadata"`
	Findings             []Finding       `json:"findings"`
	Diagnosis            string          `json:"diagnosis,omitempty"`
	Recommendations      []string        `json:"recommendations,omitempty"`
	Warnings             []string        `json:"warnings,omitempty"`
	ExtractionConfidence float64         `json:"extraction_confidence"`
	RawTextPreview       string          `json:"raw_text_preview,omitempty"`
}

// DocumentAnalysis is the merged result across all pages of one document.
type DocumentAnalysis struct {
	PatientIdentity     PatientIdentity `json:"patient_identity"`
	ReportMetadata      ReportMetadata  `json:"report_metadata"`
	AllFindings         []Finding       `json:"all_findings"`
	Diagnoses           []string        `json:"diagnoses"`
	Recommendations     []string        `json:"recommendations"`
	AggregateConfidence float64         `json:"aggregate_confidence"`
	MergeWarnings       []string        `json:"merge_warnings"`
	TotalPages          int             `json:"total_pages"`
}

// previewLimit bounds RawTextPreview so page analyses stay small when
// serialized onto the job record.
const previewLimit = 200

func textPreview(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= previewLimit {
		return text
	}
	return text[:previewLimit] + "..."
}
