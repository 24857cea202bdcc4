package extraction

import (
	"fmt"
	"math"
	"strings"
)

// Merge combines per-page analyses into a single document analysis.
//
// Rules:
//   - identity/metadata: first non-null field across pages in order
//   - findings dedup key: lowercase(trim(test_name)); empty keys pass through
//   - on key collision the later page wins only with strictly higher
//     extraction confidence; every replacement and unit conflict is recorded
//   - diagnoses/recommendations: order-preserving set union
//   - aggregate confidence: mean of positive page confidences, 2 decimals
func Merge(pages []PageAnalysis) DocumentAnalysis {
	doc := DocumentAnalysis{TotalPages: len(pages)}

	type slot struct {
		index      int // position in doc.AllFindings
		page       int
		confidence float64
	}
	byKey := make(map[string]slot)
	seenDiagnoses := make(map[string]struct{})
	seenRecs := make(map[string]struct{})

	confSum := 0.0
	confCount := 0

	for _, page := range pages {
		mergeIdentity(&doc.PatientIdentity, page.PatientIdentity)
		mergeMetadata(&doc.ReportMetadata, page.ReportMetadata)

		for _, f := range page.Findings {
			key := strings.ToLower(strings.TrimSpace(f.TestName))
			if key == "" {
				doc.AllFindings = append(doc.AllFindings, f)
				continue
			}

			existing, ok := byKey[key]
			if !ok {
				byKey[key] = slot{index: len(doc.AllFindings), page: page.PageNumber, confidence: page.ExtractionConfidence}
				doc.AllFindings = append(doc.AllFindings, f)
				continue
			}

			prev := doc.AllFindings[existing.index]
			if prev.Unit != "" && f.Unit != "" && prev.Unit != f.Unit {
				doc.MergeWarnings = append(doc.MergeWarnings, fmt.Sprintf(
					"Unit conflict for %s: '%s' (page %d) vs '%s' (page %d)",
					f.TestName, prev.Unit, existing.page, f.Unit, page.PageNumber))
			}

			if page.ExtractionConfidence > existing.confidence {
				doc.MergeWarnings = append(doc.MergeWarnings, fmt.Sprintf(
					"Replaced '%s' from page %d with higher-confidence value from page %d",
					f.TestName, existing.page, page.PageNumber))
				doc.AllFindings[existing.index] = f
				byKey[key] = slot{index: existing.index, page: page.PageNumber, confidence: page.ExtractionConfidence}
			}
		}

		if page.Diagnosis != "" {
			if _, ok := seenDiagnoses[page.Diagnosis]; !ok {
				seenDiagnoses[page.Diagnosis] = struct{}{}
				doc.Diagnoses = append(doc.Diagnoses, page.Diagnosis)
			}
		}
		for _, rec := range page.Recommendations {
			if _, ok := seenRecs[rec]; !ok {
				seenRecs[rec] = struct{}{}
				doc.Recommendations = append(doc.Recommendations, rec)
			}
		}
		doc.MergeWarnings = append(doc.MergeWarnings, page.Warnings...)

		if page.ExtractionConfidence > 0 {
			confSum += page.ExtractionConfidence
			confCount++
		}
	}

	if confCount > 0 {
		doc.AggregateConfidence = math.Round(confSum/float64(confCount)*100) / 100
	}
	return doc
}

func mergeIdentity(dst *PatientIdentity, src PatientIdentity) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.ID == "" {
		dst.ID = src.ID
	}
	if dst.DOB == "" {
		dst.DOB = src.DOB
	}
	if dst.Gender == "" {
		dst.Gender = src.Gender
	}
	if dst.Age == "" {
		dst.Age = src.Age
	}
}

func mergeMetadata(dst *ReportMetadata, src ReportMetadata) {
	if dst.ReportType == "" {
		dst.ReportType = src.ReportType
	}
	if dst.Date == "" {
		dst.Date = src.Date
	}
	if dst.LabName == "" {
		dst.LabName = src.LabName
	}
	if dst.ReferringPhysician == "" {
		dst.ReferringPhysician = src.ReferringPhysician
	}
}
