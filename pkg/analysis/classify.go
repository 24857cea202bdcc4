package analysis

import (
	"fmt"
	"strings"

	"github.com/cyno-health/cyno/pkg/extraction"
)

// Findings classification: merged document findings are routed into three
// textual specialist inputs by keyword on the test name. Hematology counts
// travel with pathology (the board's pathology agent reads blood work);
// everything unmatched is clinical context.

// Short abbreviations match whole tokens only ("ct" must not catch
// "Direct bilirubin"); longer terms match as substrings.
var imagingTokens = []string{"ct", "mri", "pet", "usg", "echo", "scan", "xray"}

var imagingSubstrings = []string{
	"x-ray", "ultrasound", "imaging", "radiograph", "mammogra", "doppler", "pet-ct",
}

var pathologyTokens = []string{"wbc", "rbc", "mcv", "mch", "mchc", "pcv", "esr", "dlc", "tlc", "fnac"}

var pathologySubstrings = []string{
	"biopsy", "histopath", "pathology", "cytology", "smear", "marrow",
	"blast", "immunohisto", "flow cytometry",
	"hemoglobin", "haemoglobin", "platelet", "leucocyte", "leukocyte",
	"neutrophil", "lymphocyte", "monocyte", "eosinophil", "basophil",
	"hematocrit",
}

// bucket identifies one specialist input stream.
type bucket int

const (
	bucketClinical bucket = iota
	bucketImaging
	bucketPathology
)

func classifyFinding(testName string) bucket {
	name := strings.ToLower(testName)
	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == '(' || r == ')' || r == ',' || r == '.'
	})

	if matchesBucket(name, tokens, imagingSubstrings, imagingTokens) {
		return bucketImaging
	}
	if matchesBucket(name, tokens, pathologySubstrings, pathologyTokens) {
		return bucketPathology
	}
	return bucketClinical
}

func matchesBucket(name string, tokens, substrings, exactTokens []string) bool {
	for _, kw := range substrings {
		if strings.Contains(name, kw) {
			return true
		}
	}
	for _, token := range tokens {
		for _, kw := range exactTokens {
			if token == kw {
				return true
			}
		}
	}
	return false
}

// ClassifiedInputs are the three specialist input texts.
type ClassifiedInputs struct {
	Imaging   string
	Pathology string
	Clinical  string
}

// ClassifyPayload routes every finding of every successful report analysis
// into the specialist buckets and renders each bucket as report text.
func ClassifyPayload(payload *Payload) ClassifiedInputs {
	var imaging, pathology, clinical []string

	for _, result := range payload.Results {
		if result.Status != ReportStatusSuccess || result.Analysis == nil {
			continue
		}
		for _, f := range result.Analysis.AllFindings {
			line := renderFinding(f)
			switch classifyFinding(f.TestName) {
			case bucketImaging:
				imaging = append(imaging, line)
			case bucketPathology:
				pathology = append(pathology, line)
			default:
				clinical = append(clinical, line)
			}
		}
		for _, dx := range result.Analysis.Diagnoses {
			pathology = append(pathology, "Diagnosis noted: "+dx)
		}
	}

	return ClassifiedInputs{
		Imaging:   strings.Join(imaging, "\n"),
		Pathology: strings.Join(pathology, "\n"),
		Clinical:  strings.Join(clinical, "\n"),
	}
}

func renderFinding(f extraction.Finding) string {
	line := f.TestName + ": " + f.Value
	if f.Unit != "" {
		line += " " + f.Unit
	}
	if f.ReferenceRange != "" {
		line += fmt.Sprintf(" (ref: %s)", f.ReferenceRange)
	}
	return line
}
