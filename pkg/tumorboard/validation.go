package tumorboard

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// DiagnosticStatus grades how ready a case is for board review.
type DiagnosticStatus string

const (
	StatusDiagnosticWorkupRequired DiagnosticStatus = "diagnostic_workup_required"
	StatusPendingConfirmation      DiagnosticStatus = "pending_confirmation"
	StatusPreliminary              DiagnosticStatus = "preliminary"
	StatusReadyForReview           DiagnosticStatus = "ready_for_review"
)

// ValidationResult is the outcome of the clinical safety checks.
type ValidationResult struct {
	IsSafeForTreatmentRecs bool
	DataCompletenessScore  float64
	Status                 DiagnosticStatus
	MissingCriticalData    []string
	Warnings               []string
	ComplexityOverride     string
}

// diseaseBiomarkerMap whitelists the biomarkers relevant per disease
// category. Unknown disease keeps everything.
var diseaseBiomarkerMap = map[string][]string{
	"breast":      {"ER", "PR", "HER2", "Ki-67", "BRCA1", "BRCA2"},
	"lung":        {"EGFR", "ALK", "PD-L1", "ROS1", "KRAS", "MET", "BRAF"},
	"colorectal":  {"KRAS", "NRAS", "BRAF", "MSI", "MMR"},
	"hematologic": {"BCR-ABL", "FLT3", "NPM1", "IDH1", "IDH2", "CD markers", "JAK2", "MPL", "CALR"},
	"prostate":    {"PSA", "AR", "PTEN", "BRCA"},
	"ovarian":     {"BRCA1", "BRCA2", "HRD", "CA-125"},
	"melanoma":    {"BRAF", "NRAS", "KIT", "PD-L1"},
}

// genericBiomarkers are pan-cancer markers kept for every disease category.
var genericBiomarkers = []string{"LDH", "AFP", "CEA", "CA-125", "CA-19"}

// placeholderDiagnoses are values that look like a diagnosis but carry no
// clinical information.
var placeholderDiagnoses = map[string]struct{}{
	"blood": {}, "unknown": {}, "pending": {}, "suspected": {}, "possible": {},
	"n/a": {}, "none": {}, "string": {}, "null": {}, "": {},
}

// specificDiagnosisRoots are the histology roots that count as a confirmed
// diagnosis when present in a pathology diagnosis value.
var specificDiagnosisRoots = []string{
	"carcinoma", "lymphoma", "leukemia", "sarcoma", "melanoma", "adenoma", "myeloma",
}

// IsDiagnosisConfirmed reports whether the pathology findings contain a
// definitive histological diagnosis rather than a placeholder.
func IsDiagnosisConfirmed(findings ViewFindings) bool {
	for _, f := range findings.Pathology {
		if f.Category != "diagnosis" {
			continue
		}
		value := strings.ToLower(strings.TrimSpace(f.Value))
		if _, placeholder := placeholderDiagnoses[value]; placeholder {
			continue
		}
		for _, root := range specificDiagnosisRoots {
			if strings.Contains(value, root) {
				return true
			}
		}
	}
	return false
}

// HasImagingData reports whether any imaging finding is present.
func HasImagingData(findings ViewFindings) bool {
	return len(findings.Imaging) > 0
}

// HasPathologyConfirmation reports whether at least one pathology finding
// carries a real (non-placeholder) value.
func HasPathologyConfirmation(findings ViewFindings) bool {
	for _, f := range findings.Pathology {
		value := strings.ToLower(strings.TrimSpace(f.Value))
		switch value {
		case "string", "unknown", "n/a", "null", "none", "":
			continue
		default:
			return true
		}
	}
	return false
}

var stagingTitleTerms = []string{"stage", "tnm", "t1", "t2", "t3", "t4", "n0", "n1", "m0", "m1"}

// IsStagingAvailable reports whether cancer staging is explicitly present,
// either in the staging summary or in pathology/clinical finding titles.
func IsStagingAvailable(findings ViewFindings, staging Staging) bool {
	if staging.TNM != "" || staging.ClinicalStage != "" || staging.PathologicalStage != "" {
		return true
	}
	for _, group := range [][]ViewFinding{findings.Pathology, findings.Clinical} {
		for _, f := range group {
			title := strings.ToLower(f.Title)
			for _, term := range stagingTitleTerms {
				if strings.Contains(title, term) {
					value := strings.ToLower(f.Value)
					if value != "" && value != "unknown" && value != "pending" && value != "n/a" {
						return true
					}
				}
			}
		}
	}
	return false
}

var hematologicIndicators = []string{"wbc", "rbc", "hemoglobin", "platelet", "blast", "lymphocyte"}

// DetectDiseaseCategory infers the disease category from diagnosis text
// first, falling back to a hematologic heuristic over clinical findings
// (three or more blood-count labels).
func DetectDiseaseCategory(findings ViewFindings, diagnosis string) string {
	dx := strings.ToLower(diagnosis)

	switch {
	case containsAny(dx, "breast", "mammary"):
		return "breast"
	case containsAny(dx, "lung", "pulmonary", "bronchial"):
		return "lung"
	case containsAny(dx, "colon", "rectal", "colorectal", "bowel"):
		return "colorectal"
	case containsAny(dx, "blood", "leukemia", "lymphoma", "myeloma", "hematologic"):
		return "hematologic"
	case strings.Contains(dx, "prostate"):
		return "prostate"
	case containsAny(dx, "ovary", "ovarian"):
		return "ovarian"
	case containsAny(dx, "melanoma", "skin"):
		return "melanoma"
	}

	hematologicCount := 0
	for _, f := range findings.Clinical {
		title := strings.ToLower(f.Title)
		for _, ind := range hematologicIndicators {
			if strings.Contains(title, ind) {
				hematologicCount++
				break
			}
		}
	}
	if hematologicCount >= 3 {
		return "hematologic"
	}
	return "unknown"
}

// Completeness factor weights. Kept as named constants because the same
// weights drive both the completeness score and the evidence-based
// confidence recomputation.
const (
	weightDiagnosis  = 0.30
	weightImaging    = 0.20
	weightStaging    = 0.20
	weightPathology  = 0.15
	weightLabs       = 0.15
	minLabsForCredit = 3
)

// CalculateDataCompletenessScore computes the weighted evidence score and
// the list of missing factors.
func CalculateDataCompletenessScore(findings ViewFindings, staging Staging) (float64, []string) {
	score := 0.0
	var missing []string

	if IsDiagnosisConfirmed(findings) {
		score += weightDiagnosis
	} else {
		missing = append(missing, "Confirmed pathological diagnosis")
	}

	if HasImagingData(findings) {
		score += weightImaging
	} else {
		missing = append(missing, "Imaging/radiology data")
	}

	if IsStagingAvailable(findings, staging) {
		score += weightStaging
	} else {
		missing = append(missing, "Cancer staging (TNM)")
	}

	if HasPathologyConfirmation(findings) {
		score += weightPathology
	} else {
		missing = append(missing, "Pathology confirmation")
	}

	if countLabs(findings) >= minLabsForCredit {
		score += weightLabs
	} else {
		missing = append(missing, "Complete laboratory workup")
	}

	return math.Round(score*100) / 100, missing
}

func countLabs(findings ViewFindings) int {
	n := 0
	for _, f := range findings.Clinical {
		if f.Category == "lab" {
			n++
		}
	}
	return n
}

// StatusFromScore maps a completeness score to a diagnostic status.
func StatusFromScore(score float64) DiagnosticStatus {
	switch {
	case score < 0.3:
		return StatusDiagnosticWorkupRequired
	case score < 0.5:
		return StatusPendingConfirmation
	case score < 0.7:
		return StatusPreliminary
	default:
		return StatusReadyForReview
	}
}

var leadingNumber = regexp.MustCompile(`[\d.]+`)

// CheckCriticalFindings scans clinical findings for lab values past
// life-threatening thresholds. Any hit escalates case complexity to high
// and prepends a critical warning.
func CheckCriticalFindings(findings ViewFindings) (bool, string, []string) {
	var warnings []string
	hasCritical := false

	for _, f := range findings.Clinical {
		title := strings.ToLower(f.Title)
		match := leadingNumber.FindString(f.Value)
		if match == "" {
			continue
		}
		value, err := parseFloat(match)
		if err != nil {
			continue
		}

		switch {
		case containsAny(title, "hemoglobin", "hgb") || title == "hb":
			if value < 7.0 {
				hasCritical = true
				warnings = append(warnings, fmt.Sprintf("CRITICAL: Severe anemia (Hgb %g g/dL)", value))
			}
		case strings.Contains(title, "platelet"):
			if value < 50000 {
				hasCritical = true
				warnings = append(warnings, fmt.Sprintf("CRITICAL: Severe thrombocytopenia (Plt %g)", value))
			}
		case containsAny(title, "wbc", "leucocyte", "leukocyte"):
			if value < 1000 {
				hasCritical = true
				warnings = append(warnings, fmt.Sprintf("CRITICAL: Severe leukopenia (WBC %g)", value))
			} else if value > 50000 {
				hasCritical = true
				warnings = append(warnings, fmt.Sprintf("CRITICAL: Leukocytosis (WBC %g)", value))
			}
		case strings.Contains(title, "neutrophil"):
			if value < 500 {
				hasCritical = true
				warnings = append(warnings, fmt.Sprintf("CRITICAL: Severe neutropenia (ANC %g)", value))
			}
		case strings.Contains(title, "creatinine"):
			if value > 3.0 {
				hasCritical = true
				warnings = append(warnings, fmt.Sprintf("CRITICAL: Renal impairment (Creatinine %g mg/dL)", value))
			}
		}
	}

	override := ""
	if hasCritical {
		override = "high"
	}
	return hasCritical, override, warnings
}

// ValidateForTreatmentRecommendations is the main safety gate: treatment
// recommendations are allowed only with sufficient completeness, a confirmed
// diagnosis and pathology confirmation.
func ValidateForTreatmentRecommendations(findings ViewFindings, staging Staging) ValidationResult {
	score, missing := CalculateDataCompletenessScore(findings, staging)
	status := StatusFromScore(score)
	_, complexityOverride, criticalWarnings := CheckCriticalFindings(findings)

	warnings := append([]string(nil), criticalWarnings...)
	if !HasImagingData(findings) {
		warnings = append(warnings, "No imaging data available. Imaging required before tumor board conclusions.")
	}
	if !IsDiagnosisConfirmed(findings) {
		warnings = append(warnings, "Diagnosis pending. Treatment recommendations are preliminary only.")
	}
	if !HasPathologyConfirmation(findings) {
		warnings = append(warnings, "Pathology confirmation required before treatment initiation.")
	}
	if !IsStagingAvailable(findings, staging) {
		warnings = append(warnings, "Staging data incomplete. Cannot determine treatment eligibility.")
	}

	isSafe := score >= 0.5 &&
		IsDiagnosisConfirmed(findings) &&
		HasPathologyConfirmation(findings)

	return ValidationResult{
		IsSafeForTreatmentRecs: isSafe,
		DataCompletenessScore:  score,
		Status:                 status,
		MissingCriticalData:    missing,
		Warnings:               warnings,
		ComplexityOverride:     complexityOverride,
	}
}

// FilterBiomarkersByDisease restricts biomarkers to the disease whitelist
// plus the generic pan-cancer markers. Unknown disease keeps everything.
func FilterBiomarkersByDisease(biomarkers []ViewFinding, diseaseCategory string) []ViewFinding {
	if diseaseCategory == "unknown" {
		return biomarkers
	}
	relevant, ok := diseaseBiomarkerMap[diseaseCategory]
	if !ok || len(relevant) == 0 {
		return biomarkers
	}

	var filtered []ViewFinding
	for _, b := range biomarkers {
		name := strings.ToUpper(b.Title)
		if matchesAnyMarker(name, relevant) || matchesAnyMarker(name, genericBiomarkers) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

func matchesAnyMarker(name string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(name, strings.ToUpper(m)) {
			return true
		}
	}
	return false
}

// diagnosticCategories are the recommendation categories that survive when
// treatment recommendations are gated off.
var diagnosticCategories = map[string]struct{}{
	"diagnostic": {}, "imaging": {}, "biopsy": {}, "referral": {}, "workup": {}, "consultation": {},
}

// diagnosticIntentTerms re-categorize a gated treatment recommendation as
// diagnostic when its text shows diagnostic intent.
var diagnosticIntentTerms = []string{
	"confirm", "rule out", "evaluate", "assess", "test", "biopsy", "imaging", "refer",
}

// SanitizeRecommendations strips non-diagnostic recommendations when the
// case is not safe for treatment recommendations. Items whose text carries
// diagnostic intent are kept but re-categorized as diagnostic.
func SanitizeRecommendations(recs []ViewRecommendation, validation ValidationResult) []ViewRecommendation {
	if validation.IsSafeForTreatmentRecs {
		return recs
	}

	var filtered []ViewRecommendation
	for _, rec := range recs {
		category := strings.ToLower(rec.Category)
		if _, ok := diagnosticCategories[category]; ok {
			filtered = append(filtered, rec)
			continue
		}
		text := strings.ToLower(rec.Text)
		for _, term := range diagnosticIntentTerms {
			if strings.Contains(text, term) {
				rec.Category = "diagnostic"
				filtered = append(filtered, rec)
				break
			}
		}
	}
	return filtered
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}
