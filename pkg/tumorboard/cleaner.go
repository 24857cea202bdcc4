package tumorboard

import (
	"fmt"
	"regexp"
	"strings"
)

// Data cleaning for the multi-agent view: placeholder removal, duplicate
// unit collapse, gender standardization, disease-aware biomarker filtering,
// safety gating and evidence-based confidence recomputation. The whole
// pipeline is pure and idempotent.

// placeholderRegex matches values that are prompt-template leakage or
// explicit non-values.
var placeholderRegex = regexp.MustCompile(`(?i)^(string$|string \(|Unknown$|None$|null$|N/A$|\s*$|2-3 sentence)`)

// duplicateUnitPatterns collapse "13.2 g/dL g/dL" style repeats that models
// produce when value and unit fields are merged.
var duplicateUnitPatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(\w+/[\w.]+)\s+(\w+/[\w.]+)`), "$1"}, // matching pairs handled below
	{regexp.MustCompile(`(%)\s+%`), "$1"},
	{regexp.MustCompile(`(pg)\s+pg\b`), "$1"},
	{regexp.MustCompile(`(fL)\s+fL\b`), "$1"},
}

var genderMap = map[string]string{
	"male": "Male", "m": "Male", "man": "Male",
	"female": "Female", "f": "Female", "woman": "Female",
}

// IsPlaceholder reports whether a value carries no information.
func IsPlaceholder(value string) bool {
	return placeholderRegex.MatchString(strings.TrimSpace(value))
}

// CleanValue trims a value, collapses duplicated units and strips trailing
// "(None)" / " None" debris.
func CleanValue(value string) string {
	cleaned := strings.TrimSpace(value)

	// Generic slash-unit repeat ("g/dL g/dL", "lakh/cu.mm lakh/cu.mm"):
	// only collapse when both sides are identical.
	if m := duplicateUnitPatterns[0].re.FindStringSubmatch(cleaned); m != nil && m[1] == m[2] {
		cleaned = strings.Replace(cleaned, m[0], m[1], 1)
	}
	for _, p := range duplicateUnitPatterns[1:] {
		cleaned = p.re.ReplaceAllString(cleaned, p.replacement)
	}

	cleaned = regexp.MustCompile(`\s*\(None\)\s*$`).ReplaceAllString(cleaned, "")
	cleaned = regexp.MustCompile(`\s+None$`).ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// StandardizeGender maps free-form gender strings to Male/Female, title-
// casing anything unrecognized.
func StandardizeGender(gender string) string {
	if gender == "" {
		return ""
	}
	if mapped, ok := genderMap[strings.ToLower(strings.TrimSpace(gender))]; ok {
		return mapped
	}
	return strings.ToUpper(gender[:1]) + strings.ToLower(gender[1:])
}

// cleanFinding returns the cleaned finding, or false when it is placeholder
// noise that should be dropped.
func cleanFinding(f ViewFinding) (ViewFinding, bool) {
	if IsPlaceholder(f.Title) {
		return f, false
	}

	f.Title = CleanValue(f.Title)
	f.Value = CleanValue(f.Value)
	f.Interpretation = CleanValue(f.Interpretation)

	// An empty value is still meaningful for labs and for info- or
	// low-severity rows; everything else without a value is dropped.
	if f.Value == "" && f.Category != "lab" && f.Severity != "info" && f.Severity != "low" {
		return f, false
	}
	return f, true
}

func cleanFindingList(findings []ViewFinding) []ViewFinding {
	var cleaned []ViewFinding
	for _, f := range findings {
		if cf, ok := cleanFinding(f); ok {
			cleaned = append(cleaned, cf)
		}
	}
	return cleaned
}

func cleanRecommendationList(recs []ViewRecommendation) []ViewRecommendation {
	var cleaned []ViewRecommendation
	for _, r := range recs {
		if IsPlaceholder(r.Text) {
			continue
		}
		r.Text = CleanValue(r.Text)
		r.Rationale = CleanValue(r.Rationale)
		cleaned = append(cleaned, r)
	}
	return cleaned
}

// cleanClinicalTrial drops placeholder trials and trials that obviously
// mismatch the detected disease category.
func cleanClinicalTrial(trial ClinicalTrial, diseaseCategory string) (ClinicalTrial, bool) {
	if IsPlaceholder(trial.Name) {
		return trial, false
	}
	name := strings.ToLower(trial.Name)
	if diseaseCategory == "hematologic" && containsAny(name, "breast", "lung", "colon") {
		return trial, false
	}
	if diseaseCategory == "breast" && containsAny(name, "leukemia", "lymphoma", "myeloma") {
		return trial, false
	}
	trial.Name = CleanValue(trial.Name)
	trial.Source = CleanValue(trial.Source)
	trial.Eligibility = CleanValue(trial.Eligibility)
	return trial, true
}

// CleanView runs the full cleaning and validation pipeline over a raw
// multi-agent view and returns the final, safety-gated view.
func CleanView(view *View) *View {
	if view == nil {
		return nil
	}
	cleaned := *view

	cleaned.PatientGender = StandardizeGender(cleaned.PatientGender)

	cleaned.Findings.Imaging = cleanFindingList(cleaned.Findings.Imaging)
	cleaned.Findings.Pathology = cleanFindingList(cleaned.Findings.Pathology)
	cleaned.Findings.Clinical = cleanFindingList(cleaned.Findings.Clinical)
	cleaned.Findings.Biomarkers = cleanFindingList(cleaned.Findings.Biomarkers)

	diagnosis := primaryDiagnosis(cleaned.Findings)
	diseaseCategory := DetectDiseaseCategory(cleaned.Findings, diagnosis)
	cleaned.DetectedDiseaseCategory = diseaseCategory

	cleaned.Findings.Biomarkers = FilterBiomarkersByDisease(cleaned.Findings.Biomarkers, diseaseCategory)

	validation := ValidateForTreatmentRecommendations(cleaned.Findings, cleaned.Staging)
	cleaned.DiagnosticStatus = string(validation.Status)
	cleaned.DataCompletenessScore = validation.DataCompletenessScore
	cleaned.MissingCriticalData = validation.MissingCriticalData
	if validation.ComplexityOverride != "" {
		cleaned.CaseComplexity = validation.ComplexityOverride
	}

	cleaned.Warnings = mergeWarnings(cleaned.Warnings, validation.Warnings)

	cleaned.Recommendations.Treatment = SanitizeRecommendations(
		cleanRecommendationList(cleaned.Recommendations.Treatment), validation)
	cleaned.Recommendations.Imaging = cleanRecommendationList(cleaned.Recommendations.Imaging)
	cleaned.Recommendations.Diagnostic = cleanRecommendationList(cleaned.Recommendations.Diagnostic)
	cleaned.Recommendations.Other = cleanRecommendationList(cleaned.Recommendations.Other)

	var trials []ClinicalTrial
	for _, t := range cleaned.ClinicalTrials {
		if ct, ok := cleanClinicalTrial(t, diseaseCategory); ok {
			trials = append(trials, ct)
		}
	}
	cleaned.ClinicalTrials = trials
	if !validation.IsSafeForTreatmentRecs {
		cleaned.ClinicalTrials = nil
	}

	// Evidence-based confidence overrides whatever the LLM reported.
	assessment := CalculateEvidenceBasedConfidence(cleaned.Findings, cleaned.Staging)
	cleaned.OverallConfidence = string(assessment.Level)
	cleaned.ConfidenceScore = assessment.Score
	cleaned.ConfidenceJustification = assessment.Justification

	if IsPlaceholder(cleaned.ExecutiveSummary) {
		cleaned.ExecutiveSummary = fallbackSummary(&cleaned, validation)
	}

	return &cleaned
}

// primaryDiagnosis picks the first pathology diagnosis value for disease
// category detection.
func primaryDiagnosis(findings ViewFindings) string {
	for _, f := range findings.Pathology {
		if f.Category == "diagnosis" && f.Value != "" {
			return f.Value
		}
	}
	return ""
}

// mergeWarnings unions two warning lists preserving first-seen order.
func mergeWarnings(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]string, 0, len(existing)+len(extra))
	for _, w := range existing {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		merged = append(merged, w)
	}
	for _, w := range extra {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		merged = append(merged, w)
	}
	return merged
}

// fallbackSummary synthesizes an executive summary when the coordinator
// produced a placeholder, leading with the safety posture.
func fallbackSummary(view *View, validation ValidationResult) string {
	var parts []string

	var demo []string
	if view.PatientAge != "" {
		demo = append(demo, view.PatientAge+" year old")
	}
	if view.PatientGender != "" {
		demo = append(demo, strings.ToLower(view.PatientGender))
	}
	name := orDefault(view.PatientName, "Patient")
	if len(demo) > 0 {
		parts = append(parts, fmt.Sprintf("%s, %s.", name, strings.Join(demo, " ")))
	} else {
		parts = append(parts, "Patient: "+name+".")
	}

	if !validation.IsSafeForTreatmentRecs {
		parts = append(parts, "Diagnosis is PENDING pathology confirmation.")
	}

	if total := view.Findings.Total(); total > 0 {
		parts = append(parts, fmt.Sprintf("Analysis identified %d clinical findings.", total))
	}

	if len(validation.MissingCriticalData) > 0 {
		top := validation.MissingCriticalData
		if len(top) > 2 {
			top = top[:2]
		}
		parts = append(parts, "Missing: "+strings.Join(top, ", ")+".")
	}

	if !validation.IsSafeForTreatmentRecs {
		parts = append(parts, "Treatment recommendations are preliminary only.")
	}

	if len(parts) == 0 {
		return "Case analysis completed. Diagnostic workup recommended."
	}
	return strings.Join(parts, " ")
}
