package extraction

import (
	"fmt"
	"math"
	"strings"
)

// Verifier is the deterministic check that decides whether the Stage-B
// validation pass is needed. For clean reports a strict textual match is
// sufficient, which skips the second LLM call on the majority of pages.
type Verifier struct {
	// SkipThreshold is the tolerated fraction of unverified findings
	// before Stage-B is required (LLM_B_SKIP_THRESHOLD, default 0.2).
	SkipThreshold float64
}

// NewVerifier creates a verifier with the given skip threshold.
func NewVerifier(skipThreshold float64) *Verifier {
	return &Verifier{SkipThreshold: skipThreshold}
}

// findingVerified reports whether one finding can be traced to the OCR text:
// at least one test-name token longer than 2 characters appears
// case-insensitively, and the value (or its first numeric substring)
// appears verbatim.
func findingVerified(f Finding, ocrText, lowerText string) bool {
	nameMatched := false
	for _, token := range strings.Fields(f.TestName) {
		if len(token) <= 2 {
			continue
		}
		if strings.Contains(lowerText, strings.ToLower(token)) {
			nameMatched = true
			break
		}
	}
	if !nameMatched {
		return false
	}

	if f.Value == "" {
		return true
	}
	if strings.Contains(ocrText, f.Value) {
		return true
	}
	if num := FirstNumeric(f.Value); num != "" && strings.Contains(ocrText, num) {
		return true
	}
	return false
}

// NeedsValidation reports whether the Stage-B pass is required for the given
// findings and returns per-finding warnings for the unverified ones.
// Stage-B is required iff unverified >= max(1, ceil(threshold * total));
// with no findings at all there is nothing to validate.
func (v *Verifier) NeedsValidation(findings []Finding, ocrText string) (bool, []string) {
	if len(findings) == 0 {
		return false, nil
	}

	lowerText := strings.ToLower(ocrText)
	var warnings []string
	unverified := 0
	for _, f := range findings {
		if !findingVerified(f, ocrText, lowerText) {
			unverified++
			warnings = append(warnings, fmt.Sprintf(
				"Finding '%s' (value '%s') could not be verified against OCR text", f.TestName, f.Value))
		}
	}

	required := int(math.Ceil(v.SkipThreshold * float64(len(findings))))
	if required < 1 {
		required = 1
	}
	return unverified >= required, warnings
}
