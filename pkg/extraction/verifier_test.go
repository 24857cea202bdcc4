package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsValidation_AllVerified(t *testing.T) {
	v := NewVerifier(0.2)
	text := "Hemoglobin 13.2 g/dL\nWBC count 7200 /cu.mm"
	findings := []Finding{
		{TestName: "Hemoglobin", Value: "13.2"},
		{TestName: "WBC count", Value: "7200"},
	}

	needed, warnings := v.NeedsValidation(findings, text)
	assert.False(t, needed)
	assert.Empty(t, warnings)
}

func TestNeedsValidation_EmptyFindings(t *testing.T) {
	v := NewVerifier(0.2)
	needed, warnings := v.NeedsValidation(nil, "any text")
	assert.False(t, needed)
	assert.Empty(t, warnings)
}

func TestNeedsValidation_SingleUnverifiedTriggers(t *testing.T) {
	v := NewVerifier(0.2)
	// max(1, ceil(0.2*1)) = 1, so one bad finding out of one triggers.
	needed, warnings := v.NeedsValidation(
		[]Finding{{TestName: "Ferritin", Value: "250"}},
		"Hemoglobin 13.2 g/dL")
	assert.True(t, needed)
	assert.Len(t, warnings, 1)
}

func TestNeedsValidation_ThresholdBoundary(t *testing.T) {
	v := NewVerifier(0.2)
	text := "Hemoglobin 13.2\nWBC 7200\nPlatelet 250000\nRBC 4.5"
	findings := []Finding{
		{TestName: "Hemoglobin", Value: "13.2"},
		{TestName: "WBC", Value: "7200"},
		{TestName: "Platelet", Value: "250000"},
		{TestName: "RBC", Value: "4.5"},
		{TestName: "Ferritin", Value: "99"}, // unverified
	}
	// ceil(0.2*5) = 1 => one unverified finding is already enough.
	needed, _ := v.NeedsValidation(findings, text)
	assert.True(t, needed)
}

func TestNeedsValidation_NameTokenOnlyNotEnough(t *testing.T) {
	v := NewVerifier(0.2)
	// Test name present but value absent from text.
	needed, warnings := v.NeedsValidation(
		[]Finding{{TestName: "Hemoglobin", Value: "9.9"}},
		"Hemoglobin level pending")
	assert.True(t, needed)
	assert.Len(t, warnings, 1)
}

func TestNeedsValidation_ValueOnlyNotEnough(t *testing.T) {
	v := NewVerifier(0.2)
	// Value present but no test-name token in text.
	needed, _ := v.NeedsValidation(
		[]Finding{{TestName: "Ferritin", Value: "13.2"}},
		"Hemoglobin 13.2 g/dL")
	assert.True(t, needed)
}

func TestNeedsValidation_NumericSubstringSufficient(t *testing.T) {
	v := NewVerifier(0.2)
	// Value "13.2 g/dL" is not verbatim but its numeric part is.
	needed, _ := v.NeedsValidation(
		[]Finding{{TestName: "Hemoglobin", Value: "13.2 g/dL"}},
		"Hemoglobin  13.2  (12-15)")
	assert.False(t, needed)
}

func TestNeedsValidation_EmptyValueVerifiedByName(t *testing.T) {
	v := NewVerifier(0.2)
	needed, _ := v.NeedsValidation(
		[]Finding{{TestName: "Hemoglobin"}},
		"Hemoglobin pending")
	assert.False(t, needed)
}

func TestNeedsValidation_CaseInsensitiveNameMatch(t *testing.T) {
	v := NewVerifier(0.2)
	needed, _ := v.NeedsValidation(
		[]Finding{{TestName: "hemoglobin", Value: "13.2"}},
		"HEMOGLOBIN 13.2 G/DL")
	assert.False(t, needed)
}
