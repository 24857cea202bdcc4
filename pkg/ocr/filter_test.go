package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func block(text string, conf float64) TextBlock {
	return TextBlock{Text: text, Confidence: conf}
}

func TestFilterBlocks_KeepsFindings(t *testing.T) {
	blocks := []TextBlock{
		block("Hemoglobin 13.2 g/dL", 0.95),
		block("WBC 7200 /cu.mm", 0.88),
	}

	kept, warnings := FilterBlocks(blocks, 0.6)
	assert.Len(t, kept, 2)
	assert.Empty(t, warnings)
}

func TestFilterBlocks_DropsKnownHeaders(t *testing.T) {
	blocks := []TextBlock{
		block("COMPLETE BLOOD COUNT", 0.99),
		block("Hemoglobin 13.2 g/dL", 0.95),
		block("END OF REPORT", 0.97),
	}

	kept, warnings := FilterBlocks(blocks, 0.6)
	assert.Len(t, kept, 1)
	assert.Equal(t, "Hemoglobin 13.2 g/dL", kept[0].Text)
	assert.Len(t, warnings, 2)
}

func TestFilterBlocks_DropsShoutedBanners(t *testing.T) {
	// All caps, no digits, longer than 15 chars.
	kept, warnings := FilterBlocks([]TextBlock{block("DEPARTMENT OF HEMATOLOGY", 0.99)}, 0.6)
	assert.Empty(t, kept)
	assert.Len(t, warnings, 1)
}

func TestFilterBlocks_KeepsShortCapsAndNumericCaps(t *testing.T) {
	blocks := []TextBlock{
		block("WBC", 0.9),                       // short caps: a test name
		block("HEMOGLOBIN 13.2 G/DL RESULT", 0.9), // caps but contains digits
	}
	kept, _ := FilterBlocks(blocks, 0.6)
	assert.Len(t, kept, 2)
}

func TestFilterBlocks_DropsLowConfidence(t *testing.T) {
	blocks := []TextBlock{
		block("smudged text", 0.31),
		block("Platelet count 2.1 lakh/cu.mm", 0.81),
	}

	kept, warnings := FilterBlocks(blocks, 0.6)
	assert.Len(t, kept, 1)
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "low-confidence")
}

func TestFilterBlocks_SkipsEmptyBlocks(t *testing.T) {
	kept, warnings := FilterBlocks([]TextBlock{block("   ", 0.9)}, 0.6)
	assert.Empty(t, kept)
	assert.Empty(t, warnings)
}
