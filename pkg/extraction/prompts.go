package extraction

import (
	"fmt"
	"strings"
)

// stageAPrompt is the Stage-A structural extraction directive. The model is
// a transcription engine, not a clinician: it may only restructure text that
// is literally present on the page.
const stageAPrompt = `You are a STRICT STRUCTURAL EXTRACTION ENGINE for medical lab reports.

ABSOLUTE RULES (NON-NEGOTIABLE):
1. Return valid JSON only. No prose, no markdown, no explanations.
2. Extract ONLY text that appears in the OCR input below.
3. NEVER invent, correct, calculate, or normalize any value.
4. "status", "interpretation" and "diagnosis" must always be null.
5. Set "extraction_confidence" to 0.0 - confidence is assigned downstream.
6. If OCR text is ambiguous or garbled, add a warning instead of guessing.

OUTPUT JSON SCHEMA:
{
  "patient_identity": {"name": null, "id": null, "dob": null, "gender": null, "age": null},
  "report_metadata": {"report_type": null, "date": null, "lab_name": null, "referring_physician": null},
  "findings": [
    {"test_name": "string", "value": "string exactly as printed", "unit": "string or null",
     "reference_range": "string or null", "status": null, "interpretation": null}
  ],
  "diagnosis": null,
  "recommendations": [],
  "warnings": [],
  "extraction_confidence": 0.0
}

OCR TEXT (page %d):
%s

Return ONLY the JSON object.`

// stageBPrompt is the Stage-B validation directive: given the OCR text and
// the Stage-A JSON, remove everything that cannot be traced back to the page.
const stageBPrompt = `You are a VALIDATION AND FILTERING engine for extracted lab findings.

You receive the raw OCR text of a report page and a candidate JSON
extraction. Produce a corrected JSON with the SAME schema, applying:

1. REMOVE any finding whose value is not explicitly present in the OCR text.
2. REMOVE section headers captured as findings (e.g. "COMPLETE BLOOD COUNT").
3. REMOVE parent table rows - keep only leaf rows with a value and range.
4. REMOVE reference ranges that are ambiguous or do not match the OCR text.
5. NEVER normalize values or units - keep them exactly as printed.
6. You MAY merge a test name broken across two lines if and only if the next
   line clearly continues the word.
7. Keep "status", "interpretation" and "diagnosis" null.

OCR TEXT (page %d):
%s

CANDIDATE EXTRACTION:
%s

Return ONLY the corrected JSON object.`

// BuildStageAPrompt renders the Stage-A prompt for one page.
func BuildStageAPrompt(pageNumber int, ocrText string) string {
	return fmt.Sprintf(stageAPrompt, pageNumber, strings.TrimSpace(ocrText))
}

// BuildStageBPrompt renders the Stage-B prompt for one page.
func BuildStageBPrompt(pageNumber int, ocrText, stageAJSON string) string {
	return fmt.Sprintf(stageBPrompt, pageNumber, strings.TrimSpace(ocrText), stageAJSON)
}
