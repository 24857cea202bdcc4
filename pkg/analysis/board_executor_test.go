package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyno-health/cyno/pkg/config"
	"github.com/cyno-health/cyno/pkg/extraction"
	"github.com/cyno-health/cyno/pkg/llm"
	"github.com/cyno-health/cyno/pkg/queue"
	"github.com/cyno-health/cyno/pkg/tumorboard"
)

func testFinding(name, value, unit string) extraction.Finding {
	return extraction.Finding{TestName: name, Value: value, Unit: unit}
}

// markerGateway answers each specialist prompt with a schema-correct reply.
type markerGateway struct {
	byMarker map[string]string
}

func (g *markerGateway) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	for marker, out := range g.byMarker {
		if strings.Contains(req.Messages[0].Content, marker) {
			return &llm.ChatResponse{Content: out, Role: llm.RoleAssistant}, nil
		}
	}
	return &llm.ChatResponse{Content: `{"summary": "", "warnings": []}`, Role: llm.RoleAssistant}, nil
}

func boardTestGateway() *markerGateway {
	return &markerGateway{byMarker: map[string]string{
		"RADIOLOGY AI AGENT":           `{"tumors": [], "summary": "no imaging", "warnings": []}`,
		"PATHOLOGY AI AGENT":           `{"summary": "blood work only", "warnings": []}`,
		"CLINICAL AI AGENT":            `{"labs": [{"name": "Hemoglobin", "value": "9.1", "unit": "g/dL", "confidence": "high"}], "summary": "anemia", "warnings": []}`,
		"RESEARCH AI AGENT":            `{"diagnosis_status": "pending", "summary": "workup", "warnings": []}`,
		"CHIEF DIAGNOSTIC COORDINATOR": `{"executive_summary": "Workup required.", "diagnostic_status": "pending", "overall_confidence": "low", "warnings": []}`,
		"MEDICAL TIMELINE STRUCTURING": `{"timeline": [], "warnings": []}`,
	}}
}

func analysisPayloadJSON(t *testing.T) string {
	t.Helper()
	payload := payloadWithFindings(nil)
	payload.Results[0].Analysis.AllFindings = append(payload.Results[0].Analysis.AllFindings,
		testFinding("Hemoglobin", "9.1", "g/dL"),
		testFinding("CT Chest", "no acute findings", ""),
	)
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(encoded)
}

func boardRunner() *tumorboard.Runner {
	cfg := &config.Settings{
		Models: config.LLMModels{
			Radiology: "m", Pathology: "m", Clinical: "m", Research: "m",
			Coordinator: "m", TumorBoardMain: "m",
		},
		MaxConcurrentLLM: 2,
		MaxOCRWorkers:    4,
	}
	return tumorboard.NewRunner(boardTestGateway(), cfg, queue.NewSemaphores(cfg).LLM)
}

func TestBoardExecutor_HappyPath(t *testing.T) {
	directory := &fakeDirectory{
		patient:  &PatientInfo{ID: "p-1", Name: "Jane Doe", Age: "52", Gender: "Female"},
		analysis: analysisPayloadJSON(t),
	}
	store := &progressRecorder{}
	e := NewBoardExecutor(directory, boardRunner(), store)

	job := &queue.Job{ID: "tb-1", PatientID: "p-1", Kind: queue.KindTumorBoard}
	result := e.Execute(context.Background(), job)

	require.Equal(t, queue.StatusCompleted, result.Status)

	var view tumorboard.View
	require.NoError(t, json.Unmarshal([]byte(result.Result), &view))
	assert.Equal(t, "Jane Doe", view.PatientName)
	// No pathology diagnosis anywhere: safety gate engages.
	assert.Equal(t, "diagnostic_workup_required", view.DiagnosticStatus)
	assert.Empty(t, view.ClinicalTrials)
	assert.Contains(t, []string{"very_low", "low"}, view.OverallConfidence)

	// Progress reached 100.
	require.NotEmpty(t, store.percents)
	assert.Equal(t, 100, store.percents[len(store.percents)-1])
}

func TestBoardExecutor_NoAnalysisData(t *testing.T) {
	directory := &fakeDirectory{patient: &PatientInfo{ID: "p-1", Name: "Jane Doe"}}
	e := NewBoardExecutor(directory, boardRunner(), &progressRecorder{})

	result := e.Execute(context.Background(), &queue.Job{ID: "tb-2", PatientID: "p-1"})
	require.Equal(t, queue.StatusFailed, result.Status)
	assert.ErrorIs(t, result.Error, ErrNoAnalysisData)
}

func TestBoardExecutor_CorruptPayloadFails(t *testing.T) {
	directory := &fakeDirectory{
		patient:  &PatientInfo{ID: "p-1"},
		analysis: "{not json",
	}
	e := NewBoardExecutor(directory, boardRunner(), &progressRecorder{})

	result := e.Execute(context.Background(), &queue.Job{ID: "tb-3", PatientID: "p-1"})
	assert.Equal(t, queue.StatusFailed, result.Status)
}

func TestBoardExecutor_Cancellation(t *testing.T) {
	directory := &fakeDirectory{
		patient:  &PatientInfo{ID: "p-1", Name: "Jane Doe"},
		analysis: analysisPayloadJSON(t),
	}
	store := &progressRecorder{}
	e := NewBoardExecutor(directory, boardRunner(), store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the first phase boundary

	result := e.Execute(ctx, &queue.Job{ID: "tb-4", PatientID: "p-1"})
	assert.Equal(t, queue.StatusCancelled, result.Status)
}
