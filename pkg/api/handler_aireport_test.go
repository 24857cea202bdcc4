package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyno-health/cyno/ent/aireport"
)

// createPatientWithReports seeds a patient and n report rows via the API
// and returns the patient's internal ID.
func (ts *testServer) createPatientWithReports(t *testing.T, token string, reportCount int) string {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/patients", token, gin.H{
		"name":   "Jane Doe",
		"age":    "52",
		"gender": "Female",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	patientID := decodeBody(t, rec)["id"].(string)

	for i := 0; i < reportCount; i++ {
		rec := ts.do(t, http.MethodPost, "/api/reports", token, gin.H{
			"patientId": patientID,
			"fileName":  "cbc.pdf",
			"filePath":  "/uploads/cbc.pdf",
			"category":  "lab",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	return patientID
}

func TestAIReport_SubmitJob(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t)
	patientID := ts.createPatientWithReports(t, token, 2)

	rec := ts.do(t, http.MethodPost, "/api/ai-reports/generate", token, gin.H{"patientId": patientID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "queued", body["status"])
	assert.Equal(t, float64(2), body["report_count"])
	// estimated_seconds = report_count * SECONDS_PER_REPORT
	assert.Equal(t, float64(600), body["estimated_seconds"])
	assert.NotEmpty(t, body["job_id"])
}

func TestAIReport_SubmitWithoutReports(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t)
	patientID := ts.createPatientWithReports(t, token, 0)

	rec := ts.do(t, http.MethodPost, "/api/ai-reports/generate", token, gin.H{"patientId": patientID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAIReport_StatusShape(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t)
	patientID := ts.createPatientWithReports(t, token, 1)

	rec := ts.do(t, http.MethodPost, "/api/ai-reports/generate", token, gin.H{"patientId": patientID})
	require.Equal(t, http.StatusCreated, rec.Code)
	jobID := decodeBody(t, rec)["job_id"].(string)

	rec = ts.do(t, http.MethodGet, "/api/ai-reports/job/"+jobID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	// The stable polling contract.
	assert.Equal(t, jobID, body["jobId"])
	assert.Equal(t, "queued", body["status"])
	assert.NotEmpty(t, body["generatedAt"])
	assert.Equal(t, float64(1), body["reportCount"])
	assert.Contains(t, body, "estimatedSeconds")
	assert.NotContains(t, body, "startedAt", "queued jobs have no started_at")
	assert.NotContains(t, body, "completedAt")
	assert.NotContains(t, body, "error")
}

func TestAIReport_StatusWithResult(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t)
	patientID := ts.createPatientWithReports(t, token, 1)

	rec := ts.do(t, http.MethodPost, "/api/ai-reports/generate", token, gin.H{"patientId": patientID})
	require.Equal(t, http.StatusCreated, rec.Code)
	jobID := decodeBody(t, rec)["job_id"].(string)

	// Simulate executor completion.
	require.NoError(t, ts.db.AIReport.UpdateOneID(jobID).
		SetStatus(aireport.StatusCompleted).
		SetProgressPercent(100).
		SetKeyFindings(`{"patient_name": "Jane Doe", "report_count": 1}`).
		Exec(context.Background()))

	rec = ts.do(t, http.MethodGet, "/api/ai-reports/job/"+jobID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	assert.Equal(t, "completed", body["status"])
	// The opaque result blob round-trips as embedded JSON, not a string.
	result := body["result"].(map[string]any)
	assert.Equal(t, "Jane Doe", result["patient_name"])
}

func TestAIReport_CancelByPatient(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t)
	patientID := ts.createPatientWithReports(t, token, 1)

	rec := ts.do(t, http.MethodPost, "/api/ai-reports/generate", token, gin.H{"patientId": patientID})
	require.Equal(t, http.StatusCreated, rec.Code)
	jobID := decodeBody(t, rec)["job_id"].(string)

	rec = ts.do(t, http.MethodPost, "/api/ai-reports/cancel/"+patientID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["cancelled"])

	rec = ts.do(t, http.MethodGet, "/api/ai-reports/job/"+jobID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "cancelled", body["status"])
	assert.Contains(t, body, "completedAt")
}

func TestAIReport_RetryOnlyFailed(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t)
	patientID := ts.createPatientWithReports(t, token, 1)

	rec := ts.do(t, http.MethodPost, "/api/ai-reports/generate", token, gin.H{"patientId": patientID})
	require.Equal(t, http.StatusCreated, rec.Code)
	jobID := decodeBody(t, rec)["job_id"].(string)

	rec = ts.do(t, http.MethodPost, "/api/ai-reports/retry/"+jobID, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, ts.db.AIReport.UpdateOneID(jobID).
		SetStatus(aireport.StatusFailed).
		SetErrorMessage("AI service error, check API key").
		Exec(context.Background()))

	rec = ts.do(t, http.MethodPost, "/api/ai-reports/retry/"+jobID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "queued", decodeBody(t, rec)["status"])
}

func TestAIReport_UnknownJob(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t)

	rec := ts.do(t, http.MethodGet, "/api/ai-reports/job/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
