package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cyno-health/cyno/pkg/services"
)

type submitAnalysisRequest struct {
	PatientID string `json:"patientId" binding:"required"`
}

func (s *Server) handleSubmitAnalysis(c *gin.Context) {
	var req submitAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	patient, err := s.patients.FindPatient(c.Request.Context(), req.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	reportCount, err := s.reports.CountByPatient(c.Request.Context(), patient.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	job, err := s.aiReports.Submit(c.Request.Context(), patient.ID, reportCount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	s.activity.Log(c.Request.Context(), services.LogEntry{
		HospitalID:  hospitalID(c),
		Action:      "ai_analysis",
		EntityType:  "ai_report",
		EntityID:    job.ID,
		Description: "Submitted AI analysis for patient: " + patient.Name,
		PerformedBy: "AI System",
	})

	resp := gin.H{
		"job_id":       job.ID,
		"status":       string(job.Status),
		"report_count": job.ReportCount,
	}
	if job.EstimatedSeconds != nil {
		resp["estimated_seconds"] = *job.EstimatedSeconds
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleGetAnalysisJob(c *gin.Context) {
	job, err := s.aiReports.Get(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobStatusResponse(job))
}

func (s *Server) handleListAnalysisJobs(c *gin.Context) {
	patient, err := s.patients.FindPatient(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	jobs, err := s.aiReports.ListByPatient(c.Request.Context(), patient.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]gin.H, len(jobs))
	for i, job := range jobs {
		out[i] = jobStatusResponse(job)
	}
	c.JSON(http.StatusOK, out)
}

// handleCancelAnalysis cancels every active analysis job for a patient:
// rows are bulk-updated first, then any in-flight executor contexts are
// cancelled so background work stops at its next phase boundary.
func (s *Server) handleCancelAnalysis(c *gin.Context) {
	patient, err := s.patients.FindPatient(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	cancelled, err := s.aiReports.CancelByPatient(c.Request.Context(), patient.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if s.workerPool != nil {
		ids, err := s.aiReports.CancelledJobIDs(c.Request.Context(), patient.ID)
		if err == nil {
			for _, id := range ids {
				s.workerPool.CancelJob(id)
			}
		}
	}

	s.activity.Log(c.Request.Context(), services.LogEntry{
		HospitalID:  hospitalID(c),
		Action:      "ai_analysis_cancel",
		EntityType:  "ai_report",
		EntityID:    patient.ID,
		Description: fmt.Sprintf("Cancelled %d AI analysis jobs for patient: %s", cancelled, patient.Name),
	})

	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func (s *Server) handleRetryAnalysis(c *gin.Context) {
	job, err := s.aiReports.Retry(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobStatusResponse(job))
}

type reviewRequest struct {
	ReviewedBy string `json:"reviewedBy" binding:"required"`
}

func (s *Server) handleReviewAnalysis(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	job, err := s.aiReports.Review(c.Request.Context(), c.Param("jobId"), req.ReviewedBy)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	s.activity.Log(c.Request.Context(), services.LogEntry{
		HospitalID:  hospitalID(c),
		Action:      "ai_review",
		EntityType:  "ai_report",
		EntityID:    job.ID,
		Description: "AI report reviewed by: " + req.ReviewedBy,
		PerformedBy: req.ReviewedBy,
	})

	c.JSON(http.StatusOK, jobStatusResponse(job))
}
