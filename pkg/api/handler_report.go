package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cyno-health/cyno/pkg/services"
)

type registerReportRequest struct {
	PatientID string `json:"patientId" binding:"required"`
	FileName  string `json:"fileName" binding:"required"`
	FilePath  string `json:"filePath" binding:"required"`
	Category  string `json:"category"`
	FileSize  int64  `json:"fileSize"`
}

func (s *Server) handleRegisterReport(c *gin.Context) {
	var req registerReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	patient, err := s.patients.FindPatient(c.Request.Context(), req.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	report, err := s.reports.RegisterReport(c.Request.Context(), services.RegisterReportRequest{
		PatientID: patient.ID,
		FileName:  req.FileName,
		FilePath:  req.FilePath,
		Category:  req.Category,
		FileSize:  req.FileSize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	s.activity.Log(c.Request.Context(), services.LogEntry{
		HospitalID:  hospitalID(c),
		Action:      "report_upload",
		EntityType:  "report",
		EntityID:    report.ID,
		Description: "Registered report " + report.FileName + " for patient: " + patient.Name,
	})

	c.JSON(http.StatusCreated, gin.H{
		"id":         report.ID,
		"patientId":  report.PatientID,
		"fileName":   report.FileName,
		"category":   report.Category,
		"fileSize":   report.FileSize,
		"uploadedAt": report.UploadedAt,
	})
}

func (s *Server) handleListReports(c *gin.Context) {
	patient, err := s.patients.FindPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	reports, err := s.reports.ListByPatient(c.Request.Context(), patient.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]gin.H, len(reports))
	for i, r := range reports {
		out[i] = gin.H{
			"id":         r.ID,
			"fileName":   r.FileName,
			"category":   r.Category,
			"fileSize":   r.FileSize,
			"uploadedAt": r.UploadedAt,
		}
	}
	c.JSON(http.StatusOK, out)
}
