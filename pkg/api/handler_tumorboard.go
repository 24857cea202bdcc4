package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cyno-health/cyno/pkg/services"
)

type createBoardCaseRequest struct {
	PatientID string `json:"patientId" binding:"required"`
}

func (s *Server) handleCreateBoardCase(c *gin.Context) {
	var req createBoardCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	patient, err := s.patients.FindPatient(c.Request.Context(), req.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	row, err := s.boardCases.Create(c.Request.Context(), patient.ID, hospitalID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	s.activity.Log(c.Request.Context(), services.LogEntry{
		HospitalID:  hospitalID(c),
		Action:      "tumor_board_create",
		EntityType:  "tumor_board",
		EntityID:    row.ID,
		Description: "Created tumor board case for patient: " + patient.Name,
	})

	c.JSON(http.StatusCreated, boardCaseResponse(row))
}

func (s *Server) handleListBoardCases(c *gin.Context) {
	offset, limit := pagination(c)
	rows, err := s.boardCases.List(c.Request.Context(), hospitalID(c), c.Query("status"), offset, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]gin.H, len(rows))
	for i, row := range rows {
		out[i] = boardCaseResponse(row)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetBoardCase(c *gin.Context) {
	row, err := s.boardCases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, boardCaseResponse(row))
}

type updateBoardCaseRequest struct {
	RadiologyNotes  *string `json:"radiologyNotes"`
	PathologyNotes  *string `json:"pathologyNotes"`
	OncologyNotes   *string `json:"oncologyNotes"`
	GuidelinesRef   *string `json:"guidelinesRef"`
	Recommendations *string `json:"recommendations"`
	FinalDecision   *string `json:"finalDecision"`
}

func (s *Server) handleUpdateBoardCase(c *gin.Context) {
	var req updateBoardCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	row, err := s.boardCases.UpdateNotes(c.Request.Context(), c.Param("id"), services.UpdateNotesRequest{
		RadiologyNotes:  req.RadiologyNotes,
		PathologyNotes:  req.PathologyNotes,
		OncologyNotes:   req.OncologyNotes,
		GuidelinesRef:   req.GuidelinesRef,
		Recommendations: req.Recommendations,
		FinalDecision:   req.FinalDecision,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	s.activity.Log(c.Request.Context(), services.LogEntry{
		HospitalID:  hospitalID(c),
		Action:      "tumor_board_update",
		EntityType:  "tumor_board",
		EntityID:    row.ID,
		Description: "Updated tumor board case",
	})

	c.JSON(http.StatusOK, boardCaseResponse(row))
}

func (s *Server) handleDeleteBoardCase(c *gin.Context) {
	if err := s.boardCases.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleSubmitBoardJob(c *gin.Context) {
	row, err := s.boardCases.SubmitAIJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, boardCaseResponse(row))
}

func (s *Server) handleBoardJobStatus(c *gin.Context) {
	row, err := s.boardCases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, boardCaseResponse(row))
}

func (s *Server) handleCancelBoardJob(c *gin.Context) {
	row, err := s.boardCases.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if s.workerPool != nil {
		s.workerPool.CancelJob(row.ID)
	}
	c.JSON(http.StatusOK, boardCaseResponse(row))
}

func (s *Server) handleRetryBoardJob(c *gin.Context) {
	row, err := s.boardCases.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, boardCaseResponse(row))
}
