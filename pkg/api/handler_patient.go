package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cyno-health/cyno/pkg/services"
)

type createPatientRequest struct {
	PatientID  string `json:"patientId"`
	Name       string `json:"name" binding:"required"`
	Age        string `json:"age"`
	Gender     string `json:"gender"`
	CancerType string `json:"cancerType"`
}

func (s *Server) handleCreatePatient(c *gin.Context) {
	var req createPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	patient, err := s.patients.CreatePatient(c.Request.Context(), services.CreatePatientRequest{
		PatientID:  req.PatientID,
		Name:       req.Name,
		Age:        req.Age,
		Gender:     req.Gender,
		CancerType: req.CancerType,
		HospitalID: hospitalID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	s.activity.Log(c.Request.Context(), services.LogEntry{
		HospitalID:  hospitalID(c),
		Action:      "patient_create",
		EntityType:  "patient",
		EntityID:    patient.ID,
		Description: "Registered patient: " + patient.Name,
	})

	c.JSON(http.StatusCreated, patientResponse(patient))
}

func (s *Server) handleListPatients(c *gin.Context) {
	offset, limit := pagination(c)
	patients, err := s.patients.ListPatients(c.Request.Context(), hospitalID(c), offset, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]gin.H, len(patients))
	for i, p := range patients {
		out[i] = patientResponse(p)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetPatient(c *gin.Context) {
	patient, err := s.patients.FindPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, patientResponse(patient))
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return offset, limit
}
