package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cyno-health/cyno/ent"
	"github.com/cyno-health/cyno/pkg/services"
)

// respondServiceError maps service errors onto HTTP status codes.
func respondServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
	case errors.Is(err, services.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"detail": "already exists"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": validationErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
	}
}

// jobStatusResponse is the stable job status JSON shape.
func jobStatusResponse(job *ent.AIReport) gin.H {
	resp := gin.H{
		"jobId":       job.ID,
		"status":      string(job.Status),
		"generatedAt": job.GeneratedAt.UTC().Format(time.RFC3339),
		"reportCount": job.ReportCount,
		"progress":    job.ProgressPercent,
	}
	if job.ProgressMessage != nil {
		resp["progressMessage"] = *job.ProgressMessage
	}
	if job.StartedAt != nil {
		resp["startedAt"] = job.StartedAt.UTC().Format(time.RFC3339)
		end := time.Now()
		if job.CompletedAt != nil {
			end = *job.CompletedAt
		}
		resp["elapsedSeconds"] = int(end.Sub(*job.StartedAt).Seconds())
	}
	if job.CompletedAt != nil {
		resp["completedAt"] = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	if job.EstimatedSeconds != nil {
		resp["estimatedSeconds"] = *job.EstimatedSeconds
	}
	if job.KeyFindings != nil && *job.KeyFindings != "" {
		resp["result"] = rawJSON(*job.KeyFindings)
	}
	if job.ErrorMessage != nil {
		resp["error"] = *job.ErrorMessage
	}
	return resp
}

// boardCaseResponse renders a tumor board case, including job state.
func boardCaseResponse(row *ent.TumorBoardCase) gin.H {
	resp := gin.H{
		"id":         row.ID,
		"patientId":  row.PatientID,
		"hospitalId": row.HospitalID,
		"status":     string(row.Status),
		"progress":   row.ProgressPercent,
		"createdAt":  row.CreatedAt,
		"updatedAt":  row.UpdatedAt,
	}
	setIfPresent := func(key string, value *string) {
		if value != nil {
			resp[key] = *value
		}
	}
	setIfPresent("aiSummary", row.AiSummary)
	setIfPresent("radiologyNotes", row.RadiologyNotes)
	setIfPresent("pathologyNotes", row.PathologyNotes)
	setIfPresent("oncologyNotes", row.OncologyNotes)
	setIfPresent("guidelinesRef", row.GuidelinesRef)
	setIfPresent("recommendations", row.Recommendations)
	setIfPresent("finalDecision", row.FinalDecision)
	setIfPresent("progressMessage", row.ProgressMessage)
	setIfPresent("error", row.ErrorMessage)
	if row.AiTumorBoardJSON != nil && *row.AiTumorBoardJSON != "" {
		resp["aiTumorBoard"] = rawJSON(*row.AiTumorBoardJSON)
	}
	if row.StartedAt != nil {
		resp["startedAt"] = row.StartedAt
	}
	if row.CompletedAt != nil {
		resp["completedAt"] = row.CompletedAt
	}
	return resp
}

func patientResponse(p *ent.Patient) gin.H {
	return gin.H{
		"id":         p.ID,
		"patientId":  p.PatientID,
		"name":       p.Name,
		"age":        p.Age,
		"gender":     p.Gender,
		"cancerType": p.CancerType,
		"status":     p.Status,
		"hospitalId": p.HospitalID,
		"createdAt":  p.CreatedAt,
		"updatedAt":  p.UpdatedAt,
	}
}

// rawJSON marks a string as pre-serialized JSON so gin embeds it verbatim
// instead of re-escaping it.
type rawJSON string

// MarshalJSON implements json.Marshaler.
func (r rawJSON) MarshalJSON() ([]byte, error) {
	return []byte(r), nil
}
