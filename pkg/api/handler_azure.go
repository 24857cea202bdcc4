package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Azure Document Intelligence health probes. These only verify
// configuration and connectivity; OCR itself runs through pkg/ocr.

func (s *Server) handleAzurePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Azure AI API router is running"})
}

func (s *Server) handleAzureCheckConfig(c *gin.Context) {
	endpointOK := len(s.azure.DocIntelligenceEndpoint) > 10
	keyOK := len(s.azure.DocIntelligenceKey) > 10

	status := "warning"
	message := "Missing Azure credentials"
	if endpointOK && keyOK {
		status = "ok"
		message = "Azure Document Intelligence is configured"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":              status,
		"endpoint_configured": endpointOK,
		"key_configured":      keyOK,
		"message":             message,
		"usage_note":          "Azure Document Intelligence is used as a conditional fallback when local OCR confidence is low.",
	})
}

func (s *Server) handleAzureTestConnection(c *gin.Context) {
	if !s.azure.DocIntelligenceConfigured() {
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"message": "Azure credentials not configured",
			"error":   "Set AZURE_DOC_INTELLIGENCE_ENDPOINT and AZURE_DOC_INTELLIGENCE_KEY",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/documentintelligence/info?api-version=2024-11-30",
		strings.TrimRight(s.azure.DocIntelligenceEndpoint, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "error": err.Error()})
		return
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.azure.DocIntelligenceKey)

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":        "error",
			"message":       "Could not connect to Azure endpoint",
			"api_reachable": false,
			"error":         err.Error(),
		})
		return
	}
	defer resp.Body.Close()
	elapsed := time.Since(start).Milliseconds()

	switch resp.StatusCode {
	case http.StatusOK:
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"message":          "Azure Document Intelligence API is working",
			"api_reachable":    true,
			"response_time_ms": elapsed,
		})
	case http.StatusUnauthorized:
		c.JSON(http.StatusOK, gin.H{
			"status":           "error",
			"message":          "Authentication failed - check your API key",
			"api_reachable":    true,
			"response_time_ms": elapsed,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"status":           "error",
			"message":          fmt.Sprintf("Unexpected response from Azure API: HTTP %d", resp.StatusCode),
			"api_reachable":    true,
			"response_time_ms": elapsed,
		})
	}
}

func (s *Server) handleListActivity(c *gin.Context) {
	offset, limit := pagination(c)
	entries, err := s.activity.List(c.Request.Context(), hospitalID(c), offset, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]gin.H, len(entries))
	for i, e := range entries {
		out[i] = gin.H{
			"id":          e.ID,
			"action":      e.Action,
			"entityType":  e.EntityType,
			"entityId":    e.EntityID,
			"description": e.Description,
			"performedBy": e.PerformedBy,
			"createdAt":   e.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, out)
}
