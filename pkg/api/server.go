package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cyno-health/cyno/pkg/config"
	"github.com/cyno-health/cyno/pkg/database"
	"github.com/cyno-health/cyno/pkg/queue"
	"github.com/cyno-health/cyno/pkg/services"
	"github.com/cyno-health/cyno/pkg/version"
)

// Server is the HTTP API server.
type Server struct {
	router *gin.Engine

	hospitals  *services.HospitalService
	patients   *services.PatientService
	reports    *services.ReportService
	aiReports  *services.AIReportService
	boardCases *services.TumorBoardService
	activity   *services.ActivityService

	workerPool *queue.WorkerPool
	dbClient   *database.Client
	azure      config.AzureConfig

	jwtSecret string
	jwtExpiry time.Duration
}

// Deps bundles the server's collaborators.
type Deps struct {
	Hospitals  *services.HospitalService
	Patients   *services.PatientService
	Reports    *services.ReportService
	AIReports  *services.AIReportService
	BoardCases *services.TumorBoardService
	Activity   *services.ActivityService
	WorkerPool *queue.WorkerPool
	DBClient   *database.Client
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg *config.Settings, deps Deps) *Server {
	s := &Server{
		router:     gin.Default(),
		hospitals:  deps.Hospitals,
		patients:   deps.Patients,
		reports:    deps.Reports,
		aiReports:  deps.AIReports,
		boardCases: deps.BoardCases,
		activity:   deps.Activity,
		workerPool: deps.WorkerPool,
		dbClient:   deps.DBClient,
		azure:      cfg.Azure,
		jwtSecret:  cfg.JWTSecretKey,
		jwtExpiry:  cfg.JWTExpiry,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/api/health", s.handleHealth)

	auth := s.router.Group("/api/auth")
	{
		auth.POST("/signup", s.handleSignup)
		auth.POST("/signin", s.handleSignin)
	}

	azure := s.router.Group("/api/azure")
	{
		azure.GET("/ping", s.handleAzurePing)
		azure.GET("/check-config", s.handleAzureCheckConfig)
		azure.GET("/test-connection", s.handleAzureTestConnection)
	}

	authed := s.router.Group("/api", s.authMiddleware())
	{
		authed.POST("/patients", s.handleCreatePatient)
		authed.GET("/patients", s.handleListPatients)
		authed.GET("/patients/:id", s.handleGetPatient)

		authed.POST("/reports", s.handleRegisterReport)
		authed.GET("/patients/:id/reports", s.handleListReports)

		authed.POST("/ai-reports/generate", s.handleSubmitAnalysis)
		authed.GET("/ai-reports/job/:jobId", s.handleGetAnalysisJob)
		authed.GET("/ai-reports/:patientId", s.handleListAnalysisJobs)
		authed.POST("/ai-reports/cancel/:patientId", s.handleCancelAnalysis)
		authed.POST("/ai-reports/retry/:jobId", s.handleRetryAnalysis)
		authed.PUT("/ai-reports/:patientId/review/:jobId", s.handleReviewAnalysis)

		authed.GET("/tumor-board", s.handleListBoardCases)
		authed.POST("/tumor-board", s.handleCreateBoardCase)
		authed.GET("/tumor-board/:id", s.handleGetBoardCase)
		authed.PUT("/tumor-board/:id", s.handleUpdateBoardCase)
		authed.DELETE("/tumor-board/:id", s.handleDeleteBoardCase)
		authed.POST("/tumor-board-ai/:id/generate", s.handleSubmitBoardJob)
		authed.GET("/tumor-board-ai/:id/status", s.handleBoardJobStatus)
		authed.POST("/tumor-board-ai/:id/cancel", s.handleCancelBoardJob)
		authed.POST("/tumor-board-ai/:id/retry", s.handleRetryBoardJob)

		authed.GET("/activity", s.handleListActivity)
	}
}

// Run starts the HTTP server (blocking).
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "CYNO Healthcare API is running",
		"version": version.Full(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := gin.H{"status": "ok"}

	if s.dbClient != nil {
		dbStatus, err := database.Check(ctx, s.dbClient.DB())
		resp["database"] = dbStatus
		if err != nil {
			resp["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	if s.workerPool != nil {
		resp["workers"] = s.workerPool.Health(ctx)
	}
	c.JSON(http.StatusOK, resp)
}
