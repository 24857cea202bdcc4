// CYNO backend server - document understanding and tumor board AI over a
// hospital/patient store.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cyno-health/cyno/pkg/analysis"
	"github.com/cyno-health/cyno/pkg/api"
	"github.com/cyno-health/cyno/pkg/config"
	"github.com/cyno-health/cyno/pkg/database"
	"github.com/cyno-health/cyno/pkg/llm"
	"github.com/cyno-health/cyno/pkg/ocr"
	"github.com/cyno-health/cyno/pkg/queue"
	"github.com/cyno-health/cyno/pkg/services"
	"github.com/cyno-health/cyno/pkg/tumorboard"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
		log.Printf("Continuing with existing environment variables...")
	}

	gin.SetMode(os.Getenv("GIN_MODE"))

	log.Printf("Starting CYNO backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Database
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("✓ Connected to PostgreSQL database")

	// Services
	hospitalService := services.NewHospitalService(dbClient.Client)
	patientService := services.NewPatientService(dbClient.Client)
	reportService := services.NewReportService(dbClient.Client)
	aiReportService := services.NewAIReportService(dbClient.Client, cfg.SecondsPerReport)
	boardService := services.NewTumorBoardService(dbClient.Client)
	activityService := services.NewActivityService(dbClient.Client)
	log.Println("✓ Services initialized")

	// Concurrency substrate
	sems := queue.NewSemaphores(cfg)

	// LLM gateway + OCR engines
	gateway := llm.NewClient(cfg.GroqBaseURL, cfg.GroqAPIKey)
	paddle := ocr.NewPaddleClient(cfg.PaddleOCRURL)
	azure := ocr.NewAzureClient(cfg.Azure.DocIntelligenceEndpoint, cfg.Azure.DocIntelligenceKey)
	extractor := ocr.NewExtractor(paddle, azure, cfg, sems.OCR)

	// Background job executors + worker pool
	jobStore := queue.NewEntStore(dbClient.Client)
	docExecutor := analysis.NewDocExecutor(patientService, extractor, gateway, cfg, sems, jobStore)
	boardRunner := tumorboard.NewRunner(gateway, cfg, sems.LLM)
	boardExecutor := analysis.NewBoardExecutor(patientService, boardRunner, jobStore)

	pool := queue.NewWorkerPool(jobStore, map[queue.JobKind]queue.Executor{
		queue.KindDocAnalysis: docExecutor,
		queue.KindTumorBoard:  boardExecutor,
	}, cfg.WorkerCount)
	pool.Start(ctx)
	defer pool.Stop()
	log.Println("✓ Worker pool started")

	// HTTP API
	server := api.NewServer(cfg, api.Deps{
		Hospitals:  hospitalService,
		Patients:   patientService,
		Reports:    reportService,
		AIReports:  aiReportService,
		BoardCases: boardService,
		Activity:   activityService,
		WorkerPool: pool,
		DBClient:   dbClient,
	})

	log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
	if err := server.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
