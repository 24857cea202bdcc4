// Package config loads application settings from the environment.
// All keys are optional and fall back to documented defaults, so a bare
// process starts with local-only behavior (no Azure, no orchestration).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// OCREngine selects the OCR strategy for document extraction.
type OCREngine string

const (
	// OCREnginePaddle uses only the local PaddleOCR sidecar.
	OCREnginePaddle OCREngine = "paddle"
	// OCREngineAzure sends every page to Azure Document Intelligence.
	OCREngineAzure OCREngine = "azure"
	// OCREngineHybrid runs PaddleOCR first and falls back to Azure when
	// the page confidence is low.
	OCREngineHybrid OCREngine = "hybrid"
)

// ParseOCREngine validates an OCR_ENGINE value.
func ParseOCREngine(s string) (OCREngine, error) {
	switch OCREngine(s) {
	case OCREnginePaddle, OCREngineAzure, OCREngineHybrid:
		return OCREngine(s), nil
	case "":
		return OCREngineHybrid, nil
	default:
		return "", fmt.Errorf("invalid OCR_ENGINE %q (want paddle, azure or hybrid)", s)
	}
}

// LLMModels names the model used by each LLM-backed component.
type LLMModels struct {
	ExtractionA      string // Stage-A structural extraction
	ExtractionB      string // Stage-B validation pass
	TumorBoardMain   string // unified timeline structuring
	TumorBoardAgents string // default for all specialists
	Radiology        string
	Pathology        string
	Clinical         string
	Research         string
	Coordinator      string
}

// AzureConfig holds the two Azure integrations: Document Intelligence for
// remote OCR and the AI Agent Service used as an orchestration overlay.
type AzureConfig struct {
	DocIntelligenceEndpoint string
	DocIntelligenceKey      string
	AgentEndpoint           string
	AgentKey                string
	OrchestrationEnabled    bool
}

// DocIntelligenceConfigured reports whether the remote OCR fallback can run.
func (a AzureConfig) DocIntelligenceConfigured() bool {
	return a.DocIntelligenceEndpoint != "" && a.DocIntelligenceKey != ""
}

// OrchestrationConfigured reports whether the agent orchestration overlay
// is both enabled and reachable by configuration.
func (a AzureConfig) OrchestrationConfigured() bool {
	return a.OrchestrationEnabled && a.AgentEndpoint != "" && a.AgentKey != ""
}

// Settings is the complete application configuration. It is built once at
// startup and threaded explicitly; there is no package-level state.
type Settings struct {
	// LLM gateway
	GroqAPIKey  string
	GroqBaseURL string
	Models      LLMModels

	// OCR
	OCREngine        OCREngine
	PaddleOCRURL     string
	OCRMinConfidence float64
	OCRMaxDPI        int
	OCRCacheMaxSize  int

	// Pipeline tuning
	LLMBSkipThreshold float64
	MaxConcurrentLLM  int
	MaxOCRWorkers     int
	SecondsPerPage    int
	SecondsPerReport  int

	// Tumor board
	TumorBoardMaxAgents int

	Azure AzureConfig

	// HTTP / auth
	HTTPPort     string
	JWTSecretKey string
	JWTExpiry    time.Duration

	WorkerCount int
}

// Load reads all settings from the environment, applying defaults.
func Load() (*Settings, error) {
	engine, err := ParseOCREngine(os.Getenv("OCR_ENGINE"))
	if err != nil {
		return nil, err
	}

	agentModel := getEnv("TUMOR_AGENTS_MODEL", "llama-3.1-8b-instant")

	s := &Settings{
		GroqAPIKey:  os.Getenv("GROQ_API_KEY"),
		GroqBaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		Models: LLMModels{
			ExtractionA:      getEnv("LLM_A_MODEL", "llama-3.3-70b-versatile"),
			ExtractionB:      getEnv("LLM_B_MODEL", "llama-3.1-8b-instant"),
			TumorBoardMain:   getEnv("TUMOR_BOARD_MODEL", "llama-3.3-70b-versatile"),
			TumorBoardAgents: agentModel,
			Radiology:        getEnv("RADIOLOGY_AGENT_MODEL", agentModel),
			Pathology:        getEnv("PATHOLOGY_AGENT_MODEL", agentModel),
			Clinical:         getEnv("CLINICAL_AGENT_MODEL", agentModel),
			Research:         getEnv("RESEARCH_AGENT_MODEL", agentModel),
			Coordinator:      getEnv("COORDINATOR_AGENT_MODEL", agentModel),
		},
		OCREngine:        engine,
		PaddleOCRURL:     getEnv("PADDLE_OCR_URL", "http://localhost:8868"),
		OCRMinConfidence: getEnvFloat("OCR_MIN_CONFIDENCE", 0.6),
		OCRMaxDPI:        getEnvInt("OCR_MAX_DPI", 300),
		OCRCacheMaxSize:  getEnvInt("OCR_CACHE_MAX_SIZE", 32),

		LLMBSkipThreshold: getEnvFloat("LLM_B_SKIP_THRESHOLD", 0.2),
		MaxConcurrentLLM:  getEnvInt("MAX_CONCURRENT_LLM", 2),
		MaxOCRWorkers:     getEnvInt("MAX_OCR_WORKERS", 4),
		SecondsPerPage:    getEnvInt("SECONDS_PER_PAGE", 60),
		SecondsPerReport:  getEnvInt("SECONDS_PER_REPORT", 300),

		TumorBoardMaxAgents: getEnvInt("TUMOR_BOARD_MAX_AGENTS", 3),

		Azure: AzureConfig{
			DocIntelligenceEndpoint: os.Getenv("AZURE_DOC_INTELLIGENCE_ENDPOINT"),
			DocIntelligenceKey:      os.Getenv("AZURE_DOC_INTELLIGENCE_KEY"),
			AgentEndpoint:           os.Getenv("AZURE_AI_AGENT_ENDPOINT"),
			AgentKey:                os.Getenv("AZURE_AI_AGENT_KEY"),
			OrchestrationEnabled:    getEnvBool("AZURE_AGENT_ORCHESTRATION_ENABLED", false),
		},

		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		JWTSecretKey: getEnv("JWT_SECRET_KEY", "cyno-dev-secret-change-in-production"),
		JWTExpiry:    time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 1440)) * time.Minute,

		WorkerCount: getEnvInt("WORKER_COUNT", 2),
	}

	if s.MaxConcurrentLLM < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_LLM must be >= 1, got %d", s.MaxConcurrentLLM)
	}
	if s.MaxOCRWorkers < 1 {
		return nil, fmt.Errorf("MAX_OCR_WORKERS must be >= 1, got %d", s.MaxOCRWorkers)
	}
	if s.OCRCacheMaxSize < 1 {
		return nil, fmt.Errorf("OCR_CACHE_MAX_SIZE must be >= 1, got %d", s.OCRCacheMaxSize)
	}

	slog.Info("Configuration loaded",
		"ocr_engine", s.OCREngine,
		"llm_a_model", s.Models.ExtractionA,
		"llm_b_model", s.Models.ExtractionB,
		"max_concurrent_llm", s.MaxConcurrentLLM,
		"max_ocr_workers", s.MaxOCRWorkers,
		"azure_ocr_configured", s.Azure.DocIntelligenceConfigured(),
		"azure_orchestration", s.Azure.OrchestrationConfigured(),
	)

	return s, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Invalid float in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Invalid boolean in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}
