package tumorboard

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// The Azure AI Agent Service overlay is orchestration only: it logs phase
// events to the external service and wraps agent invocations with timeout
// accounting. Medical reasoning always stays in the local agents, and any
// failure to reach the service falls back to local-only execution.

// AgentResultStatus classifies one wrapped agent invocation.
type AgentResultStatus string

const (
	AgentResultSuccess AgentResultStatus = "success"
	AgentResultFailed  AgentResultStatus = "failed"
	AgentResultTimeout AgentResultStatus = "timeout"
)

// AgentResult is the per-agent execution record produced by the overlay.
type AgentResult struct {
	AgentName            string            `json:"agent_name"`
	Status               AgentResultStatus `json:"status"`
	ExecutionTimeSeconds float64           `json:"execution_time_seconds"`
}

// OrchestrationStatus aggregates a whole run.
type OrchestrationStatus string

const (
	OrchestrationCompleted OrchestrationStatus = "completed"
	OrchestrationPartial   OrchestrationStatus = "partial"
	OrchestrationFailed    OrchestrationStatus = "failed"
)

// OrchestrationResult is attached to the cleaned view as metadata.
type OrchestrationResult struct {
	Status          OrchestrationStatus `json:"status"`
	AgentsCompleted []string            `json:"agents_completed"`
	AgentsFailed    []string            `json:"agents_failed"`
	Metadata        map[string]any      `json:"metadata,omitempty"`
}

// Orchestrator wraps agent invocations and reports events to the Azure AI
// Agent Service when enabled. A nil *Orchestrator is valid and means
// local-only execution with plain timeout wrapping.
type Orchestrator struct {
	endpoint   string
	key        string
	enabled    bool
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	results []AgentResult
}

// NewOrchestrator creates the overlay. enabled=false produces a pass-through
// orchestrator that still records per-agent results but emits no events.
func NewOrchestrator(endpoint, key string, enabled bool) *Orchestrator {
	return &Orchestrator{
		endpoint:   strings.TrimRight(endpoint, "/"),
		key:        key,
		enabled:    enabled && endpoint != "" && key != "",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.Default(),
	}
}

type orchestrationEvent struct {
	Event     string `json:"event"`
	AgentName string `json:"agent_name"`
	PatientID string `json:"patient_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status,omitempty"`
}

// emit posts a phase event to the external log endpoint. Non-blocking for
// the pipeline: errors are swallowed after a log line.
func (o *Orchestrator) emit(event orchestrationEvent) {
	if o == nil || !o.enabled {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/events", bytes.NewReader(payload))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Ocp-Apim-Subscription-Key", o.key)

		resp, err := o.httpClient.Do(req)
		if err != nil {
			o.logger.Debug("Orchestration event delivery failed", "event", event.Event, "error", err)
			return
		}
		_ = resp.Body.Close()
	}()
}

// RunAgent wraps one agent invocation: emits agent_start/agent_complete,
// enforces the per-agent timeout, and records an AgentResult. The returned
// output is always the local agent's output - the overlay never reasons.
func (o *Orchestrator) RunAgent(ctx context.Context, patientID, agentName string,
	invoke func(ctx context.Context) AgentOutput) AgentOutput {

	o.emit(orchestrationEvent{
		Event: "agent_start", AgentName: agentName, PatientID: patientID, Timestamp: nowISO(),
	})

	start := time.Now()
	agentCtx, cancel := context.WithTimeout(ctx, AgentTimeout)
	defer cancel()

	output := invoke(agentCtx)
	elapsed := time.Since(start)

	status := AgentResultSuccess
	switch {
	case agentCtx.Err() == context.DeadlineExceeded:
		status = AgentResultTimeout
		if output.Success {
			output.Success = false
			output.Error = "agent timed out"
		}
	case !output.Success:
		status = AgentResultFailed
	}

	if o != nil {
		o.mu.Lock()
		o.results = append(o.results, AgentResult{
			AgentName:            agentName,
			Status:               status,
			ExecutionTimeSeconds: roundSeconds(elapsed),
		})
		o.mu.Unlock()
	}

	o.emit(orchestrationEvent{
		Event: "agent_complete", AgentName: agentName, PatientID: patientID,
		Timestamp: nowISO(), Status: string(status),
	})

	return output
}

// Result aggregates the recorded agent results for attachment to the view.
func (o *Orchestrator) Result() OrchestrationResult {
	if o == nil {
		return OrchestrationResult{Status: OrchestrationCompleted}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	result := OrchestrationResult{
		Metadata: map[string]any{
			"azure_orchestration_enabled": o.enabled,
			"agent_count":                 len(o.results),
		},
	}
	for _, r := range o.results {
		if r.Status == AgentResultSuccess {
			result.AgentsCompleted = append(result.AgentsCompleted, r.AgentName)
		} else {
			result.AgentsFailed = append(result.AgentsFailed, r.AgentName)
		}
	}

	switch {
	case len(result.AgentsFailed) == 0:
		result.Status = OrchestrationCompleted
	case len(result.AgentsCompleted) > 0:
		result.Status = OrchestrationPartial
	default:
		result.Status = OrchestrationFailed
	}
	return result
}
