package tumorboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cyno-health/cyno/pkg/config"
)

// Inputs carries the classified textual inputs for one tumor board run.
type Inputs struct {
	PatientID     string
	PatientName   string
	PatientAge    string
	PatientGender string

	ImagingText   string
	PathologyText string
	ClinicalText  string

	// FindingsJSON is the merged document analysis used by the timeline
	// compiler; optional.
	FindingsJSON string
}

// ProgressFunc receives monotonic progress checkpoints with human-readable
// messages.
type ProgressFunc func(percent int, message string)

// Runner executes the tumor board plan: Phase 1 runs the three data
// specialists in parallel under the shared LLM semaphore, Phase 2 runs the
// research agent over their combined summary, Phase 3 synthesizes locally
// through the coordinator, then the cleaner/validator produce the final view.
type Runner struct {
	radiology Agent
	pathology Agent
	clinical  Agent
	research  Agent

	coordinator *Coordinator
	compiler    *TimelineCompiler
	overlay     *Orchestrator

	llmSem *semaphore.Weighted
	logger *slog.Logger
}

// NewRunner wires the full agent pipeline from configuration.
func NewRunner(gateway Gateway, cfg *config.Settings, llmSem *semaphore.Weighted) *Runner {
	var overlay *Orchestrator
	if cfg.Azure.OrchestrationConfigured() {
		overlay = NewOrchestrator(cfg.Azure.AgentEndpoint, cfg.Azure.AgentKey, true)
	}
	return &Runner{
		radiology:   NewRadiologyAgent(gateway, cfg.Models.Radiology),
		pathology:   NewPathologyAgent(gateway, cfg.Models.Pathology),
		clinical:    NewClinicalAgent(gateway, cfg.Models.Clinical),
		research:    NewResearchAgent(gateway, cfg.Models.Research),
		coordinator: NewCoordinator(gateway, cfg.Models.Coordinator),
		compiler:    NewTimelineCompiler(gateway, cfg.Models.TumorBoardMain),
		overlay:     overlay,
		llmSem:      llmSem,
		logger:      slog.Default(),
	}
}

// Run executes the phased plan. The context is checked between phases and is
// also passed to every agent and LLM call, so cancelling it aborts calls that
// are in flight instead of letting them run to completion.
func (r *Runner) Run(ctx context.Context, inputs Inputs, progress ProgressFunc) (*View, error) {
	start := time.Now()
	logger := r.logger.With("patient_id", inputs.PatientID)
	overlay := NewOrchestrator("", "", false)
	if r.overlay != nil {
		overlay = NewOrchestrator(r.overlay.endpoint, r.overlay.key, true)
	}

	progress(10, "Preparing specialist inputs")

	// Phase 1: parallel data specialists. Only agents with input text run.
	type phase1Result struct {
		agentType AgentType
		output    AgentOutput
	}

	phase1 := []struct {
		agent Agent
		text  string
		kind  string
	}{
		{r.radiology, inputs.ImagingText, "Imaging Report"},
		{r.pathology, inputs.PathologyText, "Pathology Report"},
		{r.clinical, inputs.ClinicalText, "Clinical Notes"},
	}

	results := make(chan phase1Result, len(phase1))
	var wg sync.WaitGroup
	launched := 0
	for _, entry := range phase1 {
		if strings.TrimSpace(entry.text) == "" {
			continue
		}
		launched++
		wg.Add(1)
		go func(agent Agent, text, kind string) {
			defer wg.Done()
			agentCtx := AgentContext{
				PatientID:     inputs.PatientID,
				PatientName:   inputs.PatientName,
				PatientAge:    inputs.PatientAge,
				PatientGender: inputs.PatientGender,
				ReportText:    text,
				ReportType:    kind,
			}
			output := overlay.RunAgent(ctx, inputs.PatientID, agent.Name(), func(callCtx context.Context) AgentOutput {
				if err := r.llmSem.Acquire(callCtx, 1); err != nil {
					return AgentOutput{
						AgentType: agent.Type(), AgentName: agent.Name(),
						Success: false, Error: err.Error(), Confidence: ConfidenceNone,
						Timestamp: nowISO(), PatientID: inputs.PatientID,
					}
				}
				defer r.llmSem.Release(1)
				return agent.Analyze(callCtx, agentCtx)
			})
			results <- phase1Result{agentType: agent.Type(), output: output}
		}(entry.agent, entry.text, entry.kind)
	}

	progress(25, "Running specialist agents")
	progress(35, "Waiting for specialist analyses")
	wg.Wait()
	close(results)

	outputs := make(map[AgentType]*AgentOutput, launched)
	for res := range results {
		out := res.output
		outputs[res.agentType] = &out
	}
	progress(50, "Specialist analysis complete")

	if err := ctx.Err(); err != nil {
		logger.Info("Tumor board run cancelled after phase 1")
		return nil, err
	}

	// Phase 2: research over the combined phase-1 summary.
	progress(55, "Running research agent")
	combined := buildCombinedSummary(outputs[AgentTypeRadiology], outputs[AgentTypePathology], outputs[AgentTypeClinical])
	var researchOutput *AgentOutput
	if combined != "" {
		out := overlay.RunAgent(ctx, inputs.PatientID, r.research.Name(), func(callCtx context.Context) AgentOutput {
			if err := r.llmSem.Acquire(callCtx, 1); err != nil {
				return AgentOutput{
					AgentType: AgentTypeResearch, AgentName: r.research.Name(),
					Success: false, Error: err.Error(), Confidence: ConfidenceNone,
					Timestamp: nowISO(), PatientID: inputs.PatientID,
				}
			}
			defer r.llmSem.Release(1)
			return r.research.Analyze(callCtx, AgentContext{
				PatientID:   inputs.PatientID,
				PatientName: inputs.PatientName,
				PatientAge:  inputs.PatientAge,
				ReportText:  combined,
			})
		})
		researchOutput = &out
	}
	progress(70, "Research analysis complete")

	if err := ctx.Err(); err != nil {
		logger.Info("Tumor board run cancelled after phase 2")
		return nil, err
	}

	// Phase 3: local coordinator synthesis.
	progress(80, "Synthesizing coordinator view")
	tbCase, coordResult := r.synthesize(ctx, inputs, outputs, researchOutput)

	progress(85, "Cleaning and validating board view")
	view := BuildView(tbCase, coordResult, inputs.PatientAge, inputs.PatientGender, time.Since(start))

	if inputs.FindingsJSON != "" {
		view.Timeline = r.compileTimeline(ctx, inputs.FindingsJSON)
	}

	cleaned := CleanView(view)

	progress(90, "Finalizing results")
	orchestration := overlay.Result()
	cleaned.Orchestration = map[string]any{
		"status":           orchestration.Status,
		"agents_completed": orchestration.AgentsCompleted,
		"agents_failed":    orchestration.AgentsFailed,
	}
	cleaned.ProcessingTimeSeconds = roundSeconds(time.Since(start))

	progress(100, "Tumor board analysis complete")
	logger.Info("Tumor board run finished",
		"agents_used", cleaned.AgentsUsed,
		"diagnostic_status", cleaned.DiagnosticStatus,
		"confidence", cleaned.OverallConfidence,
		"elapsed", time.Since(start))
	return cleaned, nil
}

func (r *Runner) synthesize(ctx context.Context, inputs Inputs,
	outputs map[AgentType]*AgentOutput, research *AgentOutput) (*Case, *CoordinatorResult) {

	if err := r.llmSem.Acquire(ctx, 1); err == nil {
		defer r.llmSem.Release(1)
	}
	return r.coordinator.Synthesize(ctx, inputs.PatientID, inputs.PatientName,
		outputs[AgentTypeRadiology], outputs[AgentTypePathology], outputs[AgentTypeClinical], research)
}

func (r *Runner) compileTimeline(ctx context.Context, findingsJSON string) []TimelineEntry {
	if err := r.llmSem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer r.llmSem.Release(1)
	return r.compiler.Compile(ctx, findingsJSON)
}

// buildCombinedSummary assembles the research agent's input from the
// phase-1 outputs: each successful agent contributes its summary and its
// first five findings.
func buildCombinedSummary(radiology, pathology, clinical *AgentOutput) string {
	var parts []string
	appendSection := func(label string, out *AgentOutput) {
		if out == nil || !out.Success {
			return
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, out.Summary))
		limit := len(out.Findings)
		if limit > 5 {
			limit = 5
		}
		for _, f := range out.Findings[:limit] {
			parts = append(parts, fmt.Sprintf("  - %s: %s", f.Name, f.Value))
		}
	}

	appendSection("IMAGING", radiology)
	appendSection("PATHOLOGY", pathology)
	appendSection("CLINICAL", clinical)
	return strings.Join(parts, "\n")
}
