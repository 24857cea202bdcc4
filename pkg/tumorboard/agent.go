package tumorboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/cyno-health/cyno/pkg/llm"
)

// agentMaxTokens bounds every specialist response.
const agentMaxTokens = 2048

// AgentTimeout is the hard ceiling for one specialist analysis.
const AgentTimeout = 120 * time.Second

// Gateway is the LLM call surface agents depend on.
type Gateway interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Agent is the shared contract for all tumor board specialists.
type Agent interface {
	Name() string
	Type() AgentType
	// Analyze runs the agent over the given context. It never returns an
	// error: failures are reported through AgentOutput.Success so the
	// coordinator can proceed with the remaining agents.
	Analyze(ctx context.Context, agentCtx AgentContext) AgentOutput
}

// responseParser turns a raw model response into a typed AgentOutput.
type responseParser func(response string, agentCtx AgentContext) AgentOutput

// baseAgent implements the shared analyze flow: build prompt, call the
// gateway in JSON mode at low temperature, parse tolerantly, stamp metadata.
type baseAgent struct {
	agentType AgentType
	name      string
	model     string
	gateway   Gateway
	prompt    func(AgentContext) string
	parse     responseParser
	logger    *slog.Logger
}

func (a *baseAgent) Name() string    { return a.name }
func (a *baseAgent) Type() AgentType { return a.agentType }

func (a *baseAgent) Analyze(ctx context.Context, agentCtx AgentContext) AgentOutput {
	callCtx, cancel := context.WithTimeout(ctx, AgentTimeout)
	defer cancel()

	resp, err := a.gateway.Chat(callCtx, llm.ChatRequest{
		Model:       a.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: a.prompt(agentCtx)}},
		Temperature: 0.1,
		MaxTokens:   agentMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		a.logger.Warn("Agent LLM call failed",
			"agent", a.name, "patient_id", agentCtx.PatientID, "error", err)
		return a.errorOutput(err.Error(), agentCtx)
	}

	output := a.parse(resp.Content, agentCtx)
	output.AgentType = a.agentType
	output.AgentName = a.name
	output.Timestamp = nowISO()
	output.PatientID = agentCtx.PatientID
	return output
}

// errorOutput is the uniform failure shape: unsuccessful, zero confidence,
// the error echoed as a warning.
func (a *baseAgent) errorOutput(errMsg string, agentCtx AgentContext) AgentOutput {
	return AgentOutput{
		AgentType:  a.agentType,
		AgentName:  a.name,
		Success:    false,
		Error:      errMsg,
		Confidence: ConfidenceNone,
		Warnings:   []string{"Agent failed: " + errMsg},
		Timestamp:  nowISO(),
		PatientID:  agentCtx.PatientID,
	}
}

// parseFailure builds the output for an unparseable model response.
func parseFailure(agentType AgentType, name, reason string, agentCtx AgentContext) AgentOutput {
	return AgentOutput{
		AgentType:  agentType,
		AgentName:  name,
		Success:    false,
		Error:      reason,
		Confidence: ConfidenceNone,
		Warnings:   []string{reason},
		Timestamp:  nowISO(),
		PatientID:  agentCtx.PatientID,
	}
}
