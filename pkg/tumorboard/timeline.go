package tumorboard

import (
	"context"
	"log/slog"

	"github.com/cyno-health/cyno/pkg/llm"
)

// TimelineCompiler structures merged document findings into a grouped
// medical timeline. It is an enrichment step: the board view is complete
// without it, so every failure path returns nil.
type TimelineCompiler struct {
	gateway Gateway
	model   string
	logger  *slog.Logger
}

// NewTimelineCompiler creates a compiler using the main tumor board model.
func NewTimelineCompiler(gateway Gateway, model string) *TimelineCompiler {
	return &TimelineCompiler{gateway: gateway, model: model, logger: slog.Default()}
}

type timelinePayload struct {
	Timeline []TimelineEntry `json:"timeline"`
	Warnings []string        `json:"warnings"`
}

// Compile restructures the given findings JSON into a timeline. The prompt
// only permits grouping, renaming and collapsing repeats; values pass
// through untouched.
func (c *TimelineCompiler) Compile(ctx context.Context, findingsJSON string) []TimelineEntry {
	resp, err := c.gateway.Chat(ctx, llm.ChatRequest{
		Model:       c.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildTimelinePrompt(findingsJSON)}},
		Temperature: 0.1,
		MaxTokens:   4096,
		JSONMode:    true,
	})
	if err != nil {
		c.logger.Warn("Timeline compilation failed, continuing without timeline", "error", err)
		return nil
	}

	var payload timelinePayload
	if err := llm.DecodeObject(resp.Content, &payload); err != nil {
		c.logger.Warn("Timeline response unparseable, continuing without timeline")
		return nil
	}
	return payload.Timeline
}
