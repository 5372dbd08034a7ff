// Package agent runs the bounded tool-use conversations that drive the
// collector, analyzer and reporter stages. One parameterized loop serves
// all three; stages differ only in prompts, tools and stop preconditions.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/llm"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
)

// ToolHandler executes one tool call. The returned string is handed back
// to the model verbatim; an error becomes an is_error tool result, which
// the model may react to. Handlers commit their side effects immediately;
// nothing is rolled back if the loop later fails.
type ToolHandler func(ctx context.Context, input json.RawMessage) (string, error)

// ToolSpec pairs a tool definition with its handler.
type ToolSpec struct {
	Definition llm.ToolDefinition
	Handler    ToolHandler
}

// Precondition decides whether the loop may stop when the model returns
// no tool calls. When stopping is not allowed it returns a corrective
// user message to inject instead.
type Precondition func() (correction string, mayStop bool)

// LoopConfig parameterizes one stage run.
type LoopConfig struct {
	System        string
	InitialPrompt string
	Tools         []ToolSpec
	MaxIterations int
	MaxTokens     int
	Precondition  Precondition
}

// LoopResult summarizes a finished run. HitCeiling marks a run that was
// cut off at MaxIterations; that is a normal termination, not an error.
type LoopResult struct {
	Iterations int
	Usage      models.TokenUsage
	FinalText  string
	HitCeiling bool
}

// Loop drives the model/tool conversation.
type Loop struct {
	client llm.Client
	logger *logrus.Logger
}

func NewLoop(client llm.Client, logger *logrus.Logger) *Loop {
	return &Loop{client: client, logger: logger}
}

// Run executes the conversation until the model stops calling tools (and
// the precondition allows stopping) or the iteration ceiling is reached.
// A model API failure aborts the run; side effects of tools executed
// before the failure remain committed.
func (l *Loop) Run(ctx context.Context, cfg LoopConfig) (*LoopResult, error) {
	definitions := make([]llm.ToolDefinition, len(cfg.Tools))
	handlers := make(map[string]ToolHandler, len(cfg.Tools))
	for i, tool := range cfg.Tools {
		definitions[i] = tool.Definition
		handlers[tool.Definition.Name] = tool.Handler
	}

	transcript := []llm.Message{llm.UserText(cfg.InitialPrompt)}
	result := &LoopResult{}

	for result.Iterations < cfg.MaxIterations {
		result.Iterations++
		l.logger.WithFields(logrus.Fields{
			"iteration": result.Iterations,
			"max":       cfg.MaxIterations,
		}).Debug("Agent loop iteration")

		resp, err := l.client.CreateMessage(ctx, llm.Request{
			System:    cfg.System,
			Messages:  transcript,
			Tools:     definitions,
			MaxTokens: cfg.MaxTokens,
		})
		if err != nil {
			return result, fmt.Errorf("model call failed on iteration %d: %w", result.Iterations, err)
		}
		result.Usage.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		transcript = append(transcript, resp.AssistantMessage())

		toolCalls := resp.ToolCalls()
		if len(toolCalls) == 0 {
			if cfg.Precondition != nil {
				if correction, mayStop := cfg.Precondition(); !mayStop {
					l.logger.WithField("iteration", result.Iterations).Info("Stop vetoed, injecting corrective message")
					transcript = append(transcript, llm.UserText(correction))
					continue
				}
			}
			result.FinalText = resp.Text()
			return result, nil
		}

		// All of a turn's results go back to the model in one message
		// before the next call.
		results := make([]llm.ContentBlock, 0, len(toolCalls))
		for _, call := range toolCalls {
			results = append(results, l.execute(ctx, handlers, call))
		}
		transcript = append(transcript, llm.Message{Role: llm.RoleUser, Content: results})
	}

	result.HitCeiling = true
	l.logger.WithField("iterations", result.Iterations).Info("Agent loop hit iteration ceiling")
	return result, nil
}

func (l *Loop) execute(ctx context.Context, handlers map[string]ToolHandler, call llm.ContentBlock) llm.ContentBlock {
	handler, ok := handlers[call.Name]
	if !ok {
		return llm.ToolResultBlock(call.ID, fmt.Sprintf("unknown tool %q", call.Name), true)
	}

	output, err := handler(ctx, call.Input)
	if err != nil {
		l.logger.WithError(err).WithField("tool", call.Name).Warn("Tool call failed")
		return llm.ToolResultBlock(call.ID, err.Error(), true)
	}
	return llm.ToolResultBlock(call.ID, output, false)
}
