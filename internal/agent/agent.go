package agent

import (
	"context"
	"fmt"
)

// Agent represents an LLM-powered agent with tools
type Agent struct {
	name         string
	backend      Backend
	registry     *ToolRegistry
	systemPrompt string
	toolChoice   string
}

// AgentConfig configures an agent. When Backend is nil an Anthropic
// client is built from APIKey, Model and Temperature.
type AgentConfig struct {
	Name         string
	Backend      Backend
	APIKey       string
	Model        string
	Temperature  float64
	SystemPrompt string
	ToolChoice   string // "auto" when empty
}

// NewAgent creates a new agent with the given configuration
func NewAgent(cfg AgentConfig) *Agent {
	backend := cfg.Backend
	if backend == nil {
		backend = NewAPIClient(cfg.APIKey, cfg.Model, cfg.Temperature)
	}
	toolChoice := cfg.ToolChoice
	if toolChoice == "" {
		toolChoice = "auto"
	}

	return &Agent{
		name:         cfg.Name,
		backend:      backend,
		registry:     NewToolRegistry(),
		systemPrompt: cfg.SystemPrompt,
		toolChoice:   toolChoice,
	}
}

// Name returns the agent's name
func (a *Agent) Name() string {
	return a.name
}

// Backend returns the model backend
func (a *Agent) Backend() Backend {
	return a.backend
}

// RegisterTool adds a tool to the agent
func (a *Agent) RegisterTool(tool Tool, handler ToolHandler) error {
	return a.registry.Register(tool, handler)
}

// MustRegisterTool adds a tool and panics on error
func (a *Agent) MustRegisterTool(tool Tool, handler ToolHandler) {
	a.registry.MustRegister(tool, handler)
}

// Tools returns all registered tools
func (a *Agent) Tools() []Tool {
	return a.registry.Tools()
}

// Execute runs the agent with the given input
func (a *Agent) Execute(ctx context.Context, input AgentInput) (*AgentOutput, error) {
	return a.ExecuteWithPrompt(ctx, input, a.systemPrompt)
}

// ExecuteWithPrompt runs the agent with a per-call system prompt.
// Tool calls made on the last allowed turn are executed and returned
// without another round-trip.
func (a *Agent) ExecuteWithPrompt(ctx context.Context, input AgentInput, systemPrompt string) (*AgentOutput, error) {
	maxTurns := input.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 1 // Default to single-shot
	}

	messages := make([]Message, len(input.Messages))
	copy(messages, input.Messages)

	var totalUsage UsageStats
	var allToolCalls []ToolCall

	for turn := 0; turn < maxTurns; turn++ {
		response, err := a.backend.Call(ctx, messages, CallOptions{
			System:     systemPrompt,
			Tools:      a.registry.Tools(),
			ToolChoice: a.toolChoice,
		})
		if err != nil {
			return nil, fmt.Errorf("API call failed on turn %d: %w", turn+1, err)
		}
		totalUsage.Add(response.Usage)

		switch response.StopReason {
		case StopEndTurn, StopMaxTokens:
			return &AgentOutput{
				ToolCalls:    allToolCalls,
				Conversation: messages,
				Usage:        totalUsage,
				FinalText:    extractFinalText(response.Content),
			}, nil

		case StopToolUse:
			messages = append(messages, Message{Role: "assistant", Content: response.Content})

			toolResults, toolCalls := a.executeTools(ctx, response.Content)
			allToolCalls = append(allToolCalls, toolCalls...)
			messages = append(messages, Message{Role: "user", Content: toolResults})

			if turn == maxTurns-1 {
				return &AgentOutput{
					ToolCalls:    allToolCalls,
					Conversation: messages,
					Usage:        totalUsage,
					FinalText:    extractFinalText(response.Content),
				}, nil
			}

		default:
			return nil, fmt.Errorf("unexpected stop reason: %s", response.StopReason)
		}
	}

	return nil, fmt.Errorf("max turns (%d) exceeded", maxTurns)
}

// executeTools runs all tool_use blocks and returns results
func (a *Agent) executeTools(ctx context.Context, content []ContentBlock) ([]ContentBlock, []ToolCall) {
	var results []ContentBlock
	var calls []ToolCall

	for _, block := range content {
		toolUse, ok := block.(ToolUseBlock)
		if !ok {
			continue
		}

		var output string
		var err error
		if toolUse.InputError != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidArguments, toolUse.InputError)
		} else {
			output, err = a.registry.Execute(ctx, toolUse.Name, toolUse.Input)
		}

		calls = append(calls, ToolCall{
			Name:   toolUse.Name,
			Input:  toolUse.Input,
			Output: output,
			Error:  err,
		})

		resultBlock := ToolResultBlock{
			Type:      "tool_result",
			ToolUseID: toolUse.ID,
			Content:   output,
			IsError:   err != nil,
		}
		if err != nil {
			resultBlock.Content = err.Error()
		}
		results = append(results, resultBlock)
	}

	return results, calls
}

// extractFinalText extracts text from the final response
func extractFinalText(content []ContentBlock) string {
	for _, block := range content {
		if text, ok := block.(TextBlock); ok {
			return text.Text
		}
	}
	return ""
}

// ExecuteSingleTool runs the agent for one turn and returns the first tool
// call, or an error when the model answered in text only.
func (a *Agent) ExecuteSingleTool(ctx context.Context, userMessage string) (*ToolCall, error) {
	output, err := a.Execute(ctx, AgentInput{
		Messages: []Message{UserText(userMessage)},
		MaxTurns: 1,
	})
	if err != nil {
		return nil, err
	}

	if len(output.ToolCalls) == 0 {
		return nil, fmt.Errorf("no tool was called")
	}

	return &output.ToolCalls[0], nil
}

// UserText builds a single-text user message
func UserText(text string) Message {
	return Message{
		Role:    "user",
		Content: []ContentBlock{TextBlock{Type: "text", Text: text}},
	}
}

// IsConfigured returns true if the agent's backend is configured
func (a *Agent) IsConfigured() bool {
	return a.backend != nil && a.backend.IsConfigured()
}
