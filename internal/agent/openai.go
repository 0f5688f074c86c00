package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIConfig configures an OpenAIClient
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // optional, e.g. an OpenAI-compatible gateway
	Temperature float64
	HTTPClient  *http.Client
}

// OpenAIClient is a Backend on the OpenAI chat completions API
type OpenAIClient struct {
	client      *openai.Client
	apiKey      string
	model       string
	temperature float32
}

// NewOpenAIClient creates a new OpenAI backend
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: float32(temperature),
	}
}

// Name identifies the backend
func (c *OpenAIClient) Name() string {
	return "openai"
}

// IsConfigured returns true if the client has an API key
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Call sends the conversation as a chat completion with function tools.
func (c *OpenAIClient) Call(ctx context.Context, messages []Message, opts CallOptions) (*APIResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toOpenAIMessages(opts.System, messages),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	if len(opts.Tools) > 0 {
		req.Tools = make([]openai.Tool, len(opts.Tools))
		for i, tool := range opts.Tools {
			req.Tools[i] = openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.InputSchema,
				},
			}
		}
		req.ToolChoice = openAIToolChoice(opts.ToolChoice)
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("API returned no choices")
	}

	choice := resp.Choices[0]
	return &APIResponse{
		Content:    fromOpenAIMessage(choice.Message),
		StopReason: openAIStopReason(choice),
		Usage: UsageStats{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

func openAIToolChoice(choice string) any {
	switch choice {
	case "", "auto":
		return "auto"
	case "any":
		return "required"
	default:
		return openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: choice},
		}
	}
}

func openAIStopReason(choice openai.ChatCompletionChoice) string {
	if len(choice.Message.ToolCalls) > 0 {
		return StopToolUse
	}
	switch choice.FinishReason {
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return StopToolUse
	case openai.FinishReasonLength:
		return StopMaxTokens
	default:
		return StopEndTurn
	}
}

// toOpenAIMessages flattens the block model: tool uses become assistant
// tool_calls and each tool result becomes its own tool message.
func toOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		var text []string
		var toolCalls []openai.ToolCall
		var toolResults []openai.ChatCompletionMessage

		for _, block := range msg.Content {
			switch b := block.(type) {
			case TextBlock:
				text = append(text, b.Text)
			case ToolUseBlock:
				args := b.RawInput
				if args == "" {
					encoded, _ := json.Marshal(b.Input)
					args = string(encoded)
				}
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   b.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      b.Name,
						Arguments: args,
					},
				})
			case ToolResultBlock:
				toolResults = append(toolResults, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    b.Content,
					ToolCallID: b.ToolUseID,
				})
			}
		}

		if len(text) > 0 || len(toolCalls) > 0 {
			role := openai.ChatMessageRoleUser
			if msg.Role == "assistant" {
				role = openai.ChatMessageRoleAssistant
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:      role,
				Content:   strings.Join(text, "\n"),
				ToolCalls: toolCalls,
			})
		}
		out = append(out, toolResults...)
	}

	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) []ContentBlock {
	var content []ContentBlock
	if msg.Content != "" {
		content = append(content, TextBlock{Type: "text", Text: msg.Content})
	}

	for _, call := range msg.ToolCalls {
		block := ToolUseBlock{
			Type:     "tool_use",
			ID:       call.ID,
			Name:     call.Function.Name,
			RawInput: call.Function.Arguments,
		}
		raw := strings.TrimSpace(call.Function.Arguments)
		if raw == "" {
			raw = "{}"
		}
		if err := json.Unmarshal([]byte(raw), &block.Input); err != nil {
			block.Input = nil
			block.InputError = fmt.Errorf("failed to decode arguments for %s: %w", call.Function.Name, err)
		} else if block.Input == nil {
			block.Input = map[string]any{}
		}
		content = append(content, block)
	}

	return content
}
